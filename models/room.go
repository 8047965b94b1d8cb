package models

import "time"

type DataRoom struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}
