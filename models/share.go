package models

import "time"

// Share is a durable access grant binding a user to a data room. Unique on
// (data_room_id, user_id).
type Share struct {
	ID         string     `json:"id"`
	DataRoomID string     `json:"data_room_id"`
	UserID     string     `json:"user_id"`
	InviteID   *string    `json:"invite_id,omitempty"`
	Role       string     `json:"role"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Revoked    bool       `json:"revoked"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ShareListItem struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	UserEmail    string     `json:"user_email"`
	UserFullName string     `json:"user_full_name,omitempty"`
	Role         string     `json:"role"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Revoked      bool       `json:"revoked"`
	CreatedAt    time.Time  `json:"created_at"`
}
