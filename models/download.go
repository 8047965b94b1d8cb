package models

import "time"

// Download is one append-only audit row, written each time a download link is
// issued. Rows are never updated or deleted.
type Download struct {
	ID         string    `json:"id"`
	DataRoomID string    `json:"data_room_id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"timestamp"`
}

type DownloadListItem struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	UserFullName string    `json:"user_full_name,omitempty"`
	Filename     string    `json:"filename"`
	CreatedAt    time.Time `json:"timestamp"`
}
