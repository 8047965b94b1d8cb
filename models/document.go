package models

import "time"

type Document struct {
	ID          string    `json:"id"`
	DataRoomID  string    `json:"data_room_id"`
	UploadedBy  string    `json:"uploaded_by"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256Hash  *string   `json:"sha256_hash,omitempty"`
	StorageKey  string    `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type PresignResponse struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
	ExpiresIn  int    `json:"expires_in"`
}

type ConfirmUploadRequest struct {
	Filename    string  `json:"filename" binding:"required,max=255"`
	ContentType string  `json:"content_type" binding:"required"`
	SizeBytes   int64   `json:"size_bytes" binding:"required,gt=0"`
	StorageKey  string  `json:"storage_key" binding:"required"`
	SHA256Hash  *string `json:"sha256_hash"`
}

type DownloadResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}
