package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/models"
)

// AuditService appends to and reads the download log. The log records one row
// per issued download link; there is no update or delete path.
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// RecordDownload appends one audit row. Called before the download URL is
// returned to the client, so a lost response never means a lost row.
func (s *AuditService) RecordDownload(ctx context.Context, roomID, documentID, userID, filename string) (*models.Download, error) {
	d := &models.Download{
		ID:         uuid.New().String(),
		DataRoomID: roomID,
		DocumentID: documentID,
		UserID:     userID,
		Filename:   filename,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, data_room_id, document_id, user_id, filename, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.DataRoomID, d.DocumentID, d.UserID, d.Filename, d.CreatedAt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "record download", err)
	}
	return d, nil
}

// ListForRoom returns the room's download log, oldest first, for the owner.
func (s *AuditService) ListForRoom(ctx context.Context, roomID, callerID string) ([]models.DownloadListItem, error) {
	if err := requireRoomOwner(ctx, s.db, roomID, callerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.document_id, d.user_id, u.email, u.full_name, d.filename, d.created_at
		FROM downloads d
		JOIN users u ON u.id = d.user_id
		WHERE d.data_room_id = $1
		ORDER BY d.created_at ASC
	`, roomID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list downloads", err)
	}
	defer rows.Close()

	downloads := []models.DownloadListItem{}
	for rows.Next() {
		var item models.DownloadListItem
		var fullName sql.NullString
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.UserID, &item.UserEmail,
			&fullName, &item.Filename, &item.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnavailable, "scan download", err)
		}
		if fullName.Valid {
			item.UserFullName = fullName.String
		}
		downloads = append(downloads, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list downloads", err)
	}
	return downloads, nil
}
