package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/models"
)

// ShareService is the registry of per-user, per-room access grants.
type ShareService struct {
	db *sql.DB
}

func NewShareService(db *sql.DB) *ShareService {
	return &ShareService{db: db}
}

// Revoke flips a share's revoked flag. One-way and idempotent; revoking an
// already-revoked share is not an error.
func (s *ShareService) Revoke(ctx context.Context, roomID, targetUserID, callerID string) error {
	if err := requireRoomOwner(ctx, s.db, roomID, callerID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE shares SET revoked = TRUE WHERE data_room_id = $1 AND user_id = $2`,
		roomID, targetUserID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "revoke share", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "revoke share", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "share not found")
	}
	return nil
}

// ListForRoom returns all shares of a room the caller owns, joined with the
// grantee's identity.
func (s *ShareService) ListForRoom(ctx context.Context, roomID, callerID string) ([]models.ShareListItem, error) {
	if err := requireRoomOwner(ctx, s.db, roomID, callerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.user_id, u.email, u.full_name, s.role, s.expires_at, s.revoked, s.created_at
		FROM shares s
		JOIN users u ON u.id = s.user_id
		WHERE s.data_room_id = $1
		ORDER BY s.created_at ASC
	`, roomID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list shares", err)
	}
	defer rows.Close()

	shares := []models.ShareListItem{}
	for rows.Next() {
		var item models.ShareListItem
		var fullName sql.NullString
		var expiresAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.UserID, &item.UserEmail, &fullName,
			&item.Role, &expiresAt, &item.Revoked, &item.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnavailable, "scan share", err)
		}
		if fullName.Valid {
			item.UserFullName = fullName.String
		}
		if expiresAt.Valid {
			t := expiresAt.Time.UTC()
			item.ExpiresAt = &t
		}
		shares = append(shares, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list shares", err)
	}
	return shares, nil
}

// HasRoomAccess reports whether the user owns the room or holds an active
// (non-revoked, non-expired) share.
func (s *ShareService) HasRoomAccess(ctx context.Context, roomID, userID string) (bool, error) {
	ownerID, err := roomOwnerID(ctx, s.db, roomID)
	if err != nil {
		return false, err
	}
	if ownerID == userID {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM shares
			WHERE data_room_id = $1 AND user_id = $2 AND revoked = FALSE
			  AND (expires_at IS NULL OR expires_at > $3)
		)
	`, roomID, userID, time.Now().UTC()).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeUnavailable, "check room access", err)
	}
	return exists, nil
}

// RequireRoomOwner fails with FORBIDDEN unless callerID owns the room.
func (s *ShareService) RequireRoomOwner(ctx context.Context, roomID, callerID string) error {
	return requireRoomOwner(ctx, s.db, roomID, callerID)
}

// RequireRoomAccess is HasRoomAccess expressed as a gate.
func (s *ShareService) RequireRoomAccess(ctx context.Context, roomID, userID string) error {
	ok, err := s.HasRoomAccess(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.New(apperrors.CodeForbidden, "access denied")
	}
	return nil
}
