package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clearroom/dataroom-api/apperrors"
)

// roomOwnerID returns the owner of a data room, or NOT_FOUND.
func roomOwnerID(ctx context.Context, db *sql.DB, roomID string) (string, error) {
	var ownerID string
	err := db.QueryRowContext(ctx,
		`SELECT owner_id FROM data_rooms WHERE id = $1`, roomID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.New(apperrors.CodeNotFound, "data room not found")
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnavailable, "look up data room", err)
	}
	return ownerID, nil
}

// requireRoomOwner fails with FORBIDDEN unless callerID owns the room.
func requireRoomOwner(ctx context.Context, db *sql.DB, roomID, callerID string) error {
	ownerID, err := roomOwnerID(ctx, db, roomID)
	if err != nil {
		return err
	}
	if ownerID != callerID {
		return apperrors.New(apperrors.CodeForbidden, "only the room owner may perform this action")
	}
	return nil
}
