package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/models"
	"github.com/clearroom/dataroom-api/utils"
)

type RoomService struct {
	db *sql.DB
}

func NewRoomService(db *sql.DB) *RoomService {
	return &RoomService{db: db}
}

// Create inserts the room and the owner's share in one transaction.
func (s *RoomService) Create(ctx context.Context, req models.CreateRoomRequest, ownerID string) (*models.DataRoom, error) {
	now := time.Now().UTC()
	room := &models.DataRoom{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO data_rooms (id, owner_id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, room.ID, room.OwnerID, room.Name, room.Description, room.CreatedAt, room.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO shares (id, data_room_id, user_id, invite_id, role, expires_at, revoked, created_at)
			VALUES ($1, $2, $3, NULL, $4, NULL, FALSE, $5)
		`, uuid.New().String(), room.ID, ownerID, models.RoleOwner, now)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "create data room", err)
	}

	return room, nil
}

// List returns rooms the user owns plus rooms shared with them through an
// active share.
func (s *RoomService) List(ctx context.Context, userID string) ([]models.DataRoom, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT r.id, r.owner_id, r.name, r.description, r.created_at, r.updated_at
		FROM data_rooms r
		LEFT JOIN shares s ON s.data_room_id = r.id AND s.user_id = $1 AND s.revoked = FALSE
		WHERE r.owner_id = $2 OR s.id IS NOT NULL
		ORDER BY r.created_at DESC
	`, userID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list rooms", err)
	}
	defer rows.Close()

	rooms := []models.DataRoom{}
	for rows.Next() {
		var room models.DataRoom
		var description sql.NullString
		if err := rows.Scan(&room.ID, &room.OwnerID, &room.Name, &description,
			&room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnavailable, "scan room", err)
		}
		if description.Valid {
			room.Description = description.String
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list rooms", err)
	}
	return rooms, nil
}

// Delete removes a room the caller owns. Documents, invites and shares go with
// it via ON DELETE CASCADE.
func (s *RoomService) Delete(ctx context.Context, roomID, callerID string) error {
	if err := requireRoomOwner(ctx, s.db, roomID, callerID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM data_rooms WHERE id = $1`, roomID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "delete data room", err)
	}
	return nil
}
