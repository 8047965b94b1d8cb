package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/models"
	"github.com/clearroom/dataroom-api/utils"
)

// InviteService owns the invite issuance and redemption lifecycle.
type InviteService struct {
	db *sql.DB
}

func NewInviteService(db *sql.DB) *InviteService {
	return &InviteService{db: db}
}

// Create issues a new invite for a room the creator owns and returns the
// invite together with the raw token. The raw token is returned exactly once;
// only its hash is stored.
func (s *InviteService) Create(ctx context.Context, req models.CreateInviteRequest, creatorID string) (*models.Invite, string, error) {
	maxUses := req.MaxUses
	if req.SingleUse {
		// single_use wins over any supplied max_uses
		one := 1
		maxUses = &one
	} else if maxUses != nil && *maxUses <= 0 {
		return nil, "", apperrors.New(apperrors.CodeValidation, "max_uses must be a positive integer")
	}

	var expiresAt *time.Time
	if req.ExpiresHours != nil {
		if *req.ExpiresHours <= 0 {
			return nil, "", apperrors.New(apperrors.CodeValidation, "expires_hours must be a positive integer")
		}
		t := time.Now().UTC().Add(time.Duration(*req.ExpiresHours) * time.Hour)
		expiresAt = &t
	}

	if err := requireRoomOwner(ctx, s.db, req.DataRoomID, creatorID); err != nil {
		return nil, "", err
	}

	rawToken, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, "generate invite token", err)
	}

	var allowedEmail *string
	if req.AllowedEmail != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.AllowedEmail))
		allowedEmail = &normalized
	}

	inv := &models.Invite{
		ID:           uuid.New().String(),
		DataRoomID:   req.DataRoomID,
		CreatedBy:    creatorID,
		AllowedEmail: allowedEmail,
		TokenHash:    utils.HashInviteToken(rawToken),
		MaxUses:      maxUses,
		SingleUse:    req.SingleUse,
		UsesCount:    0,
		ExpiresAt:    expiresAt,
		Revoked:      false,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invites (id, data_room_id, created_by, allowed_email, token_hash,
		                     max_uses, single_use, uses_count, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, inv.ID, inv.DataRoomID, inv.CreatedBy, inv.AllowedEmail, inv.TokenHash,
		inv.MaxUses, inv.SingleUse, inv.UsesCount, inv.ExpiresAt, inv.Revoked, inv.CreatedAt)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeUnavailable, "persist invite", err)
	}

	return inv, rawToken, nil
}

// Accept redeems a raw token for the authenticated user and returns the
// resulting share. Exactly one use is consumed per successful redemption;
// under concurrent attempts at most max_uses succeed.
func (s *InviteService) Accept(ctx context.Context, rawToken, userID, userEmail string) (*models.Share, error) {
	inv, err := s.getByTokenHash(ctx, utils.HashInviteToken(rawToken))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := redeemGate(inv, userEmail, now); err != nil {
		return nil, err
	}

	// A revoked share is a terminal grant state; redemption must neither
	// resurrect it nor burn an invite use on it.
	var shareRevoked bool
	err = s.db.QueryRowContext(ctx,
		`SELECT revoked FROM shares WHERE data_room_id = $1 AND user_id = $2`,
		inv.DataRoomID, userID).Scan(&shareRevoked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "look up share", err)
	}
	if err == nil && shareRevoked {
		return nil, apperrors.New(apperrors.CodeShareRevoked, "your access to this room was revoked")
	}

	// The increment-and-check is a single conditional update; the WHERE clause
	// re-validates every state gate so concurrent redeemers, revokers and the
	// expiry clock are all serialized on this row.
	res, err := s.db.ExecContext(ctx, `
		UPDATE invites
		SET uses_count = uses_count + 1
		WHERE id = $1
		  AND revoked = FALSE
		  AND (max_uses IS NULL OR uses_count < max_uses)
		  AND (expires_at IS NULL OR expires_at > $2)
	`, inv.ID, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "consume invite use", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "consume invite use", err)
	}
	if affected == 0 {
		return nil, s.classifyRefusal(ctx, inv.ID)
	}

	share := &models.Share{
		ID:         uuid.New().String(),
		DataRoomID: inv.DataRoomID,
		UserID:     userID,
		InviteID:   &inv.ID,
		Role:       models.RoleGuest,
		ExpiresAt:  nil,
		Revoked:    false,
		CreatedAt:  now,
	}

	// Upsert on (data_room_id, user_id): first redemption creates a guest
	// share; repeat redemptions clear any stored expiry (the new grant is
	// unbounded) and leave role and revoked untouched.
	var inviteID sql.NullString
	var expiresAt sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO shares (id, data_room_id, user_id, invite_id, role, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, FALSE, $6)
		ON CONFLICT (data_room_id, user_id) DO UPDATE SET expires_at = NULL
		RETURNING id, data_room_id, user_id, invite_id, role, expires_at, revoked, created_at
	`, share.ID, share.DataRoomID, share.UserID, share.InviteID, share.Role, share.CreatedAt).
		Scan(&share.ID, &share.DataRoomID, &share.UserID, &inviteID, &share.Role,
			&expiresAt, &share.Revoked, &share.CreatedAt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "upsert share", err)
	}
	share.InviteID = nil
	if inviteID.Valid {
		share.InviteID = &inviteID.String
	}
	share.ExpiresAt = nil
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		share.ExpiresAt = &t
	}

	return share, nil
}

// Revoke flips an invite's revoked flag. One-way and idempotent; shares
// already created from past redemptions are untouched.
func (s *InviteService) Revoke(ctx context.Context, inviteID, callerID string) error {
	var roomID, ownerID string
	err := s.db.QueryRowContext(ctx, `
		SELECT i.data_room_id, r.owner_id
		FROM invites i
		JOIN data_rooms r ON r.id = i.data_room_id
		WHERE i.id = $1
	`, inviteID).Scan(&roomID, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.New(apperrors.CodeNotFound, "invite not found")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "look up invite", err)
	}
	if ownerID != callerID {
		return apperrors.New(apperrors.CodeForbidden, "only the room owner may revoke invites")
	}

	_, err = s.db.ExecContext(ctx, `UPDATE invites SET revoked = TRUE WHERE id = $1`, inviteID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "revoke invite", err)
	}
	return nil
}

// ListForRoom returns all invites for a room the caller owns. Token hashes
// stay out of the response model.
func (s *InviteService) ListForRoom(ctx context.Context, roomID, callerID string) ([]models.Invite, error) {
	if err := requireRoomOwner(ctx, s.db, roomID, callerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data_room_id, created_by, allowed_email, max_uses, single_use,
		       uses_count, expires_at, revoked, created_at
		FROM invites
		WHERE data_room_id = $1
		ORDER BY created_at DESC
	`, roomID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list invites", err)
	}
	defer rows.Close()

	invites := []models.Invite{}
	for rows.Next() {
		var inv models.Invite
		var allowedEmail sql.NullString
		var maxUses sql.NullInt64
		var expiresAt sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.DataRoomID, &inv.CreatedBy, &allowedEmail,
			&maxUses, &inv.SingleUse, &inv.UsesCount, &expiresAt, &inv.Revoked, &inv.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnavailable, "scan invite", err)
		}
		if allowedEmail.Valid {
			inv.AllowedEmail = &allowedEmail.String
		}
		if maxUses.Valid {
			n := int(maxUses.Int64)
			inv.MaxUses = &n
		}
		if expiresAt.Valid {
			t := expiresAt.Time.UTC()
			inv.ExpiresAt = &t
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "list invites", err)
	}
	return invites, nil
}

func (s *InviteService) getByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error) {
	inv, err := s.getInvite(ctx, `token_hash`, tokenHash)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "invite not found or invalid")
	}
	return inv, err
}

func (s *InviteService) getInvite(ctx context.Context, column, value string) (*models.Invite, error) {
	var inv models.Invite
	var allowedEmail sql.NullString
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, data_room_id, created_by, allowed_email, token_hash, max_uses,
		       single_use, uses_count, expires_at, revoked, created_at
		FROM invites
		WHERE `+column+` = $1
	`, value).Scan(&inv.ID, &inv.DataRoomID, &inv.CreatedBy, &allowedEmail, &inv.TokenHash,
		&maxUses, &inv.SingleUse, &inv.UsesCount, &expiresAt, &inv.Revoked, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeNotFound, "invite not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "look up invite", err)
	}

	if allowedEmail.Valid {
		inv.AllowedEmail = &allowedEmail.String
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		inv.MaxUses = &n
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		inv.ExpiresAt = &t
	}
	return &inv, nil
}

// classifyRefusal re-reads an invite after the conditional update matched no
// row and maps the state to a stable error kind. A caller who lost the race
// for the last use sees INVITE_EXHAUSTED, not a generic conflict.
func (s *InviteService) classifyRefusal(ctx context.Context, inviteID string) error {
	inv, err := s.getInvite(ctx, `id`, inviteID)
	if err != nil {
		return err
	}
	switch {
	case inv.Revoked:
		return apperrors.New(apperrors.CodeInviteRevoked, "invite revoked")
	case inv.ExpiresAt != nil && !inv.ExpiresAt.After(time.Now().UTC()):
		return apperrors.New(apperrors.CodeInviteExpired, "invite expired")
	case inv.MaxUses != nil && inv.UsesCount >= *inv.MaxUses:
		return apperrors.New(apperrors.CodeInviteExhausted, "invite max uses exceeded")
	default:
		return apperrors.New(apperrors.CodeConflict, "invite state changed, retry")
	}
}

// redeemGate checks every redemption gate in order: revoked, expired, email
// restriction, exhausted. Expired and exhausted are derived conditions,
// computed at evaluation time rather than stored.
func redeemGate(inv *models.Invite, userEmail string, now time.Time) error {
	if inv.Revoked {
		return apperrors.New(apperrors.CodeInviteRevoked, "invite revoked")
	}
	if inv.ExpiresAt != nil && !inv.ExpiresAt.After(now) {
		return apperrors.New(apperrors.CodeInviteExpired, "invite expired")
	}
	if inv.AllowedEmail != nil && !strings.EqualFold(*inv.AllowedEmail, userEmail) {
		return apperrors.New(apperrors.CodeInviteEmailMismatch, "invite restricted to a different email")
	}
	if inv.MaxUses != nil && inv.UsesCount >= *inv.MaxUses {
		return apperrors.New(apperrors.CodeInviteExhausted, "invite max uses exceeded")
	}
	return nil
}
