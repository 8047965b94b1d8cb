package models

import "time"

// Invite is the persisted redemption policy for a token. The raw token is
// never stored, only its keyed hash.
type Invite struct {
	ID           string     `json:"id"`
	DataRoomID   string     `json:"data_room_id"`
	CreatedBy    string     `json:"created_by"`
	AllowedEmail *string    `json:"allowed_email,omitempty"`
	TokenHash    string     `json:"-"`
	MaxUses      *int       `json:"max_uses,omitempty"`
	SingleUse    bool       `json:"single_use"`
	UsesCount    int        `json:"uses_count"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Revoked      bool       `json:"revoked"`
	CreatedAt    time.Time  `json:"created_at"`
}

type CreateInviteRequest struct {
	DataRoomID   string  `json:"data_room_id" binding:"required"`
	AllowedEmail *string `json:"allowed_email" binding:"omitempty,email"`
	MaxUses      *int    `json:"max_uses"`
	ExpiresHours *int    `json:"expires_hours"`
	SingleUse    bool    `json:"single_use"`
}

// CreateInviteResponse carries the raw token. It is returned exactly once and
// is not retrievable afterwards.
type CreateInviteResponse struct {
	InviteID       string `json:"invite_id"`
	RawToken       string `json:"raw_token"`
	InviteLinkPath string `json:"invite_link_path"`
}
