package handlers

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/middleware"
	"github.com/clearroom/dataroom-api/models"
	"github.com/clearroom/dataroom-api/services"
	"github.com/clearroom/dataroom-api/utils"
)

type InvitationHandler struct {
	Invites *services.InviteService
	Email   *services.EmailService
	WS      *WSHandler
}

func NewInvitationHandler(db *sql.DB, ws *WSHandler) *InvitationHandler {
	return &InvitationHandler{
		Invites: services.NewInviteService(db),
		Email:   services.NewEmailService(),
		WS:      ws,
	}
}

// CreateInvite issues a new invite for a room the caller owns. The raw token
// appears in this response and nowhere else.
func (h *InvitationHandler) CreateInvite(c *gin.Context) {
	var req models.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, rawToken, err := h.Invites.Create(c.Request.Context(), req, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	linkPath := "/invites/accept?token=" + rawToken

	if inv.AllowedEmail != nil && h.Email.Enabled() {
		frontendURL := os.Getenv("FRONTEND_URL")
		if frontendURL == "" {
			frontendURL = "http://localhost:3000"
		}
		to := *inv.AllowedEmail
		go func() {
			if err := h.Email.SendInviteEmail(to, frontendURL+linkPath); err != nil {
				utils.Warnf("invite %s: email delivery failed: %v", inv.ID, err)
			}
		}()
	}

	c.JSON(http.StatusCreated, models.CreateInviteResponse{
		InviteID:       inv.ID,
		RawToken:       rawToken,
		InviteLinkPath: linkPath,
	})
}

// AcceptInvite redeems the raw token for the authenticated caller.
func (h *InvitationHandler) AcceptInvite(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		respondError(c, apperrors.New(apperrors.CodeValidation, "token query parameter is required"))
		return
	}

	share, err := h.Invites.Accept(c.Request.Context(),
		rawToken, middleware.GetUserID(c), middleware.GetUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastRoomEvent(share.DataRoomID, "invite_redeemed", gin.H{
		"user_id": share.UserID,
	})

	c.JSON(http.StatusOK, share)
}

// RevokeInvite disables an invite for all future redemptions. Shares already
// granted stay as they are.
func (h *InvitationHandler) RevokeInvite(c *gin.Context) {
	err := h.Invites.Revoke(c.Request.Context(), c.Param("invite_id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInvites returns a room's invites for its owner.
func (h *InvitationHandler) ListInvites(c *gin.Context) {
	invites, err := h.Invites.ListForRoom(c.Request.Context(), c.Param("room_id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}
