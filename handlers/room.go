package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/middleware"
	"github.com/clearroom/dataroom-api/models"
	"github.com/clearroom/dataroom-api/services"
)

type RoomHandler struct {
	Rooms  *services.RoomService
	Shares *services.ShareService
	Audit  *services.AuditService
}

func NewRoomHandler(db *sql.DB) *RoomHandler {
	return &RoomHandler{
		Rooms:  services.NewRoomService(db),
		Shares: services.NewShareService(db),
		Audit:  services.NewAuditService(db),
	}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	if middleware.GetUserRole(c) != models.RoleOwner {
		respondError(c, apperrors.New(apperrors.CodeForbidden, "only owners may create rooms"))
		return
	}

	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.Rooms.Create(c.Request.Context(), req, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.Rooms.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	err := h.Rooms.Delete(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandler) ListShares(c *gin.Context) {
	shares, err := h.Shares.ListForRoom(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shares)
}

// RevokeShare cuts a user's access to a room. Idempotent.
func (h *RoomHandler) RevokeShare(c *gin.Context) {
	err := h.Shares.Revoke(c.Request.Context(), c.Param("id"), c.Param("user_id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDownloads returns the room's append-only download log, oldest first.
func (h *RoomHandler) ListDownloads(c *gin.Context) {
	downloads, err := h.Audit.ListForRoom(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, downloads)
}
