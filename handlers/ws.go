package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/clearroom/dataroom-api/middleware"
	"github.com/clearroom/dataroom-api/services"
	"github.com/clearroom/dataroom-api/utils"
)

// WSHandler pushes room audit events (downloads, redemptions) to connected
// room members.
type WSHandler struct {
	M      *melody.Melody
	Shares *services.ShareService
}

func NewWSHandler(shares *services.ShareService) *WSHandler {
	m := melody.New()
	m.Config.MaxMessageSize = 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleError(func(s *melody.Session, err error) {
		utils.Debugf("websocket error: %v", err)
	})

	return &WSHandler{M: m, Shares: shares}
}

// HandleWS upgrades the connection after verifying room access.
func (h *WSHandler) HandleWS(c *gin.Context) {
	roomID := c.Param("id")
	if err := h.Shares.RequireRoomAccess(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]any{"room_id": roomID})
	if err != nil {
		utils.Warnf("failed to upgrade websocket for room %s: %v", roomID, err)
	}
}

// BroadcastRoomEvent fans an event out to every session watching the room.
// Nil-safe so handlers can be wired without a live feed (tests, tools).
func (h *WSHandler) BroadcastRoomEvent(roomID, eventType string, payload map[string]any) {
	if h == nil || h.M == nil {
		return
	}

	event := map[string]any{"type": eventType}
	for k, v := range payload {
		event[k] = v
	}
	msg, err := json.Marshal(event)
	if err != nil {
		return
	}

	err = h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get("room_id")
		return exists && id == roomID
	})
	if err != nil {
		utils.Debugf("broadcast to room %s failed: %v", roomID, err)
	}
}
