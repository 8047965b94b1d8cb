package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/clearroom/dataroom-api/handlers"
	"github.com/clearroom/dataroom-api/services"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.Refresh)
}

// SetupRoomRoutes sets up protected room, share and audit routes.
func SetupRoomRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := handlers.NewRoomHandler(db)

	rg.POST("/rooms", h.CreateRoom)
	rg.GET("/rooms", h.ListRooms)
	rg.DELETE("/rooms/:id", h.DeleteRoom)

	rg.GET("/rooms/:id/shares", h.ListShares)
	rg.POST("/rooms/:id/shares/:user_id/revoke", h.RevokeShare)

	rg.GET("/rooms/:id/downloads", h.ListDownloads)
}

// SetupInviteRoutes sets up the invite issuance and redemption routes.
func SetupInviteRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler) {
	h := handlers.NewInvitationHandler(db, ws)

	rg.POST("/invites", h.CreateInvite)
	rg.GET("/invites/room/:room_id", h.ListInvites)
	rg.POST("/invites/accept", h.AcceptInvite)
	rg.POST("/invites/:invite_id/revoke", h.RevokeInvite)
}

// SetupDocumentRoutes sets up document metadata and transfer routes.
func SetupDocumentRoutes(rg *gin.RouterGroup, db *sql.DB, store services.ObjectStore, ws *handlers.WSHandler) {
	h := handlers.NewDocumentHandler(db, store, ws)

	rg.GET("/rooms/:id/documents", h.ListDocuments)
	rg.POST("/rooms/:id/documents/presign", h.PresignUpload)
	rg.POST("/rooms/:id/documents/confirm", h.ConfirmUpload)
	rg.GET("/rooms/:id/documents/:doc_id/download", h.Download)
	rg.DELETE("/rooms/:id/documents/:doc_id", h.DeleteDocument)
}
