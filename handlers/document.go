package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/middleware"
	"github.com/clearroom/dataroom-api/models"
	"github.com/clearroom/dataroom-api/services"
	"github.com/clearroom/dataroom-api/utils"
)

const (
	uploadURLTTL   = 5 * time.Minute
	downloadURLTTL = time.Minute
)

type DocumentHandler struct {
	DB     *sql.DB
	Store  services.ObjectStore
	Shares *services.ShareService
	Audit  *services.AuditService
	WS     *WSHandler
}

func NewDocumentHandler(db *sql.DB, store services.ObjectStore, ws *WSHandler) *DocumentHandler {
	return &DocumentHandler{
		DB:     db,
		Store:  store,
		Shares: services.NewShareService(db),
		Audit:  services.NewAuditService(db),
		WS:     ws,
	}
}

func (h *DocumentHandler) requireStore(c *gin.Context) bool {
	if h.Store == nil {
		respondError(c, apperrors.New(apperrors.CodeUnavailable, "document storage is not configured"))
		return false
	}
	return true
}

// ListDocuments returns document metadata for any room member.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	roomID := c.Param("id")
	if err := h.Shares.RequireRoomAccess(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.DB.QueryContext(c.Request.Context(), `
		SELECT id, data_room_id, uploaded_by, filename, content_type, size_bytes, sha256_hash, uploaded_at
		FROM documents
		WHERE data_room_id = $1
		ORDER BY uploaded_at DESC
	`, roomID)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "list documents", err))
		return
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		var hash sql.NullString
		if err := rows.Scan(&doc.ID, &doc.DataRoomID, &doc.UploadedBy, &doc.Filename,
			&doc.ContentType, &doc.SizeBytes, &hash, &doc.UploadedAt); err != nil {
			respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "scan document", err))
			return
		}
		if hash.Valid {
			doc.SHA256Hash = &hash.String
		}
		docs = append(docs, doc)
	}
	c.JSON(http.StatusOK, docs)
}

// PresignUpload hands the room owner a time-limited PUT URL. No bytes flow
// through this API.
func (h *DocumentHandler) PresignUpload(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	roomID := c.Param("id")
	if err := h.Shares.RequireRoomOwner(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	storageKey := fmt.Sprintf("rooms/%s/documents/%s", roomID, uuid.New().String())
	uploadURL, err := h.Store.PresignUpload(c.Request.Context(), storageKey, uploadURLTTL)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "presign upload", err))
		return
	}

	c.JSON(http.StatusOK, models.PresignResponse{
		UploadURL:  uploadURL,
		StorageKey: storageKey,
		ExpiresIn:  int(uploadURLTTL.Seconds()),
	})
}

// ConfirmUpload registers the document record after the client finished the
// presigned upload. The object is HEADed to verify presence and size.
func (h *DocumentHandler) ConfirmUpload(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	roomID := c.Param("id")
	if err := h.Shares.RequireRoomOwner(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	var req models.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !strings.HasPrefix(req.StorageKey, fmt.Sprintf("rooms/%s/documents/", roomID)) {
		respondError(c, apperrors.New(apperrors.CodeValidation, "storage_key does not belong to room"))
		return
	}

	size, err := h.Store.HeadSize(c.Request.Context(), req.StorageKey)
	if err != nil {
		respondError(c, apperrors.New(apperrors.CodeValidation, "uploaded object not found in storage"))
		return
	}
	if size != req.SizeBytes {
		respondError(c, apperrors.New(apperrors.CodeValidation, "size mismatch between client and storage"))
		return
	}

	doc := models.Document{
		ID:          uuid.New().String(),
		DataRoomID:  roomID,
		UploadedBy:  middleware.GetUserID(c),
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		SHA256Hash:  req.SHA256Hash,
		StorageKey:  req.StorageKey,
		UploadedAt:  time.Now().UTC(),
	}

	_, err = h.DB.ExecContext(c.Request.Context(), `
		INSERT INTO documents (id, data_room_id, uploaded_by, filename, content_type,
		                       size_bytes, sha256_hash, storage_key, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, doc.ID, doc.DataRoomID, doc.UploadedBy, doc.Filename, doc.ContentType,
		doc.SizeBytes, doc.SHA256Hash, doc.StorageKey, doc.UploadedAt)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "persist document", err))
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// Download records an audit row and returns a short-lived GET URL. The audit
// write happens before the URL is issued so a crash never drops the row.
func (h *DocumentHandler) Download(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	roomID := c.Param("id")
	docID := c.Param("doc_id")
	userID := middleware.GetUserID(c)

	if err := h.Shares.RequireRoomAccess(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}

	var filename, storageKey string
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT filename, storage_key FROM documents
		WHERE id = $1 AND data_room_id = $2
	`, docID, roomID).Scan(&filename, &storageKey)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, apperrors.New(apperrors.CodeNotFound, "document not found"))
		return
	}
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "look up document", err))
		return
	}

	if _, err := h.Audit.RecordDownload(c.Request.Context(), roomID, docID, userID, filename); err != nil {
		respondError(c, err)
		return
	}

	downloadURL, err := h.Store.PresignDownload(c.Request.Context(), storageKey, downloadURLTTL)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "presign download", err))
		return
	}

	h.WS.BroadcastRoomEvent(roomID, "download", gin.H{
		"user_id":  userID,
		"filename": filename,
	})

	c.JSON(http.StatusOK, models.DownloadResponse{
		DownloadURL: downloadURL,
		ExpiresIn:   int(downloadURLTTL.Seconds()),
	})
}

// DeleteDocument removes the record and best-effort deletes the object.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	roomID := c.Param("id")
	docID := c.Param("doc_id")

	if err := h.Shares.RequireRoomOwner(c.Request.Context(), roomID, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	var storageKey string
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT storage_key FROM documents WHERE id = $1 AND data_room_id = $2
	`, docID, roomID).Scan(&storageKey)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, apperrors.New(apperrors.CodeNotFound, "document not found"))
		return
	}
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "look up document", err))
		return
	}

	if h.Store != nil {
		if err := h.Store.Delete(c.Request.Context(), storageKey); err != nil {
			utils.Warnf("failed to delete object %s: %v", storageKey, err)
		}
	}

	if _, err := h.DB.ExecContext(c.Request.Context(),
		`DELETE FROM documents WHERE id = $1`, docID); err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeUnavailable, "delete document", err))
		return
	}

	c.Status(http.StatusNoContent)
}
