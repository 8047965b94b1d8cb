package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/clearroom/dataroom-api/handlers"
	"github.com/clearroom/dataroom-api/middleware"
	"github.com/clearroom/dataroom-api/models"
	"github.com/clearroom/dataroom-api/routes"
	"github.com/clearroom/dataroom-api/services"
)

var testDBSeq atomic.Int64

var testSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		full_name TEXT,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE refresh_tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT UNIQUE NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE data_rooms (
		id TEXT PRIMARY KEY,
		owner_id TEXT REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE documents (
		id TEXT PRIMARY KEY,
		data_room_id TEXT REFERENCES data_rooms(id) ON DELETE CASCADE,
		uploaded_by TEXT REFERENCES users(id),
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		sha256_hash TEXT,
		storage_key TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE invites (
		id TEXT PRIMARY KEY,
		data_room_id TEXT REFERENCES data_rooms(id) ON DELETE CASCADE,
		created_by TEXT REFERENCES users(id),
		allowed_email TEXT,
		token_hash TEXT UNIQUE NOT NULL,
		max_uses INTEGER,
		single_use BOOLEAN NOT NULL DEFAULT FALSE,
		uses_count INTEGER NOT NULL DEFAULT 0,
		expires_at TIMESTAMP,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE shares (
		id TEXT PRIMARY KEY,
		data_room_id TEXT REFERENCES data_rooms(id) ON DELETE CASCADE,
		user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
		invite_id TEXT REFERENCES invites(id) ON DELETE SET NULL,
		role TEXT NOT NULL,
		expires_at TIMESTAMP,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (data_room_id, user_id)
	)`,
	`CREATE TABLE downloads (
		id TEXT PRIMARY KEY,
		data_room_id TEXT REFERENCES data_rooms(id) ON DELETE CASCADE,
		document_id TEXT REFERENCES documents(id) ON DELETE CASCADE,
		user_id TEXT REFERENCES users(id),
		filename TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// newTestEnv builds the full routed API over an in-memory database, without an
// object store so document transfer endpoints answer 503.
func newTestEnv(t *testing.T) (*sql.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "handler-test-secret")
	t.Setenv("INVITE_TOKEN_SECRET", "handler-test-invite-secret")

	dsn := fmt.Sprintf("file:hdlrdb%d?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		testDBSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range testSchema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create test schema: %v", err)
		}
	}
	t.Cleanup(func() { db.Close() })

	ws := handlers.NewWSHandler(services.NewShareService(db))

	router := gin.New()
	v1 := router.Group("/api/v1")
	routes.SetupAuthRoutes(v1, db)
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	routes.SetupRoomRoutes(protected, db)
	routes.SetupInviteRoutes(protected, db, ws)
	routes.SetupDocumentRoutes(protected, db, nil, ws)

	return db, router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	decodeJSON(t, w, &body)
	return body.ErrorCode
}

// signupUser registers a user through the API and returns the auth response.
func signupUser(t *testing.T, router *gin.Engine, email, role string) models.AuthResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"email":     email,
		"password":  "correct-horse-battery",
		"full_name": "Test User",
		"role":      role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d, body %s", email, w.Code, w.Body.String())
	}
	var resp models.AuthResponse
	decodeJSON(t, w, &resp)
	return resp
}

func createRoom(t *testing.T, router *gin.Engine, token, name string) models.DataRoom {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/rooms", token, gin.H{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create room: status %d, body %s", w.Code, w.Body.String())
	}
	var room models.DataRoom
	decodeJSON(t, w, &room)
	return room
}
