package services

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var testDBSeq atomic.Int64

// testSchema mirrors the production migrations with SQLite type names.
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

// newTestDB opens a fresh in-memory database. A single pooled connection keeps
// statements serialized, which is what the shared-cache memory DSN needs.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	t.Setenv("INVITE_TOKEN_SECRET", "test-invite-secret")

	dsn := fmt.Sprintf("file:svcdb%d?mode=memory&cache=shared&_pragma=foreign_keys(1)",
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
	return db
}

func seedUser(t *testing.T, db *sql.DB, email, role string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO users (id, email, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, email, "not-a-real-hash", "Test User", role, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return id
}

func seedRoom(t *testing.T, db *sql.DB, ownerID string) string {
	t.Helper()
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO data_rooms (id, owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, ownerID, "Deal Room", "", now, now)
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO shares (id, data_room_id, user_id, invite_id, role, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, NULL, 'owner', NULL, FALSE, $4)
	`, uuid.New().String(), id, ownerID, now)
	if err != nil {
		t.Fatalf("seed owner share: %v", err)
	}
	return id
}

func seedDocument(t *testing.T, db *sql.DB, roomID, uploaderID, filename string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO documents (id, data_room_id, uploaded_by, filename, content_type,
		                       size_bytes, sha256_hash, storage_key, uploaded_at)
		VALUES ($1, $2, $3, $4, 'application/pdf', 1024, NULL, $5, $6)
	`, id, roomID, uploaderID, filename, "rooms/"+roomID+"/documents/"+id, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed document %s: %v", filename, err)
	}
	return id
}

func inviteUsesCount(t *testing.T, db *sql.DB, inviteID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT uses_count FROM invites WHERE id = $1`, inviteID).Scan(&n); err != nil {
		t.Fatalf("read uses_count: %v", err)
	}
	return n
}
