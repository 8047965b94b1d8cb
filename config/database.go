package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name VARCHAR(255),
			role VARCHAR(10) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id UUID PRIMARY KEY,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			token_hash VARCHAR(64) UNIQUE NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS data_rooms (
			id UUID PRIMARY KEY,
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			data_room_id UUID REFERENCES data_rooms(id) ON DELETE CASCADE,
			uploaded_by UUID REFERENCES users(id),
			filename VARCHAR(255) NOT NULL,
			content_type VARCHAR(100) NOT NULL,
			size_bytes BIGINT NOT NULL,
			sha256_hash VARCHAR(64),
			storage_key TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL
		)`,

		// Invites are permanent audit evidence: rows are only ever mutated by
		// the uses_count increment and the one-way revoked flip, never deleted.
		`CREATE TABLE IF NOT EXISTS invites (
			id UUID PRIMARY KEY,
			data_room_id UUID REFERENCES data_rooms(id) ON DELETE CASCADE,
			created_by UUID REFERENCES users(id),
			allowed_email VARCHAR(255),
			token_hash VARCHAR(64) UNIQUE NOT NULL,
			max_uses INTEGER,
			single_use BOOLEAN NOT NULL DEFAULT FALSE,
			uses_count INTEGER NOT NULL DEFAULT 0,
			expires_at TIMESTAMPTZ,
			revoked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS shares (
			id UUID PRIMARY KEY,
			data_room_id UUID REFERENCES data_rooms(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			invite_id UUID REFERENCES invites(id) ON DELETE SET NULL,
			role VARCHAR(10) NOT NULL,
			expires_at TIMESTAMPTZ,
			revoked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (data_room_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS downloads (
			id UUID PRIMARY KEY,
			data_room_id UUID REFERENCES data_rooms(id) ON DELETE CASCADE,
			document_id UUID REFERENCES documents(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id),
			filename VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_invites_token_hash ON invites(token_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_data_room_id ON invites(data_room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_data_room_id ON shares(data_room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_user_id ON shares(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_data_room_id ON documents(data_room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_data_room_id ON downloads(data_room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token_hash ON refresh_tokens(token_hash)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
