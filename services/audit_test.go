package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/models"
)

func TestRecordDownload(t *testing.T) {
	db := newTestDB(t)
	ownerID := seedUser(t, db, "owner@example.com", models.RoleOwner)
	roomID := seedRoom(t, db, ownerID)
	docID := seedDocument(t, db, roomID, ownerID, "pitch.pdf")
	svc := NewAuditService(db)

	d, err := svc.RecordDownload(context.Background(), roomID, docID, ownerID, "pitch.pdf")
	if err != nil {
		t.Fatalf("record download: %v", err)
	}
	if d.ID == "" || d.Filename != "pitch.pdf" {
		t.Fatalf("unexpected download row: %+v", d)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM downloads WHERE data_room_id = $1`, roomID).Scan(&n); err != nil {
		t.Fatalf("count downloads: %v", err)
	}
	if n != 1 {
		t.Fatalf("downloads = %d, want 1", n)
	}
}

func TestListDownloadsAscending(t *testing.T) {
	db := newTestDB(t)
	ownerID := seedUser(t, db, "owner@example.com", models.RoleOwner)
	guestID := seedUser(t, db, "guest@example.com", models.RoleGuest)
	roomID := seedRoom(t, db, ownerID)
	docID := seedDocument(t, db, roomID, ownerID, "terms.pdf")
	svc := NewAuditService(db)

	base := time.Now().UTC().Add(-time.Hour)
	// Inserted newest-first to prove ordering comes from the query, not
	// insertion order.
	rows := []struct {
		userID string
		offset time.Duration
	}{
		{guestID, 30 * time.Minute},
		{ownerID, 10 * time.Minute},
		{guestID, 20 * time.Minute},
	}
	for _, r := range rows {
		_, err := db.Exec(`
			INSERT INTO downloads (id, data_room_id, document_id, user_id, filename, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), roomID, docID, r.userID, "terms.pdf", base.Add(r.offset))
		if err != nil {
			t.Fatalf("seed download: %v", err)
		}
	}

	downloads, err := svc.ListForRoom(context.Background(), roomID, ownerID)
	if err != nil {
		t.Fatalf("list downloads: %v", err)
	}
	if len(downloads) != 3 {
		t.Fatalf("len(downloads) = %d, want 3", len(downloads))
	}
	for i := 1; i < len(downloads); i++ {
		if downloads[i].CreatedAt.Before(downloads[i-1].CreatedAt) {
			t.Fatalf("downloads not in ascending order: %v before %v",
				downloads[i].CreatedAt, downloads[i-1].CreatedAt)
		}
	}
	if downloads[0].UserEmail != "owner@example.com" {
		t.Fatalf("oldest download by %s, want owner@example.com", downloads[0].UserEmail)
	}
}

func TestListDownloadsOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	ownerID := seedUser(t, db, "owner@example.com", models.RoleOwner)
	guestID := seedUser(t, db, "guest@example.com", models.RoleGuest)
	roomID := seedRoom(t, db, ownerID)
	seedGuestShare(t, db, roomID, guestID, nil)
	svc := NewAuditService(db)

	_, err := svc.ListForRoom(context.Background(), roomID, guestID)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for guest, got %v", err)
	}
}
