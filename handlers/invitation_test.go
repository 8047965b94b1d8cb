package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/clearroom/dataroom-api/models"
)

func TestInviteLifecycle(t *testing.T) {
	_, router := newTestEnv(t)

	owner := signupUser(t, router, "owner@example.com", "owner")
	guest := signupUser(t, router, "guest@example.com", "guest")
	room := createRoom(t, router, owner.AccessToken, "Series B")

	w := doJSON(t, router, http.MethodPost, "/api/v1/invites", owner.AccessToken, map[string]any{
		"data_room_id": room.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create invite: status %d, body %s", w.Code, w.Body.String())
	}
	var created models.CreateInviteResponse
	decodeJSON(t, w, &created)
	if created.RawToken == "" {
		t.Fatal("create invite returned no raw token")
	}
	if !strings.HasPrefix(created.InviteLinkPath, "/invites/accept?token=") {
		t.Fatalf("unexpected invite link path %q", created.InviteLinkPath)
	}

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invites/accept?token="+created.RawToken, guest.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept invite: status %d, body %s", w.Code, w.Body.String())
	}
	var share models.Share
	decodeJSON(t, w, &share)
	if share.DataRoomID != room.ID || share.UserID != guest.User.ID {
		t.Fatalf("unexpected share %+v", share)
	}
	if share.Role != models.RoleGuest {
		t.Fatalf("share role = %q, want guest", share.Role)
	}

	// The room now shows up for the guest.
	w = doJSON(t, router, http.MethodGet, "/api/v1/rooms", guest.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list rooms: status %d", w.Code)
	}
	var rooms []models.DataRoom
	decodeJSON(t, w, &rooms)
	if len(rooms) != 1 || rooms[0].ID != room.ID {
		t.Fatalf("guest rooms = %+v, want %s", rooms, room.ID)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/invites/room/"+room.ID, owner.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list invites: status %d, body %s", w.Code, w.Body.String())
	}
	var invites []models.Invite
	decodeJSON(t, w, &invites)
	if len(invites) != 1 || invites[0].UsesCount != 1 {
		t.Fatalf("invites = %+v, want one with uses_count 1", invites)
	}

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invites/"+created.InviteID+"/revoke", owner.AccessToken, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke invite: status %d, body %s", w.Code, w.Body.String())
	}

	late := signupUser(t, router, "late@example.com", "guest")
	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invites/accept?token="+created.RawToken, late.AccessToken, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("accept revoked invite: status %d, body %s", w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "INVITE_REVOKED" {
		t.Fatalf("error_code = %q, want INVITE_REVOKED", code)
	}
}

func TestAcceptInviteMissingToken(t *testing.T) {
	_, router := newTestEnv(t)
	guest := signupUser(t, router, "guest@example.com", "guest")

	w := doJSON(t, router, http.MethodPost, "/api/v1/invites/accept", guest.AccessToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "VALIDATION" {
		t.Fatalf("error_code = %q, want VALIDATION", code)
	}
}

func TestAcceptInviteUnknownToken(t *testing.T) {
	_, router := newTestEnv(t)
	guest := signupUser(t, router, "guest@example.com", "guest")

	w := doJSON(t, router, http.MethodPost,
		"/api/v1/invites/accept?token=not-a-real-token", guest.AccessToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body %s", w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "NOT_FOUND" {
		t.Fatalf("error_code = %q, want NOT_FOUND", code)
	}
}

func TestCreateInviteEmailRestrictionOverHTTP(t *testing.T) {
	_, router := newTestEnv(t)
	owner := signupUser(t, router, "owner@example.com", "owner")
	room := createRoom(t, router, owner.AccessToken, "Deal Room")

	w := doJSON(t, router, http.MethodPost, "/api/v1/invites", owner.AccessToken, map[string]any{
		"data_room_id":  room.ID,
		"allowed_email": "Alice@Example.com",
		"single_use":    true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create invite: status %d, body %s", w.Code, w.Body.String())
	}
	var created models.CreateInviteResponse
	decodeJSON(t, w, &created)

	wrong := signupUser(t, router, "bob@example.com", "guest")
	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invites/accept?token="+created.RawToken, wrong.AccessToken, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("mismatched email accept: status %d, body %s", w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != "INVITE_EMAIL_MISMATCH" {
		t.Fatalf("error_code = %q, want INVITE_EMAIL_MISMATCH", code)
	}

	alice := signupUser(t, router, "alice@example.com", "guest")
	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invites/accept?token="+created.RawToken, alice.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("matching email accept: status %d, body %s", w.Code, w.Body.String())
	}
}
