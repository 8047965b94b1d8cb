package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
)

// inviteTokenBytes gives 256 bits of entropy; the encoded token is 43 chars.
const inviteTokenBytes = 32

// GenerateInviteToken returns a new high-entropy URL-safe invite token.
// The raw value must be handed to the caller once and then discarded.
func GenerateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashInviteToken returns the hex HMAC-SHA256 digest of a raw invite token,
// keyed with INVITE_TOKEN_SECRET. Only this digest is ever persisted.
func HashInviteToken(rawToken string) string {
	secret := os.Getenv("INVITE_TOKEN_SECRET")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(rawToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// TokenHashEqual compares two token digests in constant time.
func TokenHashEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// HashRefreshToken returns the hex SHA-256 digest of an opaque refresh token.
func HashRefreshToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// GenerateRefreshToken returns a new opaque refresh token.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
