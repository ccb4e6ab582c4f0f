package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Session represents an authenticated user session
type Session struct {
	TokenID   uint64    `json:"token_id"`
	Username  string    `json:"username"`
	ClientIP  string    `json:"client_ip"`
	ClientID  string    `json:"client_id"` // e.g., "loginguard-cli"
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a new session issued at now with a random token ID
func NewSession(username, clientIP, clientID string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		TokenID:   generateTokenID(),
		Username:  username,
		ClientIP:  clientIP,
		ClientID:  clientID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired checks if the session has expired as of now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// generateTokenID generates a cryptographically secure random 64-bit token ID.
// Falls back to the wall clock if crypto/rand fails, which it does not on a
// sane Linux system.
func generateTokenID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
