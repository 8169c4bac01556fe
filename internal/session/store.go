package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrRefreshReused means the session's refresh hash changed between
	// read and rotate: another request already spent the refresh token.
	ErrRefreshReused = errors.New("refresh token already rotated")
)

// Session is a live login. It stores identity pointers plus the upstream
// provider token needed to revoke the provider login on logout.
type Session struct {
	SessionID         string    `json:"session_id"`
	AccountID         string    `json:"account_id"` // references accounts.id
	Provider          string    `json:"provider"`
	ProviderToken     string    `json:"provider_token,omitempty"`
	RefreshHash       string    `json:"refresh_hash"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"` // sliding refresh expiry
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
}

// Store defines how sessions are stored and retrieved.
// Get returns ErrNotFound for unknown or expired sessions.
//
// Rotate replaces a session only while its stored RefreshHash still equals
// prevHash, as one atomic step. It returns ErrNotFound when the session is
// gone (or s is already expired, in which case it is deleted) and
// ErrRefreshReused when the hash no longer matches.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Rotate(ctx context.Context, s Session, prevHash string) error
	Delete(ctx context.Context, sessionID string) error
}
