package railinspect

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session represents an active sign-in.
type Session struct {
	ID        int       `json:"id"`
	ProfileID uuid.UUID `json:"profileId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`

	// Joined fields (populated by some queries)
	Profile *Profile `json:"profile,omitempty"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionService defines operations for managing sessions.
type SessionService interface {
	// CreateSession creates a new session for a profile with a generated token.
	CreateSession(ctx context.Context, profileID uuid.UUID, duration time.Duration) (*Session, error)

	// FindSessionByToken retrieves a live session with its profile attached.
	// Returns EUNAUTHORIZED if the session does not exist or has expired.
	FindSessionByToken(ctx context.Context, token string) (*Session, error)

	// DeleteSession deletes a session (logout).
	DeleteSession(ctx context.Context, token string) error

	// CleanupExpiredSessions removes expired sessions and returns how many.
	CleanupExpiredSessions(ctx context.Context) (int, error)
}
