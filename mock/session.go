package mock

import (
	"context"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ railinspect.SessionService = (*SessionService)(nil)

// SessionService is a mock implementation of railinspect.SessionService.
type SessionService struct {
	CreateSessionFn          func(ctx context.Context, profileID uuid.UUID, duration time.Duration) (*railinspect.Session, error)
	FindSessionByTokenFn     func(ctx context.Context, token string) (*railinspect.Session, error)
	DeleteSessionFn          func(ctx context.Context, token string) error
	CleanupExpiredSessionsFn func(ctx context.Context) (int, error)

	// Counter for generating session IDs
	nextID int
}

func (s *SessionService) CreateSession(ctx context.Context, profileID uuid.UUID, duration time.Duration) (*railinspect.Session, error) {
	if s.CreateSessionFn != nil {
		return s.CreateSessionFn(ctx, profileID, duration)
	}
	s.nextID++
	return &railinspect.Session{
		ID:        s.nextID,
		ProfileID: profileID,
		Token:     "mock-session-token-" + uuid.New().String(),
		ExpiresAt: time.Now().Add(duration),
		CreatedAt: time.Now(),
	}, nil
}

func (s *SessionService) FindSessionByToken(ctx context.Context, token string) (*railinspect.Session, error) {
	if s.FindSessionByTokenFn != nil {
		return s.FindSessionByTokenFn(ctx, token)
	}
	return nil, railinspect.Unauthorized("Session not found or expired")
}

func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if s.DeleteSessionFn != nil {
		return s.DeleteSessionFn(ctx, token)
	}
	return nil
}

func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	if s.CleanupExpiredSessionsFn != nil {
		return s.CleanupExpiredSessionsFn(ctx)
	}
	return 0, nil
}
