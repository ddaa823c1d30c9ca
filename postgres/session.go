package postgres

import (
	"context"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/auth"
	"github.com/google/uuid"
)

// Compile-time check that SessionService implements railinspect.SessionService.
var _ railinspect.SessionService = (*SessionService)(nil)

// SessionService implements railinspect.SessionService using PostgreSQL.
type SessionService struct {
	db *DB
}

func (s *SessionService) CreateSession(ctx context.Context, profileID uuid.UUID, duration time.Duration) (*railinspect.Session, error) {
	// Generate secure token
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, railinspect.Internal("Failed to generate session token", err)
	}

	session := &railinspect.Session{
		ProfileID: profileID,
		Token:     token,
		ExpiresAt: time.Now().Add(duration),
	}
	err = s.db.pool.QueryRow(ctx, `
		INSERT INTO sessions (profile_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		profileID, token, session.ExpiresAt).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, railinspect.NotFound("Profile not found")
		}
		return nil, wrapError(err, "", "Failed to create session")
	}

	return session, nil
}

func (s *SessionService) FindSessionByToken(ctx context.Context, token string) (*railinspect.Session, error) {
	session := &railinspect.Session{Token: token}
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, profile_id, expires_at, created_at
		FROM sessions
		WHERE token = $1`, token).Scan(&session.ID, &session.ProfileID, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		err = wrapError(err, "Session not found", "Failed to fetch session")
		if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
			return nil, railinspect.Unauthorized("Session not found or expired")
		}
		return nil, err
	}

	if session.IsExpired() {
		return nil, railinspect.Unauthorized("Session expired")
	}

	// Fetch profile data
	profile, err := s.db.ProfileService.FindProfileByID(ctx, session.ProfileID)
	if err != nil {
		if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
			return nil, railinspect.Unauthorized("Session not found or expired")
		}
		return nil, err
	}
	if !profile.IsApproved() {
		return nil, railinspect.Forbidden("Your account is not approved")
	}
	session.Profile = profile

	return session, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return wrapError(err, "", "Failed to delete session")
	}
	return nil
}

func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, wrapError(err, "", "Failed to cleanup expired sessions")
	}
	return int(tag.RowsAffected()), nil
}
