// Package session caches session lookups in front of a
// railinspect.SessionService so authenticated requests do not hit the
// database each time.
package session

import (
	"context"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how long a revoked or changed session can still be
// served from cache.
const DefaultCacheTTL = time.Minute

// Compile-time interface check
var _ railinspect.SessionService = (*CachedSessionService)(nil)

// CachedSessionService wraps a SessionService with an in-process cache of
// FindSessionByToken results. Entries never outlive the session itself.
type CachedSessionService struct {
	railinspect.SessionService

	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedSessionService wraps next. A ttl <= 0 uses DefaultCacheTTL.
func NewCachedSessionService(next railinspect.SessionService, ttl time.Duration) *CachedSessionService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSessionService{
		SessionService: next,
		cache:          cache.New(ttl, 2*ttl),
		ttl:            ttl,
	}
}

// FindSessionByToken returns a cached session when present, otherwise
// loads it from the wrapped service. Failed lookups are not cached.
func (s *CachedSessionService) FindSessionByToken(ctx context.Context, token string) (*railinspect.Session, error) {
	if v, ok := s.cache.Get(token); ok {
		session := v.(*railinspect.Session)
		if !session.IsExpired() {
			return copySession(session), nil
		}
		s.cache.Delete(token)
		return nil, railinspect.Unauthorized("Session not found or expired")
	}

	session, err := s.SessionService.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := s.ttl
	if remaining := time.Until(session.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl > 0 {
		s.cache.Set(token, copySession(session), ttl)
	}
	return session, nil
}

// DeleteSession removes the session and its cache entry.
func (s *CachedSessionService) DeleteSession(ctx context.Context, token string) error {
	s.cache.Delete(token)
	return s.SessionService.DeleteSession(ctx, token)
}

// InvalidateProfile drops every cached session of a profile, for example
// after its role or approval status changed.
func (s *CachedSessionService) InvalidateProfile(profileID uuid.UUID) {
	for token, item := range s.cache.Items() {
		if session, ok := item.Object.(*railinspect.Session); ok && session.ProfileID == profileID {
			s.cache.Delete(token)
		}
	}
}

// Len returns the number of cached sessions.
func (s *CachedSessionService) Len() int {
	return s.cache.ItemCount()
}

func copySession(s *railinspect.Session) *railinspect.Session {
	c := *s
	if s.Profile != nil {
		p := *s.Profile
		c.Profile = &p
	}
	return &c
}
