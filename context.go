package railinspect

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	profileContextKey contextKey = iota + 1
	sessionContextKey
	requestIDContextKey
)

// Profile context helpers

// NewContextWithProfile attaches the acting profile to the context.
func NewContextWithProfile(ctx context.Context, profile *Profile) context.Context {
	return context.WithValue(ctx, profileContextKey, profile)
}

// ProfileFromContext returns the authenticated profile from the context, or nil.
func ProfileFromContext(ctx context.Context) *Profile {
	profile, _ := ctx.Value(profileContextKey).(*Profile)
	return profile
}

// ProfileIDFromContext returns the authenticated profile's ID, or a zero UUID.
func ProfileIDFromContext(ctx context.Context) uuid.UUID {
	if profile := ProfileFromContext(ctx); profile != nil {
		return profile.ID
	}
	return uuid.UUID{}
}

// Session context helpers

// NewContextWithSession attaches a session to the context.
func NewContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the current session from the context, or nil.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

// Request ID context helpers

// NewContextWithRequestID attaches a request ID to the context.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext returns the request ID from the context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// IsAuthenticated returns true if a profile is present in the context.
func IsAuthenticated(ctx context.Context) bool {
	return ProfileFromContext(ctx) != nil
}
