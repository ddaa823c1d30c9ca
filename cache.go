package railinspect

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChecklistCache holds loaded checklist trees. The reference tree is
// stored under uuid.Nil; per-report trees carry their results.
type ChecklistCache interface {
	// Get returns a cached tree, or nil when absent or expired.
	Get(ctx context.Context, reportID uuid.UUID) (*Checklist, error)

	// Set stores a tree for the configured TTL.
	Set(ctx context.Context, reportID uuid.UUID, checklist *Checklist) error

	// Invalidate drops the tree of one report.
	Invalidate(ctx context.Context, reportID uuid.UUID) error

	// InvalidateAll drops every cached tree.
	InvalidateAll(ctx context.Context) error
}

// CacheConfig holds configuration for the checklist cache.
type CacheConfig struct {
	// Provider is the cache provider ("memory" or "redis").
	Provider string

	// TTL is how long a loaded tree is reused.
	TTL time.Duration

	// RedisURL is the connection URL for the redis provider.
	RedisURL string
}
