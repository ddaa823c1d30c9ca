package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ railinspect.AuditService = (*AuditService)(nil)

// AuditService is an in-memory railinspect.AuditService. RecordAuditFn, when
// set, replaces the default append.
type AuditService struct {
	RecordAuditFn func(ctx context.Context, entry *railinspect.AuditEntry) error

	mu      sync.Mutex
	entries []*railinspect.AuditEntry
}

func (s *AuditService) RecordAudit(ctx context.Context, entry *railinspect.AuditEntry) error {
	if s.RecordAuditFn != nil {
		return s.RecordAuditFn(ctx, entry)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditService) FindAuditEntries(ctx context.Context, filter railinspect.AuditFilter) ([]*railinspect.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*railinspect.AuditEntry
	for _, e := range s.entries {
		if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != nil && e.ResourceID != *filter.ResourceID {
			continue
		}
		if filter.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filter.ActorID) {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *AuditService) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

// Actions returns the recorded actions in insertion order.
func (s *AuditService) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Action
	}
	return out
}
