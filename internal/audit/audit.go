// Package audit records who changed what in the append-only audit trail.
package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Logger writes audit entries for HTTP actions. A failed write is logged
// and never fails the request that caused it.
type Logger struct {
	service railinspect.AuditService
	logger  *slog.Logger
}

// NewLogger returns a Logger backed by service.
func NewLogger(service railinspect.AuditService, logger *slog.Logger) *Logger {
	return &Logger{service: service, logger: logger}
}

// Record appends an entry for the acting profile of c. It is a no-op on a
// nil Logger.
func (l *Logger) Record(c echo.Context, action, resourceType string, resourceID uuid.UUID, details map[string]any) {
	if l == nil {
		return
	}
	ctx := c.Request().Context()

	entry := &railinspect.AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    railinspect.RequestIDFromContext(ctx),
	}
	if id := railinspect.ProfileIDFromContext(ctx); id != uuid.Nil {
		entry.ActorID = &id
	}

	// The entry is written even if the client has gone away.
	if err := l.service.RecordAudit(context.WithoutCancel(ctx), entry); err != nil {
		l.logger.Error("failed to record audit entry",
			slog.String("error", err.Error()),
			slog.String("action", action),
			slog.String("resource_type", resourceType),
			slog.String("resource_id", resourceID.String()))
	}
}

// Entries returns the trail for one resource, newest first.
func (l *Logger) Entries(ctx context.Context, resourceType string, resourceID uuid.UUID, limit int) ([]*railinspect.AuditEntry, error) {
	return l.service.FindAuditEntries(ctx, railinspect.AuditFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
}

// Prune deletes entries older than retention.
func (l *Logger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	n, err := l.service.DeleteAuditEntriesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	l.logger.Info("pruned audit log",
		slog.Time("cutoff", cutoff),
		slog.Int64("rows_deleted", n))
	return n, nil
}

var csvHeader = []string{"timestamp", "actor_id", "action", "resource_type", "resource_id", "ip_address", "request_id", "details"}

// WriteCSV writes entries as CSV with a header row.
func WriteCSV(w io.Writer, entries []*railinspect.AuditEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		actor := ""
		if e.ActorID != nil {
			actor = e.ActorID.String()
		}
		details := ""
		if len(e.Details) > 0 {
			b, err := json.Marshal(e.Details)
			if err != nil {
				return err
			}
			details = string(b)
		}
		if err := cw.Write([]string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			actor,
			e.Action,
			e.ResourceType,
			e.ResourceID.String(),
			e.IPAddress,
			e.RequestID,
			details,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
