package railinspect

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audited actions.
const (
	AuditReportCreated   = "report.created"
	AuditReportSubmitted = "report.submitted"
	AuditReportReviewed  = "report.reviewed"
	AuditReportDeleted   = "report.deleted"
	AuditProfileReviewed = "profile.reviewed"
)

// Audited resource types.
const (
	AuditResourceReport  = "trip_report"
	AuditResourceProfile = "profile"
)

// AuditEntry is one row of the append-only audit trail.
type AuditEntry struct {
	ID           uuid.UUID      `json:"id"`
	ActorID      *uuid.UUID     `json:"actorId,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   uuid.UUID      `json:"resourceId"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AuditFilter selects audit entries. Nil fields are not filtered on.
type AuditFilter struct {
	ResourceType string
	ResourceID   *uuid.UUID
	ActorID      *uuid.UUID
	Since        *time.Time

	Offset int
	Limit  int
}

// AuditService stores the audit trail.
type AuditService interface {
	// RecordAudit appends an entry. ID and CreatedAt are assigned when zero.
	RecordAudit(ctx context.Context, entry *AuditEntry) error

	// FindAuditEntries returns matching entries, newest first.
	FindAuditEntries(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)

	// DeleteAuditEntriesBefore removes entries older than cutoff and returns
	// how many were removed.
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
