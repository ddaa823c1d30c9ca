package railinspect

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// CheckStatus is the outcome recorded for one activity on one report.
type CheckStatus string

const (
	CheckStatusPending CheckStatus = "pending"
	CheckStatusOK      CheckStatus = "ok"
	CheckStatusNotOK   CheckStatus = "not_ok"
)

// IsValid returns true if the status is recognized.
func (s CheckStatus) IsValid() bool {
	switch s {
	case CheckStatusPending, CheckStatusOK, CheckStatusNotOK:
		return true
	}
	return false
}

// Label returns the human readable form used in documents.
func (s CheckStatus) Label() string {
	switch s {
	case CheckStatusOK:
		return "OK"
	case CheckStatusNotOK:
		return "Not OK"
	default:
		return "Pending"
	}
}

// ActivityResult is the mutable per-report record of one activity.
// At most one exists per (TripReportID, ActivityID).
type ActivityResult struct {
	ID           uuid.UUID   `json:"id"`
	TripReportID uuid.UUID   `json:"tripReportId"`
	ActivityID   string      `json:"activityId"`
	CheckStatus  CheckStatus `json:"checkStatus"`
	Remarks      string      `json:"remarks"`
	InspectorID  uuid.UUID   `json:"inspectorId"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// StatusCounts tallies check statuses.
type StatusCounts struct {
	OK      int `json:"ok"`
	NotOK   int `json:"notOk"`
	Pending int `json:"pending"`
}

// Add counts one status.
func (c *StatusCounts) Add(s CheckStatus) {
	switch s {
	case CheckStatusOK:
		c.OK++
	case CheckStatusNotOK:
		c.NotOK++
	default:
		c.Pending++
	}
}

// Total returns the number of counted activities.
func (c StatusCounts) Total() int {
	return c.OK + c.NotOK + c.Pending
}

// Completed returns the number of activities that are no longer pending.
func (c StatusCounts) Completed() int {
	return c.OK + c.NotOK
}

// Ratio returns completed/total, or 0 when there is nothing to count.
func (c StatusCounts) Ratio() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Completed()) / float64(c.Total())
}

// Percent returns the completion ratio as a rounded whole percentage.
func (c StatusCounts) Percent() int {
	return int(math.Round(c.Ratio() * 100))
}

// ResultService persists activity results.
type ResultService interface {
	// FindResults returns every result row of a report.
	FindResults(ctx context.Context, reportID uuid.UUID) ([]*ActivityResult, error)

	// FindResult returns the result for one activity of a report.
	// Returns ENOTFOUND if no row exists.
	FindResult(ctx context.Context, reportID uuid.UUID, activityID string) (*ActivityResult, error)

	// CreatePendingResult inserts a pending result with empty remarks.
	// Returns false without error when a row for the pair already exists.
	CreatePendingResult(ctx context.Context, reportID uuid.UUID, activityID string, inspectorID uuid.UUID) (bool, error)

	// UpsertCheckStatus writes the status of one activity, keyed on
	// (report, activity). Existing remarks are preserved.
	UpsertCheckStatus(ctx context.Context, reportID uuid.UUID, activityID string, status CheckStatus, inspectorID uuid.UUID) (*ActivityResult, error)

	// UpsertRemarks writes the remarks of one activity, keyed on
	// (report, activity). An existing status is preserved.
	UpsertRemarks(ctx context.Context, reportID uuid.UUID, activityID string, remarks string, inspectorID uuid.UUID) (*ActivityResult, error)
}
