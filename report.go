package railinspect

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TripReport is one inspection of a train by one inspector.
type TripReport struct {
	ID          uuid.UUID    `json:"id"`
	InspectorID uuid.UUID    `json:"inspectorId"`
	TrainNumber string       `json:"trainNumber"`
	TrainName   string       `json:"trainName,omitempty"`
	Location    string       `json:"location"`
	LineNumber  string       `json:"lineNumber,omitempty"`
	CoachType   string       `json:"coachType,omitempty"`
	RedOnTime   *time.Time   `json:"redOnTime,omitempty"`
	RedOffTime  *time.Time   `json:"redOffTime,omitempty"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	SubmittedAt *time.Time   `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time   `json:"approvedAt,omitempty"`
	RejectedAt  *time.Time   `json:"rejectedAt,omitempty"`
	ReviewerID  *uuid.UUID   `json:"reviewerId,omitempty"`
	ReviewNotes string       `json:"reviewNotes,omitempty"`

	// Joined fields (populated by some queries)
	Inspector *Profile `json:"inspector,omitempty"`
}

// ReportStatus is the lifecycle state of a trip report.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusApproved  ReportStatus = "approved"
	ReportStatusRejected  ReportStatus = "rejected"
)

// IsValid returns true if the status is recognized.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusDraft, ReportStatusSubmitted, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

// IsEditable returns true if results and fields may still change.
func (s ReportStatus) IsEditable() bool {
	return s == ReportStatusDraft
}

// CanTransitionTo returns true if this status can transition to the target status.
func (s ReportStatus) CanTransitionTo(target ReportStatus) bool {
	switch s {
	case ReportStatusDraft:
		return target == ReportStatusSubmitted
	case ReportStatusSubmitted:
		return target == ReportStatusApproved || target == ReportStatusRejected
	default:
		return false // approved and rejected are terminal
	}
}

// ReportFields are the form fields an inspector fills in on a report.
type ReportFields struct {
	TrainNumber string     `json:"trainNumber"`
	TrainName   string     `json:"trainName"`
	Location    string     `json:"location"`
	LineNumber  string     `json:"lineNumber"`
	CoachType   string     `json:"coachType"`
	RedOnTime   *time.Time `json:"redOnTime"`
	RedOffTime  *time.Time `json:"redOffTime"`
}

// MissingRequired returns field-keyed messages for empty required fields.
func (f ReportFields) MissingRequired() map[string]string {
	missing := map[string]string{}
	if strings.TrimSpace(f.TrainNumber) == "" {
		missing["trainNumber"] = "Train number is required"
	}
	if strings.TrimSpace(f.Location) == "" {
		missing["location"] = "Location is required"
	}
	if len(missing) == 0 {
		return nil
	}
	return missing
}

// Fields returns the report's current form fields.
func (r *TripReport) Fields() ReportFields {
	return ReportFields{
		TrainNumber: r.TrainNumber,
		TrainName:   r.TrainName,
		Location:    r.Location,
		LineNumber:  r.LineNumber,
		CoachType:   r.CoachType,
		RedOnTime:   r.RedOnTime,
		RedOffTime:  r.RedOffTime,
	}
}

// TripReportService defines operations for managing trip reports.
type TripReportService interface {
	// FindReportByID retrieves a report by its ID.
	// Returns ENOTFOUND if the report does not exist.
	FindReportByID(ctx context.Context, id uuid.UUID) (*TripReport, error)

	// FindReports retrieves reports matching the filter and the total count.
	FindReports(ctx context.Context, filter ReportFilter) ([]*TripReport, int, error)

	// FindDraftForDay returns the inspector's draft created within
	// [dayStart, dayStart+24h), or ENOTFOUND.
	FindDraftForDay(ctx context.Context, inspectorID uuid.UUID, dayStart time.Time) (*TripReport, error)

	// CreateReport creates a new draft report.
	CreateReport(ctx context.Context, report *TripReport) error

	// UpdateReport updates the form fields of a draft report.
	// Returns EINVALID if the report is no longer a draft.
	UpdateReport(ctx context.Context, id uuid.UUID, upd ReportUpdate) (*TripReport, error)

	// SubmitReport sets status submitted, submitted_at and the form fields
	// in a single update. Returns EINVALID if the report is not a draft.
	SubmitReport(ctx context.Context, id uuid.UUID, fields ReportFields, at time.Time) (*TripReport, error)

	// ReviewReport moves a submitted report to approved or rejected.
	// Returns EINVALID if the transition is not allowed.
	ReviewReport(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, status ReportStatus, notes string, at time.Time) (*TripReport, error)

	// DeleteReport deletes a draft report and all of its results.
	// Returns EINVALID if the report is not a draft.
	DeleteReport(ctx context.Context, id uuid.UUID) error
}

// ReportFilter defines criteria for filtering reports.
type ReportFilter struct {
	InspectorID *uuid.UUID
	Status      *ReportStatus

	// Pagination
	Offset int
	Limit  int
}

// ReportUpdate defines fields that can be updated on a draft.
// Pointer fields: nil = don't update, non-nil = update to this value.
type ReportUpdate struct {
	TrainNumber *string
	TrainName   *string
	Location    *string
	LineNumber  *string
	CoachType   *string
	RedOnTime   *time.Time
	RedOffTime  *time.Time
}
