package inspection

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
)

// DraftPolicy controls draft creation.
type DraftPolicy struct {
	// OneDraftPerDay returns an inspector's existing draft for the calendar
	// day instead of creating another one.
	OneDraftPerDay bool

	// Location defines calendar days. Defaults to UTC.
	Location *time.Location
}

// Drafts creates draft reports for the acting inspector.
type Drafts struct {
	reports railinspect.TripReportService
	policy  DraftPolicy
	logger  *slog.Logger

	now func() time.Time
}

// NewDrafts creates a draft factory.
func NewDrafts(reports railinspect.TripReportService, policy DraftPolicy, logger *slog.Logger) *Drafts {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Drafts{
		reports: reports,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// Create starts a draft for the profile in ctx. The boolean reports whether
// a new draft was created; it is false when the day's draft is returned.
func (d *Drafts) Create(ctx context.Context, fields railinspect.ReportFields) (*railinspect.TripReport, bool, error) {
	inspector := railinspect.ProfileFromContext(ctx)
	if inspector == nil {
		return nil, false, railinspect.Unauthorized("Authentication required")
	}

	if d.policy.OneDraftPerDay {
		existing, err := d.reports.FindDraftForDay(ctx, inspector.ID, d.dayStart())
		switch {
		case err == nil:
			return existing, false, nil
		case !railinspect.IsErrorCode(err, railinspect.ENOTFOUND):
			return nil, false, err
		}
	}

	report := &railinspect.TripReport{
		InspectorID: inspector.ID,
		TrainNumber: fields.TrainNumber,
		TrainName:   fields.TrainName,
		Location:    fields.Location,
		LineNumber:  fields.LineNumber,
		CoachType:   fields.CoachType,
		RedOnTime:   fields.RedOnTime,
		RedOffTime:  fields.RedOffTime,
		Status:      railinspect.ReportStatusDraft,
	}
	if err := d.reports.CreateReport(ctx, report); err != nil {
		return nil, false, err
	}

	d.logger.InfoContext(ctx, "draft report created",
		slog.String("report_id", report.ID.String()),
		slog.String("inspector_id", inspector.ID.String()))
	return report, true, nil
}

// dayStart returns midnight of the current day in the policy's location.
func (d *Drafts) dayStart() time.Time {
	now := d.now().In(d.policy.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.policy.Location)
}
