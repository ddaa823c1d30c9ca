package inspection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Default completion thresholds.
const (
	DefaultConfirmThreshold  = 0.5
	DefaultFormMinCompletion = 0.8
)

// Confirmation prompts.
const (
	promptNoneChecked = "No activities have been checked. Submit anyway?"
	promptPartial     = "Only %d%% of activities have been checked. Submit anyway?"
)

// SubmitConfig holds the two independent completion thresholds.
type SubmitConfig struct {
	// ConfirmThreshold is the ratio below which Submit asks for confirmation.
	ConfirmThreshold float64

	// FormMinCompletion is the ratio SubmitForm requires, with no override.
	FormMinCompletion float64
}

// DefaultSubmitConfig returns the default thresholds.
func DefaultSubmitConfig() SubmitConfig {
	return SubmitConfig{
		ConfirmThreshold:  DefaultConfirmThreshold,
		FormMinCompletion: DefaultFormMinCompletion,
	}
}

// SubmitRequest asks for a draft to be submitted.
type SubmitRequest struct {
	ReportID  uuid.UUID                `json:"-"`
	Fields    railinspect.ReportFields `json:"fields"`
	Confirmed bool                     `json:"confirmed"`
}

// SubmitOutcome describes the result of a submission attempt.
type SubmitOutcome struct {
	Submitted         bool                     `json:"submitted"`
	NeedsConfirmation bool                     `json:"needsConfirmation"`
	Prompt            string                   `json:"prompt,omitempty"`
	Counts            railinspect.StatusCounts `json:"counts"`
	Ratio             float64                  `json:"ratio"`
	Percent           int                      `json:"percent"`
	Warnings          []string                 `json:"warnings,omitempty"`
	Report            *railinspect.TripReport  `json:"report,omitempty"`
}

// Submitter validates drafts and moves them through review.
type Submitter struct {
	reports    railinspect.TripReportService
	results    railinspect.ResultService
	loader     *Loader
	reconciler *Reconciler
	editors    *Editors
	config     SubmitConfig
	logger     *slog.Logger

	now func() time.Time
}

// NewSubmitter creates a submitter. editors may be nil.
func NewSubmitter(reports railinspect.TripReportService, results railinspect.ResultService, loader *Loader, reconciler *Reconciler, editors *Editors, config SubmitConfig, logger *slog.Logger) *Submitter {
	if config.ConfirmThreshold <= 0 {
		config.ConfirmThreshold = DefaultConfirmThreshold
	}
	if config.FormMinCompletion <= 0 {
		config.FormMinCompletion = DefaultFormMinCompletion
	}
	return &Submitter{
		reports:    reports,
		results:    results,
		loader:     loader,
		reconciler: reconciler,
		editors:    editors,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit validates and submits a draft. Missing required fields fail with
// EINVALID. A completion ratio below the confirm threshold returns an
// outcome with NeedsConfirmation unless the request is confirmed. Coverage
// problems are reported as warnings and never block.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitOutcome, error) {
	report, err := s.draft(ctx, req)
	if err != nil {
		return nil, err
	}

	out := s.coverage(ctx, report)
	switch {
	case req.Confirmed:
	case out.Counts.Completed() == 0:
		out.NeedsConfirmation = true
		out.Prompt = promptNoneChecked
		return out, nil
	case out.Ratio < s.config.ConfirmThreshold:
		out.NeedsConfirmation = true
		out.Prompt = fmt.Sprintf(promptPartial, out.Percent)
		return out, nil
	}

	if err := s.submit(ctx, report, req.Fields, out); err != nil {
		return nil, err
	}
	reportsSubmittedTotal.WithLabelValues("confirm", strconv.FormatBool(req.Confirmed)).Inc()
	return out, nil
}

// SubmitForm is the form entry point. It requires the form completion floor
// and offers no confirmation override.
func (s *Submitter) SubmitForm(ctx context.Context, req SubmitRequest) (*SubmitOutcome, error) {
	report, err := s.draft(ctx, req)
	if err != nil {
		return nil, err
	}

	out := s.coverage(ctx, report)
	if out.Ratio < s.config.FormMinCompletion {
		return nil, railinspect.Invalid("At least %d%% of activities must be checked before submitting (currently %d%%)",
			percent(s.config.FormMinCompletion), out.Percent)
	}

	if err := s.submit(ctx, report, req.Fields, out); err != nil {
		return nil, err
	}
	reportsSubmittedTotal.WithLabelValues("form", "false").Inc()
	return out, nil
}

// draft loads the report and checks ownership, status and required fields.
func (s *Submitter) draft(ctx context.Context, req SubmitRequest) (*railinspect.TripReport, error) {
	report, err := s.reports.FindReportByID(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if profile := railinspect.ProfileFromContext(ctx); profile != nil && !profile.CanEditReport(report) {
		return nil, railinspect.Forbidden("Only the report's inspector can submit it")
	}
	if !report.Status.IsEditable() {
		return nil, railinspect.Invalid("Report is already %s", report.Status)
	}
	if missing := req.Fields.MissingRequired(); missing != nil {
		return nil, railinspect.ErrorWithFields(missing)
	}
	return report, nil
}

// coverage reconciles the report, re-verifies the gap and computes the
// completion ratio over the expected activities.
func (s *Submitter) coverage(ctx context.Context, report *railinspect.TripReport) *SubmitOutcome {
	out := &SubmitOutcome{}

	checklist, err := s.loader.Load(ctx)
	if err != nil {
		checklist = &railinspect.Checklist{}
	}
	if checklist.Degraded {
		out.Warnings = append(out.Warnings, "The checklist could not be loaded from the store; coverage is based on stored activities only")
	}

	rec, err := s.reconciler.Reconcile(ctx, report.ID, report.InspectorID, checklist)
	switch {
	case err != nil:
		out.Warnings = append(out.Warnings, "Activity coverage could not be verified")
		s.logger.WarnContext(ctx, "reconcile before submit failed",
			slog.String("report_id", report.ID.String()),
			slog.String("error", err.Error()))
	case len(rec.Failed) > 0:
		out.Warnings = append(out.Warnings, fmt.Sprintf("%d activities could not be added to the report", len(rec.Failed)))
	}

	expected := s.reconciler.Expected(ctx, checklist)
	if err == nil {
		gap, gapErr := s.reconciler.gap(ctx, report.ID, expected)
		if gapErr == nil && len(gap) > 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%d activities have no result", len(gap)))
		}
	}

	results, resErr := s.results.FindResults(ctx, report.ID)
	if resErr != nil {
		s.logger.WarnContext(ctx, "could not read results for completion",
			slog.String("report_id", report.ID.String()),
			slog.String("error", resErr.Error()))
	}
	out.Counts = CountExpected(expected, results)
	out.Ratio = out.Counts.Ratio()
	out.Percent = out.Counts.Percent()
	return out
}

// CountExpected tallies the status of every expected activity. Expected
// activities without a result count as pending; results of activities that
// are not expected are ignored.
func CountExpected(expected map[string]struct{}, results []*railinspect.ActivityResult) railinspect.StatusCounts {
	byActivity := make(map[string]railinspect.CheckStatus, len(results))
	for _, r := range results {
		byActivity[r.ActivityID] = r.CheckStatus
	}
	var counts railinspect.StatusCounts
	for id := range expected {
		counts.Add(byActivity[id])
	}
	return counts
}

func (s *Submitter) submit(ctx context.Context, report *railinspect.TripReport, fields railinspect.ReportFields, out *SubmitOutcome) error {
	var ed *Editor
	if s.editors != nil {
		ed = s.editors.Get(report.ID)
	}
	if ed != nil {
		// In-flight edits land before the status changes.
		ed.writeMu.Lock()
		defer ed.writeMu.Unlock()
	}

	submitted, err := s.reports.SubmitReport(ctx, report.ID, fields, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to submit report",
			slog.String("report_id", report.ID.String()),
			slog.String("error", err.Error()))
		switch railinspect.ErrorCode(err) {
		case railinspect.EINVALID, railinspect.ENOTFOUND, railinspect.EFORBIDDEN:
			return err
		}
		return railinspect.PersistenceFailed("Report could not be submitted", err)
	}

	s.loader.Invalidate(ctx, report.ID)
	if ed != nil {
		ed.SetStatus(submitted.Status)
	}
	if s.editors != nil {
		s.editors.Drop(report.ID)
	}

	s.logger.InfoContext(ctx, "report submitted",
		slog.String("report_id", report.ID.String()),
		slog.Int("percent", out.Percent))

	out.Submitted = true
	out.Report = submitted
	return nil
}

// Review approves or rejects a submitted report. The acting profile must
// be a manager or admin.
func (s *Submitter) Review(ctx context.Context, reportID uuid.UUID, decision railinspect.ReportStatus, notes string) (*railinspect.TripReport, error) {
	reviewer := railinspect.ProfileFromContext(ctx)
	if reviewer == nil {
		return nil, railinspect.Unauthorized("Authentication required")
	}
	if !reviewer.Role.CanReview() {
		return nil, railinspect.Forbidden("Only managers can review reports")
	}
	if decision != railinspect.ReportStatusApproved && decision != railinspect.ReportStatusRejected {
		return nil, railinspect.ErrorWithFields(map[string]string{
			"decision": "Decision must be approved or rejected",
		})
	}

	report, err := s.reports.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanTransitionTo(decision) {
		return nil, railinspect.Invalid("A %s report cannot be %s", report.Status, decision)
	}

	reviewed, err := s.reports.ReviewReport(ctx, reportID, reviewer.ID, decision, notes, s.now())
	if err != nil {
		return nil, err
	}
	s.loader.Invalidate(ctx, reportID)
	reportsReviewedTotal.WithLabelValues(string(decision)).Inc()

	s.logger.InfoContext(ctx, "report reviewed",
		slog.String("report_id", reportID.String()),
		slog.String("reviewer_id", reviewer.ID.String()),
		slog.String("decision", string(decision)))
	return reviewed, nil
}

func percent(ratio float64) int {
	return int(math.Round(ratio * 100))
}
