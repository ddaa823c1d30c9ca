package http

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleGetReportChecklist(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	ed, err := s.editors.Open(ctx, id)
	if err != nil {
		return err
	}
	return RespondOK(c, ed.Snapshot())
}

// ReconcileResponse describes an explicit reconcile pass. Failed maps
// activity ids to the client-safe error of their insert.
type ReconcileResponse struct {
	Created int               `json:"created"`
	Missing []string          `json:"missing"`
	Failed  map[string]string `json:"failed,omitempty"`
}

func (s *Server) handleReconcileReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	report, err := s.findOwnedReport(ctx, c)
	if err != nil {
		return err
	}
	if !report.Status.IsEditable() {
		return railinspect.Invalid("Report is %s and can no longer be reconciled", report.Status)
	}

	checklist, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	if checklist.Degraded {
		return railinspect.Unavailable("Checklist store is unavailable; try again later", checklist.Cause)
	}

	result, err := s.reconciler.Reconcile(ctx, report.ID, report.InspectorID, checklist)
	if err != nil {
		return err
	}

	resp := ReconcileResponse{Created: result.Created, Missing: result.Missing}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	if len(result.Failed) > 0 {
		resp.Failed = make(map[string]string, len(result.Failed))
		ids := make([]string, 0, len(result.Failed))
		for id := range result.Failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			resp.Failed[id] = railinspect.ErrorMessage(result.Failed[id])
		}
		s.log(c).Warn("reconcile left activities without results",
			slog.String("report_id", report.ID.String()),
			slog.Int("failed", len(ids)))
	}

	// A registered editor holds the pre-reconcile tree.
	if len(result.Missing) > 0 {
		s.editors.Drop(report.ID)
	}
	return RespondOK(c, resp)
}

// MutationResponse is the outcome of one activity edit. Error is set when
// the value could not be saved; the edit is kept locally and the same
// request may be retried. Skipped edits belong to the offline checklist and
// are not kept by the server: the next checklist read starts from the store
// again.
type MutationResponse struct {
	ActivityID string                      `json:"activityId"`
	Field      inspection.Field            `json:"field"`
	Value      string                      `json:"value"`
	Persisted  bool                        `json:"persisted"`
	Skipped    bool                        `json:"skipped"`
	Corrected  bool                        `json:"corrected"`
	Result     *railinspect.ActivityResult `json:"result,omitempty"`
	Error      *ErrorResponse              `json:"error,omitempty"`
}

func newMutationResponse(m *inspection.Mutation) MutationResponse {
	resp := MutationResponse{
		ActivityID: m.ActivityID,
		Field:      m.Field,
		Value:      m.Value,
		Persisted:  m.Persisted,
		Skipped:    m.Skipped,
		Corrected:  m.Corrected,
		Result:     m.Result,
	}
	if m.Err != nil {
		e := newErrorResponse(m.Err)
		resp.Error = &e
	}
	return resp
}

// SetCheckStatusRequest is the payload for a check status edit.
type SetCheckStatusRequest struct {
	CheckStatus string `json:"checkStatus" validate:"required,oneof=pending ok not_ok"`
}

// SetRemarksRequest is the payload for a remarks edit.
type SetRemarksRequest struct {
	Remarks string `json:"remarks" validate:"max=2000"`
}

func (s *Server) handleSetCheckStatus(c echo.Context) error {
	var req SetCheckStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.mutateActivity(c, func(ctx context.Context, ed *inspection.Editor, activityID string) (*inspection.Mutation, error) {
		return ed.SetCheckStatus(ctx, activityID, railinspect.CheckStatus(req.CheckStatus))
	})
}

func (s *Server) handleSetRemarks(c echo.Context) error {
	var req SetRemarksRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.mutateActivity(c, func(ctx context.Context, ed *inspection.Editor, activityID string) (*inspection.Mutation, error) {
		return ed.SetRemarks(ctx, activityID, req.Remarks)
	})
}

// mutateActivity applies one edit through the report's editor. Precondition
// failures are returned as errors; a failed write is reported in the body
// with status 200. Re-sending the same PUT is the retry: edits are keyed on
// (report, activity) and carry the whole field value.
func (s *Server) mutateActivity(c echo.Context, apply func(context.Context, *inspection.Editor, string) (*inspection.Mutation, error)) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}
	activityID, err := requireParam(c, "activityId")
	if err != nil {
		return err
	}

	ed, err := s.editors.Open(ctx, id)
	if err != nil {
		return err
	}

	m, err := apply(ctx, ed, activityID)
	if err != nil {
		return err
	}

	if m.Err != nil {
		s.log(c).Warn("activity result not saved",
			slog.String("report_id", id.String()),
			slog.String("activity_id", activityID),
			slog.String("field", string(m.Field)),
			slog.String("error", m.Err.Error()))
	}
	return RespondOK(c, newMutationResponse(m))
}

// SubmitReportRequest is the payload of both submission paths.
type SubmitReportRequest struct {
	Fields    ReportFieldsRequest `json:"fields"`
	Confirmed bool                `json:"confirmed"`
}

// handleSubmitReport runs the confirm flow. An outcome that needs
// confirmation is returned with status 200 and submitted=false.
func (s *Server) handleSubmitReport(c echo.Context) error {
	return s.submit(c, s.submitter.Submit)
}

// handleSubmitForm runs the form path, which enforces the completion floor.
func (s *Server) handleSubmitForm(c echo.Context) error {
	return s.submit(c, s.submitter.SubmitForm)
}

type submitFunc func(ctx context.Context, req inspection.SubmitRequest) (*inspection.SubmitOutcome, error)

func (s *Server) submit(c echo.Context, fn submitFunc) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req SubmitReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := fn(ctx, inspection.SubmitRequest{
		ReportID:  id,
		Fields:    req.Fields.fields(),
		Confirmed: req.Confirmed,
	})
	if err != nil {
		return err
	}
	if out.Submitted {
		s.audit.Record(c, railinspect.AuditReportSubmitted, railinspect.AuditResourceReport, id, map[string]any{
			"percent":  out.Percent,
			"warnings": len(out.Warnings),
		})
	}
	return RespondOK(c, out)
}

// ReviewReportRequest is a manager's decision on a submitted report.
type ReviewReportRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Notes    string `json:"notes" validate:"max=2000"`
}

func (s *Server) handleReviewReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ReviewReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	report, err := s.submitter.Review(ctx, id, railinspect.ReportStatus(req.Decision), req.Notes)
	if err != nil {
		return err
	}
	if ed := s.editors.Get(id); ed != nil {
		ed.SetReport(report)
	}
	s.audit.Record(c, railinspect.AuditReportReviewed, railinspect.AuditResourceReport, id, map[string]any{
		"status": req.Decision,
		"notes":  req.Notes,
	})
	return RespondOK(c, report)
}
