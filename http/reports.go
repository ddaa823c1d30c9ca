package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/labstack/echo/v4"
)

// ReportFieldsRequest is the payload for creating a draft.
type ReportFieldsRequest struct {
	TrainNumber string     `json:"trainNumber" validate:"max=20"`
	TrainName   string     `json:"trainName" validate:"max=100"`
	Location    string     `json:"location" validate:"max=100"`
	LineNumber  string     `json:"lineNumber" validate:"max=20"`
	CoachType   string     `json:"coachType" validate:"max=50"`
	RedOnTime   *time.Time `json:"redOnTime"`
	RedOffTime  *time.Time `json:"redOffTime"`
}

func (r ReportFieldsRequest) fields() railinspect.ReportFields {
	return railinspect.ReportFields{
		TrainNumber: r.TrainNumber,
		TrainName:   r.TrainName,
		Location:    r.Location,
		LineNumber:  r.LineNumber,
		CoachType:   r.CoachType,
		RedOnTime:   r.RedOnTime,
		RedOffTime:  r.RedOffTime,
	}
}

// UpdateReportRequest is the payload for editing a draft's form fields.
// Omitted fields are left unchanged.
type UpdateReportRequest struct {
	TrainNumber *string    `json:"trainNumber" validate:"omitempty,max=20"`
	TrainName   *string    `json:"trainName" validate:"omitempty,max=100"`
	Location    *string    `json:"location" validate:"omitempty,max=100"`
	LineNumber  *string    `json:"lineNumber" validate:"omitempty,max=20"`
	CoachType   *string    `json:"coachType" validate:"omitempty,max=50"`
	RedOnTime   *time.Time `json:"redOnTime"`
	RedOffTime  *time.Time `json:"redOffTime"`
}

// handleCreateReport starts a draft. When the one-draft-per-day policy
// returns an existing draft the response is 200 instead of 201.
func (s *Server) handleCreateReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	var req ReportFieldsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	report, created, err := s.drafts.Create(ctx, req.fields())
	if err != nil {
		return err
	}
	if !created {
		return RespondOK(c, report)
	}
	s.audit.Record(c, railinspect.AuditReportCreated, railinspect.AuditResourceReport, report.ID, nil)
	return RespondCreated(c, report)
}

// handleListReports lists reports. Inspectors only see their own; reviewers
// see all and may filter by inspector.
func (s *Server) handleListReports(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	profile, err := requireProfile(c)
	if err != nil {
		return err
	}
	offset, limit, err := pagination(c)
	if err != nil {
		return err
	}

	filter := railinspect.ReportFilter{Offset: offset, Limit: limit}
	if v := c.QueryParam("status"); v != "" {
		status := railinspect.ReportStatus(v)
		if !status.IsValid() {
			return railinspect.Invalid("Unknown report status %q", v)
		}
		filter.Status = &status
	}

	if profile.Role.CanReview() {
		if v := c.QueryParam("inspectorId"); v != "" {
			id, err := parseUUID(v)
			if err != nil {
				return err
			}
			filter.InspectorID = &id
		}
	} else {
		id := profile.ID
		filter.InspectorID = &id
	}

	reports, total, err := s.reportService.FindReports(ctx, filter)
	if err != nil {
		return err
	}
	return RespondList(c, reports, total, offset, limit)
}

func (s *Server) handleGetReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	report, err := s.findVisibleReport(ctx, c)
	if err != nil {
		return err
	}
	return RespondOK(c, report)
}

func (s *Server) handleUpdateReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	report, err := s.findOwnedReport(ctx, c)
	if err != nil {
		return err
	}

	var req UpdateReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updated, err := s.reportService.UpdateReport(ctx, report.ID, railinspect.ReportUpdate{
		TrainNumber: req.TrainNumber,
		TrainName:   req.TrainName,
		Location:    req.Location,
		LineNumber:  req.LineNumber,
		CoachType:   req.CoachType,
		RedOnTime:   req.RedOnTime,
		RedOffTime:  req.RedOffTime,
	})
	if err != nil {
		return err
	}

	if ed := s.editors.Get(updated.ID); ed != nil {
		ed.SetReport(updated)
	}
	return RespondOK(c, updated)
}

func (s *Server) handleDeleteReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	report, err := s.findOwnedReport(ctx, c)
	if err != nil {
		return err
	}

	if err := s.reportService.DeleteReport(ctx, report.ID); err != nil {
		return err
	}
	s.editors.Drop(report.ID)
	s.loader.Invalidate(ctx, report.ID)
	s.audit.Record(c, railinspect.AuditReportDeleted, railinspect.AuditResourceReport, report.ID, map[string]any{
		"inspectorId": report.InspectorID.String(),
		"trainNumber": report.TrainNumber,
	})

	s.log(c).Info("draft report deleted", slog.String("report_id", report.ID.String()))
	return RespondNoContent(c)
}

// findVisibleReport loads the :id report if the acting profile owns it or
// can review reports.
func (s *Server) findVisibleReport(ctx context.Context, c echo.Context) (*railinspect.TripReport, error) {
	profile, err := requireProfile(c)
	if err != nil {
		return nil, err
	}
	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	report, err := s.reportService.FindReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canViewReport(profile, report); err != nil {
		return nil, err
	}
	return report, nil
}

// findOwnedReport loads the :id report if the acting profile owns it or is
// an admin.
func (s *Server) findOwnedReport(ctx context.Context, c echo.Context) (*railinspect.TripReport, error) {
	profile, err := requireProfile(c)
	if err != nil {
		return nil, err
	}
	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	report, err := s.reportService.FindReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !profile.CanEditReport(report) {
		return nil, railinspect.Forbidden("Only the report's inspector can change it")
	}
	return report, nil
}

func canViewReport(profile *railinspect.Profile, report *railinspect.TripReport) error {
	if profile.ID == report.InspectorID || profile.Role.CanReview() {
		return nil
	}
	return railinspect.Forbidden("You do not have access to this report")
}
