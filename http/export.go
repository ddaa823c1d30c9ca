package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleRenderReport(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	html, _, err := s.exporter.RenderReport(ctx, id)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, html)
}

// handleGetDocument returns the last published document of a report.
func (s *Server) handleGetDocument(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}
	doc, err := s.exporter.PublishedDocument(ctx, id)
	if err != nil {
		return err
	}
	return RespondOK(c, doc)
}

// GeneratePDFRequest lists who receives a link to the published document.
type GeneratePDFRequest struct {
	Recipients []string `json:"recipients" validate:"max=10,dive,email"`
}

// JobResponse is the client view of a background job.
type JobResponse struct {
	ID           uuid.UUID             `json:"id"`
	JobType      string                `json:"jobType"`
	ReportID     *uuid.UUID            `json:"reportId,omitempty"`
	Status       railinspect.JobStatus `json:"status"`
	AttemptCount int                   `json:"attemptCount"`
	MaxAttempts  int                   `json:"maxAttempts"`
	CreatedAt    time.Time             `json:"createdAt"`
	StartedAt    *time.Time            `json:"startedAt,omitempty"`
	CompletedAt  *time.Time            `json:"completedAt,omitempty"`
	Result       json.RawMessage       `json:"result,omitempty"`
	Error        string                `json:"error,omitempty"`
}

func newJobResponse(job *railinspect.Job) JobResponse {
	resp := JobResponse{
		ID:           job.ID,
		JobType:      job.JobType,
		Status:       job.Status,
		AttemptCount: job.AttemptCount,
		MaxAttempts:  job.MaxAttempts,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Error:        job.ErrorMessage,
	}
	if job.ReportID != uuid.Nil {
		id := job.ReportID
		resp.ReportID = &id
	}
	if len(job.Result) > 0 && json.Valid(job.Result) {
		resp.Result = json.RawMessage(job.Result)
	}
	return resp
}

// handleGeneratePDF queues document generation for a report. The job is
// processed by the worker pool; poll /api/jobs/:jobId for the document.
func (s *Server) handleGeneratePDF(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if s.queue == nil {
		return railinspect.Unavailable("Background jobs are disabled", nil)
	}

	report, err := s.findVisibleReport(ctx, c)
	if err != nil {
		return err
	}

	var req GeneratePDFRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	job, err := s.exporter.EnqueueReport(ctx, s.queue, report.ID, req.Recipients)
	if err != nil {
		return err
	}

	s.log(c).Info("report generation queued",
		slog.String("report_id", report.ID.String()),
		slog.String("job_id", job.ID.String()))

	return RespondAccepted(c, newJobResponse(job))
}

// handleGetJob returns a job's status.
func (s *Server) handleGetJob(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	job, err := s.findVisibleJob(ctx, c)
	if err != nil {
		return err
	}
	return RespondOK(c, newJobResponse(job))
}

// handleCancelJob cancels a job that has not started. Inspectors may cancel
// jobs for their own reports; reviewers may cancel any job they can see.
func (s *Server) handleCancelJob(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	job, err := s.findVisibleJob(ctx, c)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return railinspect.Conflict("Job has already %s", job.Status)
	}
	if err := s.queue.CancelJob(ctx, job.ID); err != nil {
		return err
	}

	job, err = s.queue.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	s.log(c).Info("job cancelled", slog.String("job_id", job.ID.String()))
	return RespondOK(c, newJobResponse(job))
}

// findVisibleJob loads the :jobId job. Report jobs are visible to whoever
// can view the report; other jobs only to reviewers. Hidden jobs are
// reported as missing.
func (s *Server) findVisibleJob(ctx context.Context, c echo.Context) (*railinspect.Job, error) {
	if s.queue == nil {
		return nil, railinspect.Unavailable("Background jobs are disabled", nil)
	}

	profile, err := requireProfile(c)
	if err != nil {
		return nil, err
	}
	id, err := requireUUIDParam(c, "jobId")
	if err != nil {
		return nil, err
	}

	job, err := s.queue.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.ReportID == uuid.Nil {
		if !profile.Role.CanReview() {
			return nil, railinspect.NotFound("Job not found")
		}
		return job, nil
	}

	report, err := s.reportService.FindReportByID(ctx, job.ReportID)
	if err != nil {
		if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
			return nil, railinspect.NotFound("Job not found")
		}
		return nil, err
	}
	if err := canViewReport(profile, report); err != nil {
		return nil, railinspect.NotFound("Job not found")
	}
	return job, nil
}
