package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/google/uuid"
)

// Document is a published report document.
type Document struct {
	ReportID    uuid.UUID `json:"reportId"`
	TrainNumber string    `json:"trainNumber,omitempty"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
}

// ReportJobPayload is the payload of a report generation job.
type ReportJobPayload struct {
	// Recipients receive a link to the document once it is published.
	Recipients []string `json:"recipients,omitempty"`
}

// Service renders, prints and publishes trip reports.
type Service struct {
	reports  railinspect.TripReportService
	profiles railinspect.ProfileService
	loader   *inspection.Loader
	storage  railinspect.FileStorage
	email    railinspect.EmailService
	printer  Printer
	location *time.Location
	logger   *slog.Logger

	now func() time.Time
}

// NewService creates an export service. email may be nil when reports are
// never mailed.
func NewService(reports railinspect.TripReportService, profiles railinspect.ProfileService, loader *inspection.Loader, storage railinspect.FileStorage, email railinspect.EmailService, printer Printer, location *time.Location, logger *slog.Logger) *Service {
	if printer == nil {
		printer = NopPrinter{}
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		reports:  reports,
		profiles: profiles,
		loader:   loader,
		storage:  storage,
		email:    email,
		printer:  printer,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// RenderReport loads a report with its results and renders it to HTML.
// The acting profile, when present, must own the report or review reports.
func (s *Service) RenderReport(ctx context.Context, reportID uuid.UUID) (string, *railinspect.TripReport, error) {
	report, err := s.reports.FindReportByID(ctx, reportID)
	if err != nil {
		return "", nil, err
	}
	if profile := railinspect.ProfileFromContext(ctx); profile != nil &&
		profile.ID != report.InspectorID && !profile.Role.CanReview() {
		return "", nil, railinspect.Forbidden("You do not have access to this report")
	}

	checklist, err := s.loader.LoadForReport(ctx, reportID)
	if err != nil {
		return "", nil, err
	}
	if checklist.Degraded {
		return "", nil, railinspect.Unavailable("Checklist store is unavailable; the report cannot be rendered", checklist.Cause)
	}

	opts := RenderOptions{
		InspectorName: s.displayName(ctx, &report.InspectorID),
		ReviewerName:  s.displayName(ctx, report.ReviewerID),
		Location:      s.location,
		GeneratedAt:   s.now(),
	}

	start := time.Now()
	html, err := RenderHTML(report, checklist.Sections, opts)
	reportRenderDuration.WithLabelValues("html").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", nil, railinspect.Internal("Failed to render report", err)
	}
	return html, report, nil
}

// displayName resolves a profile's name for the document. Lookup failures
// leave the name empty, which renders as N/A.
func (s *Service) displayName(ctx context.Context, id *uuid.UUID) string {
	if id == nil || *id == uuid.Nil || s.profiles == nil {
		return ""
	}
	p, err := s.profiles.FindProfileByID(ctx, *id)
	if err != nil {
		s.logger.WarnContext(ctx, "could not resolve profile name",
			slog.String("profile_id", id.String()),
			slog.String("error", err.Error()))
		return ""
	}
	return p.DisplayName()
}

// Generate renders the report, prints it to PDF and uploads it. When no
// printer is available the HTML document is published instead.
func (s *Service) Generate(ctx context.Context, reportID uuid.UUID) (*Document, error) {
	html, report, err := s.RenderReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	data := []byte(html)
	contentType, ext := railinspect.ContentTypeHTML, "html"

	start := time.Now()
	pdf, err := s.printer.PrintPDF(ctx, html)
	switch {
	case err == nil:
		reportRenderDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())
		data, contentType, ext = pdf, railinspect.ContentTypePDF, "pdf"
	case errors.Is(err, ErrPrinterUnavailable):
		s.logger.WarnContext(ctx, "pdf printer unavailable, publishing html",
			slog.String("report_id", reportID.String()),
			slog.String("error", err.Error()))
	default:
		return nil, railinspect.Internal("Failed to print report", err)
	}

	key := railinspect.ReportDocumentKey(reportID.String(), ext)
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, railinspect.Internal("Failed to upload report document", err)
	}

	s.logger.InfoContext(ctx, "report document published",
		slog.String("report_id", reportID.String()),
		slog.String("key", key),
		slog.Int("size", len(data)))

	return &Document{
		ReportID:    reportID,
		TrainNumber: report.TrainNumber,
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

// PublishedDocument returns the last document published for a report,
// preferring PDF over HTML. Access follows RenderReport. ENOTFOUND means
// nothing has been published yet.
func (s *Service) PublishedDocument(ctx context.Context, reportID uuid.UUID) (*Document, error) {
	report, err := s.reports.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if profile := railinspect.ProfileFromContext(ctx); profile != nil &&
		profile.ID != report.InspectorID && !profile.Role.CanReview() {
		return nil, railinspect.Forbidden("You do not have access to this report")
	}

	for _, kind := range []struct{ ext, contentType string }{
		{"pdf", railinspect.ContentTypePDF},
		{"html", railinspect.ContentTypeHTML},
	} {
		key := railinspect.ReportDocumentKey(reportID.String(), kind.ext)
		ok, err := s.storage.Exists(ctx, key)
		if err != nil {
			return nil, railinspect.Unavailable("Document storage is unavailable", err)
		}
		if ok {
			return &Document{
				ReportID:    reportID,
				TrainNumber: report.TrainNumber,
				Key:         key,
				URL:         s.storage.GetURL(key),
				ContentType: kind.contentType,
			}, nil
		}
	}
	return nil, railinspect.NotFound("No document has been published for this report")
}

// EnqueueReport schedules document generation for a report. A pending job
// for the same report and recipients is returned instead of a duplicate.
func (s *Service) EnqueueReport(ctx context.Context, queue railinspect.Queue, reportID uuid.UUID, recipients []string) (*railinspect.Job, error) {
	payload, err := json.Marshal(ReportJobPayload{Recipients: recipients})
	if err != nil {
		return nil, railinspect.Internal("Failed to encode job payload", err)
	}

	pending, err := queue.GetPendingJobs(ctx, reportID, railinspect.QueueDefault)
	if err != nil {
		return nil, err
	}
	for _, job := range pending {
		if job.JobType != railinspect.JobTypeReportGeneration {
			continue
		}
		var existing ReportJobPayload
		if err := json.Unmarshal(job.Payload, &existing); err == nil && slices.Equal(existing.Recipients, recipients) {
			return job, nil
		}
	}

	job := &railinspect.Job{
		QueueName: railinspect.QueueDefault,
		JobType:   railinspect.JobTypeReportGeneration,
		ReportID:  reportID,
		Payload:   payload,
	}
	if err := queue.Enqueue(ctx, job, railinspect.WithMaxAttempts(3)); err != nil {
		return nil, err
	}
	return job, nil
}

// Handle implements railinspect.JobHandler for report generation jobs.
// The published document is stored as the job result.
func (s *Service) Handle(ctx context.Context, job *railinspect.Job) error {
	var payload ReportJobPayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			reportJobsTotal.WithLabelValues("invalid").Inc()
			return fmt.Errorf("decode report job payload: %w", err)
		}
	}

	doc, err := s.Generate(ctx, job.ReportID)
	if err != nil {
		reportJobsTotal.WithLabelValues("failed").Inc()
		return err
	}

	if len(payload.Recipients) > 0 && s.email != nil {
		subject := "Trip report for train " + doc.TrainNumber
		if err := s.email.SendReportLink(ctx, payload.Recipients, subject, doc.URL); err != nil {
			// The document is published; mail failures do not fail the job.
			s.logger.ErrorContext(ctx, "failed to send report link",
				slog.String("report_id", job.ReportID.String()),
				slog.String("error", err.Error()))
		}
	}

	result, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode report job result: %w", err)
	}
	job.Result = result
	reportJobsTotal.WithLabelValues("completed").Inc()
	return nil
}
