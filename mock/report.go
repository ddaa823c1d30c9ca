package mock

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ railinspect.TripReportService = (*TripReportService)(nil)

// TripReportService is a mock implementation of railinspect.TripReportService.
// Without Fn overrides it keeps reports in memory.
type TripReportService struct {
	FindReportByIDFn  func(ctx context.Context, id uuid.UUID) (*railinspect.TripReport, error)
	FindReportsFn     func(ctx context.Context, filter railinspect.ReportFilter) ([]*railinspect.TripReport, int, error)
	FindDraftForDayFn func(ctx context.Context, inspectorID uuid.UUID, dayStart time.Time) (*railinspect.TripReport, error)
	CreateReportFn    func(ctx context.Context, report *railinspect.TripReport) error
	UpdateReportFn    func(ctx context.Context, id uuid.UUID, upd railinspect.ReportUpdate) (*railinspect.TripReport, error)
	SubmitReportFn    func(ctx context.Context, id uuid.UUID, fields railinspect.ReportFields, at time.Time) (*railinspect.TripReport, error)
	ReviewReportFn    func(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, status railinspect.ReportStatus, notes string, at time.Time) (*railinspect.TripReport, error)
	DeleteReportFn    func(ctx context.Context, id uuid.UUID) error

	mu      sync.Mutex
	reports map[uuid.UUID]*railinspect.TripReport
}

// Put stores a copy of a report.
func (s *TripReportService) Put(r *railinspect.TripReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reports == nil {
		s.reports = make(map[uuid.UUID]*railinspect.TripReport)
	}
	c := *r
	s.reports[c.ID] = &c
}

func (s *TripReportService) get(id uuid.UUID) (*railinspect.TripReport, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, railinspect.NotFound("Report not found")
	}
	return r, nil
}

func (s *TripReportService) FindReportByID(ctx context.Context, id uuid.UUID) (*railinspect.TripReport, error) {
	if s.FindReportByIDFn != nil {
		return s.FindReportByIDFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return nil, err
	}
	c := *r
	return &c, nil
}

func (s *TripReportService) FindReports(ctx context.Context, filter railinspect.ReportFilter) ([]*railinspect.TripReport, int, error) {
	if s.FindReportsFn != nil {
		return s.FindReportsFn(ctx, filter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*railinspect.TripReport, 0)
	for _, r := range s.reports {
		if filter.InspectorID != nil && r.InspectorID != *filter.InspectorID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out, len(out), nil
}

func (s *TripReportService) FindDraftForDay(ctx context.Context, inspectorID uuid.UUID, dayStart time.Time) (*railinspect.TripReport, error) {
	if s.FindDraftForDayFn != nil {
		return s.FindDraftForDayFn(ctx, inspectorID, dayStart)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dayEnd := dayStart.Add(24 * time.Hour)
	for _, r := range s.reports {
		if r.InspectorID == inspectorID && r.Status == railinspect.ReportStatusDraft &&
			!r.CreatedAt.Before(dayStart) && r.CreatedAt.Before(dayEnd) {
			c := *r
			return &c, nil
		}
	}
	return nil, railinspect.NotFound("No draft for this day")
}

func (s *TripReportService) CreateReport(ctx context.Context, report *railinspect.TripReport) error {
	if s.CreateReportFn != nil {
		return s.CreateReportFn(ctx, report)
	}
	report.ID = uuid.New()
	report.Status = railinspect.ReportStatusDraft
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	s.Put(report)
	return nil
}

func (s *TripReportService) UpdateReport(ctx context.Context, id uuid.UUID, upd railinspect.ReportUpdate) (*railinspect.TripReport, error) {
	if s.UpdateReportFn != nil {
		return s.UpdateReportFn(ctx, id, upd)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !r.Status.IsEditable() {
		return nil, railinspect.Invalid("Report is no longer a draft")
	}
	setIf(&r.TrainNumber, upd.TrainNumber)
	setIf(&r.TrainName, upd.TrainName)
	setIf(&r.Location, upd.Location)
	setIf(&r.LineNumber, upd.LineNumber)
	setIf(&r.CoachType, upd.CoachType)
	if upd.RedOnTime != nil {
		r.RedOnTime = upd.RedOnTime
	}
	if upd.RedOffTime != nil {
		r.RedOffTime = upd.RedOffTime
	}
	r.UpdatedAt = time.Now()
	c := *r
	return &c, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *TripReportService) SubmitReport(ctx context.Context, id uuid.UUID, fields railinspect.ReportFields, at time.Time) (*railinspect.TripReport, error) {
	if s.SubmitReportFn != nil {
		return s.SubmitReportFn(ctx, id, fields, at)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(railinspect.ReportStatusSubmitted) {
		return nil, railinspect.Invalid("Report is no longer a draft")
	}
	r.TrainNumber = fields.TrainNumber
	r.TrainName = fields.TrainName
	r.Location = fields.Location
	r.LineNumber = fields.LineNumber
	r.CoachType = fields.CoachType
	r.RedOnTime = fields.RedOnTime
	r.RedOffTime = fields.RedOffTime
	r.Status = railinspect.ReportStatusSubmitted
	r.SubmittedAt = &at
	r.UpdatedAt = at
	c := *r
	return &c, nil
}

func (s *TripReportService) ReviewReport(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, status railinspect.ReportStatus, notes string, at time.Time) (*railinspect.TripReport, error) {
	if s.ReviewReportFn != nil {
		return s.ReviewReportFn(ctx, id, reviewerID, status, notes, at)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(status) {
		return nil, railinspect.Invalid("Report cannot move from %s to %s", r.Status, status)
	}
	r.Status = status
	r.ReviewerID = &reviewerID
	r.ReviewNotes = notes
	if status == railinspect.ReportStatusApproved {
		r.ApprovedAt = &at
	} else {
		r.RejectedAt = &at
	}
	r.UpdatedAt = at
	c := *r
	return &c, nil
}

func (s *TripReportService) DeleteReport(ctx context.Context, id uuid.UUID) error {
	if s.DeleteReportFn != nil {
		return s.DeleteReportFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return err
	}
	if !r.Status.IsEditable() {
		return railinspect.Invalid("Only draft reports can be deleted")
	}
	delete(s.reports, id)
	return nil
}
