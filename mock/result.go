package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ railinspect.ResultService = (*ResultService)(nil)

// ResultService is a mock implementation of railinspect.ResultService.
// Without Fn overrides it keeps rows in memory keyed on (report, activity).
// When Reports is set, upserts are refused unless the report is a draft.
type ResultService struct {
	Reports *TripReportService

	FindResultsFn         func(ctx context.Context, reportID uuid.UUID) ([]*railinspect.ActivityResult, error)
	FindResultFn          func(ctx context.Context, reportID uuid.UUID, activityID string) (*railinspect.ActivityResult, error)
	CreatePendingResultFn func(ctx context.Context, reportID uuid.UUID, activityID string, inspectorID uuid.UUID) (bool, error)
	UpsertCheckStatusFn   func(ctx context.Context, reportID uuid.UUID, activityID string, status railinspect.CheckStatus, inspectorID uuid.UUID) (*railinspect.ActivityResult, error)
	UpsertRemarksFn       func(ctx context.Context, reportID uuid.UUID, activityID string, remarks string, inspectorID uuid.UUID) (*railinspect.ActivityResult, error)

	mu   sync.Mutex
	rows map[resultKey]*railinspect.ActivityResult
}

type resultKey struct {
	reportID   uuid.UUID
	activityID string
}

// NewResultService creates a result store seeded with rows.
func NewResultService(rows ...*railinspect.ActivityResult) *ResultService {
	s := &ResultService{}
	for _, r := range rows {
		s.Put(r)
	}
	return s
}

// Put stores a copy of a row, replacing any existing row for the pair.
func (s *ResultService) Put(r *railinspect.ActivityResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = make(map[resultKey]*railinspect.ActivityResult)
	}
	c := *r
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.rows[resultKey{c.TripReportID, c.ActivityID}] = &c
}

// Len returns the number of stored rows for a report.
func (s *ResultService) Len(reportID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.rows {
		if k.reportID == reportID {
			n++
		}
	}
	return n
}

func (s *ResultService) FindResults(ctx context.Context, reportID uuid.UUID) ([]*railinspect.ActivityResult, error) {
	if s.FindResultsFn != nil {
		return s.FindResultsFn(ctx, reportID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*railinspect.ActivityResult, 0)
	for k, r := range s.rows {
		if k.reportID == reportID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	return out, nil
}

func (s *ResultService) FindResult(ctx context.Context, reportID uuid.UUID, activityID string) (*railinspect.ActivityResult, error) {
	if s.FindResultFn != nil {
		return s.FindResultFn(ctx, reportID, activityID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[resultKey{reportID, activityID}]
	if !ok {
		return nil, railinspect.NotFound("Activity result not found")
	}
	c := *r
	return &c, nil
}

func (s *ResultService) CreatePendingResult(ctx context.Context, reportID uuid.UUID, activityID string, inspectorID uuid.UUID) (bool, error) {
	if s.CreatePendingResultFn != nil {
		return s.CreatePendingResultFn(ctx, reportID, activityID, inspectorID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = make(map[resultKey]*railinspect.ActivityResult)
	}
	key := resultKey{reportID, activityID}
	if _, ok := s.rows[key]; ok {
		return false, nil
	}
	s.rows[key] = &railinspect.ActivityResult{
		ID:           uuid.New(),
		TripReportID: reportID,
		ActivityID:   activityID,
		CheckStatus:  railinspect.CheckStatusPending,
		InspectorID:  inspectorID,
		UpdatedAt:    time.Now(),
	}
	return true, nil
}

func (s *ResultService) UpsertCheckStatus(ctx context.Context, reportID uuid.UUID, activityID string, status railinspect.CheckStatus, inspectorID uuid.UUID) (*railinspect.ActivityResult, error) {
	if s.UpsertCheckStatusFn != nil {
		return s.UpsertCheckStatusFn(ctx, reportID, activityID, status, inspectorID)
	}
	if err := s.requireDraft(ctx, reportID); err != nil {
		return nil, err
	}
	return s.upsert(reportID, activityID, inspectorID, func(r *railinspect.ActivityResult) {
		r.CheckStatus = status
	}), nil
}

func (s *ResultService) UpsertRemarks(ctx context.Context, reportID uuid.UUID, activityID string, remarks string, inspectorID uuid.UUID) (*railinspect.ActivityResult, error) {
	if s.UpsertRemarksFn != nil {
		return s.UpsertRemarksFn(ctx, reportID, activityID, remarks, inspectorID)
	}
	if err := s.requireDraft(ctx, reportID); err != nil {
		return nil, err
	}
	return s.upsert(reportID, activityID, inspectorID, func(r *railinspect.ActivityResult) {
		r.Remarks = remarks
	}), nil
}

func (s *ResultService) requireDraft(ctx context.Context, reportID uuid.UUID) error {
	if s.Reports == nil {
		return nil
	}
	report, err := s.Reports.FindReportByID(ctx, reportID)
	if err != nil {
		return err
	}
	if !report.Status.IsEditable() {
		return railinspect.Invalid("Cannot edit a report in %s status", report.Status)
	}
	return nil
}

func (s *ResultService) upsert(reportID uuid.UUID, activityID string, inspectorID uuid.UUID, apply func(*railinspect.ActivityResult)) *railinspect.ActivityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = make(map[resultKey]*railinspect.ActivityResult)
	}
	key := resultKey{reportID, activityID}
	r, ok := s.rows[key]
	if !ok {
		r = &railinspect.ActivityResult{
			ID:           uuid.New(),
			TripReportID: reportID,
			ActivityID:   activityID,
			CheckStatus:  railinspect.CheckStatusPending,
		}
		s.rows[key] = r
	}
	apply(r)
	r.InspectorID = inspectorID
	r.UpdatedAt = time.Now()
	c := *r
	return &c
}
