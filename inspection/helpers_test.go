package inspection

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSections returns an unsorted store tree with four activities and one
// empty category that must be pruned.
func testSections() []*railinspect.Section {
	return []*railinspect.Section{
		{
			ID: "sec-2", SectionNumber: "2", Name: "Interior", DisplayOrder: 2,
			Categories: []*railinspect.Category{
				{ID: "cat-2-1", CategoryNumber: "2.1", Name: "Lighting", DisplayOrder: 1, Activities: []*railinspect.Activity{
					{ID: "act-4", ActivityNumber: "2.1.1", Text: "Check lights", DisplayOrder: 1},
				}},
				{ID: "cat-2-2", CategoryNumber: "2.2", Name: "Empty", DisplayOrder: 2},
			},
		},
		{
			ID: "sec-1", SectionNumber: "1", Name: "Undergear", DisplayOrder: 1,
			Categories: []*railinspect.Category{
				{ID: "cat-1-1", CategoryNumber: "1.1", Name: "Bogie", DisplayOrder: 1, Activities: []*railinspect.Activity{
					{ID: "act-2", ActivityNumber: "1.1.2", Text: "Check springs", DisplayOrder: 2},
					{ID: "act-1", ActivityNumber: "1.1.1", Text: "Check frame", DisplayOrder: 1, IsCompulsory: true},
				}},
				{ID: "cat-1-2", CategoryNumber: "1.2", Name: "Brakes", DisplayOrder: 2, Activities: []*railinspect.Activity{
					{ID: "act-3", ActivityNumber: "1.2.1", Text: "Check brake blocks", DisplayOrder: 1},
				}},
			},
		},
		{ID: "sec-3", SectionNumber: "3", Name: "No categories", DisplayOrder: 3},
	}
}

type fixture struct {
	checklists *mock.ChecklistService
	results    *mock.ResultService
	reports    *mock.TripReportService

	loader     *Loader
	reconciler *Reconciler
	editors    *Editors
	submitter  *Submitter

	inspector *railinspect.Profile
	manager   *railinspect.Profile
	report    *railinspect.TripReport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fallback, err := LoadFallback("")
	require.NoError(t, err)

	f := &fixture{
		checklists: &mock.ChecklistService{Sections: testSections()},
		results:    mock.NewResultService(),
		reports:    &mock.TripReportService{},
		inspector:  &railinspect.Profile{ID: uuid.New(), Role: railinspect.RoleInspector, Status: railinspect.ProfileStatusApproved},
		manager:    &railinspect.Profile{ID: uuid.New(), Role: railinspect.RoleManager, Status: railinspect.ProfileStatusApproved},
	}
	f.results.Reports = f.reports
	logger := testLogger()
	f.loader = NewLoader(f.checklists, f.results, NewMemoryCache(time.Minute), fallback, logger)
	f.reconciler = NewReconciler(f.checklists, f.results, f.loader, logger)
	f.editors = NewEditors(f.reports, f.results, f.loader, f.reconciler, time.Minute, logger)
	f.submitter = NewSubmitter(f.reports, f.results, f.loader, f.reconciler, f.editors, DefaultSubmitConfig(), logger)

	f.report = &railinspect.TripReport{
		ID:          uuid.New(),
		InspectorID: f.inspector.ID,
		Status:      railinspect.ReportStatusDraft,
		CreatedAt:   time.Now(),
	}
	f.reports.Put(f.report)
	return f
}

// asInspector returns a context acting as the report's inspector.
func (f *fixture) asInspector() context.Context {
	return railinspect.NewContextWithProfile(context.Background(), f.inspector)
}

func (f *fixture) asManager() context.Context {
	return railinspect.NewContextWithProfile(context.Background(), f.manager)
}

// setStatuses stores results with the given statuses for the first n activities.
func (f *fixture) setStatuses(statuses map[string]railinspect.CheckStatus) {
	for id, st := range statuses {
		f.results.Put(&railinspect.ActivityResult{
			TripReportID: f.report.ID,
			ActivityID:   id,
			CheckStatus:  st,
			InspectorID:  f.inspector.ID,
		})
	}
}

func validFields() railinspect.ReportFields {
	return railinspect.ReportFields{TrainNumber: "12951", Location: "Mumbai Central"}
}
