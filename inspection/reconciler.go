package inspection

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// ReconcileResult describes one reconciliation pass.
type ReconcileResult struct {
	// Created is the number of result rows actually inserted.
	Created int `json:"created"`

	// Missing lists the activity ids that had no result row, sorted.
	Missing []string `json:"missing"`

	// Failed maps activity ids whose insert failed to the error.
	Failed map[string]error `json:"-"`
}

// Reconciler ensures every checklist activity has exactly one result row
// per report.
type Reconciler struct {
	checklists railinspect.ChecklistService
	results    railinspect.ResultService
	loader     *Loader
	logger     *slog.Logger
}

// NewReconciler creates a reconciler. loader may be nil, in which case no
// cache entries are invalidated.
func NewReconciler(checklists railinspect.ChecklistService, results railinspect.ResultService, loader *Loader, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		checklists: checklists,
		results:    results,
		loader:     loader,
		logger:     logger,
	}
}

// Expected returns the set of stored activity ids a report must cover: the
// ids in checklist plus every active activity in the store. Local ids are
// excluded. A store failure is logged and the tree alone is used.
func (r *Reconciler) Expected(ctx context.Context, checklist *railinspect.Checklist) map[string]struct{} {
	expected := make(map[string]struct{})
	if checklist != nil {
		for _, id := range checklist.ActivityIDs() {
			if !railinspect.IsLocalID(id) {
				expected[id] = struct{}{}
			}
		}
	}

	ids, err := r.checklists.FindActivityIDs(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "could not read activity ids from store, using checklist tree only",
			slog.String("error", err.Error()))
		return expected
	}
	for _, id := range ids {
		if !railinspect.IsLocalID(id) {
			expected[id] = struct{}{}
		}
	}
	return expected
}

// Gap returns the sorted ids of expected activities that have no result row
// for the report, without writing anything.
func (r *Reconciler) Gap(ctx context.Context, reportID uuid.UUID, checklist *railinspect.Checklist) ([]string, error) {
	expected := r.Expected(ctx, checklist)
	return r.gap(ctx, reportID, expected)
}

func (r *Reconciler) gap(ctx context.Context, reportID uuid.UUID, expected map[string]struct{}) ([]string, error) {
	existing, err := r.results.FindResults(ctx, reportID)
	if err != nil {
		return nil, railinspect.Unavailable("Existing activity results could not be read", err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, res := range existing {
		have[res.ActivityID] = struct{}{}
	}

	missing := make([]string, 0)
	for id := range expected {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return missing, nil
}

// Reconcile inserts a pending result for every expected activity that has
// none. Insert failures are logged and collected; they never abort the
// pass. Calling it again with no intervening change creates nothing.
func (r *Reconciler) Reconcile(ctx context.Context, reportID, inspectorID uuid.UUID, checklist *railinspect.Checklist) (*ReconcileResult, error) {
	missing, err := r.Gap(ctx, reportID, checklist)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Missing: missing, Failed: map[string]error{}}
	for _, activityID := range missing {
		created, err := r.results.CreatePendingResult(ctx, reportID, activityID, inspectorID)
		if err != nil {
			reconcileFailuresTotal.Inc()
			r.logger.WarnContext(ctx, "failed to create pending result",
				slog.String("report_id", reportID.String()),
				slog.String("activity_id", activityID),
				slog.String("error", err.Error()))
			result.Failed[activityID] = err
			continue
		}
		if created {
			result.Created++
		}
	}

	if result.Created > 0 {
		reconcileRowsCreatedTotal.Add(float64(result.Created))
		if r.loader != nil {
			r.loader.Invalidate(ctx, reportID)
		}
		r.logger.InfoContext(ctx, "reconciled activity results",
			slog.String("report_id", reportID.String()),
			slog.Int("created", result.Created),
			slog.Int("failed", len(result.Failed)))
	}
	return result, nil
}
