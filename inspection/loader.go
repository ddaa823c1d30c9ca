// Package inspection implements the checklist workflow of a trip report:
// loading the checklist tree, reconciling result rows, editing results and
// validating submission.
package inspection

import (
	"context"
	"log/slog"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Loader reads the checklist hierarchy and shapes it into a tree. When the
// store cannot serve a usable checklist it answers with the fallback tree.
type Loader struct {
	checklists railinspect.ChecklistService
	results    railinspect.ResultService
	cache      railinspect.ChecklistCache
	fallback   *railinspect.Checklist
	logger     *slog.Logger
}

// NewLoader creates a loader. fallback must be a non-empty tree, usually
// from LoadFallback.
func NewLoader(checklists railinspect.ChecklistService, results railinspect.ResultService, cache railinspect.ChecklistCache, fallback *railinspect.Checklist, logger *slog.Logger) *Loader {
	if cache == nil {
		cache = NopCache{}
	}
	return &Loader{
		checklists: checklists,
		results:    results,
		cache:      cache,
		fallback:   fallback,
		logger:     logger,
	}
}

// Load returns the active checklist. Categories without activities and
// sections without categories are dropped, and every level is sorted by
// display order. A store failure or an empty store yields the fallback
// checklist with Degraded set; the only error returned is cancellation.
func (l *Loader) Load(ctx context.Context) (*railinspect.Checklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cached, err := l.cache.Get(ctx, uuid.Nil); err != nil {
		l.logger.WarnContext(ctx, "checklist cache read failed", slog.String("error", err.Error()))
	} else if cached != nil {
		return cached, nil
	}

	sections, err := l.checklists.FindSections(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return l.degraded(ctx, railinspect.Unavailable("Checklist store is unreachable", err)), nil
	}

	sections = railinspect.Prune(sections)
	if len(sections) == 0 {
		return l.degraded(ctx, railinspect.Unavailable("Checklist store has no active sections", nil)), nil
	}
	railinspect.SortByDisplayOrder(sections)

	checklist := &railinspect.Checklist{Sections: sections}
	if err := l.cache.Set(ctx, uuid.Nil, checklist); err != nil {
		l.logger.WarnContext(ctx, "checklist cache write failed", slog.String("error", err.Error()))
	}
	return checklist, nil
}

// degraded returns a copy of the fallback checklist carrying cause.
func (l *Loader) degraded(ctx context.Context, cause error) *railinspect.Checklist {
	checklistFallbackTotal.Inc()
	l.logger.WarnContext(ctx, "serving fallback checklist", slog.String("cause", cause.Error()))

	checklist := l.fallback.Clone()
	checklist.Degraded = true
	checklist.Cause = cause
	return checklist
}

// LoadForReport returns the checklist with each activity's result attached.
// Activities without a stored result get a pending placeholder. Results are
// not read for a degraded checklist since its ids were never stored.
func (l *Loader) LoadForReport(ctx context.Context, reportID uuid.UUID) (*railinspect.Checklist, error) {
	if cached, err := l.cache.Get(ctx, reportID); err != nil {
		l.logger.WarnContext(ctx, "checklist cache read failed",
			slog.String("report_id", reportID.String()),
			slog.String("error", err.Error()))
	} else if cached != nil {
		return cached, nil
	}

	checklist, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}

	var results []*railinspect.ActivityResult
	if !checklist.Degraded {
		results, err = l.results.FindResults(ctx, reportID)
		if err != nil {
			return nil, railinspect.Unavailable("Activity results could not be read", err)
		}
	}
	AttachResults(checklist, reportID, results)

	if !checklist.Degraded {
		if err := l.cache.Set(ctx, reportID, checklist); err != nil {
			l.logger.WarnContext(ctx, "checklist cache write failed",
				slog.String("report_id", reportID.String()),
				slog.String("error", err.Error()))
		}
	}
	return checklist, nil
}

// Invalidate drops a report's cached tree. uuid.Nil drops everything.
func (l *Loader) Invalidate(ctx context.Context, reportID uuid.UUID) {
	var err error
	if reportID == uuid.Nil {
		err = l.cache.InvalidateAll(ctx)
	} else {
		err = l.cache.Invalidate(ctx, reportID)
	}
	if err != nil {
		l.logger.WarnContext(ctx, "checklist cache invalidation failed",
			slog.String("report_id", reportID.String()),
			slog.String("error", err.Error()))
	}
}

// AttachResults sets each activity's Result from results, using a pending
// placeholder where none exists. Results for unknown activities are ignored.
func AttachResults(checklist *railinspect.Checklist, reportID uuid.UUID, results []*railinspect.ActivityResult) {
	byActivity := make(map[string]*railinspect.ActivityResult, len(results))
	for _, r := range results {
		byActivity[r.ActivityID] = r
	}
	checklist.EachActivity(func(_ *railinspect.Section, _ *railinspect.Category, a *railinspect.Activity) {
		if r, ok := byActivity[a.ID]; ok {
			c := *r
			a.Result = &c
			return
		}
		a.Result = &railinspect.ActivityResult{
			TripReportID: reportID,
			ActivityID:   a.ID,
			CheckStatus:  railinspect.CheckStatusPending,
		}
	})
}
