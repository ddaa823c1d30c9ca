package inspection

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setStatuses(map[string]railinspect.CheckStatus{"act-2": railinspect.CheckStatusOK})

	checklist, err := f.loader.Load(ctx)
	require.NoError(t, err)

	res, err := f.reconciler.Reconcile(ctx, f.report.ID, f.inspector.ID, checklist)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, []string{"act-1", "act-3", "act-4"}, res.Missing)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 4, f.results.Len(f.report.ID))

	// Existing rows are untouched.
	existing, err := f.results.FindResult(ctx, f.report.ID, "act-2")
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusOK, existing.CheckStatus)

	t.Run("second call creates nothing", func(t *testing.T) {
		res, err := f.reconciler.Reconcile(ctx, f.report.ID, f.inspector.ID, checklist)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Empty(t, res.Missing)
		assert.Equal(t, 4, f.results.Len(f.report.ID))
	})
}

func TestReconcileIncludesStoreOnlyActivities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.checklists.FindActivityIDsFn = func(ctx context.Context) ([]string, error) {
		return []string{"act-1", "act-9"}, nil
	}

	checklist, err := f.loader.Load(ctx)
	require.NoError(t, err)

	res, err := f.reconciler.Reconcile(ctx, f.report.ID, f.inspector.ID, checklist)
	require.NoError(t, err)
	assert.Equal(t, []string{"act-1", "act-2", "act-3", "act-4", "act-9"}, res.Missing)
}

func TestReconcileSkipsLocalIDs(t *testing.T) {
	f := newFixture(t)
	fallback, err := LoadFallback("")
	require.NoError(t, err)
	f.checklists.FindActivityIDsFn = func(ctx context.Context) ([]string, error) {
		return nil, errors.New("unreachable")
	}

	res, err := f.reconciler.Reconcile(context.Background(), f.report.ID, f.inspector.ID, fallback)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, res.Missing)
}

func TestReconcileCollectsInsertFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.results.CreatePendingResultFn = func(ctx context.Context, reportID uuid.UUID, activityID string, inspectorID uuid.UUID) (bool, error) {
		if activityID == "act-3" {
			return false, railinspect.Forbidden("Permission denied")
		}
		return true, nil
	}

	checklist, err := f.loader.Load(ctx)
	require.NoError(t, err)

	res, err := f.reconciler.Reconcile(ctx, f.report.ID, f.inspector.ID, checklist)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	require.Contains(t, res.Failed, "act-3")
	assert.Equal(t, railinspect.EFORBIDDEN, railinspect.ErrorCode(res.Failed["act-3"]))
}

func TestReconcileCountsOnlyInsertedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// A concurrent writer already created the rows.
	f.results.CreatePendingResultFn = func(ctx context.Context, reportID uuid.UUID, activityID string, inspectorID uuid.UUID) (bool, error) {
		return false, nil
	}

	checklist, err := f.loader.Load(ctx)
	require.NoError(t, err)

	res, err := f.reconciler.Reconcile(ctx, f.report.ID, f.inspector.ID, checklist)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Len(t, res.Missing, 4)
}

func TestReconcileResultsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.results.FindResultsFn = func(ctx context.Context, reportID uuid.UUID) ([]*railinspect.ActivityResult, error) {
		return nil, errors.New("connection reset")
	}

	checklist, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	_, err = f.reconciler.Reconcile(context.Background(), f.report.ID, f.inspector.ID, checklist)
	assert.Equal(t, railinspect.EUNAVAILABLE, railinspect.ErrorCode(err))
}

func TestGapDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	checklist, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	gap, err := f.reconciler.Gap(context.Background(), f.report.ID, checklist)
	require.NoError(t, err)
	assert.Len(t, gap, 4)
	assert.Equal(t, 0, f.results.Len(f.report.ID))
}
