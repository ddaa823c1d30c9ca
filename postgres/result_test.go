package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultService_UpsertsDoNotClobber(t *testing.T) {
	tdb := setupTestDB(t)
	report := tdb.createDraft(t)
	ctx := context.Background()
	activity := tdb.activityIDs[0]

	_, err := tdb.ResultService.UpsertCheckStatus(ctx, report.ID, activity, railinspect.CheckStatusOK, tdb.inspectorID)
	require.NoError(t, err)
	stored, err := tdb.ResultService.UpsertRemarks(ctx, report.ID, activity, "x", tdb.inspectorID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusOK, stored.CheckStatus)
	assert.Equal(t, "x", stored.Remarks)

	_, err = tdb.ResultService.UpsertCheckStatus(ctx, report.ID, activity, railinspect.CheckStatusNotOK, tdb.inspectorID)
	require.NoError(t, err)

	stored, err = tdb.ResultService.FindResult(ctx, report.ID, activity)
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusNotOK, stored.CheckStatus)
	assert.Equal(t, "x", stored.Remarks)
}

func TestResultService_CreatePendingResultIsIdempotent(t *testing.T) {
	tdb := setupTestDB(t)
	report := tdb.createDraft(t)
	ctx := context.Background()

	created, err := tdb.ResultService.CreatePendingResult(ctx, report.ID, tdb.activityIDs[0], tdb.inspectorID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = tdb.ResultService.CreatePendingResult(ctx, report.ID, tdb.activityIDs[0], tdb.inspectorID)
	require.NoError(t, err)
	assert.False(t, created)

	// An existing checked row is left alone.
	_, err = tdb.ResultService.UpsertCheckStatus(ctx, report.ID, tdb.activityIDs[1], railinspect.CheckStatusOK, tdb.inspectorID)
	require.NoError(t, err)
	created, err = tdb.ResultService.CreatePendingResult(ctx, report.ID, tdb.activityIDs[1], tdb.inspectorID)
	require.NoError(t, err)
	assert.False(t, created)

	results, err := tdb.ResultService.FindResults(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	stored, err := tdb.ResultService.FindResult(ctx, report.ID, tdb.activityIDs[1])
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusOK, stored.CheckStatus)
}

func TestResultService_UpsertRequiresDraft(t *testing.T) {
	tdb := setupTestDB(t)
	report := tdb.createDraft(t)
	ctx := context.Background()
	activity := tdb.activityIDs[0]

	created, err := tdb.ResultService.CreatePendingResult(ctx, report.ID, activity, tdb.inspectorID)
	require.NoError(t, err)
	require.True(t, created)

	_, err = tdb.TripReportService.SubmitReport(ctx, report.ID, railinspect.ReportFields{TrainNumber: "12951", Location: "Pune"}, time.Now())
	require.NoError(t, err)

	_, err = tdb.ResultService.UpsertCheckStatus(ctx, report.ID, activity, railinspect.CheckStatusNotOK, tdb.inspectorID)
	assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))
	_, err = tdb.ResultService.UpsertRemarks(ctx, report.ID, activity, "late", tdb.inspectorID)
	assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))

	stored, err := tdb.ResultService.FindResult(ctx, report.ID, activity)
	require.NoError(t, err)
	assert.Equal(t, railinspect.CheckStatusPending, stored.CheckStatus)
	assert.Empty(t, stored.Remarks)
}

func TestResultService_LocalActivityRejected(t *testing.T) {
	tdb := setupTestDB(t)
	report := tdb.createDraft(t)

	_, err := tdb.ResultService.UpsertRemarks(context.Background(), report.ID, "local-act-1", "x", tdb.inspectorID)
	assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))
}
