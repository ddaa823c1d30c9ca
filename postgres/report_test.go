package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripReportService_SubmitReport(t *testing.T) {
	tdb := setupTestDB(t)
	report := tdb.createDraft(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	submitted, err := tdb.TripReportService.SubmitReport(ctx, report.ID, railinspect.ReportFields{
		TrainNumber: " 12951 ",
		TrainName:   "Rajdhani Express",
		Location:    "Mumbai Central",
	}, at)
	require.NoError(t, err)
	assert.Equal(t, railinspect.ReportStatusSubmitted, submitted.Status)
	assert.Equal(t, "12951", submitted.TrainNumber)
	assert.Equal(t, "Mumbai Central", submitted.Location)
	require.NotNil(t, submitted.SubmittedAt)
	assert.True(t, at.Equal(*submitted.SubmittedAt))

	// Fields and status were written together.
	stored, err := tdb.TripReportService.FindReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.ReportStatusSubmitted, stored.Status)
	assert.Equal(t, "Rajdhani Express", stored.TrainName)
}

func TestTripReportService_SubmitReportRequiresDraft(t *testing.T) {
	tdb := setupTestDB(t)
	report := tdb.createDraft(t)
	ctx := context.Background()
	fields := railinspect.ReportFields{TrainNumber: "12951", Location: "Pune"}

	_, err := tdb.TripReportService.SubmitReport(ctx, report.ID, fields, time.Now())
	require.NoError(t, err)

	_, err = tdb.TripReportService.SubmitReport(ctx, report.ID, railinspect.ReportFields{TrainNumber: "99999", Location: "Elsewhere"}, time.Now())
	assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))

	stored, err := tdb.TripReportService.FindReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "12951", stored.TrainNumber)

	_, err = tdb.TripReportService.ReviewReport(ctx, report.ID, tdb.managerID, railinspect.ReportStatusApproved, "ok", time.Now())
	require.NoError(t, err)
	_, err = tdb.TripReportService.SubmitReport(ctx, report.ID, fields, time.Now())
	assert.Equal(t, railinspect.EINVALID, railinspect.ErrorCode(err))
}
