package inspection

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftsCreate(t *testing.T) {
	inspector := &railinspect.Profile{ID: uuid.New(), Role: railinspect.RoleInspector}
	ctx := railinspect.NewContextWithProfile(context.Background(), inspector)

	t.Run("one draft per day", func(t *testing.T) {
		reports := &mock.TripReportService{}
		drafts := NewDrafts(reports, DraftPolicy{OneDraftPerDay: true}, testLogger())

		first, created, err := drafts.Create(ctx, validFields())
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, railinspect.ReportStatusDraft, first.Status)
		assert.Equal(t, inspector.ID, first.InspectorID)

		second, created, err := drafts.Create(ctx, railinspect.ReportFields{})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("next day gets a new draft", func(t *testing.T) {
		reports := &mock.TripReportService{}
		drafts := NewDrafts(reports, DraftPolicy{OneDraftPerDay: true}, testLogger())

		first, _, err := drafts.Create(ctx, validFields())
		require.NoError(t, err)

		drafts.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
		second, created, err := drafts.Create(ctx, validFields())
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("policy disabled", func(t *testing.T) {
		reports := &mock.TripReportService{}
		drafts := NewDrafts(reports, DraftPolicy{}, testLogger())

		first, _, err := drafts.Create(ctx, validFields())
		require.NoError(t, err)
		second, created, err := drafts.Create(ctx, validFields())
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("requires a profile", func(t *testing.T) {
		drafts := NewDrafts(&mock.TripReportService{}, DraftPolicy{}, testLogger())
		_, _, err := drafts.Create(context.Background(), validFields())
		assert.Equal(t, railinspect.EUNAUTHORIZED, railinspect.ErrorCode(err))
	})
}

func TestDraftsDayStartUsesLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	drafts := NewDrafts(&mock.TripReportService{}, DraftPolicy{Location: loc}, testLogger())
	// 20:00 UTC is 01:30 the next day in IST.
	drafts.now = func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) }

	start := drafts.dayStart()
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), start)
}
