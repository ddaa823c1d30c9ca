package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type testDB struct {
	*DB
	inspectorID uuid.UUID
	managerID   uuid.UUID
	activityIDs []string
}

// setupTestDB migrates the database named by GOOSE_DBSTRING and seeds two
// profiles and an inactive checklist section with two activities. Seeded
// rows are removed when the test ends.
func setupTestDB(t *testing.T) *testDB {
	t.Helper()

	connString := os.Getenv("GOOSE_DBSTRING")
	if connString == "" {
		t.Skip("GOOSE_DBSTRING not set, skipping integration tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migrations.Up(pool, logger))

	tdb := &testDB{DB: NewDB(pool, logger)}

	insertProfile := func(role railinspect.Role) uuid.UUID {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO profiles (email, password_hash, role, status)
			VALUES ($1, 'not-a-hash', $2, 'approved')
			RETURNING id`, string(role)+"-"+uuid.NewString()+"@example.com", string(role)).Scan(&id)
		require.NoError(t, err)
		return id
	}
	tdb.inspectorID = insertProfile(railinspect.RoleInspector)
	tdb.managerID = insertProfile(railinspect.RoleManager)

	// Inactive so the seeded checklist is not served by FindSections.
	var sectionID, categoryID uuid.UUID
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO inspection_sections (section_number, name, is_active)
		VALUES ('99', 'Test section', false)
		RETURNING id`).Scan(&sectionID))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO inspection_categories (section_id, category_number, name)
		VALUES ($1, '99.1', 'Test category')
		RETURNING id`, sectionID).Scan(&categoryID))
	for _, number := range []string{"99.1.1", "99.1.2"} {
		var id uuid.UUID
		require.NoError(t, pool.QueryRow(ctx, `
			INSERT INTO inspection_activities (category_id, activity_number, activity_text)
			VALUES ($1, $2, 'Test activity')
			RETURNING id`, categoryID, number).Scan(&id))
		tdb.activityIDs = append(tdb.activityIDs, id.String())
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DELETE FROM trip_reports WHERE inspector_id = $1", tdb.inspectorID)
		_, _ = pool.Exec(ctx, "DELETE FROM inspection_sections WHERE id = $1", sectionID)
		_, _ = pool.Exec(ctx, "DELETE FROM profiles WHERE id IN ($1, $2)", tdb.inspectorID, tdb.managerID)
		pool.Close()
	})
	return tdb
}

// createDraft inserts a draft report for the seeded inspector.
func (tdb *testDB) createDraft(t *testing.T) *railinspect.TripReport {
	t.Helper()
	report := &railinspect.TripReport{InspectorID: tdb.inspectorID, TrainNumber: "12951"}
	require.NoError(t, tdb.TripReportService.CreateReport(context.Background(), report))
	require.Equal(t, railinspect.ReportStatusDraft, report.Status)
	return report
}
