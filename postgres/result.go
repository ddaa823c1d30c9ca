package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time check that ResultService implements railinspect.ResultService.
var _ railinspect.ResultService = (*ResultService)(nil)

// ResultService implements railinspect.ResultService using PostgreSQL.
// Every write is keyed on (trip_report_id, activity_id) and touches only
// the column it was asked to change. Upserts only land on draft reports.
type ResultService struct {
	db *DB
}

func (s *ResultService) FindResults(ctx context.Context, reportID uuid.UUID) ([]*railinspect.ActivityResult, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT `+resultColumns+`
		FROM trip_activity_results
		WHERE trip_report_id = $1
		ORDER BY activity_id`, reportID)
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch activity results")
	}
	results, err := decodeRows[resultRow](s.db, rows, "trip_activity_results")
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch activity results")
	}
	return toDomainResults(results), nil
}

func (s *ResultService) FindResult(ctx context.Context, reportID uuid.UUID, activityID string) (*railinspect.ActivityResult, error) {
	if railinspect.IsLocalID(activityID) {
		return nil, railinspect.NotFound("Result not found")
	}
	rows, err := s.db.pool.Query(ctx, `
		SELECT `+resultColumns+`
		FROM trip_activity_results
		WHERE trip_report_id = $1 AND activity_id = $2::uuid`, reportID, activityID)
	if err != nil {
		return nil, wrapError(err, "Result not found", "Failed to fetch activity result")
	}
	result, err := decodeRow[resultRow](s.db, rows, "trip_activity_results")
	if err != nil {
		return nil, wrapError(err, "Result not found", "Failed to fetch activity result")
	}
	return toDomainResult(result), nil
}

func (s *ResultService) CreatePendingResult(ctx context.Context, reportID uuid.UUID, activityID string, inspectorID uuid.UUID) (bool, error) {
	if railinspect.IsLocalID(activityID) {
		return false, railinspect.Invalid("Activity %s is not persisted", activityID)
	}
	tag, err := s.db.pool.Exec(ctx, `
		INSERT INTO trip_activity_results (trip_report_id, activity_id, check_status, remarks, inspector_id)
		VALUES ($1, $2::uuid, 'pending', '', $3)
		ON CONFLICT (trip_report_id, activity_id) DO NOTHING`,
		reportID, activityID, inspectorID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, railinspect.NotFound("Report or activity not found")
		}
		return false, wrapError(err, "", "Failed to create activity result")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *ResultService) UpsertCheckStatus(ctx context.Context, reportID uuid.UUID, activityID string, status railinspect.CheckStatus, inspectorID uuid.UUID) (*railinspect.ActivityResult, error) {
	if !status.IsValid() {
		return nil, railinspect.Invalid("Invalid check status %q", status)
	}
	return s.upsert(ctx, `
		INSERT INTO trip_activity_results (trip_report_id, activity_id, check_status, remarks, inspector_id)
		SELECT $1::uuid, $2::uuid, $3::text, '', $4::uuid
		WHERE EXISTS (SELECT 1 FROM trip_reports WHERE id = $1 AND status = 'draft')
		ON CONFLICT (trip_report_id, activity_id) DO UPDATE
		SET check_status = EXCLUDED.check_status,
			inspector_id = EXCLUDED.inspector_id,
			updated_at = now()
		RETURNING `+resultColumns,
		reportID, activityID, string(status), inspectorID)
}

func (s *ResultService) UpsertRemarks(ctx context.Context, reportID uuid.UUID, activityID string, remarks string, inspectorID uuid.UUID) (*railinspect.ActivityResult, error) {
	return s.upsert(ctx, `
		INSERT INTO trip_activity_results (trip_report_id, activity_id, check_status, remarks, inspector_id)
		SELECT $1::uuid, $2::uuid, 'pending', $3::text, $4::uuid
		WHERE EXISTS (SELECT 1 FROM trip_reports WHERE id = $1 AND status = 'draft')
		ON CONFLICT (trip_report_id, activity_id) DO UPDATE
		SET remarks = EXCLUDED.remarks,
			inspector_id = EXCLUDED.inspector_id,
			updated_at = now()
		RETURNING `+resultColumns,
		reportID, activityID, remarks, inspectorID)
}

func (s *ResultService) upsert(ctx context.Context, query string, reportID uuid.UUID, activityID string, value string, inspectorID uuid.UUID) (*railinspect.ActivityResult, error) {
	if railinspect.IsLocalID(activityID) {
		return nil, railinspect.Invalid("Activity %s is not persisted", activityID)
	}
	rows, err := s.db.pool.Query(ctx, query, reportID, activityID, value, inspectorID)
	if err != nil {
		return nil, wrapError(err, "", "Failed to save activity result")
	}
	result, err := decodeRow[resultRow](s.db, rows, "trip_activity_results")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The draft guard matched nothing.
			reports := &TripReportService{db: s.db}
			return nil, reports.transitionError(ctx, reportID, "edit")
		}
		if isForeignKeyViolation(err) {
			return nil, railinspect.NotFound("Report or activity not found")
		}
		return nil, wrapError(err, "", "Failed to save activity result")
	}
	return toDomainResult(result), nil
}
