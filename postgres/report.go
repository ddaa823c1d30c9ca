package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time check that TripReportService implements railinspect.TripReportService.
var _ railinspect.TripReportService = (*TripReportService)(nil)

// TripReportService implements railinspect.TripReportService using PostgreSQL.
type TripReportService struct {
	db *DB
}

func (s *TripReportService) FindReportByID(ctx context.Context, id uuid.UUID) (*railinspect.TripReport, error) {
	return s.queryOne(ctx, "Failed to fetch report",
		`SELECT `+reportColumns+` FROM trip_reports WHERE id = $1`, id)
}

func (s *TripReportService) FindReports(ctx context.Context, filter railinspect.ReportFilter) ([]*railinspect.TripReport, int, error) {
	var where []string
	var args []any
	if filter.InspectorID != nil {
		args = append(args, *filter.InspectorID)
		where = append(where, fmt.Sprintf("inspector_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.pool.QueryRow(ctx, `SELECT count(*) FROM trip_reports`+clause, args...).Scan(&total); err != nil {
		return nil, 0, wrapError(err, "", "Failed to count reports")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM trip_reports%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reportColumns, clause, len(args)-1, len(args))

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapError(err, "", "Failed to list reports")
	}
	reports, err := decodeRows[reportRow](s.db, rows, "trip_reports")
	if err != nil {
		return nil, 0, wrapError(err, "", "Failed to list reports")
	}
	return toDomainReports(reports), total, nil
}

func (s *TripReportService) FindDraftForDay(ctx context.Context, inspectorID uuid.UUID, dayStart time.Time) (*railinspect.TripReport, error) {
	report, err := s.queryOne(ctx, "Failed to fetch draft",
		`SELECT `+reportColumns+`
		FROM trip_reports
		WHERE inspector_id = $1 AND status = 'draft'
			AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT 1`,
		inspectorID, dayStart, dayStart.Add(24*time.Hour))
	if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
		return nil, railinspect.NotFound("No draft for this day")
	}
	return report, err
}

func (s *TripReportService) CreateReport(ctx context.Context, report *railinspect.TripReport) error {
	rows, err := s.db.pool.Query(ctx, `
		INSERT INTO trip_reports (inspector_id, train_number, train_name, location,
			line_number, coach_type, red_on_time, red_off_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'draft')
		RETURNING `+reportColumns,
		report.InspectorID, report.TrainNumber, report.TrainName, report.Location,
		report.LineNumber, report.CoachType, report.RedOnTime, report.RedOffTime)
	if err != nil {
		return wrapError(err, "", "Failed to create report")
	}
	row, err := decodeRow[reportRow](s.db, rows, "trip_reports")
	if err != nil {
		if isForeignKeyViolation(err) {
			return railinspect.NotFound("Inspector not found")
		}
		return wrapError(err, "", "Failed to create report")
	}
	*report = *toDomainReport(row)
	return nil
}

func (s *TripReportService) UpdateReport(ctx context.Context, id uuid.UUID, upd railinspect.ReportUpdate) (*railinspect.TripReport, error) {
	report, err := s.queryOne(ctx, "Failed to update report", `
		UPDATE trip_reports
		SET train_number = COALESCE($2, train_number),
			train_name = COALESCE($3, train_name),
			location = COALESCE($4, location),
			line_number = COALESCE($5, line_number),
			coach_type = COALESCE($6, coach_type),
			red_on_time = COALESCE($7, red_on_time),
			red_off_time = COALESCE($8, red_off_time),
			updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+reportColumns,
		id, upd.TrainNumber, upd.TrainName, upd.Location, upd.LineNumber,
		upd.CoachType, upd.RedOnTime, upd.RedOffTime)
	if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
		return nil, s.transitionError(ctx, id, "edit")
	}
	return report, err
}

func (s *TripReportService) SubmitReport(ctx context.Context, id uuid.UUID, fields railinspect.ReportFields, at time.Time) (*railinspect.TripReport, error) {
	report, err := s.queryOne(ctx, "Failed to submit report", `
		UPDATE trip_reports
		SET status = 'submitted',
			submitted_at = $2,
			train_number = $3,
			train_name = $4,
			location = $5,
			line_number = $6,
			coach_type = COALESCE(NULLIF($7, ''), coach_type),
			red_on_time = COALESCE($8, red_on_time),
			red_off_time = COALESCE($9, red_off_time),
			updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+reportColumns,
		id, at, strings.TrimSpace(fields.TrainNumber), fields.TrainName,
		strings.TrimSpace(fields.Location), fields.LineNumber, fields.CoachType,
		fields.RedOnTime, fields.RedOffTime)
	if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
		return nil, s.transitionError(ctx, id, "submit")
	}
	return report, err
}

func (s *TripReportService) ReviewReport(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, status railinspect.ReportStatus, notes string, at time.Time) (*railinspect.TripReport, error) {
	if !railinspect.ReportStatusSubmitted.CanTransitionTo(status) {
		return nil, railinspect.Invalid("Review decision must be approved or rejected")
	}
	report, err := s.queryOne(ctx, "Failed to review report", `
		UPDATE trip_reports
		SET status = $2::text,
			reviewer_id = $3,
			review_notes = $4,
			approved_at = CASE WHEN $2::text = 'approved' THEN $5::timestamptz ELSE approved_at END,
			rejected_at = CASE WHEN $2::text = 'rejected' THEN $5::timestamptz ELSE rejected_at END,
			updated_at = now()
		WHERE id = $1 AND status = 'submitted'
		RETURNING `+reportColumns,
		id, string(status), reviewerID, notes, at)
	if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
		return nil, s.transitionError(ctx, id, "review")
	}
	return report, err
}

func (s *TripReportService) DeleteReport(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM trip_reports WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return wrapError(err, "", "Failed to delete report")
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, id, "delete")
	}
	return nil
}

// queryOne runs a statement returning a single report row.
func (s *TripReportService) queryOne(ctx context.Context, msg string, query string, args ...any) (*railinspect.TripReport, error) {
	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "Report not found", msg)
	}
	row, err := decodeRow[reportRow](s.db, rows, "trip_reports")
	if err != nil {
		return nil, wrapError(err, "Report not found", msg)
	}
	return toDomainReport(row), nil
}

// transitionError explains why a guarded update matched no row.
func (s *TripReportService) transitionError(ctx context.Context, id uuid.UUID, action string) error {
	report, err := s.FindReportByID(ctx, id)
	if err != nil {
		return err
	}
	return railinspect.Invalid("Cannot %s a report in %s status", action, report.Status)
}
