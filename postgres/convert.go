package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Rows are scanned into the structs below and validated before they are
// converted to domain types. Nothing loosely typed leaves this file.

type sectionRow struct {
	ID            string `db:"id" validate:"required,uuid"`
	SectionNumber string `db:"section_number" validate:"required"`
	Name          string `db:"name" validate:"required"`
	Description   string `db:"description"`
	DisplayOrder  int    `db:"display_order"`
}

type categoryRow struct {
	ID                   string   `db:"id" validate:"required,uuid"`
	SectionID            string   `db:"section_id" validate:"required,uuid"`
	CategoryNumber       string   `db:"category_number" validate:"required"`
	Name                 string   `db:"name" validate:"required"`
	Description          string   `db:"description"`
	ApplicableCoachTypes []string `db:"applicable_coach_types"`
	DisplayOrder         int      `db:"display_order"`
}

type activityRow struct {
	ID             string `db:"id" validate:"required,uuid"`
	CategoryID     string `db:"category_id" validate:"required,uuid"`
	ActivityNumber string `db:"activity_number" validate:"required"`
	Text           string `db:"activity_text" validate:"required"`
	IsCompulsory   bool   `db:"is_compulsory"`
	DisplayOrder   int    `db:"display_order"`
}

type resultRow struct {
	ID           uuid.UUID `db:"id" validate:"required"`
	TripReportID uuid.UUID `db:"trip_report_id" validate:"required"`
	ActivityID   string    `db:"activity_id" validate:"required,uuid"`
	CheckStatus  string    `db:"check_status" validate:"required,oneof=pending ok not_ok"`
	Remarks      string    `db:"remarks"`
	InspectorID  uuid.UUID `db:"inspector_id" validate:"required"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type reportRow struct {
	ID          uuid.UUID  `db:"id" validate:"required"`
	InspectorID uuid.UUID  `db:"inspector_id" validate:"required"`
	TrainNumber string     `db:"train_number"`
	TrainName   string     `db:"train_name"`
	Location    string     `db:"location"`
	LineNumber  string     `db:"line_number"`
	CoachType   string     `db:"coach_type"`
	RedOnTime   *time.Time `db:"red_on_time"`
	RedOffTime  *time.Time `db:"red_off_time"`
	Status      string     `db:"status" validate:"required,oneof=draft submitted approved rejected"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	SubmittedAt *time.Time `db:"submitted_at"`
	ApprovedAt  *time.Time `db:"approved_at"`
	RejectedAt  *time.Time `db:"rejected_at"`
	ReviewerID  *uuid.UUID `db:"reviewer_id"`
	ReviewNotes string     `db:"review_notes"`
}

type profileRow struct {
	ID           uuid.UUID  `db:"id" validate:"required"`
	Email        string     `db:"email" validate:"required,email"`
	PasswordHash string     `db:"password_hash" validate:"required"`
	FullName     string     `db:"full_name"`
	EmployeeID   string     `db:"employee_id"`
	Role         string     `db:"role" validate:"required,oneof=inspector manager admin"`
	Status       string     `db:"status" validate:"required,oneof=pending approved rejected"`
	StatusReason string     `db:"status_reason"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	ApprovedAt   *time.Time `db:"approved_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

// Column lists matching the row structs above.
const (
	resultColumns = `id, trip_report_id, activity_id::text AS activity_id, check_status,
		remarks, inspector_id, updated_at`

	reportColumns = `id, inspector_id, train_number, train_name, location, line_number,
		coach_type, red_on_time, red_off_time, status, created_at, updated_at,
		submitted_at, approved_at, rejected_at, reviewer_id, review_notes`

	profileColumns = `id, email, password_hash, full_name, employee_id, role, status,
		status_reason, created_at, updated_at, approved_at, last_login_at`
)

func newRowValidator() *validator.Validate {
	return validator.New()
}

// decodeRows scans every row into T and keeps those that pass validation.
// Malformed rows are logged and dropped.
func decodeRows[T any](db *DB, rows pgx.Rows, table string) ([]T, error) {
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, item := range items {
		if err := db.validate.Struct(item); err != nil {
			db.logger.Warn("dropping malformed row",
				slog.String("table", table),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// decodeRow scans exactly one row into T. A row that fails validation is
// reported as an internal error.
func decodeRow[T any](db *DB, rows pgx.Rows, table string) (T, error) {
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return item, err
	}
	if err := db.validate.Struct(item); err != nil {
		return item, railinspect.Internal(fmt.Sprintf("Malformed %s row", table), err)
	}
	return item, nil
}

func toDomainSection(r sectionRow) *railinspect.Section {
	return &railinspect.Section{
		ID:            r.ID,
		SectionNumber: r.SectionNumber,
		Name:          r.Name,
		Description:   r.Description,
		DisplayOrder:  r.DisplayOrder,
	}
}

func toDomainCategory(r categoryRow) *railinspect.Category {
	return &railinspect.Category{
		ID:                   r.ID,
		CategoryNumber:       r.CategoryNumber,
		Name:                 r.Name,
		Description:          r.Description,
		ApplicableCoachTypes: r.ApplicableCoachTypes,
		DisplayOrder:         r.DisplayOrder,
	}
}

func toDomainActivity(r activityRow) *railinspect.Activity {
	return &railinspect.Activity{
		ID:             r.ID,
		ActivityNumber: r.ActivityNumber,
		Text:           r.Text,
		IsCompulsory:   r.IsCompulsory,
		DisplayOrder:   r.DisplayOrder,
	}
}

func toDomainResult(r resultRow) *railinspect.ActivityResult {
	return &railinspect.ActivityResult{
		ID:           r.ID,
		TripReportID: r.TripReportID,
		ActivityID:   r.ActivityID,
		CheckStatus:  railinspect.CheckStatus(r.CheckStatus),
		Remarks:      r.Remarks,
		InspectorID:  r.InspectorID,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toDomainResults(rows []resultRow) []*railinspect.ActivityResult {
	out := make([]*railinspect.ActivityResult, len(rows))
	for i, r := range rows {
		out[i] = toDomainResult(r)
	}
	return out
}

func toDomainReport(r reportRow) *railinspect.TripReport {
	return &railinspect.TripReport{
		ID:          r.ID,
		InspectorID: r.InspectorID,
		TrainNumber: r.TrainNumber,
		TrainName:   r.TrainName,
		Location:    r.Location,
		LineNumber:  r.LineNumber,
		CoachType:   r.CoachType,
		RedOnTime:   r.RedOnTime,
		RedOffTime:  r.RedOffTime,
		Status:      railinspect.ReportStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		SubmittedAt: r.SubmittedAt,
		ApprovedAt:  r.ApprovedAt,
		RejectedAt:  r.RejectedAt,
		ReviewerID:  r.ReviewerID,
		ReviewNotes: r.ReviewNotes,
	}
}

func toDomainReports(rows []reportRow) []*railinspect.TripReport {
	out := make([]*railinspect.TripReport, len(rows))
	for i, r := range rows {
		out[i] = toDomainReport(r)
	}
	return out
}

func toDomainProfile(r profileRow) *railinspect.Profile {
	return &railinspect.Profile{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		EmployeeID:   r.EmployeeID,
		Role:         railinspect.Role(r.Role),
		Status:       railinspect.ProfileStatus(r.Status),
		StatusReason: r.StatusReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ApprovedAt:   r.ApprovedAt,
		LastLoginAt:  r.LastLoginAt,
	}
}

func toDomainProfiles(rows []profileRow) []*railinspect.Profile {
	out := make([]*railinspect.Profile, len(rows))
	for i, r := range rows {
		out[i] = toDomainProfile(r)
	}
	return out
}
