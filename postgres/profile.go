package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/auth"
	"github.com/google/uuid"
)

// Compile-time check that ProfileService implements railinspect.ProfileService.
var _ railinspect.ProfileService = (*ProfileService)(nil)

// ProfileService implements railinspect.ProfileService using PostgreSQL.
type ProfileService struct {
	db *DB
}

func (s *ProfileService) FindProfileByID(ctx context.Context, id uuid.UUID) (*railinspect.Profile, error) {
	row, err := s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return toDomainProfile(row), nil
}

func (s *ProfileService) FindProfileByEmail(ctx context.Context, email string) (*railinspect.Profile, error) {
	row, err := s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, err
	}
	return toDomainProfile(row), nil
}

func (s *ProfileService) FindProfiles(ctx context.Context, filter railinspect.ProfileFilter) ([]*railinspect.Profile, int, error) {
	var where []string
	var args []any
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.pool.QueryRow(ctx, `SELECT count(*) FROM profiles`+clause, args...).Scan(&total); err != nil {
		return nil, 0, wrapError(err, "", "Failed to count profiles")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	rows, err := s.db.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM profiles%s ORDER BY created_at LIMIT $%d OFFSET $%d`,
		profileColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, wrapError(err, "", "Failed to list profiles")
	}
	profiles, err := decodeRows[profileRow](s.db, rows, "profiles")
	if err != nil {
		return nil, 0, wrapError(err, "", "Failed to list profiles")
	}
	return toDomainProfiles(profiles), total, nil
}

func (s *ProfileService) CreateProfile(ctx context.Context, profile *railinspect.Profile, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return railinspect.ErrorWithFields(map[string]string{"password": err.Error()})
	}
	if profile.Role == "" {
		profile.Role = railinspect.RoleInspector
	}
	if !profile.Role.IsValid() {
		return railinspect.Invalid("Invalid role %q", profile.Role)
	}

	rows, err := s.db.pool.Query(ctx, `
		INSERT INTO profiles (email, password_hash, full_name, employee_id, role, status)
		VALUES (lower($1), $2, $3, $4, $5, 'pending')
		RETURNING `+profileColumns,
		strings.TrimSpace(profile.Email), hash, profile.FullName, profile.EmployeeID, string(profile.Role))
	if err != nil {
		return wrapError(err, "", "Failed to create profile")
	}
	row, err := decodeRow[profileRow](s.db, rows, "profiles")
	if err != nil {
		if isUniqueViolation(err) {
			return railinspect.Conflict("Email is already registered")
		}
		return wrapError(err, "", "Failed to create profile")
	}
	*profile = *toDomainProfile(row)
	return nil
}

func (s *ProfileService) VerifyPassword(ctx context.Context, email, password string) (*railinspect.Profile, error) {
	row, err := s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
	if err != nil {
		if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
			return nil, railinspect.Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if err := auth.VerifyPassword(password, row.PasswordHash); err != nil {
		return nil, railinspect.Unauthorized("Invalid email or password")
	}

	profile := toDomainProfile(row)
	switch profile.Status {
	case railinspect.ProfileStatusPending:
		return nil, railinspect.Forbidden("Your account is awaiting approval")
	case railinspect.ProfileStatusRejected:
		return nil, railinspect.Forbidden("Your account request was rejected")
	}
	return profile, nil
}

func (s *ProfileService) ReviewProfile(ctx context.Context, id uuid.UUID, status railinspect.ProfileStatus, reason string) (*railinspect.Profile, error) {
	if status != railinspect.ProfileStatusApproved && status != railinspect.ProfileStatusRejected {
		return nil, railinspect.Invalid("Decision must be approved or rejected")
	}
	row, err := s.findOne(ctx, `
		UPDATE profiles
		SET status = $2::text,
			status_reason = $3,
			approved_at = CASE WHEN $2::text = 'approved' THEN now() ELSE approved_at END,
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+profileColumns,
		id, string(status), reason)
	if railinspect.IsErrorCode(err, railinspect.ENOTFOUND) {
		existing, findErr := s.FindProfileByID(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		return nil, railinspect.Invalid("Profile is already %s", existing.Status)
	}
	if err != nil {
		return nil, err
	}
	return toDomainProfile(row), nil
}

func (s *ProfileService) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.pool.Exec(ctx, `UPDATE profiles SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return wrapError(err, "", "Failed to update last login")
	}
	return nil
}

func (s *ProfileService) findOne(ctx context.Context, query string, args ...any) (profileRow, error) {
	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return profileRow{}, wrapError(err, "Profile not found", "Failed to fetch profile")
	}
	row, err := decodeRow[profileRow](s.db, rows, "profiles")
	if err != nil {
		return profileRow{}, wrapError(err, "Profile not found", "Failed to fetch profile")
	}
	return row, nil
}
