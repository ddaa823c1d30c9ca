// Package postgres provides PostgreSQL implementations of domain service interfaces.
package postgres

import (
	"context"
	"log/slog"

	"github.com/dukerupert/railinspect"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the database connection pool and exposes domain services.
type DB struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	validate *validator.Validate

	// Domain services (initialized in NewDB)
	ChecklistService  railinspect.ChecklistService
	TripReportService railinspect.TripReportService
	ResultService     railinspect.ResultService
	ProfileService    railinspect.ProfileService
	SessionService    railinspect.SessionService
	AuditService      railinspect.AuditService
}

// NewDB creates a new database wrapper with all services initialized.
func NewDB(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	db := &DB{
		pool:     pool,
		logger:   logger,
		validate: newRowValidator(),
	}

	// Initialize services with reference back to DB
	db.ChecklistService = &ChecklistService{db: db}
	db.TripReportService = &TripReportService{db: db}
	db.ResultService = &ResultService{db: db}
	db.ProfileService = &ProfileService{db: db}
	db.SessionService = &SessionService{db: db}
	db.AuditService = &AuditService{db: db}

	return db
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer using service methods.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return railinspect.Unavailable("Database unreachable", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
