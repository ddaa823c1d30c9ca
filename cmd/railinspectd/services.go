package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/export"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/dukerupert/railinspect/internal/audit"
	"github.com/dukerupert/railinspect/internal/email"
	"github.com/dukerupert/railinspect/internal/queue"
	"github.com/dukerupert/railinspect/internal/session"
	"github.com/dukerupert/railinspect/internal/storage"
	"github.com/dukerupert/railinspect/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Services holds all application services.
type Services struct {
	DB *postgres.DB

	ProfileService    railinspect.ProfileService
	SessionService    *session.CachedSessionService
	TripReportService railinspect.TripReportService

	Cache      railinspect.ChecklistCache
	Loader     *inspection.Loader
	Reconciler *inspection.Reconciler
	Editors    *inspection.Editors
	Submitter  *inspection.Submitter
	Drafts     *inspection.Drafts
	Exporter   *export.Service

	FileStorage  railinspect.FileStorage
	EmailService railinspect.EmailService
	Queue        railinspect.Queue
	Workers      *queue.WorkerPool
	Audit        *audit.Logger
}

// initServices initializes all application services.
func initServices(ctx context.Context, pool *pgxpool.Pool, cfg *Config, logger *slog.Logger) (*Services, error) {
	// Initialize database wrapper with all domain services
	db := postgres.NewDB(pool, logger)
	logger.Info("database services initialized")

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Checklist loading
	cache, err := inspection.NewCache(ctx, logger, cfg.CacheConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing checklist cache: %w", err)
	}
	fallback, err := inspection.LoadFallback(cfg.FallbackChecklistPath)
	if err != nil {
		return nil, fmt.Errorf("loading fallback checklist: %w", err)
	}
	loader := inspection.NewLoader(db.ChecklistService, db.ResultService, cache, fallback, logger)
	reconciler := inspection.NewReconciler(db.ChecklistService, db.ResultService, loader, logger)
	editors := inspection.NewEditors(db.TripReportService, db.ResultService, loader, reconciler, cfg.EditorIdleTTL, logger)
	submitter := inspection.NewSubmitter(db.TripReportService, db.ResultService, loader, reconciler, editors, inspection.SubmitConfig{
		ConfirmThreshold:  cfg.SubmitConfirmThreshold,
		FormMinCompletion: cfg.FormMinCompletion,
	}, logger)
	drafts := inspection.NewDrafts(db.TripReportService, inspection.DraftPolicy{
		OneDraftPerDay: cfg.OneDraftPerDay,
		Location:       location,
	}, logger)
	logger.Info("inspection components initialized",
		slog.String("cache", cfg.CacheProvider),
		slog.Int("fallback_activities", len(fallback.ActivityIDs())))

	// Initialize file storage
	fileStorage, err := storage.NewFileStorage(ctx, logger, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing file storage: %w", err)
	}
	logger.Info("file storage initialized", slog.String("provider", cfg.StorageProvider))

	// Initialize email service
	emailService := email.NewEmailService(logger, cfg.EmailConfig())
	logger.Info("email service initialized", slog.String("provider", cfg.EmailProvider))

	printer := export.NewPrinter(cfg.PDFProvider, cfg.PDFTimeout)
	exporter := export.NewService(db.TripReportService, db.ProfileService, loader, fileStorage, emailService, printer, location, logger)

	// Initialize queue and workers
	q, err := queue.NewQueue(pool, logger, cfg.QueueConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing queue: %w", err)
	}
	workers := queue.NewWorkerPool(q, logger, queue.Config{
		WorkerCount:     cfg.QueueWorkerCount,
		PollInterval:    cfg.QueuePollInterval,
		JobTimeout:      cfg.QueueJobTimeout,
		ShutdownTimeout: cfg.QueueShutdownTimeout,
	})
	workers.RegisterHandler(railinspect.JobTypeReportGeneration, exporter)
	workers.RegisterHandler(railinspect.JobTypeSignupDecision, email.NewSignupDecisionHandler(db.ProfileService, emailService, logger))

	return &Services{
		DB:                db,
		ProfileService:    db.ProfileService,
		SessionService:    session.NewCachedSessionService(db.SessionService, cfg.SessionCacheTTL),
		TripReportService: db.TripReportService,
		Cache:             cache,
		Loader:            loader,
		Reconciler:        reconciler,
		Editors:           editors,
		Submitter:         submitter,
		Drafts:            drafts,
		Exporter:          exporter,
		FileStorage:       fileStorage,
		EmailService:      emailService,
		Queue:             q,
		Workers:           workers,
		Audit:             audit.NewLogger(db.AuditService, logger),
	}, nil
}

// Close releases resources held by services. The database pool is closed
// by its owner.
func (s *Services) Close() error {
	if c, ok := s.Cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// runSessionCleanup periodically deletes expired sessions, and audit entries
// past retention when it is set, until ctx is done.
func runSessionCleanup(ctx context.Context, sessions railinspect.SessionService, auditLog *audit.Logger, retention, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Error("session cleanup failed", slog.String("error", err.Error()))
			} else if n > 0 {
				logger.Info("expired sessions removed", slog.Int("count", n))
			}
			if retention > 0 {
				if _, err := auditLog.Prune(ctx, retention); err != nil {
					logger.Error("audit prune failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}
