package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/railinspect"
	railhttp "github.com/dukerupert/railinspect/http"
	"github.com/dukerupert/railinspect/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if !loadDotEnv() {
		fmt.Fprintln(os.Stderr, "warning: .env file not found, using environment variables and defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point for the application, designed for testability.
// It accepts all external dependencies (IO, args, env) as parameters and
// returns when ctx is cancelled.
func run(
	ctx context.Context,
	stdout, stderr io.Writer,
	args []string,
	getenv func(string) string,
) error {
	// Load configuration
	cfg, err := LoadConfig(getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure logger
	logger := newLogger(stderr, cfg)
	slog.SetDefault(logger)
	logger.Debug("logger initialized", slog.String("level", cfg.LogLevel))
	logger.Debug("application configuration",
		slog.String("environment", cfg.Environment),
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.Bool("one_draft_per_day", cfg.OneDraftPerDay),
		slog.String("report_timezone", cfg.ReportTimezone))

	// Create database connection pool
	pool, err := newDatabasePool(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	// Run migrations
	if err := migrations.Up(pool, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Initialize services
	services, err := initServices(ctx, pool, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}
	defer services.Close()

	// Start background work
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	if err := services.Workers.Start(workCtx, []string{railinspect.QueueCritical, railinspect.QueueDefault, railinspect.QueueLow}); err != nil {
		return fmt.Errorf("starting workers: %w", err)
	}
	go runSessionCleanup(workCtx, services.SessionService, services.Audit, cfg.AuditRetention, cfg.SessionCleanupInterval, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := railhttp.NewServer(railhttp.Config{
		Addr:              addr,
		Logger:            logger,
		SessionDuration:   cfg.SessionDuration,
		SessionSecure:     cfg.SessionSecure,
		ProfileService:    services.ProfileService,
		SessionService:    services.SessionService,
		TripReportService: services.TripReportService,
		Loader:            services.Loader,
		Reconciler:        services.Reconciler,
		Editors:           services.Editors,
		Submitter:         services.Submitter,
		Drafts:            services.Drafts,
		Exporter:          services.Exporter,
		Queue:             services.Queue,
		Pinger:            services.DB,
		Audit:             services.Audit,
	})

	if err := server.Open(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	fmt.Fprintf(stdout, "listening on %s\n", server.URL())

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer shutdownCancel()

	if err := server.Close(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown: %w", err)
	}

	cancelWork()
	if err := services.Workers.Stop(); err != nil {
		logger.Error("worker pool shutdown", slog.String("error", err.Error()))
	}

	logger.Info("server exited gracefully")
	return nil
}

// newLogger creates a configured slog.Logger based on environment.
func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("time", a.Value.Time().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// newDatabasePool creates a configured pgxpool connection pool.
func newDatabasePool(ctx context.Context, cfg *Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Debug("connecting to database")

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connection pool established")
	return pool, nil
}
