// Package queue runs background jobs: a worker pool over railinspect.Queue
// and an in-memory queue for development and tests.
package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds worker pool settings.
type Config struct {
	WorkerCount     int
	PollInterval    time.Duration
	JobTimeout      time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default worker pool configuration.
func DefaultConfig() Config {
	qc := railinspect.DefaultQueueConfig()
	return Config{
		WorkerCount:     qc.WorkerCount,
		PollInterval:    qc.PollInterval,
		JobTimeout:      qc.JobTimeout,
		ShutdownTimeout: 30 * time.Second,
	}
}

// NewQueue creates a queue instance based on the provider configuration.
func NewQueue(pool *pgxpool.Pool, logger *slog.Logger, cfg railinspect.QueueConfig) (railinspect.Queue, error) {
	switch cfg.Provider {
	case "postgres", "":
		if pool == nil {
			return nil, fmt.Errorf("postgres queue requires a connection pool")
		}
		logger.Info("initialized PostgreSQL queue",
			slog.Int("worker_count", cfg.WorkerCount),
			slog.Duration("poll_interval", cfg.PollInterval),
		)
		return postgres.NewQueue(pool, logger, cfg), nil

	case "memory":
		logger.Info("initialized in-memory queue")
		return NewMemoryQueue(), nil

	default:
		return nil, fmt.Errorf("unknown queue provider: %s", cfg.Provider)
	}
}
