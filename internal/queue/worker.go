package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/railinspect"
)

// WorkerPool manages a pool of workers that process jobs from queues
type WorkerPool struct {
	queue    railinspect.Queue
	logger   *slog.Logger
	config   Config
	handlers map[string]railinspect.JobHandler // job_type -> handler
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue railinspect.Queue, logger *slog.Logger, config Config) *WorkerPool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return &WorkerPool{
		queue:    queue,
		logger:   logger,
		config:   config,
		handlers: make(map[string]railinspect.JobHandler),
	}
}

// RegisterHandler registers a handler for a specific job type
func (wp *WorkerPool) RegisterHandler(jobType string, handler railinspect.JobHandler) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.handlers[jobType] = handler
	wp.logger.Info("registered job handler",
		slog.String("job_type", jobType),
	)
}

// Start starts the worker pool with the configured number of workers.
// Each worker polls queueNames in order, so earlier queues take precedence.
func (wp *WorkerPool) Start(ctx context.Context, queueNames []string) error {
	wp.mu.Lock()
	if wp.cancel != nil {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool already started")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	wp.cancel = cancel
	wp.mu.Unlock()

	for i := 0; i < wp.config.WorkerCount; i++ {
		wp.wg.Add(1)
		workerID := fmt.Sprintf("worker-%d", i+1)

		go wp.worker(workerCtx, workerID, queueNames)
	}

	wp.logger.Info("worker pool started",
		slog.Int("worker_count", wp.config.WorkerCount),
		slog.Any("queues", queueNames),
	)

	return nil
}

// Stop gracefully stops the worker pool
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if wp.cancel == nil {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool not started")
	}
	cancel := wp.cancel
	wp.cancel = nil
	wp.mu.Unlock()

	wp.logger.Info("stopping worker pool")

	cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(wp.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		wp.logger.Info("worker pool stopped gracefully")
		return nil
	case <-timer.C:
		wp.logger.Warn("worker pool shutdown timeout",
			slog.Duration("timeout", wp.config.ShutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout after %v", wp.config.ShutdownTimeout)
	}
}

// worker is the main worker loop
func (wp *WorkerPool) worker(ctx context.Context, workerID string, queueNames []string) {
	defer wp.wg.Done()

	wp.logger.Debug("worker started", slog.String("worker_id", workerID))

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wp.logger.Debug("worker stopping", slog.String("worker_id", workerID))
			return

		case <-ticker.C:
			if err := wp.processNextJob(ctx, workerID, queueNames); err != nil {
				wp.logger.Error("failed to process job",
					slog.String("worker_id", workerID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// processNextJob dequeues and runs at most one job from the first queue
// that has one ready.
func (wp *WorkerPool) processNextJob(ctx context.Context, workerID string, queueNames []string) error {
	for _, name := range queueNames {
		job, err := wp.queue.Dequeue(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to dequeue job: %w", err)
		}
		if job == nil {
			continue
		}
		job.WorkerID = workerID
		return wp.executeJob(ctx, job)
	}
	return nil
}

// executeJob runs the job handler and updates the job status. Handlers
// report output by setting job.Result.
func (wp *WorkerPool) executeJob(ctx context.Context, job *railinspect.Job) error {
	logger := wp.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("queue", job.QueueName),
		slog.String("type", job.JobType),
	)
	logger.Info("processing job", slog.Int("attempt", job.AttemptCount))

	handler, exists := wp.GetHandler(job.JobType)
	if !exists {
		logger.Error("handler not found")
		return wp.queue.Fail(ctx, job.ID, fmt.Sprintf("no handler registered for job type: %s", job.JobType), false)
	}

	queueWorkersActive.Inc()
	defer queueWorkersActive.Dec()

	jobCtx, cancel := context.WithTimeout(ctx, wp.config.JobTimeout)
	defer cancel()

	startTime := time.Now()
	err := wp.safeHandle(jobCtx, handler, job)
	duration := time.Since(startTime)
	recordJob(job.JobType, duration.Seconds(), err)

	// Status updates must land even when the pool is shutting down.
	statusCtx := context.WithoutCancel(ctx)

	if err != nil {
		retry := railinspect.Retryable(err)
		logger.Error("job failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
			slog.Bool("retry", retry),
		)
		return wp.queue.Fail(statusCtx, job.ID, err.Error(), retry)
	}

	logger.Info("job completed", slog.Duration("duration", duration))
	return wp.queue.Complete(statusCtx, job.ID, job.Result)
}

// safeHandle runs a handler, turning a panic into an error.
func (wp *WorkerPool) safeHandle(ctx context.Context, handler railinspect.JobHandler, job *railinspect.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, job)
}

// GetHandler retrieves a registered handler
func (wp *WorkerPool) GetHandler(jobType string) (railinspect.JobHandler, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	handler, exists := wp.handlers[jobType]
	return handler, exists
}

// EnqueueJob is a convenience method to enqueue a job
func (wp *WorkerPool) EnqueueJob(ctx context.Context, job *railinspect.Job, opts ...railinspect.EnqueueOption) error {
	return wp.queue.Enqueue(ctx, job, opts...)
}
