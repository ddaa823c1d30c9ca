package railinspect

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Queue defines operations for a job queue.
type Queue interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *Job, opts ...EnqueueOption) error

	// Dequeue retrieves the next available job from a queue.
	// Returns nil if no jobs are available.
	Dequeue(ctx context.Context, queueName string) (*Job, error)

	// Complete marks a job as completed with optional result data.
	Complete(ctx context.Context, jobID uuid.UUID, result []byte) error

	// Fail records a failed attempt. When retry is set and attempts remain
	// the job is rescheduled with backoff, otherwise it is marked failed.
	Fail(ctx context.Context, jobID uuid.UUID, errMsg string, retry bool) error

	// GetJob retrieves a job by its ID.
	// Returns ENOTFOUND if the job does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// CancelJob cancels a pending job.
	// Returns EINVALID if the job is already running or completed.
	CancelJob(ctx context.Context, jobID uuid.UUID) error

	// GetPendingJobs retrieves pending jobs for a trip report.
	GetPendingJobs(ctx context.Context, reportID uuid.UUID, queueName string) ([]*Job, error)
}

// Job represents a background job.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	QueueName    string     `json:"queueName"`
	JobType      string     `json:"jobType"`
	ReportID     uuid.UUID  `json:"reportId"`
	Payload      []byte     `json:"payload"`
	Status       JobStatus  `json:"status"`
	Priority     int        `json:"priority"`
	MaxAttempts  int        `json:"maxAttempts"`
	AttemptCount int        `json:"attemptCount"`
	ScheduledAt  time.Time  `json:"scheduledAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Result       []byte     `json:"result,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	WorkerID     string     `json:"workerId,omitempty"`
}

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true if the job is in a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job types.
const (
	JobTypeReportGeneration = "report_generation"
	JobTypeSignupDecision   = "signup_decision_email"
)

// Common queue names.
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
	QueueLow      = "low"
)

// RetryBackoff returns the delay before the next attempt of a job that
// has already run attempt times.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 10 {
		attempt = 10
	}
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// EnqueueOption configures job enqueueing.
type EnqueueOption func(*EnqueueOptions)

// EnqueueOptions is the resolved set of enqueue options.
type EnqueueOptions struct {
	Priority    int
	MaxAttempts int
	ScheduledAt time.Time
	Delay       time.Duration
}

// ApplyEnqueueOptions resolves opts against the job's current values.
func ApplyEnqueueOptions(job *Job, opts ...EnqueueOption) {
	o := EnqueueOptions{Priority: job.Priority, MaxAttempts: job.MaxAttempts, ScheduledAt: job.ScheduledAt}
	for _, opt := range opts {
		opt(&o)
	}
	job.Priority = o.Priority
	job.MaxAttempts = o.MaxAttempts
	job.ScheduledAt = o.ScheduledAt
	if o.Delay > 0 {
		job.ScheduledAt = time.Now().Add(o.Delay)
	}
}

// WithPriority sets the job priority (higher = more important).
func WithPriority(priority int) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.Priority = priority
	}
}

// WithMaxAttempts sets the maximum retry attempts.
func WithMaxAttempts(attempts int) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.Delay = d
	}
}

// QueueConfig holds configuration for the job queue.
type QueueConfig struct {
	// Provider is the queue provider ("postgres" or "memory").
	Provider string

	// WorkerCount is the number of concurrent workers.
	WorkerCount int

	// PollInterval is how often to poll for jobs.
	PollInterval time.Duration

	// JobTimeout is the maximum time a job can run.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Provider:     "postgres",
		WorkerCount:  3,
		PollInterval: time.Second,
		JobTimeout:   60 * time.Second,
	}
}

// JobHandler handles processing of a specific job type.
type JobHandler interface {
	// Handle processes a job. A returned error is retried unless it is a
	// caller error (see Retryable).
	Handle(ctx context.Context, job *Job) error
}

// JobHandlerFunc is an adapter to allow ordinary functions as JobHandlers.
type JobHandlerFunc func(ctx context.Context, job *Job) error

// Handle implements JobHandler.
func (f JobHandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}
