package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check
var _ railinspect.Queue = (*Queue)(nil)

// NewQueue creates a PostgreSQL-backed queue.
func NewQueue(pool *pgxpool.Pool, logger *slog.Logger, cfg railinspect.QueueConfig) *Queue {
	return &Queue{
		pool:   pool,
		logger: logger,
		cfg:    cfg,
	}
}

// Queue is a PostgreSQL-backed job queue implementation.
type Queue struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	cfg    railinspect.QueueConfig
}

type jobRow struct {
	ID           uuid.UUID  `db:"id"`
	QueueName    string     `db:"queue_name"`
	JobType      string     `db:"job_type"`
	ReportID     *uuid.UUID `db:"report_id"`
	Payload      []byte     `db:"payload"`
	Status       string     `db:"status"`
	Priority     int        `db:"priority"`
	MaxAttempts  int        `db:"max_attempts"`
	AttemptCount int        `db:"attempt_count"`
	ScheduledAt  time.Time  `db:"scheduled_at"`
	CreatedAt    time.Time  `db:"created_at"`
	StartedAt    *time.Time `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	Result       []byte     `db:"result"`
	ErrorMessage *string    `db:"error_message"`
	WorkerID     *string    `db:"worker_id"`
}

const jobColumns = `id, queue_name, job_type, report_id, payload, status,
	priority, max_attempts, attempt_count, scheduled_at, created_at,
	started_at, completed_at, result, error_message, worker_id`

func (r jobRow) toDomain() *railinspect.Job {
	job := &railinspect.Job{
		ID:           r.ID,
		QueueName:    r.QueueName,
		JobType:      r.JobType,
		Payload:      r.Payload,
		Status:       railinspect.JobStatus(r.Status),
		Priority:     r.Priority,
		MaxAttempts:  r.MaxAttempts,
		AttemptCount: r.AttemptCount,
		ScheduledAt:  r.ScheduledAt,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		Result:       r.Result,
	}
	if r.ReportID != nil {
		job.ReportID = *r.ReportID
	}
	if r.ErrorMessage != nil {
		job.ErrorMessage = *r.ErrorMessage
	}
	if r.WorkerID != nil {
		job.WorkerID = *r.WorkerID
	}
	return job
}

// Enqueue adds a job to the queue.
func (q *Queue) Enqueue(ctx context.Context, job *railinspect.Job, opts ...railinspect.EnqueueOption) error {
	// Set defaults
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = railinspect.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	if job.QueueName == "" {
		job.QueueName = railinspect.QueueDefault
	}
	if len(job.Payload) == 0 {
		job.Payload = []byte("{}")
	}
	railinspect.ApplyEnqueueOptions(job, opts...)

	var reportID *uuid.UUID
	if job.ReportID != uuid.Nil {
		reportID = &job.ReportID
	}

	_, err := q.pool.Exec(ctx, `
		INSERT INTO jobs (
			id, queue_name, job_type, report_id, payload, status,
			priority, max_attempts, attempt_count, scheduled_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID,
		job.QueueName,
		job.JobType,
		reportID,
		job.Payload,
		string(job.Status),
		job.Priority,
		job.MaxAttempts,
		job.AttemptCount,
		job.ScheduledAt,
		job.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return railinspect.NotFound("Report not found")
		}
		return fmt.Errorf("enqueueing job: %w", err)
	}

	q.logger.Debug("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType),
		slog.String("queue", job.QueueName))

	return nil
}

// Dequeue retrieves the next available job from a queue.
func (q *Queue) Dequeue(ctx context.Context, queueName string) (*railinspect.Job, error) {
	now := time.Now()
	rows, err := q.pool.Query(ctx, `
		UPDATE jobs
		SET status = $1, started_at = $2, attempt_count = attempt_count + 1
		WHERE id = (
			SELECT id FROM jobs
			WHERE queue_name = $3
			AND status = $4
			AND scheduled_at <= $2
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns,
		string(railinspect.JobStatusRunning),
		now,
		queueName,
		string(railinspect.JobStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[jobRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // No jobs available
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}
	return row.toDomain(), nil
}

// Complete marks a job as completed.
func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID, result []byte) error {
	if len(result) == 0 {
		result = nil
	}
	_, err := q.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, completed_at = $2, result = $3, error_message = NULL
		WHERE id = $4`,
		string(railinspect.JobStatusCompleted),
		time.Now(),
		result,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("completing job: %w", err)
	}

	q.logger.Debug("job completed", slog.String("job_id", jobID.String()))
	return nil
}

// Fail records a failed attempt. Jobs with attempts left go back to
// pending with exponential backoff.
func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string, retry bool) error {
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	if retry && job.AttemptCount < job.MaxAttempts {
		retryAt := now.Add(railinspect.RetryBackoff(job.AttemptCount))
		_, err = q.pool.Exec(ctx, `
			UPDATE jobs
			SET status = $1, scheduled_at = $2, error_message = $3, started_at = NULL
			WHERE id = $4`,
			string(railinspect.JobStatusPending), retryAt, errMsg, jobID)
		if err != nil {
			return fmt.Errorf("rescheduling job: %w", err)
		}
		q.logger.Debug("job rescheduled",
			slog.String("job_id", jobID.String()),
			slog.Int("attempt", job.AttemptCount),
			slog.Time("retry_at", retryAt),
			slog.String("error", errMsg))
		return nil
	}

	_, err = q.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, completed_at = $2, error_message = $3
		WHERE id = $4`,
		string(railinspect.JobStatusFailed),
		now,
		errMsg,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("failing job: %w", err)
	}

	q.logger.Debug("job failed",
		slog.String("job_id", jobID.String()),
		slog.String("error", errMsg))
	return nil
}

// GetJob retrieves a job by its ID.
func (q *Queue) GetJob(ctx context.Context, jobID uuid.UUID) (*railinspect.Job, error) {
	rows, err := q.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[jobRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, railinspect.NotFound("Job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return row.toDomain(), nil
}

// CancelJob cancels a pending job.
func (q *Queue) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	result, err := q.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4`,
		string(railinspect.JobStatusCancelled),
		time.Now(),
		jobID,
		string(railinspect.JobStatusPending),
	)
	if err != nil {
		return fmt.Errorf("cancelling job: %w", err)
	}

	if result.RowsAffected() == 0 {
		return railinspect.Invalid("Can only cancel pending jobs")
	}

	q.logger.Debug("job cancelled", slog.String("job_id", jobID.String()))
	return nil
}

// GetPendingJobs retrieves pending jobs for a trip report.
func (q *Queue) GetPendingJobs(ctx context.Context, reportID uuid.UUID, queueName string) ([]*railinspect.Job, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE report_id = $1 AND queue_name = $2 AND status = $3
		ORDER BY priority DESC, created_at ASC`,
		reportID, queueName, string(railinspect.JobStatusPending))
	if err != nil {
		return nil, fmt.Errorf("querying pending jobs: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[jobRow])
	if err != nil {
		return nil, fmt.Errorf("scanning jobs: %w", err)
	}
	jobs := make([]*railinspect.Job, len(items))
	for i, r := range items {
		jobs[i] = r.toDomain()
	}
	return jobs, nil
}
