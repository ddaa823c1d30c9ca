package queue

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	reportID := uuid.New()

	job := &railinspect.Job{QueueName: "test_queue", JobType: "test_job", ReportID: reportID}
	require.NoError(t, q.Enqueue(ctx, job))
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, railinspect.JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxAttempts)

	got, err := q.Dequeue(ctx, "test_queue")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, railinspect.JobStatusRunning, got.Status)
	assert.Equal(t, 1, got.AttemptCount)

	// No more jobs
	none, err := q.Dequeue(ctx, "test_queue")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryQueue_DequeueOrder(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	low := &railinspect.Job{QueueName: "q", JobType: "t"}
	high := &railinspect.Job{QueueName: "q", JobType: "t"}
	other := &railinspect.Job{QueueName: "other", JobType: "t"}
	later := &railinspect.Job{QueueName: "q", JobType: "t"}
	require.NoError(t, q.Enqueue(ctx, low))
	require.NoError(t, q.Enqueue(ctx, high, railinspect.WithPriority(10)))
	require.NoError(t, q.Enqueue(ctx, other, railinspect.WithPriority(100)))
	require.NoError(t, q.Enqueue(ctx, later, railinspect.WithDelay(time.Hour), railinspect.WithPriority(50)))

	first, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID)

	second, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)

	// Delayed job is not ready yet
	third, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, third)
}

func TestMemoryQueue_Complete(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job := &railinspect.Job{QueueName: "q", JobType: "t"}
	require.NoError(t, q.Enqueue(ctx, job))
	_, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)

	require.NoError(t, q.Complete(ctx, job.ID, []byte(`{"url":"x"}`)))

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.JobStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.JSONEq(t, `{"url":"x"}`, string(got.Result))
}

func TestMemoryQueue_FailRetriesWithBackoff(t *testing.T) {
	q := NewMemoryQueue()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	ctx := context.Background()

	job := &railinspect.Job{QueueName: "q", JobType: "t"}
	require.NoError(t, q.Enqueue(ctx, job, railinspect.WithMaxAttempts(2)))

	_, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, job.ID, "boom", true))

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.JobStatusPending, got.Status)
	assert.Equal(t, now.Add(time.Second), got.ScheduledAt)
	assert.Equal(t, "boom", got.ErrorMessage)

	// Not ready until the backoff elapses
	none, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, none)

	now = now.Add(2 * time.Second)
	_, err = q.Dequeue(ctx, "q")
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, job.ID, "boom again", true))

	got, err = q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.JobStatusFailed, got.Status)
	assert.Equal(t, 2, got.AttemptCount)
}

func TestMemoryQueue_FailWithoutRetry(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job := &railinspect.Job{QueueName: "q", JobType: "t"}
	require.NoError(t, q.Enqueue(ctx, job, railinspect.WithMaxAttempts(5)))
	_, err := q.Dequeue(ctx, "q")
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, job.ID, "report gone", false))

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, railinspect.JobStatusFailed, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
}

func TestMemoryQueue_CancelJob(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job := &railinspect.Job{QueueName: "q", JobType: "t"}
	require.NoError(t, q.Enqueue(ctx, job))
	require.NoError(t, q.CancelJob(ctx, job.ID))

	err := q.CancelJob(ctx, job.ID)
	assert.True(t, railinspect.IsErrorCode(err, railinspect.EINVALID))

	err = q.CancelJob(ctx, uuid.New())
	assert.True(t, railinspect.IsErrorCode(err, railinspect.ENOTFOUND))
}

func TestMemoryQueue_GetPendingJobs(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	reportID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, &railinspect.Job{QueueName: "q", JobType: "t", ReportID: reportID}))
	require.NoError(t, q.Enqueue(ctx, &railinspect.Job{QueueName: "q", JobType: "t", ReportID: uuid.New()}))
	require.NoError(t, q.Enqueue(ctx, &railinspect.Job{QueueName: "other", JobType: "t", ReportID: reportID}))

	jobs, err := q.GetPendingJobs(ctx, reportID, "q")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
