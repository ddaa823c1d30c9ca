package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ railinspect.Queue = (*MemoryQueue)(nil)

// MemoryQueue is an in-memory queue. Jobs are lost on restart.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*railinspect.Job
	now  func() time.Time
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs: make(map[uuid.UUID]*railinspect.Job),
		now:  time.Now,
	}
}

// clone copies a job so callers never share memory with the queue.
func clone(job *railinspect.Job) *railinspect.Job {
	c := *job
	c.Payload = append([]byte(nil), job.Payload...)
	c.Result = append([]byte(nil), job.Result...)
	return &c
}

func (m *MemoryQueue) Enqueue(ctx context.Context, job *railinspect.Job, opts ...railinspect.EnqueueOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = railinspect.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = now
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	if job.QueueName == "" {
		job.QueueName = railinspect.QueueDefault
	}
	railinspect.ApplyEnqueueOptions(job, opts...)

	m.jobs[job.ID] = clone(job)
	return nil
}

func (m *MemoryQueue) Dequeue(ctx context.Context, queueName string) (*railinspect.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var best *railinspect.Job
	for _, job := range m.jobs {
		if job.QueueName != queueName || job.Status != railinspect.JobStatusPending {
			continue
		}
		if job.ScheduledAt.After(now) {
			continue
		}
		if best == nil || job.Priority > best.Priority ||
			(job.Priority == best.Priority && job.CreatedAt.Before(best.CreatedAt)) {
			best = job
		}
	}
	if best == nil {
		return nil, nil
	}

	best.Status = railinspect.JobStatusRunning
	best.StartedAt = &now
	best.AttemptCount++
	return clone(best), nil
}

func (m *MemoryQueue) Complete(ctx context.Context, jobID uuid.UUID, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return railinspect.NotFound("Job not found")
	}
	now := m.now()
	job.Status = railinspect.JobStatusCompleted
	job.CompletedAt = &now
	job.Result = append([]byte(nil), result...)
	job.ErrorMessage = ""
	return nil
}

func (m *MemoryQueue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string, retry bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return railinspect.NotFound("Job not found")
	}
	now := m.now()
	job.ErrorMessage = errMsg
	if !retry || job.AttemptCount >= job.MaxAttempts {
		job.Status = railinspect.JobStatusFailed
		job.CompletedAt = &now
		return nil
	}
	job.Status = railinspect.JobStatusPending
	job.StartedAt = nil
	job.ScheduledAt = now.Add(railinspect.RetryBackoff(job.AttemptCount))
	return nil
}

func (m *MemoryQueue) GetJob(ctx context.Context, jobID uuid.UUID) (*railinspect.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, railinspect.NotFound("Job not found")
	}
	return clone(job), nil
}

func (m *MemoryQueue) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return railinspect.NotFound("Job not found")
	}
	if job.Status != railinspect.JobStatusPending {
		return railinspect.Invalid("Can only cancel pending jobs")
	}
	now := m.now()
	job.Status = railinspect.JobStatusCancelled
	job.CompletedAt = &now
	return nil
}

func (m *MemoryQueue) GetPendingJobs(ctx context.Context, reportID uuid.UUID, queueName string) ([]*railinspect.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var jobs []*railinspect.Job
	for _, job := range m.jobs {
		if job.ReportID == reportID && job.QueueName == queueName && job.Status == railinspect.JobStatusPending {
			jobs = append(jobs, clone(job))
		}
	}
	return jobs, nil
}
