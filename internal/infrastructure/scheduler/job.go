package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	ErrUnknownJobKind      = errors.New("unknown job kind")
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
	// JobStatusSkipped means another run held the lock for the same key
	JobStatusSkipped JobStatus = "skipped"
)

// JobKind selects the executor of a job
type JobKind string

const (
	JobKindProcurement  JobKind = "procurement"
	JobKindSupplierSync JobKind = "supplier_sync"
	JobKindStatusPoll   JobKind = "status_poll"
)

// Job is one unit of background work. TargetID is the sales channel for
// procurement, the supplier for sync, and unused for status polling.
type Job struct {
	ID       uuid.UUID
	Kind     JobKind
	TenantID uuid.UUID
	TargetID uuid.UUID
	Trigger  string

	Status     JobStatus
	Error      string
	Attempt    int
	MaxRetries int
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewJob creates a pending job that may be retried up to maxRetries times
func NewJob(kind JobKind, tenantID, targetID uuid.UUID, trigger string, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       kind,
		TenantID:   tenantID,
		TargetID:   targetID,
		Trigger:    trigger,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

func (j *Job) begin() {
	j.Attempt++
	j.Status = JobStatusRunning
	j.Error = ""
	j.StartedAt = time.Now()
	j.FinishedAt = time.Time{}
}

func (j *Job) finish(status JobStatus, err error) {
	j.Status = status
	j.FinishedAt = time.Now()
	if err != nil {
		j.Error = err.Error()
	}
}

// Retries is how many times the job ran again after its first attempt
func (j *Job) Retries() int {
	return max(j.Attempt-1, 0)
}

func (j *Job) canRetry() bool {
	return j.Status == JobStatusFailed && j.Retries() < j.MaxRetries
}

func (j *Job) fields() []zap.Field {
	return []zap.Field{
		zap.Stringer("job_id", j.ID),
		zap.String("kind", string(j.Kind)),
		zap.Stringer("tenant_id", j.TenantID),
		zap.Stringer("target_id", j.TargetID),
		zap.Int("attempt", j.Attempt),
	}
}

type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

type JobExecutorFunc func(ctx context.Context, job *Job) error

func (f JobExecutorFunc) Execute(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Router dispatches jobs to an executor by kind
type Router map[JobKind]JobExecutor

func (r Router) Execute(ctx context.Context, job *Job) error {
	exec, ok := r[job.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
	return exec.Execute(ctx, job)
}
