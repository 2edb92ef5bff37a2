package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

type SchedulerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	// RetryAttempts bounds reruns of a failed job
	RetryAttempts int
	// RetryDelay is the wait before the first rerun; later reruns double it
	RetryDelay time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:       4,
		QueueSize:     100,
		JobTimeout:    30 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}
}

// maxRetryDelayFactor caps the doubled retry delay at 16×RetryDelay
const maxRetryDelayFactor = 16

// Scheduler runs submitted jobs on a fixed pool of workers. A failed job
// is resubmitted with a doubling delay while it has retries left. Jobs
// refused with RUN_IN_PROGRESS are skipped, and errors a rerun cannot fix
// are not retried.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs   chan *Job
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	pending map[uuid.UUID]*time.Timer
}

func NewScheduler(config SchedulerConfig, executor JobExecutor, log *zap.Logger) *Scheduler {
	config.Workers = max(config.Workers, 1)
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   log,
		jobs:     make(chan *Job, config.QueueSize),
		pending:  make(map[uuid.UUID]*time.Timer),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for id := range s.config.Workers {
		s.wg.Add(1)
		go s.work(ctx, id)
	}

	s.logger.Info("scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop drops pending retries, cancels running jobs and waits for the
// workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Enqueue builds a job with the configured retry budget and submits it
func (s *Scheduler) Enqueue(kind JobKind, tenantID, targetID uuid.UUID, trigger string) (*Job, error) {
	job := NewJob(kind, tenantID, targetID, trigger, s.config.RetryAttempts)
	if err := s.Submit(job); err != nil {
		return nil, err
	}
	s.logger.Debug("job queued", job.fields()...)
	return job, nil
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	defer s.wg.Done()
	log := s.logger.With(zap.Int("worker", worker))
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, log, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, log *zap.Logger, job *Job) {
	ctx = logger.WithContext(logger.WithTenantID(ctx, job.TenantID.String()), log)
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	job.begin()
	err := s.executor.Execute(ctx, job)
	switch {
	case err == nil:
		job.finish(JobStatusSuccess, nil)
		log.Info("job done", job.fields()...)
	case errors.Is(err, shared.ErrRunInProgress):
		job.finish(JobStatusSkipped, nil)
		log.Info("job skipped, run already in progress", job.fields()...)
	default:
		job.finish(JobStatusFailed, err)
		log.Error("job failed", append(job.fields(), zap.Error(err))...)
		if job.canRetry() && retryable(err) {
			s.retryLater(job)
		}
	}
}

func (s *Scheduler) retryLater(job *Job) {
	delay := shared.RetryBackoff(job.Attempt, s.config.RetryDelay, maxRetryDelayFactor*s.config.RetryDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	job.Status = JobStatusPending
	s.pending[job.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, job.ID)
		s.mu.Unlock()
		if err := s.Submit(job); err != nil {
			s.logger.Warn("job retry dropped", append(job.fields(), zap.Error(err))...)
		}
	})
	s.logger.Info("job retry scheduled", append(job.fields(), zap.Duration("delay", delay))...)
}

// retryable is false for errors a rerun cannot fix
func retryable(err error) bool {
	switch shared.CodeOf(err) {
	case shared.CodeValidation, shared.CodeNotFound, shared.CodeConfiguration, shared.CodeInvalidState:
		return false
	}
	return !errors.Is(err, ErrUnknownJobKind)
}
