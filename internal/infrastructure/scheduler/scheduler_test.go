package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

func newTestScheduler(t *testing.T, exec JobExecutor) *Scheduler {
	t.Helper()
	s := NewScheduler(SchedulerConfig{
		Workers:       2,
		QueueSize:     10,
		JobTimeout:    time.Second,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobKindProcurement, uuid.New(), uuid.New(), "manual", 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.begin()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.False(t, job.StartedAt.IsZero())
	assert.Zero(t, job.Retries())

	job.finish(JobStatusFailed, errors.New("boom"))
	assert.Equal(t, "boom", job.Error)
	assert.True(t, job.canRetry())

	job.begin()
	assert.Empty(t, job.Error)
	job.finish(JobStatusFailed, errors.New("boom again"))
	assert.Equal(t, 1, job.Retries())
	assert.False(t, job.canRetry())
}

func TestScheduler_RoutesByKind(t *testing.T) {
	var procurement, syncs atomic.Int32
	done := make(chan struct{}, 2)
	router := Router{
		JobKindProcurement: JobExecutorFunc(func(ctx context.Context, job *Job) error {
			procurement.Add(1)
			done <- struct{}{}
			return nil
		}),
		JobKindSupplierSync: JobExecutorFunc(func(ctx context.Context, job *Job) error {
			syncs.Add(1)
			done <- struct{}{}
			return nil
		}),
	}
	s := newTestScheduler(t, router)

	_, err := s.Enqueue(JobKindProcurement, uuid.New(), uuid.New(), "manual")
	require.NoError(t, err)
	_, err = s.Enqueue(JobKindSupplierSync, uuid.New(), uuid.New(), "manual")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("jobs did not run")
		}
	}
	assert.Equal(t, int32(1), procurement.Load())
	assert.Equal(t, int32(1), syncs.Load())
}

func TestScheduler_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	succeeded := make(chan *Job, 1)
	exec := JobExecutorFunc(func(ctx context.Context, job *Job) error {
		if calls.Add(1) == 1 {
			return errors.New("connection reset")
		}
		succeeded <- job
		return nil
	})
	s := newTestScheduler(t, exec)

	_, err := s.Enqueue(JobKindSupplierSync, uuid.New(), uuid.New(), "schedule")
	require.NoError(t, err)

	select {
	case job := <-succeeded:
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestScheduler_DoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"run in progress", shared.ErrRunInProgress},
		{"validation", shared.NewValidationError("bad channel")},
		{"unknown kind", ErrUnknownJobKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			var wg sync.WaitGroup
			wg.Add(1)
			exec := JobExecutorFunc(func(ctx context.Context, job *Job) error {
				if calls.Add(1) == 1 {
					wg.Done()
				}
				return tt.err
			})
			s := newTestScheduler(t, exec)

			_, err := s.Enqueue(JobKindProcurement, uuid.New(), uuid.New(), "manual")
			require.NoError(t, err)
			wg.Wait()
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), Router{}, nil)
	err := s.Submit(NewJob(JobKindStatusPoll, uuid.Nil, uuid.Nil, "manual", 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestRouter_UnknownKind(t *testing.T) {
	err := Router{}.Execute(context.Background(), NewJob("nope", uuid.Nil, uuid.Nil, "manual", 0))
	assert.ErrorIs(t, err, ErrUnknownJobKind)
}
