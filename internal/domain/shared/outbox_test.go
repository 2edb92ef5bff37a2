package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	EventHeader
}

func newTestEvent() *testEvent {
	return &testEvent{EventHeader: NewEventHeader("TestEvent", "Test", uuid.New(), uuid.New())}
}

func TestNewOutboxEntry(t *testing.T) {
	event := newTestEvent()
	entry := NewOutboxEntry(event, []byte(`{}`))

	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, event.TenantID(), entry.TenantID)
	assert.Equal(t, "TestEvent", entry.EventType)
	assert.Equal(t, OutboxPending, entry.Status)
	assert.Equal(t, DefaultOutboxMaxAttempts, entry.MaxAttempts)
	assert.False(t, entry.AvailableAt.After(time.Now()))
}

func TestOutboxEntry_Failed(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	backoff := Backoff{Base: time.Second, Max: time.Minute}

	t.Run("returns to pending after a growing delay", func(t *testing.T) {
		lease := now.Add(time.Minute)
		entry := &OutboxEntry{Status: OutboxInFlight, MaxAttempts: 5, LeaseUntil: &lease}

		assert.False(t, entry.Failed(errors.New("error 1"), now, backoff))
		assert.Equal(t, OutboxPending, entry.Status)
		assert.Equal(t, 1, entry.Attempts)
		assert.Equal(t, now.Add(time.Second), entry.AvailableAt)
		assert.Nil(t, entry.LeaseUntil)

		entry.Failed(errors.New("error 2"), now, backoff)
		assert.Equal(t, now.Add(2*time.Second), entry.AvailableAt)
		assert.Equal(t, "error 2", entry.LastError)
	})

	t.Run("dies when attempts are spent", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxInFlight, Attempts: 4, MaxAttempts: 5}

		assert.True(t, entry.Failed(errors.New("final"), now, backoff))
		assert.Equal(t, OutboxDead, entry.Status)
		assert.Equal(t, 5, entry.Attempts)
		assert.Equal(t, "final", entry.LastError)
	})
}

func TestOutboxEntry_Delivered(t *testing.T) {
	now := time.Now()
	entry := &OutboxEntry{Status: OutboxInFlight, LastError: "earlier failure"}
	entry.Delivered(now)

	assert.Equal(t, OutboxDelivered, entry.Status)
	require.NotNil(t, entry.DeliveredAt)
	assert.Equal(t, now, *entry.DeliveredAt)
	assert.Empty(t, entry.LastError)
}

func TestOutboxEntry_Requeue(t *testing.T) {
	now := time.Now()

	entry := &OutboxEntry{ID: uuid.New(), Status: OutboxDead, Attempts: 8, MaxAttempts: 8, LastError: "broker down"}
	require.NoError(t, entry.Requeue(now))
	assert.Equal(t, OutboxPending, entry.Status)
	assert.Zero(t, entry.Attempts)
	assert.Equal(t, now, entry.AvailableAt)
	assert.Empty(t, entry.LastError)

	for _, status := range []OutboxStatus{OutboxPending, OutboxInFlight, OutboxDelivered} {
		live := &OutboxEntry{ID: uuid.New(), Status: status}
		assert.ErrorIs(t, live.Requeue(now), ErrInvalidState, status)
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{10, time.Minute},
		{64, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryBackoff(tt.attempt, time.Second, time.Minute), "attempt %d", tt.attempt)
	}
}
