package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

func seedEntry(t *testing.T, env *testutil.Env, status shared.OutboxStatus) *shared.OutboxEntry {
	t.Helper()
	now := time.Now()
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      testutil.TestTenantID(),
		EventID:       uuid.New(),
		EventType:     "StockChanged",
		AggregateID:   uuid.New(),
		AggregateType: "StockLink",
		Payload:       []byte(`{}`),
		Status:        status,
		MaxAttempts:   shared.DefaultOutboxMaxAttempts,
		AvailableAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch status {
	case shared.OutboxDead:
		entry.Attempts = entry.MaxAttempts
		entry.LastError = "broker unavailable"
	case shared.OutboxDelivered:
		entry.DeliveredAt = &now
	}
	require.NoError(t, env.Outbox.Save(context.Background(), entry))
	return entry
}

func TestOutboxService_DeadLetters(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := NewOutboxService(env.Outbox, env.Logger)
	for range 5 {
		seedEntry(t, env, shared.OutboxDead)
	}
	seedEntry(t, env, shared.OutboxPending)

	result, err := svc.DeadLetters(context.Background(), OutboxFilter{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Len(t, result.Entries, 3)
	for _, e := range result.Entries {
		assert.Equal(t, "dead", e.Status)
		assert.Equal(t, "broker unavailable", e.LastError)
	}

	result, err = svc.DeadLetters(context.Background(), OutboxFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
}

func TestOutboxService_RetryDead(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := NewOutboxService(env.Outbox, env.Logger)
	ctx := context.Background()
	dead := seedEntry(t, env, shared.OutboxDead)
	pending := seedEntry(t, env, shared.OutboxPending)

	got, err := svc.RetryDead(ctx, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	assert.Zero(t, got.Attempts)
	assert.Empty(t, got.LastError)

	_, err = svc.RetryDead(ctx, pending.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.RetryDead(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_RetryAllDeadAndStats(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := NewOutboxService(env.Outbox, env.Logger)
	ctx := context.Background()
	for range 3 {
		seedEntry(t, env, shared.OutboxDead)
	}
	seedEntry(t, env, shared.OutboxDelivered)
	seedEntry(t, env, shared.OutboxInFlight)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Dead)
	assert.Equal(t, int64(5), stats.Total)

	count, err := svc.RetryAllDead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Dead)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.InFlight)
}
