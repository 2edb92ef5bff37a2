package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

type mapStore struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newMapStore() *mapStore { return &mapStore{keys: map[string]bool{}} }

func (s *mapStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *mapStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *mapStore) Close() error { return nil }

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) Close() error { return nil }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("redelivery is skipped", func(t *testing.T) {
		inner := &testHandler{types: []string{testEventType}}
		h := NewIdempotentHandler("pricing", inner, newMapStore(), zap.NewNop())
		ev := newTestEvent(uuid.New())

		require.NoError(t, h.Handle(ctx, ev))
		require.NoError(t, h.Handle(ctx, ev))
		assert.Equal(t, 1, inner.count())
	})

	t.Run("handlers keep separate keys", func(t *testing.T) {
		store := newMapStore()
		a := &testHandler{types: []string{testEventType}}
		b := &testHandler{types: []string{testEventType}}
		ev := newTestEvent(uuid.New())

		require.NoError(t, NewIdempotentHandler("a", a, store, zap.NewNop()).Handle(ctx, ev))
		require.NoError(t, NewIdempotentHandler("b", b, store, zap.NewNop()).Handle(ctx, ev))
		assert.Equal(t, 1, a.count())
		assert.Equal(t, 1, b.count())
	})

	t.Run("store failure still handles", func(t *testing.T) {
		inner := &testHandler{types: []string{testEventType}}
		store := newMapStore()
		store.err = errors.New("redis down")
		h := NewIdempotentHandler("x", inner, store, zap.NewNop())

		require.NoError(t, h.Handle(ctx, newTestEvent(uuid.New())))
		assert.Equal(t, 1, inner.count())
	})

	t.Run("failed delivery is retried", func(t *testing.T) {
		store := newMapStore()
		inner := &testHandler{types: []string{testEventType}, err: errors.New("failed")}
		h := NewIdempotentHandler("x", inner, store, zap.NewNop())
		ev := newTestEvent(uuid.New())

		assert.Error(t, h.Handle(ctx, ev))
		assert.Empty(t, store.keys)

		inner.setErr(nil)
		require.NoError(t, h.Handle(ctx, ev))
		assert.Equal(t, 2, inner.count())
		assert.Len(t, store.keys, 1)
	})

	t.Run("event types come from the wrapped handler", func(t *testing.T) {
		inner := &testHandler{types: []string{"A", "B"}}
		h := NewIdempotentHandler("x", inner, newMapStore(), zap.NewNop(), WithClaimTTL(time.Minute))
		assert.Equal(t, []string{"A", "B"}, h.EventTypes())
		assert.Equal(t, time.Minute, h.ttl)
	})
}

func TestIdempotentHandler_ReleaseFailure(t *testing.T) {
	ctx := context.Background()
	ev := newTestEvent(uuid.New())
	key := "pricing:" + ev.EventID().String()

	store := new(mockStore)
	store.On("Claim", mock.Anything, key, shared.DefaultIdempotencyTTL).Return(true, nil).Once()
	store.On("Release", mock.Anything, key).Return(errors.New("redis down")).Once()

	handleErr := errors.New("recalculation failed")
	inner := &testHandler{types: []string{testEventType}, err: handleErr}
	h := NewIdempotentHandler("pricing", inner, store, zap.NewNop())

	err := h.Handle(ctx, ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, handleErr)
	assert.Contains(t, err.Error(), "redis down")
	store.AssertExpectations(t)
}
