package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		first, err := store.Claim(ctx, "pricing:e1", time.Hour)
		require.NoError(t, err)
		assert.True(t, first)

		again, err := store.Claim(ctx, "pricing:e1", time.Hour)
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("released key can be claimed again", func(t *testing.T) {
		_, err := store.Claim(ctx, "pricing:e2", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "pricing:e2"))

		ok, err := store.Claim(ctx, "pricing:e2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("releasing an unknown key is fine", func(t *testing.T) {
		assert.NoError(t, store.Release(ctx, "nobody:e0"))
	})

	t.Run("expired claim can be taken", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		store.set.now = func() time.Time { return base }
		_, err := store.Claim(ctx, "pricing:e3", time.Minute)
		require.NoError(t, err)

		store.set.now = func() time.Time { return base.Add(time.Minute) }
		ok, err := store.Claim(ctx, "pricing:e3", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.set.now = func() time.Time { return base }

	ctx := context.Background()
	_, _ = store.Claim(ctx, "short", time.Minute)
	_, _ = store.Claim(ctx, "long", time.Hour)
	assert.Equal(t, 2, store.Size())

	store.set.now = func() time.Time { return base.Add(2 * time.Minute) }
	store.set.evict()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
