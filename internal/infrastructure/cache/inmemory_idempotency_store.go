package cache

import (
	"context"
	"time"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

const claimSweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps claims in process memory. Two instances of
// the service do not see each other's claims.
type InMemoryIdempotencyStore struct {
	set *expiringSet
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{set: newExpiringSet(claimSweepInterval)}
}

func (s *InMemoryIdempotencyStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.set.putIfAbsent(key, "1", ttl), nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.set.deleteIf(key, "1")
	return nil
}

// Close stops the sweeper; repeated calls are no-ops
func (s *InMemoryIdempotencyStore) Close() error {
	s.set.stop()
	return nil
}

// Size counts stored claims, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.set.size()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
