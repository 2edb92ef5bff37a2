package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a handled delivery is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which outbox deliveries a handler has taken.
// Keys are "<handler>:<event id>".
type IdempotencyStore interface {
	// Claim records key for ttl. It returns false when a live claim exists.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so the next delivery of the event is handled
	Release(ctx context.Context, key string) error

	Close() error
}
