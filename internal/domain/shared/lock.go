package shared

import (
	"context"
	"time"
)

// RunLocker provides mutual exclusion for long-running jobs keyed by a
// string such as "procurement:<tenant>:<channel>". Runs with different
// keys proceed in parallel.
type RunLocker interface {
	// TryLock acquires the lock for key without blocking. It returns
	// ErrRunInProgress when another holder owns the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (RunLock, error)
}

// RunLock is a held lock. Unlock is safe to call more than once.
type RunLock interface {
	Key() string
	Unlock(ctx context.Context) error
}
