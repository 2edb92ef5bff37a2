package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

const defaultLockPrefix = "commerce:lock:"

// unlockScript deletes the key only if it still carries our token, so a lock
// that expired and was taken by another holder is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLocker implements shared.RunLocker with SET NX PX
type RedisRunLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRunLocker creates a locker on an existing client
func NewRedisRunLocker(client *redis.Client, keyPrefix string) *RedisRunLocker {
	if keyPrefix == "" {
		keyPrefix = defaultLockPrefix
	}
	return &RedisRunLocker{client: client, keyPrefix: keyPrefix}
}

// TryLock acquires key for ttl or returns shared.ErrRunInProgress
func (l *RedisRunLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (shared.RunLock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, shared.ErrRunInProgress
	}
	return &redisRunLock{locker: l, key: key, token: token}, nil
}

type redisRunLock struct {
	locker *RedisRunLocker
	key    string
	token  string
	once   sync.Once
	err    error
}

func (k *redisRunLock) Key() string { return k.key }

func (k *redisRunLock) Unlock(ctx context.Context) error {
	k.once.Do(func() {
		err := unlockScript.Run(ctx, k.locker.client, []string{k.locker.keyPrefix + k.key}, k.token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			k.err = fmt.Errorf("release lock %s: %w", k.key, err)
		}
	})
	return k.err
}

// InMemoryRunLocker implements shared.RunLocker within one process
type InMemoryRunLocker struct {
	set *expiringSet
}

// NewInMemoryRunLocker creates a process-local locker
func NewInMemoryRunLocker() *InMemoryRunLocker {
	return &InMemoryRunLocker{set: newExpiringSet(time.Minute)}
}

// TryLock acquires key for ttl or returns shared.ErrRunInProgress
func (l *InMemoryRunLocker) TryLock(_ context.Context, key string, ttl time.Duration) (shared.RunLock, error) {
	token := uuid.NewString()
	if !l.set.putIfAbsent(key, token, ttl) {
		return nil, shared.ErrRunInProgress
	}
	return &memoryRunLock{set: l.set, key: key, token: token}, nil
}

// Close stops the eviction loop
func (l *InMemoryRunLocker) Close() error {
	l.set.stop()
	return nil
}

type memoryRunLock struct {
	set   *expiringSet
	key   string
	token string
}

func (k *memoryRunLock) Key() string { return k.key }

func (k *memoryRunLock) Unlock(context.Context) error {
	k.set.deleteIf(k.key, k.token)
	return nil
}

var (
	_ shared.RunLocker = (*RedisRunLocker)(nil)
	_ shared.RunLocker = (*InMemoryRunLocker)(nil)
)
