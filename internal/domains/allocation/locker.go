package allocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// Locker hands out short-lived mutual-exclusion locks keyed by book. One
// approval holds the book's lock for its full duration, so competing
// approvals for the same title serialize instead of double-granting the
// last free copy.
type Locker interface {
	// Obtain blocks (bounded by the implementation's retry budget) until the
	// lock for key is held, or fails with ErrLockNotObtained.
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held lock; Release is safe to call once.
type Lock interface {
	Release(ctx context.Context) error
}

// ErrLockNotObtained is returned when the lock could not be acquired within
// the retry budget.
var ErrLockNotObtained = errors.New("lock not obtained")

// ===================================
// REDIS LOCKER (production)
// ===================================

type redisLocker struct {
	client *redislock.Client
}

// NewRedisLocker wraps a redislock client. Retry budget: linear 50ms backoff
// for up to the lock TTL, which covers one full approval transaction.
func NewRedisLocker(client *redislock.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	retries := int(ttl / (50 * time.Millisecond))
	if retries < 1 {
		retries = 1
	}

	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), retries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockNotObtained
		}
		return nil, err
	}

	return redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return err
	}
	return nil
}

// ===================================
// MEMORY LOCKER (single node, tests)
// ===================================

// memoryLocker serializes per-key within one process. Suitable for tests and
// single-instance deployments where redis is not required for exclusion.
type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() Locker {
	return &memoryLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *memoryLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		keyLock.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return memoryLock{mu: keyLock}, nil
	case <-ctx.Done():
		// The goroutine will eventually hold the mutex; hand it straight back.
		go func() {
			<-acquired
			keyLock.Unlock()
		}()
		return nil, ErrLockNotObtained
	}
}

type memoryLock struct {
	mu *sync.Mutex
}

func (l memoryLock) Release(_ context.Context) error {
	l.mu.Unlock()
	return nil
}
