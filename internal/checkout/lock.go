package checkout

import (
	"context"
	"sync"
	"time"
)

// Locker provides named exclusivity with a TTL and a holder token. The
// redis client in pkg/cache satisfies this for multi-process deployments;
// MemoryLocker covers single-node mode and tests.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type memoryLock struct {
	value   string
	expires time.Time
}

type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock)}
}

func (l *MemoryLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && time.Now().Before(held.expires) {
		return false, nil
	}
	l.locks[key] = memoryLock{value: value, expires: time.Now().Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) ReleaseLock(ctx context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Only the holder's token releases, mirroring the redis script.
	if held, ok := l.locks[key]; ok && held.value == value {
		delete(l.locks, key)
	}
	return nil
}
