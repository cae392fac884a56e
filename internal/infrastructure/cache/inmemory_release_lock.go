package cache

import (
	"context"
	"sync"
	"time"

	"github.com/depositry/backend/internal/application/publication"
)

// InMemoryReleaseLock is a process-local release lock for single-instance
// deployments and tests. Expired leases are reclaimed lazily on the next
// Acquire of the same key.
type InMemoryReleaseLock struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewInMemoryReleaseLock creates an empty InMemoryReleaseLock
func NewInMemoryReleaseLock() *InMemoryReleaseLock {
	return &InMemoryReleaseLock{
		leases: make(map[string]time.Time),
	}
}

// Acquire takes the lease for key. Returns false if a live lease exists.
func (l *InMemoryReleaseLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.leases[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.leases[key] = time.Now().Add(ttl)
	return true, nil
}

// Release drops the lease for key
func (l *InMemoryReleaseLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}

// Ensure InMemoryReleaseLock implements ReleaseLock
var _ publication.ReleaseLock = (*InMemoryReleaseLock)(nil)
