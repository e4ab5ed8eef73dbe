package core

import (
	"context"
	"sync"
)

// RequestLock provides context-aware locking for serializing request processing
type RequestLock struct {
	sem chan struct{}
}

// NewRequestLock creates a new request lock
func NewRequestLock() *RequestLock {
	return &RequestLock{
		sem: make(chan struct{}, 1),
	}
}

// LockWithContext attempts to acquire the lock, respecting context cancellation
func (c *RequestLock) LockWithContext(ctx context.Context) bool {
	select {
	case c.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false // Context expired before getting lock
	}
}

// Unlock releases the lock
func (c *RequestLock) Unlock() {
	select {
	case <-c.sem:
	default:
		// Already unlocked, avoid panic
	}
}

// LockMap holds a RequestLock per key. Callers own their LockMap; there is
// no process-wide registry.
type LockMap struct {
	locks sync.Map
}

// NewLockMap creates an empty lock map
func NewLockMap() *LockMap {
	return &LockMap{}
}

// Get returns the lock for a given key, creating it if needed
func (m *LockMap) Get(key string) *RequestLock {
	if lock, ok := m.locks.Load(key); ok {
		return lock.(*RequestLock)
	}
	newLock := NewRequestLock()
	actual, _ := m.locks.LoadOrStore(key, newLock)
	return actual.(*RequestLock)
}

// Acquire locks the per-key lock, respecting context cancellation. The
// returned release func is a no-op when acquisition failed.
func (m *LockMap) Acquire(ctx context.Context, key string) (release func(), ok bool) {
	if ctx.Err() != nil {
		return func() {}, false
	}
	lock := m.Get(key)
	if !lock.LockWithContext(ctx) {
		return func() {}, false
	}
	return lock.Unlock, true
}
