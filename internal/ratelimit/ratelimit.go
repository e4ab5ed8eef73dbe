// Package ratelimit implements a per-user fixed-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow = time.Minute
	DefaultLimit  = 5
)

type window struct {
	start time.Time
	count int
}

// Limiter admits up to limit requests per user per window. When the window
// has elapsed it resets in place, so memory stays O(users).
type Limiter struct {
	mu     sync.Mutex
	users  map[string]*window
	window time.Duration
	limit  int
	now    func() time.Time
}

// NewLimiter creates a limiter. Non-positive arguments fall back to the
// defaults.
func NewLimiter(windowDur time.Duration, limit int) *Limiter {
	if windowDur <= 0 {
		windowDur = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{
		users:  make(map[string]*window),
		window: windowDur,
		limit:  limit,
		now:    time.Now,
	}
}

// Admit records an attempt for user and reports whether it is allowed.
// When denied, retryAfter is the time remaining until the window resets.
// Denied attempts do not extend the window.
func (l *Limiter) Admit(user string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.users[user]
	if !ok || now.Sub(w.start) >= l.window {
		l.users[user] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count < l.limit {
		w.count++
		return true, 0
	}
	return false, l.window - now.Sub(w.start)
}

// Reset forgets the user's current window.
func (l *Limiter) Reset(user string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.users, user)
}
