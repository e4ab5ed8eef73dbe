package core

import (
	"fmt"
	"time"
)

// RateLimitedError is returned when a user has exhausted their request
// window. RetryAfter tells the caller how long until the window resets.
type RateLimitedError struct {
	User       string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s can retry in %s", e.User, e.RetryAfter.Round(time.Second))
}

// BusyError is returned when a user already has a request in flight and the
// new one could not acquire the per-user lock before its context expired.
type BusyError struct {
	User string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("request already in flight for %s", e.User)
}
