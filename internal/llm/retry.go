package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// transientMarkers are substrings of provider error text that indicate a
// retry is worthwhile. Stream errors arrive as opaque errors, not status
// codes, so classification is textual.
var transientMarkers = []string{
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"overloaded",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"server error",
	"try again",
}

// IsTransient reports whether a completion error is worth retrying.
// Context cancellation is never transient; the caller is gone.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// DefaultRetryBase is the delay before the first retry; each subsequent
// attempt doubles it.
const DefaultRetryBase = 2 * time.Second

// Delay returns the backoff before retry attempt n (0-based): base, 2*base,
// 4*base, ... A pure function so tests need no clock.
func Delay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultRetryBase
	}
	if attempt < 0 {
		attempt = 0
	}
	return base << uint(attempt)
}
