package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("HTTP 503 Service Unavailable"), true},
		{errors.New("rate limit exceeded, try again later"), true},
		{errors.New("server is overloaded"), true},
		{errors.New("dial tcp: connection refused"), true},
		{fmt.Errorf("completion: %w", errors.New("429 Too Many Requests")), true},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{errors.New("invalid api key"), false},
		{errors.New("model not found"), false},
		{errors.New("400 bad request: malformed tool schema"), false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Errorf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestDelayDoubles(t *testing.T) {
	base := time.Second
	if Delay(0, base) != time.Second {
		t.Errorf("attempt 0: got %v", Delay(0, base))
	}
	if Delay(1, base) != 2*time.Second {
		t.Errorf("attempt 1: got %v", Delay(1, base))
	}
	if Delay(2, base) != 4*time.Second {
		t.Errorf("attempt 2: got %v", Delay(2, base))
	}
}

func TestDelayDefaults(t *testing.T) {
	if Delay(0, 0) != DefaultRetryBase {
		t.Errorf("zero base: got %v", Delay(0, 0))
	}
	if Delay(-1, time.Second) != time.Second {
		t.Errorf("negative attempt: got %v", Delay(-1, time.Second))
	}
}
