package ratelimit

import (
	"testing"
	"time"
)

func TestAdmitUpToLimit(t *testing.T) {
	l := NewLimiter(time.Minute, 3)
	for i := 0; i < 3; i++ {
		if ok, _ := l.Admit("alice"); !ok {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	ok, retry := l.Admit("alice")
	if ok {
		t.Fatal("request over limit admitted")
	}
	if retry <= 0 || retry > time.Minute {
		t.Errorf("retryAfter out of range: %v", retry)
	}
}

func TestWindowReset(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }

	l.Admit("bob")
	l.Admit("bob")
	if ok, _ := l.Admit("bob"); ok {
		t.Fatal("over-limit request admitted")
	}

	// Advance past the window; counting starts over.
	now = now.Add(61 * time.Second)
	if ok, _ := l.Admit("bob"); !ok {
		t.Fatal("request denied after window elapsed")
	}
}

func TestDenialsDoNotExtendWindow(t *testing.T) {
	now := time.Unix(2000, 0)
	l := NewLimiter(time.Minute, 1)
	l.now = func() time.Time { return now }

	l.Admit("carol")
	now = now.Add(30 * time.Second)
	if ok, retry := l.Admit("carol"); ok {
		t.Fatal("over-limit request admitted")
	} else if retry != 30*time.Second {
		t.Errorf("expected 30s retryAfter, got %v", retry)
	}

	// The denial above must not have restarted the window.
	now = now.Add(31 * time.Second)
	if ok, _ := l.Admit("carol"); !ok {
		t.Error("window was extended by a denied attempt")
	}
}

func TestUsersAreIndependent(t *testing.T) {
	l := NewLimiter(time.Minute, 1)
	l.Admit("dave")
	if ok, _ := l.Admit("erin"); !ok {
		t.Error("one user's traffic throttled another")
	}
}

func TestReset(t *testing.T) {
	l := NewLimiter(time.Minute, 1)
	l.Admit("frank")
	if ok, _ := l.Admit("frank"); ok {
		t.Fatal("over-limit request admitted")
	}
	l.Reset("frank")
	if ok, _ := l.Admit("frank"); !ok {
		t.Error("request denied after reset")
	}
}

func TestDefaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.window != DefaultWindow || l.limit != DefaultLimit {
		t.Errorf("defaults not applied: window=%v limit=%d", l.window, l.limit)
	}
}
