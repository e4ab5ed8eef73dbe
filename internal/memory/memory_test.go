package memory

import (
	"context"
	"strings"
	"testing"
)

func TestRememberAndRetrieve(t *testing.T) {
	f := NewFacts()
	f.Remember("alice", "prefers metric units")
	f.Remember("alice", "lives in Lisbon")

	got, err := f.RetrieveContext(context.Background(), "alice", "what's the weather")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !strings.Contains(got, "prefers metric units") || !strings.Contains(got, "lives in Lisbon") {
		t.Errorf("facts missing from context: %q", got)
	}
}

func TestEmptyUserYieldsNoContext(t *testing.T) {
	f := NewFacts()
	got, err := f.RetrieveContext(context.Background(), "nobody", "hi")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestDuplicateFactsIgnored(t *testing.T) {
	f := NewFacts()
	f.Remember("bob", "likes coffee")
	f.Remember("bob", "Likes Coffee")
	if facts := f.FactsFor("bob"); len(facts) != 1 {
		t.Errorf("expected 1 fact, got %v", facts)
	}
}

func TestBlankFactIgnored(t *testing.T) {
	f := NewFacts()
	f.Remember("carol", "   ")
	if facts := f.FactsFor("carol"); len(facts) != 0 {
		t.Errorf("expected no facts, got %v", facts)
	}
}

func TestForget(t *testing.T) {
	f := NewFacts()
	f.Remember("dave", "has a dog named Rex")
	f.Forget("dave")
	if facts := f.FactsFor("dave"); len(facts) != 0 {
		t.Errorf("expected no facts after forget, got %v", facts)
	}
}
