// Package memory stores remembered user facts and surfaces them as prompt
// context.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pkdindustries/retort/internal/core"
)

// maxFactsPerUser bounds how many facts are retained; oldest fall off.
const maxFactsPerUser = 50

// Facts is an in-process fact store. It implements core.ContextProvider so
// remembered facts flow into prompt assembly.
type Facts struct {
	mu    sync.Mutex
	facts map[string][]string
}

var _ core.ContextProvider = (*Facts)(nil)

func NewFacts() *Facts {
	return &Facts{facts: make(map[string][]string)}
}

// Remember stores a fact about the user. Duplicate facts are ignored.
func (f *Facts) Remember(user, fact string) {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.facts[user] {
		if strings.EqualFold(existing, fact) {
			return
		}
	}
	facts := append(f.facts[user], fact)
	if len(facts) > maxFactsPerUser {
		facts = facts[len(facts)-maxFactsPerUser:]
	}
	f.facts[user] = facts
}

// Facts returns the remembered facts for a user, oldest first.
func (f *Facts) FactsFor(user string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.facts[user]))
	copy(out, f.facts[user])
	return out
}

// Forget drops everything remembered about the user.
func (f *Facts) Forget(user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.facts, user)
}

// RetrieveContext renders remembered facts as a block for the system
// prompt. The query is unused here; other providers may rank by it.
func (f *Facts) RetrieveContext(_ context.Context, user, _ string) (string, error) {
	facts := f.FactsFor(user)
	if len(facts) == 0 {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Known facts about %s:\n", user)
	for _, fact := range facts {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	return b.String(), nil
}
