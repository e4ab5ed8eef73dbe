// Package session persists user/bot exchanges between requests.
package session

import (
	"context"
	"sync"

	"pkdindustries/retort/internal/core"
)

// MemoryStore keeps conversations in process memory. Used when no redis
// URL is configured, and by tests.
type MemoryStore struct {
	mu       sync.Mutex
	convos   map[string][]core.Exchange
	maxDepth int
}

var _ core.ConversationStore = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. maxDepth <= 0 means unbounded.
func NewMemoryStore(maxDepth int) *MemoryStore {
	return &MemoryStore{
		convos:   make(map[string][]core.Exchange),
		maxDepth: maxDepth,
	}
}

func (m *MemoryStore) Append(_ context.Context, user string, ex core.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	convo := append(m.convos[user], ex)
	if m.maxDepth > 0 && len(convo) > m.maxDepth {
		convo = convo[len(convo)-m.maxDepth:]
	}
	m.convos[user] = convo
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, user string, n int) ([]core.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	convo := m.convos[user]
	if n > 0 && len(convo) > n {
		convo = convo[len(convo)-n:]
	}
	out := make([]core.Exchange, len(convo))
	copy(out, convo)
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convos, user)
	return nil
}
