// Package history tracks recently delivered replies per user and answers
// the question "would this reply feel like a repeat?".
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pkdindustries/retort/internal/core"
	"pkdindustries/retort/internal/similarity"
)

const (
	// DefaultCapacity is how many replies are remembered per user.
	DefaultCapacity = 10

	// minTokensForOverlap exempts very short texts ("ok", "sure thing")
	// from the overlap checks; only the exact-hash check applies to them.
	minTokensForOverlap = 3

	// jaccardThreshold is the overlap above which a candidate counts as a
	// near-duplicate of a recent reply.
	jaccardThreshold = 0.8

	// nearDupWindow is how many of the most recent replies are compared
	// for near-duplication.
	nearDupWindow = 3

	// SweepInterval is how often the background sweeper reconciles hash
	// sets against their rings.
	SweepInterval = 5 * time.Minute
)

// userHistory is a fixed-capacity ring of reply texts plus a set of their
// hashes for O(1) exact-duplicate checks.
type userHistory struct {
	ring   []string
	head   int // index of the oldest entry
	count  int
	hashes map[string]struct{}
}

func newUserHistory(capacity int) *userHistory {
	return &userHistory{
		ring:   make([]string, capacity),
		hashes: make(map[string]struct{}),
	}
}

// push appends text, evicting the oldest entry when full.
func (u *userHistory) push(text string) {
	if u.count == len(u.ring) {
		evicted := u.ring[u.head]
		delete(u.hashes, similarity.Hash(evicted))
		u.ring[u.head] = text
		u.head = (u.head + 1) % len(u.ring)
	} else {
		u.ring[(u.head+u.count)%len(u.ring)] = text
		u.count++
	}
	u.hashes[similarity.Hash(text)] = struct{}{}
}

// newestFirst returns up to n entries, most recent first.
func (u *userHistory) newestFirst(n int) []string {
	if n > u.count {
		n = u.count
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (u.head + u.count - 1 - i + len(u.ring)) % len(u.ring)
		out = append(out, u.ring[idx])
	}
	return out
}

// rebuildHashes regenerates the hash set from ring contents. Eviction keeps
// the two in sync already; the sweeper calls this as drift repair.
func (u *userHistory) rebuildHashes() {
	u.hashes = make(map[string]struct{}, u.count)
	for i := 0; i < u.count; i++ {
		u.hashes[similarity.Hash(u.ring[(u.head+i)%len(u.ring)])] = struct{}{}
	}
}

// Store keeps per-user reply history. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	users    map[string]*userHistory
	capacity int
}

// Stats summarizes the store for diagnostics.
type Stats struct {
	Users   int
	Entries int
}

var _ core.HistoryStore = (*Store)(nil)

// NewStore creates a history store. capacity <= 0 uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		users:    make(map[string]*userHistory),
		capacity: capacity,
	}
}

func (s *Store) user(name string) *userHistory {
	u, ok := s.users[name]
	if !ok {
		u = newUserHistory(s.capacity)
		s.users[name] = u
	}
	return u
}

// Record remembers a delivered reply for the user.
func (s *Store) Record(user, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(user).push(text)
}

// IsRepetitive reports whether text would feel like a repeat for this user.
// Checks run cheapest first: exact hash, then token overlap with the last
// few replies, then repetition within the text itself. The reason string
// names which check fired.
func (s *Store) IsRepetitive(user, text string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user]
	if ok {
		if _, dup := u.hashes[similarity.Hash(text)]; dup {
			return true, "exact duplicate"
		}
	}

	if similarity.TokenCount(text) < minTokensForOverlap {
		return false, ""
	}

	if ok {
		for _, prev := range u.newestFirst(nearDupWindow) {
			if score := similarity.Jaccard(text, prev); score >= jaccardThreshold {
				return true, fmt.Sprintf("too similar to a recent reply (~%d%% overlap)", int(score*100))
			}
		}
	}

	if findings := similarity.InternalRepetition(text); len(findings) > 0 {
		return true, "internal repetition: " + findings[0]
	}
	return false, ""
}

// Recent returns up to n of the user's replies, most recent first.
func (s *Store) Recent(user string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[user]
	if !ok {
		return nil
	}
	return u.newestFirst(n)
}

// Clear drops all remembered replies for the user.
func (s *Store) Clear(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, user)
}

// UserStats returns how many replies are remembered for one user.
func (s *Store) UserStats(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[user]
	if !ok {
		return 0
	}
	return u.count
}

// Stats returns user and entry counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Users: len(s.users)}
	for _, u := range s.users {
		st.Entries += u.count
	}
	return st
}

// Sweep reconciles every user's hash set with its ring and drops users with
// no entries. Returns the number of users repaired.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	repaired := 0
	for name, u := range s.users {
		if u.count == 0 {
			delete(s.users, name)
			continue
		}
		if len(u.hashes) != u.count {
			u.rebuildHashes()
			repaired++
		}
	}
	return repaired
}

// StartSweeper runs Sweep on a ticker until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		log := core.GetLogger().With("component", "history")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if repaired := s.Sweep(); repaired > 0 {
					log.Debugw("history_sweep", "repaired", repaired)
				}
			}
		}
	}()
}
