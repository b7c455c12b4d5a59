// Package presence tracks which users currently hold at least one live
// connection. State is in-memory only and owned by the process; a user open
// in several tabs counts as online once.
package presence

import "sync"

type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Connect increments the connection count for uid and reports whether the
// user just became online (count went 0 -> 1).
func (t *Tracker) Connect(uid string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[uid]++
	return t.counts[uid] == 1
}

// Disconnect decrements the connection count for uid and reports whether the
// user just went offline (count reached 0). A disconnect without a matching
// connect is a no-op.
func (t *Tracker) Disconnect(uid string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.counts[uid]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(t.counts, uid)
		return true
	}
	t.counts[uid] = n - 1
	return false
}

// IsOnline is a point-in-time read; it may be stale by the time the caller
// acts on it.
func (t *Tracker) IsOnline(uid string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[uid] > 0
}

// OnlineCount returns the number of distinct users currently online.
func (t *Tracker) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}
