package ratelimit

import (
	"sync"
	"time"
)

// Window is a fixed-window counter: at most `limit` events per key per
// `size` interval. Counters reset at window boundaries rather than sliding.
type Window struct {
	mu     sync.Mutex
	size   time.Duration
	limit  int
	counts map[string]*windowEntry

	now func() time.Time // overridable in tests
}

type windowEntry struct {
	start time.Time
	n     int
}

func NewWindow(size time.Duration, limit int) *Window {
	return &Window{
		size:   size,
		limit:  limit,
		counts: make(map[string]*windowEntry),
		now:    time.Now,
	}
}

// Allow records one event for key and reports whether it fits in the current
// window.
func (w *Window) Allow(key string) bool {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	ent, ok := w.counts[key]
	if !ok || now.Sub(ent.start) >= w.size {
		w.counts[key] = &windowEntry{start: now, n: 1}
		return w.limit >= 1
	}
	if ent.n >= w.limit {
		return false
	}
	ent.n++
	return true
}
