package ratelimit

import (
	"testing"
	"time"
)

func TestStore_SameKeySameBucket(t *testing.T) {
	s := NewStore(10, 1)

	if l1, l2 := s.get("k"), s.get("k"); l1 != l2 {
		t.Fatalf("expected same limiter pointer for same key")
	}
}

func TestStore_BurstExhaustion(t *testing.T) {
	// Bucket of 10 with a negligible refill: the 11th immediate call fails.
	s := NewStore(0.001, 10)

	for i := 0; i < 10; i++ {
		if !s.Allow("uid-a") {
			t.Fatalf("call %d should be allowed within the burst", i+1)
		}
	}
	if s.Allow("uid-a") {
		t.Fatalf("11th call should be rejected")
	}
	// Separate keys have independent buckets.
	if !s.Allow("uid-b") {
		t.Fatalf("other key should be unaffected")
	}
}

func TestStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewStore(10, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := s.get("k")
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	after := s.get("k")
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestWindow_FixedWindow(t *testing.T) {
	w := NewWindow(time.Minute, 2)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	w.now = func() time.Time { return current }

	if !w.Allow("k") || !w.Allow("k") {
		t.Fatalf("first two events should be allowed")
	}
	if w.Allow("k") {
		t.Fatalf("third event within window should be rejected")
	}

	// Other keys are independent.
	if !w.Allow("other") {
		t.Fatalf("other key should be allowed")
	}

	// Counter resets at the window boundary.
	current = base.Add(time.Minute)
	if !w.Allow("k") {
		t.Fatalf("event in next window should be allowed")
	}
}

func TestWindow_ZeroLimitRejectsAll(t *testing.T) {
	w := NewWindow(time.Minute, 0)
	if w.Allow("k") {
		t.Fatalf("zero limit should reject everything")
	}
}
