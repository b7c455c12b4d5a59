package presence

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTracker_SingleConnection(t *testing.T) {
	tr := NewTracker()
	if !tr.Connect("u1") {
		t.Fatalf("first connect should report online transition")
	}
	if tr.Connect("u1") {
		t.Fatalf("second connect should not report a transition")
	}
	if !tr.IsOnline("u1") {
		t.Fatalf("expected u1 online")
	}
	if tr.Disconnect("u1") {
		t.Fatalf("first of two disconnects should not report offline")
	}
	if !tr.Disconnect("u1") {
		t.Fatalf("last disconnect should report offline transition")
	}
	if tr.IsOnline("u1") {
		t.Fatalf("expected u1 offline")
	}
}

func TestTracker_DisconnectWithoutConnect(t *testing.T) {
	tr := NewTracker()
	if tr.Disconnect("ghost") {
		t.Fatalf("disconnect of unknown user must not report a transition")
	}
	if tr.OnlineCount() != 0 {
		t.Fatalf("count=%d want 0", tr.OnlineCount())
	}
}

// N concurrent connects followed by N concurrent disconnects must produce
// exactly one online and one offline transition, and never a negative count.
func TestTracker_ConcurrentTransitions(t *testing.T) {
	const n = 64
	tr := NewTracker()

	var online, offline int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if tr.Connect("u1") {
				atomic.AddInt64(&online, 1)
			}
		}()
	}
	wg.Wait()

	if online != 1 {
		t.Fatalf("online transitions=%d want 1", online)
	}
	if !tr.IsOnline("u1") {
		t.Fatalf("expected online after connects")
	}

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if tr.Disconnect("u1") {
				atomic.AddInt64(&offline, 1)
			}
		}()
	}
	wg.Wait()

	if offline != 1 {
		t.Fatalf("offline transitions=%d want 1", offline)
	}
	if tr.IsOnline("u1") {
		t.Fatalf("expected offline after disconnects")
	}
	if tr.OnlineCount() != 0 {
		t.Fatalf("count=%d want 0", tr.OnlineCount())
	}
}

func TestTracker_InterleavedUsers(t *testing.T) {
	tr := NewTracker()
	tr.Connect("a")
	tr.Connect("b")
	tr.Connect("a")
	if tr.OnlineCount() != 2 {
		t.Fatalf("count=%d want 2", tr.OnlineCount())
	}
	tr.Disconnect("a")
	if !tr.IsOnline("a") {
		t.Fatalf("a still has one connection")
	}
	tr.Disconnect("a")
	if tr.IsOnline("a") {
		t.Fatalf("a should be offline")
	}
	if !tr.IsOnline("b") {
		t.Fatalf("b should be unaffected")
	}
}
