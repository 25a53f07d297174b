// README: Hub tests for cursor semantics, retention, and concurrency.
package realtime

import (
	"sync"
	"testing"
	"time"
)

func newTestHub(now time.Time) *Hub {
	h := NewHub(5*time.Minute, 100, nil)
	h.now = func() time.Time { return now }
	return h
}

func TestPollStrictlyAfterCursor(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHub(base)

	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		h.now = func() time.Time { return ts }
		if err := h.Push(Update{Type: TypeOrderStatus, UserID: "u1", OrderID: "o1"}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	pollAt := base.Add(10 * time.Second)
	h.now = func() time.Time { return pollAt }

	since := base.Add(1 * time.Second)
	updates, cursor := h.Poll("u1", since)
	if len(updates) != 1 {
		t.Fatalf("expected 1 update after %v, got %d", since, len(updates))
	}
	for _, u := range updates {
		if !u.Timestamp.After(since) {
			t.Fatalf("update at %v not strictly after cursor %v", u.Timestamp, since)
		}
	}
	if !cursor.Equal(pollAt) {
		t.Fatalf("cursor must be server time %v, got %v", pollAt, cursor)
	}
}

func TestPollEmptyAdvancesCursor(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHub(base)

	updates, c1 := h.Poll("u1", time.Time{})
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(updates))
	}

	later := base.Add(5 * time.Second)
	h.now = func() time.Time { return later }
	updates, c2 := h.Poll("u1", c1)
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(updates))
	}
	if !c2.After(c1) {
		t.Fatalf("cursor must advance: %v -> %v", c1, c2)
	}
}

func TestStaleCursorRedelivers(t *testing.T) {
	// At-least-once: a client that re-polls with an old cursor sees the same
	// update again.
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHub(base)
	_ = h.Push(Update{Type: TypeOrderStatus, UserID: "u1", OrderID: "o1"})

	h.now = func() time.Time { return base.Add(time.Second) }
	first, _ := h.Poll("u1", time.Time{})
	second, _ := h.Poll("u1", time.Time{})
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("stale cursor should redeliver: first=%d second=%d", len(first), len(second))
	}
}

func TestRetentionEviction(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHub(base)
	_ = h.Push(Update{Type: TypeOrderStatus, UserID: "u1", OrderID: "o1"})

	h.now = func() time.Time { return base.Add(6 * time.Minute) }
	updates, _ := h.Poll("u1", time.Time{})
	if len(updates) != 0 {
		t.Fatalf("expected aged-out updates to be evicted, got %d", len(updates))
	}
}

func TestPruneDropsIdleQueues(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHub(base)
	_ = h.Push(Update{Type: TypeNotification, UserID: "idle"})

	h.now = func() time.Time { return base.Add(10 * time.Minute) }
	h.prune()

	h.mu.Lock()
	n := len(h.queues)
	h.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle queues to be dropped, got %d", n)
	}
}

func TestMaxQueueBound(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := NewHub(5*time.Minute, 10, nil)
	h.now = func() time.Time { return base }

	for i := 0; i < 25; i++ {
		ts := base.Add(time.Duration(i) * time.Millisecond)
		h.now = func() time.Time { return ts }
		_ = h.Push(Update{Type: TypeOrderStatus, UserID: "u1"})
	}

	updates, _ := h.Poll("u1", time.Time{})
	if len(updates) != 10 {
		t.Fatalf("expected queue capped at 10, got %d", len(updates))
	}
	// the oldest entries are the ones dropped
	if got := updates[0].Timestamp; !got.Equal(base.Add(15 * time.Millisecond)) {
		t.Fatalf("expected oldest surviving entry at +15ms, got %v", got)
	}
}

func TestPushRejectsInvalid(t *testing.T) {
	h := newTestHub(time.Now())
	if err := h.Push(Update{Type: "bogus", UserID: "u1"}); err == nil {
		t.Fatal("unknown type must be rejected")
	}
	if err := h.Push(Update{Type: TypeOrderStatus}); err == nil {
		t.Fatal("missing user must be rejected")
	}
}

func TestForceAppendBypassesValidation(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHub(base)

	h.ForceAppend(Update{Type: "bogus", UserID: "u1"})
	h.now = func() time.Time { return base.Add(time.Second) }
	updates, _ := h.Poll("u1", time.Time{})
	if len(updates) != 1 {
		t.Fatalf("force-appended update should be polled, got %d", len(updates))
	}
}

func TestConcurrentPushPoll(t *testing.T) {
	h := NewHub(5*time.Minute, 1000, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.Push(Update{Type: TypeOrderStatus, UserID: "u1", OrderID: "o1"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		since := time.Time{}
		for j := 0; j < 20; j++ {
			_, since = h.Poll("u1", since)
		}
	}()
	wg.Wait()

	updates, _ := h.Poll("u1", time.Time{})
	if len(updates) != 400 {
		t.Fatalf("expected 400 updates, got %d", len(updates))
	}
}
