// README: In-memory per-user update queues with a since-cursor poll model.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"yumzy/internal/metrics"
	"yumzy/internal/types"
)

var (
	ErrInvalidUpdate = errors.New("invalid realtime update")
)

const (
	DefaultRetention = 5 * time.Minute
	DefaultMaxQueue  = 100
)

// Hub keeps one append-only queue per user. Everything here is ephemeral:
// a restart loses the queues, and that is fine because the notification
// registry is the durable source of truth.
type Hub struct {
	mu     sync.Mutex
	queues map[types.ID]*userQueue

	retention time.Duration
	maxQueue  int
	metrics   *metrics.Registry

	now func() time.Time
}

type userQueue struct {
	mu      sync.Mutex
	updates []Update
}

func NewHub(retention time.Duration, maxQueue int, m *metrics.Registry) *Hub {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if maxQueue <= 0 {
		maxQueue = DefaultMaxQueue
	}
	return &Hub{
		queues:    make(map[types.ID]*userQueue),
		retention: retention,
		maxQueue:  maxQueue,
		metrics:   m,
		now:       time.Now,
	}
}

// Push validates and appends an update, stamping the timestamp if unset.
func (h *Hub) Push(u Update) error {
	if u.UserID == "" || !knownTypes[u.Type] {
		return ErrInvalidUpdate
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = h.now()
	}
	h.append(u)
	return nil
}

// ForceAppend enqueues without validation or stamping. It exists as the
// dispatcher's last-ditch fallback when the normal push path rejects an
// update; entries still age out like any other.
func (h *Hub) ForceAppend(u Update) {
	if u.Timestamp.IsZero() {
		u.Timestamp = h.now()
	}
	h.append(u)
}

// Poll returns every update for the user strictly after since, plus the
// cursor for the next call. The cursor is the server's current time, not the
// last update's timestamp, so updates landing between polls are not replayed.
func (h *Hub) Poll(userID types.ID, since time.Time) ([]Update, time.Time) {
	now := h.now()
	q := h.queue(userID, false)
	if q == nil {
		return nil, now
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := now.Add(-h.retention)
	q.updates = trimBefore(q.updates, cutoff)

	var out []Update
	for _, u := range q.updates {
		if u.Timestamp.After(since) {
			out = append(out, u)
		}
	}
	return out, now
}

// RunPruner evicts aged-out entries for users that stopped polling.
func (h *Hub) RunPruner(ctx context.Context) {
	ticker := time.NewTicker(h.retention / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.prune()
		}
	}
}

func (h *Hub) prune() {
	cutoff := h.now().Add(-h.retention)

	h.mu.Lock()
	queues := make(map[types.ID]*userQueue, len(h.queues))
	for id, q := range h.queues {
		queues[id] = q
	}
	h.mu.Unlock()

	for id, q := range queues {
		q.mu.Lock()
		before := len(q.updates)
		q.updates = trimBefore(q.updates, cutoff)
		empty := len(q.updates) == 0
		evicted := before - len(q.updates)
		q.mu.Unlock()

		if evicted > 0 && h.metrics != nil {
			h.metrics.RealtimeEvicted.Add(float64(evicted))
		}
		if empty {
			h.mu.Lock()
			if cur, ok := h.queues[id]; ok && cur == q {
				cur.mu.Lock()
				if len(cur.updates) == 0 {
					delete(h.queues, id)
				}
				cur.mu.Unlock()
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) append(u Update) {
	q := h.queue(u.UserID, true)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.updates = trimBefore(q.updates, h.now().Add(-h.retention))
	q.updates = append(q.updates, u)
	if overflow := len(q.updates) - h.maxQueue; overflow > 0 {
		q.updates = append([]Update(nil), q.updates[overflow:]...)
		if h.metrics != nil {
			h.metrics.RealtimeEvicted.Add(float64(overflow))
		}
	}
}

func (h *Hub) queue(userID types.ID, create bool) *userQueue {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[userID]
	if !ok && create {
		q = &userQueue{}
		h.queues[userID] = q
	}
	return q
}

// trimBefore drops entries whose timestamp is not after cutoff. Queues are
// append-only with mostly-increasing timestamps, so a linear scan from the
// front is enough.
func trimBefore(updates []Update, cutoff time.Time) []Update {
	i := 0
	for i < len(updates) && !updates[i].Timestamp.After(cutoff) {
		i++
	}
	if i == 0 {
		return updates
	}
	return append([]Update(nil), updates[i:]...)
}
