// README: Durable pending-queue in Redis, drained by a background sweep.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"yumzy/internal/metrics"
	"yumzy/internal/modules/order"
	"yumzy/internal/types"
)

const pendingKeyPrefix = "notify:pending:user:"

// PendingQueue survives process restarts: transitions that could not reach
// the user through any live tier wait here until the drain replays them.
type PendingQueue struct {
	redis   *redis.Client
	metrics *metrics.Registry
}

func NewPendingQueue(r *redis.Client, m *metrics.Registry) *PendingQueue {
	return &PendingQueue{redis: r, metrics: m}
}

func (p *PendingQueue) Enqueue(ctx context.Context, userID types.ID, payload []byte) error {
	if err := p.redis.RPush(ctx, pendingKey(userID), payload).Err(); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.PendingDepth.Inc()
	}
	return nil
}

// DrainOnce replays queued transitions through the given tier, oldest first.
// A failed replay puts the entry back at the front of its queue and leaves
// the rest of that user's backlog for the next pass, preserving order.
func (p *PendingQueue) DrainOnce(ctx context.Context, target Tier, log *slog.Logger) int {
	replayed := 0
	iter := p.redis.Scan(ctx, 0, pendingKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		for {
			payload, err := p.redis.LPop(ctx, key).Bytes()
			if err == redis.Nil {
				break
			}
			if err != nil {
				log.Error("pending drain: pop failed", "key", key, "error", err)
				break
			}

			var tr order.Transition
			if err := json.Unmarshal(payload, &tr); err != nil {
				// Unparseable entries are dropped; re-queueing them would
				// wedge the whole queue.
				log.Error("pending drain: dropping bad payload", "key", key, "error", err)
				if p.metrics != nil {
					p.metrics.PendingDepth.Dec()
				}
				continue
			}
			if err := target.Attempt(ctx, tr); err != nil {
				if pushErr := p.redis.LPush(ctx, key, payload).Err(); pushErr != nil {
					log.Error("pending drain: requeue failed, transition lost", "key", key, "error", pushErr)
					if p.metrics != nil {
						p.metrics.PendingDepth.Dec()
						p.metrics.DispatchLost.Inc()
					}
				}
				break
			}
			replayed++
			if p.metrics != nil {
				p.metrics.PendingDepth.Dec()
				p.metrics.PendingReplayed.Inc()
			}
		}
	}
	if err := iter.Err(); err != nil {
		log.Error("pending drain: scan failed", "error", err)
	}
	return replayed
}

// RunDrain sweeps the pending queues on a fixed interval until ctx is done.
func (p *PendingQueue) RunDrain(ctx context.Context, interval time.Duration, target Tier, log *slog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.DrainOnce(ctx, target, log); n > 0 {
				log.Info("pending drain: replayed transitions", "count", n)
			}
		}
	}
}

func pendingKey(userID types.ID) string {
	return fmt.Sprintf("%s%s", pendingKeyPrefix, userID)
}
