// README: Per-user idempotency state backed by Redis.
package notification

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"yumzy/internal/types"
)

const (
	lastDealKeyPrefix      = "notify:deal:last:%s"
	noticeReadKeyPrefix    = "notify:notice:read:%s"
	noticeDismissKeyPrefix = "notify:notice:dismissed:%s"
)

// State holds the small per-user keys that make issuance idempotent across
// restarts: the last daily-deal date and the read/dismissed sets for one-shot
// system notices. Keys have no TTL; suppression is permanent.
type State struct {
	redis *redis.Client
}

func NewState(redis *redis.Client) *State {
	return &State{redis: redis}
}

func (s *State) LastDealDate(ctx context.Context, userID types.ID) (string, error) {
	val, err := s.redis.Get(ctx, lastDealKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *State) SetLastDealDate(ctx context.Context, userID types.ID, date string) error {
	return s.redis.Set(ctx, lastDealKey(userID), date, 0).Err()
}

func (s *State) NoticeSeen(ctx context.Context, userID types.ID, noticeID string) (bool, error) {
	pipe := s.redis.Pipeline()
	read := pipe.SIsMember(ctx, noticeReadKey(userID), noticeID)
	dismissed := pipe.SIsMember(ctx, noticeDismissKey(userID), noticeID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return read.Val() || dismissed.Val(), nil
}

func (s *State) MarkNoticeRead(ctx context.Context, userID types.ID, noticeID string) error {
	return s.redis.SAdd(ctx, noticeReadKey(userID), noticeID).Err()
}

func (s *State) MarkNoticeDismissed(ctx context.Context, userID types.ID, noticeID string) error {
	return s.redis.SAdd(ctx, noticeDismissKey(userID), noticeID).Err()
}

func lastDealKey(userID types.ID) string      { return fmt.Sprintf(lastDealKeyPrefix, userID) }
func noticeReadKey(userID types.ID) string    { return fmt.Sprintf(noticeReadKeyPrefix, userID) }
func noticeDismissKey(userID types.ID) string { return fmt.Sprintf(noticeDismissKeyPrefix, userID) }
