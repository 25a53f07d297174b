// README: NotificationRegistry service with per-user idempotency guarantees.
package notification

import (
	"context"
	"errors"
	"time"

	"yumzy/internal/locks"
	"yumzy/internal/metrics"
	"yumzy/internal/types"
)

var ErrNotFound = errors.New("notification not found")

// RowStore is the durable notification store.
type RowStore interface {
	Insert(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id types.ID) (*Notification, error)
	ListVisible(ctx context.Context, userID types.ID, now time.Time) ([]*Notification, error)
	MarkRead(ctx context.Context, id types.ID) error
	MarkAllRead(ctx context.Context, userID types.ID) error
	Dismiss(ctx context.Context, id types.ID) error
	DismissNonPersistent(ctx context.Context, userID types.ID) error
	UnreadCount(ctx context.Context, userID types.ID, now time.Time) (int, error)
}

// IdempotencyState is the per-user issuance bookkeeping.
type IdempotencyState interface {
	LastDealDate(ctx context.Context, userID types.ID) (string, error)
	SetLastDealDate(ctx context.Context, userID types.ID, date string) error
	NoticeSeen(ctx context.Context, userID types.ID, noticeID string) (bool, error)
	MarkNoticeRead(ctx context.Context, userID types.ID, noticeID string) error
	MarkNoticeDismissed(ctx context.Context, userID types.ID, noticeID string) error
}

// Registry owns every notification a user can see. One instance per process;
// durable state lives in the row store and the idempotency state, so a
// restart changes nothing the user observes.
type Registry struct {
	rows    RowStore
	state   IdempotencyState
	locks   *locks.Keyed
	metrics *metrics.Registry

	now func() time.Time
}

func NewRegistry(rows RowStore, state IdempotencyState, m *metrics.Registry) *Registry {
	return &Registry{
		rows:    rows,
		state:   state,
		locks:   locks.NewKeyed(),
		metrics: m,
		now:     time.Now,
	}
}

// Add stores a notification built elsewhere (order transitions, promos).
func (r *Registry) Add(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = types.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}

	r.locks.Lock(string(n.UserID))
	defer r.locks.Unlock(string(n.UserID))
	return r.rows.Insert(ctx, n)
}

// IssueDailyDeal creates today's hot-deal notification, at most once per
// calendar day per user. Returns nil when today's deal was already issued.
func (r *Registry) IssueDailyDeal(ctx context.Context, userID types.ID) (*Notification, error) {
	r.locks.Lock(string(userID))
	defer r.locks.Unlock(string(userID))

	now := r.now()
	today := now.Format("2006-01-02")
	last, err := r.state.LastDealDate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last == today {
		return nil, nil
	}

	// Stamp the date before inserting: a crash between the two suppresses
	// today's deal rather than risking a double issue.
	if err := r.state.SetLastDealDate(ctx, userID, today); err != nil {
		return nil, err
	}

	expires := endOfDay(now)
	n := &Notification{
		ID:          types.NewID(),
		UserID:      userID,
		Type:        TypeHotDeal,
		Title:       "Today's Hot Deal",
		Message:     "A fresh deal is waiting for you. Check it out before midnight!",
		Data:        map[string]string{dataDealDate: today},
		IsImportant: true,
		ExpiresAt:   &expires,
		CreatedAt:   now,
	}
	if err := r.rows.Insert(ctx, n); err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.DailyDealsIssued.Inc()
	}
	return n, nil
}

// IssueOnceSystemNotice creates a one-shot system notice. A notice the user
// has already been issued, read, or dismissed is never created again.
func (r *Registry) IssueOnceSystemNotice(ctx context.Context, userID types.ID, noticeID, title, message string) (*Notification, error) {
	r.locks.Lock(string(userID))
	defer r.locks.Unlock(string(userID))

	seen, err := r.state.NoticeSeen(ctx, userID, noticeID)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, nil
	}

	now := r.now()
	n := &Notification{
		ID:           types.NewID(),
		UserID:       userID,
		Type:         TypeSystem,
		Title:        title,
		Message:      message,
		Data:         map[string]string{dataNoticeID: noticeID},
		IsImportant:  true,
		IsPersistent: true,
		CreatedAt:    now,
	}
	if err := r.rows.Insert(ctx, n); err != nil {
		return nil, err
	}
	// Record issuance in the read-set so the notice stays once-ever even if
	// the user never touches it.
	if err := r.state.MarkNoticeRead(ctx, userID, noticeID); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *Registry) List(ctx context.Context, userID types.ID) ([]*Notification, error) {
	return r.rows.ListVisible(ctx, userID, r.now())
}

func (r *Registry) UnreadCount(ctx context.Context, userID types.ID) (int, error) {
	return r.rows.UnreadCount(ctx, userID, r.now())
}

// MarkRead marks one of the user's notifications read. Unknown ids are a
// no-op so retries are always safe; another user's id is not found.
func (r *Registry) MarkRead(ctx context.Context, userID, id types.ID) error {
	n, err := r.rows.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotFound
	}

	r.locks.Lock(string(n.UserID))
	defer r.locks.Unlock(string(n.UserID))

	if err := r.rows.MarkRead(ctx, id); err != nil {
		return err
	}
	if noticeID, ok := n.Data[dataNoticeID]; ok {
		return r.state.MarkNoticeRead(ctx, n.UserID, noticeID)
	}
	return nil
}

func (r *Registry) MarkAllRead(ctx context.Context, userID types.ID) error {
	r.locks.Lock(string(userID))
	defer r.locks.Unlock(string(userID))

	visible, err := r.rows.ListVisible(ctx, userID, r.now())
	if err != nil {
		return err
	}
	if err := r.rows.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	for _, n := range visible {
		if noticeID, ok := n.Data[dataNoticeID]; ok {
			if err := r.state.MarkNoticeRead(ctx, userID, noticeID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Dismiss hides a notification permanently. Dismissing an already-dismissed
// or unknown id is a no-op; another user's id is not found.
func (r *Registry) Dismiss(ctx context.Context, userID, id types.ID) error {
	n, err := r.rows.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotFound
	}

	r.locks.Lock(string(n.UserID))
	defer r.locks.Unlock(string(n.UserID))

	if err := r.rows.Dismiss(ctx, id); err != nil {
		return err
	}
	if noticeID, ok := n.Data[dataNoticeID]; ok {
		return r.state.MarkNoticeDismissed(ctx, n.UserID, noticeID)
	}
	return nil
}

// ClearAll dismisses every non-persistent notification for the user.
func (r *Registry) ClearAll(ctx context.Context, userID types.ID) error {
	r.locks.Lock(string(userID))
	defer r.locks.Unlock(string(userID))

	visible, err := r.rows.ListVisible(ctx, userID, r.now())
	if err != nil {
		return err
	}
	if err := r.rows.DismissNonPersistent(ctx, userID); err != nil {
		return err
	}
	for _, n := range visible {
		if n.IsPersistent {
			continue
		}
		if noticeID, ok := n.Data[dataNoticeID]; ok {
			if err := r.state.MarkNoticeDismissed(ctx, userID, noticeID); err != nil {
				return err
			}
		}
	}
	return nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
