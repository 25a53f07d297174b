// README: Reconciler drives time-derived status transitions and notification dispatch.
package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"yumzy/internal/locks"
	"yumzy/internal/metrics"
	"yumzy/internal/modules/estimate"
	"yumzy/internal/types"
)

var (
	ErrNotFound = errors.New("order not found")
	ErrTerminal = errors.New("order already terminal")
)

// Storage is the slice of the order store the reconciler needs.
type Storage interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	ListActive(ctx context.Context) ([]*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error)
	MergeTracking(ctx context.Context, id types.ID, kv map[string]string) error
}

// Transition identifies a single observed status change.
type Transition struct {
	OrderID types.ID  `json:"order_id"`
	UserID  types.ID  `json:"user_id"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	At      time.Time `json:"at"`
}

// Notifier propagates a transition to the user. An error means the change
// could not be made user-visible; it never rolls back the status write.
type Notifier interface {
	Dispatch(ctx context.Context, t Transition) error
}

type Reconciler struct {
	store   Storage
	notify  Notifier
	locks   *locks.Keyed
	log     *slog.Logger
	metrics *metrics.Registry

	sweepInterval   time.Duration
	perOrderTimeout time.Duration

	now func() time.Time
}

type ReconcilerOpts struct {
	SweepInterval   time.Duration
	PerOrderTimeout time.Duration
	Metrics         *metrics.Registry
}

func NewReconciler(store Storage, notify Notifier, log *slog.Logger, opts ReconcilerOpts) *Reconciler {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 15 * time.Second
	}
	if opts.PerOrderTimeout <= 0 {
		opts.PerOrderTimeout = 5 * time.Second
	}
	return &Reconciler{
		store:           store,
		notify:          notify,
		locks:           locks.NewKeyed(),
		log:             log,
		metrics:         opts.Metrics,
		sweepInterval:   opts.SweepInterval,
		perOrderTimeout: opts.PerOrderTimeout,
		now:             time.Now,
	}
}

// Get loads one order, normalizing any legacy status spelling for display.
// Persistence of the normalization happens on the next reconcile.
// Create places a new order in the initial status with the fixed delivery
// ETA stamped from the placement time.
func (r *Reconciler) Create(ctx context.Context, userID types.ID, items []Item) (*Order, error) {
	now := r.now()
	o := &Order{
		ID:                    types.NewID(),
		UserID:                userID,
		Status:                StatusConfirmed,
		Items:                 items,
		Tracking:              map[string]string{},
		CreatedAt:             now,
		UpdatedAt:             now,
		EstimatedDeliveryTime: estimate.DeliveryTime(now),
	}
	if err := r.store.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Reconciler) Get(ctx context.Context, id types.ID) (*Order, error) {
	o, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Status, _ = Normalize(o.Status)
	return o, nil
}

// ReconcileOne recomputes one order's status from elapsed time and applies the
// transition, notifying at most once per distinct status value. The sweep and
// on-demand client checks both land here; the per-id lock plus the store's
// conditional write make a racing pair observe exactly one transition.
func (r *Reconciler) ReconcileOne(ctx context.Context, id types.ID) (bool, error) {
	r.locks.Lock(string(id))
	defer r.locks.Unlock(string(id))

	o, err := r.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if o.Status.Terminal() {
		return false, nil
	}

	now := r.now()
	current := o.Status
	if canonical, changed := Normalize(current); changed {
		// Bookkeeping only: rewrite the stored spelling without telling the
		// user anything, then continue against the canonical value.
		if _, err := r.store.UpdateStatus(ctx, id, current, canonical, now); err != nil {
			return false, err
		}
		if r.metrics != nil {
			r.metrics.Normalizations.Inc()
		}
		current = canonical
	}

	candidate := StatusAt(o.CreatedAt, now)
	if candidate == current {
		return false, nil
	}
	if !CanAdvance(current, candidate) {
		// A stored status ahead of the clock (manual bump, skewed writer)
		// must never regress.
		return false, nil
	}

	applied, err := r.store.UpdateStatus(ctx, id, current, candidate, now)
	if err != nil {
		return false, err
	}
	if !applied {
		// Another process already moved the order; nothing to notify here.
		return false, nil
	}
	if r.metrics != nil {
		r.metrics.TransitionsApplied.WithLabelValues(string(candidate)).Inc()
	}

	r.dispatch(ctx, Transition{
		OrderID: id,
		UserID:  o.UserID,
		From:    current,
		To:      candidate,
		At:      now,
	})
	return true, nil
}

// Cancel marks an order cancelled. Cancellation is an external event, never
// time-derived, and is terminal. The reason lands in the tracking metadata.
func (r *Reconciler) Cancel(ctx context.Context, id types.ID, reason string) error {
	r.locks.Lock(string(id))
	defer r.locks.Unlock(string(id))

	o, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	current, _ := Normalize(o.Status)
	if current.Terminal() {
		return ErrTerminal
	}

	now := r.now()
	applied, err := r.store.UpdateStatus(ctx, id, o.Status, StatusCancelled, now)
	if err != nil {
		return err
	}
	if !applied {
		return ErrTerminal
	}
	if reason != "" {
		if err := r.store.MergeTracking(ctx, id, map[string]string{"cancel_reason": reason}); err != nil {
			r.log.Warn("cancel reason not recorded", "order_id", id, "error", err)
		}
	}
	if r.metrics != nil {
		r.metrics.TransitionsApplied.WithLabelValues(string(StatusCancelled)).Inc()
	}

	r.dispatch(ctx, Transition{
		OrderID: id,
		UserID:  o.UserID,
		From:    current,
		To:      StatusCancelled,
		At:      now,
	})
	return nil
}

// SweepAll reconciles every non-terminal order. One order's failure never
// aborts the sweep.
func (r *Reconciler) SweepAll(ctx context.Context) (int, error) {
	start := r.now()
	active, err := r.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, o := range active {
		octx, cancel := context.WithTimeout(ctx, r.perOrderTimeout)
		changed, err := r.ReconcileOne(octx, o.ID)
		cancel()
		if err != nil {
			if r.metrics != nil {
				r.metrics.SweepErrors.Inc()
			}
			r.log.Error("sweep: reconcile failed", "order_id", o.ID, "error", err)
			continue
		}
		if changed {
			applied++
		}
	}
	if r.metrics != nil {
		r.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	return applied, nil
}

// RunSweeper drives SweepAll on a fixed interval until ctx is done.
func (r *Reconciler) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SweepAll(ctx); err != nil {
				if r.metrics != nil {
					r.metrics.SweepErrors.Inc()
				}
				r.log.Error("sweep: listing active orders failed", "error", err)
			}
		}
	}
}

func (r *Reconciler) dispatch(ctx context.Context, t Transition) {
	if r.notify == nil {
		return
	}
	if err := r.notify.Dispatch(ctx, t); err != nil {
		// The status write already landed; a lost notification is logged and
		// left to the pending-queue drain, never retried here.
		r.log.Error("dispatch failed after status write", "order_id", t.OrderID, "to", t.To, "error", err)
	}
}
