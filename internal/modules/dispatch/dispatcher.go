// README: Dispatcher fans a status transition out to notification, realtime, and mail channels.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"yumzy/internal/metrics"
	"yumzy/internal/modules/order"
	"yumzy/internal/modules/realtime"
	"yumzy/internal/types"
)

var ErrAllTiersFailed = errors.New("all notification tiers failed")

// RealtimeSink is the hub surface the dispatcher pushes through.
type RealtimeSink interface {
	Push(u realtime.Update) error
	ForceAppend(u realtime.Update)
}

// Mailer sends the out-of-band message for handed-off and delivered orders.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ContactDirectory resolves a user's verified out-of-band channel. Users
// without a verified channel simply get no mail.
type ContactDirectory interface {
	VerifiedEmail(ctx context.Context, userID types.ID) (string, bool)
}

type Dispatcher struct {
	tiers    []Tier
	hub      RealtimeSink
	mailer   Mailer
	contacts ContactDirectory
	log      *slog.Logger
	metrics  *metrics.Registry
}

type DispatcherOpts struct {
	Mailer   Mailer
	Contacts ContactDirectory
	Metrics  *metrics.Registry
}

func NewDispatcher(tiers []Tier, hub RealtimeSink, log *slog.Logger, opts DispatcherOpts) *Dispatcher {
	return &Dispatcher{
		tiers:    tiers,
		hub:      hub,
		mailer:   opts.Mailer,
		contacts: opts.Contacts,
		log:      log,
		metrics:  opts.Metrics,
	}
}

// Dispatch propagates one observed transition. The three channels are
// independent: a failed realtime push or mail never blocks or retries the
// notification tiers, and only total notification-tier failure escalates to
// the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, t order.Transition) error {
	notifyErr := d.deliverNotification(ctx, t)
	d.pushRealtime(t)
	d.sendMail(ctx, t)
	return notifyErr
}

// deliverNotification walks the fallback tiers in order and stops at the
// first success, so at most one tier lands a visible notification.
func (d *Dispatcher) deliverNotification(ctx context.Context, t order.Transition) error {
	var lastErr error
	for _, tier := range d.tiers {
		err := tier.Attempt(ctx, t)
		if d.metrics != nil {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			d.metrics.TierAttempts.WithLabelValues(tier.Name(), outcome).Inc()
		}
		if err == nil {
			return nil
		}
		lastErr = err
		d.log.Warn("notify tier failed, falling back",
			"tier", tier.Name(), "order_id", t.OrderID, "to", t.To, "error", err)
	}
	if d.metrics != nil {
		d.metrics.DispatchLost.Inc()
	}
	// This is the only dispatch failure operators should be paged for.
	d.log.Error("transition lost: no notification tier accepted it",
		"order_id", t.OrderID, "user_id", t.UserID, "from", t.From, "to", t.To)
	return fmt.Errorf("%w: %v", ErrAllTiersFailed, lastErr)
}

// pushRealtime is best-effort: a lost update costs nothing durable because
// the registry already holds the truth.
func (d *Dispatcher) pushRealtime(t order.Transition) {
	if d.hub == nil {
		return
	}
	u := realtime.Update{
		Type:    realtime.TypeOrderStatus,
		UserID:  t.UserID,
		OrderID: t.OrderID,
		Data: map[string]string{
			"status":          string(t.To),
			"previous_status": string(t.From),
		},
		Timestamp: t.At,
	}
	if t.To == order.StatusOutForDelivery {
		u.Type = realtime.TypeDeliveryUpdate
	}
	if err := d.hub.Push(u); err != nil {
		if d.metrics != nil {
			d.metrics.RealtimeDropped.Inc()
		}
		d.log.Debug("realtime push rejected, appending directly", "order_id", t.OrderID, "error", err)
		d.hub.ForceAppend(u)
	}
}

// sendMail fires the out-of-band message for the two statuses users care to
// hear about away from the app. Failures are logged and forgotten.
func (d *Dispatcher) sendMail(ctx context.Context, t order.Transition) {
	if d.mailer == nil || d.contacts == nil {
		return
	}
	if t.To != order.StatusOutForDelivery && t.To != order.StatusDelivered {
		return
	}
	email, ok := d.contacts.VerifiedEmail(ctx, t.UserID)
	if !ok {
		return
	}

	subject := "Your order is out for delivery"
	body := "Good news! Order " + string(t.OrderID) + " is on its way."
	if t.To == order.StatusDelivered {
		subject = "Your order was delivered"
		body = "Order " + string(t.OrderID) + " was delivered. Enjoy!"
	}
	if err := d.mailer.Send(ctx, email, subject, body); err != nil {
		d.log.Warn("out-of-band mail failed", "order_id", t.OrderID, "error", err)
	}
}
