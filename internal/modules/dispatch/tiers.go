// README: Ordered notification delivery tiers.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"yumzy/internal/infra"
	"yumzy/internal/modules/notification"
	"yumzy/internal/modules/order"
	"yumzy/internal/types"
)

// Tier is one fallback delivery strategy. Attempt either makes the
// transition user-visible or reports why it could not; the dispatcher walks
// tiers in order and stops at the first success so a transition never lands
// in two places.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, t order.Transition) error
}

// Notifications is the slice of the registry the direct tier writes to.
type Notifications interface {
	Add(ctx context.Context, n *notification.Notification) error
}

// RegistryTier writes straight into the in-process notification registry.
type RegistryTier struct {
	registry Notifications
}

func NewRegistryTier(registry Notifications) *RegistryTier {
	return &RegistryTier{registry: registry}
}

func (t *RegistryTier) Name() string { return "registry" }

func (t *RegistryTier) Attempt(ctx context.Context, tr order.Transition) error {
	return t.registry.Add(ctx, notificationFor(tr))
}

// Publisher is the slice of the MQ client the remote tier publishes through.
type Publisher interface {
	PublishPersistent(ctx context.Context, exchange, key string, body []byte) error
}

// RemoteTier hands the transition to a remote notifier over the fanout
// exchange, for deployments where the registry lives in another process.
type RemoteTier struct {
	mq Publisher
}

func NewRemoteTier(mq Publisher) *RemoteTier {
	return &RemoteTier{mq: mq}
}

func (t *RemoteTier) Name() string { return "remote" }

func (t *RemoteTier) Attempt(ctx context.Context, tr order.Transition) error {
	if t.mq == nil {
		return fmt.Errorf("mq not configured")
	}
	body, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	return t.mq.PublishPersistent(ctx, infra.NotificationsExchange, "", body)
}

// Queue is the durable pending store the last-resort tier writes to.
type Queue interface {
	Enqueue(ctx context.Context, userID types.ID, payload []byte) error
}

// PendingTier parks the transition in a durable per-user queue for the
// background drain to replay later.
type PendingTier struct {
	queue Queue
}

func NewPendingTier(queue Queue) *PendingTier {
	return &PendingTier{queue: queue}
}

func (t *PendingTier) Name() string { return "pending" }

func (t *PendingTier) Attempt(ctx context.Context, tr order.Transition) error {
	body, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	return t.queue.Enqueue(ctx, tr.UserID, body)
}

var statusTitles = map[order.Status]struct {
	title   string
	message string
}{
	order.StatusConfirmed:      {"Order confirmed", "We received your order and sent it to the kitchen."},
	order.StatusPreparing:      {"Order being prepared", "The kitchen is working on your order now."},
	order.StatusOutForDelivery: {"Out for delivery", "Your order is on its way!"},
	order.StatusDelivered:      {"Order delivered", "Enjoy your meal! Thanks for ordering with us."},
	order.StatusCancelled:      {"Order cancelled", "Your order was cancelled."},
}

func notificationFor(t order.Transition) *notification.Notification {
	text, ok := statusTitles[t.To]
	if !ok {
		text.title = "Order update"
		text.message = "Your order status changed to " + string(t.To) + "."
	}

	ntype := notification.TypeOrder
	important := false
	switch t.To {
	case order.StatusOutForDelivery, order.StatusDelivered:
		ntype = notification.TypeDelivery
		important = true
	case order.StatusCancelled:
		important = true
	}

	return &notification.Notification{
		UserID:      t.UserID,
		Type:        ntype,
		Title:       text.title,
		Message:     text.message,
		IsImportant: important,
		Data: map[string]string{
			"order_id":        string(t.OrderID),
			"status":          string(t.To),
			"previous_status": string(t.From),
		},
		CreatedAt: t.At,
	}
}
