// README: Dispatcher tests for tier fallback, realtime best-effort, and mail policy.
package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"yumzy/internal/modules/notification"
	"yumzy/internal/modules/order"
	"yumzy/internal/modules/realtime"
	"yumzy/internal/types"
)

type stubTier struct {
	name     string
	err      error
	mu       sync.Mutex
	attempts int
}

func (s *stubTier) Name() string { return s.name }

func (s *stubTier) Attempt(_ context.Context, _ order.Transition) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	return s.err
}

func (s *stubTier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

type stubHub struct {
	pushErr error
	pushed  []realtime.Update
	forced  []realtime.Update
}

func (s *stubHub) Push(u realtime.Update) error {
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushed = append(s.pushed, u)
	return nil
}

func (s *stubHub) ForceAppend(u realtime.Update) {
	s.forced = append(s.forced, u)
}

type stubMailer struct {
	err  error
	sent []string
}

func (s *stubMailer) Send(_ context.Context, to, subject, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to+": "+subject)
	return nil
}

type stubContacts struct {
	email string
}

func (s stubContacts) VerifiedEmail(_ context.Context, _ types.ID) (string, bool) {
	return s.email, s.email != ""
}

func testTransition(to order.Status) order.Transition {
	return order.Transition{
		OrderID: "o1",
		UserID:  "u1",
		From:    order.StatusPreparing,
		To:      to,
		At:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDispatchFirstTierWins(t *testing.T) {
	t1 := &stubTier{name: "registry"}
	t2 := &stubTier{name: "remote"}
	t3 := &stubTier{name: "pending"}
	d := NewDispatcher([]Tier{t1, t2, t3}, &stubHub{}, discard(), DispatcherOpts{})

	if err := d.Dispatch(context.Background(), testTransition(order.StatusPreparing)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if t1.count() != 1 || t2.count() != 0 || t3.count() != 0 {
		t.Fatalf("only the first tier should land: %d/%d/%d", t1.count(), t2.count(), t3.count())
	}
}

func TestDispatchFallsThroughTiers(t *testing.T) {
	t1 := &stubTier{name: "registry", err: errors.New("registry down")}
	t2 := &stubTier{name: "remote", err: errors.New("broker down")}
	t3 := &stubTier{name: "pending"}
	d := NewDispatcher([]Tier{t1, t2, t3}, &stubHub{}, discard(), DispatcherOpts{})

	if err := d.Dispatch(context.Background(), testTransition(order.StatusDelivered)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if t1.count() != 1 || t2.count() != 1 || t3.count() != 1 {
		t.Fatalf("expected fall-through to pending: %d/%d/%d", t1.count(), t2.count(), t3.count())
	}
}

func TestDispatchAllTiersFailing(t *testing.T) {
	t1 := &stubTier{name: "registry", err: errors.New("down")}
	t2 := &stubTier{name: "pending", err: errors.New("also down")}
	hub := &stubHub{}
	d := NewDispatcher([]Tier{t1, t2}, hub, discard(), DispatcherOpts{})

	err := d.Dispatch(context.Background(), testTransition(order.StatusPreparing))
	if !errors.Is(err, ErrAllTiersFailed) {
		t.Fatalf("expected ErrAllTiersFailed, got %v", err)
	}
	// the realtime push still happens: channels are independent
	if len(hub.pushed) != 1 {
		t.Fatalf("realtime push skipped on notification failure: %+v", hub.pushed)
	}
}

func TestDispatchRealtimeFallback(t *testing.T) {
	hub := &stubHub{pushErr: errors.New("rejected")}
	d := NewDispatcher([]Tier{&stubTier{name: "registry"}}, hub, discard(), DispatcherOpts{})

	if err := d.Dispatch(context.Background(), testTransition(order.StatusPreparing)); err != nil {
		t.Fatalf("realtime failure must not surface: %v", err)
	}
	if len(hub.forced) != 1 {
		t.Fatalf("expected direct append fallback, got %d", len(hub.forced))
	}
}

func TestDispatchRealtimeTypes(t *testing.T) {
	hub := &stubHub{}
	d := NewDispatcher([]Tier{&stubTier{name: "registry"}}, hub, discard(), DispatcherOpts{})

	_ = d.Dispatch(context.Background(), testTransition(order.StatusOutForDelivery))
	_ = d.Dispatch(context.Background(), testTransition(order.StatusDelivered))

	if hub.pushed[0].Type != realtime.TypeDeliveryUpdate {
		t.Errorf("out_for_delivery should push %s, got %s", realtime.TypeDeliveryUpdate, hub.pushed[0].Type)
	}
	if hub.pushed[1].Type != realtime.TypeOrderStatus {
		t.Errorf("delivered should push %s, got %s", realtime.TypeOrderStatus, hub.pushed[1].Type)
	}
}

func TestDispatchMailPolicy(t *testing.T) {
	mailer := &stubMailer{}
	d := NewDispatcher([]Tier{&stubTier{name: "registry"}}, &stubHub{}, discard(), DispatcherOpts{
		Mailer:   mailer,
		Contacts: stubContacts{email: "u1@example.com"},
	})

	for _, to := range []order.Status{order.StatusPreparing, order.StatusCancelled} {
		_ = d.Dispatch(context.Background(), testTransition(to))
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("mail only goes out for handoff and delivery, got %v", mailer.sent)
	}

	_ = d.Dispatch(context.Background(), testTransition(order.StatusOutForDelivery))
	_ = d.Dispatch(context.Background(), testTransition(order.StatusDelivered))
	if len(mailer.sent) != 2 {
		t.Fatalf("expected 2 mails, got %v", mailer.sent)
	}
}

func TestDispatchMailSkippedWithoutVerifiedContact(t *testing.T) {
	mailer := &stubMailer{}
	d := NewDispatcher([]Tier{&stubTier{name: "registry"}}, &stubHub{}, discard(), DispatcherOpts{
		Mailer:   mailer,
		Contacts: stubContacts{},
	})
	_ = d.Dispatch(context.Background(), testTransition(order.StatusDelivered))
	if len(mailer.sent) != 0 {
		t.Fatalf("unverified contact must not be mailed: %v", mailer.sent)
	}
}

func TestDispatchMailFailureSwallowed(t *testing.T) {
	mailer := &stubMailer{err: errors.New("smtp down")}
	d := NewDispatcher([]Tier{&stubTier{name: "registry"}}, &stubHub{}, discard(), DispatcherOpts{
		Mailer:   mailer,
		Contacts: stubContacts{email: "u1@example.com"},
	})
	if err := d.Dispatch(context.Background(), testTransition(order.StatusDelivered)); err != nil {
		t.Fatalf("mail failure must never surface: %v", err)
	}
}

type memNotifications struct {
	mu    sync.Mutex
	added []*notification.Notification
}

func (m *memNotifications) Add(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, n)
	return nil
}

func TestRegistryTierBuildsNotification(t *testing.T) {
	reg := &memNotifications{}
	tier := NewRegistryTier(reg)

	if err := tier.Attempt(context.Background(), testTransition(order.StatusOutForDelivery)); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if len(reg.added) != 1 {
		t.Fatalf("expected one notification, got %d", len(reg.added))
	}
	n := reg.added[0]
	if n.Type != notification.TypeDelivery || !n.IsImportant {
		t.Errorf("out_for_delivery should be an important delivery notification: %+v", n)
	}
	if n.Data["order_id"] != "o1" || n.Data["status"] != string(order.StatusOutForDelivery) {
		t.Errorf("missing transition data: %+v", n.Data)
	}

	if err := tier.Attempt(context.Background(), testTransition(order.StatusPreparing)); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if got := reg.added[1].Type; got != notification.TypeOrder {
		t.Errorf("preparing should be an order_update notification, got %s", got)
	}
}
