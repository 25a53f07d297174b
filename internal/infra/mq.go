// README: RabbitMQ client for the remote notification fan-out.
package infra

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// NotificationsExchange is the fanout exchange remote notifiers consume from.
	NotificationsExchange = "notifications_fanout"
	notificationsQueue    = "notifications.q"
)

type MQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialMQ(url string) (*MQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &MQ{conn: conn, ch: ch}, nil
}

func (m *MQ) Close() {
	if m == nil {
		return
	}
	if m.ch != nil {
		_ = m.ch.Close()
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// DeclareNotifications sets up the fanout exchange and its durable queue.
// Safe to call on every startup.
func (m *MQ) DeclareNotifications() error {
	if m == nil || m.ch == nil {
		return fmt.Errorf("nil channel")
	}
	if err := m.ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := m.ch.QueueDeclare(notificationsQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return m.ch.QueueBind(notificationsQueue, "", NotificationsExchange, false, nil)
}

func (m *MQ) PublishPersistent(ctx context.Context, exchange, key string, body []byte) error {
	if m == nil || m.ch == nil {
		return fmt.Errorf("nil channel")
	}
	return m.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}
