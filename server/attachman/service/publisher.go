package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const eventsExchange = "task.events"

// AMQPPublisher pushes attachment lifecycle events onto the task.events
// topic exchange. Consumers (notification workers, activity feeds) bind
// their own queues; this side only publishes.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, eventsExchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
}

// NoopPublisher stands in when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, key string, payload any) error {
	return nil
}
