package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sink receives events that leave the process.
type Sink interface {
	Forward(ctx context.Context, event Event) error
}

// RabbitPublisher forwards events to a topic exchange, routed by event type.
type RabbitPublisher struct {
	Conn     *amqp.Connection
	Channel  *amqp.Channel
	Exchange string
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(amqpURL, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitPublisher{Conn: conn, Channel: ch, Exchange: exchange}, nil
}

// RoutingKey is the key an event is published under.
func RoutingKey(event Event) string {
	return "ticket." + string(event.Type)
}

// Forward publishes the event as persistent JSON.
func (r *RabbitPublisher) Forward(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.Channel.PublishWithContext(ctx,
		r.Exchange,
		RoutingKey(event),
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Type:         string(event.Type),
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Close releases the channel and connection.
func (r *RabbitPublisher) Close() {
	if r == nil {
		return
	}
	r.Channel.Close()
	r.Conn.Close()
}
