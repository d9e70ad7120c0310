// Package broker is the RabbitMQ connection shared by the cart event
// publisher and the order dispatcher.
package broker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends one message to the exchange under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Envelope wraps every message put on the exchange.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Marshal builds the JSON envelope for payload.
func Marshal(eventType string, at time.Time, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, Timestamp: at.UTC(), Payload: payload})
}

type Rabbit struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// Dial connects and declares a durable topic exchange.
func Dial(url, exchange string, log zerolog.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange, log: log.With().Str("exchange", exchange).Logger()}, nil
}

func (r *Rabbit) Close() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

func (r *Rabbit) Publish(ctx context.Context, routingKey string, body []byte) error {
	return r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

type ConsumerHandler func(routingKey string, body []byte) error

// ConsumeTopic binds an exclusive auto-delete queue to the given routing
// patterns and feeds deliveries to handler until ctx ends or the channel
// closes.
func (r *Rabbit) ConsumeTopic(ctx context.Context, bindings []string, handler ConsumerHandler) error {
	q, err := r.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	for _, rk := range bindings {
		if err := r.ch.QueueBind(q.Name, rk, r.exchange, false, nil); err != nil {
			return err
		}
	}
	msgs, err := r.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				r.log.Warn().Str("queue", q.Name).Msg("consumer stopped")
				return nil
			}
			if err := handler(d.RoutingKey, d.Body); err != nil {
				r.log.Error().Err(err).Str("rk", d.RoutingKey).Msg("handler error")
			}
		}
	}
}
