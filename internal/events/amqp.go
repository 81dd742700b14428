package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig configures the broker publisher
type AMQPConfig struct {
	URL        string        `yaml:"url"`
	Exchange   string        `yaml:"exchange"`
	RoutingKey string        `yaml:"routing_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AMQPEmitter publishes events as JSON messages to a topic exchange.
// The routing key is "<prefix>.<event code>".
type AMQPEmitter struct {
	cfg  AMQPConfig
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPEmitter dials the broker and declares the exchange
func NewAMQPEmitter(cfg AMQPConfig) (*AMQPEmitter, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "anchord.events"
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = "anchord"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	slog.Info("Event publisher connected", "exchange", cfg.Exchange)

	return &AMQPEmitter{cfg: cfg, conn: conn, ch: ch}, nil
}

func (e *AMQPEmitter) Emit(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "code", event.Code, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.ch.PublishWithContext(ctx, e.cfg.Exchange, e.cfg.RoutingKey+"."+string(event.Code), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Time,
		Body:         body,
	})
	if err != nil {
		slog.Warn("Failed to publish event", "code", event.Code, "error", err)
	}
}

// Close releases the channel and the connection
func (e *AMQPEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ch.Close(); err != nil {
		slog.Warn("Failed to close event channel", "error", err)
	}
	return e.conn.Close()
}
