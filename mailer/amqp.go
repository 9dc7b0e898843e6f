package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"teetime/logging"
	"teetime/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Publisher publishes one JSON message under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// RabbitPublisher publishes to a durable topic exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON is safe for concurrent use; amqp channels are not.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RoutingKey is the key every email is published under.
func RoutingKey(category string) string {
	if category == "" {
		category = "general"
	}
	return "mail." + category
}

// BreakerConfig tunes the circuit breaker in front of the broker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "mail-publish",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// QueueMailer publishes emails through a circuit breaker so a dead broker
// fails fast instead of stalling every request that sends mail.
type QueueMailer struct {
	pub     Publisher
	breaker *gobreaker.CircuitBreaker[any]
	timeout time.Duration
}

func NewQueueMailer(pub Publisher, cfg BreakerConfig) *QueueMailer {
	log := logging.With("mailer")
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &QueueMailer{
		pub:     pub,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		timeout: 5 * time.Second,
	}
}

func (m *QueueMailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return fmt.Errorf("email has no recipient")
	}
	_, err := m.breaker.Execute(func() (any, error) {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		return nil, m.pub.PublishJSON(pctx, RoutingKey(e.Category), e)
	})
	if err != nil {
		metrics.EmailsQueued.WithLabelValues(e.Category, "error").Inc()
		return fmt.Errorf("publish email: %w", err)
	}
	metrics.EmailsQueued.WithLabelValues(e.Category, "ok").Inc()
	return nil
}

// State reports the breaker state for health output.
func (m *QueueMailer) State() string {
	return m.breaker.State().String()
}
