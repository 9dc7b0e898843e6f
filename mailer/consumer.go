package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"teetime/logging"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks a delivery that must not be requeued.
var ErrPermanent = errors.New("permanent mail failure")

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// Consumer reads queued emails and hands them to a Sender.
type Consumer struct {
	cfg    ConsumerConfig
	conn   *amqp.Connection
	ch     *amqp.Channel
	sender Sender
}

func NewConsumer(cfg ConsumerConfig, sender Sender) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "mail.#", cfg.Exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	cfg.Queue = q.Name
	return &Consumer{cfg: cfg, conn: conn, ch: ch, sender: sender}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "mail-worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	log := logging.With("mail-worker")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			err := Handle(ctx, c.sender, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, ErrPermanent):
				log.Error().Err(err).Str("key", d.RoutingKey).Msg("dropping email")
				_ = d.Nack(false, false)
			default:
				// requeued once, dropped on the second failure
				requeue := !d.Redelivered
				log.Warn().Err(err).Str("key", d.RoutingKey).Bool("requeue", requeue).Msg("email delivery failed")
				_ = d.Nack(false, requeue)
			}
		}
	}
}

// Handle decodes one queued email and delivers it.
func Handle(ctx context.Context, sender Sender, body []byte) error {
	var e Email
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrPermanent, err)
	}
	if e.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrPermanent)
	}
	return sender.Deliver(ctx, e)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
