// Package mailer queues outgoing emails and delivers them from a worker.
//
// The API process only publishes an Email to the mail exchange; the
// cmd/mail-worker process consumes the queue and talks to SMTP.
package mailer

import (
	"context"

	"teetime/logging"
)

// Email is the message published to the queue.
type Email struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// Mailer accepts an email for delivery.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// Sender delivers an email right away.
type Sender interface {
	Deliver(ctx context.Context, e Email) error
}

// LogMailer writes emails to the log. Used when no broker is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, e Email) error {
	logging.With("mailer").Info().
		Str("to", e.To).
		Str("subject", e.Subject).
		Str("category", e.Category).
		Msg("email not sent, no broker configured")
	return nil
}

func (LogMailer) Deliver(ctx context.Context, e Email) error {
	return LogMailer{}.Send(ctx, e)
}
