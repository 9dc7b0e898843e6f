// cmd/mail-worker - Consumes queued emails and delivers them over SMTP
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"teetime/config"
	"teetime/logging"
	"teetime/mailer"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.With("mail-worker")

	var sender mailer.Sender = mailer.LogMailer{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn().Msg("SMTP_HOST not set, emails will only be logged")
	}

	consumer, err := mailer.NewConsumer(mailer.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.MailExchange,
		Queue:    cfg.MailQueue,
		Prefetch: cfg.MailPrefetch,
	}, sender)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to mail queue")
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", cfg.MailQueue).Str("exchange", cfg.MailExchange).Msg("mail worker started")
	if err := consumer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("mail worker stopped")
		os.Exit(1)
	}
	log.Info().Msg("mail worker stopped")
}
