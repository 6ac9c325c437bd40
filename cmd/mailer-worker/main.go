package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/staffdesk/staffdesk/internal/notification/mailer"
	"github.com/staffdesk/staffdesk/pkg/config"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

const serviceName = "mailer-worker"

func main() {
	cfg, err := config.LoadWithValidation("staffdesk")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting mailer worker")

	if !cfg.RabbitMQ.Enabled() {
		log.Fatal().Msg("STAFFDESK_RABBITMQ_URL is required by the mailer worker")
	}

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareExchange(cfg.RabbitMQ.Exchange); err != nil {
		log.Fatal().Err(err).Msg("failed to declare exchange")
	}
	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	if !cfg.SMTP.Enabled() {
		log.Warn().Msg("SMTP not configured, emails will only be logged")
	}
	m, err := mailer.New(&cfg.SMTP, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mailer")
	}
	handler := mailer.NewEmailHandler(m, cfg.SMTP.Domain, log)

	consumer, err := mailer.NewEmailConsumer(rmq, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.MaxRetries, handler, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create email consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start email consumer")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down mailer worker")
	cancel()
	log.Info().Msg("mailer worker stopped")
}
