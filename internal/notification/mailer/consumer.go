package mailer

import (
	"context"
	"fmt"

	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

// EmailHandler turns notification.email events into mail (testable without RabbitMQ)
type EmailHandler struct {
	mailer Mailer
	domain string
	logger *logger.Logger
}

// NewEmailHandler creates a handler. domain is appended to usernames that
// arrive without an address.
func NewEmailHandler(mailer Mailer, domain string, log *logger.Logger) *EmailHandler {
	return &EmailHandler{
		mailer: mailer,
		domain: domain,
		logger: log,
	}
}

// HandleEvent delivers one email notification
func (h *EmailHandler) HandleEvent(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmailNotification
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("failed to unmarshal email notification: %w", err)
	}

	to := h.address(data)
	if to == "" {
		h.logger.Warn().Str("recipient", data.Recipient).Msg("no address for recipient, email dropped")
		return nil
	}

	if err := h.mailer.Send(ctx, Message{To: to, Subject: data.Subject, Body: data.Message}); err != nil {
		return err
	}

	h.logger.Info().Str("recipient", data.Recipient).Str("to", to).Msg("email delivered")
	return nil
}

func (h *EmailHandler) address(data messaging.EmailNotification) string {
	if data.Email != "" {
		return data.Email
	}
	if h.domain == "" || data.Recipient == "" {
		return ""
	}
	return data.Recipient + "@" + h.domain
}

// EmailConsumer consumes notification.email events from the mailer queue
type EmailConsumer struct {
	consumer *messaging.Consumer
	handler  *EmailHandler
	logger   *logger.Logger
}

// NewEmailConsumer declares the mailer queue, binds it to the exchange and
// registers the handler
func NewEmailConsumer(rmq *messaging.RabbitMQ, exchange string, maxRetries int, handler *EmailHandler, log *logger.Logger) (*EmailConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, messaging.QueueMailer, maxRetries, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(exchange, messaging.EventNotificationEmail); err != nil {
		return nil, err
	}
	consumer.RegisterHandler(messaging.EventNotificationEmail, handler.HandleEvent)

	return &EmailConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   log,
	}, nil
}

// Start starts consuming messages
func (c *EmailConsumer) Start(ctx context.Context) error {
	c.logger.Info().Str("queue", messaging.QueueMailer).Msg("mailer consumer started")
	return c.consumer.Start(ctx)
}
