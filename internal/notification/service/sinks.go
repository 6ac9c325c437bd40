package service

import (
	"context"

	"github.com/staffdesk/staffdesk/internal/notification/domain"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

// Store persists in-app notifications
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListFor(ctx context.Context, recipient string, limit int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, recipient string) (int, error)
	MarkRead(ctx context.Context, id, recipient string) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
}

// EmailDirectory resolves a username to an email address
type EmailDirectory interface {
	EmailFor(ctx context.Context, username string) (string, error)
}

// InAppSink writes notifications to the inbox table
type InAppSink struct {
	store Store
}

// NewInAppSink creates an in-app sink
func NewInAppSink(store Store) *InAppSink {
	return &InAppSink{store: store}
}

func (s *InAppSink) Name() string { return domain.ChannelInApp }

func (s *InAppSink) Notify(ctx context.Context, recipient, message string) error {
	return s.store.Create(ctx, &domain.Notification{
		Recipient: recipient,
		Message:   message,
		Channel:   domain.ChannelInApp,
	})
}

// EmailSubject is the subject line of every notification email
const EmailSubject = "StaffDesk notification"

// EmailSink hands notifications to the mailer worker over the broker
type EmailSink struct {
	publisher messaging.EventPublisher
	directory EmailDirectory
	logger    *logger.Logger
}

// NewEmailSink creates an email sink. directory may be nil, in which case
// the worker derives the address from the username.
func NewEmailSink(publisher messaging.EventPublisher, directory EmailDirectory, log *logger.Logger) *EmailSink {
	return &EmailSink{publisher: publisher, directory: directory, logger: log}
}

func (s *EmailSink) Name() string { return domain.ChannelEmail }

func (s *EmailSink) Notify(ctx context.Context, recipient, message string) error {
	var email string
	if s.directory != nil {
		addr, err := s.directory.EmailFor(ctx, recipient)
		if err != nil {
			s.logger.Warn().Err(err).Str("recipient", recipient).Msg("no email on file")
		}
		email = addr
	}

	return s.publisher.Publish(ctx, messaging.EventNotificationEmail, messaging.EmailNotification{
		Recipient: recipient,
		Email:     email,
		Subject:   EmailSubject,
		Message:   message,
	})
}

// LogSink writes notifications to the log
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a log sink
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(ctx context.Context, recipient, message string) error {
	s.logger.Info().Str("recipient", recipient).Str("message", message).Msg("notification")
	return nil
}
