package events

import (
	"context"

	"github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

// UserEventPublisher publishes user-related events
type UserEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewUserEventPublisher creates a new user event publisher
func NewUserEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *UserEventPublisher {
	return &UserEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishUserRegistered publishes a user registered event
func (p *UserEventPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) {
	data := messaging.UserRegisteredEvent{
		Username:     user.Username,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserRegistered, data); err != nil {
		p.logger.Error().Err(err).Str("username", user.Username).Msg("failed to publish user registered event")
	}
}

// PublishUserRoleChanged publishes a user role changed event
func (p *UserEventPublisher) PublishUserRoleChanged(ctx context.Context, username, oldRole, newRole, changedBy string) {
	data := messaging.UserRoleChangedEvent{
		Username:  username,
		OldRole:   oldRole,
		NewRole:   newRole,
		ChangedBy: changedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserRoleChanged, data); err != nil {
		p.logger.Error().Err(err).Str("username", username).Msg("failed to publish user role changed event")
	}
}
