package service

import (
	"context"

	"github.com/staffdesk/staffdesk/internal/notification/domain"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// InboxService exposes the current user's in-app notifications
type InboxService struct {
	store Store
}

// NewInboxService creates a new inbox service
func NewInboxService(store Store) *InboxService {
	return &InboxService{store: store}
}

// List returns the caller's notifications newest first
func (s *InboxService) List(ctx context.Context, limit int) ([]*domain.Notification, error) {
	a, err := actor.Require(ctx, permissions.NotificationsSelf)
	if err != nil {
		return nil, err
	}
	return s.store.ListFor(ctx, a.Username, limit)
}

// UnreadCount returns the number of unread notifications of the caller
func (s *InboxService) UnreadCount(ctx context.Context) (int, error) {
	a, err := actor.Require(ctx, permissions.NotificationsSelf)
	if err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, a.Username)
}

// MarkRead marks one notification as read. Notifications of other users
// are reported as not found.
func (s *InboxService) MarkRead(ctx context.Context, id string) error {
	a, err := actor.Require(ctx, permissions.NotificationsSelf)
	if err != nil {
		return err
	}
	return s.store.MarkRead(ctx, id, a.Username)
}

// MarkAllRead marks all of the caller's notifications as read
func (s *InboxService) MarkAllRead(ctx context.Context) (int64, error) {
	a, err := actor.Require(ctx, permissions.NotificationsSelf)
	if err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, a.Username)
}
