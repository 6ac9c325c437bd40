package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/staffdesk/staffdesk/internal/notification/domain"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

const notificationColumns = `id, recipient, message, channel, read_at, created_at`

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Channel == "" {
		n.Channel = domain.ChannelInApp
	}
	query := `
		INSERT INTO notifications (id, recipient, message, channel)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query, n.ID, n.Recipient, n.Message, n.Channel)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return database.MapError(err)
	}
	return nil
}

// ListFor returns a recipient's notifications newest first
func (r *NotificationRepository) ListFor(ctx context.Context, recipient string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	notifications := []*domain.Notification{}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.Q(ctx).SelectContext(ctx, &notifications, query, recipient, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount counts a recipient's unread notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context, recipient string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND read_at IS NULL`
	if err := r.db.Q(ctx).GetContext(ctx, &count, query, recipient); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead marks one of the recipient's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipient string) error {
	query := `UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND recipient = $2`
	result, err := r.db.Q(ctx).ExecContext(ctx, query, id, recipient)
	if err != nil {
		return database.MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("Notification")
	}
	return nil
}

// MarkAllRead marks every unread notification of the recipient as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	query := `UPDATE notifications SET read_at = NOW() WHERE recipient = $1 AND read_at IS NULL`
	result, err := r.db.Q(ctx).ExecContext(ctx, query, recipient)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
