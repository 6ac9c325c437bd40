package domain

import "time"

// Delivery channels
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// Notification is a message delivered to a user's inbox
type Notification struct {
	ID        string     `db:"id" json:"id"`
	Recipient string     `db:"recipient" json:"recipient"`
	Message   string     `db:"message" json:"message"`
	Channel   string     `db:"channel" json:"channel"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// IsRead reports whether the recipient has seen the notification
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
