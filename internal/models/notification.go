package models

import "time"

// NotificationSeverity orders notifications in the inbox.
type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "INFO"
	NotificationSeverityWarning NotificationSeverity = "WARNING"
	NotificationSeverityUrgent  NotificationSeverity = "URGENT"
)

// Notification is an in-app message, either targeted at a single user or
// broadcast to every holder of a role. Exactly one of RecipientID and
// RecipientRole is set.
type Notification struct {
	ID            string               `db:"id" json:"id"`
	RecipientID   *string              `db:"recipient_id" json:"recipient_id,omitempty"`
	RecipientRole *UserRole            `db:"recipient_role" json:"recipient_role,omitempty"`
	Title         string               `db:"title" json:"title"`
	Body          string               `db:"body" json:"body"`
	Severity      NotificationSeverity `db:"severity" json:"severity"`
	ReadAt        *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter scopes inbox listings.
type NotificationFilter struct {
	UserID   string
	Role     UserRole
	Unread   bool
	Page     int
	PageSize int
}
