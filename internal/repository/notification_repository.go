package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one notification outside any surrounding transaction.
// Review-flow notifications are written by the leave repository inside its
// decision transaction instead.
func (r *NotificationRepository) Create(ctx context.Context, note *models.Notification) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, recipient_id, recipient_role, title, body, severity, read_at, created_at)
		VALUES (:id, :recipient_id, :recipient_role, :title, :body, :severity, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForUser returns the user's inbox: messages targeted at them plus
// broadcasts to their role, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := "FROM notifications WHERE (recipient_id = $1 OR recipient_role = $2)"
	args := []interface{}{filter.UserID, filter.Role}
	if filter.Unread {
		base += " AND read_at IS NULL"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, recipient_id, recipient_role, title, body, severity, read_at, created_at
%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead stamps a notification as read for the given user. Broadcasts can
// be marked read by any holder of the role they target.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, role models.UserRole) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = $2
WHERE id = $1 AND read_at IS NULL AND (recipient_id = $3 OR recipient_role = $4)`,
		id, time.Now().UTC(), userID, role)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification result: %w", err)
	}
	return affected > 0, nil
}
