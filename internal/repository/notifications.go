package repository

import (
	"context"
	"time"

	"fixflow.io/fixflow/internal/domain"
)

// NotificationRepo persists inbox notifications.
type NotificationRepo struct {
	db DB
}

// NewNotificationRepo creates a notification repository on the given executor.
func NewNotificationRepo(db DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Insert stores one notification.
func (r *NotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (
			id, recipient_id, type, title, message, resource_type, resource_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Message,
		n.ResourceType, n.ResourceID, n.CreatedAt,
	)
	return err
}

// ListByRecipient returns a recipient's notifications, newest first.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, recipient_id, type, title, message, resource_type, resource_id, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message,
			&n.ResourceType, &n.ResourceID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead stamps a notification as read. Marking twice keeps the first stamp.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipientID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`, id, recipientID)
	return err
}

// DeleteOlderThan removes notifications created before the cutoff and returns
// the number of rows deleted.
func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
