package db

import (
	"context"
	"fmt"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationRepository provides inbox operations. Rows are written only by
// the engine; readers may only flip is_read to true on their own entries.
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// ListForUser returns the newest notifications addressed to userID
func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit < 1 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead marks one of userID's notifications as read. Notifications
// addressed to someone else are reported as not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %d", engine.ErrNotFound, id)
	}
	return nil
}

// MarkAllRead marks every unread notification of userID as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND NOT is_read", userID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UnreadCount counts userID's unread notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND NOT is_read", userID).
		Count(&count).Error
	return count, err
}
