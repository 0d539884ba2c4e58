package dbmysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"moogtchat/internal/common"
)

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) common.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification interface{}) error {
	notif, ok := notification.(*Notification)
	if !ok {
		return fmt.Errorf("invalid notification type")
	}

	if err := r.db.WithContext(ctx).Create(notif).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ByRecipient(
	ctx context.Context,
	recipientID string,
	limit, offset int,
) ([]interface{}, error) {
	var notifications []*Notification

	query := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	result := make([]interface{}, len(notifications))
	for i, notif := range notifications {
		result[i] = notif
	}
	return result, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, recipientID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", &now)

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Notification{}).
			Where("id = ? AND recipient_id = ?", id, recipientID).
			Count(&count).Error; err == nil && count > 0 {
			return nil // already read, idempotent
		}
		return common.NotFoundf("notification %s", id)
	}
	return nil
}

// MarkConversationRead marks every unread notification the recipient has for
// one conversation, up to the cutoff. Called by the read-receipt broadcast so
// the notification inbox converges with the message read-state.
func (r *notificationRepository) MarkConversationRead(
	ctx context.Context,
	recipientID, conversationID string,
	cutoff time.Time,
) error {
	now := time.Now()

	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND target_id = ? AND created_at <= ? AND read_at IS NULL",
			recipientID, conversationID, cutoff).
		Update("read_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to mark conversation notifications read: %w", err)
	}
	return nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&Notification{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NotFoundf("notification %s", id)
	}
	return nil
}
