package notif

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

// DatabaseNotificationObserver persists every event as a notification row.
// The email/telegram/push flags ride along on the record; the delivery
// services read them from here.
type DatabaseNotificationObserver struct {
	repo common.NotificationRepository
}

func NewDatabaseNotificationObserver(repo common.NotificationRepository) *DatabaseNotificationObserver {
	return &DatabaseNotificationObserver{repo: repo}
}

func (d *DatabaseNotificationObserver) Name() string {
	return "database_observer"
}

func (d *DatabaseNotificationObserver) Update(event common.NotificationEvent) error {
	notification := &dbmysql.Notification{
		ID:           uuid.NewString(),
		RecipientID:  event.RecipientID,
		ActorID:      event.ActorID,
		Verb:         event.Verb,
		Category:     event.Category,
		Type:         event.Type,
		TargetType:   event.TargetType,
		TargetID:     event.TargetID,
		Title:        event.Title,
		Description:  event.Description,
		Data:         event.Data,
		SendEmail:    event.SendEmail,
		SendTelegram: event.SendTelegram,
		SendPush:     event.SendPush,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := d.repo.Create(context.Background(), notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// RealtimeNotificationObserver mirrors each event onto the recipient's
// realtime channel so open clients see it without polling.
type RealtimeNotificationObserver struct {
	publisher common.Publisher
}

func NewRealtimeNotificationObserver(publisher common.Publisher) *RealtimeNotificationObserver {
	return &RealtimeNotificationObserver{publisher: publisher}
}

func (o *RealtimeNotificationObserver) Name() string {
	return "realtime_observer"
}

func (o *RealtimeNotificationObserver) Update(event common.NotificationEvent) error {
	payload := map[string]interface{}{
		"type":        string(event.Type),
		"verb":        event.Verb,
		"category":    string(event.Category),
		"target_type": event.TargetType,
		"target_id":   event.TargetID,
		"title":       event.Title,
		"description": event.Description,
		"data":        event.Data,
	}
	if event.ActorID != nil {
		payload["actor_id"] = *event.ActorID
	}

	return o.publisher.SendToUser(event.RecipientID, common.Event{
		Type:    common.EventNotification,
		Payload: payload,
	})
}
