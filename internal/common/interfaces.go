package common

import (
	"context"
	"time"
)

type Observer interface {
	Update(event NotificationEvent) error
	Name() string
}

type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	Notify(event NotificationEvent)
	NotifyAsync(event NotificationEvent)
}

// Publisher pushes an event onto one user's realtime channel. A user with no
// open connections is not an error; the event is simply dropped for them.
type Publisher interface {
	SendToUser(userID string, event Event) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification interface{}) error
	ByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]interface{}, error)
	MarkAsRead(ctx context.Context, id, recipientID string) error
	MarkConversationRead(ctx context.Context, recipientID, conversationID string, cutoff time.Time) error
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory resolves display names for notification copy. User identity is
// owned by the identity service; this is the only view of it the core needs.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
