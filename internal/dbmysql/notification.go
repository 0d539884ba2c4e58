package dbmysql

import (
	"time"

	"moogtchat/internal/common"
)

// Notification is the persisted record behind a NotificationEvent. Action
// object is always the conversation; Data carries the type-specific payload.
type Notification struct {
	ID           string                      `gorm:"primaryKey;size:36" json:"id"`
	RecipientID  string                      `gorm:"not null;index;size:36" json:"recipient_id"`
	ActorID      *string                     `gorm:"size:36" json:"actor_id,omitempty"`
	Verb         string                      `gorm:"size:32" json:"verb"`
	Category     common.NotificationCategory `gorm:"size:32" json:"category"`
	Type         common.NotificationType     `gorm:"not null;size:64;index" json:"type"`
	TargetType   string                      `gorm:"size:64" json:"target_type"`
	TargetID     string                      `gorm:"size:36;index" json:"target_id"`
	Title        string                      `gorm:"size:255" json:"title,omitempty"`
	Description  string                      `gorm:"type:text" json:"description,omitempty"`
	Data         common.NotificationMetadata `gorm:"type:json;serializer:json" json:"data"`
	SendEmail    bool                        `gorm:"default:false" json:"send_email"`
	SendTelegram bool                        `gorm:"default:false" json:"send_telegram"`
	SendPush     bool                        `gorm:"default:false" json:"send_push"`
	ReadAt       *time.Time                  `json:"read_at,omitempty"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime;index" json:"timestamp"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"-"`
}
