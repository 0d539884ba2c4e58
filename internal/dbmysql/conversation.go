package dbmysql

import (
	"fmt"
	"time"

	"moogtchat/internal/common"
)

// Conversation is the container for all message variants between exactly two
// participants. PairKey is the sorted user-id pair; its unique index is what
// guarantees a single conversation per pair under concurrent first contact.
type Conversation struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	PairKey     string `gorm:"uniqueIndex;size:96" json:"-"`
	LastMessage string `gorm:"type:text" json:"last_message"`
	IsLocked    bool   `gorm:"default:false" json:"is_locked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `gorm:"index:idx_conversations_updated,sort:desc" json:"updated_at"`

	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

type Participant struct {
	ID             uint                   `gorm:"primaryKey" json:"-"`
	ConversationID string                 `gorm:"size:36;uniqueIndex:idx_participant_conv_user" json:"conversation_id"`
	UserID         string                 `gorm:"size:36;index;uniqueIndex:idx_participant_conv_user" json:"user_id"`
	Role           common.ParticipantRole `gorm:"size:16;default:'DEBATER'" json:"role"`
	CreatedAt      time.Time              `json:"created_at"`
}

// PriorityMark is a viewer-scoped flag on a conversation. It belongs to the
// viewer, not the conversation, and partitions their inbox.
type PriorityMark struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         string    `gorm:"size:36;uniqueIndex:idx_priority_user_conv"`
	ConversationID string    `gorm:"size:36;uniqueIndex:idx_priority_user_conv"`
	CreatedAt      time.Time
}

// PairKey builds the order-insensitive key for a two-user conversation lookup.
func PairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%s:%s", userA, userB)
}

// Other returns the participant that is not userID, if the conversation has
// exactly one other participant.
func (c *Conversation) Other(userID string) (*Participant, bool) {
	var other *Participant
	n := 0
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			other = &c.Participants[i]
			n++
		}
	}
	if n != 1 {
		return nil, false
	}
	return other, true
}

// ConversationView is a Conversation annotated with the four per-variant
// unread counts the inbox queries compute.
type ConversationView struct {
	Conversation              `gorm:"embedded"`
	UnreadRegular             int64 `json:"-"`
	UnreadInvitation          int64 `json:"-"`
	UnreadMiniSuggestion      int64 `json:"-"`
	UnreadModeratorInvitation int64 `json:"-"`
}

func (v *ConversationView) UnreadMessagesCount() int64 {
	return v.UnreadRegular + v.UnreadInvitation + v.UnreadMiniSuggestion + v.UnreadModeratorInvitation
}
