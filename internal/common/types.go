package common

import (
	"time"
)

// MessageKind discriminates the four message variants stored in their own tables.
type MessageKind string

const (
	KindRegularMessage             MessageKind = "regular_message"
	KindInvitationMessage          MessageKind = "invitation_message"
	KindMiniSuggestionMessage      MessageKind = "mini_suggestion_message"
	KindModeratorInvitationMessage MessageKind = "moderator_invitation_message"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindRegularMessage, KindInvitationMessage, KindMiniSuggestionMessage, KindModeratorInvitationMessage:
		return true
	}
	return false
}

// ParticipantRole is the role a user holds inside a conversation.
type ParticipantRole string

const (
	RoleModerator ParticipantRole = "MODERATOR"
	RoleDebater   ParticipantRole = "DEBATER"
)

// SummaryVerb is the action recorded by a MessageSummary log entry.
type SummaryVerb string

const (
	VerbAccept     SummaryVerb = "accept"
	VerbApprove    SummaryVerb = "approve"
	VerbCancel     SummaryVerb = "cancel"
	VerbEdit       SummaryVerb = "edit"
	VerbInvite     SummaryVerb = "invite"
	VerbSuggest    SummaryVerb = "suggest"
	VerbDecline    SummaryVerb = "decline"
	VerbDisapprove SummaryVerb = "disapprove"
	VerbModerate   SummaryVerb = "moderate"
)

func (v SummaryVerb) Valid() bool {
	switch v {
	case VerbAccept, VerbApprove, VerbCancel, VerbEdit, VerbInvite,
		VerbSuggest, VerbDecline, VerbDisapprove, VerbModerate:
		return true
	}
	return false
}

type NotificationType string

const (
	RegularMessageNotification      NotificationType = "message_notification"
	InvitationNotification          NotificationType = "invitation_notification"
	MiniSuggestionNotification      NotificationType = "mini_suggestion_notification"
	ModeratorInvitationNotification NotificationType = "moderator_invitation_notification"
)

type NotificationCategory string

const (
	CategoryMessage NotificationCategory = "message"
	CategoryNormal  NotificationCategory = "normal"
)

type NotificationMetadata map[string]interface{}

// NotificationEvent carries everything a persisted notification needs; observers
// decide what to do with it (store, push to the realtime channel, ...).
type NotificationEvent struct {
	Type         NotificationType
	RecipientID  string
	ActorID      *string
	Verb         string
	Category     NotificationCategory
	Title        string
	Description  string
	TargetType   string
	TargetID     string
	Data         NotificationMetadata
	SendEmail    bool
	SendTelegram bool
	SendPush     bool
}

// EventType tags the frames pushed over a user's realtime channel.
type EventType string

const (
	EventMessage             EventType = "message"
	EventConversationUpdated EventType = "conversation_updated"
	EventMessageRead         EventType = "message_read"
	EventSummaryCreated      EventType = "summary_created"
	EventNotification        EventType = "notification"
)

type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// MessageRef is the lightweight projection the timeline merger sorts and pages
// without materializing full rows.
type MessageRef struct {
	ID        uint        `json:"id"`
	Kind      MessageKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// InboxKind selects the conversation list partition.
type InboxKind string

const (
	InboxPriority     InboxKind = "priority"
	InboxGeneral      InboxKind = "general"
	InboxUnrestricted InboxKind = ""
)
