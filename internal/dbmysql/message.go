package dbmysql

import (
	"time"

	"moogtchat/internal/common"
)

// MessageFields is the shape shared by the four message variants. Conversation
// and sender are nullable: a message outlives its author's account, and in
// theory its conversation.
type MessageFields struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID *string   `gorm:"index;size:36" json:"conversation_id"`
	SenderID       *string   `gorm:"index;size:36" json:"sender_id"`
	Content        string    `gorm:"type:text" json:"content"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	IsRemoved      bool      `gorm:"default:false" json:"is_removed"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (f *MessageFields) MessageID() uint          { return f.ID }
func (f *MessageFields) ConversationRef() *string { return f.ConversationID }
func (f *MessageFields) AuthorID() *string        { return f.SenderID }
func (f *MessageFields) Body() string             { return f.Content }
func (f *MessageFields) Removed() bool            { return f.IsRemoved }

// Message is the variant-agnostic view the dispatcher and timeline work with.
type Message interface {
	MessageID() uint
	Kind() common.MessageKind
	ConversationRef() *string
	AuthorID() *string
	Body() string
	Removed() bool
}

// ReplyRef is the discriminated reference a reply carries to its target.
// Construction validates the kind, so "no target" or "two targets" is
// unrepresentable once a RegularMessage goes through SetReplyTarget.
type ReplyRef struct {
	Kind common.MessageKind
	ID   uint
}

func NewReplyRef(kind common.MessageKind, id uint) (ReplyRef, error) {
	switch kind {
	case common.KindRegularMessage, common.KindInvitationMessage, common.KindMiniSuggestionMessage:
	default:
		return ReplyRef{}, common.Validationf("invalid reply type %q", kind)
	}
	if id == 0 {
		return ReplyRef{}, common.Validationf("missing reply target id")
	}
	return ReplyRef{Kind: kind, ID: id}, nil
}

type RegularMessage struct {
	MessageFields `gorm:"embedded"`

	ForwardedFromID *string `gorm:"size:36" json:"forwarded_from,omitempty"`
	IsReply         bool    `gorm:"default:false" json:"is_reply"`

	// At most one of the three is non-null, and only when IsReply is set.
	// Mutate through SetReplyTarget only.
	ReplyToRegularID        *uint `gorm:"index" json:"reply_to_regular_id,omitempty"`
	ReplyToInvitationID     *uint `gorm:"index" json:"reply_to_invitation_id,omitempty"`
	ReplyToMiniSuggestionID *uint `gorm:"index" json:"reply_to_mini_suggestion_id,omitempty"`
}

func (*RegularMessage) Kind() common.MessageKind { return common.KindRegularMessage }

func (m *RegularMessage) SetReplyTarget(ref ReplyRef) error {
	if m.ReplyToRegularID != nil || m.ReplyToInvitationID != nil || m.ReplyToMiniSuggestionID != nil {
		return common.Validationf("message already replies to another target")
	}
	switch ref.Kind {
	case common.KindRegularMessage:
		m.ReplyToRegularID = &ref.ID
	case common.KindInvitationMessage:
		m.ReplyToInvitationID = &ref.ID
	case common.KindMiniSuggestionMessage:
		m.ReplyToMiniSuggestionID = &ref.ID
	default:
		return common.Validationf("invalid reply type %q", ref.Kind)
	}
	m.IsReply = true
	return nil
}

// ReplyTarget reports the reply reference, if any.
func (m *RegularMessage) ReplyTarget() (ReplyRef, bool) {
	switch {
	case m.ReplyToRegularID != nil:
		return ReplyRef{Kind: common.KindRegularMessage, ID: *m.ReplyToRegularID}, true
	case m.ReplyToInvitationID != nil:
		return ReplyRef{Kind: common.KindInvitationMessage, ID: *m.ReplyToInvitationID}, true
	case m.ReplyToMiniSuggestionID != nil:
		return ReplyRef{Kind: common.KindMiniSuggestionMessage, ID: *m.ReplyToMiniSuggestionID}, true
	}
	return ReplyRef{}, false
}

type InvitationMessage struct {
	MessageFields `gorm:"embedded"`

	InvitationID uint       `gorm:"uniqueIndex" json:"invitation_id"`
	Invitation   Invitation `gorm:"foreignKey:InvitationID" json:"invitation"`
}

func (*InvitationMessage) Kind() common.MessageKind { return common.KindInvitationMessage }

type MiniSuggestionMessage struct {
	MessageFields `gorm:"embedded"`

	MiniSuggestionID uint           `gorm:"uniqueIndex" json:"mini_suggestion_id"`
	MiniSuggestion   MiniSuggestion `gorm:"foreignKey:MiniSuggestionID" json:"mini_suggestion"`

	// Denormalized pair snapshot taken at creation time.
	InviterID *string `gorm:"size:36" json:"inviter_id,omitempty"`
	InviteeID *string `gorm:"size:36" json:"invitee_id,omitempty"`
}

func (*MiniSuggestionMessage) Kind() common.MessageKind { return common.KindMiniSuggestionMessage }

type ModeratorInvitationMessage struct {
	MessageFields `gorm:"embedded"`

	ModeratorInvitationID uint                `gorm:"uniqueIndex" json:"moderator_invitation_id"`
	ModeratorInvitation   ModeratorInvitation `gorm:"foreignKey:ModeratorInvitationID" json:"moderator_invitation"`
}

func (*ModeratorInvitationMessage) Kind() common.MessageKind {
	return common.KindModeratorInvitationMessage
}
