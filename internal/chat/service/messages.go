package service

import (
	"context"
	"errors"
	"time"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

// SendMessageInput targets either an existing conversation or a recipient
// (which resolves or lazily creates the conversation). Exactly one of the two
// must be set.
type SendMessageInput struct {
	ConversationID string `json:"conversation_id,omitempty"`
	RecipientID    string `json:"recipient_id,omitempty"`
	Content        string `json:"content"`
}

type ReplyInput struct {
	ReplyTo   uint               `json:"reply_to"`
	ReplyType common.MessageKind `json:"reply_type"`
	Content   string             `json:"content"`
}

func (s *chatService) SendRegularMessage(ctx context.Context, senderID string, in SendMessageInput) (*dbmysql.RegularMessage, error) {
	if in.Content == "" {
		return nil, common.Validationf("message content cannot be empty")
	}
	if (in.ConversationID == "") == (in.RecipientID == "") {
		return nil, common.Validationf("exactly one of conversation_id and recipient_id is required")
	}

	var conv *dbmysql.Conversation
	var err error
	if in.RecipientID != "" {
		if in.RecipientID == senderID {
			return nil, common.Validationf("cannot message yourself")
		}
		conv, _, err = s.conversations.GetOrCreate(ctx, senderID, in.RecipientID, "")
	} else {
		conv, err = s.requireParticipant(ctx, in.ConversationID, senderID)
	}
	if err != nil {
		return nil, err
	}

	if conv.IsLocked {
		return nil, common.ErrConversationLocked
	}

	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{
			ConversationID: &conv.ID,
			SenderID:       &senderID,
			Content:        in.Content,
		},
	}
	if err := s.messages.CreateRegular(ctx, msg); err != nil {
		return nil, err
	}

	s.dispatcher.MessageSaved(ctx, MessageEvent{Message: msg, Conversation: conv, Created: true})
	return msg, nil
}

// ReplyToMessage creates a regular message attached to its target; the reply
// always lives in the replied-to message's conversation.
func (s *chatService) ReplyToMessage(ctx context.Context, senderID string, in ReplyInput) (*dbmysql.RegularMessage, error) {
	if in.Content == "" {
		return nil, common.Validationf("message content cannot be empty")
	}

	ref, err := dbmysql.NewReplyRef(in.ReplyType, in.ReplyTo)
	if err != nil {
		return nil, err
	}

	target, err := s.replyTarget(ctx, ref)
	if err != nil {
		return nil, err
	}

	convRef := target.ConversationRef()
	if convRef == nil {
		return nil, common.NotFoundf("replied-to message has no conversation")
	}
	conv, err := s.requireParticipant(ctx, *convRef, senderID)
	if err != nil {
		return nil, err
	}
	if conv.IsLocked {
		return nil, common.ErrConversationLocked
	}

	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{
			ConversationID: &conv.ID,
			SenderID:       &senderID,
			Content:        in.Content,
		},
	}
	if err := msg.SetReplyTarget(ref); err != nil {
		return nil, err
	}
	if err := s.messages.CreateRegular(ctx, msg); err != nil {
		return nil, err
	}

	s.dispatcher.MessageSaved(ctx, MessageEvent{Message: msg, Conversation: conv, Created: true})
	return msg, nil
}

func (s *chatService) replyTarget(ctx context.Context, ref dbmysql.ReplyRef) (dbmysql.Message, error) {
	switch ref.Kind {
	case common.KindRegularMessage:
		return s.messages.RegularByID(ctx, ref.ID)
	case common.KindInvitationMessage:
		return s.messages.InvitationMessageByID(ctx, ref.ID)
	case common.KindMiniSuggestionMessage:
		return s.messages.MiniSuggestionMessageByID(ctx, ref.ID)
	}
	return nil, common.Validationf("invalid reply type %q", ref.Kind)
}

// ForwardMessage clones an existing regular message into the conversation
// between the actor and the destination user, creating that conversation when
// absent. Only a participant of the original's conversation may forward it.
// The clone gets a fresh id and timestamp, forwarded_from set to the
// acting user and no reply linkage; the original is untouched.
func (s *chatService) ForwardMessage(ctx context.Context, actorID string, messageID uint, recipientID string) (*dbmysql.RegularMessage, error) {
	if recipientID == "" {
		return nil, common.Validationf("forward recipient is required")
	}
	if recipientID == actorID {
		return nil, common.Validationf("cannot forward to yourself")
	}

	original, err := s.messages.RegularByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if original.ConversationID == nil {
		return nil, common.NotFoundf("message %d has no conversation", messageID)
	}
	if _, err := s.requireParticipant(ctx, *original.ConversationID, actorID); err != nil {
		return nil, err
	}

	conv, _, err := s.conversations.GetOrCreate(ctx, actorID, recipientID, "")
	if err != nil {
		return nil, err
	}
	if conv.IsLocked {
		return nil, common.ErrConversationLocked
	}

	clone := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{
			ConversationID: &conv.ID,
			SenderID:       &actorID,
			Content:        original.Content,
		},
		ForwardedFromID: &actorID,
	}
	if err := s.messages.CreateRegular(ctx, clone); err != nil {
		return nil, err
	}

	s.dispatcher.MessageSaved(ctx, MessageEvent{Message: clone, Conversation: conv, Created: true})
	return clone, nil
}

// DeleteMessage blanks the message, saves it so listeners observe the removed
// state, then hard-deletes the row. last_message is recomputed only when the
// deleted message was the conversation's most recent one.
func (s *chatService) DeleteMessage(ctx context.Context, actorID string, messageID uint) error {
	msg, err := s.messages.RegularByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID == nil || *msg.SenderID != actorID {
		return common.PermissionDeniedf("only the author may delete a message")
	}

	var conv *dbmysql.Conversation
	wasLatest := false
	if msg.ConversationID != nil {
		conv, err = s.conversations.ByID(ctx, *msg.ConversationID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if conv != nil {
			latest, lerr := s.messages.LatestRegular(ctx, conv.ID)
			if lerr == nil && latest.ID == msg.ID {
				wasLatest = true
			}
		}
	}

	msg.Content = ""
	msg.IsRemoved = true
	if err := s.messages.SaveRegular(ctx, msg); err != nil {
		return err
	}
	if conv != nil {
		s.dispatcher.MessageSaved(ctx, MessageEvent{Message: msg, Conversation: conv, Created: false})
	}

	if err := s.messages.DeleteRegular(ctx, msg.ID); err != nil {
		return err
	}

	if wasLatest {
		next, nerr := s.messages.FirstVisibleRegularExcept(ctx, conv.ID, msg.ID)
		switch {
		case nerr == nil:
			conv.LastMessage = next.Content
		case errors.Is(nerr, common.ErrNotFound):
			conv.LastMessage = ""
		default:
			return nerr
		}
		if err := s.conversations.UpdateLastMessage(ctx, conv.ID, conv.LastMessage); err != nil {
			return err
		}
	}
	return nil
}

// MarkConversationRead bulk-marks every foreign-authored message across all
// four variants up to the cutoff, broadcasts the read receipt and converges
// the notification inbox to the same point.
func (s *chatService) MarkConversationRead(ctx context.Context, requesterID, conversationID string, cutoff time.Time) error {
	if conversationID == "" {
		return common.Validationf("conversation_id is required")
	}
	if cutoff.IsZero() {
		return common.Validationf("read_before_date is required")
	}

	conv, err := s.requireParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return err
	}

	if _, err := s.messages.MarkReadBefore(ctx, conversationID, requesterID, cutoff); err != nil {
		return err
	}

	s.dispatcher.ConversationRead(ctx, conv, requesterID, cutoff)
	return nil
}
