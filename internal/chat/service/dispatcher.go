package service

import (
	"context"
	"log"
	"time"

	"moogtchat/internal/chat/repository"
	"moogtchat/internal/common"
	"moogtchat/internal/dbmongo"
	"moogtchat/internal/dbmysql"
)

// MessageEvent is the explicit domain event a write operation produces.
// Created distinguishes the first save from later re-saves; only first saves
// generate a persistent notification.
type MessageEvent struct {
	Message      dbmysql.Message
	Conversation *dbmysql.Conversation
	Created      bool
}

// EventDispatcher consumes domain events after a successful write and before
// the response returns.
type EventDispatcher interface {
	MessageSaved(ctx context.Context, ev MessageEvent)
	ConversationRead(ctx context.Context, conv *dbmysql.Conversation, requesterID string, cutoff time.Time)
	SummaryCreated(ctx context.Context, summary *dbmongo.MessageSummary)
}

// Notifier is the slice of the notification service the dispatcher needs.
type Notifier interface {
	SendRegularMessageNotification(ctx context.Context, recipientID, senderID, conversationID string) error
	SendInvitationNotification(ctx context.Context, recipientID, senderID, conversationID string, invitation *dbmysql.Invitation) error
	SendModeratorInvitationNotification(ctx context.Context, recipientID, senderID, conversationID string, moderatorInvitation *dbmysql.ModeratorInvitation) error
	SendMiniSuggestionNotification(ctx context.Context, recipientID, senderID, conversationID string, suggestion *dbmysql.MiniSuggestion) error
	MarkConversationRead(ctx context.Context, recipientID, conversationID string, cutoff time.Time) error
}

type dispatcher struct {
	conversations repository.ConversationRepository
	publisher     common.Publisher
	notifier      Notifier
}

func NewDispatcher(
	conversations repository.ConversationRepository,
	publisher common.Publisher,
	notifier Notifier,
) EventDispatcher {
	return &dispatcher{
		conversations: conversations,
		publisher:     publisher,
		notifier:      notifier,
	}
}

// MessageSaved runs the post-save pipeline: realtime fan-out to every
// participant, last-message upkeep, and (on first save) the type-specific
// persistent notification for the recipient. Per-recipient push failures are
// logged and never fail the triggering write.
func (d *dispatcher) MessageSaved(ctx context.Context, ev MessageEvent) {
	conv := ev.Conversation
	msg := ev.Message
	if conv == nil || msg == nil {
		return
	}

	participants, err := d.conversations.Participants(ctx, conv.ID)
	if err != nil {
		log.Printf("dispatcher: failed to load participants of %s: %v", conv.ID, err)
		return
	}

	d.fanOut(participants, common.Event{
		Type: common.EventMessage,
		Payload: map[string]interface{}{
			"conversation_id": conv.ID,
			"message_type":    string(msg.Kind()),
			"message":         msg,
		},
	})

	if !msg.Removed() {
		conv.LastMessage = msg.Body()
		// Column update only; the in-memory row may carry a stale is_locked.
		if err := d.conversations.UpdateLastMessage(ctx, conv.ID, conv.LastMessage); err != nil {
			log.Printf("dispatcher: failed to update last_message on %s: %v", conv.ID, err)
		} else {
			conv.UpdatedAt = time.Now()
			d.fanOut(participants, common.Event{
				Type: common.EventConversationUpdated,
				Payload: map[string]interface{}{
					"conversation_id": conv.ID,
					"last_message":    conv.LastMessage,
					"updated_at":      conv.UpdatedAt,
				},
			})
		}
	}

	if ev.Created {
		d.notifyRecipient(ctx, msg, conv, participants)
	}
}

// notifyRecipient sends the persistent notification when the message has an
// author and the conversation has exactly one other participant.
func (d *dispatcher) notifyRecipient(ctx context.Context, msg dbmysql.Message, conv *dbmysql.Conversation, participants []dbmysql.Participant) {
	author := msg.AuthorID()
	if author == nil {
		return
	}

	var recipient string
	others := 0
	for _, p := range participants {
		if p.UserID != *author {
			recipient = p.UserID
			others++
		}
	}
	if others != 1 {
		return
	}

	var err error
	switch m := msg.(type) {
	case *dbmysql.RegularMessage:
		err = d.notifier.SendRegularMessageNotification(ctx, recipient, *author, conv.ID)
	case *dbmysql.InvitationMessage:
		err = d.notifier.SendInvitationNotification(ctx, recipient, *author, conv.ID, &m.Invitation)
	case *dbmysql.ModeratorInvitationMessage:
		err = d.notifier.SendModeratorInvitationNotification(ctx, recipient, *author, conv.ID, &m.ModeratorInvitation)
	case *dbmysql.MiniSuggestionMessage:
		err = d.notifier.SendMiniSuggestionNotification(ctx, recipient, *author, conv.ID, &m.MiniSuggestion)
	}
	if err != nil {
		log.Printf("dispatcher: notification for %s in %s failed: %v", recipient, conv.ID, err)
	}
}

// ConversationRead broadcasts the read receipt and converges the recipient's
// notification inbox up to the same cutoff.
func (d *dispatcher) ConversationRead(ctx context.Context, conv *dbmysql.Conversation, requesterID string, cutoff time.Time) {
	participants, err := d.conversations.Participants(ctx, conv.ID)
	if err != nil {
		log.Printf("dispatcher: failed to load participants of %s: %v", conv.ID, err)
		return
	}

	d.fanOut(participants, common.Event{
		Type: common.EventMessageRead,
		Payload: map[string]interface{}{
			"conversation_id":  conv.ID,
			"read_before_date": cutoff,
			"reader_id":        requesterID,
		},
	})

	if err := d.notifier.MarkConversationRead(ctx, requesterID, conv.ID, cutoff); err != nil {
		log.Printf("dispatcher: failed to mark notifications read for %s: %v", requesterID, err)
	}
}

func (d *dispatcher) SummaryCreated(ctx context.Context, summary *dbmongo.MessageSummary) {
	participants, err := d.conversations.Participants(ctx, summary.ConversationID)
	if err != nil {
		log.Printf("dispatcher: failed to load participants of %s: %v", summary.ConversationID, err)
		return
	}

	d.fanOut(participants, common.Event{
		Type: common.EventSummaryCreated,
		Payload: map[string]interface{}{
			"conversation_id": summary.ConversationID,
			"summary":         summary,
		},
	})
}

// fanOut pushes one event per participant channel. Order between recipients
// is unspecified; a failure for one recipient never blocks the rest.
func (d *dispatcher) fanOut(participants []dbmysql.Participant, event common.Event) {
	for _, p := range participants {
		if err := d.publisher.SendToUser(p.UserID, event); err != nil {
			log.Printf("dispatcher: push of %s to %s failed: %v", event.Type, p.UserID, err)
		}
	}
}
