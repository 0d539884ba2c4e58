package service

import (
	"context"
	"errors"
	"log"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmongo"
	"moogtchat/internal/dbmysql"
)

// CreateOrUpdateInvitationMessage is invoked on every save of the source
// invitation, including unrelated field edits, so it must be idempotent: if
// the invitation already carries a message the message is merely re-saved
// (refreshing timestamps and, through the dispatcher, the inbox order);
// otherwise the conversation (when absent) and the message are created and an
// INVITE summary is appended.
func (s *chatService) CreateOrUpdateInvitationMessage(ctx context.Context, invitation *dbmysql.Invitation) (*dbmysql.InvitationMessage, error) {
	if invitation == nil || invitation.ID == 0 {
		return nil, common.Validationf("invitation is required")
	}
	if invitation.InviterID == nil || invitation.InviteeID == nil {
		return nil, common.Validationf("invitation has no participant pair")
	}

	existing, err := s.messages.InvitationMessageByInvitation(ctx, invitation.ID)
	if err == nil {
		if serr := s.messages.SaveInvitationMessage(ctx, existing); serr != nil {
			return nil, serr
		}
		conv, cerr := s.conversationOf(ctx, existing.ConversationID)
		if cerr != nil {
			return nil, cerr
		}
		s.dispatcher.MessageSaved(ctx, MessageEvent{Message: existing, Conversation: conv, Created: false})
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	conv, _, err := s.conversations.GetOrCreate(ctx, *invitation.InviterID, *invitation.InviteeID, "")
	if err != nil {
		return nil, err
	}

	msg := &dbmysql.InvitationMessage{
		MessageFields: dbmysql.MessageFields{
			ConversationID: &conv.ID,
			SenderID:       invitation.InviterID,
		},
		InvitationID: invitation.ID,
		Invitation:   *invitation,
	}
	if err := s.messages.CreateInvitationMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.dispatcher.MessageSaved(ctx, MessageEvent{Message: msg, Conversation: conv, Created: true})
	s.appendSummary(ctx, *invitation.InviterID, common.VerbInvite,
		common.KindInvitationMessage, msg.ID, conv.ID)
	return msg, nil
}

// CreateOrUpdateMiniSuggestionMessage mirrors the invitation upsert for a
// proposed change. The suggester/recipient pair is snapshotted onto the
// message at creation time.
func (s *chatService) CreateOrUpdateMiniSuggestionMessage(ctx context.Context, suggestion *dbmysql.MiniSuggestion, recipientID string) (*dbmysql.MiniSuggestionMessage, error) {
	if suggestion == nil || suggestion.ID == 0 {
		return nil, common.Validationf("mini suggestion is required")
	}
	if suggestion.SuggesterID == nil || recipientID == "" {
		return nil, common.Validationf("mini suggestion has no participant pair")
	}

	existing, err := s.messages.MiniSuggestionMessageBySuggestion(ctx, suggestion.ID)
	if err == nil {
		if serr := s.messages.SaveMiniSuggestionMessage(ctx, existing); serr != nil {
			return nil, serr
		}
		conv, cerr := s.conversationOf(ctx, existing.ConversationID)
		if cerr != nil {
			return nil, cerr
		}
		s.dispatcher.MessageSaved(ctx, MessageEvent{Message: existing, Conversation: conv, Created: false})
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	conv, _, err := s.conversations.GetOrCreate(ctx, *suggestion.SuggesterID, recipientID, "")
	if err != nil {
		return nil, err
	}

	msg := &dbmysql.MiniSuggestionMessage{
		MessageFields: dbmysql.MessageFields{
			ConversationID: &conv.ID,
			SenderID:       suggestion.SuggesterID,
		},
		MiniSuggestionID: suggestion.ID,
		MiniSuggestion:   *suggestion,
		InviterID:        suggestion.SuggesterID,
		InviteeID:        &recipientID,
	}
	if err := s.messages.CreateMiniSuggestionMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.dispatcher.MessageSaved(ctx, MessageEvent{Message: msg, Conversation: conv, Created: true})
	s.appendSummary(ctx, *suggestion.SuggesterID, common.VerbSuggest,
		common.KindMiniSuggestionMessage, msg.ID, conv.ID)
	return msg, nil
}

// CreateOrUpdateModeratorInvitationMessage creates the message in the
// conversation between the inviting debater and the prospective moderator.
func (s *chatService) CreateOrUpdateModeratorInvitationMessage(ctx context.Context, modInv *dbmysql.ModeratorInvitation, inviterID string) (*dbmysql.ModeratorInvitationMessage, error) {
	if modInv == nil || modInv.ID == 0 {
		return nil, common.Validationf("moderator invitation is required")
	}
	if modInv.ModeratorID == nil || inviterID == "" {
		return nil, common.Validationf("moderator invitation has no participant pair")
	}

	existing, err := s.messages.ModeratorInvitationMessageByInvitation(ctx, modInv.ID)
	if err == nil {
		if serr := s.messages.SaveModeratorInvitationMessage(ctx, existing); serr != nil {
			return nil, serr
		}
		conv, cerr := s.conversationOf(ctx, existing.ConversationID)
		if cerr != nil {
			return nil, cerr
		}
		s.dispatcher.MessageSaved(ctx, MessageEvent{Message: existing, Conversation: conv, Created: false})
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	conv, _, err := s.conversations.GetOrCreate(ctx, inviterID, *modInv.ModeratorID, "")
	if err != nil {
		return nil, err
	}

	msg := &dbmysql.ModeratorInvitationMessage{
		MessageFields: dbmysql.MessageFields{
			ConversationID: &conv.ID,
			SenderID:       &inviterID,
		},
		ModeratorInvitationID: modInv.ID,
		ModeratorInvitation:   *modInv,
	}
	if err := s.messages.CreateModeratorInvitationMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.dispatcher.MessageSaved(ctx, MessageEvent{Message: msg, Conversation: conv, Created: true})
	s.appendSummary(ctx, inviterID, common.VerbModerate,
		common.KindModeratorInvitationMessage, msg.ID, conv.ID)
	return msg, nil
}

// RecordMessageAction appends an activity-log entry for a status-changing
// action on an invitation-like message and broadcasts it.
func (s *chatService) RecordMessageAction(ctx context.Context, actorID string, kind common.MessageKind, messageID uint, verb common.SummaryVerb) (*dbmongo.MessageSummary, error) {
	if !verb.Valid() {
		return nil, common.Validationf("invalid action %q", verb)
	}

	ref, err := dbmongo.NewSummaryRef(kind, messageID)
	if err != nil {
		return nil, err
	}

	msg, err := s.MessageDetail(ctx, actorID, kind, messageID)
	if err != nil {
		return nil, err
	}
	convRef := msg.ConversationRef()

	summary, err := dbmongo.NewMessageSummary(actorID, verb, ref, *convRef)
	if err != nil {
		return nil, err
	}
	if err := s.summaries.Append(ctx, summary); err != nil {
		return nil, err
	}

	s.dispatcher.SummaryCreated(ctx, summary)
	return summary, nil
}

func (s *chatService) ConversationActivity(ctx context.Context, viewerID, conversationID string, limit int64) ([]dbmongo.MessageSummary, error) {
	if _, err := s.requireParticipant(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	return s.summaries.ByConversation(ctx, conversationID, limit)
}

func (s *chatService) conversationOf(ctx context.Context, id *string) (*dbmysql.Conversation, error) {
	if id == nil {
		return nil, common.NotFoundf("message has no conversation")
	}
	return s.conversations.ByID(ctx, *id)
}

// appendSummary records a creation-time summary. Failures are logged by the
// store caller chain but do not undo the message write.
func (s *chatService) appendSummary(ctx context.Context, actorID string, verb common.SummaryVerb, kind common.MessageKind, messageID uint, conversationID string) {
	ref, err := dbmongo.NewSummaryRef(kind, messageID)
	if err != nil {
		log.Printf("summary for %s %d dropped: %v", kind, messageID, err)
		return
	}
	summary, err := dbmongo.NewMessageSummary(actorID, verb, ref, conversationID)
	if err != nil {
		log.Printf("summary for %s %d dropped: %v", kind, messageID, err)
		return
	}
	if err := s.summaries.Append(ctx, summary); err != nil {
		log.Printf("failed to append summary for %s %d: %v", kind, messageID, err)
		return
	}
	s.dispatcher.SummaryCreated(ctx, summary)
}
