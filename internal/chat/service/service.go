package service

import (
	"context"
	"errors"
	"time"

	"moogtchat/internal/chat/repository"
	"moogtchat/internal/common"
	"moogtchat/internal/dbmongo"
	"moogtchat/internal/dbmysql"
)

const recentConversationLimit = 5

// ChatService is the interface exposed to the handler layer.
type ChatService interface {
	GetOrCreateConversation(ctx context.Context, viewerID, otherID string) (*dbmysql.Conversation, bool, error)
	ListConversations(ctx context.Context, viewerID string, kind common.InboxKind) ([]dbmysql.ConversationView, error)
	RecentConversations(ctx context.Context, viewerID string) ([]dbmysql.ConversationView, error)
	UnreadCounts(ctx context.Context, viewerID string) (UnreadCounts, error)
	Prioritize(ctx context.Context, viewerID, conversationID string) error
	Unprioritize(ctx context.Context, viewerID, conversationID string) error
	LockConversation(ctx context.Context, userA, userB string) error
	UnlockConversation(ctx context.Context, userA, userB string) error

	SendRegularMessage(ctx context.Context, senderID string, in SendMessageInput) (*dbmysql.RegularMessage, error)
	ReplyToMessage(ctx context.Context, senderID string, in ReplyInput) (*dbmysql.RegularMessage, error)
	ForwardMessage(ctx context.Context, actorID string, messageID uint, recipientID string) (*dbmysql.RegularMessage, error)
	DeleteMessage(ctx context.Context, actorID string, messageID uint) error
	MarkConversationRead(ctx context.Context, requesterID, conversationID string, cutoff time.Time) error

	ConversationTimeline(ctx context.Context, viewerID, conversationID string, limit, offset int) ([]TimelineItem, error)
	MessageDetail(ctx context.Context, viewerID string, kind common.MessageKind, id uint) (dbmysql.Message, error)
	InvitationMessageForMoogt(ctx context.Context, viewerID string, moogtID uint) (*dbmysql.InvitationMessage, error)

	CreateOrUpdateInvitationMessage(ctx context.Context, invitation *dbmysql.Invitation) (*dbmysql.InvitationMessage, error)
	CreateOrUpdateMiniSuggestionMessage(ctx context.Context, suggestion *dbmysql.MiniSuggestion, recipientID string) (*dbmysql.MiniSuggestionMessage, error)
	CreateOrUpdateModeratorInvitationMessage(ctx context.Context, modInv *dbmysql.ModeratorInvitation, inviterID string) (*dbmysql.ModeratorInvitationMessage, error)
	RecordMessageAction(ctx context.Context, actorID string, kind common.MessageKind, messageID uint, verb common.SummaryVerb) (*dbmongo.MessageSummary, error)
	ConversationActivity(ctx context.Context, viewerID, conversationID string, limit int64) ([]dbmongo.MessageSummary, error)
}

// UnreadCounts is the viewer's aggregate over the two inbox partitions.
type UnreadCounts struct {
	UnreadPriorityCount int64 `json:"unread_priority_count"`
	UnreadGeneralCount  int64 `json:"unread_general_count"`
}

type chatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	summaries     dbmongo.SummaryStore
	dispatcher    EventDispatcher
}

// Constructor used in DI/wire.
func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	summaries dbmongo.SummaryStore,
	dispatcher EventDispatcher,
) ChatService {
	return &chatService{
		conversations: conversations,
		messages:      messages,
		summaries:     summaries,
		dispatcher:    dispatcher,
	}
}

func (s *chatService) GetOrCreateConversation(ctx context.Context, viewerID, otherID string) (*dbmysql.Conversation, bool, error) {
	if viewerID == "" || otherID == "" {
		return nil, false, common.Validationf("both users are required")
	}
	if viewerID == otherID {
		return nil, false, common.Validationf("cannot start a conversation with yourself")
	}
	return s.conversations.GetOrCreate(ctx, viewerID, otherID, "")
}

func (s *chatService) ListConversations(ctx context.Context, viewerID string, kind common.InboxKind) ([]dbmysql.ConversationView, error) {
	switch kind {
	case common.InboxPriority, common.InboxGeneral, common.InboxUnrestricted:
	default:
		return nil, common.Validationf("unknown inbox kind %q", kind)
	}
	return s.conversations.ListForViewer(ctx, viewerID, kind, 0)
}

func (s *chatService) RecentConversations(ctx context.Context, viewerID string) ([]dbmysql.ConversationView, error) {
	return s.conversations.ListForViewer(ctx, viewerID, common.InboxUnrestricted, recentConversationLimit)
}

func (s *chatService) UnreadCounts(ctx context.Context, viewerID string) (UnreadCounts, error) {
	priority, general, err := s.conversations.UnreadCounts(ctx, viewerID)
	if err != nil {
		return UnreadCounts{}, err
	}
	return UnreadCounts{UnreadPriorityCount: priority, UnreadGeneralCount: general}, nil
}

// requireParticipant loads the conversation and rejects non-members. Not
// finding the conversation and not belonging to it are distinct failures so
// clients can branch.
func (s *chatService) requireParticipant(ctx context.Context, conversationID, userID string) (*dbmysql.Conversation, error) {
	conv, err := s.conversations.ByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	ok, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.PermissionDeniedf("user %s is not part of conversation %s", userID, conversationID)
	}
	return conv, nil
}

func (s *chatService) Prioritize(ctx context.Context, viewerID, conversationID string) error {
	if _, err := s.requireParticipant(ctx, conversationID, viewerID); err != nil {
		return err
	}
	return s.conversations.Prioritize(ctx, viewerID, conversationID)
}

func (s *chatService) Unprioritize(ctx context.Context, viewerID, conversationID string) error {
	if _, err := s.requireParticipant(ctx, conversationID, viewerID); err != nil {
		return err
	}
	return s.conversations.Unprioritize(ctx, viewerID, conversationID)
}

func (s *chatService) LockConversation(ctx context.Context, userA, userB string) error {
	return s.setLocked(ctx, userA, userB, true)
}

func (s *chatService) UnlockConversation(ctx context.Context, userA, userB string) error {
	return s.setLocked(ctx, userA, userB, false)
}

// setLocked is a no-op when the two users have no shared conversation yet.
func (s *chatService) setLocked(ctx context.Context, userA, userB string, locked bool) error {
	conv, err := s.conversations.ByParticipants(ctx, userA, userB)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.conversations.SetLocked(ctx, conv.ID, locked)
}
