package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmongo"
	"moogtchat/internal/dbmysql"
)

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetOrCreate(ctx context.Context, userA, userB, initialContent string) (*dbmysql.Conversation, bool, error) {
	args := m.Called(ctx, userA, userB, initialContent)
	conv, _ := args.Get(0).(*dbmysql.Conversation)
	return conv, args.Bool(1), args.Error(2)
}

func (m *MockConversationRepository) ByID(ctx context.Context, id string) (*dbmysql.Conversation, error) {
	args := m.Called(ctx, id)
	conv, _ := args.Get(0).(*dbmysql.Conversation)
	return conv, args.Error(1)
}

func (m *MockConversationRepository) ByParticipants(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	conv, _ := args.Get(0).(*dbmysql.Conversation)
	return conv, args.Error(1)
}

func (m *MockConversationRepository) UpdateLastMessage(ctx context.Context, conversationID, lastMessage string) error {
	args := m.Called(ctx, conversationID, lastMessage)
	return args.Error(0)
}

func (m *MockConversationRepository) SetLocked(ctx context.Context, conversationID string, locked bool) error {
	args := m.Called(ctx, conversationID, locked)
	return args.Error(0)
}

func (m *MockConversationRepository) Participants(ctx context.Context, conversationID string) ([]dbmysql.Participant, error) {
	args := m.Called(ctx, conversationID)
	participants, _ := args.Get(0).([]dbmysql.Participant)
	return participants, args.Error(1)
}

func (m *MockConversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) ListForViewer(ctx context.Context, viewerID string, kind common.InboxKind, limit int) ([]dbmysql.ConversationView, error) {
	args := m.Called(ctx, viewerID, kind, limit)
	views, _ := args.Get(0).([]dbmysql.ConversationView)
	return views, args.Error(1)
}

func (m *MockConversationRepository) Prioritize(ctx context.Context, viewerID, conversationID string) error {
	args := m.Called(ctx, viewerID, conversationID)
	return args.Error(0)
}

func (m *MockConversationRepository) Unprioritize(ctx context.Context, viewerID, conversationID string) error {
	args := m.Called(ctx, viewerID, conversationID)
	return args.Error(0)
}

func (m *MockConversationRepository) UnreadCounts(ctx context.Context, viewerID string) (int64, int64, error) {
	args := m.Called(ctx, viewerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) CreateRegular(ctx context.Context, msg *dbmysql.RegularMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) SaveRegular(ctx context.Context, msg *dbmysql.RegularMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) DeleteRegular(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessageRepository) RegularByID(ctx context.Context, id uint) (*dbmysql.RegularMessage, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*dbmysql.RegularMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) LatestRegular(ctx context.Context, conversationID string) (*dbmysql.RegularMessage, error) {
	args := m.Called(ctx, conversationID)
	msg, _ := args.Get(0).(*dbmysql.RegularMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) FirstVisibleRegularExcept(ctx context.Context, conversationID string, exceptID uint) (*dbmysql.RegularMessage, error) {
	args := m.Called(ctx, conversationID, exceptID)
	msg, _ := args.Get(0).(*dbmysql.RegularMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) CreateInvitationMessage(ctx context.Context, msg *dbmysql.InvitationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) SaveInvitationMessage(ctx context.Context, msg *dbmysql.InvitationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) InvitationMessageByID(ctx context.Context, id uint) (*dbmysql.InvitationMessage, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*dbmysql.InvitationMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) InvitationMessageByInvitation(ctx context.Context, invitationID uint) (*dbmysql.InvitationMessage, error) {
	args := m.Called(ctx, invitationID)
	msg, _ := args.Get(0).(*dbmysql.InvitationMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) InvitationMessageByMoogt(ctx context.Context, moogtID uint) (*dbmysql.InvitationMessage, error) {
	args := m.Called(ctx, moogtID)
	msg, _ := args.Get(0).(*dbmysql.InvitationMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) CreateMiniSuggestionMessage(ctx context.Context, msg *dbmysql.MiniSuggestionMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) SaveMiniSuggestionMessage(ctx context.Context, msg *dbmysql.MiniSuggestionMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) MiniSuggestionMessageByID(ctx context.Context, id uint) (*dbmysql.MiniSuggestionMessage, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*dbmysql.MiniSuggestionMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) MiniSuggestionMessageBySuggestion(ctx context.Context, suggestionID uint) (*dbmysql.MiniSuggestionMessage, error) {
	args := m.Called(ctx, suggestionID)
	msg, _ := args.Get(0).(*dbmysql.MiniSuggestionMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) CreateModeratorInvitationMessage(ctx context.Context, msg *dbmysql.ModeratorInvitationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) SaveModeratorInvitationMessage(ctx context.Context, msg *dbmysql.ModeratorInvitationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ModeratorInvitationMessageByID(ctx context.Context, id uint) (*dbmysql.ModeratorInvitationMessage, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*dbmysql.ModeratorInvitationMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) ModeratorInvitationMessageByInvitation(ctx context.Context, moderatorInvitationID uint) (*dbmysql.ModeratorInvitationMessage, error) {
	args := m.Called(ctx, moderatorInvitationID)
	msg, _ := args.Get(0).(*dbmysql.ModeratorInvitationMessage)
	return msg, args.Error(1)
}

func (m *MockMessageRepository) Refs(ctx context.Context, conversationID string, kind common.MessageKind, limit int) ([]common.MessageRef, error) {
	args := m.Called(ctx, conversationID, kind, limit)
	refs, _ := args.Get(0).([]common.MessageRef)
	return refs, args.Error(1)
}

func (m *MockMessageRepository) RegularsByIDs(ctx context.Context, ids []uint) ([]dbmysql.RegularMessage, error) {
	args := m.Called(ctx, ids)
	msgs, _ := args.Get(0).([]dbmysql.RegularMessage)
	return msgs, args.Error(1)
}

func (m *MockMessageRepository) InvitationMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.InvitationMessage, error) {
	args := m.Called(ctx, ids)
	msgs, _ := args.Get(0).([]dbmysql.InvitationMessage)
	return msgs, args.Error(1)
}

func (m *MockMessageRepository) MiniSuggestionMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.MiniSuggestionMessage, error) {
	args := m.Called(ctx, ids)
	msgs, _ := args.Get(0).([]dbmysql.MiniSuggestionMessage)
	return msgs, args.Error(1)
}

func (m *MockMessageRepository) ModeratorInvitationMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.ModeratorInvitationMessage, error) {
	args := m.Called(ctx, ids)
	msgs, _ := args.Get(0).([]dbmysql.ModeratorInvitationMessage)
	return msgs, args.Error(1)
}

func (m *MockMessageRepository) MarkReadBefore(ctx context.Context, conversationID, requesterID string, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, requesterID, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockSummaryStore struct {
	mock.Mock
}

func (m *MockSummaryStore) Append(ctx context.Context, summary *dbmongo.MessageSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockSummaryStore) ByConversation(ctx context.Context, conversationID string, limit int64) ([]dbmongo.MessageSummary, error) {
	args := m.Called(ctx, conversationID, limit)
	summaries, _ := args.Get(0).([]dbmongo.MessageSummary)
	return summaries, args.Error(1)
}

func (m *MockSummaryStore) ByParent(ctx context.Context, parent dbmongo.SummaryRef) ([]dbmongo.MessageSummary, error) {
	args := m.Called(ctx, parent)
	summaries, _ := args.Get(0).([]dbmongo.MessageSummary)
	return summaries, args.Error(1)
}

// recordingDispatcher captures every dispatched event for assertions.
type recordingDispatcher struct {
	saved     []MessageEvent
	reads     []string
	summaries []*dbmongo.MessageSummary
}

func (d *recordingDispatcher) MessageSaved(ctx context.Context, ev MessageEvent) {
	d.saved = append(d.saved, ev)
}

func (d *recordingDispatcher) ConversationRead(ctx context.Context, conv *dbmysql.Conversation, requesterID string, cutoff time.Time) {
	d.reads = append(d.reads, conv.ID+":"+requesterID)
}

func (d *recordingDispatcher) SummaryCreated(ctx context.Context, summary *dbmongo.MessageSummary) {
	d.summaries = append(d.summaries, summary)
}

func newTestService() (*chatService, *MockConversationRepository, *MockMessageRepository, *MockSummaryStore, *recordingDispatcher) {
	convs := new(MockConversationRepository)
	msgs := new(MockMessageRepository)
	summaries := new(MockSummaryStore)
	dispatcher := &recordingDispatcher{}
	svc := NewChatService(convs, msgs, summaries, dispatcher).(*chatService)
	return svc, convs, msgs, summaries, dispatcher
}
