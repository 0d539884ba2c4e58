package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

// recordingPublisher captures the frames pushed per user.
type recordingPublisher struct {
	frames map[string][]common.Event
	fail   map[string]bool
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{frames: make(map[string][]common.Event), fail: make(map[string]bool)}
}

func (p *recordingPublisher) SendToUser(userID string, event common.Event) error {
	if p.fail[userID] {
		return errors.New("connection gone")
	}
	p.frames[userID] = append(p.frames[userID], event)
	return nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendRegularMessageNotification(ctx context.Context, recipientID, senderID, conversationID string) error {
	args := m.Called(ctx, recipientID, senderID, conversationID)
	return args.Error(0)
}

func (m *MockNotifier) SendInvitationNotification(ctx context.Context, recipientID, senderID, conversationID string, invitation *dbmysql.Invitation) error {
	args := m.Called(ctx, recipientID, senderID, conversationID, invitation)
	return args.Error(0)
}

func (m *MockNotifier) SendModeratorInvitationNotification(ctx context.Context, recipientID, senderID, conversationID string, moderatorInvitation *dbmysql.ModeratorInvitation) error {
	args := m.Called(ctx, recipientID, senderID, conversationID, moderatorInvitation)
	return args.Error(0)
}

func (m *MockNotifier) SendMiniSuggestionNotification(ctx context.Context, recipientID, senderID, conversationID string, suggestion *dbmysql.MiniSuggestion) error {
	args := m.Called(ctx, recipientID, senderID, conversationID, suggestion)
	return args.Error(0)
}

func (m *MockNotifier) MarkConversationRead(ctx context.Context, recipientID, conversationID string, cutoff time.Time) error {
	args := m.Called(ctx, recipientID, conversationID, cutoff)
	return args.Error(0)
}

func newTestDispatcher() (*dispatcher, *MockConversationRepository, *recordingPublisher, *MockNotifier) {
	convs := new(MockConversationRepository)
	publisher := newRecordingPublisher()
	notifier := new(MockNotifier)
	d := NewDispatcher(convs, publisher, notifier).(*dispatcher)
	return d, convs, publisher, notifier
}

func pairParticipants(convID string) []dbmysql.Participant {
	return []dbmysql.Participant{
		{ConversationID: convID, UserID: "user-a"},
		{ConversationID: convID, UserID: "user-b"},
	}
}

func TestMessageSaved_FansOutToAllParticipants(t *testing.T) {
	d, convs, publisher, notifier := newTestDispatcher()

	conv := &dbmysql.Conversation{ID: "conv-1"}
	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{ID: 1, ConversationID: &conv.ID, SenderID: strptr("user-a"), Content: "Hello"},
	}

	convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)
	convs.On("UpdateLastMessage", mock.Anything, "conv-1", "Hello").Return(nil)
	notifier.On("SendRegularMessageNotification", mock.Anything, "user-b", "user-a", "conv-1").Return(nil)

	d.MessageSaved(context.Background(), MessageEvent{Message: msg, Conversation: conv, Created: true})

	// sender included in the fan-out: both get message + conversation_updated
	for _, user := range []string{"user-a", "user-b"} {
		frames := publisher.frames[user]
		assert.Len(t, frames, 2, "frames for %s", user)
		assert.Equal(t, common.EventMessage, frames[0].Type)
		assert.Equal(t, common.EventConversationUpdated, frames[1].Type)
	}

	assert.Equal(t, "Hello", conv.LastMessage)
	notifier.AssertExpectations(t)
}

func TestMessageSaved_RemovedSkipsLastMessage(t *testing.T) {
	d, convs, publisher, notifier := newTestDispatcher()

	conv := &dbmysql.Conversation{ID: "conv-1", LastMessage: "Hello"}
	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{ID: 1, ConversationID: &conv.ID, SenderID: strptr("user-a"), IsRemoved: true},
	}

	convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)

	d.MessageSaved(context.Background(), MessageEvent{Message: msg, Conversation: conv, Created: false})

	assert.Equal(t, "Hello", conv.LastMessage)
	convs.AssertNotCalled(t, "UpdateLastMessage")
	notifier.AssertNotCalled(t, "SendRegularMessageNotification")

	// removed state still fans out, but no conversation_updated follows
	assert.Len(t, publisher.frames["user-b"], 1)
	assert.Equal(t, common.EventMessage, publisher.frames["user-b"][0].Type)
}

func TestMessageSaved_ResaveSkipsNotification(t *testing.T) {
	d, convs, _, notifier := newTestDispatcher()

	conv := &dbmysql.Conversation{ID: "conv-1"}
	msg := &dbmysql.InvitationMessage{
		MessageFields: dbmysql.MessageFields{ID: 2, ConversationID: &conv.ID, SenderID: strptr("user-a")},
		InvitationID:  11,
	}

	convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)
	convs.On("UpdateLastMessage", mock.Anything, "conv-1", mock.Anything).Return(nil)

	d.MessageSaved(context.Background(), MessageEvent{Message: msg, Conversation: conv, Created: false})

	notifier.AssertNotCalled(t, "SendInvitationNotification")
}

func TestMessageSaved_PerVariantNotifications(t *testing.T) {
	conv := &dbmysql.Conversation{ID: "conv-1"}
	fields := dbmysql.MessageFields{ID: 2, ConversationID: &conv.ID, SenderID: strptr("user-a")}

	cases := []struct {
		name   string
		msg    dbmysql.Message
		method string
	}{
		{
			"invitation",
			&dbmysql.InvitationMessage{MessageFields: fields, InvitationID: 11},
			"SendInvitationNotification",
		},
		{
			"mini suggestion",
			&dbmysql.MiniSuggestionMessage{MessageFields: fields, MiniSuggestionID: 21},
			"SendMiniSuggestionNotification",
		},
		{
			"moderator invitation",
			&dbmysql.ModeratorInvitationMessage{MessageFields: fields, ModeratorInvitationID: 31},
			"SendModeratorInvitationNotification",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, convs, _, notifier := newTestDispatcher()
			convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)
			convs.On("UpdateLastMessage", mock.Anything, "conv-1", mock.Anything).Return(nil)
			notifier.On(tc.method, mock.Anything, "user-b", "user-a", "conv-1", mock.Anything).Return(nil)

			d.MessageSaved(context.Background(), MessageEvent{Message: tc.msg, Conversation: conv, Created: true})

			notifier.AssertExpectations(t)
		})
	}
}

func TestMessageSaved_NoAuthorNoNotification(t *testing.T) {
	d, convs, _, notifier := newTestDispatcher()

	conv := &dbmysql.Conversation{ID: "conv-1"}
	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{ID: 1, ConversationID: &conv.ID, Content: "orphaned"},
	}

	convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)
	convs.On("UpdateLastMessage", mock.Anything, "conv-1", mock.Anything).Return(nil)

	d.MessageSaved(context.Background(), MessageEvent{Message: msg, Conversation: conv, Created: true})

	notifier.AssertNotCalled(t, "SendRegularMessageNotification")
}

func TestMessageSaved_PushFailureDoesNotBlockOthers(t *testing.T) {
	d, convs, publisher, notifier := newTestDispatcher()

	conv := &dbmysql.Conversation{ID: "conv-1"}
	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{ID: 1, ConversationID: &conv.ID, SenderID: strptr("user-a"), Content: "Hello"},
	}

	publisher.fail["user-a"] = true
	convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)
	convs.On("UpdateLastMessage", mock.Anything, "conv-1", mock.Anything).Return(nil)
	notifier.On("SendRegularMessageNotification", mock.Anything, "user-b", "user-a", "conv-1").Return(nil)

	d.MessageSaved(context.Background(), MessageEvent{Message: msg, Conversation: conv, Created: true})

	assert.Empty(t, publisher.frames["user-a"])
	assert.Len(t, publisher.frames["user-b"], 2)
}

func TestConversationRead_BroadcastsAndConvergesInbox(t *testing.T) {
	d, convs, publisher, notifier := newTestDispatcher()

	conv := &dbmysql.Conversation{ID: "conv-1"}
	cutoff := time.Now()

	convs.On("Participants", mock.Anything, "conv-1").Return(pairParticipants("conv-1"), nil)
	notifier.On("MarkConversationRead", mock.Anything, "user-a", "conv-1", cutoff).Return(nil)

	d.ConversationRead(context.Background(), conv, "user-a", cutoff)

	for _, user := range []string{"user-a", "user-b"} {
		frames := publisher.frames[user]
		assert.Len(t, frames, 1)
		assert.Equal(t, common.EventMessageRead, frames[0].Type)
		assert.Equal(t, "user-a", frames[0].Payload["reader_id"])
	}
	notifier.AssertExpectations(t)
}
