package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

func ref(kind common.MessageKind, id uint, at time.Time) common.MessageRef {
	return common.MessageRef{ID: id, Kind: kind, CreatedAt: at}
}

func TestMergeRefs_NewestFirstAcrossStreams(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	streams := [][]common.MessageRef{
		{
			ref(common.KindRegularMessage, 3, base.Add(3*time.Minute)),
			ref(common.KindRegularMessage, 1, base.Add(1*time.Minute)),
		},
		{
			ref(common.KindInvitationMessage, 2, base.Add(2*time.Minute)),
		},
	}

	merged := mergeRefs(streams, 10, 0)
	assert.Len(t, merged, 3)
	assert.Equal(t, uint(3), merged[0].ID)
	assert.Equal(t, uint(2), merged[1].ID)
	assert.Equal(t, uint(1), merged[2].ID)
}

func TestMergeRefs_OffsetAndLimit(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var stream []common.MessageRef
	for i := 5; i >= 1; i-- {
		stream = append(stream, ref(common.KindRegularMessage, uint(i), base.Add(time.Duration(i)*time.Minute)))
	}

	page := mergeRefs([][]common.MessageRef{stream}, 2, 1)
	assert.Len(t, page, 2)
	assert.Equal(t, uint(4), page[0].ID)
	assert.Equal(t, uint(3), page[1].ID)

	// offset past the end
	assert.Empty(t, mergeRefs([][]common.MessageRef{stream}, 2, 10))
}

func TestMergeRefs_TieBreakIsStable(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := [][]common.MessageRef{
		{ref(common.KindRegularMessage, 7, at)},
		{ref(common.KindInvitationMessage, 7, at)},
	}
	b := [][]common.MessageRef{
		{ref(common.KindInvitationMessage, 7, at)},
		{ref(common.KindRegularMessage, 7, at)},
	}

	first := mergeRefs(a, 10, 0)
	second := mergeRefs(b, 10, 0)
	assert.Equal(t, first, second)
	// same timestamp and id: kind decides, invitation_message < regular_message
	assert.Equal(t, common.KindInvitationMessage, first[0].Kind)
}

func TestConversationTimeline_MergesAndInflates(t *testing.T) {
	svc, convs, msgs, _, _ := newTestService()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	convs.On("ByID", mock.Anything, "conv-1").Return(&dbmysql.Conversation{ID: "conv-1"}, nil)
	convs.On("IsParticipant", mock.Anything, "conv-1", "user-a").Return(true, nil)

	msgs.On("Refs", mock.Anything, "conv-1", common.KindRegularMessage, 20).
		Return([]common.MessageRef{
			ref(common.KindRegularMessage, 2, base.Add(2*time.Minute)),
		}, nil)
	msgs.On("Refs", mock.Anything, "conv-1", common.KindInvitationMessage, 20).
		Return([]common.MessageRef{
			ref(common.KindInvitationMessage, 5, base.Add(3*time.Minute)),
		}, nil)
	msgs.On("Refs", mock.Anything, "conv-1", common.KindMiniSuggestionMessage, 20).
		Return(nil, nil)
	msgs.On("Refs", mock.Anything, "conv-1", common.KindModeratorInvitationMessage, 20).
		Return(nil, nil)

	msgs.On("RegularsByIDs", mock.Anything, []uint{2}).
		Return([]dbmysql.RegularMessage{{MessageFields: dbmysql.MessageFields{ID: 2, Content: "hey"}}}, nil)
	msgs.On("InvitationMessagesByIDs", mock.Anything, []uint{5}).
		Return([]dbmysql.InvitationMessage{{MessageFields: dbmysql.MessageFields{ID: 5}, InvitationID: 11}}, nil)

	items, err := svc.ConversationTimeline(context.Background(), "user-a", "conv-1", 0, 0)
	assert.NoError(t, err)
	assert.Len(t, items, 2)

	assert.Equal(t, common.KindInvitationMessage, items[0].Kind)
	assert.NotNil(t, items[0].Invitation)
	assert.Equal(t, uint(11), items[0].Invitation.InvitationID)
	assert.Nil(t, items[0].Regular)

	assert.Equal(t, common.KindRegularMessage, items[1].Kind)
	assert.NotNil(t, items[1].Regular)
	assert.Equal(t, "hey", items[1].Regular.Content)
}

func TestConversationTimeline_NonParticipant(t *testing.T) {
	svc, convs, msgs, _, _ := newTestService()

	convs.On("ByID", mock.Anything, "conv-1").Return(&dbmysql.Conversation{ID: "conv-1"}, nil)
	convs.On("IsParticipant", mock.Anything, "conv-1", "stranger").Return(false, nil)

	_, err := svc.ConversationTimeline(context.Background(), "stranger", "conv-1", 10, 0)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
	msgs.AssertNotCalled(t, "Refs")
}

func TestMessageDetail_UnknownKind(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.MessageDetail(context.Background(), "user-a", common.MessageKind("sticker"), 1)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMessageDetail_ChecksMembership(t *testing.T) {
	svc, convs, msgs, _, _ := newTestService()

	msg := &dbmysql.RegularMessage{
		MessageFields: dbmysql.MessageFields{ID: 4, ConversationID: strptr("conv-1")},
	}
	msgs.On("RegularByID", mock.Anything, uint(4)).Return(msg, nil)
	convs.On("ByID", mock.Anything, "conv-1").Return(&dbmysql.Conversation{ID: "conv-1"}, nil)
	convs.On("IsParticipant", mock.Anything, "conv-1", "stranger").Return(false, nil)

	_, err := svc.MessageDetail(context.Background(), "stranger", common.KindRegularMessage, 4)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestInvitationMessageForMoogt(t *testing.T) {
	svc, convs, msgs, _, _ := newTestService()

	msg := &dbmysql.InvitationMessage{
		MessageFields: dbmysql.MessageFields{ID: 5, ConversationID: strptr("conv-1")},
		InvitationID:  11,
	}
	msgs.On("InvitationMessageByMoogt", mock.Anything, uint(77)).Return(msg, nil)
	convs.On("ByID", mock.Anything, "conv-1").Return(&dbmysql.Conversation{ID: "conv-1"}, nil)
	convs.On("IsParticipant", mock.Anything, "conv-1", "user-a").Return(true, nil)

	got, err := svc.InvitationMessageForMoogt(context.Background(), "user-a", 77)
	assert.NoError(t, err)
	assert.Equal(t, uint(11), got.InvitationID)
}
