package service

import (
	"context"
	"time"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

const defaultTimelinePageSize = 20

// TimelineItem is one entry of the merged conversation timeline. Exactly one
// of the variant pointers is set, matching Kind.
type TimelineItem struct {
	Kind                common.MessageKind                  `json:"type"`
	CreatedAt           time.Time                           `json:"created_at"`
	Regular             *dbmysql.RegularMessage             `json:"regular_message,omitempty"`
	Invitation          *dbmysql.InvitationMessage          `json:"invitation_message,omitempty"`
	MiniSuggestion      *dbmysql.MiniSuggestionMessage      `json:"mini_suggestion_message,omitempty"`
	ModeratorInvitation *dbmysql.ModeratorInvitationMessage `json:"moderator_invitation_message,omitempty"`
}

// ConversationTimeline produces one page of the union of the four variant
// tables for a conversation, newest first. Each variant contributes a sorted
// lightweight ref stream; the streams are merged, paged, and only the
// selected page is inflated into full rows.
func (s *chatService) ConversationTimeline(ctx context.Context, viewerID, conversationID string, limit, offset int) ([]TimelineItem, error) {
	if _, err := s.requireParticipant(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTimelinePageSize
	}
	if offset < 0 {
		offset = 0
	}

	kinds := []common.MessageKind{
		common.KindRegularMessage,
		common.KindInvitationMessage,
		common.KindMiniSuggestionMessage,
		common.KindModeratorInvitationMessage,
	}

	// Each stream only ever needs the first offset+limit rows to fill the page.
	streams := make([][]common.MessageRef, 0, len(kinds))
	for _, kind := range kinds {
		refs, err := s.messages.Refs(ctx, conversationID, kind, offset+limit)
		if err != nil {
			return nil, err
		}
		streams = append(streams, refs)
	}

	page := mergeRefs(streams, limit, offset)
	return s.inflate(ctx, page)
}

// mergeRefs k-way merges per-variant streams that are already sorted newest
// first, then applies offset/limit. Ties on created_at resolve by id, then by
// kind, so repeated pagination calls see a stable order.
func mergeRefs(streams [][]common.MessageRef, limit, offset int) []common.MessageRef {
	heads := make([]int, len(streams))
	var merged []common.MessageRef

	for len(merged) < offset+limit {
		best := -1
		for i, stream := range streams {
			if heads[i] >= len(stream) {
				continue
			}
			if best == -1 || refAfter(stream[heads[i]], streams[best][heads[best]]) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		merged = append(merged, streams[best][heads[best]])
		heads[best]++
	}

	if offset >= len(merged) {
		return nil
	}
	return merged[offset:]
}

// refAfter reports whether a sorts before b in the newest-first order.
func refAfter(a, b common.MessageRef) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.ID != b.ID {
		return a.ID > b.ID
	}
	return a.Kind < b.Kind
}

// inflate fetches the full row for each selected ref from its native variant
// store and reattaches it in merged order.
func (s *chatService) inflate(ctx context.Context, refs []common.MessageRef) ([]TimelineItem, error) {
	byKind := make(map[common.MessageKind][]uint)
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}

	regulars := make(map[uint]*dbmysql.RegularMessage)
	invitations := make(map[uint]*dbmysql.InvitationMessage)
	suggestions := make(map[uint]*dbmysql.MiniSuggestionMessage)
	moderators := make(map[uint]*dbmysql.ModeratorInvitationMessage)

	if ids := byKind[common.KindRegularMessage]; len(ids) > 0 {
		rows, err := s.messages.RegularsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			regulars[rows[i].ID] = &rows[i]
		}
	}
	if ids := byKind[common.KindInvitationMessage]; len(ids) > 0 {
		rows, err := s.messages.InvitationMessagesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			invitations[rows[i].ID] = &rows[i]
		}
	}
	if ids := byKind[common.KindMiniSuggestionMessage]; len(ids) > 0 {
		rows, err := s.messages.MiniSuggestionMessagesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			suggestions[rows[i].ID] = &rows[i]
		}
	}
	if ids := byKind[common.KindModeratorInvitationMessage]; len(ids) > 0 {
		rows, err := s.messages.ModeratorInvitationMessagesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			moderators[rows[i].ID] = &rows[i]
		}
	}

	items := make([]TimelineItem, 0, len(refs))
	for _, ref := range refs {
		item := TimelineItem{Kind: ref.Kind, CreatedAt: ref.CreatedAt}
		switch ref.Kind {
		case common.KindRegularMessage:
			item.Regular = regulars[ref.ID]
		case common.KindInvitationMessage:
			item.Invitation = invitations[ref.ID]
		case common.KindMiniSuggestionMessage:
			item.MiniSuggestion = suggestions[ref.ID]
		case common.KindModeratorInvitationMessage:
			item.ModeratorInvitation = moderators[ref.ID]
		}
		items = append(items, item)
	}
	return items, nil
}

// MessageDetail fetches one message by kind and id, applying the same
// participant authorization as the list path.
func (s *chatService) MessageDetail(ctx context.Context, viewerID string, kind common.MessageKind, id uint) (dbmysql.Message, error) {
	var msg dbmysql.Message
	var err error
	switch kind {
	case common.KindRegularMessage:
		msg, err = s.messages.RegularByID(ctx, id)
	case common.KindInvitationMessage:
		msg, err = s.messages.InvitationMessageByID(ctx, id)
	case common.KindMiniSuggestionMessage:
		msg, err = s.messages.MiniSuggestionMessageByID(ctx, id)
	case common.KindModeratorInvitationMessage:
		msg, err = s.messages.ModeratorInvitationMessageByID(ctx, id)
	default:
		return nil, common.Validationf("unknown message kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	convRef := msg.ConversationRef()
	if convRef == nil {
		return nil, common.NotFoundf("message %d has no conversation", id)
	}
	if _, err := s.requireParticipant(ctx, *convRef, viewerID); err != nil {
		return nil, err
	}
	return msg, nil
}

// InvitationMessageForMoogt resolves the invitation message attached to a
// debate session, with the same membership gate as any other detail fetch.
func (s *chatService) InvitationMessageForMoogt(ctx context.Context, viewerID string, moogtID uint) (*dbmysql.InvitationMessage, error) {
	msg, err := s.messages.InvitationMessageByMoogt(ctx, moogtID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != nil {
		if _, err := s.requireParticipant(ctx, *msg.ConversationID, viewerID); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
