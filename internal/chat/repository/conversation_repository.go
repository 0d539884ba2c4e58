package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

// ConversationRepository resolves, creates and annotates conversations.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, userA, userB, initialContent string) (*dbmysql.Conversation, bool, error)
	ByID(ctx context.Context, id string) (*dbmysql.Conversation, error)
	ByParticipants(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error)
	UpdateLastMessage(ctx context.Context, conversationID, lastMessage string) error
	SetLocked(ctx context.Context, conversationID string, locked bool) error
	Participants(ctx context.Context, conversationID string) ([]dbmysql.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListForViewer(ctx context.Context, viewerID string, kind common.InboxKind, limit int) ([]dbmysql.ConversationView, error)
	Prioritize(ctx context.Context, viewerID, conversationID string) error
	Unprioritize(ctx context.Context, viewerID, conversationID string) error
	UnreadCounts(ctx context.Context, viewerID string) (priority int64, general int64, err error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

// GetOrCreate returns the unique conversation between the two users, creating
// it (with both as debaters) when absent. The pair-key unique index plus a
// re-fetch on duplicated-key resolves the concurrent first-contact race
// without surfacing a conflict to the caller. An existing conversation is
// returned unchanged; last_message is never overwritten here.
func (r *conversationRepo) GetOrCreate(ctx context.Context, userA, userB, initialContent string) (*dbmysql.Conversation, bool, error) {
	pair := dbmysql.PairKey(userA, userB)

	conv, err := r.byPairKey(ctx, pair)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	fresh := &dbmysql.Conversation{
		ID:          uuid.NewString(),
		PairKey:     pair,
		LastMessage: initialContent,
		Participants: []dbmysql.Participant{
			{UserID: userA, Role: common.RoleDebater},
			{UserID: userB, Role: common.RoleDebater},
		},
	}

	if err := r.db.WithContext(ctx).Create(fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race; the winner's row is what we want.
			existing, ferr := r.byPairKey(ctx, pair)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	return fresh, true, nil
}

func (r *conversationRepo) byPairKey(ctx context.Context, pair string) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("pair_key = ?", pair).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("conversation for pair %s", pair)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}
	return &conv, nil
}

func (r *conversationRepo) ByID(ctx context.Context, id string) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("conversation %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (r *conversationRepo) ByParticipants(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error) {
	return r.byPairKey(ctx, dbmysql.PairKey(userA, userB))
}

// UpdateLastMessage writes last_message (bumping updated_at) and nothing
// else; concurrent writers of other columns are never overwritten.
func (r *conversationRepo) UpdateLastMessage(ctx context.Context, conversationID, lastMessage string) error {
	result := r.db.WithContext(ctx).
		Model(&dbmysql.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message", lastMessage)
	if result.Error != nil {
		return fmt.Errorf("failed to update last_message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NotFoundf("conversation %s", conversationID)
	}
	return nil
}

func (r *conversationRepo) SetLocked(ctx context.Context, conversationID string, locked bool) error {
	result := r.db.WithContext(ctx).
		Model(&dbmysql.Conversation{}).
		Where("id = ?", conversationID).
		Update("is_locked", locked)
	if result.Error != nil {
		return fmt.Errorf("failed to update lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NotFoundf("conversation %s", conversationID)
	}
	return nil
}

func (r *conversationRepo) Participants(ctx context.Context, conversationID string) ([]dbmysql.Participant, error) {
	var participants []dbmysql.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (r *conversationRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return count > 0, nil
}

// unreadSelect annotates each conversation with the four per-variant unread
// counts, each excluding the viewer's own messages. Null senders (deleted
// accounts) still count as unread to the viewer.
const unreadSelect = `conversations.*,
(SELECT COUNT(*) FROM regular_messages rm WHERE rm.conversation_id = conversations.id AND rm.is_read = false AND (rm.sender_id IS NULL OR rm.sender_id <> ?)) AS unread_regular,
(SELECT COUNT(*) FROM invitation_messages im WHERE im.conversation_id = conversations.id AND im.is_read = false AND (im.sender_id IS NULL OR im.sender_id <> ?)) AS unread_invitation,
(SELECT COUNT(*) FROM mini_suggestion_messages mm WHERE mm.conversation_id = conversations.id AND mm.is_read = false AND (mm.sender_id IS NULL OR mm.sender_id <> ?)) AS unread_mini_suggestion,
(SELECT COUNT(*) FROM moderator_invitation_messages om WHERE om.conversation_id = conversations.id AND om.is_read = false AND (om.sender_id IS NULL OR om.sender_id <> ?)) AS unread_moderator_invitation`

func (r *conversationRepo) baseViewQuery(ctx context.Context, viewerID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&dbmysql.Conversation{}).
		Select(unreadSelect, viewerID, viewerID, viewerID, viewerID).
		Joins("JOIN participants ON participants.conversation_id = conversations.id AND participants.user_id = ?", viewerID).
		Order("conversations.updated_at DESC")
}

func (r *conversationRepo) ListForViewer(ctx context.Context, viewerID string, kind common.InboxKind, limit int) ([]dbmysql.ConversationView, error) {
	query := r.baseViewQuery(ctx, viewerID)

	switch kind {
	case common.InboxPriority:
		query = query.
			Joins("JOIN priority_marks pm ON pm.conversation_id = conversations.id AND pm.user_id = ?", viewerID).
			Where("conversations.last_message <> ''")
	case common.InboxGeneral:
		query = query.
			Where("NOT EXISTS (SELECT 1 FROM priority_marks pm WHERE pm.conversation_id = conversations.id AND pm.user_id = ?)", viewerID).
			Where("conversations.last_message <> ''")
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []dbmysql.ConversationView
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	// Participants are not part of the annotated scan; attach them.
	for i := range rows {
		participants, err := r.Participants(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		rows[i].Participants = participants
	}
	return rows, nil
}

func (r *conversationRepo) Prioritize(ctx context.Context, viewerID, conversationID string) error {
	mark := dbmysql.PriorityMark{UserID: viewerID, ConversationID: conversationID}
	err := r.db.WithContext(ctx).Create(&mark).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil // already prioritized, idempotent
	}
	if err != nil {
		return fmt.Errorf("failed to prioritize conversation: %w", err)
	}
	return nil
}

func (r *conversationRepo) Unprioritize(ctx context.Context, viewerID, conversationID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", viewerID, conversationID).
		Delete(&dbmysql.PriorityMark{})
	if result.Error != nil {
		return fmt.Errorf("failed to unprioritize conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotPrioritized
	}
	return nil
}

func (r *conversationRepo) UnreadCounts(ctx context.Context, viewerID string) (int64, int64, error) {
	priorityRows, err := r.ListForViewer(ctx, viewerID, common.InboxPriority, 0)
	if err != nil {
		return 0, 0, err
	}
	generalRows, err := r.ListForViewer(ctx, viewerID, common.InboxGeneral, 0)
	if err != nil {
		return 0, 0, err
	}

	var priority, general int64
	for i := range priorityRows {
		priority += priorityRows[i].UnreadMessagesCount()
	}
	for i := range generalRows {
		general += generalRows[i].UnreadMessagesCount()
	}
	return priority, general, nil
}
