package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

// MessageRepository is the store behind the four message variant tables.
type MessageRepository interface {
	CreateRegular(ctx context.Context, msg *dbmysql.RegularMessage) error
	SaveRegular(ctx context.Context, msg *dbmysql.RegularMessage) error
	DeleteRegular(ctx context.Context, id uint) error
	RegularByID(ctx context.Context, id uint) (*dbmysql.RegularMessage, error)
	LatestRegular(ctx context.Context, conversationID string) (*dbmysql.RegularMessage, error)
	FirstVisibleRegularExcept(ctx context.Context, conversationID string, exceptID uint) (*dbmysql.RegularMessage, error)

	CreateInvitationMessage(ctx context.Context, msg *dbmysql.InvitationMessage) error
	SaveInvitationMessage(ctx context.Context, msg *dbmysql.InvitationMessage) error
	InvitationMessageByID(ctx context.Context, id uint) (*dbmysql.InvitationMessage, error)
	InvitationMessageByInvitation(ctx context.Context, invitationID uint) (*dbmysql.InvitationMessage, error)
	InvitationMessageByMoogt(ctx context.Context, moogtID uint) (*dbmysql.InvitationMessage, error)

	CreateMiniSuggestionMessage(ctx context.Context, msg *dbmysql.MiniSuggestionMessage) error
	SaveMiniSuggestionMessage(ctx context.Context, msg *dbmysql.MiniSuggestionMessage) error
	MiniSuggestionMessageByID(ctx context.Context, id uint) (*dbmysql.MiniSuggestionMessage, error)
	MiniSuggestionMessageBySuggestion(ctx context.Context, suggestionID uint) (*dbmysql.MiniSuggestionMessage, error)

	CreateModeratorInvitationMessage(ctx context.Context, msg *dbmysql.ModeratorInvitationMessage) error
	SaveModeratorInvitationMessage(ctx context.Context, msg *dbmysql.ModeratorInvitationMessage) error
	ModeratorInvitationMessageByID(ctx context.Context, id uint) (*dbmysql.ModeratorInvitationMessage, error)
	ModeratorInvitationMessageByInvitation(ctx context.Context, moderatorInvitationID uint) (*dbmysql.ModeratorInvitationMessage, error)

	Refs(ctx context.Context, conversationID string, kind common.MessageKind, limit int) ([]common.MessageRef, error)
	RegularsByIDs(ctx context.Context, ids []uint) ([]dbmysql.RegularMessage, error)
	InvitationMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.InvitationMessage, error)
	MiniSuggestionMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.MiniSuggestionMessage, error)
	ModeratorInvitationMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.ModeratorInvitationMessage, error)

	MarkReadBefore(ctx context.Context, conversationID, requesterID string, cutoff time.Time) (int64, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) CreateRegular(ctx context.Context, msg *dbmysql.RegularMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepo) SaveRegular(ctx context.Context, msg *dbmysql.RegularMessage) error {
	if err := r.db.WithContext(ctx).Save(msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// DeleteRegular hard-deletes the row. Callers blank-and-save first so that
// save-side listeners observe the removed state before the row disappears.
func (r *messageRepo) DeleteRegular(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&dbmysql.RegularMessage{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NotFoundf("message %d", id)
	}
	return nil
}

func (r *messageRepo) RegularByID(ctx context.Context, id uint) (*dbmysql.RegularMessage, error) {
	var msg dbmysql.RegularMessage
	err := r.db.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("message %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) LatestRegular(ctx context.Context, conversationID string) (*dbmysql.RegularMessage, error) {
	var msg dbmysql.RegularMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("no messages in conversation %s", conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return &msg, nil
}

// FirstVisibleRegularExcept finds the newest regular message with non-empty
// content, skipping the given id. Used to recompute last_message after a
// delete of the most recent message.
func (r *messageRepo) FirstVisibleRegularExcept(ctx context.Context, conversationID string, exceptID uint) (*dbmysql.RegularMessage, error) {
	var msg dbmysql.RegularMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id <> ? AND content <> '' AND is_removed = false", conversationID, exceptID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("no visible messages in conversation %s", conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) CreateInvitationMessage(ctx context.Context, msg *dbmysql.InvitationMessage) error {
	if err := r.db.WithContext(ctx).Omit("Invitation").Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create invitation message: %w", err)
	}
	return nil
}

func (r *messageRepo) SaveInvitationMessage(ctx context.Context, msg *dbmysql.InvitationMessage) error {
	if err := r.db.WithContext(ctx).Omit("Invitation").Save(msg).Error; err != nil {
		return fmt.Errorf("failed to save invitation message: %w", err)
	}
	return nil
}

func (r *messageRepo) InvitationMessageByID(ctx context.Context, id uint) (*dbmysql.InvitationMessage, error) {
	var msg dbmysql.InvitationMessage
	err := r.db.WithContext(ctx).Preload("Invitation").First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("invitation message %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) InvitationMessageByInvitation(ctx context.Context, invitationID uint) (*dbmysql.InvitationMessage, error) {
	var msg dbmysql.InvitationMessage
	err := r.db.WithContext(ctx).
		Preload("Invitation").
		Where("invitation_id = ?", invitationID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("invitation message for invitation %d", invitationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation message: %w", err)
	}
	return &msg, nil
}

// InvitationMessageByMoogt resolves the invitation message for a debate
// session. The newest matching invitation wins when a moogt has been
// re-invited.
func (r *messageRepo) InvitationMessageByMoogt(ctx context.Context, moogtID uint) (*dbmysql.InvitationMessage, error) {
	var msg dbmysql.InvitationMessage
	err := r.db.WithContext(ctx).
		Preload("Invitation").
		Joins("JOIN invitations ON invitations.id = invitation_messages.invitation_id").
		Where("invitations.moogt_id = ?", moogtID).
		Order("invitation_messages.created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("invitation message for moogt %d", moogtID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) CreateMiniSuggestionMessage(ctx context.Context, msg *dbmysql.MiniSuggestionMessage) error {
	if err := r.db.WithContext(ctx).Omit("MiniSuggestion").Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create mini suggestion message: %w", err)
	}
	return nil
}

func (r *messageRepo) SaveMiniSuggestionMessage(ctx context.Context, msg *dbmysql.MiniSuggestionMessage) error {
	if err := r.db.WithContext(ctx).Omit("MiniSuggestion").Save(msg).Error; err != nil {
		return fmt.Errorf("failed to save mini suggestion message: %w", err)
	}
	return nil
}

func (r *messageRepo) MiniSuggestionMessageByID(ctx context.Context, id uint) (*dbmysql.MiniSuggestionMessage, error) {
	var msg dbmysql.MiniSuggestionMessage
	err := r.db.WithContext(ctx).Preload("MiniSuggestion").First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("mini suggestion message %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mini suggestion message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) MiniSuggestionMessageBySuggestion(ctx context.Context, suggestionID uint) (*dbmysql.MiniSuggestionMessage, error) {
	var msg dbmysql.MiniSuggestionMessage
	err := r.db.WithContext(ctx).
		Preload("MiniSuggestion").
		Where("mini_suggestion_id = ?", suggestionID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("mini suggestion message for suggestion %d", suggestionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mini suggestion message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) CreateModeratorInvitationMessage(ctx context.Context, msg *dbmysql.ModeratorInvitationMessage) error {
	if err := r.db.WithContext(ctx).Omit("ModeratorInvitation").Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create moderator invitation message: %w", err)
	}
	return nil
}

func (r *messageRepo) SaveModeratorInvitationMessage(ctx context.Context, msg *dbmysql.ModeratorInvitationMessage) error {
	if err := r.db.WithContext(ctx).Omit("ModeratorInvitation").Save(msg).Error; err != nil {
		return fmt.Errorf("failed to save moderator invitation message: %w", err)
	}
	return nil
}

func (r *messageRepo) ModeratorInvitationMessageByID(ctx context.Context, id uint) (*dbmysql.ModeratorInvitationMessage, error) {
	var msg dbmysql.ModeratorInvitationMessage
	err := r.db.WithContext(ctx).
		Preload("ModeratorInvitation").
		Preload("ModeratorInvitation.Invitation").
		First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("moderator invitation message %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get moderator invitation message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) ModeratorInvitationMessageByInvitation(ctx context.Context, moderatorInvitationID uint) (*dbmysql.ModeratorInvitationMessage, error) {
	var msg dbmysql.ModeratorInvitationMessage
	err := r.db.WithContext(ctx).
		Preload("ModeratorInvitation").
		Preload("ModeratorInvitation.Invitation").
		Where("moderator_invitation_id = ?", moderatorInvitationID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("moderator invitation message for invitation %d", moderatorInvitationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get moderator invitation message: %w", err)
	}
	return &msg, nil
}

func tableFor(kind common.MessageKind) (string, error) {
	switch kind {
	case common.KindRegularMessage:
		return "regular_messages", nil
	case common.KindInvitationMessage:
		return "invitation_messages", nil
	case common.KindMiniSuggestionMessage:
		return "mini_suggestion_messages", nil
	case common.KindModeratorInvitationMessage:
		return "moderator_invitation_messages", nil
	}
	return "", common.Validationf("unknown message kind %q", kind)
}

// Refs projects one variant's rows into the shape the timeline merger sorts:
// id and created_at only, newest first, id-descending tie break.
func (r *messageRepo) Refs(ctx context.Context, conversationID string, kind common.MessageKind, limit int) ([]common.MessageRef, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table(table).
		Select("id, created_at").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var refs []common.MessageRef
	if err := query.Scan(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to project %s refs: %w", kind, err)
	}
	for i := range refs {
		refs[i].Kind = kind
	}
	return refs, nil
}

func (r *messageRepo) RegularsByIDs(ctx context.Context, ids []uint) ([]dbmysql.RegularMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var msgs []dbmysql.RegularMessage
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to inflate regular messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepo) InvitationMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.InvitationMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var msgs []dbmysql.InvitationMessage
	if err := r.db.WithContext(ctx).Preload("Invitation").Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to inflate invitation messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepo) MiniSuggestionMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.MiniSuggestionMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var msgs []dbmysql.MiniSuggestionMessage
	if err := r.db.WithContext(ctx).Preload("MiniSuggestion").Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to inflate mini suggestion messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepo) ModeratorInvitationMessagesByIDs(ctx context.Context, ids []uint) ([]dbmysql.ModeratorInvitationMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var msgs []dbmysql.ModeratorInvitationMessage
	if err := r.db.WithContext(ctx).
		Preload("ModeratorInvitation").
		Preload("ModeratorInvitation.Invitation").
		Where("id IN ?", ids).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to inflate moderator invitation messages: %w", err)
	}
	return msgs, nil
}

// MarkReadBefore flips is_read on every message across the four variants that
// was authored by someone else and created at or before the cutoff. The four
// updates run in one transaction so the set converges atomically; re-running
// is a no-op because already-read rows no longer match.
func (r *messageRepo) MarkReadBefore(ctx context.Context, conversationID, requesterID string, cutoff time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&dbmysql.RegularMessage{},
			&dbmysql.InvitationMessage{},
			&dbmysql.MiniSuggestionMessage{},
			&dbmysql.ModeratorInvitationMessage{},
		} {
			result := tx.Model(model).
				Where("conversation_id = ? AND is_read = false AND created_at <= ?", conversationID, cutoff).
				Where("sender_id IS NULL OR sender_id <> ?", requesterID).
				Update("is_read", true)
			if result.Error != nil {
				return fmt.Errorf("failed to mark messages read: %w", result.Error)
			}
			total += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
