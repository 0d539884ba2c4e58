package notif

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"moogtchat/internal/common"
	"moogtchat/internal/config"
	"moogtchat/internal/dbmysql"
)

const targetConversation = "conversation"

// NotificationService builds the type-specific notification for each message
// variant and hands it to the observer manager. Regular-message and
// mini-suggestion notifications stay in-app; invitations also flag the email
// and telegram channels.
type NotificationService struct {
	manager *NotificationManager
	repo    common.NotificationRepository
	users   common.UserDirectory
}

func NewNotificationService(
	cfg *config.Config,
	repo common.NotificationRepository,
	publisher common.Publisher,
	users common.UserDirectory,
) *NotificationService {
	manager := NewNotificationManager(cfg.Notification.Workers, cfg.Notification.ChannelBufferSize)

	manager.Subscribe(NewDatabaseNotificationObserver(repo))
	if publisher != nil {
		manager.Subscribe(NewRealtimeNotificationObserver(publisher))
	}

	return &NotificationService{
		manager: manager,
		repo:    repo,
		users:   users,
	}
}

func (s *NotificationService) Shutdown() {
	s.manager.Shutdown()
}

func (s *NotificationService) Send(ctx context.Context, event common.NotificationEvent) error {
	if event.RecipientID == "" {
		return common.Validationf("notification has no recipient")
	}
	if event.Type == "" {
		return common.Validationf("notification has no type")
	}

	s.manager.NotifyAsync(event)

	log.Printf("notification enqueued: type=%s, recipient=%s", event.Type, event.RecipientID)
	return nil
}

func (s *NotificationService) SendRegularMessageNotification(
	ctx context.Context,
	recipientID, senderID, conversationID string,
) error {
	sender := s.displayName(ctx, senderID)

	return s.Send(ctx, common.NotificationEvent{
		Type:        common.RegularMessageNotification,
		RecipientID: recipientID,
		ActorID:     &senderID,
		Verb:        "sent",
		Category:    common.CategoryMessage,
		Title:       "You have got a new message",
		Description: fmt.Sprintf("%s sent you a message", sender),
		TargetType:  targetConversation,
		TargetID:    conversationID,
	})
}

func (s *NotificationService) SendInvitationNotification(
	ctx context.Context,
	recipientID, senderID, conversationID string,
	invitation *dbmysql.Invitation,
) error {
	sender := s.displayName(ctx, senderID)

	return s.Send(ctx, common.NotificationEvent{
		Type:         common.InvitationNotification,
		RecipientID:  recipientID,
		ActorID:      &senderID,
		Verb:         "invited",
		Category:     common.CategoryNormal,
		Title:        "You received a Moogt Invite!",
		Description:  fmt.Sprintf("%s invited you to a Moogt, %q", sender, invitation.Resolution),
		TargetType:   targetConversation,
		TargetID:     conversationID,
		Data:         common.NotificationMetadata{"invitation": serialize(invitation)},
		SendEmail:    true,
		SendTelegram: true,
	})
}

func (s *NotificationService) SendModeratorInvitationNotification(
	ctx context.Context,
	recipientID, senderID, conversationID string,
	moderatorInvitation *dbmysql.ModeratorInvitation,
) error {
	sender := s.displayName(ctx, senderID)

	return s.Send(ctx, common.NotificationEvent{
		Type:        common.ModeratorInvitationNotification,
		RecipientID: recipientID,
		ActorID:     &senderID,
		Verb:        "invited",
		Category:    common.CategoryNormal,
		Title:       fmt.Sprintf("%s Invited you to Moderate!", sender),
		Description: fmt.Sprintf("%s invited you to moderate the Moogt, %q",
			sender, moderatorInvitation.Invitation.Resolution),
		TargetType: targetConversation,
		TargetID:   conversationID,
		Data: common.NotificationMetadata{
			"invitation":           serialize(&moderatorInvitation.Invitation),
			"moderator_invitation": serialize(moderatorInvitation),
		},
		SendEmail:    true,
		SendTelegram: true,
	})
}

// Mini-suggestion notifications are silent: in-app only, no title or body.
func (s *NotificationService) SendMiniSuggestionNotification(
	ctx context.Context,
	recipientID, senderID, conversationID string,
	suggestion *dbmysql.MiniSuggestion,
) error {
	return s.Send(ctx, common.NotificationEvent{
		Type:        common.MiniSuggestionNotification,
		RecipientID: recipientID,
		ActorID:     &senderID,
		Verb:        "suggested",
		Category:    common.CategoryNormal,
		TargetType:  targetConversation,
		TargetID:    conversationID,
		Data:        common.NotificationMetadata{"mini_suggestion": serialize(suggestion)},
	})
}

func (s *NotificationService) MarkConversationRead(
	ctx context.Context,
	recipientID, conversationID string,
	cutoff time.Time,
) error {
	return s.repo.MarkConversationRead(ctx, recipientID, conversationID, cutoff)
}

func (s *NotificationService) ForRecipient(
	ctx context.Context,
	recipientID string,
	limit, offset int,
) ([]interface{}, error) {
	return s.repo.ByRecipient(ctx, recipientID, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

func (s *NotificationService) displayName(ctx context.Context, userID string) string {
	if s.users == nil {
		return userID
	}
	name, err := s.users.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return userID
	}
	return name
}

// serialize flattens an entity into the JSON shape the notification payload
// carries, so clients get plain maps rather than Go-typed structures.
func serialize(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
