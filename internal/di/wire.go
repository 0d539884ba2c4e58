//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"moogtchat/internal/chat/handler"
	"moogtchat/internal/chat/repository"
	"moogtchat/internal/chat/service"
	"moogtchat/internal/config"
	"moogtchat/internal/dbmongo"
	"moogtchat/internal/dbmysql"
	"moogtchat/internal/notif"
	"moogtchat/internal/realtime"
)

// Declaration only; wire generates the real body.
func InitializeApplication(cfg *config.Config) (*Application, error) {
	wire.Build(
		dbmysql.NewMySQL,
		dbmysql.NewNotificationRepository,
		dbmysql.NewUserDirectory,
		dbmongo.NewMongoConnection,
		dbmongo.NewSummaryStore,
		realtime.NewHub,
		providePublisher,
		notif.NewNotificationService,
		provideNotifier,
		repository.NewConversationRepository,
		repository.NewMessageRepository,
		service.NewDispatcher,
		service.NewChatService,
		handler.NewChatHandler,
		newApplication,
	)
	return &Application{}, nil // dummy for compilation
}
