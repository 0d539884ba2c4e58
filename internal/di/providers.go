package di

import (
	"gorm.io/gorm"

	"moogtchat/internal/chat/handler"
	"moogtchat/internal/chat/service"
	"moogtchat/internal/common"
	"moogtchat/internal/config"
	"moogtchat/internal/dbmongo"
	"moogtchat/internal/notif"
	"moogtchat/internal/realtime"
)

// Application holds everything main needs to run and shut down the service.
type Application struct {
	Config              *config.Config
	DB                  *gorm.DB
	Mongo               *dbmongo.MongoClient
	Hub                 *realtime.Hub
	ChatService         service.ChatService
	NotificationService *notif.NotificationService
	ChatHandler         *handler.ChatHandler
}

func newApplication(
	cfg *config.Config,
	db *gorm.DB,
	mongo *dbmongo.MongoClient,
	hub *realtime.Hub,
	chatService service.ChatService,
	notificationService *notif.NotificationService,
	chatHandler *handler.ChatHandler,
) *Application {
	return &Application{
		Config:              cfg,
		DB:                  db,
		Mongo:               mongo,
		Hub:                 hub,
		ChatService:         chatService,
		NotificationService: notificationService,
		ChatHandler:         chatHandler,
	}
}

func providePublisher(hub *realtime.Hub) common.Publisher {
	return hub
}

func provideNotifier(svc *notif.NotificationService) service.Notifier {
	return svc
}
