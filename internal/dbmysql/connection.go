package dbmysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"moogtchat/internal/config"
)

// NewMySQL returns a GORM DB instance connected to MySQL.
// TranslateError is on so the conversation pair-key race surfaces as
// gorm.ErrDuplicatedKey and can be resolved by re-fetching.
func NewMySQL(cnf *config.Config) (*gorm.DB, error) {
	dsn := cnf.DSN()
	if dsn == "" {
		return nil, fmt.Errorf("MYSQL_DSN is not set")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cnf.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Println("connected to MySQL")
	return db, nil
}

// AutoMigrate creates or updates every table this service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Conversation{},
		&Participant{},
		&PriorityMark{},
		&RegularMessage{},
		&InvitationMessage{},
		&MiniSuggestionMessage{},
		&ModeratorInvitationMessage{},
		&Invitation{},
		&ModeratorInvitation{},
		&MiniSuggestion{},
		&Notification{},
		&UserProfile{},
	)
}
