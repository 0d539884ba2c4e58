package dbmysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moogtchat/internal/common"
)

// UserProfile is a read-mostly replica of the identity service's user record.
// The identity service writes it, this service only resolves handles from it.
type UserProfile struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	Handle    string    `gorm:"uniqueIndex;size:50;not null" json:"handle"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type userDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) common.UserDirectory {
	return &userDirectory{db: db}
}

func (d *userDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	var profile UserProfile
	err := d.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", common.NotFoundf("user %s not found", userID)
		}
		return "", err
	}
	if profile.FirstName != "" {
		return profile.FirstName, nil
	}
	return profile.Handle, nil
}
