package dbmysql

import "time"

// The invitation-like entities below are owned by the debate domain; the
// messaging core only reads them to build message payloads and notifications.
// Their workflow state machines live with their owners.

type Invitation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MoogtID    uint      `gorm:"index" json:"moogt_id"`
	Resolution string    `gorm:"type:text" json:"resolution"`
	InviterID  *string   `gorm:"size:36" json:"inviter_id"`
	InviteeID  *string   `gorm:"size:36" json:"invitee_id"`
	Status     string    `gorm:"size:32" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ModeratorInvitation struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	InvitationID uint       `gorm:"index" json:"invitation_id"`
	Invitation   Invitation `gorm:"foreignKey:InvitationID" json:"invitation"`
	ModeratorID  *string    `gorm:"size:36" json:"moderator_id"`
	Status       string     `gorm:"size:32" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type MiniSuggestion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MoogtID     uint      `gorm:"index" json:"moogt_id"`
	SuggesterID *string   `gorm:"size:36" json:"suggester_id"`
	Changes     string    `gorm:"type:text" json:"changes"`
	Status      string    `gorm:"size:32" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
