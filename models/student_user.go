package models

import (
	"time"

	"gorm.io/gorm"
)

// StudentUser is a local snapshot of user data needed for groups and leaderboards.
// Owned and managed solely by this service.
// Populated via sync worker from the auth/profile service's user table.
type StudentUser struct {
	ID                string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string     `gorm:"uniqueIndex;not null" json:"external_user_id"` // the auth service's UUID
	Username          string     `gorm:"index;not null" json:"username"`
	Email             string     `json:"email,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	FirstName         *string    `json:"first_name,omitempty"`
	LastName          *string    `json:"last_name,omitempty"`
	Timezone          *string    `json:"timezone,omitempty"` // IANA name, used to resolve "today"
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`

	// Soft delete (kept for leaderboard history)
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
