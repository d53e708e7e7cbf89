package models

// StudyGroup: a small social group competing on weekly XP
type StudyGroup struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	Slug       string `gorm:"uniqueIndex;not null" json:"slug"`
	OwnerID    string `gorm:"index;not null" json:"owner_id"` // external user id
	InviteCode string `gorm:"uniqueIndex;not null;size:12" json:"invite_code"`

	Timestamps
}

// GroupMember links a user to a study group (one group membership per user per group)
type GroupMember struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	GroupID        string `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_group_member" json:"external_user_id"`

	Timestamps
}
