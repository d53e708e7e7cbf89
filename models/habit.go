package models

// Habit is a recurring daily practice with its own independent streak,
// driven solely by this habit's completions on consecutive calendar dates.
type Habit struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	Name           string `gorm:"not null" json:"name"`
	Description    string `gorm:"type:text" json:"description,omitempty"`
	Icon           string `gorm:"size:10" json:"icon,omitempty"`
	XPValue        int64  `json:"xp_value" gorm:"default:10"`

	CurrentStreak     int     `json:"current_streak" gorm:"default:0"`
	LongestStreak     int     `json:"longest_streak" gorm:"default:0"`
	LastCompletedDate *string `json:"last_completed_date,omitempty" gorm:"type:varchar(10)"`

	Archived bool `json:"archived" gorm:"default:false"`

	Timestamps
}

// HabitCompletion marks a habit done on a calendar date.
// Existence = completed (toggle semantics: insert on complete, delete on uncomplete).
// XPAwarded is an immutable snapshot so uncompletion reverses the exact amount
// even if the habit's XPValue changes later.
type HabitCompletion struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	HabitID        string `gorm:"not null;uniqueIndex:idx_habit_date" json:"habit_id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	Date           string `gorm:"type:varchar(10);not null;uniqueIndex:idx_habit_date" json:"date"`
	XPAwarded      int64  `json:"xp_awarded"`

	Timestamps
}
