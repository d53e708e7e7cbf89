package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile tracks gamified progression for each student (denormalized for performance)
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to auth/profile service

	// Core progression
	XPTotal int64 `json:"xp_total" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`

	// Global streak (any productive action counts, rolls once per day)
	CurrentStreak  int     `json:"current_streak" gorm:"default:0"`
	LongestStreak  int     `json:"longest_streak" gorm:"default:0"`
	LastActiveDate *string `json:"last_active_date,omitempty" gorm:"type:varchar(10)"` // "2006-01-02"

	// Streak freezes: consumables that keep a streak alive through a missed day
	StreakFreezes  int     `json:"streak_freezes" gorm:"default:3"`
	LastFreezeDate *string `json:"last_freeze_date,omitempty" gorm:"type:varchar(10)"`

	// Activity counters (drive achievement tiers)
	TotalTasksCompleted      int64 `json:"total_tasks_completed" gorm:"default:0"`
	TotalHabitsCompleted     int64 `json:"total_habits_completed" gorm:"default:0"`
	TotalBlocksCompleted     int64 `json:"total_blocks_completed" gorm:"default:0"`
	TotalFocusMinutes        int64 `json:"total_focus_minutes" gorm:"default:0"`
	TotalChallengesCompleted int64 `json:"total_challenges_completed" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// XPEvent is an append-only ledger of every XP mutation (positive or negative).
// Weekly leaderboards and history aggregates are computed from this table.
type XPEvent struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	Amount         int64     `json:"amount"` // negative for reversals
	Source         string    `gorm:"type:varchar(64);not null" json:"source"`
	Date           string    `gorm:"type:varchar(10);index;not null" json:"date"` // local calendar date
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}
