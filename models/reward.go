package models

import (
	"time"
)

// RewardCategory: which engine produced the reward
type RewardCategory string

const (
	RewardCategoryAchievement RewardCategory = "achievement"
	RewardCategoryChallenge   RewardCategory = "challenge"
	RewardCategorySweep       RewardCategory = "sweep_bonus"
	RewardCategoryWeeklyBonus RewardCategory = "weekly_bonus"
	RewardCategoryMilestone   RewardCategory = "milestone" // level-ups
)

// Reward is a notification-feed entry written whenever an engine grants bonus XP.
// The UI reads these to attribute XP to its source (base vs challenge vs
// achievement are always surfaced as separate numbers, never merged).
type Reward struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string         `gorm:"index;not null" json:"external_user_id"`
	Category       RewardCategory `gorm:"type:varchar(16);not null" json:"category"`
	Title          string         `gorm:"not null" json:"title"`
	Emoji          string         `gorm:"size:10" json:"emoji"`
	XPAmount       int64          `json:"xp_amount"`
	SourceCode     string         `gorm:"type:varchar(64)" json:"source_code"` // achievement code / template code
	Viewed         bool           `gorm:"default:false;index" json:"viewed"`
	CreatedAt      time.Time      `json:"created_at"`
}
