package models

import (
	"time"
)

// Metric names a tracked counter that achievements and challenges react to
type Metric string

const (
	MetricTasksCompleted      Metric = "tasks_completed"
	MetricHabitsCompleted     Metric = "habits_completed"
	MetricBlocksCompleted     Metric = "blocks_completed"
	MetricFocusMinutes        Metric = "focus_minutes"
	MetricChallengesCompleted Metric = "challenges_completed"
	MetricLongestStreak       Metric = "longest_streak"
	MetricLevel               Metric = "level"
)

// AchievementTier: none(0) → bronze(1) → silver(2) → gold(3)
type AchievementTier int

const (
	TierNone AchievementTier = iota
	TierBronze
	TierSilver
	TierGold
)

func (t AchievementTier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	default:
		return "none"
	}
}

// AchievementDef: static config for one tiered achievement.
// Thresholds and XP rewards are ascending bronze < silver < gold.
type AchievementDef struct {
	Code        string
	Name        string
	Description string
	Icon        string
	Metric      Metric
	Thresholds  [3]int64 // bronze, silver, gold
	XPRewards   [3]int64
}

// TierThreshold returns the counter value required for a tier (bronze=1..gold=3)
func (d AchievementDef) TierThreshold(tier AchievementTier) int64 {
	return d.Thresholds[int(tier)-1]
}

// TierXP returns the XP awarded for crossing into a tier
func (d AchievementDef) TierXP(tier AchievementTier) int64 {
	return d.XPRewards[int(tier)-1]
}

// HighestTier returns the highest tier whose threshold value meets
func (d AchievementDef) HighestTier(value int64) AchievementTier {
	tier := TierNone
	for t := TierBronze; t <= TierGold; t++ {
		if value >= d.TierThreshold(t) {
			tier = t
		}
	}
	return tier
}

// AchievementProgress: per user per achievement definition (awarded tiers + timestamps).
// Tier unlock timestamps are monotonic (bronze ≤ silver ≤ gold) and never cleared
// outside an explicit reset.
type AchievementProgress struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_user_achievement" json:"external_user_id"`
	Code           string `gorm:"not null;uniqueIndex:idx_user_achievement" json:"code"`

	CurrentTier   AchievementTier `json:"current_tier" gorm:"default:0"`
	ProgressValue int64           `json:"progress_value" gorm:"default:0"`

	BronzeUnlockedAt *time.Time `json:"bronze_unlocked_at,omitempty"`
	SilverUnlockedAt *time.Time `json:"silver_unlocked_at,omitempty"`
	GoldUnlockedAt   *time.Time `json:"gold_unlocked_at,omitempty"`

	Timestamps
}

// UnlockedAt returns the stored unlock time for a tier, if any
func (p *AchievementProgress) UnlockedAt(tier AchievementTier) *time.Time {
	switch tier {
	case TierBronze:
		return p.BronzeUnlockedAt
	case TierSilver:
		return p.SilverUnlockedAt
	case TierGold:
		return p.GoldUnlockedAt
	}
	return nil
}

// SetUnlockedAt stamps the unlock time for a tier (never overwrites an existing stamp)
func (p *AchievementProgress) SetUnlockedAt(tier AchievementTier, at time.Time) {
	switch tier {
	case TierBronze:
		if p.BronzeUnlockedAt == nil {
			p.BronzeUnlockedAt = &at
		}
	case TierSilver:
		if p.SilverUnlockedAt == nil {
			p.SilverUnlockedAt = &at
		}
	case TierGold:
		if p.GoldUnlockedAt == nil {
			p.GoldUnlockedAt = &at
		}
	}
}

// AchievementDefs is the static achievement catalog
var AchievementDefs = []AchievementDef{
	{
		Code: "TASK_TITAN", Name: "Task Titan", Icon: "✅",
		Description: "Complete tasks",
		Metric:      MetricTasksCompleted,
		Thresholds:  [3]int64{10, 100, 500},
		XPRewards:   [3]int64{50, 200, 1000},
	},
	{
		Code: "HABIT_HERO", Name: "Habit Hero", Icon: "🔁",
		Description: "Complete habit check-ins",
		Metric:      MetricHabitsCompleted,
		Thresholds:  [3]int64{10, 100, 500},
		XPRewards:   [3]int64{50, 200, 1000},
	},
	{
		Code: "STREAK_KEEPER", Name: "Streak Keeper", Icon: "🔥",
		Description: "Reach a long daily streak",
		Metric:      MetricLongestStreak,
		Thresholds:  [3]int64{7, 30, 100},
		XPRewards:   [3]int64{100, 500, 2500},
	},
	{
		Code: "FOCUS_MASTER", Name: "Focus Master", Icon: "⏱️",
		Description: "Accumulate focused study minutes",
		Metric:      MetricFocusMinutes,
		Thresholds:  [3]int64{300, 3000, 15000},
		XPRewards:   [3]int64{50, 250, 1250},
	},
	{
		Code: "PLANNER_PRO", Name: "Planner Pro", Icon: "📅",
		Description: "Complete scheduled study blocks",
		Metric:      MetricBlocksCompleted,
		Thresholds:  [3]int64{10, 100, 500},
		XPRewards:   [3]int64{50, 200, 1000},
	},
	{
		Code: "CHALLENGER", Name: "Challenger", Icon: "🏁",
		Description: "Complete daily and weekly challenges",
		Metric:      MetricChallengesCompleted,
		Thresholds:  [3]int64{5, 50, 250},
		XPRewards:   [3]int64{50, 250, 1250},
	},
	{
		Code: "SCHOLAR", Name: "Scholar", Icon: "🎓",
		Description: "Reach higher levels",
		Metric:      MetricLevel,
		Thresholds:  [3]int64{5, 15, 30},
		XPRewards:   [3]int64{100, 400, 1500},
	},
}

// AchievementDefByCode looks up a definition in the catalog
func AchievementDefByCode(code string) (AchievementDef, bool) {
	for _, d := range AchievementDefs {
		if d.Code == code {
			return d, true
		}
	}
	return AchievementDef{}, false
}
