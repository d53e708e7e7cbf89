package models

import (
	"time"
)

// ChallengeCadence: how often a challenge window rolls over
type ChallengeCadence string

const (
	CadenceDaily  ChallengeCadence = "daily"
	CadenceWeekly ChallengeCadence = "weekly"
)

// ChallengeTemplate: static config a ChallengeInstance is generated from
type ChallengeTemplate struct {
	Code        string
	Title       string
	Description string
	Cadence     ChallengeCadence
	Metric      Metric
	Target      int64
	XPReward    int64
	Difficulty  string // easy, medium, hard
}

// ChallengeTemplates is the static template pool.
// Daily instances draw 3 per user per day; weekly draw 1 per user per week.
var ChallengeTemplates = []ChallengeTemplate{
	// Daily pool
	{Code: "DAILY_TASKS_3", Title: "Quick Wins", Description: "Complete 3 tasks today",
		Cadence: CadenceDaily, Metric: MetricTasksCompleted, Target: 3, XPReward: 30, Difficulty: "easy"},
	{Code: "DAILY_TASKS_5", Title: "Getting Things Done", Description: "Complete 5 tasks today",
		Cadence: CadenceDaily, Metric: MetricTasksCompleted, Target: 5, XPReward: 60, Difficulty: "medium"},
	{Code: "DAILY_HABITS_2", Title: "Creature of Habit", Description: "Check in 2 habits today",
		Cadence: CadenceDaily, Metric: MetricHabitsCompleted, Target: 2, XPReward: 30, Difficulty: "easy"},
	{Code: "DAILY_FOCUS_25", Title: "Deep Work Starter", Description: "Focus for 25 minutes",
		Cadence: CadenceDaily, Metric: MetricFocusMinutes, Target: 25, XPReward: 40, Difficulty: "easy"},
	{Code: "DAILY_FOCUS_50", Title: "Deep Work Pro", Description: "Focus for 50 minutes",
		Cadence: CadenceDaily, Metric: MetricFocusMinutes, Target: 50, XPReward: 70, Difficulty: "medium"},
	{Code: "DAILY_BLOCKS_2", Title: "Stick to the Plan", Description: "Complete 2 scheduled blocks",
		Cadence: CadenceDaily, Metric: MetricBlocksCompleted, Target: 2, XPReward: 40, Difficulty: "medium"},

	// Weekly pool
	{Code: "WEEKLY_TASKS_20", Title: "Task Marathon", Description: "Complete 20 tasks this week",
		Cadence: CadenceWeekly, Metric: MetricTasksCompleted, Target: 20, XPReward: 200, Difficulty: "medium"},
	{Code: "WEEKLY_FOCUS_300", Title: "Focus Grind", Description: "Focus for 5 hours this week",
		Cadence: CadenceWeekly, Metric: MetricFocusMinutes, Target: 300, XPReward: 250, Difficulty: "hard"},
	{Code: "WEEKLY_HABITS_10", Title: "Habit Week", Description: "10 habit check-ins this week",
		Cadence: CadenceWeekly, Metric: MetricHabitsCompleted, Target: 10, XPReward: 180, Difficulty: "medium"},
	{Code: "WEEKLY_BLOCKS_10", Title: "Master Planner", Description: "Complete 10 scheduled blocks this week",
		Cadence: CadenceWeekly, Metric: MetricBlocksCompleted, Target: 10, XPReward: 200, Difficulty: "medium"},
}

// SweepBonusXP is the fixed bonus for completing all 3 daily challenges in a day
const SweepBonusXP = 50

// DailyChallengeCount: active daily instances per user per day
const DailyChallengeCount = 3

// ChallengeTemplatesByCadence filters the pool
func ChallengeTemplatesByCadence(cadence ChallengeCadence) []ChallengeTemplate {
	var out []ChallengeTemplate
	for _, t := range ChallengeTemplates {
		if t.Cadence == cadence {
			out = append(out, t)
		}
	}
	return out
}

// ChallengeTemplateByCode looks up a template in the pool
func ChallengeTemplateByCode(code string) (ChallengeTemplate, bool) {
	for _, t := range ChallengeTemplates {
		if t.Code == code {
			return t, true
		}
	}
	return ChallengeTemplate{}, false
}

// ChallengeInstance is a time-boxed progress tracker generated from a template.
// WindowStart is the day ("2006-01-02") for daily, the Monday of the week for weekly.
// Instances are archived at rollover, never mutated after their window closes.
type ChallengeInstance struct {
	ID             string           `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string           `gorm:"not null;uniqueIndex:idx_user_challenge_window" json:"external_user_id"`
	TemplateCode   string           `gorm:"not null;uniqueIndex:idx_user_challenge_window" json:"template_code"`
	WindowStart    string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_challenge_window" json:"window_start"`
	Cadence        ChallengeCadence `gorm:"type:varchar(8);not null;index" json:"cadence"`

	Metric   Metric `gorm:"type:varchar(32);not null" json:"metric"`
	Target   int64  `json:"target"`
	Progress int64  `json:"progress" gorm:"default:0"`
	XPReward int64  `json:"xp_reward"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Archived    bool       `json:"archived" gorm:"default:false;index"`

	Timestamps
}

// SweepBonus marks that a user earned the all-dailies-complete bonus for a date.
// Insert-if-absent keeps the award idempotent across repeated evaluations.
type SweepBonus struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_user_sweep_date" json:"external_user_id"`
	Date           string `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_sweep_date" json:"date"`
	XPAwarded      int64  `json:"xp_awarded"`

	Timestamps
}

// WeeklyStats is the aggregate written once at weekly reset (per user per week).
type WeeklyStats struct {
	ID                  string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID      string  `gorm:"not null;uniqueIndex:idx_user_week" json:"external_user_id"`
	WeekStart           string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_week" json:"week_start"`
	XPEarned            int64   `json:"xp_earned"`
	ChallengesCompleted int64   `json:"challenges_completed"`
	GroupID             *string `gorm:"index" json:"group_id,omitempty"`
	GroupRank           int     `json:"group_rank" gorm:"default:0"` // 0 = not ranked
	BonusXP             int64   `json:"bonus_xp" gorm:"default:0"`   // top-3 weekly bonus

	Timestamps
}
