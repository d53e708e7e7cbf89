package services

import (
	"errors"
	"fmt"
	"log"

	"studyquest-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionService is the orchestrator every productive write path goes
// through. Each action runs one pipeline, in a fixed order, inside a single
// transaction: toggle the completion record, roll streaks, award base XP,
// bump counters, feed the challenge engine, then the achievement engine.
// Each stage returns a typed result; the bundle keeps the three XP sources
// (base, challenge, achievement) separate for UI attribution.
type CompletionService struct {
	DB           *gorm.DB
	XP           *XPService
	Achievements *AchievementService
	Challenges   *ChallengeService
	Clock        Clock
}

func NewCompletionService(db *gorm.DB, xp *XPService, ach *AchievementService, ch *ChallengeService, clock Clock) *CompletionService {
	return &CompletionService{DB: db, XP: xp, Achievements: ach, Challenges: ch, Clock: clock}
}

// StreakInfo is the post-action streak state surfaced to the caller
type StreakInfo struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	Extended      bool `json:"extended"` // false when today was already counted
}

// CompletionResult is the full bundle for one productive action
type CompletionResult struct {
	AlreadyCompleted bool             `json:"already_completed"`
	XP               *XPResult        `json:"xp,omitempty"`
	GlobalStreak     *StreakInfo      `json:"global_streak,omitempty"`
	HabitStreak      *StreakInfo      `json:"habit_streak,omitempty"`
	Challenges       *ChallengeResult `json:"challenges,omitempty"`
	Achievements     []TierUnlock     `json:"achievements,omitempty"`
}

// ─── Habits ─────────────────────────────────────────────────────────────────

// CompleteHabit marks a habit done for day. A completion that already exists
// for (habit, day) is a no-op — never a double award.
func (s *CompletionService) CompleteHabit(externalUserID, habitID, day string) (*CompletionResult, error) {
	if err := s.checkDay(day); err != nil {
		return nil, err
	}
	result := &CompletionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var habit models.Habit
		if err := tx.Where("id = ? AND external_user_id = ?", habitID, externalUserID).First(&habit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: habit %s", ErrNotFound, habitID)
			}
			return err
		}

		// Toggle-by-existence guard: completion already present = no-op
		var existing models.HabitCompletion
		err := tx.Where("habit_id = ? AND date = ?", habitID, day).First(&existing).Error
		if err == nil {
			result.AlreadyCompleted = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Roll the habit's own streak
		habitStreak := StreakState{Current: habit.CurrentStreak, Longest: habit.LongestStreak, LastDate: habit.LastCompletedDate}
		extended := habitStreak.Roll(day)
		habit.CurrentStreak = habitStreak.Current
		habit.LongestStreak = habitStreak.Longest
		habit.LastCompletedDate = habitStreak.LastDate
		if err := tx.Save(&habit).Error; err != nil {
			return err
		}
		result.HabitStreak = &StreakInfo{CurrentStreak: habit.CurrentStreak, LongestStreak: habit.LongestStreak, Extended: extended}

		// Roll the global streak before awarding so the multiplier sees today
		global, err := s.rollGlobalStreak(tx, externalUserID, day)
		if err != nil {
			return err
		}
		result.GlobalStreak = global

		xp, err := s.XP.Award(tx, externalUserID, habit.XPValue, "habit_"+habit.ID, day)
		if err != nil {
			return err
		}
		result.XP = xp

		completion := models.HabitCompletion{
			ID:             uuid.NewString(),
			HabitID:        habit.ID,
			ExternalUserID: externalUserID,
			Date:           day,
			XPAwarded:      xp.FinalXP,
		}
		if err := tx.Create(&completion).Error; err != nil {
			return err
		}

		return s.afterAction(tx, result, externalUserID, models.MetricHabitsCompleted, "total_habits_completed", 1, day)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UncompleteHabit reverses a completion (toggle off). XP is reversed from the
// stored snapshot, and the habit streak is recomputed from the remaining
// completions rather than decremented, so retroactive uncompletion can't leave
// a stale inflated streak.
func (s *CompletionService) UncompleteHabit(externalUserID, habitID, day string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var habit models.Habit
		if err := tx.Where("id = ? AND external_user_id = ?", habitID, externalUserID).First(&habit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: habit %s", ErrNotFound, habitID)
			}
			return err
		}

		var completion models.HabitCompletion
		if err := tx.Where("habit_id = ? AND date = ?", habitID, day).First(&completion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: habit completion for %s", ErrNotFound, day)
			}
			return err
		}

		if err := tx.Unscoped().Delete(&completion).Error; err != nil {
			return err
		}

		if _, err := s.XP.Reverse(tx, externalUserID, completion.XPAwarded, "uncomplete_habit_"+habitID, completion.Date); err != nil {
			return err
		}
		if err := decrementCounter(tx, externalUserID, "total_habits_completed", 1); err != nil {
			return err
		}

		// Recompute the habit streak from what remains
		var dates []string
		if err := tx.Model(&models.HabitCompletion{}).
			Where("habit_id = ?", habitID).
			Pluck("date", &dates).Error; err != nil {
			return err
		}
		streak, last := RecomputeStreak(dates)
		habit.CurrentStreak = streak
		habit.LastCompletedDate = last
		if err := tx.Save(&habit).Error; err != nil {
			return err
		}

		return s.recomputeGlobalStreakIfStale(tx, externalUserID, day)
	})
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// CompleteTask marks a task done today. Base XP comes from the task priority.
func (s *CompletionService) CompleteTask(externalUserID, taskID string) (*CompletionResult, error) {
	day := s.Clock.Today()
	result := &CompletionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ? AND external_user_id = ?", taskID, externalUserID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
			}
			return err
		}

		if task.Completed() {
			result.AlreadyCompleted = true
			return nil
		}

		global, err := s.rollGlobalStreak(tx, externalUserID, day)
		if err != nil {
			return err
		}
		result.GlobalStreak = global

		xp, err := s.XP.Award(tx, externalUserID, task.Priority.BaseXP(), "task_"+task.ID, day)
		if err != nil {
			return err
		}
		result.XP = xp

		task.CompletedDate = &day
		task.XPAwarded = xp.FinalXP
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		return s.afterAction(tx, result, externalUserID, models.MetricTasksCompleted, "total_tasks_completed", 1, day)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UncompleteTask toggles a task back to open, reversing the stored XP snapshot
// (not the task's possibly-changed current priority value).
func (s *CompletionService) UncompleteTask(externalUserID, taskID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ? AND external_user_id = ?", taskID, externalUserID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
			}
			return err
		}
		if !task.Completed() {
			return fmt.Errorf("%w: task %s is not completed", ErrInvalidState, taskID)
		}

		day := *task.CompletedDate
		if _, err := s.XP.Reverse(tx, externalUserID, task.XPAwarded, "uncomplete_task_"+taskID, day); err != nil {
			return err
		}
		if err := decrementCounter(tx, externalUserID, "total_tasks_completed", 1); err != nil {
			return err
		}

		task.CompletedDate = nil
		task.XPAwarded = 0
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		return s.recomputeGlobalStreakIfStale(tx, externalUserID, day)
	})
}

// ─── Schedule blocks ────────────────────────────────────────────────────────

// CompleteBlock marks a schedule block done for day (toggle-by-existence,
// same shape as habits minus the per-entity streak).
func (s *CompletionService) CompleteBlock(externalUserID, blockID, day string) (*CompletionResult, error) {
	if err := s.checkDay(day); err != nil {
		return nil, err
	}
	result := &CompletionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var block models.ScheduleBlock
		if err := tx.Where("id = ? AND external_user_id = ?", blockID, externalUserID).First(&block).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: schedule block %s", ErrNotFound, blockID)
			}
			return err
		}

		var existing models.BlockCompletion
		err := tx.Where("block_id = ? AND date = ?", blockID, day).First(&existing).Error
		if err == nil {
			result.AlreadyCompleted = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		global, err := s.rollGlobalStreak(tx, externalUserID, day)
		if err != nil {
			return err
		}
		result.GlobalStreak = global

		xp, err := s.XP.Award(tx, externalUserID, block.XPValue, "block_"+block.ID, day)
		if err != nil {
			return err
		}
		result.XP = xp

		completion := models.BlockCompletion{
			ID:             uuid.NewString(),
			BlockID:        block.ID,
			ExternalUserID: externalUserID,
			Date:           day,
			XPAwarded:      xp.FinalXP,
		}
		if err := tx.Create(&completion).Error; err != nil {
			return err
		}

		return s.afterAction(tx, result, externalUserID, models.MetricBlocksCompleted, "total_blocks_completed", 1, day)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UncompleteBlock toggles a block completion off and reverses its XP snapshot
func (s *CompletionService) UncompleteBlock(externalUserID, blockID, day string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var completion models.BlockCompletion
		err := tx.Where("block_id = ? AND external_user_id = ? AND date = ?", blockID, externalUserID, day).
			First(&completion).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: block completion for %s", ErrNotFound, day)
			}
			return err
		}

		if err := tx.Unscoped().Delete(&completion).Error; err != nil {
			return err
		}
		if _, err := s.XP.Reverse(tx, externalUserID, completion.XPAwarded, "uncomplete_block_"+blockID, completion.Date); err != nil {
			return err
		}
		if err := decrementCounter(tx, externalUserID, "total_blocks_completed", 1); err != nil {
			return err
		}

		return s.recomputeGlobalStreakIfStale(tx, externalUserID, day)
	})
}

// ─── Focus sessions ─────────────────────────────────────────────────────────

// RecordFocusSession logs a finished focus session. Append-only: no reversal.
func (s *CompletionService) RecordFocusSession(externalUserID string, minutes int) (*CompletionResult, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: focus minutes must be positive, got %d", ErrInvalidState, minutes)
	}

	day := s.Clock.Today()
	result := &CompletionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		global, err := s.rollGlobalStreak(tx, externalUserID, day)
		if err != nil {
			return err
		}
		result.GlobalStreak = global

		// 25 minutes of focus ≈ a medium task
		baseXP := int64(minutes) * 3 / 5
		if baseXP < 1 {
			baseXP = 1
		}
		xp, err := s.XP.Award(tx, externalUserID, baseXP, "focus_session", day)
		if err != nil {
			return err
		}
		result.XP = xp

		session := models.FocusSession{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Date:           day,
			Minutes:        minutes,
			XPAwarded:      xp.FinalXP,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		return s.afterAction(tx, result, externalUserID, models.MetricFocusMinutes, "total_focus_minutes", int64(minutes), day)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ─── Shared pipeline stages ─────────────────────────────────────────────────

// afterAction runs the tail of the pipeline: counter bump, challenge progress,
// then achievement evaluation against the fresh counters.
func (s *CompletionService) afterAction(tx *gorm.DB, result *CompletionResult, externalUserID string, metric models.Metric, counterColumn string, delta int64, day string) error {
	if err := tx.Model(&models.UserProfile{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn(counterColumn, gorm.Expr(counterColumn+" + ?", delta)).Error; err != nil {
		return err
	}

	challenges, err := s.Challenges.RecordProgress(tx, externalUserID, metric, delta, day)
	if err != nil {
		return err
	}
	result.Challenges = challenges

	// Achievements evaluate last, against the counters every earlier stage
	// just wrote (including challenge completions and bonus XP level bumps).
	var prof models.UserProfile
	if err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
		return err
	}

	checks := []struct {
		metric models.Metric
		value  int64
	}{
		{metric, profileCounter(&prof, metric)},
		{models.MetricLongestStreak, int64(prof.LongestStreak)},
		{models.MetricLevel, int64(prof.Level)},
		{models.MetricChallengesCompleted, prof.TotalChallengesCompleted},
	}
	for _, check := range checks {
		unlocks, err := s.Achievements.Evaluate(tx, externalUserID, check.metric, check.value, day)
		if err != nil {
			return err
		}
		result.Achievements = append(result.Achievements, unlocks...)
	}
	return nil
}

// checkDay rejects completion dates in the future. Backfilling past days is
// allowed (the streak machine ignores days it has already moved past), but a
// future date would let a user pre-bank streak days.
func (s *CompletionService) checkDay(day string) error {
	if day > s.Clock.Today() {
		return fmt.Errorf("%w: completion date %s is in the future", ErrInvalidState, day)
	}
	return nil
}

// rollGlobalStreak rolls the account-level streak for day. Any productive
// action drives it, but it only moves once per calendar day.
func (s *CompletionService) rollGlobalStreak(tx *gorm.DB, externalUserID, day string) (*StreakInfo, error) {
	prof, err := s.XP.ensureProfileTx(tx, externalUserID)
	if err != nil {
		return nil, err
	}

	state := StreakState{Current: prof.CurrentStreak, Longest: prof.LongestStreak, LastDate: prof.LastActiveDate}
	extended := state.Roll(day)
	if extended {
		prof.CurrentStreak = state.Current
		prof.LongestStreak = state.Longest
		prof.LastActiveDate = state.LastDate
		if err := tx.Save(prof).Error; err != nil {
			return nil, err
		}
	}

	return &StreakInfo{CurrentStreak: state.Current, LongestStreak: state.Longest, Extended: extended}, nil
}

// recomputeGlobalStreakIfStale rebuilds the global streak after a reversal on
// day, but only when that day no longer has any remaining productive activity.
// Recompute-from-source-of-truth keeps retries idempotent.
func (s *CompletionService) recomputeGlobalStreakIfStale(tx *gorm.DB, externalUserID, day string) error {
	prof, err := s.XP.ensureProfileTx(tx, externalUserID)
	if err != nil {
		return err
	}
	if prof.LastActiveDate == nil {
		return nil
	}

	dates, err := s.activityDates(tx, externalUserID)
	if err != nil {
		return err
	}
	for _, d := range dates {
		if d == day {
			return nil // day still has activity; streak stands
		}
	}
	// Freeze days also keep a day maintained
	if prof.LastFreezeDate != nil && *prof.LastFreezeDate == day {
		return nil
	}

	// A freeze bridges the chain like a completion would. Only the most
	// recent freeze day is stored, so only that one can be replayed here.
	if prof.LastFreezeDate != nil {
		dates = append(dates, *prof.LastFreezeDate)
	}

	streak, last := RecomputeStreak(dates)
	prof.CurrentStreak = streak
	prof.LastActiveDate = last
	if err := tx.Save(prof).Error; err != nil {
		return err
	}
	log.Printf("🔄 Global streak recomputed for %s: streak=%d", externalUserID, streak)
	return nil
}

// activityDates collects every date with a qualifying productive action
func (s *CompletionService) activityDates(tx *gorm.DB, externalUserID string) ([]string, error) {
	var dates []string

	collect := func(model interface{}, column string) error {
		var out []string
		if err := tx.Model(model).
			Where("external_user_id = ?", externalUserID).
			Pluck(column, &out).Error; err != nil {
			return err
		}
		dates = append(dates, out...)
		return nil
	}

	if err := collect(&models.HabitCompletion{}, "date"); err != nil {
		return nil, err
	}
	if err := collect(&models.BlockCompletion{}, "date"); err != nil {
		return nil, err
	}
	if err := collect(&models.FocusSession{}, "date"); err != nil {
		return nil, err
	}

	var taskDates []string
	if err := tx.Model(&models.Task{}).
		Where("external_user_id = ? AND completed_date IS NOT NULL", externalUserID).
		Pluck("completed_date", &taskDates).Error; err != nil {
		return nil, err
	}
	dates = append(dates, taskDates...)

	return dates, nil
}

func decrementCounter(tx *gorm.DB, externalUserID, column string, delta int64) error {
	var prof models.UserProfile
	if err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error; err != nil {
		return err
	}
	value := profileCounterByColumn(&prof, column) - delta
	if value < 0 {
		value = 0
	}
	return tx.Model(&prof).UpdateColumn(column, value).Error
}

func profileCounter(p *models.UserProfile, metric models.Metric) int64 {
	switch metric {
	case models.MetricTasksCompleted:
		return p.TotalTasksCompleted
	case models.MetricHabitsCompleted:
		return p.TotalHabitsCompleted
	case models.MetricBlocksCompleted:
		return p.TotalBlocksCompleted
	case models.MetricFocusMinutes:
		return p.TotalFocusMinutes
	case models.MetricChallengesCompleted:
		return p.TotalChallengesCompleted
	case models.MetricLongestStreak:
		return int64(p.LongestStreak)
	case models.MetricLevel:
		return int64(p.Level)
	}
	return 0
}

func profileCounterByColumn(p *models.UserProfile, column string) int64 {
	switch column {
	case "total_tasks_completed":
		return p.TotalTasksCompleted
	case "total_habits_completed":
		return p.TotalHabitsCompleted
	case "total_blocks_completed":
		return p.TotalBlocksCompleted
	case "total_focus_minutes":
		return p.TotalFocusMinutes
	case "total_challenges_completed":
		return p.TotalChallengesCompleted
	}
	return 0
}

// ─── Streak freeze ──────────────────────────────────────────────────────────

// UseStreakFreeze consumes one freeze to mark day as maintained without a real
// completion. At most one freeze per calendar day; the counter never goes
// negative.
func (s *CompletionService) UseStreakFreeze(externalUserID, day string) (*StreakInfo, error) {
	var info *StreakInfo
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prof, err := s.XP.ensureProfileTx(tx, externalUserID)
		if err != nil {
			return err
		}

		if prof.StreakFreezes <= 0 {
			return fmt.Errorf("%w: no streak freezes available", ErrInvalidState)
		}
		if prof.LastFreezeDate != nil && *prof.LastFreezeDate == day {
			return fmt.Errorf("%w: streak freeze already used on %s", ErrInvalidState, day)
		}
		if prof.LastActiveDate != nil && *prof.LastActiveDate == day {
			return fmt.Errorf("%w: day %s already counted", ErrInvalidState, day)
		}

		state := StreakState{Current: prof.CurrentStreak, Longest: prof.LongestStreak, LastDate: prof.LastActiveDate}
		state.Roll(day)
		prof.CurrentStreak = state.Current
		prof.LongestStreak = state.Longest
		prof.LastActiveDate = state.LastDate
		prof.StreakFreezes--
		d := day
		prof.LastFreezeDate = &d
		if err := tx.Save(prof).Error; err != nil {
			return err
		}

		log.Printf("🧊 Streak freeze used: %s on %s (remaining: %d)", externalUserID, day, prof.StreakFreezes)
		info = &StreakInfo{CurrentStreak: prof.CurrentStreak, LongestStreak: prof.LongestStreak, Extended: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
