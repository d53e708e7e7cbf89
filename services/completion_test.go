package services

import (
	"testing"

	"studyquest-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteTaskPipeline(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	task := seedTask(t, db, "user-1", models.TaskPriorityMedium)

	res, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)

	assert.False(t, res.AlreadyCompleted)
	require.NotNil(t, res.XP)
	assert.Equal(t, int64(15), res.XP.FinalXP)
	require.NotNil(t, res.GlobalStreak)
	assert.Equal(t, 1, res.GlobalStreak.CurrentStreak)
	assert.True(t, res.GlobalStreak.Extended)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(15), prof.XPTotal)
	assert.Equal(t, 1, prof.Level)
	assert.Equal(t, int64(1), prof.TotalTasksCompleted)
	require.NotNil(t, prof.LastActiveDate)
	assert.Equal(t, "2026-03-10", *prof.LastActiveDate)

	var fresh models.Task
	require.NoError(t, db.First(&fresh, "id = ?", task.ID).Error)
	assert.True(t, fresh.Completed())
	assert.Equal(t, int64(15), fresh.XPAwarded)
}

func TestCompleteTaskSameDayKeepsStreakAtOne(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	first := seedTask(t, db, "user-1", models.TaskPriorityMedium)
	second := seedTask(t, db, "user-1", models.TaskPriorityMedium)

	_, err := svc.CompleteTask("user-1", first.ID)
	require.NoError(t, err)
	res, err := svc.CompleteTask("user-1", second.ID)
	require.NoError(t, err)

	assert.False(t, res.GlobalStreak.Extended, "second action on the same day")
	assert.Equal(t, 1, res.GlobalStreak.CurrentStreak)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(30), prof.XPTotal)
	assert.Equal(t, int64(2), prof.TotalTasksCompleted)
}

func TestCompleteTaskTwiceIsNoOp(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	task := seedTask(t, db, "user-1", models.TaskPriorityHigh)

	_, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)
	res, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)

	assert.True(t, res.AlreadyCompleted)
	assert.Nil(t, res.XP)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(25), prof.XPTotal, "high priority awarded once")
	assert.Equal(t, int64(1), prof.TotalTasksCompleted)
}

func TestCompleteTaskUnknownTask(t *testing.T) {
	_, svc := newTestStack(t, "2026-03-10")

	_, err := svc.CompleteTask("user-1", "missing")
	assert.True(t, IsNotFound(err))
}

func TestUncompleteTaskReversesSnapshot(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")

	// an ongoing streak makes the award carry a bonus; the reversal must undo
	// the snapshot, not the base value
	yesterday := "2026-03-09"
	prof := seedProfile(t, db, "user-1", 7)
	prof.LastActiveDate = &yesterday
	require.NoError(t, db.Save(prof).Error)

	task := seedTask(t, db, "user-1", models.TaskPriorityHigh)
	res, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(27), res.XP.FinalXP, "25 base + floor(25·10%)")

	require.NoError(t, svc.UncompleteTask("user-1", task.ID))

	fresh := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(0), fresh.XPTotal)
	assert.Equal(t, int64(0), fresh.TotalTasksCompleted)

	var reopened models.Task
	require.NoError(t, db.First(&reopened, "id = ?", task.ID).Error)
	assert.False(t, reopened.Completed())
	assert.Equal(t, int64(0), reopened.XPAwarded)
}

func TestUncompleteTaskRequiresCompletion(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	task := seedTask(t, db, "user-1", models.TaskPriorityLow)

	err := svc.UncompleteTask("user-1", task.ID)
	assert.True(t, IsInvalidState(err))
}

func TestCompleteHabitRollsBothStreaks(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)

	res, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, 1, res.HabitStreak.CurrentStreak)
	assert.Equal(t, 1, res.GlobalStreak.CurrentStreak)

	res, err = svc.CompleteHabit("user-1", habit.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2, res.HabitStreak.CurrentStreak)
	assert.Equal(t, 2, res.GlobalStreak.CurrentStreak)

	var fresh models.Habit
	require.NoError(t, db.First(&fresh, "id = ?", habit.ID).Error)
	assert.Equal(t, 2, fresh.CurrentStreak)
	assert.Equal(t, 2, fresh.LongestStreak)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(2), prof.TotalHabitsCompleted)
}

func TestCompleteHabitSameDayTwiceIsNoOp(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)

	_, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-10")
	require.NoError(t, err)
	res, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-10")
	require.NoError(t, err)

	assert.True(t, res.AlreadyCompleted)

	var count int64
	require.NoError(t, db.Model(&models.HabitCompletion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(10), prof.XPTotal)
}

func TestUncompleteHabitRecomputesStreak(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)

	for _, day := range []string{"2026-03-08", "2026-03-09", "2026-03-10"} {
		_, err := svc.CompleteHabit("user-1", habit.ID, day)
		require.NoError(t, err)
	}

	// removing the middle day splits the run; only the trailing day counts
	require.NoError(t, svc.UncompleteHabit("user-1", habit.ID, "2026-03-09"))

	var fresh models.Habit
	require.NoError(t, db.First(&fresh, "id = ?", habit.ID).Error)
	assert.Equal(t, 1, fresh.CurrentStreak)
	require.NotNil(t, fresh.LastCompletedDate)
	assert.Equal(t, "2026-03-10", *fresh.LastCompletedDate)
}

func TestUncompleteHabitReversesXPAndCounter(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)

	_, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-10")
	require.NoError(t, err)
	require.NoError(t, svc.UncompleteHabit("user-1", habit.ID, "2026-03-10"))

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(0), prof.XPTotal)
	assert.Equal(t, int64(0), prof.TotalHabitsCompleted)
	assert.Equal(t, 0, prof.CurrentStreak, "no remaining activity on the day")
	assert.Nil(t, prof.LastActiveDate)
}

func TestUncompleteKeepsStreakWhenDayStillActive(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)
	task := seedTask(t, db, "user-1", models.TaskPriorityMedium)

	_, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-10")
	require.NoError(t, err)
	_, err = svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)

	require.NoError(t, svc.UncompleteHabit("user-1", habit.ID, "2026-03-10"))

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, 1, prof.CurrentStreak, "the task still maintains the day")
	assert.Equal(t, "2026-03-10", *prof.LastActiveDate)
}

func TestCompleteBlockAndUncomplete(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	block := seedBlock(t, db, "user-1", "2026-03-10", 20)

	res, err := svc.CompleteBlock("user-1", block.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.XP.FinalXP)
	assert.Nil(t, res.HabitStreak, "blocks carry no per-entity streak")

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(1), prof.TotalBlocksCompleted)

	require.NoError(t, svc.UncompleteBlock("user-1", block.ID, "2026-03-10"))
	prof = reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(0), prof.XPTotal)
	assert.Equal(t, int64(0), prof.TotalBlocksCompleted)
}

func TestRecordFocusSession(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")

	res, err := svc.RecordFocusSession("user-1", 25)
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.XP.FinalXP, "25 minutes → 15 XP")

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(25), prof.TotalFocusMinutes)

	var sessions []models.FocusSession
	require.NoError(t, db.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	assert.Equal(t, 25, sessions[0].Minutes)

	_, err = svc.RecordFocusSession("user-1", 0)
	assert.True(t, IsInvalidState(err))
}

func TestRecordFocusSessionMinimumXP(t *testing.T) {
	_, svc := newTestStack(t, "2026-03-10")

	res, err := svc.RecordFocusSession("user-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.XP.FinalXP, "never rounds to zero")
}

func TestCompletionFeedsChallenges(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")

	inst := models.ChallengeInstance{
		ID:             "inst-1",
		ExternalUserID: "user-1",
		TemplateCode:   "DAILY_TASKS_3",
		WindowStart:    "2026-03-10",
		Cadence:        models.CadenceDaily,
		Metric:         models.MetricTasksCompleted,
		Target:         3,
		XPReward:       30,
	}
	require.NoError(t, db.Create(&inst).Error)

	for i := 0; i < 2; i++ {
		task := seedTask(t, db, "user-1", models.TaskPriorityMedium)
		res, err := svc.CompleteTask("user-1", task.ID)
		require.NoError(t, err)
		assert.Empty(t, res.Challenges.Completed)
	}

	task := seedTask(t, db, "user-1", models.TaskPriorityMedium)
	res, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)
	require.Len(t, res.Challenges.Completed, 1)
	assert.Equal(t, int64(30), res.Challenges.ChallengeXP)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(75), prof.XPTotal, "3×15 base + 30 challenge")
	assert.Equal(t, int64(1), prof.TotalChallengesCompleted)
}

func TestCompletionUnlocksAchievement(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")

	for i := 0; i < 9; i++ {
		task := seedTask(t, db, "user-1", models.TaskPriorityMedium)
		res, err := svc.CompleteTask("user-1", task.ID)
		require.NoError(t, err)
		assert.Empty(t, res.Achievements)
	}

	task := seedTask(t, db, "user-1", models.TaskPriorityMedium)
	res, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)
	require.Len(t, res.Achievements, 1)
	assert.Equal(t, "TASK_TITAN", res.Achievements[0].Code)
	assert.Equal(t, "bronze", res.Achievements[0].Tier)

	prof := reloadProfile(t, db, "user-1")
	assert.Equal(t, int64(200), prof.XPTotal, "10×15 base + 50 achievement")
	assert.Equal(t, 2, prof.Level)
}

func TestUseStreakFreeze(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")

	yesterday := "2026-03-09"
	prof := seedProfile(t, db, "user-1", 4)
	prof.LastActiveDate = &yesterday
	require.NoError(t, db.Save(prof).Error)

	info, err := svc.UseStreakFreeze("user-1", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, 5, info.CurrentStreak)

	fresh := reloadProfile(t, db, "user-1")
	assert.Equal(t, 2, fresh.StreakFreezes)
	assert.Equal(t, "2026-03-10", *fresh.LastFreezeDate)
	assert.Equal(t, "2026-03-10", *fresh.LastActiveDate)
}

func TestUseStreakFreezeOncePerDay(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	seedProfile(t, db, "user-1", 0)

	_, err := svc.UseStreakFreeze("user-1", "2026-03-10")
	require.NoError(t, err)

	_, err = svc.UseStreakFreeze("user-1", "2026-03-10")
	assert.True(t, IsInvalidState(err))
}

func TestUseStreakFreezeRejectsActiveDay(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	task := seedTask(t, db, "user-1", models.TaskPriorityLow)
	_, err := svc.CompleteTask("user-1", task.ID)
	require.NoError(t, err)

	_, err = svc.UseStreakFreeze("user-1", "2026-03-10")
	assert.True(t, IsInvalidState(err))
}

func TestUseStreakFreezeRequiresCharges(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	prof := seedProfile(t, db, "user-1", 0)
	require.NoError(t, db.Model(prof).UpdateColumn("streak_freezes", 0).Error)

	_, err := svc.UseStreakFreeze("user-1", "2026-03-10")
	assert.True(t, IsInvalidState(err))
}

func TestCompleteHabitBackfillKeepsLiveStreaks(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)
	habit.CurrentStreak = 5
	habit.LongestStreak = 5
	habit.LastCompletedDate = strPtr("2026-03-10")
	require.NoError(t, db.Save(habit).Error)
	prof := seedProfile(t, db, "user-1", 5)
	prof.LastActiveDate = strPtr("2026-03-10")
	require.NoError(t, db.Save(prof).Error)

	// filling in yesterday still awards XP but never rewinds either streak
	res, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-09")
	require.NoError(t, err)
	assert.False(t, res.GlobalStreak.Extended)
	assert.Equal(t, 5, res.GlobalStreak.CurrentStreak)
	assert.False(t, res.HabitStreak.Extended)
	assert.Equal(t, 5, res.HabitStreak.CurrentStreak)
	assert.Equal(t, int64(10), res.XP.FinalXP)

	fresh := reloadProfile(t, db, "user-1")
	assert.Equal(t, 5, fresh.CurrentStreak)
	assert.Equal(t, "2026-03-10", *fresh.LastActiveDate)

	var h models.Habit
	require.NoError(t, db.First(&h, "id = ?", habit.ID).Error)
	assert.Equal(t, 5, h.CurrentStreak)
	assert.Equal(t, "2026-03-10", *h.LastCompletedDate)
}

func TestCompleteHabitRejectsFutureDate(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	habit := seedHabit(t, db, "user-1", 10)

	_, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-11")
	assert.True(t, IsInvalidState(err))

	var count int64
	require.NoError(t, db.Model(&models.HabitCompletion{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCompleteBlockRejectsFutureDate(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-10")
	block := seedBlock(t, db, "user-1", "2026-03-11", 20)

	_, err := svc.CompleteBlock("user-1", block.ID, "2026-03-11")
	assert.True(t, IsInvalidState(err))
}

func TestBackfilledCompletionBooksLedgerOnActionDay(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-16") // Monday of the next week
	habit := seedHabit(t, db, "user-1", 10)

	_, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-13")
	require.NoError(t, err)

	var events []models.XPEvent
	require.NoError(t, db.Where("external_user_id = ?", "user-1").Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-03-13", events[0].Date)

	// the award lands in the completed day's week, not the clock's
	total, err := svc.XP.WeeklyXP(db, "user-1", "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	// and its reversal cancels inside the same window
	require.NoError(t, svc.UncompleteHabit("user-1", habit.ID, "2026-03-13"))
	total, err = svc.XP.WeeklyXP(db, "user-1", "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRecomputeAfterReversalBridgesFrozenDay(t *testing.T) {
	db, svc := newTestStack(t, "2026-03-12")
	habit := seedHabit(t, db, "user-1", 10)

	_, err := svc.CompleteHabit("user-1", habit.ID, "2026-03-08")
	require.NoError(t, err)
	_, err = svc.UseStreakFreeze("user-1", "2026-03-09")
	require.NoError(t, err)
	_, err = svc.CompleteHabit("user-1", habit.ID, "2026-03-10")
	require.NoError(t, err)

	prof := reloadProfile(t, db, "user-1")
	require.Equal(t, 3, prof.CurrentStreak)

	// removing the last completion recomputes through the frozen day
	require.NoError(t, svc.UncompleteHabit("user-1", habit.ID, "2026-03-10"))

	prof = reloadProfile(t, db, "user-1")
	assert.Equal(t, 2, prof.CurrentStreak)
	require.NotNil(t, prof.LastActiveDate)
	assert.Equal(t, "2026-03-09", *prof.LastActiveDate)
}
