package services

import (
	"testing"

	"studyquest-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAchievementStack(t *testing.T) (*AchievementService, *XPService) {
	t.Helper()
	db := newTestDB(t)
	xp := NewXPService(db, FixedClock("2026-03-10"))
	return NewAchievementService(db, xp), xp
}

func TestEvaluateBelowThresholdTracksProgress(t *testing.T) {
	ach, _ := newAchievementStack(t)

	unlocks, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 4, "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, unlocks)

	rows, err := ach.ListProgress("user-1")
	require.NoError(t, err)
	require.Len(t, rows, 1) // only TASK_TITAN tracks tasks_completed
	assert.Equal(t, "TASK_TITAN", rows[0].Code)
	assert.Equal(t, models.TierNone, rows[0].CurrentTier)
	assert.Equal(t, int64(4), rows[0].ProgressValue)
}

func TestEvaluateUnlocksBronze(t *testing.T) {
	ach, xp := newAchievementStack(t)

	unlocks, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 10, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "TASK_TITAN", unlocks[0].Code)
	assert.Equal(t, "bronze", unlocks[0].Tier)
	assert.Equal(t, int64(50), unlocks[0].XPReward)

	prof, err := xp.EnsureProfile("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), prof.XPTotal)

	rows, err := ach.ListProgress("user-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.TierBronze, rows[0].CurrentTier)
	assert.NotNil(t, rows[0].BronzeUnlockedAt)
	assert.Nil(t, rows[0].SilverUnlockedAt)

	var rewards []models.Reward
	require.NoError(t, ach.DB.Where("external_user_id = ?", "user-1").Find(&rewards).Error)
	require.Len(t, rewards, 1)
	assert.Equal(t, models.RewardCategoryAchievement, rewards[0].Category)
	assert.Equal(t, "TASK_TITAN", rewards[0].SourceCode)
	assert.Contains(t, rewards[0].Title, "Bronze")
}

func TestEvaluateJumpUnlocksEveryCrossedTier(t *testing.T) {
	ach, xp := newAchievementStack(t)

	// 150 clears bronze (10) and silver (100) in one call
	unlocks, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 150, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, unlocks, 2)
	assert.Equal(t, "bronze", unlocks[0].Tier)
	assert.Equal(t, "silver", unlocks[1].Tier)

	prof, err := xp.EnsureProfile("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), prof.XPTotal) // 50 + 200
}

func TestEvaluateIsIdempotentPerTier(t *testing.T) {
	ach, xp := newAchievementStack(t)

	_, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 10, "2026-03-10")
	require.NoError(t, err)

	// same value again: nothing new, no double XP
	unlocks, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 10, "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, unlocks)

	// higher value still under silver: nothing new
	unlocks, err = ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 42, "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, unlocks)

	prof, err := xp.EnsureProfile("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), prof.XPTotal)
}

func TestEvaluateNeverRestampsUnlockTime(t *testing.T) {
	ach, _ := newAchievementStack(t)

	_, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 10, "2026-03-10")
	require.NoError(t, err)

	rows, err := ach.ListProgress("user-1")
	require.NoError(t, err)
	stamped := *rows[0].BronzeUnlockedAt

	_, err = ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 100, "2026-03-10")
	require.NoError(t, err)

	rows, err = ach.ListProgress("user-1")
	require.NoError(t, err)
	assert.Equal(t, stamped, *rows[0].BronzeUnlockedAt)
	assert.NotNil(t, rows[0].SilverUnlockedAt)
}

func TestEvaluateTouchesOnlyMatchingMetric(t *testing.T) {
	ach, _ := newAchievementStack(t)

	_, err := ach.Evaluate(ach.DB, "user-1", models.MetricFocusMinutes, 400, "2026-03-10")
	require.NoError(t, err)

	rows, err := ach.ListProgress("user-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FOCUS_MASTER", rows[0].Code)
	assert.Equal(t, models.TierBronze, rows[0].CurrentTier)
}

func TestResetProgressClearsEverything(t *testing.T) {
	ach, _ := newAchievementStack(t)

	_, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 150, "2026-03-10")
	require.NoError(t, err)

	require.NoError(t, ach.ResetProgress("user-1"))

	rows, err := ach.ListProgress("user-1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	// after a reset the tiers can be earned again
	unlocks, err := ach.Evaluate(ach.DB, "user-1", models.MetricTasksCompleted, 10, "2026-03-10")
	require.NoError(t, err)
	assert.Len(t, unlocks, 1)
}

func TestHighestTier(t *testing.T) {
	def, ok := models.AchievementDefByCode("STREAK_KEEPER")
	require.True(t, ok)

	assert.Equal(t, models.TierNone, def.HighestTier(6))
	assert.Equal(t, models.TierBronze, def.HighestTier(7))
	assert.Equal(t, models.TierSilver, def.HighestTier(99))
	assert.Equal(t, models.TierGold, def.HighestTier(100))
}
