package services

import (
	"testing"

	"studyquest-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRolloverStack(t *testing.T, day string) *RolloverService {
	t.Helper()
	db := newTestDB(t)
	clock := FixedClock(day)
	xp := NewXPService(db, clock)
	ch := NewChallengeService(db, xp, clock)
	gr := NewGroupService(db, xp)
	return NewRolloverService(db, ch, gr, xp, clock)
}

func TestRunDailyRollover(t *testing.T) {
	ro := newRolloverStack(t, "2026-03-10")

	seedProfile(t, ro.DB, "user-1", 0)
	seedProfile(t, ro.DB, "user-2", 0)

	// yesterday's board, due for archiving
	_, err := ro.Challenges.EnsureDaily("user-1", "2026-03-09")
	require.NoError(t, err)

	errs := ro.RunDailyRollover("2026-03-10")
	assert.Empty(t, errs)

	var open, archived int64
	require.NoError(t, ro.DB.Model(&models.ChallengeInstance{}).Where("archived = ?", false).Count(&open).Error)
	require.NoError(t, ro.DB.Model(&models.ChallengeInstance{}).Where("archived = ?", true).Count(&archived).Error)
	assert.Equal(t, int64(3), archived)
	// 2 users × (3 dailies + 1 weekly)
	assert.Equal(t, int64(8), open)

	// rerun changes nothing
	errs = ro.RunDailyRollover("2026-03-10")
	assert.Empty(t, errs)
	var total int64
	require.NoError(t, ro.DB.Model(&models.ChallengeInstance{}).Count(&total).Error)
	assert.Equal(t, int64(11), total)
}

func TestRunWeeklyResetWritesStats(t *testing.T) {
	ro := newRolloverStack(t, "2026-03-16") // Monday after the closed week

	seedProfile(t, ro.DB, "user-1", 0)
	// ledger row inside the closed week
	_, err := ro.XP.Grant(ro.DB, "user-1", 80, "challenge_x", "2026-03-11")
	require.NoError(t, err)

	errs := ro.RunWeeklyReset("2026-03-09")
	assert.Empty(t, errs)

	var stats models.WeeklyStats
	require.NoError(t, ro.DB.Where("external_user_id = ? AND week_start = ?", "user-1", "2026-03-09").First(&stats).Error)
	assert.Equal(t, int64(80), stats.XPEarned)

	// idempotent: a second run leaves one row
	errs = ro.RunWeeklyReset("2026-03-09")
	assert.Empty(t, errs)
	var count int64
	require.NoError(t, ro.DB.Model(&models.WeeklyStats{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunWeeklyResetAwardsGroupBonuses(t *testing.T) {
	ro := newRolloverStack(t, "2026-03-16")

	group, err := ro.Groups.CreateGroup("alice", "Weekly Winners")
	require.NoError(t, err)
	_, err = ro.Groups.JoinByInviteCode("bob", group.InviteCode)
	require.NoError(t, err)

	for user, amount := range map[string]int64{"alice": 200, "bob": 90} {
		_, err := ro.XP.Grant(ro.DB, user, amount, "challenge_x", "2026-03-11")
		require.NoError(t, err)
	}

	errs := ro.RunWeeklyReset("2026-03-09")
	assert.Empty(t, errs)

	var aliceStats models.WeeklyStats
	require.NoError(t, ro.DB.Where("external_user_id = ? AND week_start = ?", "alice", "2026-03-09").First(&aliceStats).Error)
	assert.Equal(t, 1, aliceStats.GroupRank)
	assert.Equal(t, int64(300), aliceStats.BonusXP)

	var bobStats models.WeeklyStats
	require.NoError(t, ro.DB.Where("external_user_id = ? AND week_start = ?", "bob", "2026-03-09").First(&bobStats).Error)
	assert.Equal(t, 2, bobStats.GroupRank)
	assert.Equal(t, int64(200), bobStats.BonusXP)

	// bonus lands on the profile and the reward feed
	alice := reloadProfile(t, ro.DB, "alice")
	assert.Equal(t, int64(500), alice.XPTotal, "200 earned + 300 bonus")

	var rewards []models.Reward
	require.NoError(t, ro.DB.Where("external_user_id = ? AND category = ?", "alice", models.RewardCategoryWeeklyBonus).Find(&rewards).Error)
	require.Len(t, rewards, 1)
	assert.Equal(t, group.Slug, rewards[0].SourceCode)

	// a second run never double-grants
	errs = ro.RunWeeklyReset("2026-03-09")
	assert.Empty(t, errs)
	alice = reloadProfile(t, ro.DB, "alice")
	assert.Equal(t, int64(500), alice.XPTotal)
}
