package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestStreakRollFirstEver(t *testing.T) {
	s := StreakState{}
	extended := s.Roll("2026-03-10")

	assert.True(t, extended)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 1, s.Longest)
	require.NotNil(t, s.LastDate)
	assert.Equal(t, "2026-03-10", *s.LastDate)
}

func TestStreakRollConsecutiveDay(t *testing.T) {
	s := StreakState{Current: 3, Longest: 5, LastDate: strPtr("2026-03-10")}
	extended := s.Roll("2026-03-11")

	assert.True(t, extended)
	assert.Equal(t, 4, s.Current)
	assert.Equal(t, 5, s.Longest)
}

func TestStreakRollSameDayIsNoOp(t *testing.T) {
	s := StreakState{Current: 3, Longest: 3, LastDate: strPtr("2026-03-10")}
	extended := s.Roll("2026-03-10")

	assert.False(t, extended)
	assert.Equal(t, 3, s.Current)
}

func TestStreakRollIgnoresBackdatedDay(t *testing.T) {
	s := StreakState{Current: 5, Longest: 6, LastDate: strPtr("2026-03-10")}
	extended := s.Roll("2026-03-09")

	assert.False(t, extended)
	assert.Equal(t, 5, s.Current)
	assert.Equal(t, 6, s.Longest)
	assert.Equal(t, "2026-03-10", *s.LastDate, "last date never rewinds")
}

func TestStreakRollGapResets(t *testing.T) {
	s := StreakState{Current: 9, Longest: 9, LastDate: strPtr("2026-03-10")}
	extended := s.Roll("2026-03-13")

	assert.True(t, extended)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 9, s.Longest, "longest survives the reset")
}

func TestStreakRollUpdatesLongest(t *testing.T) {
	s := StreakState{Current: 5, Longest: 5, LastDate: strPtr("2026-03-10")}
	s.Roll("2026-03-11")

	assert.Equal(t, 6, s.Current)
	assert.Equal(t, 6, s.Longest)
}

func TestRecomputeStreakEmpty(t *testing.T) {
	streak, last := RecomputeStreak(nil)
	assert.Equal(t, 0, streak)
	assert.Nil(t, last)
}

func TestRecomputeStreakConsecutiveRun(t *testing.T) {
	streak, last := RecomputeStreak([]string{"2026-03-08", "2026-03-09", "2026-03-10"})
	assert.Equal(t, 3, streak)
	require.NotNil(t, last)
	assert.Equal(t, "2026-03-10", *last)
}

func TestRecomputeStreakStopsAtGap(t *testing.T) {
	streak, last := RecomputeStreak([]string{"2026-03-05", "2026-03-06", "2026-03-09", "2026-03-10"})
	assert.Equal(t, 2, streak, "only the trailing run counts")
	assert.Equal(t, "2026-03-10", *last)
}

func TestRecomputeStreakDedupesDays(t *testing.T) {
	streak, _ := RecomputeStreak([]string{"2026-03-09", "2026-03-09", "2026-03-10", "2026-03-10"})
	assert.Equal(t, 2, streak)
}

func TestRecomputeStreakUnsortedInput(t *testing.T) {
	streak, last := RecomputeStreak([]string{"2026-03-10", "2026-03-08", "2026-03-09"})
	assert.Equal(t, 3, streak)
	assert.Equal(t, "2026-03-10", *last)
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, "2026-03-09", WeekStart("2026-03-11")) // Wednesday → Monday
	assert.Equal(t, "2026-03-09", WeekStart("2026-03-09")) // Monday fixed point
	assert.Equal(t, "2026-03-09", WeekStart("2026-03-15")) // Sunday belongs to the prior Monday
}

func TestNextMonday(t *testing.T) {
	assert.Equal(t, "2026-03-16", NextMonday("2026-03-11"))
	assert.Equal(t, "2026-03-16", NextMonday("2026-03-09"))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween("2026-03-10", "2026-03-10"))
	assert.Equal(t, 2, DaysBetween("2026-03-10", "2026-03-12"))
	assert.Equal(t, -2, DaysBetween("2026-03-12", "2026-03-10"))
}

func TestAddDaysCrossesMonth(t *testing.T) {
	assert.Equal(t, "2026-03-02", AddDays("2026-02-28", 2))
	assert.Equal(t, "2026-02-28", Yesterday("2026-03-01"))
}
