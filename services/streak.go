package services

import (
	"sort"
)

// Streak transition machine. Works on calendar-date strings so the same code
// drives the global profile streak and each habit's independent streak.

// StreakState is the streak-bearing slice of a profile or habit row
type StreakState struct {
	Current  int
	Longest  int
	LastDate *string // nil = never active
}

// Roll applies one completion on day to the state.
// Returns false when the day was already counted (same-day no-op).
func (s *StreakState) Roll(day string) bool {
	if s.LastDate != nil && *s.LastDate == day {
		return false // already counted today
	}
	if s.LastDate != nil && day < *s.LastDate {
		// backfilled action: the streak has already moved past this day,
		// never rewind it (lexical compare is safe on YYYY-MM-DD)
		return false
	}

	if s.LastDate != nil && *s.LastDate == Yesterday(day) {
		s.Current++
	} else {
		// gap or first-ever action
		s.Current = 1
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	d := day
	s.LastDate = &d
	return true
}

// RecomputeStreak rebuilds a streak from the remaining completion dates after a
// reversal, scanning backward from the most recent date and counting consecutive
// calendar days. Returns (streak, lastDate); (0, nil) when no dates remain.
// O(streak length) — fine for habit-scale streaks.
func RecomputeStreak(dates []string) (int, *string) {
	if len(dates) == 0 {
		return 0, nil
	}

	sorted := make([]string, len(dates))
	copy(sorted, dates)
	sort.Strings(sorted)

	// dedupe (multiple actions on one day count once)
	uniq := sorted[:0]
	for i, d := range sorted {
		if i == 0 || sorted[i-1] != d {
			uniq = append(uniq, d)
		}
	}

	last := uniq[len(uniq)-1]
	streak := 1
	for i := len(uniq) - 2; i >= 0; i-- {
		if uniq[i] != Yesterday(uniq[i+1]) {
			break
		}
		streak++
	}
	return streak, &last
}
