package services

import (
	"math"
)

// Level curve: level L requires cumulative XP of 50·L·(L−1), so the level for a
// given total is the closed-form inverse floor(0.5 + sqrt(0.25 + xp/50)).
// This is the single canonical formula — every write path goes through it.

// LevelForXP maps a non-negative XP total to a level. LevelForXP(0) == 1.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Floor(0.5 + math.Sqrt(0.25+float64(xp)/50.0)))
	if level < 1 {
		return 1
	}
	return level
}

// XPForLevel returns the cumulative XP required to reach a level (inverse of LevelForXP)
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(50 * level * (level - 1))
}

// XPToNextLevel returns the XP remaining from total to the next level boundary
func XPToNextLevel(xp int64) int64 {
	next := XPForLevel(LevelForXP(xp) + 1)
	remaining := next - xp
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// LevelProgressPct returns progress through the current level (0.0–100.0)
func LevelProgressPct(xp int64) float64 {
	level := LevelForXP(xp)
	floor := XPForLevel(level)
	ceil := XPForLevel(level + 1)
	span := ceil - floor
	if span <= 0 {
		return 100.0
	}
	pct := float64(xp-floor) / float64(span) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
