package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForXP(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(-10))
	assert.Equal(t, 1, LevelForXP(99))
	assert.Equal(t, 2, LevelForXP(100))
	assert.Equal(t, 2, LevelForXP(299))
	assert.Equal(t, 3, LevelForXP(300))
}

func TestLevelBoundariesMatchInverse(t *testing.T) {
	for level := 2; level <= 60; level++ {
		threshold := XPForLevel(level)
		assert.Equal(t, level, LevelForXP(threshold), "at threshold for level %d", level)
		assert.Equal(t, level-1, LevelForXP(threshold-1), "just below threshold for level %d", level)
	}
}

func TestLevelForXPMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := int64(0); xp <= 20_000; xp += 7 {
		level := LevelForXP(xp)
		assert.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		prev = level
	}
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, int64(100), XPToNextLevel(0))
	assert.Equal(t, int64(1), XPToNextLevel(99))
	assert.Equal(t, int64(200), XPToNextLevel(100)) // level 2 spans 100..300
}

func TestLevelProgressPct(t *testing.T) {
	assert.Equal(t, 0.0, LevelProgressPct(0))
	assert.Equal(t, 0.0, LevelProgressPct(100))
	assert.InDelta(t, 50.0, LevelProgressPct(200), 0.001) // halfway through level 2
}
