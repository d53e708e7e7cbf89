package services

import (
	"testing"

	"studyquest-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory sqlite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps the in-memory database alive and isolated
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserProfile{},
		&models.XPEvent{},
		&models.StudentUser{},
		&models.Habit{},
		&models.HabitCompletion{},
		&models.Task{},
		&models.ScheduleBlock{},
		&models.BlockCompletion{},
		&models.FocusSession{},
		&models.AchievementProgress{},
		&models.ChallengeInstance{},
		&models.SweepBonus{},
		&models.WeeklyStats{},
		&models.StudyGroup{},
		&models.GroupMember{},
		&models.Reward{},
	))
	return db
}

// newTestStack wires the full service graph against one test DB with a pinned day
func newTestStack(t *testing.T, day string) (*gorm.DB, *CompletionService) {
	t.Helper()

	db := newTestDB(t)
	clock := FixedClock(day)
	xp := NewXPService(db, clock)
	ach := NewAchievementService(db, xp)
	ch := NewChallengeService(db, xp, clock)
	return db, NewCompletionService(db, xp, ach, ch, clock)
}

func seedProfile(t *testing.T, db *gorm.DB, userID string, streak int) *models.UserProfile {
	t.Helper()

	prof := models.UserProfile{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Level:          1,
		CurrentStreak:  streak,
		LongestStreak:  streak,
	}
	require.NoError(t, db.Create(&prof).Error)
	return &prof
}

func seedHabit(t *testing.T, db *gorm.DB, userID string, xpValue int64) *models.Habit {
	t.Helper()

	habit := models.Habit{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Name:           "Morning review",
		XPValue:        xpValue,
	}
	require.NoError(t, db.Create(&habit).Error)
	return &habit
}

func seedTask(t *testing.T, db *gorm.DB, userID string, priority models.TaskPriority) *models.Task {
	t.Helper()

	task := models.Task{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Title:          "Finish problem set",
		Priority:       priority,
	}
	require.NoError(t, db.Create(&task).Error)
	return &task
}

func seedBlock(t *testing.T, db *gorm.DB, userID, date string, xpValue int64) *models.ScheduleBlock {
	t.Helper()

	block := models.ScheduleBlock{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Title:          "Math revision",
		Date:           date,
		StartMinute:    14 * 60,
		EndMinute:      15 * 60,
		XPValue:        xpValue,
	}
	require.NoError(t, db.Create(&block).Error)
	return &block
}

func reloadProfile(t *testing.T, db *gorm.DB, userID string) *models.UserProfile {
	t.Helper()

	var prof models.UserProfile
	require.NoError(t, db.Where("external_user_id = ?", userID).First(&prof).Error)
	return &prof
}
