package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"studyquest-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Streak multiplier bands applied to base XP (floor rounding):
// +5% at a 3+ day streak, +10% at 7+, +15% at 14+.
func StreakBonusPct(streak int) int {
	switch {
	case streak >= 14:
		return 15
	case streak >= 7:
		return 10
	case streak >= 3:
		return 5
	default:
		return 0
	}
}

// XPResult is the structured breakdown returned from every award so the route
// layer can show base XP and bonuses as separate numbers.
type XPResult struct {
	BaseXP    int64 `json:"base_xp"`
	BonusXP   int64 `json:"bonus_xp"`
	BonusPct  int   `json:"bonus_pct"`
	FinalXP   int64 `json:"final_xp"`
	NewTotal  int64 `json:"new_total"`
	Level     int   `json:"level"`
	LeveledUp bool  `json:"leveled_up"`
}

type XPService struct {
	DB    *gorm.DB
	Clock Clock
}

func NewXPService(db *gorm.DB, clock Clock) *XPService {
	return &XPService{DB: db, Clock: clock}
}

// EnsureProfile ensures a UserProfile row exists (idempotent)
func (s *XPService) EnsureProfile(externalUserID string) (*models.UserProfile, error) {
	return s.ensureProfileTx(s.DB, externalUserID)
}

func (s *XPService) ensureProfileTx(tx *gorm.DB, externalUserID string) (*models.UserProfile, error) {
	var prof models.UserProfile
	err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prof = models.UserProfile{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Level:          1,
			StreakFreezes:  3,
		}
		if err := tx.Create(&prof).Error; err != nil {
			return nil, err
		}
		return &prof, nil
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// Award applies the streak multiplier to baseXP, bumps the user's total inside
// the caller's transaction, recomputes level, and appends a ledger row dated
// day (the action's calendar day, so backfilled completions book into the
// right week). The profile is re-read here — never passed in — so concurrent
// requests can't compute from stale counters.
func (s *XPService) Award(tx *gorm.DB, externalUserID string, baseXP int64, source, day string) (*XPResult, error) {
	if baseXP <= 0 {
		return nil, fmt.Errorf("%w: xp amount must be positive, got %d", ErrInvalidState, baseXP)
	}

	prof, err := s.ensureProfileTx(tx, externalUserID)
	if err != nil {
		return nil, err
	}

	pct := StreakBonusPct(prof.CurrentStreak)
	bonus := baseXP * int64(pct) / 100 // integer division = floor for positive XP
	return s.apply(tx, prof, baseXP, bonus, pct, source, day)
}

// Grant adds a flat amount with no streak multiplier. Used for challenge,
// achievement, sweep and weekly-bonus XP so those stay attributable on their own.
func (s *XPService) Grant(tx *gorm.DB, externalUserID string, amount int64, source, day string) (*XPResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: xp amount must be positive, got %d", ErrInvalidState, amount)
	}

	prof, err := s.ensureProfileTx(tx, externalUserID)
	if err != nil {
		return nil, err
	}
	return s.apply(tx, prof, amount, 0, 0, source, day)
}

func (s *XPService) apply(tx *gorm.DB, prof *models.UserProfile, base, bonus int64, pct int, source, day string) (*XPResult, error) {
	final := base + bonus
	oldLevel := prof.Level

	prof.XPTotal += final
	prof.Level = LevelForXP(prof.XPTotal)
	if prof.Level > oldLevel {
		now := time.Now()
		prof.LastLevelUpAt = &now
	}

	if err := tx.Save(prof).Error; err != nil {
		return nil, err
	}

	event := models.XPEvent{
		ID:             uuid.NewString(),
		ExternalUserID: prof.ExternalUserID,
		Amount:         final,
		Source:         source,
		Date:           day,
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, err
	}

	if prof.Level > oldLevel {
		reward := models.Reward{
			ID:             uuid.NewString(),
			ExternalUserID: prof.ExternalUserID,
			Category:       models.RewardCategoryMilestone,
			Title:          fmt.Sprintf("Level %d reached", prof.Level),
			Emoji:          "🆙",
			SourceCode:     fmt.Sprintf("level_%d", prof.Level),
		}
		if err := tx.Create(&reward).Error; err != nil {
			return nil, err
		}
	}

	log.Printf("🎮 XP Awarded: %s → +%d (base=%d bonus=%d), total=%d, Lvl=%d (source: %s)",
		prof.ExternalUserID, final, base, bonus, prof.XPTotal, prof.Level, source)

	return &XPResult{
		BaseXP:    base,
		BonusXP:   bonus,
		BonusPct:  pct,
		FinalXP:   final,
		NewTotal:  prof.XPTotal,
		Level:     prof.Level,
		LeveledUp: prof.Level > oldLevel,
	}, nil
}

// Reverse subtracts a previously stored xpAwarded snapshot (un-completion path).
// Floors the total at zero and recomputes level from the canonical formula.
// The ledger row is dated day (the reversed completion's day), so the award and
// its reversal always land in the same weekly window.
func (s *XPService) Reverse(tx *gorm.DB, externalUserID string, xpAwarded int64, source, day string) (*models.UserProfile, error) {
	if xpAwarded < 0 {
		return nil, fmt.Errorf("%w: reversal amount must be non-negative, got %d", ErrInvalidState, xpAwarded)
	}

	prof, err := s.ensureProfileTx(tx, externalUserID)
	if err != nil {
		return nil, err
	}

	prof.XPTotal -= xpAwarded
	if prof.XPTotal < 0 {
		prof.XPTotal = 0
	}
	prof.Level = LevelForXP(prof.XPTotal)

	if err := tx.Save(prof).Error; err != nil {
		return nil, err
	}

	if xpAwarded > 0 {
		event := models.XPEvent{
			ID:             uuid.NewString(),
			ExternalUserID: prof.ExternalUserID,
			Amount:         -xpAwarded,
			Source:         source,
			Date:           day,
		}
		if err := tx.Create(&event).Error; err != nil {
			return nil, err
		}
	}

	log.Printf("↩️ XP Reversed: %s → -%d, total=%d, Lvl=%d (source: %s)",
		prof.ExternalUserID, xpAwarded, prof.XPTotal, prof.Level, source)

	return prof, nil
}

// WeeklyXP sums the ledger for a user over the week starting at weekStart
func (s *XPService) WeeklyXP(tx *gorm.DB, externalUserID, weekStart string) (int64, error) {
	var total int64
	err := tx.Model(&models.XPEvent{}).
		Where("external_user_id = ? AND date >= ? AND date < ?", externalUserID, weekStart, AddDays(weekStart, 7)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
