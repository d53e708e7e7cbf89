package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"studyquest-backend/models"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type AchievementService struct {
	DB *gorm.DB
	XP *XPService
}

func NewAchievementService(db *gorm.DB, xp *XPService) *AchievementService {
	return &AchievementService{DB: db, XP: xp}
}

// TierUnlock reports one newly crossed tier
type TierUnlock struct {
	Code     string                 `json:"code"`
	Name     string                 `json:"name"`
	Tier     string                 `json:"tier"`
	XPReward int64                  `json:"xp_reward"`
	Metric   models.Metric          `json:"metric"`
	TierNum  models.AchievementTier `json:"-"`
}

// Evaluate checks every achievement tracking metric against value and unlocks
// any newly crossed tiers. Only upward transitions award XP and stamp
// timestamps; already-unlocked tiers are never re-awarded, so re-running with
// the same or a higher value is a no-op for them. A counter that jumps past
// several thresholds at once unlocks all of them in this one call.
func (s *AchievementService) Evaluate(tx *gorm.DB, externalUserID string, metric models.Metric, value int64, day string) ([]TierUnlock, error) {
	var unlocks []TierUnlock

	for _, def := range models.AchievementDefs {
		if def.Metric != metric {
			continue
		}

		prog, err := s.ensureProgress(tx, externalUserID, def.Code)
		if err != nil {
			return nil, err
		}

		if value > prog.ProgressValue {
			prog.ProgressValue = value
		}

		target := def.HighestTier(value)
		if target <= prog.CurrentTier {
			// progress value may still have moved; persist and move on
			if err := tx.Save(prog).Error; err != nil {
				return nil, err
			}
			continue
		}

		now := time.Now()
		for tier := prog.CurrentTier + 1; tier <= target; tier++ {
			if prog.UnlockedAt(tier) != nil {
				return nil, fmt.Errorf("%w: tier %s of %s already stamped", ErrInvalidState, tier, def.Code)
			}
			prog.SetUnlockedAt(tier, now)

			if _, err := s.XP.Grant(tx, externalUserID, def.TierXP(tier), "achievement_"+def.Code, day); err != nil {
				return nil, err
			}

			reward := models.Reward{
				ID:             uuid.NewString(),
				ExternalUserID: externalUserID,
				Category:       models.RewardCategoryAchievement,
				Title:          fmt.Sprintf("%s — %s", def.Name, tierTitle(tier)),
				Emoji:          def.Icon,
				XPAmount:       def.TierXP(tier),
				SourceCode:     def.Code,
			}
			if err := tx.Create(&reward).Error; err != nil {
				return nil, err
			}

			unlocks = append(unlocks, TierUnlock{
				Code:     def.Code,
				Name:     def.Name,
				Tier:     tier.String(),
				XPReward: def.TierXP(tier),
				Metric:   def.Metric,
				TierNum:  tier,
			})
			log.Printf("🎖️ Achievement unlocked: %s (%s) → %s", def.Name, tier, externalUserID)
		}
		prog.CurrentTier = target

		if err := tx.Save(prog).Error; err != nil {
			return nil, err
		}
	}

	return unlocks, nil
}

func (s *AchievementService) ensureProgress(tx *gorm.DB, externalUserID, code string) (*models.AchievementProgress, error) {
	var prog models.AchievementProgress
	err := tx.Where("external_user_id = ? AND code = ?", externalUserID, code).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.AchievementProgress{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Code:           code,
		}
		if err := tx.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// ListProgress returns all achievement rows for a user alongside their definitions
func (s *AchievementService) ListProgress(externalUserID string) ([]models.AchievementProgress, error) {
	var rows []models.AchievementProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).Order("code ASC").Find(&rows).Error
	return rows, err
}

// ResetProgress clears all learned achievement data for a user (explicit
// "reset learned data" operation; the only path that clears unlock timestamps).
func (s *AchievementService) ResetProgress(externalUserID string) error {
	// hard delete: a soft-deleted row would still hold the (user, code) unique
	// index and block re-earning
	return s.DB.Unscoped().Where("external_user_id = ?", externalUserID).
		Delete(&models.AchievementProgress{}).Error
}

var tierCaser = cases.Title(language.English)

func tierTitle(tier models.AchievementTier) string {
	return tierCaser.String(tier.String())
}
