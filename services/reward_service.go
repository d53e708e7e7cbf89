package services

import (
	"errors"

	"studyquest-backend/models"

	"gorm.io/gorm"
)

// RewardService reads the notification feed the engines write into.
// Rows are created by the achievement/challenge/rollover services; this
// service only lists and marks them viewed.
type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// ListRewards returns a user's reward feed, newest first
func (s *RewardService) ListRewards(externalUserID string, unviewedOnly bool, limit int) ([]models.Reward, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	q := s.DB.Where("external_user_id = ?", externalUserID)
	if unviewedOnly {
		q = q.Where("viewed = ?", false)
	}

	var rewards []models.Reward
	err := q.Order("created_at DESC").Limit(limit).Find(&rewards).Error
	return rewards, err
}

// MarkViewed flags a single reward as seen
func (s *RewardService) MarkViewed(externalUserID, rewardID string) error {
	var reward models.Reward
	err := s.DB.Where("id = ? AND external_user_id = ?", rewardID, externalUserID).First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.DB.Model(&reward).Update("viewed", true).Error
}

// MarkAllViewed flags every unviewed reward for the user
func (s *RewardService) MarkAllViewed(externalUserID string) (int64, error) {
	res := s.DB.Model(&models.Reward{}).
		Where("external_user_id = ? AND viewed = ?", externalUserID, false).
		Update("viewed", true)
	return res.RowsAffected, res.Error
}
