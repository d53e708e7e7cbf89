package services

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"time"

	"studyquest-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeService struct {
	DB    *gorm.DB
	XP    *XPService
	Clock Clock
}

func NewChallengeService(db *gorm.DB, xp *XPService, clock Clock) *ChallengeService {
	return &ChallengeService{DB: db, XP: xp, Clock: clock}
}

// ChallengeCompletion reports one challenge finished by a progress update
type ChallengeCompletion struct {
	InstanceID   string `json:"instance_id"`
	TemplateCode string `json:"template_code"`
	Title        string `json:"title"`
	XPReward     int64  `json:"xp_reward"`
}

// ChallengeResult bundles what a single progress update produced
type ChallengeResult struct {
	Completed    []ChallengeCompletion `json:"completed"`
	ChallengeXP  int64                 `json:"challenge_xp"`
	SweepBonusXP int64                 `json:"sweep_bonus_xp"` // 0 unless all dailies closed out
}

// EnsureDaily guarantees exactly 3 daily instances exist for (user, day).
// Selection is a deterministic shuffle seeded from user+day, so re-invocation
// (rollover retries, first request of the day racing the scheduler) picks the
// same templates and the unique index swallows duplicates.
func (s *ChallengeService) EnsureDaily(externalUserID, day string) ([]models.ChallengeInstance, error) {
	pool := models.ChallengeTemplatesByCadence(models.CadenceDaily)
	picked := pickTemplates(pool, models.DailyChallengeCount, externalUserID+day)
	return s.ensureInstances(externalUserID, day, picked)
}

// EnsureWeekly guarantees exactly 1 weekly instance for (user, week)
func (s *ChallengeService) EnsureWeekly(externalUserID, weekStart string) ([]models.ChallengeInstance, error) {
	pool := models.ChallengeTemplatesByCadence(models.CadenceWeekly)
	picked := pickTemplates(pool, 1, externalUserID+weekStart)
	return s.ensureInstances(externalUserID, weekStart, picked)
}

// ensureInstances creates missing instances (check-then-create-if-absent per
// template per window) and returns all instances for the window.
func (s *ChallengeService) ensureInstances(externalUserID, windowStart string, picked []models.ChallengeTemplate) ([]models.ChallengeInstance, error) {
	for _, tmpl := range picked {
		var count int64
		if err := s.DB.Model(&models.ChallengeInstance{}).
			Where("external_user_id = ? AND template_code = ? AND window_start = ?",
				externalUserID, tmpl.Code, windowStart).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		inst := models.ChallengeInstance{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			TemplateCode:   tmpl.Code,
			WindowStart:    windowStart,
			Cadence:        tmpl.Cadence,
			Metric:         tmpl.Metric,
			Target:         tmpl.Target,
			XPReward:       tmpl.XPReward,
		}
		if err := s.DB.Create(&inst).Error; err != nil {
			return nil, err
		}
	}

	var instances []models.ChallengeInstance
	err := s.DB.Where("external_user_id = ? AND window_start = ?", externalUserID, windowStart).
		Order("template_code ASC").
		Find(&instances).Error
	return instances, err
}

// RecordProgress bumps every open instance tracking metric in the current
// daily and weekly windows. An instance crossing its target is marked
// completed exactly once and its XP granted exactly once; later progress
// updates in the same window skip it. Closing out the last of the day's 3
// dailies triggers the sweep bonus (idempotent via insert-if-absent).
func (s *ChallengeService) RecordProgress(tx *gorm.DB, externalUserID string, metric models.Metric, delta int64, day string) (*ChallengeResult, error) {
	if delta <= 0 {
		return &ChallengeResult{}, nil
	}

	week := WeekStart(day)
	var open []models.ChallengeInstance
	if err := tx.Where(
		"external_user_id = ? AND metric = ? AND completed = ? AND archived = ? AND ((cadence = ? AND window_start = ?) OR (cadence = ? AND window_start = ?))",
		externalUserID, metric, false, false,
		models.CadenceDaily, day, models.CadenceWeekly, week,
	).Find(&open).Error; err != nil {
		return nil, err
	}

	result := &ChallengeResult{}
	for i := range open {
		inst := &open[i]
		inst.Progress += delta
		if inst.Progress >= inst.Target {
			now := time.Now()
			inst.Completed = true
			inst.CompletedAt = &now
		}
		if err := tx.Save(inst).Error; err != nil {
			return nil, err
		}

		if !inst.Completed {
			continue
		}

		tmpl, ok := models.ChallengeTemplateByCode(inst.TemplateCode)
		if !ok {
			return nil, fmt.Errorf("%w: challenge template %s", ErrNotFound, inst.TemplateCode)
		}

		if _, err := s.XP.Grant(tx, externalUserID, inst.XPReward, "challenge_"+inst.TemplateCode, day); err != nil {
			return nil, err
		}

		reward := models.Reward{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Category:       models.RewardCategoryChallenge,
			Title:          tmpl.Title,
			Emoji:          "🏁",
			XPAmount:       inst.XPReward,
			SourceCode:     inst.TemplateCode,
		}
		if err := tx.Create(&reward).Error; err != nil {
			return nil, err
		}

		if err := tx.Model(&models.UserProfile{}).
			Where("external_user_id = ?", externalUserID).
			UpdateColumn("total_challenges_completed", gorm.Expr("total_challenges_completed + 1")).Error; err != nil {
			return nil, err
		}

		result.Completed = append(result.Completed, ChallengeCompletion{
			InstanceID:   inst.ID,
			TemplateCode: inst.TemplateCode,
			Title:        tmpl.Title,
			XPReward:     inst.XPReward,
		})
		result.ChallengeXP += inst.XPReward
		log.Printf("🏁 Challenge completed: %s → %s (+%d XP)", inst.TemplateCode, externalUserID, inst.XPReward)
	}

	sweep, err := s.checkSweep(tx, externalUserID, day)
	if err != nil {
		return nil, err
	}
	result.SweepBonusXP = sweep

	return result, nil
}

// checkSweep awards the fixed daily sweep bonus once all 3 daily instances for
// day are complete. The (user, date) row is the idempotency guard.
func (s *ChallengeService) checkSweep(tx *gorm.DB, externalUserID, day string) (int64, error) {
	var total, done int64
	if err := tx.Model(&models.ChallengeInstance{}).
		Where("external_user_id = ? AND cadence = ? AND window_start = ?", externalUserID, models.CadenceDaily, day).
		Count(&total).Error; err != nil {
		return 0, err
	}
	if total < models.DailyChallengeCount {
		return 0, nil
	}
	if err := tx.Model(&models.ChallengeInstance{}).
		Where("external_user_id = ? AND cadence = ? AND window_start = ? AND completed = ?",
			externalUserID, models.CadenceDaily, day, true).
		Count(&done).Error; err != nil {
		return 0, err
	}
	if done < total {
		return 0, nil
	}

	var existing models.SweepBonus
	err := tx.Where("external_user_id = ? AND date = ?", externalUserID, day).First(&existing).Error
	if err == nil {
		return 0, nil // already awarded today
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	bonus := models.SweepBonus{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Date:           day,
		XPAwarded:      models.SweepBonusXP,
	}
	if err := tx.Create(&bonus).Error; err != nil {
		return 0, err
	}
	if _, err := s.XP.Grant(tx, externalUserID, models.SweepBonusXP, "daily_sweep", day); err != nil {
		return 0, err
	}
	reward := models.Reward{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Category:       models.RewardCategorySweep,
		Title:          "Daily Sweep! All challenges complete",
		Emoji:          "🧹",
		XPAmount:       models.SweepBonusXP,
		SourceCode:     "daily_sweep",
	}
	if err := tx.Create(&reward).Error; err != nil {
		return 0, err
	}

	log.Printf("🧹 Daily sweep bonus: %s on %s (+%d XP)", externalUserID, day, int64(models.SweepBonusXP))
	return models.SweepBonusXP, nil
}

// ListForDay returns the user's daily instances for day plus the weekly
// instance covering it, generating any that don't exist yet.
func (s *ChallengeService) ListForDay(externalUserID, day string) ([]models.ChallengeInstance, []models.ChallengeInstance, error) {
	daily, err := s.EnsureDaily(externalUserID, day)
	if err != nil {
		return nil, nil, err
	}
	weekly, err := s.EnsureWeekly(externalUserID, WeekStart(day))
	if err != nil {
		return nil, nil, err
	}
	return daily, weekly, nil
}

// ArchiveWindowsBefore marks instances from closed windows as archived.
// Safe to re-invoke; already-archived rows are untouched.
func (s *ChallengeService) ArchiveWindowsBefore(day string) (int64, error) {
	week := WeekStart(day)
	res := s.DB.Model(&models.ChallengeInstance{}).
		Where("archived = ? AND ((cadence = ? AND window_start < ?) OR (cadence = ? AND window_start < ?))",
			false, models.CadenceDaily, day, models.CadenceWeekly, week).
		Update("archived", true)
	return res.RowsAffected, res.Error
}

// pickTemplates selects n templates with a deterministic shuffle keyed by seed.
// Same (user, window) always yields the same picks.
func pickTemplates(pool []models.ChallengeTemplate, n int, seed string) []models.ChallengeTemplate {
	h := fnv.New64a()
	h.Write([]byte(seed))
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	shuffled := make([]models.ChallengeTemplate, len(pool))
	copy(shuffled, pool)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// prefer one template per metric so a day's challenges don't all track the same counter
	seen := make(map[models.Metric]bool)
	var result []models.ChallengeTemplate
	for _, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !seen[tmpl.Metric] {
			seen[tmpl.Metric] = true
			result = append(result, tmpl)
		}
	}
	for _, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		dup := false
		for _, picked := range result {
			if picked.Code == tmpl.Code {
				dup = true
				break
			}
		}
		if !dup {
			result = append(result, tmpl)
		}
	}
	return result
}
