package services

import (
	"fmt"
	"log"

	"studyquest-backend/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Top-3 weekly group bonuses (rank → XP)
var weeklyRankBonuses = [3]int64{300, 200, 100}

// RolloverService runs the scheduled day/week boundary work: archiving closed
// challenge windows, pre-generating the next window's instances, and writing
// the weekly history aggregate. Every entry point is idempotent — rollovers
// execute at-least-once — and per-entity failures are collected so one bad
// user can't abort the batch.
type RolloverService struct {
	DB         *gorm.DB
	Challenges *ChallengeService
	Groups     *GroupService
	XP         *XPService
	Clock      Clock
}

func NewRolloverService(db *gorm.DB, ch *ChallengeService, gr *GroupService, xp *XPService, clock Clock) *RolloverService {
	return &RolloverService{DB: db, Challenges: ch, Groups: gr, XP: xp, Clock: clock}
}

// StartRolloverScheduler registers the daily and weekly gocron jobs
func (s *RolloverService) StartRolloverScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Shortly after midnight: archive yesterday, generate today's dailies
	_, _ = sched.NewJob(
		gocron.CronJob("10 0 * * *", false),
		gocron.NewTask(func() {
			if errs := s.RunDailyRollover(s.Clock.Today()); len(errs) > 0 {
				log.Printf("[Rollover] Daily rollover finished with %d errors: %v", len(errs), errs)
			}
		}),
	)

	// Monday morning: close out last week
	_, _ = sched.NewJob(
		gocron.CronJob("30 0 * * 1", false),
		gocron.NewTask(func() {
			lastWeek := AddDays(WeekStart(s.Clock.Today()), -7)
			if errs := s.RunWeeklyReset(lastWeek); len(errs) > 0 {
				log.Printf("[Rollover] Weekly reset finished with %d errors: %v", len(errs), errs)
			}
		}),
	)
}

// RunDailyRollover closes windows that ended before day and pre-generates
// day's instances for every known user. Re-invocation is safe: archiving skips
// archived rows and generation is check-then-create.
func (s *RolloverService) RunDailyRollover(day string) []error {
	var errs []error

	archived, err := s.Challenges.ArchiveWindowsBefore(day)
	if err != nil {
		errs = append(errs, fmt.Errorf("archive windows: %w", err))
	} else if archived > 0 {
		log.Printf("[Rollover] Archived %d challenge instances before %s", archived, day)
	}

	userIDs, err := s.activeUserIDs()
	if err != nil {
		return append(errs, fmt.Errorf("list users: %w", err))
	}

	for _, userID := range userIDs {
		if _, err := s.Challenges.EnsureDaily(userID, day); err != nil {
			errs = append(errs, fmt.Errorf("daily challenges for %s: %w", userID, err))
			continue
		}
		if _, err := s.Challenges.EnsureWeekly(userID, WeekStart(day)); err != nil {
			errs = append(errs, fmt.Errorf("weekly challenge for %s: %w", userID, err))
		}
	}

	log.Printf("✅ [Rollover] Daily rollover for %s: %d users, %d errors", day, len(userIDs), len(errs))
	return errs
}

// RunWeeklyReset writes the WeeklyStats aggregate for the closed week, ranks
// each study group by ledger XP, and grants the top-3 bonuses. The unique
// (user, week) row on WeeklyStats is the idempotency guard: users that already
// have a row for weekStart are skipped entirely.
func (s *RolloverService) RunWeeklyReset(weekStart string) []error {
	var errs []error

	userIDs, err := s.activeUserIDs()
	if err != nil {
		return []error{fmt.Errorf("list users: %w", err)}
	}

	for _, userID := range userIDs {
		if err := s.writeWeeklyStats(userID, weekStart); err != nil {
			errs = append(errs, fmt.Errorf("weekly stats for %s: %w", userID, err))
		}
	}

	var groups []models.StudyGroup
	if err := s.DB.Find(&groups).Error; err != nil {
		return append(errs, fmt.Errorf("list groups: %w", err))
	}
	for _, group := range groups {
		if err := s.awardGroupBonuses(group, weekStart); err != nil {
			errs = append(errs, fmt.Errorf("group %s bonuses: %w", group.Slug, err))
		}
	}

	log.Printf("✅ [Rollover] Weekly reset for week %s: %d users, %d groups, %d errors",
		weekStart, len(userIDs), len(groups), len(errs))
	return errs
}

func (s *RolloverService) writeWeeklyStats(userID, weekStart string) error {
	var count int64
	if err := s.DB.Model(&models.WeeklyStats{}).
		Where("external_user_id = ? AND week_start = ?", userID, weekStart).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // already written for this week
	}

	xp, err := s.XP.WeeklyXP(s.DB, userID, weekStart)
	if err != nil {
		return err
	}

	var challengesDone int64
	if err := s.DB.Model(&models.ChallengeInstance{}).
		Where("external_user_id = ? AND completed = ? AND window_start >= ? AND window_start < ?",
			userID, true, weekStart, AddDays(weekStart, 7)).
		Count(&challengesDone).Error; err != nil {
		return err
	}

	stats := models.WeeklyStats{
		ID:                  uuid.NewString(),
		ExternalUserID:      userID,
		WeekStart:           weekStart,
		XPEarned:            xp,
		ChallengesCompleted: challengesDone,
	}
	return s.DB.Create(&stats).Error
}

// awardGroupBonuses stamps ranks onto the week's stats rows and grants the
// top-3 XP bonuses. A stats row with BonusXP already set is never re-awarded.
func (s *RolloverService) awardGroupBonuses(group models.StudyGroup, weekStart string) error {
	entries, err := s.Groups.WeeklyLeaderboard(group.ID, weekStart)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Rank > len(weeklyRankBonuses) {
			break
		}

		var stats models.WeeklyStats
		if err := s.DB.Where("external_user_id = ? AND week_start = ?", entry.ExternalUserID, weekStart).
			First(&stats).Error; err != nil {
			return err
		}
		if stats.BonusXP > 0 {
			continue // bonus already granted on a prior invocation
		}

		bonus := weeklyRankBonuses[entry.Rank-1]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := s.XP.Grant(tx, entry.ExternalUserID, bonus, fmt.Sprintf("weekly_rank_%d", entry.Rank), s.Clock.Today()); err != nil {
				return err
			}
			reward := models.Reward{
				ID:             uuid.NewString(),
				ExternalUserID: entry.ExternalUserID,
				Category:       models.RewardCategoryWeeklyBonus,
				Title:          fmt.Sprintf("#%d in %s this week", entry.Rank, group.Name),
				Emoji:          "🏆",
				XPAmount:       bonus,
				SourceCode:     group.Slug,
			}
			if err := tx.Create(&reward).Error; err != nil {
				return err
			}
			groupID := group.ID
			stats.GroupID = &groupID
			stats.GroupRank = entry.Rank
			stats.BonusXP = bonus
			return tx.Save(&stats).Error
		})
		if err != nil {
			return err
		}
		log.Printf("🏆 Weekly bonus: #%d %s in %s (+%d XP)", entry.Rank, entry.ExternalUserID, group.Slug, bonus)
	}
	return nil
}

func (s *RolloverService) activeUserIDs() ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.UserProfile{}).Pluck("external_user_id", &ids).Error
	return ids, err
}
