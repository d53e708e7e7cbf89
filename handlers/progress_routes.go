// handlers/progress_routes.go
package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"studyquest-backend/middleware"
	"studyquest-backend/models"
	"studyquest-backend/services"
	"studyquest-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupProgressRoutes(app *fiber.App, xpService *services.XPService, achievementService *services.AchievementService, completionService *services.CompletionService, rewardService *services.RewardService, authClient *services.AuthServiceClient) {
	// 🔐 Secured routes — require user context (userID, roles)
	// The gateway forwards paths like /api/v1/study/s/user/progress -> /user/progress
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prof, err := xpService.EnsureProfile(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load profile",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":                         prof.ID,
			"xp_total":                   prof.XPTotal,
			"level":                      prof.Level,
			"xp_for_current_level":       services.XPForLevel(prof.Level),
			"xp_to_next_level":           services.XPToNextLevel(prof.XPTotal),
			"level_progress_pct":         services.LevelProgressPct(prof.XPTotal),
			"current_streak":             prof.CurrentStreak,
			"longest_streak":             prof.LongestStreak,
			"last_active_date":           prof.LastActiveDate,
			"streak_freezes":             prof.StreakFreezes,
			"total_tasks_completed":      prof.TotalTasksCompleted,
			"total_habits_completed":     prof.TotalHabitsCompleted,
			"total_blocks_completed":     prof.TotalBlocksCompleted,
			"total_focus_minutes":        prof.TotalFocusMinutes,
			"total_challenges_completed": prof.TotalChallengesCompleted,
			"last_level_up_at":           prof.LastLevelUpAt,
		})
	})

	secured.Get("/user/progress/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var events []models.XPEvent
		if err := xpService.DB.
			Where("external_user_id = ?", userID).
			Order("created_at DESC").
			Offset((page - 1) * size).
			Limit(size).
			Find(&events).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get XP history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"page":   page,
			"size":   size,
			"events": events,
		})
	})

	secured.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		progress, err := achievementService.ListProgress(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}
		byCode := make(map[string]models.AchievementProgress, len(progress))
		for _, p := range progress {
			byCode[p.Code] = p
		}

		// Full catalog view: locked achievements appear with tier "none"
		var response []fiber.Map
		for _, def := range models.AchievementDefs {
			p := byCode[def.Code]
			response = append(response, fiber.Map{
				"code":               def.Code,
				"name":               def.Name,
				"description":        def.Description,
				"icon":               def.Icon,
				"metric":             def.Metric,
				"thresholds":         def.Thresholds,
				"xp_rewards":         def.XPRewards,
				"current_tier":       p.CurrentTier.String(),
				"progress_value":     p.ProgressValue,
				"bronze_unlocked_at": p.BronzeUnlockedAt,
				"silver_unlocked_at": p.SilverUnlockedAt,
				"gold_unlocked_at":   p.GoldUnlockedAt,
			})
		}
		return c.JSON(response)
	})

	secured.Post("/user/streak-freeze", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		info, err := completionService.UseStreakFreeze(userID, completionService.Clock.Today())
		if err != nil {
			if services.IsInvalidState(err) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "streak freeze not usable",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to use streak freeze",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "streak freeze applied",
			"streak":  info,
		})
	})

	secured.Post("/user/avatar", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		fileHeader, err := c.FormFile("avatar")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "avatar file is required",
				"cause": err.Error(),
			})
		}
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		switch ext {
		case ".png", ".jpg", ".jpeg", ".webp":
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unsupported image type",
			})
		}

		filename := fmt.Sprintf("%s-%s%s", userID, uuid.NewString()[:8], ext)

		var avatarURL string
		if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
			avatarURL, err = utils.UploadFileToR2(fileHeader, "avatars/"+filename)
		} else {
			// Local fallback for dev: served from the /uploads static route
			dest := utils.GetUploadPath(filepath.Join("avatars", filename))
			if err = utils.SaveFile(fileHeader, dest); err == nil {
				avatarURL = "/uploads/avatars/" + filename
			}
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to store avatar",
				"cause": err.Error(),
			})
		}

		if err := xpService.DB.
			Model(&models.StudentUser{}).
			Where("external_user_id = ?", userID).
			Update("profile_picture_url", avatarURL).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save avatar URL",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"avatar_url": avatarURL})
	})

	// ✅ Reward feed (achievement/challenge/bonus unlock notifications)
	secured.Get("/user/rewards", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		unviewedOnly := c.Query("unviewed") == "true"
		limit, _ := strconv.Atoi(c.Query("limit", "50"))

		rewards, err := rewardService.ListRewards(userID, unviewedOnly, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get rewards",
				"cause": err.Error(),
			})
		}
		return c.JSON(rewards)
	})

	secured.Patch("/user/rewards/:id/viewed", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := rewardService.MarkViewed(userID, c.Params("id")); err != nil {
			if services.IsNotFound(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "reward not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark reward viewed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "marked viewed"})
	})

	secured.Post("/user/rewards/viewed", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		n, err := rewardService.MarkAllViewed(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark rewards viewed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"marked": n})
	})

	// SSE stream authenticates via query params (EventSource can't set headers)
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamUserRewardsSSE)

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.XP <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "xp must be positive"})
		}

		source := "admin_grant"
		if req.Reason != "" {
			source = "admin_grant:" + req.Reason
		}
		if _, err := xpService.Grant(xpService.DB, req.UserID, req.XP, source, xpService.Clock.Today()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
		})
	})

	adminGroup.Post("/achievements/reset", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id is required",
			})
		}

		if err := achievementService.ResetProgress(req.UserID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "achievement reset failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "achievement progress reset",
			"user_id": req.UserID,
		})
	})
}
