// handlers/challenge_routes.go
package handlers

import (
	"strconv"
	"studyquest-backend/middleware"
	"studyquest-backend/models"
	"studyquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Today's board: assigns the day's dailies and the week's weeklies on first
	// read, then returns both with live progress.
	secured.Get("/challenges/today", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day := challengeService.Clock.Today()

		if _, err := challengeService.EnsureDaily(userID, day); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to assign daily challenges",
				"cause": err.Error(),
			})
		}
		if _, err := challengeService.EnsureWeekly(userID, services.WeekStart(day)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to assign weekly challenges",
				"cause": err.Error(),
			})
		}

		daily, weekly, err := challengeService.ListForDay(userID, day)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list challenges",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"date":       day,
			"week_start": services.WeekStart(day),
			"daily":      daily,
			"weekly":     weekly,
		})
	})

	secured.Get("/challenges/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var instances []models.ChallengeInstance
		if err := challengeService.DB.
			Where("external_user_id = ? AND completed = ?", userID, true).
			Order("completed_at DESC").
			Offset((page - 1) * size).
			Limit(size).
			Find(&instances).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get challenge history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"page":       page,
			"size":       size,
			"challenges": instances,
		})
	})

	secured.Get("/user/weekly-stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		weeks, _ := strconv.Atoi(c.Query("weeks", "8"))
		if weeks < 1 || weeks > 52 {
			weeks = 8
		}

		var stats []models.WeeklyStats
		if err := challengeService.DB.
			Where("external_user_id = ?", userID).
			Order("week_start DESC").
			Limit(weeks).
			Find(&stats).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get weekly stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})
}
