// handlers/habit_routes.go
package handlers

import (
	"errors"
	"studyquest-backend/middleware"
	"studyquest-backend/models"
	"studyquest-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func SetupHabitRoutes(app *fiber.App, completionService *services.CompletionService) {
	db := completionService.DB

	// 🔐 All habit routes require user context
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/habits", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		q := db.Where("external_user_id = ?", userID)
		if c.Query("include_archived") != "true" {
			q = q.Where("archived = ?", false)
		}

		var habits []models.Habit
		if err := q.Order("created_at ASC").Find(&habits).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list habits",
				"cause": err.Error(),
			})
		}
		return c.JSON(habits)
	})

	secured.Post("/habits", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
			XPValue     int64  `json:"xp_value"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}
		if req.XPValue <= 0 {
			req.XPValue = 10
		}

		habit := models.Habit{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			Name:           req.Name,
			Description:    req.Description,
			Icon:           req.Icon,
			XPValue:        req.XPValue,
		}
		if err := db.Create(&habit).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create habit",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(habit)
	})

	secured.Put("/habits/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var habit models.Habit
		if err := db.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).First(&habit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "habit not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load habit",
				"cause": err.Error(),
			})
		}

		type Req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			Icon        *string `json:"icon"`
			XPValue     *int64  `json:"xp_value"`
			Archived    *bool   `json:"archived"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Name != nil && *req.Name != "" {
			habit.Name = *req.Name
		}
		if req.Description != nil {
			habit.Description = *req.Description
		}
		if req.Icon != nil {
			habit.Icon = *req.Icon
		}
		if req.XPValue != nil && *req.XPValue > 0 {
			habit.XPValue = *req.XPValue
		}
		if req.Archived != nil {
			habit.Archived = *req.Archived
		}

		if err := db.Save(&habit).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update habit",
				"cause": err.Error(),
			})
		}
		return c.JSON(habit)
	})

	// Delete is soft (GORM DeletedAt); completion history stays for streak recomputes
	secured.Delete("/habits/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		res := db.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).Delete(&models.Habit{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to delete habit",
				"cause": res.Error.Error(),
			})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "habit not found"})
		}
		return c.JSON(fiber.Map{"message": "habit deleted"})
	})

	secured.Post("/habits/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day, err := completionDay(c, completionService)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		result, err := completionService.CompleteHabit(userID, c.Params("id"), day)
		if err != nil {
			return completionError(c, err, "failed to complete habit")
		}
		return c.JSON(result)
	})

	secured.Post("/habits/:id/uncomplete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day, err := completionDay(c, completionService)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := completionService.UncompleteHabit(userID, c.Params("id"), day); err != nil {
			return completionError(c, err, "failed to uncomplete habit")
		}
		return c.JSON(fiber.Map{"message": "habit completion removed"})
	})

	secured.Get("/habits/completions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day := c.Query("date", completionService.Clock.Today())
		if _, err := services.ParseDate(day); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}

		var completions []models.HabitCompletion
		if err := db.Where("external_user_id = ? AND date = ?", userID, day).Find(&completions).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list completions",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"date":        day,
			"completions": completions,
		})
	})
}

// completionDay resolves the target calendar day for a completion request:
// JSON body {"date": "YYYY-MM-DD"} if present, else the clock's today.
func completionDay(c *fiber.Ctx, svc *services.CompletionService) (string, error) {
	type Req struct {
		Date string `json:"date"`
	}
	var req Req
	_ = c.BodyParser(&req) // empty body is fine
	if req.Date == "" {
		return svc.Clock.Today(), nil
	}
	if _, err := services.ParseDate(req.Date); err != nil {
		return "", errors.New("invalid date, expected YYYY-MM-DD")
	}
	if req.Date > svc.Clock.Today() {
		return "", errors.New("date cannot be in the future")
	}
	return req.Date, nil
}

// completionError maps service sentinels onto HTTP statuses
func completionError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case services.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg, "cause": err.Error()})
	case services.IsInvalidState(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg, "cause": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg, "cause": err.Error()})
	}
}
