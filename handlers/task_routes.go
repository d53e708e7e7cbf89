// handlers/task_routes.go
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

func SetupTaskRoutes(app *fiber.App, completionService *services.CompletionService) {
	db := completionService.DB

	secured := app.Group("/", middleware.UserContextMiddleware())

	// ─── Tasks ──────────────────────────────────────────────────────────────

	secured.Get("/tasks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		q := db.Where("external_user_id = ?", userID)
		switch c.Query("status") {
		case "open":
			q = q.Where("completed_date IS NULL")
		case "done":
			q = q.Where("completed_date IS NOT NULL")
		}
		if due := c.Query("due"); due != "" {
			if _, err := services.ParseDate(due); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid due date, expected YYYY-MM-DD"})
			}
			q = q.Where("due_date = ?", due)
		}

		var tasks []models.Task
		if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list tasks",
				"cause": err.Error(),
			})
		}
		return c.JSON(tasks)
	})

	secured.Post("/tasks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title    string  `json:"title"`
			Notes    string  `json:"notes"`
			Priority string  `json:"priority"`
			DueDate  *string `json:"due_date"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}
		priority := models.TaskPriority(req.Priority)
		switch priority {
		case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		case "":
			priority = models.TaskPriorityMedium
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "priority must be low, medium or high"})
		}
		if req.DueDate != nil {
			if _, err := services.ParseDate(*req.DueDate); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid due date, expected YYYY-MM-DD"})
			}
		}

		task := models.Task{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			Title:          req.Title,
			Notes:          req.Notes,
			Priority:       priority,
			DueDate:        req.DueDate,
		}
		if err := db.Create(&task).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create task",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	secured.Put("/tasks/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var task models.Task
		if err := db.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load task",
				"cause": err.Error(),
			})
		}

		type Req struct {
			Title    *string `json:"title"`
			Notes    *string `json:"notes"`
			Priority *string `json:"priority"`
			DueDate  *string `json:"due_date"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Title != nil && *req.Title != "" {
			task.Title = *req.Title
		}
		if req.Notes != nil {
			task.Notes = *req.Notes
		}
		if req.Priority != nil {
			p := models.TaskPriority(*req.Priority)
			switch p {
			case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
				// Priority changes do not touch XPAwarded on already-completed
				// tasks; the snapshot is what gets reversed.
				task.Priority = p
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "priority must be low, medium or high"})
			}
		}
		if req.DueDate != nil {
			if *req.DueDate == "" {
				task.DueDate = nil
			} else {
				if _, err := services.ParseDate(*req.DueDate); err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid due date, expected YYYY-MM-DD"})
				}
				task.DueDate = req.DueDate
			}
		}

		if err := db.Save(&task).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update task",
				"cause": err.Error(),
			})
		}
		return c.JSON(task)
	})

	secured.Delete("/tasks/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		res := db.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).Delete(&models.Task{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to delete task",
				"cause": res.Error.Error(),
			})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}
		return c.JSON(fiber.Map{"message": "task deleted"})
	})

	secured.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		result, err := completionService.CompleteTask(userID, c.Params("id"))
		if err != nil {
			return completionError(c, err, "failed to complete task")
		}
		return c.JSON(result)
	})

	secured.Post("/tasks/:id/uncomplete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		if err := completionService.UncompleteTask(userID, c.Params("id")); err != nil {
			return completionError(c, err, "failed to uncomplete task")
		}
		return c.JSON(fiber.Map{"message": "task reopened"})
	})

	// ─── Schedule blocks ────────────────────────────────────────────────────

	secured.Get("/blocks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day := c.Query("date", completionService.Clock.Today())
		if _, err := services.ParseDate(day); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}

		var blocks []models.ScheduleBlock
		if err := db.Where("external_user_id = ? AND date = ?", userID, day).
			Order("start_minute ASC").Find(&blocks).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list blocks",
				"cause": err.Error(),
			})
		}
		return c.JSON(blocks)
	})

	secured.Post("/blocks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title       string `json:"title"`
			Subject     string `json:"subject"`
			Date        string `json:"date"`
			StartMinute int    `json:"start_minute"`
			EndMinute   int    `json:"end_minute"`
			XPValue     int64  `json:"xp_value"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}
		if _, err := services.ParseDate(req.Date); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}
		if req.StartMinute < 0 || req.EndMinute > 24*60 || req.EndMinute <= req.StartMinute {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid time range"})
		}
		if req.XPValue <= 0 {
			req.XPValue = 20
		}

		block := models.ScheduleBlock{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			Title:          req.Title,
			Subject:        req.Subject,
			Date:           req.Date,
			StartMinute:    req.StartMinute,
			EndMinute:      req.EndMinute,
			XPValue:        req.XPValue,
		}
		if err := db.Create(&block).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create block",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(block)
	})

	secured.Delete("/blocks/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		res := db.Where("id = ? AND external_user_id = ?", c.Params("id"), userID).Delete(&models.ScheduleBlock{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to delete block",
				"cause": res.Error.Error(),
			})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "block not found"})
		}
		return c.JSON(fiber.Map{"message": "block deleted"})
	})

	secured.Post("/blocks/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day, err := completionDay(c, completionService)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		result, err := completionService.CompleteBlock(userID, c.Params("id"), day)
		if err != nil {
			return completionError(c, err, "failed to complete block")
		}
		return c.JSON(result)
	})

	secured.Post("/blocks/:id/uncomplete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day, err := completionDay(c, completionService)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := completionService.UncompleteBlock(userID, c.Params("id"), day); err != nil {
			return completionError(c, err, "failed to uncomplete block")
		}
		return c.JSON(fiber.Map{"message": "block completion removed"})
	})

	// ─── Focus sessions ─────────────────────────────────────────────────────

	secured.Post("/focus/sessions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Minutes int `json:"minutes"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Minutes < 1 || req.Minutes > 8*60 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "minutes must be between 1 and 480"})
		}

		result, err := completionService.RecordFocusSession(userID, req.Minutes)
		if err != nil {
			return completionError(c, err, "failed to record focus session")
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	secured.Get("/focus/sessions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day := c.Query("date", completionService.Clock.Today())
		if _, err := services.ParseDate(day); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}

		var sessions []models.FocusSession
		if err := db.Where("external_user_id = ? AND date = ?", userID, day).
			Order("created_at ASC").Find(&sessions).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list focus sessions",
				"cause": err.Error(),
			})
		}
		return c.JSON(sessions)
	})
}
