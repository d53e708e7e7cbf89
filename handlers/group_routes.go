// handlers/group_routes.go
package handlers

import (
	"errors"
	"studyquest-backend/middleware"
	"studyquest-backend/models"
	"studyquest-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupGroupRoutes(app *fiber.App, groupService *services.GroupService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/groups", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		groups, err := groupService.GroupsForUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list groups",
				"cause": err.Error(),
			})
		}
		return c.JSON(groups)
	})

	secured.Post("/groups", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Name string `json:"name"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		group, err := groupService.CreateGroup(userID, req.Name)
		if err != nil {
			if services.IsInvalidState(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid group",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create group",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(group)
	})

	secured.Post("/groups/join", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			InviteCode string `json:"invite_code"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.InviteCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invite_code is required"})
		}

		group, err := groupService.JoinByInviteCode(userID, req.InviteCode)
		if err != nil {
			if services.IsNotFound(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite code not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to join group",
				"cause": err.Error(),
			})
		}
		return c.JSON(group)
	})

	secured.Get("/groups/:id/leaderboard", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		groupID := c.Params("id")

		// Members only
		var member models.GroupMember
		if err := groupService.DB.
			Where("group_id = ? AND external_user_id = ?", groupID, userID).
			First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a member of this group"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to check membership",
				"cause": err.Error(),
			})
		}

		weekStart := c.Query("week")
		if weekStart == "" {
			weekStart = services.WeekStart(groupService.XP.Clock.Today())
		} else if _, err := services.ParseDate(weekStart); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid week, expected YYYY-MM-DD"})
		} else {
			weekStart = services.WeekStart(weekStart)
		}

		entries, err := groupService.WeeklyLeaderboard(groupID, weekStart)
		if err != nil {
			if services.IsNotFound(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"group_id":    groupID,
			"week_start":  weekStart,
			"leaderboard": entries,
		})
	})
}
