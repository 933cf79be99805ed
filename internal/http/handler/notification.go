package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// ListNotifications handles GET /api/notifications?page=&limit=, newest first.
func ListNotifications(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		page, limit, err := pageQuery(c)
		if err != nil {
			return fail(c, err)
		}
		res, err := svc.List(c.UserContext(), actor.ID, page, limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	}
}

// MarkNotificationsRead handles PUT /api/notifications/read.
func MarkNotificationsRead(svc service.NotificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		n, err := svc.MarkAllRead(c.UserContext(), actor.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "Notifications marked as read.", "updated": n})
	}
}
