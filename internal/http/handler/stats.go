package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// DashboardStats handles GET /api/stats/dashboard. Results may be up to the
// configured cache TTL old.
func DashboardStats(svc service.StatsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.Dashboard(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(stats)
	}
}
