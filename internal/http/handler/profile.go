package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

type profileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// GetMe handles GET /api/auth/me.
func GetMe(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		u, err := svc.Me(c.UserContext(), actor)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(u)
	}
}

// UpdateMyProfile handles PUT /api/users/me. Only username and email can
// change here.
func UpdateMyProfile(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		var req profileRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, badRequest("INVALID_BODY", "invalid request body"))
		}
		u, err := svc.UpdateProfile(c.UserContext(), actor, service.ProfileInput{
			Username: req.Username,
			Email:    req.Email,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(u)
	}
}
