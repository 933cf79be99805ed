package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

type memberResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// GetTeam handles GET /api/team: the caller's direct reports.
func GetTeam(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		team, err := svc.GetTeam(c.UserContext(), actor)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(team)
	}
}

// AvailableUsers handles GET /api/team/available.
func AvailableUsers(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := svc.AvailableUsers(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(users)
	}
}

// AddTeamMember handles PUT /api/team/add/:userId.
func AddTeamMember(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "userId")
		if err != nil {
			return fail(c, err)
		}
		u, err := svc.AddMember(c.UserContext(), actor, id)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(memberResponse{Message: "User added to team successfully.", User: u})
	}
}

// RemoveTeamMember handles PUT /api/team/remove/:userId.
func RemoveTeamMember(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "userId")
		if err != nil {
			return fail(c, err)
		}
		u, err := svc.RemoveMember(c.UserContext(), actor, id)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(memberResponse{Message: "User removed from team successfully.", User: u})
	}
}
