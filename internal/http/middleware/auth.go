package middleware

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/repository"
)

const (
	// ActorLocalKey holds the authenticated access.Actor in Fiber's locals.
	ActorLocalKey = "actor"
	// AccessTokenCookie is the cookie checked before the Authorization header.
	AccessTokenCookie = "accessToken"
)

// Claims is the access token payload issued by the auth service. The user
// id is read from "user.id", falling back to the standard subject.
type Claims struct {
	User struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	jwt.RegisteredClaims
}

func (c *Claims) userID() string {
	if c.User.ID != "" {
		return c.User.ID
	}
	return c.Subject
}

// Authenticate verifies an HS256 access token and loads the caller from
// users. Role and manager come from the database, not the token, so team
// changes apply without reissuing tokens.
func Authenticate(secret []byte, users repository.UserRepository, logger hclog.Logger) fiber.Handler {
	logger = logger.Named("auth")
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		raw := tokenFrom(c)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "no token provided")
		}

		var claims Claims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			logger.Debug("rejected token", "request_id", c.Locals(RequestIDLocalKey), "error", err)
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		id := claims.userID()
		if id == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		u, err := users.FindByID(c.UserContext(), id)
		if errors.Is(err, sql.ErrNoRows) {
			return fiber.NewError(fiber.StatusUnauthorized, "unknown user")
		}
		if err != nil {
			return err
		}

		c.Locals(ActorLocalKey, access.ActorFromUser(u))
		return c.Next()
	}
}

func tokenFrom(c *fiber.Ctx) string {
	if t := c.Cookies(AccessTokenCookie); t != "" {
		return t
	}
	h := c.Get(fiber.HeaderAuthorization)
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

// ActorFrom returns the actor stored by Authenticate.
func ActorFrom(c *fiber.Ctx) (access.Actor, bool) {
	a, ok := c.Locals(ActorLocalKey).(access.Actor)
	return a, ok
}

// RequireRoles rejects callers whose role is not listed. It must run after
// Authenticate.
func RequireRoles(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := ActorFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
		}
		for _, r := range roles {
			if a.Role == r {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient role")
	}
}
