package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-hclog"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// serviceErrors is checked in order with errors.Is.
var serviceErrors = []errorMapping{
	{service.ErrIDRequired, fiber.StatusBadRequest, "INVALID_ID", "id is required"},
	{service.ErrReaderNil, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required"},
	{service.ErrUnsupportedContentType, fiber.StatusBadRequest, "UNSUPPORTED_CONTENT_TYPE", "file type is not allowed"},
	{service.ErrInvalidAccessLevel, fiber.StatusBadRequest, "INVALID_ACCESS_LEVEL", "invalid accessLevel"},
	{service.ErrQueryRequired, fiber.StatusBadRequest, "QUERY_REQUIRED", `search query "q" is required`},
	{service.ErrNotAssignable, fiber.StatusBadRequest, "NOT_ASSIGNABLE", "user not found or cannot be added to a team"},
	{service.ErrAlreadyInTeam, fiber.StatusBadRequest, "ALREADY_IN_TEAM", "user is already in your team"},
	{service.ErrInAnotherTeam, fiber.StatusBadRequest, "IN_ANOTHER_TEAM", "user is already in another team"},
	{service.ErrNotTeamMember, fiber.StatusBadRequest, "NOT_TEAM_MEMBER", "user is not on your team"},
	{service.ErrUsernameTaken, fiber.StatusBadRequest, "USERNAME_TAKEN", "username is already taken"},
	{service.ErrEmailTaken, fiber.StatusBadRequest, "EMAIL_TAKEN", "email is already in use"},
	{service.ErrInvalidEmail, fiber.StatusBadRequest, "INVALID_EMAIL", "email address is invalid"},
	{service.ErrInvalidUsername, fiber.StatusBadRequest, "INVALID_USERNAME", "username must be at most 64 characters"},
	{service.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "you do not have access to this document"},
	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "document not found"},
	{service.ErrVersionNotFound, fiber.StatusNotFound, "VERSION_NOT_FOUND", "document version not found"},
	{service.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND", "user not found"},
	{service.ErrQuarantined, fiber.StatusGone, "QUARANTINED", "file has been quarantined and is not available"},
	{service.ErrPendingScan, fiber.StatusUnprocessableEntity, "PENDING_SCAN", "file is pending virus scan"},
}

// requestError is a malformed request detected by a handler.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(code, message string) error {
	return &requestError{code: code, message: message}
}

// fail writes the envelope for request and known service errors. Unknown
// errors are returned unchanged so ErrorHandler logs them and answers 500.
func fail(c *fiber.Ctx, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return writeError(c, fiber.StatusBadRequest, re.code, re.message)
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	return err
}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses for errors raised outside handlers (routing, middleware,
// body limit).
func ErrorHandler(logger hclog.Logger) fiber.ErrorHandler {
	logger = logger.Named("http")
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if !errors.As(err, &e) {
			logger.Error("request failed",
				"request_id", requestIDFromCtx(c), "method", c.Method(), "path", c.Path(), "error", err)
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		switch e.Code {
		case fiber.StatusBadRequest:
			return writeError(c, e.Code, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, e.Code, "UNAUTHORIZED", "authentication required")
		case fiber.StatusForbidden:
			return writeError(c, e.Code, "FORBIDDEN", "insufficient permissions")
		case fiber.StatusNotFound:
			return writeError(c, e.Code, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, e.Code, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, e.Code, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
