package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-hclog"
)

// Logger is a middleware that logs one line per HTTP request.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
func Logger(logger hclog.Logger) fiber.Handler {
	logger = logger.Named("http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Status is only final once the error handler has written the response.
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		latency := float64(time.Since(start).Microseconds()) / 1000

		args := []any{
			"request_id", rid,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", latency,
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request", args...)
		default:
			logger.Info("request", args...)
		}

		return err
	}
}

// statusOf approximates the status the global error handler will write.
func statusOf(err error) int {
	if e, ok := err.(*fiber.Error); ok {
		return e.Code
	}
	return fiber.StatusInternalServerError
}
