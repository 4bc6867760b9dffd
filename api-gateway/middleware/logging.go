package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tair/payment-service/pkg/logger"
)

// StructuredLoggingMiddleware logs each request once it completes
func StructuredLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		statusCode := c.Response().StatusCode()

		log := logger.WithContext(c.UserContext())
		event := log.Info()
		switch {
		case statusCode >= 500:
			event = log.Error()
		case statusCode >= 400:
			event = log.Warn()
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("ip", c.IP()).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Err(err).
			Msg("Gateway request completed")

		return err
	}
}
