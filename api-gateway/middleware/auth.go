package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tair/payment-service/pkg/auth"
)

// Locals keys set by AuthMiddleware
const (
	LocalSubject = "subject"
	LocalRole    = "role"
	LocalToken   = "token"
)

// AuthMiddleware validates JWT bearer tokens. A nil manager lets every request through.
func AuthMiddleware(manager *auth.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if manager == nil {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header required",
			})
		}

		token, ok := auth.BearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid authorization header format",
			})
		}

		claims, err := manager.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid token",
			})
		}

		c.Locals(LocalSubject, claims.Subject)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalToken, token)

		return c.Next()
	}
}

// TokenFrom returns the bearer token validated for this request, if any
func TokenFrom(c *fiber.Ctx) string {
	if token, ok := c.Locals(LocalToken).(string); ok {
		return token
	}
	return ""
}
