package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/payment-service/pkg/auth"
)

func TestAuthMiddleware(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	token, err := manager.GenerateToken("user-1", "admin")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(AuthMiddleware(manager))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalSubject).(string) + ":" + TokenFrom(c))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuthMiddleware_DisabledWithoutManager(t *testing.T) {
	app := fiber.New()
	app.Use(AuthMiddleware(nil))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
