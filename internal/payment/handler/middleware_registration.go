package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/payment-service/pkg/auth"
	"github.com/tair/payment-service/pkg/logger"
)

// MiddlewareConfig holds middleware configuration
type MiddlewareConfig struct {
	EnableLogging bool
	EnableTracing bool
	// AuthManager guards mutating routes; nil disables authentication
	AuthManager *auth.Manager
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig(manager *auth.Manager) MiddlewareConfig {
	return MiddlewareConfig{
		EnableLogging: true,
		EnableTracing: true,
		AuthManager:   manager,
	}
}

// RegisterMiddlewares registers all middlewares to the router
func RegisterMiddlewares(router *mux.Router, config MiddlewareConfig) {
	if config.EnableTracing {
		router.Use(TracingMiddleware)
	}
	if config.EnableLogging {
		router.Use(LoggingMiddleware)
	}
}

type claimsKey struct{}

// ClaimsFromContext returns the verified token claims of the caller, if any
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// GetAuthMiddleware returns a bearer token check, or a pass-through when auth is disabled
func (config MiddlewareConfig) GetAuthMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	manager := config.AuthManager
	return func(next http.HandlerFunc) http.HandlerFunc {
		if manager == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authorization header required"})
				return
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				logger.Warn(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Rejected token")
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid token"})
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		}
	}
}
