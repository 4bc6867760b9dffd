package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter assembles the REST surface: payment routes, webhooks, health, metrics and swagger.
// swaggerHandler may be nil.
func NewRouter(h *PaymentHandler, config MiddlewareConfig, allowedOrigins []string, swaggerHandler http.Handler) http.Handler {
	router := mux.NewRouter()

	RegisterMiddlewares(router, config)
	h.RegisterRoutes(router, config)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if swaggerHandler != nil {
		RegisterSwaggerDocs(router, swaggerHandler)
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature", "X-Webhook-Signature"},
	})

	return c.Handler(router)
}
