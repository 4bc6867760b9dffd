package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tair/payment-service/api-gateway/health"
	"github.com/tair/payment-service/api-gateway/middleware"
	pb "github.com/tair/payment-service/api/payment/v1"
	"github.com/tair/payment-service/internal/payment/client"
	"github.com/tair/payment-service/pkg/auth"
	"github.com/tair/payment-service/pkg/logger"
)

// RouteDefinition describes a gateway route
type RouteDefinition struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	RequireAuth bool   `json:"require_auth"`
}

// Routes lists the payment routes exposed by the gateway
var Routes = []RouteDefinition{
	{Method: fiber.MethodPost, Path: "/api/payments", Description: "Create a payment", RequireAuth: true},
	{Method: fiber.MethodGet, Path: "/api/payments", Description: "List payments"},
	{Method: fiber.MethodGet, Path: "/api/payments/:id", Description: "Get a payment"},
	{Method: fiber.MethodPost, Path: "/api/payments/:id/process", Description: "Capture, refund or cancel a payment", RequireAuth: true},
}

// Response is the envelope shared with the payment service REST surface
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type createPaymentRequest struct {
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	CustomerID    string         `json:"customer_id"`
	PaymentMethod string         `json:"payment_method"`
	Metadata      map[string]any `json:"metadata"`
}

type processPaymentRequest struct {
	Action   string         `json:"action"`
	Metadata map[string]any `json:"metadata"`
}

// PaymentRoutes translates REST calls into payment service gRPC calls
type PaymentRoutes struct {
	client  pb.PaymentServiceClient
	timeout time.Duration
}

// NewPaymentRoutes creates the handlers over client
func NewPaymentRoutes(paymentClient pb.PaymentServiceClient, timeout time.Duration) *PaymentRoutes {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentRoutes{client: paymentClient, timeout: timeout}
}

// SetupRoutes configures all routes in the gateway. A nil authManager disables authentication.
func SetupRoutes(app *fiber.App, paymentClient pb.PaymentServiceClient, checker *health.HealthChecker, authManager *auth.Manager, timeout time.Duration) {
	// Gateway quick health check (no downstream checks)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(checker.QuickCheck())
	})

	// Liveness probe
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	// Readiness probe (checks payment backends)
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		report := checker.CheckAll(ctx)
		statusCode := fiber.StatusOK
		if report.Status == health.StatusUnhealthy {
			statusCode = fiber.StatusServiceUnavailable
		}
		return c.Status(statusCode).JSON(report)
	})

	// API routes overview
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Payment API Gateway",
			"version": "1.0.0",
			"routes":  Routes,
		})
	})

	h := NewPaymentRoutes(paymentClient, timeout)
	requireAuth := middleware.AuthMiddleware(authManager)

	payments := app.Group("/api/payments")
	payments.Post("/", requireAuth, h.CreatePayment)
	payments.Get("/", h.ListPayments)
	payments.Get("/:id", h.GetPayment)
	payments.Post("/:id/process", requireAuth, h.ProcessPayment)
}

// callContext bounds the backend call and forwards the caller's bearer token
func (h *PaymentRoutes) callContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	token := middleware.TokenFrom(c)
	if token == "" {
		token, _ = auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	}
	ctx := client.WithToken(c.UserContext(), token)
	return context.WithTimeout(ctx, h.timeout)
}

// CreatePayment handles POST /api/payments
func (h *PaymentRoutes) CreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Error: "Invalid request body"})
	}

	ctx, cancel := h.callContext(c)
	defer cancel()

	payment, err := h.client.CreatePayment(ctx, &pb.CreatePaymentRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Message: "Payment created successfully", Data: payment})
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentRoutes) GetPayment(c *fiber.Ctx) error {
	ctx, cancel := h.callContext(c)
	defer cancel()

	payment, err := h.client.GetPayment(ctx, &pb.GetPaymentRequest{PaymentID: c.Params("id")})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(Response{Success: true, Data: payment})
}

// ListPayments handles GET /api/payments
func (h *PaymentRoutes) ListPayments(c *fiber.Ctx) error {
	ctx, cancel := h.callContext(c)
	defer cancel()

	resp, err := h.client.ListPayments(ctx, &pb.ListPaymentsRequest{})
	if err != nil {
		return respondError(c, err)
	}

	payments := resp.Payments
	if payments == nil {
		payments = []*pb.Payment{}
	}
	return c.JSON(Response{Success: true, Data: fiber.Map{"payments": payments, "total": len(payments)}})
}

// ProcessPayment handles POST /api/payments/:id/process
func (h *PaymentRoutes) ProcessPayment(c *fiber.Ctx) error {
	var req processPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Error: "Invalid request body"})
	}

	ctx, cancel := h.callContext(c)
	defer cancel()

	payment, err := h.client.ProcessPayment(ctx, &pb.ProcessPaymentRequest{
		PaymentID: c.Params("id"),
		Action:    req.Action,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(Response{Success: true, Message: "Payment " + payment.Status, Data: payment})
}

// HTTPStatus maps a payment service gRPC status to the REST status the service itself would return
func HTTPStatus(err error) int {
	switch status.Code(err) {
	case codes.OK:
		return fiber.StatusOK
	case codes.InvalidArgument:
		return fiber.StatusBadRequest
	case codes.Unauthenticated:
		return fiber.StatusUnauthorized
	case codes.PermissionDenied:
		return fiber.StatusForbidden
	case codes.NotFound:
		return fiber.StatusNotFound
	case codes.FailedPrecondition:
		return fiber.StatusConflict
	case codes.Aborted:
		return fiber.StatusBadGateway
	case codes.Unavailable:
		return fiber.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	code := HTTPStatus(err)
	message := status.Convert(err).Message()
	if code == fiber.StatusInternalServerError {
		message = "internal error"
	}

	event := logger.Warn(c.UserContext())
	if code >= fiber.StatusInternalServerError {
		event = logger.Error(c.UserContext())
	}
	event.Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("Payment service call failed")

	return c.Status(code).JSON(Response{Success: false, Error: message})
}
