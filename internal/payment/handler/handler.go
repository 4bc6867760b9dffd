package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/usecase"
	"github.com/tair/payment-service/internal/payment/usecase/command"
	"github.com/tair/payment-service/internal/payment/usecase/query"
	"github.com/tair/payment-service/pkg/logger"
)

// maxBodyBytes caps request and webhook payloads
const maxBodyBytes = 1 << 20

// PaymentHandler handles HTTP requests for payments using CQRS pattern
type PaymentHandler struct {
	createHandler  *command.CreatePaymentHandler
	processHandler *command.ProcessPaymentHandler

	getHandler    *query.GetPaymentHandler
	listHandler   *query.ListPaymentsHandler
	healthHandler *query.HealthCheckHandler

	processor domain.PaymentProcessor
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(handlers *usecase.Handlers, processor domain.PaymentProcessor) *PaymentHandler {
	return &PaymentHandler{
		createHandler:  handlers.Commands.CreateHandler,
		processHandler: handlers.Commands.ProcessHandler,
		getHandler:     handlers.Queries.GetHandler,
		listHandler:    handlers.Queries.ListHandler,
		healthHandler:  handlers.Queries.HealthHandler,
		processor:      processor,
	}
}

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

// CreatePayment handles POST /api/payments
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	payment, err := h.createHandler.Handle(r.Context(), command.CreatePaymentCommand{
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment created successfully",
		Data:    payment,
	})
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.getHandler.Handle(r.Context(), query.GetPaymentQuery{PaymentID: mux.Vars(r)["id"]})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: payment})
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.listHandler.Handle(r.Context(), query.ListPaymentsQuery{})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if payments == nil {
		payments = []*domain.Payment{}
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"payments": payments,
			"total":    len(payments),
		},
	})
}

// ProcessPayment handles POST /api/payments/{id}/process
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	payment, err := h.processHandler.Handle(r.Context(), command.ProcessPaymentCommand{
		PaymentID: mux.Vars(r)["id"],
		Action:    req.Action,
		Metadata:  req.Metadata,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Payment " + string(payment.Status),
		Data:    payment,
	})
}

// HealthCheck handles GET /health
func (h *PaymentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.healthHandler.Handle(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, Response{
		Success: report.Healthy(),
		Data:    report,
	})
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router, config MiddlewareConfig) {
	protect := config.GetAuthMiddleware()

	router.HandleFunc("/api/payments", protect(h.CreatePayment)).Methods(http.MethodPost)
	router.HandleFunc("/api/payments", h.ListPayments).Methods(http.MethodGet)
	router.HandleFunc("/api/payments/{id}", h.GetPayment).Methods(http.MethodGet)
	router.HandleFunc("/api/payments/{id}/process", protect(h.ProcessPayment)).Methods(http.MethodPost)
	router.HandleFunc("/webhooks/{provider}", h.Webhook).Methods(http.MethodPost)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// StatusOf maps a domain error onto an HTTP status code
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProcessor):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "Internal server error"
	case http.StatusServiceUnavailable:
		msg = "Storage unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondJSON(w, status, Response{Success: false, Error: msg})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
