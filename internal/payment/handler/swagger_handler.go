package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreatePayment godoc
// @Summary Create a new payment
// @Description Validates the request, registers it with the configured processor and stores it as pending
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{amount=string,currency=string,customer_id=string,payment_method=string,metadata=object} true "Payment data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /api/payments [post]
func (h *PaymentHandler) CreatePaymentDoc() {}

// GetPayment godoc
// @Summary Get payment by ID
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payments/{id} [get]
func (h *PaymentHandler) GetPaymentDoc() {}

// ListPayments godoc
// @Summary List all payments
// @Description Every payment in creation order
// @Tags Payments
// @Produce json
// @Success 200 {object} object{success=bool,data=object{payments=array,total=int}}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /api/payments [get]
func (h *PaymentHandler) ListPaymentsDoc() {}

// ProcessPayment godoc
// @Summary Capture, refund or cancel a payment
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body object{action=string,metadata=object} true "capture, refund or cancel"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments/{id}/process [post]
func (h *PaymentHandler) ProcessPaymentDoc() {}

// Webhook godoc
// @Summary Receive a processor webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "custom or stripe"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /webhooks/{provider} [post]
func (h *PaymentHandler) WebhookDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Description Store and cache reachability
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,data=object{status=string,store=string,cache=string}}
// @Failure 503 {object} object{success=bool,data=object{status=string,store=string,cache=string}}
// @Router /health [get]
func (h *PaymentHandler) HealthCheckDoc() {}
