package query

import (
	"context"

	"github.com/tair/payment-service/internal/payment/domain"
)

// ListPaymentsQuery represents the query to list payments
type ListPaymentsQuery struct{}

// ListPaymentsHandler returns every payment straight from the repository
type ListPaymentsHandler struct {
	repo domain.PaymentRepository
}

// NewListPaymentsHandler creates a new list payments handler
func NewListPaymentsHandler(repo domain.PaymentRepository) *ListPaymentsHandler {
	return &ListPaymentsHandler{repo: repo}
}

// Handle executes the list payments query
func (h *ListPaymentsHandler) Handle(ctx context.Context, _ ListPaymentsQuery) ([]*domain.Payment, error) {
	return h.repo.FindAll(ctx)
}
