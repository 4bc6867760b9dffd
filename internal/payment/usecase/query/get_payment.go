package query

import (
	"context"
	"errors"
	"strings"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/pkg/logger"
)

// GetPaymentQuery represents the query to get a payment
type GetPaymentQuery struct {
	PaymentID string
}

// GetPaymentHandler reads through the cache to the repository
type GetPaymentHandler struct {
	repo  domain.PaymentRepository
	cache domain.PaymentCache
}

// NewGetPaymentHandler creates a new get payment handler. cache may be nil.
func NewGetPaymentHandler(repo domain.PaymentRepository, cache domain.PaymentCache) *GetPaymentHandler {
	return &GetPaymentHandler{repo: repo, cache: cache}
}

// Handle executes the get payment query
func (h *GetPaymentHandler) Handle(ctx context.Context, query GetPaymentQuery) (*domain.Payment, error) {
	if strings.TrimSpace(query.PaymentID) == "" {
		return nil, &domain.ValidationError{Field: "payment_id", Reason: "payment_id is required"}
	}

	if h.cache != nil {
		payment, err := h.cache.Lookup(ctx, query.PaymentID)
		switch {
		case err == nil:
			return payment, nil
		case errors.Is(err, domain.ErrCacheMiss):
		default:
			logger.Warn(ctx).Err(err).Str("payment_id", query.PaymentID).Msg("Cache lookup failed, reading store")
		}
	}

	payment, err := h.repo.FindByID(ctx, query.PaymentID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Put(ctx, payment, domain.CacheTTL); err != nil {
			logger.Warn(ctx).Err(err).Str("payment_id", payment.PaymentID).Msg("Cache put failed")
		}
	}

	return payment, nil
}
