package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/pkg/logger"
)

// maxTransitionAttempts bounds re-evaluation after losing a concurrent update
const maxTransitionAttempts = 3

// reservedMetadata keys are owned by the service and never overwritten by callers
var reservedMetadata = map[string]bool{
	domain.MetadataProcessor:          true,
	domain.MetadataProcessorReference: true,
}

// ProcessPaymentCommand represents a capture, refund or cancel request
type ProcessPaymentCommand struct {
	PaymentID string
	Action    string
	Metadata  map[string]any
}

// ProcessPaymentHandler drives a payment through the state machine
type ProcessPaymentHandler struct {
	repo      domain.PaymentRepository
	cache     domain.PaymentCache
	processor domain.PaymentProcessor
	publisher domain.EventPublisher
}

// NewProcessPaymentHandler creates a new process payment handler. cache and publisher may be nil.
func NewProcessPaymentHandler(
	repo domain.PaymentRepository,
	cache domain.PaymentCache,
	processor domain.PaymentProcessor,
	publisher domain.EventPublisher,
) *ProcessPaymentHandler {
	return &ProcessPaymentHandler{repo: repo, cache: cache, processor: processor, publisher: publisher}
}

// Handle executes the process payment command
func (h *ProcessPaymentHandler) Handle(ctx context.Context, cmd ProcessPaymentCommand) (payment *domain.Payment, err error) {
	defer func() { observe("process", err) }()

	if strings.TrimSpace(cmd.PaymentID) == "" {
		return nil, &domain.ValidationError{Field: "payment_id", Reason: "payment_id is required"}
	}
	action, err := domain.ParseAction(cmd.Action)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		current, err := h.repo.FindByID(ctx, cmd.PaymentID)
		if err != nil {
			return nil, err
		}

		next, err := domain.NextStatus(current.Status, action)
		if err != nil {
			var transitionErr *domain.InvalidTransitionError
			if errors.As(err, &transitionErr) {
				transitionErr.PaymentID = current.PaymentID
			}
			logger.Info(ctx).
				Str("payment_id", current.PaymentID).
				Str("status", string(current.Status)).
				Str("action", string(action)).
				Bool("replay", transitionErr != nil && transitionErr.Replay).
				Msg("Payment transition rejected")
			return nil, err
		}

		if attempt > maxTransitionAttempts {
			return nil, &domain.StorageUnavailableError{
				Op:  "transition",
				Err: fmt.Errorf("%w after %d attempts", domain.ErrStatusChanged, maxTransitionAttempts),
			}
		}

		reference := current.ProcessorReference()
		updated, err := h.repo.TransitionStatus(ctx, current.PaymentID, current.Status, next,
			time.Now().UTC().Truncate(time.Microsecond), mergeMetadata(current.Metadata, cmd.Metadata),
			func(ctx context.Context) error { return h.callProcessor(ctx, action, reference) })
		if errors.Is(err, domain.ErrStatusChanged) {
			paymentConflictsTotal.Inc()
			logger.Warn(ctx).
				Str("payment_id", current.PaymentID).
				Str("status", string(current.Status)).
				Int("attempt", attempt).
				Msg("Payment status changed concurrently, re-evaluating")
			continue
		}
		if err != nil {
			return nil, err
		}

		paymentTransitionsTotal.WithLabelValues(string(current.Status), string(updated.Status)).Inc()
		logger.Info(ctx).
			Str("payment_id", updated.PaymentID).
			Str("action", string(action)).
			Str("from", string(current.Status)).
			Str("status", string(updated.Status)).
			Msg("Payment processed")

		h.refreshCache(ctx, updated)

		if h.publisher != nil {
			if err := h.publisher.PublishPaymentProcessed(ctx, updated, action, current.Status); err != nil {
				logger.Warn(ctx).Err(err).Str("payment_id", updated.PaymentID).Msg("Failed to publish payment.processed event")
			}
		}
		return updated, nil
	}
}

func (h *ProcessPaymentHandler) callProcessor(ctx context.Context, action domain.Action, reference string) error {
	var err error
	switch action {
	case domain.ActionCapture:
		_, err = h.processor.Capture(ctx, reference)
	case domain.ActionRefund:
		_, err = h.processor.Refund(ctx, reference)
	case domain.ActionCancel:
		_, err = h.processor.Cancel(ctx, reference)
	}
	if err != nil {
		return processorError(h.processor.Name(), string(action), err)
	}
	return nil
}

// refreshCache drops the stale entry and writes the committed record through.
// The put is rank guarded, so a concurrent read-through cannot bring back the old status.
func (h *ProcessPaymentHandler) refreshCache(ctx context.Context, payment *domain.Payment) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, payment.PaymentID); err != nil {
		logger.Warn(ctx).Err(err).Str("payment_id", payment.PaymentID).Msg("Cache invalidate failed")
	}
	if err := h.cache.Put(ctx, payment, domain.CacheTTL); err != nil {
		logger.Warn(ctx).Err(err).Str("payment_id", payment.PaymentID).Msg("Cache put failed")
	}
}

func mergeMetadata(current map[string]any, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(current)+len(extra))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range extra {
		if reservedMetadata[k] {
			continue
		}
		merged[k] = v
	}
	return merged
}
