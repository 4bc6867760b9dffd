package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/pkg/logger"
)

// CreatePaymentCommand represents the command to create a payment
type CreatePaymentCommand struct {
	Amount        string
	Currency      string
	CustomerID    string
	PaymentMethod string
	Metadata      map[string]any
}

// CreatePaymentHandler handles create payment command
type CreatePaymentHandler struct {
	repo      domain.PaymentRepository
	processor domain.PaymentProcessor
	publisher domain.EventPublisher
}

// NewCreatePaymentHandler creates a new create payment handler. publisher may be nil.
func NewCreatePaymentHandler(repo domain.PaymentRepository, processor domain.PaymentProcessor, publisher domain.EventPublisher) *CreatePaymentHandler {
	return &CreatePaymentHandler{repo: repo, processor: processor, publisher: publisher}
}

// Handle executes the create payment command
func (h *CreatePaymentHandler) Handle(ctx context.Context, cmd CreatePaymentCommand) (payment *domain.Payment, err error) {
	defer func() { observe("create", err) }()

	amount, err := domain.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(cmd.Currency); err != nil {
		return nil, err
	}
	if err := domain.RequireField("customer_id", cmd.CustomerID); err != nil {
		return nil, err
	}
	if err := domain.RequireField("payment_method", cmd.PaymentMethod); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	result, err := h.processor.CreatePayment(ctx, domain.ProcessorRequest{
		PaymentID:     id,
		Amount:        amount,
		Currency:      cmd.Currency,
		CustomerID:    cmd.CustomerID,
		PaymentMethod: cmd.PaymentMethod,
	})
	if err != nil {
		return nil, processorError(h.processor.Name(), "create", err)
	}

	metadata := make(datatypes.JSONMap, len(cmd.Metadata)+2)
	for k, v := range cmd.Metadata {
		metadata[k] = v
	}
	metadata[domain.MetadataProcessor] = h.processor.Name()
	metadata[domain.MetadataProcessorReference] = result.Reference

	payment = &domain.Payment{
		PaymentID:     id,
		Amount:        amount,
		Currency:      cmd.Currency,
		CustomerID:    cmd.CustomerID,
		PaymentMethod: cmd.PaymentMethod,
		Metadata:      metadata,
		Status:        domain.StatusPending,
		// PostgreSQL keeps microseconds
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := h.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("payment_id", payment.PaymentID).
		Str("amount", payment.AmountString()).
		Str("currency", payment.Currency).
		Str("customer_id", payment.CustomerID).
		Str("processor", h.processor.Name()).
		Msg("Payment created")

	if h.publisher != nil {
		if err := h.publisher.PublishPaymentCreated(ctx, payment); err != nil {
			logger.Warn(ctx).Err(err).Str("payment_id", payment.PaymentID).Msg("Failed to publish payment.created event")
		}
	}

	return payment, nil
}

func processorError(name, op string, err error) error {
	var pe *domain.ProcessorError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.ProcessorError{Processor: name, Op: op, Err: err}
}
