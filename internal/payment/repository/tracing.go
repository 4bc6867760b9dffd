package repository

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tair/payment-service/internal/payment/domain"
)

var tracer = otel.Tracer("payment-repository")

// GormPaymentRepositoryWithTracing wraps GormPaymentRepository with tracing
type GormPaymentRepositoryWithTracing struct {
	*GormPaymentRepository
}

// NewGormPaymentRepositoryWithTracing creates a new repository with tracing
func NewGormPaymentRepositoryWithTracing(db *gorm.DB) *GormPaymentRepositoryWithTracing {
	return &GormPaymentRepositoryWithTracing{
		GormPaymentRepository: NewGormPaymentRepository(db),
	}
}

// Create with tracing
func (r *GormPaymentRepositoryWithTracing) Create(ctx context.Context, payment *domain.Payment) error {
	ctx, span := tracer.Start(ctx, "repository.Create",
		trace.WithAttributes(
			attribute.String("payment.id", payment.PaymentID),
			attribute.String("payment.amount", payment.AmountString()),
			attribute.String("payment.currency", payment.Currency),
			attribute.String("payment.customer_id", payment.CustomerID),
		),
	)
	defer span.End()

	err := r.GormPaymentRepository.Create(ctx, payment)
	if err != nil {
		addDBErrorToSpan(span, err)
		return err
	}
	return nil
}

// FindByID with tracing
func (r *GormPaymentRepositoryWithTracing) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.String("payment.id", id)),
	)
	defer span.End()

	payment, err := r.GormPaymentRepository.FindByID(ctx, id)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("payment.status", string(payment.Status)))
	return payment, nil
}

// FindAll with tracing
func (r *GormPaymentRepositoryWithTracing) FindAll(ctx context.Context) ([]*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindAll")
	defer span.End()

	payments, err := r.GormPaymentRepository.FindAll(ctx)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(payments)))
	return payments, nil
}

// TransitionStatus with tracing
func (r *GormPaymentRepositoryWithTracing) TransitionStatus(ctx context.Context, id string, from, to domain.Status, processedAt time.Time, metadata map[string]any, apply domain.TransitionFunc) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.TransitionStatus",
		trace.WithAttributes(
			attribute.String("payment.id", id),
			attribute.String("status.from", string(from)),
			attribute.String("status.to", string(to)),
		),
	)
	defer span.End()

	payment, err := r.GormPaymentRepository.TransitionStatus(ctx, id, from, to, processedAt, metadata, apply)
	if err != nil {
		if errors.Is(err, domain.ErrStatusChanged) {
			span.SetAttributes(attribute.Bool("status.conflict", true))
		}
		addDBErrorToSpan(span, err)
		return nil, err
	}
	return payment, nil
}

// Ping with tracing
func (r *GormPaymentRepositoryWithTracing) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "repository.Ping")
	defer span.End()

	err := r.GormPaymentRepository.Ping(ctx)
	addDBErrorToSpan(span, err)
	return err
}

// addDBErrorToSpan marks the span failed unless err is an expected lookup outcome
func addDBErrorToSpan(span trace.Span, err error) {
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
