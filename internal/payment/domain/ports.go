package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRepository defines the durable store of payments
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	FindAll(ctx context.Context) ([]*Payment, error)
	// TransitionStatus moves the payment from one status to another only if it is still in from.
	// It returns ErrStatusChanged when the precondition no longer holds.
	// apply, when set, runs once the precondition is won and before commit;
	// its error is returned unchanged and the status stays at from.
	TransitionStatus(ctx context.Context, id string, from, to Status, processedAt time.Time, metadata map[string]any, apply TransitionFunc) (*Payment, error)
	Ping(ctx context.Context) error
}

// TransitionFunc is the side effect bound to a status transition
type TransitionFunc func(ctx context.Context) error

// PaymentCache is the advisory read cache in front of point lookups
type PaymentCache interface {
	Lookup(ctx context.Context, id string) (*Payment, error)
	Put(ctx context.Context, payment *Payment, ttl time.Duration) error
	Invalidate(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// ProcessorRequest carries what a processor needs to register a payment
type ProcessorRequest struct {
	PaymentID     string
	Amount        decimal.Decimal
	Currency      string
	CustomerID    string
	PaymentMethod string
}

// ProcessorResult is the outcome of a processor call
type ProcessorResult struct {
	Reference string
	Status    string
}

// WebhookEvent is a verified notification sent by a processor
type WebhookEvent struct {
	ID        string
	Type      string
	PaymentID string
	Data      map[string]any
}

// PaymentProcessor is a payment provider adapter
type PaymentProcessor interface {
	Name() string
	CreatePayment(ctx context.Context, req ProcessorRequest) (ProcessorResult, error)
	Capture(ctx context.Context, reference string) (ProcessorResult, error)
	Refund(ctx context.Context, reference string) (ProcessorResult, error)
	Cancel(ctx context.Context, reference string) (ProcessorResult, error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// EventPublisher publishes payment lifecycle events
type EventPublisher interface {
	PublishPaymentCreated(ctx context.Context, payment *Payment) error
	PublishPaymentProcessed(ctx context.Context, payment *Payment, action Action, previous Status) error
}

// Webhook event types that move a payment
const (
	WebhookPaymentCaptured  = "payment.captured"
	WebhookPaymentRefunded  = "payment.refunded"
	WebhookPaymentCancelled = "payment.cancelled"
)

// Action returns the Process action the event asks for, if any
func (e *WebhookEvent) Action() (Action, bool) {
	switch e.Type {
	case WebhookPaymentCaptured:
		return ActionCapture, true
	case WebhookPaymentRefunded:
		return ActionRefund, true
	case WebhookPaymentCancelled:
		return ActionCancel, true
	}
	return "", false
}
