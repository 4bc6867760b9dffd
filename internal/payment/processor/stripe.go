package processor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tair/payment-service/internal/payment/domain"
)

// DefaultWebhookTolerance is the maximum age of a signed Stripe webhook
const DefaultWebhookTolerance = 5 * time.Minute

// stripeEventTypes maps Stripe event names onto the service's webhook types
var stripeEventTypes = map[string]string{
	"payment_intent.succeeded": domain.WebhookPaymentCaptured,
	"payment_intent.canceled":  domain.WebhookPaymentCancelled,
	"charge.refunded":          domain.WebhookPaymentRefunded,
}

// StripeProcessor mimics the PaymentIntent flow without calling Stripe
type StripeProcessor struct {
	apiKey        string
	webhookSecret []byte
	tolerance     time.Duration
	now           func() time.Time
}

func NewStripeProcessor(apiKey, webhookSecret string, tolerance time.Duration) (*StripeProcessor, error) {
	if apiKey == "" {
		return nil, errors.New("stripe processor requires STRIPE_SECRET_KEY")
	}
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}
	return &StripeProcessor{
		apiKey:        apiKey,
		webhookSecret: []byte(webhookSecret),
		tolerance:     tolerance,
		now:           time.Now,
	}, nil
}

func (p *StripeProcessor) Name() string { return NameStripe }

func (p *StripeProcessor) CreatePayment(ctx context.Context, req domain.ProcessorRequest) (domain.ProcessorResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProcessorResult{}, &domain.ProcessorError{Processor: NameStripe, Op: "create", Err: err}
	}

	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return domain.ProcessorResult{}, &domain.ProcessorError{Processor: NameStripe, Op: "create", Err: err}
	}
	return domain.ProcessorResult{Reference: "pi_" + hex.EncodeToString(buf), Status: "requires_capture"}, nil
}

func (p *StripeProcessor) Capture(ctx context.Context, reference string) (domain.ProcessorResult, error) {
	return p.intent(ctx, "capture", reference, "succeeded")
}

func (p *StripeProcessor) Refund(ctx context.Context, reference string) (domain.ProcessorResult, error) {
	return p.intent(ctx, "refund", reference, "refunded")
}

func (p *StripeProcessor) Cancel(ctx context.Context, reference string) (domain.ProcessorResult, error) {
	return p.intent(ctx, "cancel", reference, "canceled")
}

func (p *StripeProcessor) intent(ctx context.Context, op, reference, status string) (domain.ProcessorResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProcessorResult{}, &domain.ProcessorError{Processor: NameStripe, Op: op, Err: err}
	}
	if reference == "" {
		return domain.ProcessorResult{}, &domain.ProcessorError{Processor: NameStripe, Op: op, Err: errors.New("missing payment intent reference")}
	}
	return domain.ProcessorResult{Reference: reference, Status: status}, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object map[string]any `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks a Stripe-Signature header of the form t=<unix>,v1=<hex>
func (p *StripeProcessor) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if len(p.webhookSecret) == 0 {
		return nil, webhookError(NameStripe, ErrWebhooksDisabled)
	}
	if err := p.verifySignature(payload, signature); err != nil {
		return nil, webhookError(NameStripe, err)
	}

	var body stripeEvent
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, webhookError(NameStripe, fmt.Errorf("decode payload: %w", err))
	}

	event := &domain.WebhookEvent{ID: body.ID, Type: body.Type, Data: body.Data.Object}
	if mapped, ok := stripeEventTypes[body.Type]; ok {
		event.Type = mapped
	}
	if event.Data == nil {
		event.Data = map[string]any{}
	}
	if md, ok := event.Data["metadata"].(map[string]any); ok {
		if id, ok := md["payment_id"].(string); ok {
			event.PaymentID = id
		}
	}
	if event.PaymentID == "" {
		if id, ok := event.Data["payment_id"].(string); ok {
			event.PaymentID = id
		}
	}
	return event, nil
}

func (p *StripeProcessor) verifySignature(payload []byte, header string) error {
	var (
		timestamp  int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	age := p.now().Sub(time.Unix(timestamp, 0))
	if age > p.tolerance || age < -p.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	signed := append([]byte(strconv.FormatInt(timestamp, 10)+"."), payload...)
	for _, sig := range signatures {
		if validSignature(p.webhookSecret, signed, sig) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// SignStripePayload builds a Stripe-Signature header for payload at ts
func SignStripePayload(secret string, payload []byte, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	signed := append([]byte(unix+"."), payload...)
	return "t=" + unix + ",v1=" + sign([]byte(secret), signed)
}

// SignCustomPayload builds the signature header expected by the custom processor
func SignCustomPayload(secret string, payload []byte) string {
	return sign([]byte(secret), payload)
}
