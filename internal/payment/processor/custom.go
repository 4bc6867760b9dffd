package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tair/payment-service/internal/payment/domain"
)

// CustomProcessor is the in-house gateway
type CustomProcessor struct {
	webhookSecret []byte
}

func NewCustomProcessor(webhookSecret string) *CustomProcessor {
	p := &CustomProcessor{}
	if webhookSecret != "" {
		p.webhookSecret = []byte(webhookSecret)
	}
	return p
}

func (p *CustomProcessor) Name() string { return NameCustom }

func (p *CustomProcessor) CreatePayment(ctx context.Context, req domain.ProcessorRequest) (domain.ProcessorResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProcessorResult{}, &domain.ProcessorError{Processor: NameCustom, Op: "create", Err: err}
	}
	return domain.ProcessorResult{Reference: "custom_" + req.PaymentID, Status: "created"}, nil
}

func (p *CustomProcessor) Capture(ctx context.Context, reference string) (domain.ProcessorResult, error) {
	return p.transition(ctx, "capture", reference, "captured")
}

func (p *CustomProcessor) Refund(ctx context.Context, reference string) (domain.ProcessorResult, error) {
	return p.transition(ctx, "refund", reference, "refunded")
}

func (p *CustomProcessor) Cancel(ctx context.Context, reference string) (domain.ProcessorResult, error) {
	return p.transition(ctx, "cancel", reference, "cancelled")
}

func (p *CustomProcessor) transition(ctx context.Context, op, reference, status string) (domain.ProcessorResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProcessorResult{}, &domain.ProcessorError{Processor: NameCustom, Op: op, Err: err}
	}
	return domain.ProcessorResult{Reference: reference, Status: status}, nil
}

type customWebhook struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// VerifyWebhook checks the hex HMAC-SHA256 signature.
// Without a secret every webhook is refused.
func (p *CustomProcessor) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if p.webhookSecret == nil {
		return nil, webhookError(NameCustom, ErrWebhooksDisabled)
	}
	if !validSignature(p.webhookSecret, payload, signature) {
		return nil, webhookError(NameCustom, ErrInvalidSignature)
	}

	var body customWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, webhookError(NameCustom, fmt.Errorf("decode payload: %w", err))
	}

	event := &domain.WebhookEvent{ID: body.ID, Type: body.Type, Data: body.Data}
	if event.Type == "" {
		event.Type = "unknown"
	}
	if event.Data == nil {
		event.Data = map[string]any{}
	}
	if id, ok := event.Data["payment_id"].(string); ok {
		event.PaymentID = id
	}
	return event, nil
}
