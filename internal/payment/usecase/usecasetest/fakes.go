// Package usecasetest provides in-memory collaborators for handler tests.
package usecasetest

import (
	"context"
	"sync"

	"github.com/tair/payment-service/internal/payment/domain"
)

// Processor records calls and can be told to fail
type Processor struct {
	mu    sync.Mutex
	Calls []string
	Err   error
}

func (p *Processor) Name() string { return "fake" }

func (p *Processor) record(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, op)
	return p.Err
}

// CallCount returns how many adapter calls were made
func (p *Processor) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

func (p *Processor) CreatePayment(_ context.Context, req domain.ProcessorRequest) (domain.ProcessorResult, error) {
	if err := p.record("create"); err != nil {
		return domain.ProcessorResult{}, err
	}
	return domain.ProcessorResult{Reference: "fake_" + req.PaymentID, Status: "created"}, nil
}

func (p *Processor) Capture(_ context.Context, ref string) (domain.ProcessorResult, error) {
	return domain.ProcessorResult{Reference: ref, Status: "captured"}, p.record("capture:" + ref)
}

func (p *Processor) Refund(_ context.Context, ref string) (domain.ProcessorResult, error) {
	return domain.ProcessorResult{Reference: ref, Status: "refunded"}, p.record("refund:" + ref)
}

func (p *Processor) Cancel(_ context.Context, ref string) (domain.ProcessorResult, error) {
	return domain.ProcessorResult{Reference: ref, Status: "cancelled"}, p.record("cancel:" + ref)
}

func (p *Processor) VerifyWebhook(_ []byte, _ string) (*domain.WebhookEvent, error) {
	return nil, p.record("webhook")
}

// Event is a published lifecycle event
type Event struct {
	Type      string
	PaymentID string
	Status    domain.Status
	Action    domain.Action
	Previous  domain.Status
}

// Publisher collects published events
type Publisher struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (p *Publisher) PublishPaymentCreated(_ context.Context, payment *domain.Payment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Event{Type: "payment.created", PaymentID: payment.PaymentID, Status: payment.Status})
	return p.Err
}

func (p *Publisher) PublishPaymentProcessed(_ context.Context, payment *domain.Payment, action domain.Action, previous domain.Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Event{
		Type:      "payment.processed",
		PaymentID: payment.PaymentID,
		Status:    payment.Status,
		Action:    action,
		Previous:  previous,
	})
	return p.Err
}

// Snapshot returns a copy of the collected events
func (p *Publisher) Snapshot() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.Events...)
}
