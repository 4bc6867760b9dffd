// Package processor holds the payment provider adapters.
// None of them talk to a real provider; they return deterministic results
// so the rest of the service can run end to end.
package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tair/payment-service/internal/payment/domain"
)

// Adapter names accepted by New
const (
	NameCustom = "custom"
	NameStripe = "stripe"
)

// ErrInvalidSignature is returned when a webhook signature does not verify
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrWebhooksDisabled is returned when no webhook secret is configured
var ErrWebhooksDisabled = errors.New("webhook secret is not configured")

// Config carries provider credentials
type Config struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	CustomWebhookSecret string
	// WebhookTolerance bounds the age of signed Stripe webhooks
	WebhookTolerance time.Duration
}

// New returns the adapter registered under name
func New(name string, cfg Config) (domain.PaymentProcessor, error) {
	switch name {
	case "", NameCustom:
		return NewCustomProcessor(cfg.CustomWebhookSecret), nil
	case NameStripe:
		return NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.WebhookTolerance)
	default:
		return nil, fmt.Errorf("unknown payment processor %q", name)
	}
}

func sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret, payload []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

func webhookError(processor string, err error) error {
	return &domain.ProcessorError{Processor: processor, Op: "webhook", Err: err}
}
