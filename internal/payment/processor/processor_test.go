package processor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/payment-service/internal/payment/domain"
)

func TestNewSelectsAdapter(t *testing.T) {
	p, err := New("", Config{})
	require.NoError(t, err)
	assert.Equal(t, NameCustom, p.Name())

	p, err = New(NameStripe, Config{StripeSecretKey: "sk_test"})
	require.NoError(t, err)
	assert.Equal(t, NameStripe, p.Name())

	_, err = New(NameStripe, Config{})
	assert.Error(t, err)

	_, err = New("paypal", Config{})
	assert.Error(t, err)
}

func TestCustomProcessorResults(t *testing.T) {
	ctx := context.Background()
	p := NewCustomProcessor("")

	res, err := p.CreatePayment(ctx, domain.ProcessorRequest{PaymentID: "p-1", Amount: decimal.NewFromInt(1), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "custom_p-1", res.Reference)

	res, err = p.Capture(ctx, "custom_p-1")
	require.NoError(t, err)
	assert.Equal(t, "captured", res.Status)

	res, err = p.Refund(ctx, "custom_p-1")
	require.NoError(t, err)
	assert.Equal(t, "refunded", res.Status)

	res, err = p.Cancel(ctx, "custom_p-1")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.Status)
}

func TestCustomProcessorHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCustomProcessor("").Capture(ctx, "ref")
	assert.ErrorIs(t, err, domain.ErrProcessor)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCustomWebhook(t *testing.T) {
	payload := []byte(`{"type":"payment.captured","data":{"payment_id":"p-1"}}`)

	signed := NewCustomProcessor("whsec")
	_, err := signed.VerifyWebhook(payload, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	event, err := signed.VerifyWebhook(payload, SignCustomPayload("whsec", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookPaymentCaptured, event.Type)
	assert.Equal(t, "p-1", event.PaymentID)
	action, ok := event.Action()
	assert.True(t, ok)
	assert.Equal(t, domain.ActionCapture, action)

	event, err = signed.VerifyWebhook([]byte(`{}`), SignCustomPayload("whsec", []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, "unknown", event.Type)
	_, ok = event.Action()
	assert.False(t, ok)
}

func TestCustomWebhookRequiresSecret(t *testing.T) {
	payload := []byte(`{"type":"payment.cancelled","data":{"payment_id":"p-1"}}`)

	for _, sig := range []string{"", "00", SignCustomPayload("", payload)} {
		_, err := NewCustomProcessor("").VerifyWebhook(payload, sig)
		assert.ErrorIs(t, err, ErrWebhooksDisabled)
		assert.ErrorIs(t, err, domain.ErrProcessor)
	}
}

func TestStripeCreateReturnsIntentReference(t *testing.T) {
	p, err := NewStripeProcessor("sk_test", "whsec", 0)
	require.NoError(t, err)

	res, err := p.CreatePayment(context.Background(), domain.ProcessorRequest{PaymentID: "p-1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Reference, "pi_"))

	_, err = p.Capture(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrProcessor)
}

func TestStripeWebhookSignature(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	p, err := NewStripeProcessor("sk_test", "whsec", 0)
	require.NoError(t, err)
	p.now = func() time.Time { return now }

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"payment_id":"p-1"}}}}`)

	event, err := p.VerifyWebhook(payload, SignStripePayload("whsec", payload, now.Add(-time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, domain.WebhookPaymentCaptured, event.Type)
	assert.Equal(t, "p-1", event.PaymentID)

	tests := map[string]string{
		"stale":       SignStripePayload("whsec", payload, now.Add(-10*time.Minute)),
		"wrong key":   SignStripePayload("other", payload, now),
		"malformed":   "v1=abc",
		"empty":       "",
		"bad t":       "t=abc,v1=00",
		"not hex sig": "t=1760000000,v1=zz",
	}
	for name, header := range tests {
		_, err := p.VerifyWebhook(payload, header)
		assert.ErrorIs(t, err, ErrInvalidSignature, name)
		assert.ErrorIs(t, err, domain.ErrProcessor, name)
	}
}

func TestStripeWebhookRequiresSecret(t *testing.T) {
	p, err := NewStripeProcessor("sk_test", "", 0)
	require.NoError(t, err)

	_, err = p.VerifyWebhook([]byte(`{}`), "t=1,v1=00")
	assert.ErrorIs(t, err, domain.ErrProcessor)
	assert.ErrorIs(t, err, ErrWebhooksDisabled)
}
