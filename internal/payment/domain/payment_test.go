package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseAmount(t *testing.T) {
	valid := map[string]string{
		"0":             "0.00",
		"10":            "10.00",
		"10.5":          "10.50",
		"99.99":         "99.99",
		" 1.00 ":        "1.00",
		"9999999999.99": "9999999999.99",
	}
	for raw, want := range valid {
		amount, err := ParseAmount(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, amount.StringFixed(2), raw)
	}

	for _, raw := range []string{
		"", "abc", "-5.00", "1.005", "1.230", "10000000000.00", "1,00",
		"1e2", "1E2", "+5", ".50", "5.", "0x10", "1_000",
	} {
		_, err := ParseAmount(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestParseAmountMessage(t *testing.T) {
	_, err := ParseAmount("-10.00")
	require.Error(t, err)
	assert.Equal(t, "invalid amount: -10.00", err.Error())
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.NoError(t, ValidateCurrency("EUR"))

	for _, c := range []string{"usd", "US", "USDT", "", "U5D"} {
		assert.ErrorIs(t, ValidateCurrency(c), ErrValidation, c)
	}

	err := ValidateCurrency("usd")
	assert.Equal(t, "invalid currency code: usd", err.Error())
}

func TestRequireField(t *testing.T) {
	assert.NoError(t, RequireField("customer_id", "cust_1"))

	err := RequireField("customer_id", "   ")
	require.Error(t, err)
	assert.Equal(t, "customer_id is required", err.Error())

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "customer_id", validationErr.Field)
}

func TestPaymentJSONKeepsAmountAsString(t *testing.T) {
	processed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Payment{
		PaymentID:     "p-1",
		Amount:        decimal.RequireFromString("10.5"),
		Currency:      "USD",
		CustomerID:    "c-1",
		PaymentMethod: "card",
		Metadata:      datatypes.JSONMap{"order": "o-1"},
		Status:        StatusCaptured,
		CreatedAt:     processed.Add(-time.Hour),
		ProcessedAt:   &processed,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":"10.50"`)

	var back Payment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.Amount.Equal(back.Amount))
	assert.Equal(t, p.Metadata, back.Metadata)
	assert.Equal(t, StatusCaptured, back.Status)
	require.NotNil(t, back.ProcessedAt)
	assert.True(t, processed.Equal(*back.ProcessedAt))
}

func TestProcessorReferenceFallsBackToID(t *testing.T) {
	p := &Payment{PaymentID: "p-1"}
	assert.Equal(t, "p-1", p.ProcessorReference())

	p.Metadata = datatypes.JSONMap{MetadataProcessorReference: "custom_p-1"}
	assert.Equal(t, "custom_p-1", p.ProcessorReference())
}

func TestCloneIsIndependent(t *testing.T) {
	p := &Payment{PaymentID: "p-1", Metadata: datatypes.JSONMap{"a": "1"}}
	cp := p.Clone()
	cp.Metadata["a"] = "2"
	assert.Equal(t, "1", p.Metadata["a"])
}
