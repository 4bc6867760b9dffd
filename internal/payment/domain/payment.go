package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Metadata keys written by the service itself
const (
	MetadataProcessor          = "processor"
	MetadataProcessorReference = "processor_reference"
)

// CacheTTL is how long a cached payment stays valid after its last put
const CacheTTL = 5 * time.Minute

// maxAmount is the largest value numeric(12,2) can hold
var maxAmount = decimal.RequireFromString("9999999999.99")

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	amountPattern   = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// Payment represents the payment entity
type Payment struct {
	PaymentID     string            `json:"payment_id" gorm:"column:payment_id;primaryKey;type:varchar(36)"`
	Amount        decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency      string            `json:"currency" gorm:"type:varchar(3);not null"`
	CustomerID    string            `json:"customer_id" gorm:"not null;index"`
	PaymentMethod string            `json:"payment_method" gorm:"not null"`
	Metadata      datatypes.JSONMap `json:"metadata"`
	Status        Status            `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;index"`
	ProcessedAt   *time.Time        `json:"processed_at"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

// AmountString renders the amount with exactly two fraction digits
func (p *Payment) AmountString() string {
	return p.Amount.StringFixed(2)
}

// ProcessorReference returns the id the processor assigned at creation, or the payment id
func (p *Payment) ProcessorReference() string {
	if ref, ok := p.Metadata[MetadataProcessorReference].(string); ok && ref != "" {
		return ref
	}
	return p.PaymentID
}

// Clone returns a deep enough copy for callers that mutate metadata
func (p *Payment) Clone() *Payment {
	cp := *p
	cp.Metadata = make(datatypes.JSONMap, len(p.Metadata))
	for k, v := range p.Metadata {
		cp.Metadata[k] = v
	}
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		cp.ProcessedAt = &t
	}
	return &cp
}

type paymentJSON struct {
	PaymentID     string         `json:"payment_id"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	CustomerID    string         `json:"customer_id"`
	PaymentMethod string         `json:"payment_method"`
	Metadata      map[string]any `json:"metadata"`
	Status        Status         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ProcessedAt   *time.Time     `json:"processed_at"`
}

// MarshalJSON keeps the amount a fixed-point string on every JSON boundary
func (p Payment) MarshalJSON() ([]byte, error) {
	metadata := map[string]any(p.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	return json.Marshal(paymentJSON{
		PaymentID:     p.PaymentID,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		CustomerID:    p.CustomerID,
		PaymentMethod: p.PaymentMethod,
		Metadata:      metadata,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
		ProcessedAt:   p.ProcessedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (p *Payment) UnmarshalJSON(data []byte) error {
	var raw paymentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", raw.Amount, err)
	}

	*p = Payment{
		PaymentID:     raw.PaymentID,
		Amount:        amount,
		Currency:      raw.Currency,
		CustomerID:    raw.CustomerID,
		PaymentMethod: raw.PaymentMethod,
		Metadata:      datatypes.JSONMap(raw.Metadata),
		Status:        raw.Status,
		CreatedAt:     raw.CreatedAt,
		ProcessedAt:   raw.ProcessedAt,
	}
	if p.Metadata == nil {
		p.Metadata = datatypes.JSONMap{}
	}
	return nil
}

// ParseAmount parses a plain decimal string (digits, optionally a dot and one or two
// fraction digits) into a non-negative amount
func ParseAmount(raw string) (decimal.Decimal, error) {
	invalid := &ValidationError{Field: "amount", Value: raw, Reason: "invalid amount"}

	s := strings.TrimSpace(raw)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, invalid
	}

	amount, err := decimal.NewFromString(s)
	if err != nil || amount.GreaterThan(maxAmount) {
		return decimal.Zero, invalid
	}

	return amount.Round(2), nil
}

// ValidateCurrency checks for a three-letter upper-case code
func ValidateCurrency(currency string) error {
	if !currencyPattern.MatchString(currency) {
		return &ValidationError{Field: "currency", Value: currency, Reason: "invalid currency code"}
	}
	return nil
}

// RequireField rejects blank values of required string fields
func RequireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: field + " is required"}
	}
	return nil
}
