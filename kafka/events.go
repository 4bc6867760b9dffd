package kafka

import "time"

// PaymentEvent is published on every payment lifecycle change
type PaymentEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	PaymentID      string    `json:"payment_id"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	CustomerID     string    `json:"customer_id"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Action         string    `json:"action,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProcessRequestedEvent asks the service to capture, refund or cancel a payment
type ProcessRequestedEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	PaymentID string         `json:"payment_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Event types
const (
	EventTypePaymentCreated          = "payment.created"
	EventTypePaymentProcessed        = "payment.processed"
	EventTypePaymentProcessRequested = "payment.process.requested"
)

// Kafka topics
const (
	TopicPaymentEvents   = "payment-events"
	TopicPaymentCommands = "payment-commands"
)

// Header keys
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)
