// Package paymentv1 defines the payment.v1 gRPC API.
//
// Messages are plain Go structs carried by the JSON codec registered in
// codec.go; clients select it with grpc.CallContentSubtype(CodecName).
package paymentv1

// Payment is the wire form of a payment record
type Payment struct {
	PaymentID     string         `json:"payment_id"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	CustomerID    string         `json:"customer_id"`
	PaymentMethod string         `json:"payment_method"`
	Metadata      map[string]any `json:"metadata"`
	Status        string         `json:"status"`
	// RFC 3339
	CreatedAt string `json:"created_at"`
	// RFC 3339, empty until the first transition
	ProcessedAt string `json:"processed_at,omitempty"`
}

type CreatePaymentRequest struct {
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	CustomerID    string         `json:"customer_id"`
	PaymentMethod string         `json:"payment_method"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type GetPaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type ListPaymentsRequest struct{}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
	Total    int        `json:"total"`
}

type ProcessPaymentRequest struct {
	PaymentID string         `json:"payment_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Cache     string `json:"cache"`
	Timestamp string `json:"timestamp"`
}
