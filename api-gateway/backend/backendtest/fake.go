// Package backendtest provides an in-memory payment service client for gateway tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/tair/payment-service/api/payment/v1"
)

// Client is a pb.PaymentServiceClient backed by a map.
// Err, when set, is returned by every call.
type Client struct {
	mu       sync.Mutex
	payments map[string]*pb.Payment
	order    []string
	seq      int

	Err               error
	Health            *pb.HealthCheckResponse
	Calls             int
	LastAuthorization string
}

// NewClient returns an empty fake
func NewClient() *Client {
	return &Client{payments: make(map[string]*pb.Payment)}
}

func (c *Client) begin(ctx context.Context) error {
	c.Calls++
	c.LastAuthorization = ""
	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			c.LastAuthorization = values[0]
		}
	}
	return c.Err
}

func (c *Client) CreatePayment(ctx context.Context, in *pb.CreatePaymentRequest, _ ...grpc.CallOption) (*pb.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	if in.Amount == "" || in.Currency == "" {
		return nil, status.Error(codes.InvalidArgument, "amount and currency are required")
	}

	c.seq++
	p := &pb.Payment{
		PaymentID:     fmt.Sprintf("pay-%d", c.seq),
		Amount:        in.Amount,
		Currency:      in.Currency,
		CustomerID:    in.CustomerID,
		PaymentMethod: in.PaymentMethod,
		Metadata:      in.Metadata,
		Status:        "pending",
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	c.payments[p.PaymentID] = p
	c.order = append(c.order, p.PaymentID)
	return p, nil
}

func (c *Client) GetPayment(ctx context.Context, in *pb.GetPaymentRequest, _ ...grpc.CallOption) (*pb.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	p, ok := c.payments[in.PaymentID]
	if !ok {
		return nil, status.Error(codes.NotFound, "payment not found: "+in.PaymentID)
	}
	return p, nil
}

func (c *Client) ListPayments(ctx context.Context, _ *pb.ListPaymentsRequest, _ ...grpc.CallOption) (*pb.ListPaymentsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	out := &pb.ListPaymentsResponse{Payments: []*pb.Payment{}}
	for _, id := range c.order {
		out.Payments = append(out.Payments, c.payments[id])
	}
	out.Total = len(out.Payments)
	return out, nil
}

var transitions = map[string]map[string]string{
	"pending":  {"capture": "captured", "cancel": "cancelled"},
	"captured": {"refund": "refunded"},
}

func (c *Client) ProcessPayment(ctx context.Context, in *pb.ProcessPaymentRequest, _ ...grpc.CallOption) (*pb.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	switch in.Action {
	case "capture", "refund", "cancel":
	default:
		return nil, status.Error(codes.InvalidArgument, "invalid action: "+in.Action)
	}
	p, ok := c.payments[in.PaymentID]
	if !ok {
		return nil, status.Error(codes.NotFound, "payment not found: "+in.PaymentID)
	}
	next, ok := transitions[p.Status][in.Action]
	if !ok {
		return nil, status.Errorf(codes.FailedPrecondition, "cannot %s payment %s in status %s", in.Action, p.PaymentID, p.Status)
	}
	p.Status = next
	p.ProcessedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return p, nil
}

func (c *Client) HealthCheck(ctx context.Context, _ *pb.HealthCheckRequest, _ ...grpc.CallOption) (*pb.HealthCheckResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	if c.Health != nil {
		return c.Health, nil
	}
	return &pb.HealthCheckResponse{Status: "ok", Store: "up", Cache: "disabled", Timestamp: time.Now().UTC().Format(time.RFC3339)}, nil
}

// CallCount returns how many calls reached the fake
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls
}

// Authorization returns the authorization metadata of the last call
func (c *Client) Authorization() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LastAuthorization
}

// SetErr makes every following call fail with err
func (c *Client) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}
