package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	pb "github.com/tair/payment-service/api/payment/v1"
	"github.com/tair/payment-service/pkg/logger"
)

// DefaultTimeout bounds every call that arrives without a deadline
const DefaultTimeout = 5 * time.Second

// PaymentServiceClient wraps the gRPC client for the payment service.
// It satisfies pb.PaymentServiceClient.
type PaymentServiceClient struct {
	client  pb.PaymentServiceClient
	conn    *grpc.ClientConn
	address string
	timeout time.Duration
}

// NewPaymentServiceClient creates a client for the payment service at address.
// The connection is established lazily on the first call.
func NewPaymentServiceClient(address string, opts ...grpc.DialOption) (*PaymentServiceClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment service client for %s: %w", address, err)
	}

	logger.Logger.Info().
		Str("address", address).
		Msg("Payment service gRPC client created")

	return &PaymentServiceClient{
		client:  pb.NewPaymentServiceClient(conn),
		conn:    conn,
		address: address,
		timeout: DefaultTimeout,
	}, nil
}

// Address returns the target this client dials
func (c *PaymentServiceClient) Address() string {
	return c.address
}

// Close closes the gRPC connection
func (c *PaymentServiceClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// WithToken forwards a bearer token to the payment service
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (c *PaymentServiceClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *PaymentServiceClient) CreatePayment(ctx context.Context, in *pb.CreatePaymentRequest, opts ...grpc.CallOption) (*pb.Payment, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.CreatePayment(ctx, in, opts...)
}

func (c *PaymentServiceClient) GetPayment(ctx context.Context, in *pb.GetPaymentRequest, opts ...grpc.CallOption) (*pb.Payment, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.GetPayment(ctx, in, opts...)
}

func (c *PaymentServiceClient) ListPayments(ctx context.Context, in *pb.ListPaymentsRequest, opts ...grpc.CallOption) (*pb.ListPaymentsResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.ListPayments(ctx, in, opts...)
}

func (c *PaymentServiceClient) ProcessPayment(ctx context.Context, in *pb.ProcessPaymentRequest, opts ...grpc.CallOption) (*pb.Payment, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.ProcessPayment(ctx, in, opts...)
}

func (c *PaymentServiceClient) HealthCheck(ctx context.Context, in *pb.HealthCheckRequest, opts ...grpc.CallOption) (*pb.HealthCheckResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.HealthCheck(ctx, in, opts...)
}
