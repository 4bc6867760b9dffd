package backend

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tair/payment-service/api-gateway/loadbalancer"
	"github.com/tair/payment-service/api-gateway/middleware"
	pb "github.com/tair/payment-service/api/payment/v1"
)

// ErrNoBackends is returned when no payment service address is configured
var ErrNoBackends = errors.New("no payment backends configured")

// Backend is one payment service instance behind its own circuit breaker
type Backend struct {
	Address string
	Client  pb.PaymentServiceClient
	Breaker *middleware.CircuitBreaker
}

// Pool spreads calls over its backends round-robin. It satisfies pb.PaymentServiceClient.
type Pool struct {
	lb *loadbalancer.RoundRobin[*Backend]
}

// NewPool creates a pool over backends
func NewPool(backends []*Backend) *Pool {
	return &Pool{lb: loadbalancer.NewRoundRobin(backends)}
}

// Backends returns the pool members
func (p *Pool) Backends() []*Backend {
	return p.lb.Members()
}

// call runs fn against the next backend through its breaker.
// An open breaker surfaces as Unavailable so callers map it like any unreachable backend.
func call[T any](ctx context.Context, p *Pool, fn func(pb.PaymentServiceClient) (T, error)) (T, error) {
	var out T
	b, ok := p.lb.Next()
	if !ok {
		return out, status.Error(codes.Unavailable, ErrNoBackends.Error())
	}

	err := b.Breaker.Call(func() error {
		var err error
		out, err = fn(b.Client)
		return err
	})
	if errors.Is(err, middleware.ErrCircuitOpen) {
		return out, status.Error(codes.Unavailable, err.Error())
	}
	return out, err
}

func (p *Pool) CreatePayment(ctx context.Context, in *pb.CreatePaymentRequest, opts ...grpc.CallOption) (*pb.Payment, error) {
	return call(ctx, p, func(c pb.PaymentServiceClient) (*pb.Payment, error) {
		return c.CreatePayment(ctx, in, opts...)
	})
}

func (p *Pool) GetPayment(ctx context.Context, in *pb.GetPaymentRequest, opts ...grpc.CallOption) (*pb.Payment, error) {
	return call(ctx, p, func(c pb.PaymentServiceClient) (*pb.Payment, error) {
		return c.GetPayment(ctx, in, opts...)
	})
}

func (p *Pool) ListPayments(ctx context.Context, in *pb.ListPaymentsRequest, opts ...grpc.CallOption) (*pb.ListPaymentsResponse, error) {
	return call(ctx, p, func(c pb.PaymentServiceClient) (*pb.ListPaymentsResponse, error) {
		return c.ListPayments(ctx, in, opts...)
	})
}

func (p *Pool) ProcessPayment(ctx context.Context, in *pb.ProcessPaymentRequest, opts ...grpc.CallOption) (*pb.Payment, error) {
	return call(ctx, p, func(c pb.PaymentServiceClient) (*pb.Payment, error) {
		return c.ProcessPayment(ctx, in, opts...)
	})
}

func (p *Pool) HealthCheck(ctx context.Context, in *pb.HealthCheckRequest, opts ...grpc.CallOption) (*pb.HealthCheckResponse, error) {
	return call(ctx, p, func(c pb.PaymentServiceClient) (*pb.HealthCheckResponse, error) {
		return c.HealthCheck(ctx, in, opts...)
	})
}
