package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/tair/payment-service/api/payment/v1"
	"github.com/tair/payment-service/pkg/auth"
	"github.com/tair/payment-service/pkg/logger"
)

// gRPC Prometheus metrics
var (
	grpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_service_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status_code"},
	)

	grpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_service_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	grpcErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_service_grpc_errors_total",
			Help: "Total number of gRPC errors",
		},
		[]string{"method", "error_code"},
	)
)

func init() {
	prometheus.MustRegister(grpcRequestsTotal)
	prometheus.MustRegister(grpcRequestDuration)
	prometheus.MustRegister(grpcErrorsTotal)
}

// mutatingMethods require a bearer token when auth is enabled
var mutatingMethods = map[string]bool{
	pb.PaymentService_CreatePayment_FullMethodName:  true,
	pb.PaymentService_ProcessPayment_FullMethodName: true,
}

type claimsKey struct{}

// ClaimsFromContext returns the verified token claims of the caller, if any
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// NewServer builds a gRPC server with the payment service and its interceptor chain.
// A nil manager disables authentication.
func NewServer(srv pb.PaymentServiceServer, manager *auth.Manager) *grpc.Server {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			MetricsInterceptor,
			AuthInterceptor(manager),
		),
	)
	pb.RegisterPaymentServiceServer(server, srv)
	return server
}

// RecoveryInterceptor turns handler panics into Internal errors
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx).
				Str("method", info.FullMethod).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("gRPC handler panicked")
			err = status.Error(grpccodes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

// MetricsInterceptor collects Prometheus metrics for gRPC calls
func MetricsInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err).String()
	if err != nil {
		grpcErrorsTotal.WithLabelValues(info.FullMethod, code).Inc()
	}
	grpcRequestsTotal.WithLabelValues(info.FullMethod, code).Inc()
	grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())

	return resp, err
}

// LoggingInterceptor logs gRPC requests with structured logging
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()

	logger.Debug(ctx).
		Str("method", info.FullMethod).
		Str("protocol", "grpc").
		Msg("gRPC request started")

	resp, err := handler(ctx, req)
	duration := time.Since(start)

	if err != nil {
		code := status.Code(err)
		event := logger.Warn(ctx)
		if code == grpccodes.Internal || code == grpccodes.Unavailable {
			event = logger.Error(ctx)
		}
		event.
			Str("method", info.FullMethod).
			Str("protocol", "grpc").
			Int64("duration_ms", duration.Milliseconds()).
			Str("grpc_status", code.String()).
			Err(err).
			Msg("gRPC request failed")
	} else {
		logger.Info(ctx).
			Str("method", info.FullMethod).
			Str("protocol", "grpc").
			Int64("duration_ms", duration.Milliseconds()).
			Msg("gRPC request completed")
	}

	return resp, err
}

// AuthInterceptor validates JWT tokens on mutating methods
func AuthInterceptor(manager *auth.Manager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if manager == nil || !mutatingMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(grpccodes.Unauthenticated, "metadata not provided")
		}

		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(grpccodes.Unauthenticated, "authorization token not provided")
		}

		token, ok := auth.BearerToken(values[0])
		if !ok {
			return nil, status.Error(grpccodes.Unauthenticated, "invalid authorization header format")
		}

		claims, err := manager.ValidateToken(token)
		if err != nil {
			logger.Warn(ctx).Str("method", info.FullMethod).Err(err).Msg("Rejected token")
			return nil, status.Error(grpccodes.Unauthenticated, "invalid token")
		}

		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}
