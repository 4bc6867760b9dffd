package grpc

import (
	"context"
	"time"

	pb "github.com/tair/payment-service/api/payment/v1"
	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/usecase"
	"github.com/tair/payment-service/internal/payment/usecase/command"
	"github.com/tair/payment-service/internal/payment/usecase/query"
)

// PaymentServer implements the gRPC PaymentService
type PaymentServer struct {
	pb.UnimplementedPaymentServiceServer

	createHandler  *command.CreatePaymentHandler
	processHandler *command.ProcessPaymentHandler
	getHandler     *query.GetPaymentHandler
	listHandler    *query.ListPaymentsHandler
	healthHandler  *query.HealthCheckHandler
}

// NewPaymentServer creates a new gRPC payment server
func NewPaymentServer(handlers *usecase.Handlers) *PaymentServer {
	return &PaymentServer{
		createHandler:  handlers.Commands.CreateHandler,
		processHandler: handlers.Commands.ProcessHandler,
		getHandler:     handlers.Queries.GetHandler,
		listHandler:    handlers.Queries.ListHandler,
		healthHandler:  handlers.Queries.HealthHandler,
	}
}

// CreatePayment handles payment creation
func (s *PaymentServer) CreatePayment(ctx context.Context, req *pb.CreatePaymentRequest) (*pb.Payment, error) {
	payment, err := s.createHandler.Handle(ctx, command.CreatePaymentCommand{
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return ToProto(payment), nil
}

// GetPayment returns a single payment
func (s *PaymentServer) GetPayment(ctx context.Context, req *pb.GetPaymentRequest) (*pb.Payment, error) {
	payment, err := s.getHandler.Handle(ctx, query.GetPaymentQuery{PaymentID: req.PaymentID})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return ToProto(payment), nil
}

// ListPayments returns every payment in creation order
func (s *PaymentServer) ListPayments(ctx context.Context, _ *pb.ListPaymentsRequest) (*pb.ListPaymentsResponse, error) {
	payments, err := s.listHandler.Handle(ctx, query.ListPaymentsQuery{})
	if err != nil {
		return nil, ToStatusError(err)
	}

	resp := &pb.ListPaymentsResponse{
		Payments: make([]*pb.Payment, 0, len(payments)),
		Total:    len(payments),
	}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, ToProto(p))
	}
	return resp, nil
}

// ProcessPayment applies capture, refund or cancel
func (s *PaymentServer) ProcessPayment(ctx context.Context, req *pb.ProcessPaymentRequest) (*pb.Payment, error) {
	payment, err := s.processHandler.Handle(ctx, command.ProcessPaymentCommand{
		PaymentID: req.PaymentID,
		Action:    req.Action,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return ToProto(payment), nil
}

// HealthCheck reports store and cache reachability
func (s *PaymentServer) HealthCheck(ctx context.Context, _ *pb.HealthCheckRequest) (*pb.HealthCheckResponse, error) {
	report := s.healthHandler.Handle(ctx)
	return &pb.HealthCheckResponse{
		Status:    report.Status,
		Store:     report.Store,
		Cache:     report.Cache,
		Timestamp: report.Timestamp.Format(time.RFC3339),
	}, nil
}

// ToProto converts a domain payment to its wire form
func ToProto(p *domain.Payment) *pb.Payment {
	out := &pb.Payment{
		PaymentID:     p.PaymentID,
		Amount:        p.AmountString(),
		Currency:      p.Currency,
		CustomerID:    p.CustomerID,
		PaymentMethod: p.PaymentMethod,
		Metadata:      map[string]any(p.Metadata),
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	if p.ProcessedAt != nil {
		out.ProcessedAt = p.ProcessedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}
