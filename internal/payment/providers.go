package payment

import (
	"context"

	"github.com/google/wire"
	"gorm.io/gorm"

	paymentgrpc "github.com/tair/payment-service/internal/payment/delivery/grpc"
	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/handler"
	"github.com/tair/payment-service/internal/payment/repository"
	"github.com/tair/payment-service/internal/payment/usecase"
	"github.com/tair/payment-service/internal/payment/usecase/command"
	"github.com/tair/payment-service/kafka"
)

// Service bundles everything the payment binary serves
type Service struct {
	Handlers *usecase.Handlers
	HTTP     *handler.PaymentHandler
	GRPC     *paymentgrpc.PaymentServer
}

// ProvidePaymentRepository provides the traced GORM repository
func ProvidePaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return repository.NewGormPaymentRepositoryWithTracing(db)
}

// NewProcessRequestHandler adapts payment.process.requested events to the process command
func NewProcessRequestHandler(h *command.ProcessPaymentHandler) kafka.ProcessRequestHandler {
	return func(ctx context.Context, event kafka.ProcessRequestedEvent) error {
		_, err := h.Handle(ctx, command.ProcessPaymentCommand{
			PaymentID: event.PaymentID,
			Action:    event.Action,
			Metadata:  event.Metadata,
		})
		return err
	}
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvidePaymentRepository,
)

var UsecaseSet = wire.NewSet(
	usecase.NewHandlers,
)

var DeliverySet = wire.NewSet(
	handler.NewPaymentHandler,
	paymentgrpc.NewPaymentServer,
)

var ServiceSet = wire.NewSet(
	RepositorySet,
	UsecaseSet,
	DeliverySet,
	wire.Struct(new(Service), "*"),
)
