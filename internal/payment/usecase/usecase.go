package usecase

import (
	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/usecase/command"
	"github.com/tair/payment-service/internal/payment/usecase/query"
)

// CommandHandlers holds the write path
type CommandHandlers struct {
	CreateHandler  *command.CreatePaymentHandler
	ProcessHandler *command.ProcessPaymentHandler
}

// QueryHandlers holds the read path
type QueryHandlers struct {
	GetHandler    *query.GetPaymentHandler
	ListHandler   *query.ListPaymentsHandler
	HealthHandler *query.HealthCheckHandler
}

// Handlers is everything the delivery layers need
type Handlers struct {
	Commands CommandHandlers
	Queries  QueryHandlers
}

// NewHandlers builds every handler over the same collaborators. cache and publisher may be nil.
func NewHandlers(
	repo domain.PaymentRepository,
	cache domain.PaymentCache,
	processor domain.PaymentProcessor,
	publisher domain.EventPublisher,
) *Handlers {
	return &Handlers{
		Commands: CommandHandlers{
			CreateHandler:  command.NewCreatePaymentHandler(repo, processor, publisher),
			ProcessHandler: command.NewProcessPaymentHandler(repo, cache, processor, publisher),
		},
		Queries: QueryHandlers{
			GetHandler:    query.NewGetPaymentHandler(repo, cache),
			ListHandler:   query.NewListPaymentsHandler(repo),
			HealthHandler: query.NewHealthCheckHandler(repo, cache),
		},
	}
}
