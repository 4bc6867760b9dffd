//go:build wireinject
// +build wireinject

package payment

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/payment-service/internal/payment/domain"
)

// InitializeService wires the payment service over its infrastructure.
// cache and publisher may be nil interfaces when Redis or Kafka are disabled.
func InitializeService(
	db *gorm.DB,
	cache domain.PaymentCache,
	processor domain.PaymentProcessor,
	publisher domain.EventPublisher,
) (*Service, error) {
	wire.Build(ServiceSet)
	return nil, nil
}
