package query

import (
	"context"
	"time"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/pkg/logger"
)

// Health values
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"

	ComponentUp       = "up"
	ComponentDown     = "down"
	ComponentDisabled = "disabled"
)

const healthTimeout = 2 * time.Second

// HealthReport describes backing store reachability
type HealthReport struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Cache     string    `json:"cache"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthy reports whether the durable store is reachable
func (r HealthReport) Healthy() bool {
	return r.Status == HealthOK
}

// HealthCheckHandler pings the repository and the cache
type HealthCheckHandler struct {
	repo  domain.PaymentRepository
	cache domain.PaymentCache
}

// NewHealthCheckHandler creates a new health check handler. cache may be nil.
func NewHealthCheckHandler(repo domain.PaymentRepository, cache domain.PaymentCache) *HealthCheckHandler {
	return &HealthCheckHandler{repo: repo, cache: cache}
}

// Handle never fails; outages are reported in the result
func (h *HealthCheckHandler) Handle(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	report := HealthReport{
		Status:    HealthOK,
		Store:     ComponentUp,
		Cache:     ComponentDisabled,
		Timestamp: time.Now().UTC(),
	}

	if err := h.repo.Ping(ctx); err != nil {
		logger.Error(ctx).Err(err).Msg("Store health check failed")
		report.Status = HealthDegraded
		report.Store = ComponentDown
	}

	if h.cache != nil {
		report.Cache = ComponentUp
		if err := h.cache.Ping(ctx); err != nil {
			logger.Warn(ctx).Err(err).Msg("Cache health check failed")
			report.Cache = ComponentDown
		}
	}

	return report
}
