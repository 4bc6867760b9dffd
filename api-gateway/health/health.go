package health

import (
	"context"
	"sync"
	"time"

	"github.com/tair/payment-service/api-gateway/backend"
	"github.com/tair/payment-service/api-gateway/middleware"
	pb "github.com/tair/payment-service/api/payment/v1"
	"github.com/tair/payment-service/pkg/logger"
)

// Gateway and backend statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// BackendHealth represents the health status of one payment service instance
type BackendHealth struct {
	Address   string        `json:"address"`
	Status    string        `json:"status"`
	Store     string        `json:"store,omitempty"`
	Cache     string        `json:"cache,omitempty"`
	Circuit   string        `json:"circuit"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// GatewayHealth represents the overall gateway health
type GatewayHealth struct {
	Gateway  string          `json:"gateway"`
	Status   string          `json:"status"`
	Backends []BackendHealth `json:"backends"`
	Uptime   time.Duration   `json:"uptime_seconds"`
}

// HealthChecker checks the payment service backends
type HealthChecker struct {
	backends  []*backend.Backend
	startTime time.Time
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(backends []*backend.Backend) *HealthChecker {
	return &HealthChecker{
		backends:  backends,
		startTime: time.Now(),
	}
}

// CheckBackend calls HealthCheck on one backend, bypassing its circuit breaker
func (h *HealthChecker) CheckBackend(ctx context.Context, b *backend.Backend) BackendHealth {
	start := time.Now()
	result := BackendHealth{
		Address:   b.Address,
		Circuit:   string(middleware.StateClosed),
		Timestamp: start,
	}
	if b.Breaker != nil {
		result.Circuit = string(b.Breaker.GetState())
	}

	resp, err := b.Client.HealthCheck(ctx, &pb.HealthCheckRequest{})
	result.Latency = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		return result
	}

	result.Store = resp.Store
	result.Cache = resp.Cache
	if resp.Status == "ok" {
		result.Status = StatusHealthy
	} else {
		result.Status = StatusUnhealthy
	}
	return result
}

// CheckAll checks every backend concurrently
func (h *HealthChecker) CheckAll(ctx context.Context) GatewayHealth {
	results := make([]BackendHealth, len(h.backends))
	var wg sync.WaitGroup

	for i, b := range h.backends {
		wg.Add(1)
		go func(i int, b *backend.Backend) {
			defer wg.Done()
			results[i] = h.CheckBackend(ctx, b)

			if results[i].Status != StatusHealthy {
				logger.Warn(ctx).
					Str("backend", b.Address).
					Str("error", results[i].Error).
					Msg("Backend health check failed")
			}
		}(i, b)
	}
	wg.Wait()

	return GatewayHealth{
		Gateway:  "api-gateway",
		Status:   overallStatus(results),
		Backends: results,
		Uptime:   time.Since(h.startTime),
	}
}

func overallStatus(results []BackendHealth) string {
	healthy := 0
	for _, r := range results {
		if r.Status == StatusHealthy {
			healthy++
		}
	}

	switch {
	case len(results) > 0 && healthy == len(results):
		return StatusHealthy
	case healthy > 0:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// QuickCheck reports the gateway itself without touching backends
func (h *HealthChecker) QuickCheck() map[string]interface{} {
	return map[string]interface{}{
		"status":    StatusHealthy,
		"gateway":   "api-gateway",
		"backends":  len(h.backends),
		"uptime":    time.Since(h.startTime).Seconds(),
		"timestamp": time.Now(),
	}
}
