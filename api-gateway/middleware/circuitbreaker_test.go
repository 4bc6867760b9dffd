package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCircuitBreaker_OpensAfterBackendFailures(t *testing.T) {
	cb := NewCircuitBreaker("payment-1", 5, time.Minute)
	unavailable := status.Error(codes.Unavailable, "connection refused")

	for i := 0; i < 5; i++ {
		assert.Equal(t, unavailable, cb.Call(func() error { return unavailable }))
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_DomainErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("payment-1", 2, time.Minute)

	for _, code := range []codes.Code{codes.NotFound, codes.FailedPrecondition, codes.InvalidArgument, codes.Aborted, codes.Unauthenticated} {
		for i := 0; i < 3; i++ {
			_ = cb.Call(func() error { return status.Error(code, "domain") })
		}
	}
	_ = cb.Call(func() error { return errors.New("not a status") })

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("payment-1", 3, time.Minute)
	internal := status.Error(codes.Internal, "boom")

	_ = cb.Call(func() error { return internal })
	_ = cb.Call(func() error { return internal })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return internal })
	_ = cb.Call(func() error { return internal })

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("payment-1", 1, 10*time.Millisecond)
	_ = cb.Call(func() error { return status.Error(codes.DeadlineExceeded, "slow") })
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("payment-1", 1, 10*time.Millisecond)
	unavailable := status.Error(codes.Unavailable, "down")
	_ = cb.Call(func() error { return unavailable })

	time.Sleep(20 * time.Millisecond)

	_ = cb.Call(func() error { return unavailable })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerManager_OnePerBackend(t *testing.T) {
	m := NewCircuitBreakerManager(5, 30*time.Second)

	a := m.GetOrCreate("a")
	assert.Same(t, a, m.GetOrCreate("a"))
	assert.NotSame(t, a, m.GetOrCreate("b"))
	assert.Len(t, m.GetAllStats(), 2)
}
