package loadbalancer

import (
	"sync"
)

// RoundRobin hands out its members in rotation
type RoundRobin[T any] struct {
	members []T
	current int
	mu      sync.Mutex
}

// NewRoundRobin creates a new round-robin load balancer
func NewRoundRobin[T any](members []T) *RoundRobin[T] {
	return &RoundRobin[T]{
		members: append([]T(nil), members...),
	}
}

// Next returns the next member in round-robin order. ok is false when the pool is empty.
func (rr *RoundRobin[T]) Next() (member T, ok bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if len(rr.members) == 0 {
		return member, false
	}

	member = rr.members[rr.current]
	rr.current = (rr.current + 1) % len(rr.members)
	return member, true
}

// Members returns a copy of the pool
func (rr *RoundRobin[T]) Members() []T {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return append([]T(nil), rr.members...)
}

// Len returns the pool size
func (rr *RoundRobin[T]) Len() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.members)
}

// GetStats returns load balancer statistics
func (rr *RoundRobin[T]) GetStats() map[string]interface{} {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	return map[string]interface{}{
		"algorithm":     "round-robin",
		"member_count":  len(rr.members),
		"current_index": rr.current,
	}
}
