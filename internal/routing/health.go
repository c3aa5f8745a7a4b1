package routing

import (
	"sync"
	"time"
)

// HealthTracker manages circuit breakers for all vendors.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	failureThreshold      int
	recoveryProbeInterval time.Duration
}

func NewHealthTracker(failureThreshold int, recoveryProbeInterval time.Duration) *HealthTracker {
	return &HealthTracker{
		breakers:              make(map[string]*CircuitBreaker),
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
	}
}

// Breaker returns (or lazily creates) the circuit breaker for a vendor.
func (ht *HealthTracker) Breaker(vendor string) *CircuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[vendor]
	ht.mu.RUnlock()
	if ok {
		return cb
	}

	ht.mu.Lock()
	defer ht.mu.Unlock()
	if cb, ok := ht.breakers[vendor]; ok {
		return cb
	}
	cb = NewCircuitBreaker(ht.failureThreshold, ht.recoveryProbeInterval)
	ht.breakers[vendor] = cb
	return cb
}

// IsAvailable reports whether the vendor's breaker allows attempts.
func (ht *HealthTracker) IsAvailable(vendor string) bool {
	return ht.Breaker(vendor).Allow()
}

func (ht *HealthTracker) RecordSuccess(vendor string) {
	ht.Breaker(vendor).RecordSuccess()
}

func (ht *HealthTracker) RecordFailure(vendor string) {
	ht.Breaker(vendor).RecordFailure()
}
