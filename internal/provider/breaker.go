package provider

import (
	"sync"
	"time"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

type breakerState struct {
	failures int
	tripped  bool
	openedAt time.Time
}

// BreakerRegistry tracks consecutive provider failures per integration id.
// A tripped breaker rejects calls until the configured reset timeout has
// elapsed, then lets a half-open attempt through.
type BreakerRegistry struct {
	mu     sync.Mutex
	states map[int64]*breakerState
}

func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{states: make(map[int64]*breakerState)}
}

func (r *BreakerRegistry) Allow(id int64, cfg domain.CircuitBreaker) error {
	if !cfg.Enabled || cfg.FailureThreshold <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[id]
	if !ok || !state.tripped {
		return nil
	}
	if time.Since(state.openedAt) >= resetTimeout(cfg) {
		// Half-open: permit the attempt, the next failure re-opens.
		return nil
	}
	return ErrCircuitOpen
}

func (r *BreakerRegistry) OnSuccess(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, id)
}

func (r *BreakerRegistry) OnFailure(id int64, cfg domain.CircuitBreaker) {
	if !cfg.Enabled || cfg.FailureThreshold <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[id]
	if !ok {
		state = &breakerState{}
		r.states[id] = state
	}
	state.failures++
	if state.failures >= cfg.FailureThreshold {
		state.tripped = true
		state.openedAt = time.Now()
	}
}

func resetTimeout(cfg domain.CircuitBreaker) time.Duration {
	if cfg.ResetTimeoutMs <= 0 {
		return time.Minute
	}
	return time.Duration(cfg.ResetTimeoutMs) * time.Millisecond
}
