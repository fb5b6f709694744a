package resilience

import (
	"context"
)

// Executor wraps calls to named remote targets with retry around a circuit
// breaker. Every attempt passes through the breaker, so an OPEN breaker turns
// the remaining attempts into immediate ErrCallNotPermitted results.
type Executor struct {
	registry *Registry
	retry    RetryPolicy
}

// NewExecutor creates an Executor over an explicit breaker registry.
func NewExecutor(registry *Registry, retry RetryPolicy) *Executor {
	return &Executor{registry: registry, retry: retry}
}

// Execute runs call against target. Results are delivered through the
// closure; the returned error is the last attempt's error.
func (e *Executor) Execute(ctx context.Context, target string, call func(context.Context) error) error {
	cb := e.registry.Get(target)
	return e.retry.Do(ctx, func(ctx context.Context) error {
		return cb.Execute(ctx, call)
	})
}

// Breaker exposes the breaker guarding target.
func (e *Executor) Breaker(target string) *CircuitBreaker {
	return e.registry.Get(target)
}

// Registry returns the breaker registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}
