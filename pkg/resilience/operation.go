package resilience

import (
	"context"

	"github.com/agrimitra/agrimitra-backend/pkg/logging"
)

// ResilientOperation composes the full resilience stack for one upstream
// dependency: retry innermost, circuit breaker around it, fallback outermost.
// With that ordering an open-circuit rejection is itself eligible for
// fallback, and a whole exhausted retry sequence counts as a single failure
// against the breaker.
type ResilientOperation struct {
	breaker  *CircuitBreaker
	retrier  *Retrier
	fallback *FallbackStrategy
	logger   *logging.Logger
}

// NewResilientOperation creates a composed operation for the named dependency
func NewResilientOperation(name string, cbConfig CircuitBreakerConfig, retryConfig RetryConfig) *ResilientOperation {
	if cbConfig.Name == "" {
		cbConfig.Name = name
	}

	return &ResilientOperation{
		breaker: NewCircuitBreaker(cbConfig),
		retrier: NewRetrier(retryConfig),
		logger:  logging.GetLogger(),
	}
}

// NewResilientOperationWith composes around a breaker owned by a Registry so
// every call site for the same dependency shares breaker state
func NewResilientOperationWith(breaker *CircuitBreaker, retryConfig RetryConfig) *ResilientOperation {
	return &ResilientOperation{
		breaker: breaker,
		retrier: NewRetrier(retryConfig),
		logger:  logging.GetLogger(),
	}
}

// WithFallbackStrategy attaches a fallback as the outermost layer
func (ro *ResilientOperation) WithFallbackStrategy(strategy FallbackStrategy) *ResilientOperation {
	ro.fallback = &strategy
	return ro
}

// Execute runs an operation through the composed stack
func (ro *ResilientOperation) Execute(ctx context.Context, operation func(context.Context) (interface{}, error)) (interface{}, error) {
	guarded := func(ctx context.Context) (interface{}, error) {
		return ro.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return ro.retrier.ExecuteWithResult(ctx, operation)
		})
	}

	if ro.fallback != nil {
		return ro.fallback.Apply(ctx, guarded)
	}
	return guarded(ctx)
}

// ExecuteVoid executes an operation that doesn't return a result
func (ro *ResilientOperation) ExecuteVoid(ctx context.Context, operation func(context.Context) error) error {
	_, err := ro.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, operation(ctx)
	})
	return err
}

// State returns the current state of the underlying circuit breaker
func (ro *ResilientOperation) State() CircuitState {
	return ro.breaker.State()
}

// GetMetrics returns the underlying circuit breaker's request counters
func (ro *ResilientOperation) GetMetrics() Metrics {
	return ro.breaker.GetMetrics()
}
