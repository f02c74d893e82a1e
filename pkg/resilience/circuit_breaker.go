package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agrimitra/agrimitra-backend/pkg/logging"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed - circuit is closed, requests are allowed
	StateClosed CircuitState = iota
	// StateOpen - circuit is open, requests are rejected
	StateOpen
	// StateHalfOpen - circuit is half-open, a trial request is allowed
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	// Name of the circuit breaker for logging/metrics, typically the
	// upstream dependency it guards ("openai", "twilio", "weather")
	Name string
	// FailureThreshold is the number of countable failures that opens the
	// circuit. Failures are counted cumulatively while the circuit is
	// closed; a success does not reset the count.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes in the
	// half-open state required to close the circuit
	SuccessThreshold int
	// Timeout is the period of the open state, after which the next call
	// is admitted as a half-open trial
	Timeout time.Duration
	// IsCountableFailure decides whether an error counts toward
	// FailureThreshold. Defaults to counting every error.
	IsCountableFailure func(error) bool
	// OnStateChange is called whenever the state of the circuit breaker changes
	OnStateChange func(name string, from CircuitState, to CircuitState)
}

// Metrics holds the request counters exposed by a circuit breaker
type Metrics struct {
	TotalRequests      uint64
	SuccessfulRequests uint64
	FailedRequests     uint64
	SuccessRate        float64
}

// CircuitBreaker is a stateful gate that stops calling a failing dependency
// and periodically admits a trial call to test recovery. A single instance
// is shared by every caller using the same dependency name; all state
// transitions are serialized behind one mutex so the blocking and the
// context-based call paths can share it.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	isCountable      func(error) bool
	onStateChange    func(name string, from CircuitState, to CircuitState)

	mutex           sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	totalRequests      uint64
	successfulRequests uint64
	failedRequests     uint64

	logger *logging.Logger
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             config.Name,
		failureThreshold: config.FailureThreshold,
		successThreshold: config.SuccessThreshold,
		timeout:          config.Timeout,
		onStateChange:    config.OnStateChange,
		state:            StateClosed,
		logger:           logging.GetLogger(),
	}

	if cb.failureThreshold <= 0 {
		cb.failureThreshold = 5
	}
	if cb.successThreshold <= 0 {
		cb.successThreshold = 2
	}
	if cb.timeout <= 0 {
		cb.timeout = 60 * time.Second
	}

	if config.IsCountableFailure == nil {
		cb.isCountable = func(err error) bool { return err != nil }
	} else {
		cb.isCountable = config.IsCountableFailure
	}

	return cb
}

// Execute runs the given request if the circuit breaker accepts it
func (cb *CircuitBreaker) Execute(ctx context.Context, req func(context.Context) (interface{}, error)) (interface{}, error) {
	if err := cb.beforeRequest(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.afterRequest(fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	result, err := req(ctx)
	cb.afterRequest(err)
	return result, err
}

// Call is a convenience method that wraps Execute for functions that don't need context
func (cb *CircuitBreaker) Call(fn func() (interface{}, error)) (interface{}, error) {
	return cb.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return fn()
	})
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Name returns the name of the circuit breaker
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// GetMetrics returns a snapshot of the request counters
func (cb *CircuitBreaker) GetMetrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	m := Metrics{
		TotalRequests:      cb.totalRequests,
		SuccessfulRequests: cb.successfulRequests,
		FailedRequests:     cb.failedRequests,
	}
	if m.TotalRequests > 0 {
		m.SuccessRate = float64(m.SuccessfulRequests) / float64(m.TotalRequests)
	}
	return m
}

// beforeRequest decides whether the call may proceed. While open, calls are
// rejected until the timeout has elapsed past the last failure; the first
// call after that moves the circuit to half-open and is admitted as a trial.
func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++

	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) <= cb.timeout {
			cb.failedRequests++
			cb.logger.Warn("Circuit breaker rejected request",
				"name", cb.name,
				"state", cb.state.String(),
			)
			return &CircuitBreakerError{Name: cb.name, State: StateOpen}
		}
		// Entering half-open starts a fresh trial window
		cb.setState(StateHalfOpen)
		cb.successCount = 0
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err == nil {
		cb.onSuccess()
	} else {
		cb.onFailure(err)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successfulRequests++
	cb.successCount++

	if cb.state == StateHalfOpen && cb.successCount >= cb.successThreshold {
		cb.setState(StateClosed)
		cb.failureCount = 0
		cb.successCount = 0
	}
}

func (cb *CircuitBreaker) onFailure(err error) {
	cb.failedRequests++

	if !cb.isCountable(err) {
		return
	}

	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == StateHalfOpen {
		cb.successCount = 0
		cb.setState(StateOpen)
	} else if cb.state == StateClosed && cb.failureCount >= cb.failureThreshold {
		cb.setState(StateOpen)
	}
}

// setState must be called with the mutex held
func (cb *CircuitBreaker) setState(state CircuitState) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state

	cb.logger.Info("Circuit breaker state changed",
		"name", cb.name,
		"from", prev.String(),
		"to", state.String(),
		"failure_count", cb.failureCount,
		"success_count", cb.successCount,
	)

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}
}

// CircuitBreakerError represents an error when the circuit breaker rejects a
// call; the wrapped operation never ran
type CircuitBreakerError struct {
	Name  string
	State CircuitState
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is %s", e.Name, e.State.String())
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
