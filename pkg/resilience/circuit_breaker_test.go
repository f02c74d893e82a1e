package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	appErrors "github.com/agrimitra/agrimitra-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_DefaultBehavior(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	// Initially closed
	assert.Equal(t, StateClosed, cb.State())

	// Successful requests should keep it closed
	for i := 0; i < 5; i++ {
		result, err := cb.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
			return "success", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, StateClosed, cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	// Two failures keep it closed
	for i := 0; i < 2; i++ {
		_, err := cb.Call(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, StateClosed, cb.State())
	}

	// Third failure opens it
	_, err := cb.Call(func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	// Fourth call is rejected without invoking the operation
	invoked := false
	_, err = cb.Call(func() (interface{}, error) {
		invoked = true
		return "should not execute", nil
	})
	require.Error(t, err)
	assert.False(t, invoked)
	assert.True(t, IsCircuitBreakerError(err))

	var cbErr *CircuitBreakerError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, "test-cb", cbErr.Name)
	assert.Equal(t, StateOpen, cbErr.State)
}

func TestCircuitBreaker_CumulativeFailureCounting(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	// A success between failures does not reset the failure count
	cb.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	cb.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	cb.Call(func() (interface{}, error) { return "ok", nil })
	assert.Equal(t, StateClosed, cb.State())

	cb.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	// Trip the circuit breaker
	for i := 0; i < 2; i++ {
		cb.Call(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}
	assert.Equal(t, StateOpen, cb.State())

	// Wait for timeout
	time.Sleep(60 * time.Millisecond)

	// First trial success leaves it half-open
	invocations := 0
	_, err := cb.Call(func() (interface{}, error) {
		invocations++
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invocations)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Second consecutive success closes it
	_, err = cb.Call(func() (interface{}, error) {
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenIgnoresEarlierSuccesses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	// Successes before the circuit opens must not count toward the
	// half-open trial
	for i := 0; i < 5; i++ {
		cb.Call(func() (interface{}, error) { return "ok", nil })
	}
	for i := 0; i < 2; i++ {
		cb.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)

	_, err := cb.Call(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())

	_, err = cb.Call(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 2,
		SuccessThreshold: 3,
		Timeout:          50 * time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		cb.Call(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)

	// One success, then a failure while half-open reopens immediately
	_, err := cb.Call(func() (interface{}, error) {
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())

	_, err = cb.Call(func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	// And the reopened circuit rejects again
	_, err = cb.Call(func() (interface{}, error) {
		return "should not execute", nil
	})
	assert.True(t, IsCircuitBreakerError(err))
}

func TestCircuitBreaker_ErrorPassedThrough(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	original := appErrors.NewProviderError("openai", "rate limited")
	_, err := cb.Call(func() (interface{}, error) {
		return nil, original
	})
	require.Error(t, err)
	assert.Equal(t, original, err)
	assert.False(t, IsCircuitBreakerError(err))
}

func TestCircuitBreaker_IsCountableFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		IsCountableFailure: func(err error) bool {
			return appErrors.IsType(err, appErrors.ErrorTypeExternal)
		},
	})

	// Validation errors are not countable and never trip the breaker
	for i := 0; i < 5; i++ {
		cb.Call(func() (interface{}, error) {
			return nil, appErrors.NewValidationError("bad input")
		})
	}
	assert.Equal(t, StateClosed, cb.State())

	// Countable failures do
	for i := 0; i < 2; i++ {
		cb.Call(func() (interface{}, error) {
			return nil, appErrors.NewExternalError("weather", "upstream down")
		})
	}
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          50 * time.Millisecond,
		OnStateChange: func(name string, from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	cb.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	time.Sleep(60 * time.Millisecond)
	cb.Call(func() (interface{}, error) { return "ok", nil })

	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestCircuitBreaker_GetMetrics(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	for i := 0; i < 5; i++ {
		_, err := cb.Call(func() (interface{}, error) {
			return "success", nil
		})
		require.NoError(t, err)
	}

	m := cb.GetMetrics()
	assert.Equal(t, uint64(5), m.TotalRequests)
	assert.Equal(t, uint64(5), m.SuccessfulRequests)
	assert.Equal(t, uint64(0), m.FailedRequests)
	assert.Equal(t, 1.0, m.SuccessRate)
}

func TestCircuitBreaker_MetricsCountRejections(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	cb.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	cb.Call(func() (interface{}, error) { return "never runs", nil })

	m := cb.GetMetrics()
	assert.Equal(t, uint64(2), m.TotalRequests)
	assert.Equal(t, uint64(0), m.SuccessfulRequests)
	assert.Equal(t, uint64(2), m.FailedRequests)
	assert.Equal(t, 0.0, m.SuccessRate)
}

func TestCircuitBreaker_Panic(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cb",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	assert.Panics(t, func() {
		cb.Call(func() (interface{}, error) {
			panic("test panic")
		})
	})

	m := cb.GetMetrics()
	assert.Equal(t, uint64(1), m.TotalRequests)
	assert.Equal(t, uint64(0), m.SuccessfulRequests)
	assert.Equal(t, uint64(1), m.FailedRequests)
}

func TestIsCircuitBreakerError(t *testing.T) {
	assert.True(t, IsCircuitBreakerError(&CircuitBreakerError{Name: "x", State: StateOpen}))
	assert.False(t, IsCircuitBreakerError(errors.New("regular error")))
	assert.False(t, IsCircuitBreakerError(nil))
}
