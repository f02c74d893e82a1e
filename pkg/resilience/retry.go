package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	appErrors "github.com/agrimitra/agrimitra-backend/pkg/errors"
	"github.com/agrimitra/agrimitra-backend/pkg/logging"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	// MaxAttempts is the maximum number of times the operation is invoked,
	// including the first try
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// Multiplier is the multiplier for exponential backoff
	Multiplier float64
	// Jitter randomizes each delay by a uniform factor in [0.5, 1.5) so
	// concurrent retriers desynchronize
	Jitter bool
	// RetryableErrors is a function that determines if an error is retryable
	RetryableErrors func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
		RetryableErrors: DefaultRetryableErrors,
	}
}

// DefaultRetryableErrors determines if an error is retryable by default.
// Timeouts and upstream provider failures are transient; validation, auth
// and not-found failures are not, and neither is an open-circuit rejection.
func DefaultRetryableErrors(err error) bool {
	if err == nil {
		return false
	}

	if appErrors.IsType(err, appErrors.ErrorTypeTimeout) ||
		appErrors.IsType(err, appErrors.ErrorTypeExternal) ||
		appErrors.IsType(err, appErrors.ErrorTypeUnavailable) {
		return true
	}

	if IsCircuitBreakerError(err) {
		return false
	}

	if appErrors.IsType(err, appErrors.ErrorTypeValidation) ||
		appErrors.IsType(err, appErrors.ErrorTypeAuthentication) ||
		appErrors.IsType(err, appErrors.ErrorTypeAuthorization) ||
		appErrors.IsType(err, appErrors.ErrorTypeNotFound) {
		return false
	}

	return true
}

// RetryExhaustedError is returned when every attempt has been consumed.
// Attempts is always the configured MaxAttempts and LastErr the error from
// the final attempt.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the error from the final attempt
func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsRetryExhaustedError checks if an error is a retry exhaustion error
func IsRetryExhaustedError(err error) bool {
	var reErr *RetryExhaustedError
	return errors.As(err, &reErr)
}

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	config RetryConfig
	logger *logging.Logger
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier < 1 {
		config.Multiplier = 2.0
	}
	if config.RetryableErrors == nil {
		config.RetryableErrors = DefaultRetryableErrors
	}

	return &Retrier{
		config: config,
		logger: logging.GetLogger(),
	}
}

// Execute executes the given function with retry logic
func (r *Retrier) Execute(ctx context.Context, operation func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry",
					"attempt", attempt,
					"total_attempts", r.config.MaxAttempts,
				)
			}
			return nil
		}

		lastErr = err

		if !r.config.RetryableErrors(err) {
			r.logger.Debug("Error is not retryable, stopping",
				"error", err.Error(),
				"attempt", attempt,
			)
			return err
		}

		// Don't sleep after the last attempt
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.calculateDelay(attempt)

		r.logger.Debug("Operation failed, retrying",
			"error", err.Error(),
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"delay", delay,
		)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	r.logger.Error("Operation failed after all retry attempts",
		"error", lastErr.Error(),
		"attempts", r.config.MaxAttempts,
	)

	return &RetryExhaustedError{Attempts: r.config.MaxAttempts, LastErr: lastErr}
}

// ExecuteWithResult executes the given function with retry logic and returns a result
func (r *Retrier) ExecuteWithResult(ctx context.Context, operation func(context.Context) (interface{}, error)) (interface{}, error) {
	var result interface{}
	err := r.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = operation(ctx)
		return err
	})
	return result, err
}

func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	if r.config.Jitter {
		delay *= 0.5 + rand.Float64()
	}

	return time.Duration(delay)
}

// RetryWithConfig is a convenience function to execute an operation with retry
func RetryWithConfig(ctx context.Context, config RetryConfig, operation func(context.Context) error) error {
	retrier := NewRetrier(config)
	return retrier.Execute(ctx, operation)
}

// Retry is a convenience function to execute an operation with default retry configuration
func Retry(ctx context.Context, operation func(context.Context) error) error {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithResult is a convenience function to execute an operation with result and default retry configuration
func RetryWithResult(ctx context.Context, operation func(context.Context) (interface{}, error)) (interface{}, error) {
	retrier := NewRetrier(DefaultRetryConfig())
	return retrier.ExecuteWithResult(ctx, operation)
}
