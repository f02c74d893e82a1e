package resilience

import (
	"context"

	"github.com/agrimitra/agrimitra-backend/pkg/logging"
)

// FallbackStrategy substitutes a default value or a fallback operation when
// the primary operation fails. It is the terminal layer of the resilience
// stack: with a default value configured, Apply never returns an error.
// Exactly one of DefaultValue or FallbackOperation should be set; use the
// FallbackValue and FallbackOperation constructors.
type FallbackStrategy struct {
	// DefaultValue is returned when the primary operation fails and no
	// fallback operation is configured
	DefaultValue interface{}
	// FallbackOp is invoked when the primary operation fails; its own
	// failures propagate to the caller
	FallbackOp func(context.Context) (interface{}, error)
	// LogFallback emits an observability event when a fallback is taken
	LogFallback bool
	// OnFallback is called with the originating error whenever a fallback
	// is taken, so call sites can feed an ErrorTracker
	OnFallback func(err error)
}

// FallbackValue returns a strategy that substitutes a fixed value on failure
func FallbackValue(value interface{}) FallbackStrategy {
	return FallbackStrategy{DefaultValue: value, LogFallback: true}
}

// FallbackOperation returns a strategy that invokes fn on failure
func FallbackOperation(fn func(context.Context) (interface{}, error)) FallbackStrategy {
	return FallbackStrategy{FallbackOp: fn, LogFallback: true}
}

// Apply runs the primary operation and substitutes the fallback on failure
func (s FallbackStrategy) Apply(ctx context.Context, operation func(context.Context) (interface{}, error)) (interface{}, error) {
	result, err := operation(ctx)
	if err == nil {
		return result, nil
	}

	if s.LogFallback {
		logging.GetLogger().Warn("Falling back after operation failure",
			"error", err.Error(),
			"has_fallback_operation", s.FallbackOp != nil,
		)
	}

	if s.OnFallback != nil {
		s.OnFallback(err)
	}

	if s.FallbackOp != nil {
		return s.FallbackOp(ctx)
	}

	return s.DefaultValue, nil
}

// WithFallback is a convenience function applying strategy to operation
func WithFallback(ctx context.Context, operation func(context.Context) (interface{}, error), strategy FallbackStrategy) (interface{}, error) {
	return strategy.Apply(ctx, operation)
}
