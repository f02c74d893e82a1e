// Package resilience provides circuit breaking, retry with exponential
// backoff, fallback strategies and windowed error tracking for the
// assistant's unreliable upstream dependencies (LLM providers, weather and
// maps APIs, SMS gateways, vector search).
//
// # Circuit Breaker Pattern
//
// A circuit breaker stops calling a dependency after repeated failures and
// periodically admits a trial call to test recovery. Breakers are obtained
// from a Registry so every call site sharing a dependency name observes the
// same state.
//
//	registry := resilience.NewRegistry()
//	cb := registry.GetOrCreate("weather", resilience.CircuitBreakerConfig{
//		FailureThreshold: 5,
//		SuccessThreshold: 2,
//		Timeout:          60 * time.Second,
//	})
//
//	result, err := cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
//		return weatherClient.Forecast(ctx, district)
//	})
//
// # Retry with Exponential Backoff
//
// The retry mechanism retries transient failures with exponential backoff
// and jitter to avoid thundering herd problems. Non-retryable errors are
// returned unchanged; exhaustion yields a RetryExhaustedError carrying the
// final attempt's error.
//
//	retrier := resilience.NewRetrier(resilience.DefaultRetryConfig())
//	err := retrier.Execute(ctx, func(ctx context.Context) error {
//		return smsGateway.Send(ctx, msg)
//	})
//
// # Fallback
//
// A FallbackStrategy substitutes a default value or a fallback operation
// when the primary operation fails, so end users see a degraded answer
// instead of a raw provider error.
//
//	strategy := resilience.FallbackValue(cachedForecast)
//	result, _ := strategy.Apply(ctx, fetchForecast)
//
// # Error Tracking
//
// The ErrorTracker keeps a time-windowed log of failure events for
// diagnosis; summaries aggregate by service, error type and severity.
//
//	tracker := resilience.NewErrorTracker()
//	tracker.TrackError(resilience.NewErrorContext("openai", err, resilience.SeverityMedium))
//	summary := tracker.GetErrorSummary(5 * time.Minute)
//
// # Combined Usage
//
// ResilientOperation composes the layers in the canonical order — retry
// innermost, breaker around it, fallback outermost — so an open-circuit
// rejection is fallback-eligible and an exhausted retry sequence counts as
// one breaker failure:
//
//	op := resilience.NewResilientOperationWith(cb, retryConfig).
//		WithFallbackStrategy(resilience.FallbackValue("service temporarily unavailable"))
//	result, err := op.Execute(ctx, callProvider)
//
// All types are safe for concurrent use; a single breaker instance may be
// shared between blocking and context-based call paths.
package resilience
