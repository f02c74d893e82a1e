package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the resilience surface
type Metrics struct {
	// Circuit breaker metrics
	BreakerState       *prometheus.GaugeVec
	BreakerRequests    *prometheus.CounterVec
	BreakerTransitions *prometheus.CounterVec

	// Retry metrics
	RetryAttempts *prometheus.CounterVec

	// Fallback metrics
	FallbacksTotal *prometheus.CounterVec

	// Error tracking metrics
	TrackedErrors *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "agrimitra",
		Subsystem: "",
		Enabled:   true,
	}
}

// NewMetrics creates all resilience metrics and registers them with the
// default Prometheus registry
func NewMetrics(config *Config) *Metrics {
	return NewMetricsWithRegisterer(config, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates all resilience metrics against a custom
// registerer; tests use this to avoid polluting the default registry
func NewMetricsWithRegisterer(config *Config, registerer prometheus.Registerer) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Metrics{}
	}

	m := &Metrics{
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_breaker_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"breaker"},
		),
		BreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total requests seen by a circuit breaker, by outcome",
			},
			[]string{"breaker", "outcome"},
		),
		BreakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"breaker", "from", "to"},
		),
		RetryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "retry_attempts_total",
				Help:      "Retry attempts, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "fallbacks_total",
				Help:      "Times a fallback value or operation was substituted",
			},
			[]string{"operation"},
		),
		TrackedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "tracked_errors_total",
				Help:      "Errors recorded by the error tracker",
			},
			[]string{"service", "severity"},
		),
	}

	registerer.MustRegister(
		m.BreakerState,
		m.BreakerRequests,
		m.BreakerTransitions,
		m.RetryAttempts,
		m.FallbacksTotal,
		m.TrackedErrors,
	)

	return m
}

// RecordBreakerStateChange records a circuit breaker state transition. It
// has the signature of resilience.CircuitBreakerConfig.OnStateChange with
// states rendered as strings, so call sites wire it straight in.
func (m *Metrics) RecordBreakerStateChange(breaker, from, to string, stateValue float64) {
	if m.BreakerTransitions == nil {
		return
	}

	m.BreakerTransitions.WithLabelValues(breaker, from, to).Inc()
	m.BreakerState.WithLabelValues(breaker).Set(stateValue)
}

// RecordBreakerRequest records the outcome of a call through a breaker
// (outcome is "success", "failure" or "rejected")
func (m *Metrics) RecordBreakerRequest(breaker, outcome string) {
	if m.BreakerRequests == nil {
		return
	}

	m.BreakerRequests.WithLabelValues(breaker, outcome).Inc()
}

// RecordRetryAttempt records a retry attempt and its delay
func (m *Metrics) RecordRetryAttempt(operation, outcome string, delay time.Duration) {
	if m.RetryAttempts == nil {
		return
	}

	m.RetryAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordFallback records that a fallback was taken for an operation
func (m *Metrics) RecordFallback(operation string) {
	if m.FallbacksTotal == nil {
		return
	}

	m.FallbacksTotal.WithLabelValues(operation).Inc()
}

// RecordTrackedError records an error event by service and severity
func (m *Metrics) RecordTrackedError(service, severity string) {
	if m.TrackedErrors == nil {
		return
	}

	m.TrackedErrors.WithLabelValues(service, severity).Inc()
}

// Handler returns the Prometheus metrics HTTP handler for the scrape endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
