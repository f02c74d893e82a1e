package resilience

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/agrimitra/agrimitra-backend/pkg/errors"
	"github.com/agrimitra/agrimitra-backend/pkg/logging"
)

// Severity represents the severity level of a tracked error
type Severity int

const (
	// SeverityLow - expected failures, no action needed
	SeverityLow Severity = iota
	// SeverityMedium - transient failures worth watching
	SeverityMedium
	// SeverityHigh - failures degrading user-visible behavior
	SeverityHigh
	// SeverityCritical - failures needing urgent attention
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorContext captures a single failure event. Instances are immutable;
// the tracker never modifies an entry after it is recorded.
type ErrorContext struct {
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	Severity     Severity  `json:"severity"`
	ServiceName  string    `json:"service_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewErrorContext builds an ErrorContext for err against the named service,
// deriving the error type from the application error taxonomy
func NewErrorContext(serviceName string, err error, severity Severity) ErrorContext {
	return ErrorContext{
		ErrorType:    string(appErrors.GetType(err)),
		ErrorMessage: err.Error(),
		Severity:     severity,
		ServiceName:  serviceName,
		Timestamp:    time.Now(),
	}
}

// SeverityForError maps an error to a default severity. Open-circuit
// rejections rank high because they mean a dependency is already down.
func SeverityForError(err error) Severity {
	if IsCircuitBreakerError(err) {
		return SeverityHigh
	}

	switch appErrors.GetType(err) {
	case appErrors.ErrorTypeTimeout, appErrors.ErrorTypeExternal, appErrors.ErrorTypeUnavailable:
		return SeverityMedium
	case appErrors.ErrorTypeValidation, appErrors.ErrorTypeNotFound:
		return SeverityLow
	case appErrors.ErrorTypeInternal:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// ErrorSummary aggregates tracked errors over a sliding time window
type ErrorSummary struct {
	TotalErrors          int              `json:"total_errors"`
	ErrorCounts          map[string]int   `json:"error_counts"`
	SeverityDistribution map[Severity]int `json:"severity_distribution"`
}

// ErrorTracker keeps a time-windowed, append-only log of error events.
// Tracking is O(1); callers are expected to prune periodically via
// ClearOldErrors so the log stays bounded.
type ErrorTracker struct {
	mutex   sync.Mutex
	entries []ErrorContext
	logger  *logging.Logger
}

// NewErrorTracker creates an empty error tracker
func NewErrorTracker() *ErrorTracker {
	return &ErrorTracker{
		logger: logging.GetLogger(),
	}
}

// TrackError appends a failure event unconditionally. A zero timestamp is
// filled with the current time.
func (t *ErrorTracker) TrackError(errCtx ErrorContext) {
	if errCtx.Timestamp.IsZero() {
		errCtx.Timestamp = time.Now()
	}

	t.mutex.Lock()
	t.entries = append(t.entries, errCtx)
	t.mutex.Unlock()

	t.logger.Debug("Tracked error",
		"service", errCtx.ServiceName,
		"error_type", errCtx.ErrorType,
		"severity", errCtx.Severity.String(),
	)
}

// GetErrorSummary aggregates the errors recorded within the given window,
// counting per "service:error_type" key and per severity level
func (t *ErrorTracker) GetErrorSummary(window time.Duration) ErrorSummary {
	cutoff := time.Now().Add(-window)

	summary := ErrorSummary{
		ErrorCounts:          make(map[string]int),
		SeverityDistribution: make(map[Severity]int),
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, entry := range t.entries {
		if entry.Timestamp.Before(cutoff) {
			continue
		}

		summary.TotalErrors++
		key := fmt.Sprintf("%s:%s", entry.ServiceName, entry.ErrorType)
		summary.ErrorCounts[key]++
		summary.SeverityDistribution[entry.Severity]++
	}

	return summary
}

// ClearOldErrors removes entries older than maxAge in place
func (t *ErrorTracker) ClearOldErrors(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	t.mutex.Lock()
	defer t.mutex.Unlock()

	kept := t.entries[:0]
	for _, entry := range t.entries {
		if !entry.Timestamp.Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	t.entries = kept
}

// Len returns the number of tracked entries
func (t *ErrorTracker) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.entries)
}
