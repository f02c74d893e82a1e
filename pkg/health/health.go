package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrimitra/agrimitra-backend/pkg/logging"
	"github.com/agrimitra/agrimitra-backend/pkg/resilience"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// Check represents a single health check result
type Check struct {
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Duration  time.Duration     `json:"duration"`
	Checks    map[string]*Check `json:"checks"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Checker interface for health checks
type Checker interface {
	Check(ctx context.Context) *Check
}

// Service runs registered health checks and serves the health endpoints
type Service struct {
	checkers map[string]Checker
	logger   *logging.Logger
	metadata map[string]string
	mutex    sync.RWMutex
}

// NewService creates a new health check service
func NewService(logger *logging.Logger, metadata map[string]string) *Service {
	if metadata == nil {
		metadata = make(map[string]string)
	}

	return &Service{
		checkers: make(map[string]Checker),
		logger:   logger,
		metadata: metadata,
	}
}

// RegisterChecker registers a health checker
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.checkers[name] = checker
}

// UnregisterChecker unregisters a health checker
func (s *Service) UnregisterChecker(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.checkers, name)
}

// CheckHealth performs all registered checks concurrently
func (s *Service) CheckHealth(ctx context.Context) *HealthResponse {
	start := time.Now()

	s.mutex.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, checker := range s.checkers {
		checkers[name] = checker
	}
	s.mutex.RUnlock()

	checks := make(map[string]*Check, len(checkers))
	overallStatus := StatusHealthy

	var wg sync.WaitGroup
	var mutex sync.Mutex

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			check := checker.Check(ctx)

			mutex.Lock()
			checks[name] = check

			switch check.Status {
			case StatusUnhealthy:
				overallStatus = StatusUnhealthy
			case StatusDegraded:
				if overallStatus == StatusHealthy {
					overallStatus = StatusDegraded
				}
			}
			mutex.Unlock()
		}(name, checker)
	}

	wg.Wait()

	return &HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Checks:    checks,
		Metadata:  s.metadata,
	}
}

// Handler returns a Gin handler for the full health check
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		health := s.CheckHealth(ctx)

		statusCode := http.StatusOK
		if health.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}

// LivenessHandler returns a simple liveness check handler
func (s *Service) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler reports ready unless any check is unhealthy
func (s *Service) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		health := s.CheckHealth(ctx)

		if health.Status == StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"timestamp": time.Now(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now(),
		})
	}
}

// BreakerChecker reports the state of every circuit breaker in a registry.
// An open breaker means a dependency is down, so the component is degraded
// rather than unhealthy: the assistant still answers through fallbacks.
type BreakerChecker struct {
	registry *resilience.Registry
}

// NewBreakerChecker creates a checker over the given breaker registry
func NewBreakerChecker(registry *resilience.Registry) *BreakerChecker {
	return &BreakerChecker{registry: registry}
}

// Check implements the Checker interface
func (c *BreakerChecker) Check(ctx context.Context) *Check {
	start := time.Now()

	check := &Check{
		Name:      "circuit_breakers",
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}

	open := 0
	for _, name := range c.registry.Names() {
		breaker, ok := c.registry.Get(name)
		if !ok {
			continue
		}

		state := breaker.State()
		check.Metadata[name] = state.String()
		if state == resilience.StateOpen {
			open++
		}
	}

	if open > 0 {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d circuit breaker(s) open", open)
	}

	check.Duration = time.Since(start)
	return check
}

// TrackerChecker reports degraded when the error tracker has seen critical
// errors within the configured window
type TrackerChecker struct {
	tracker *resilience.ErrorTracker
	window  time.Duration
}

// NewTrackerChecker creates a checker over the given error tracker
func NewTrackerChecker(tracker *resilience.ErrorTracker, window time.Duration) *TrackerChecker {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &TrackerChecker{tracker: tracker, window: window}
}

// Check implements the Checker interface
func (c *TrackerChecker) Check(ctx context.Context) *Check {
	start := time.Now()

	summary := c.tracker.GetErrorSummary(c.window)

	check := &Check{
		Name:      "error_tracker",
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Metadata: map[string]string{
			"window":       c.window.String(),
			"total_errors": fmt.Sprintf("%d", summary.TotalErrors),
		},
	}

	if critical := summary.SeverityDistribution[resilience.SeverityCritical]; critical > 0 {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d critical error(s) in the last %s", critical, c.window)
	}

	check.Duration = time.Since(start)
	return check
}
