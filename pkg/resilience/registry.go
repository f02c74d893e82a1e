package resilience

import (
	"sync"

	"github.com/agrimitra/agrimitra-backend/pkg/logging"
)

// Registry owns the process-wide set of named circuit breakers so that
// unrelated call sites sharing a logical dependency ("openai", "twilio")
// observe the same breaker state. Callers inject a Registry instance rather
// than reaching for a package-level global.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	logger   *logging.Logger
}

// NewRegistry creates an empty circuit breaker registry
func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logging.GetLogger(),
	}
}

// GetOrCreate returns the existing circuit breaker for name or creates a new
// one from config. The same instance is returned for the same name for the
// lifetime of the registry; two racing first calls resolve to one breaker.
func (r *Registry) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mutex.RLock()
	breaker, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return breaker
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists = r.breakers[name]; exists {
		return breaker
	}

	config.Name = name
	breaker = NewCircuitBreaker(config)
	r.breakers[name] = breaker

	r.logger.Info("Created circuit breaker", "name", name)

	return breaker
}

// Get returns the circuit breaker for name if one has been created
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	breaker, exists := r.breakers[name]
	return breaker, exists
}

// Names returns the names of all registered circuit breakers
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}
