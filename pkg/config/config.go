package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Resilience ResilienceConfig `json:"resilience"`
}

// ServerConfig contains the operational HTTP server configuration
// (health and metrics endpoints)
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// ResilienceConfig contains process-wide defaults for circuit breakers,
// retries and the error tracker. Individual call sites may override any of
// these per dependency.
type ResilienceConfig struct {
	// Circuit breaker defaults
	BreakerFailureThreshold int           `json:"breaker_failure_threshold"`
	BreakerSuccessThreshold int           `json:"breaker_success_threshold"`
	BreakerTimeout          time.Duration `json:"breaker_timeout"`

	// Retry defaults
	RetryMaxAttempts  int           `json:"retry_max_attempts"`
	RetryInitialDelay time.Duration `json:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `json:"retry_max_delay"`
	RetryMultiplier   float64       `json:"retry_multiplier"`
	RetryJitter       bool          `json:"retry_jitter"`

	// Error tracker retention
	TrackerMaxAge time.Duration `json:"tracker_max_age"`
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
		Metrics: MetricsConfig{
			Namespace: getEnvString("METRICS_NAMESPACE", "agrimitra"),
			Subsystem: getEnvString("METRICS_SUBSYSTEM", ""),
			Enabled:   getEnvBool("METRICS_ENABLED", true),
		},
		Resilience: ResilienceConfig{
			BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			BreakerSuccessThreshold: getEnvInt("BREAKER_SUCCESS_THRESHOLD", 2),
			BreakerTimeout:          getEnvDuration("BREAKER_TIMEOUT", 60*time.Second),
			RetryMaxAttempts:        getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay:       getEnvDuration("RETRY_INITIAL_DELAY", 100*time.Millisecond),
			RetryMaxDelay:           getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
			RetryMultiplier:         getEnvFloat("RETRY_MULTIPLIER", 2.0),
			RetryJitter:             getEnvBool("RETRY_JITTER", true),
			TrackerMaxAge:           getEnvDuration("TRACKER_MAX_AGE", time.Hour),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Resilience.BreakerFailureThreshold < 1 {
		return fmt.Errorf("breaker failure threshold must be at least 1")
	}

	if c.Resilience.BreakerSuccessThreshold < 1 {
		return fmt.Errorf("breaker success threshold must be at least 1")
	}

	if c.Resilience.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}

	if c.Resilience.RetryMultiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
