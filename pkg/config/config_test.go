package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, "agrimitra", cfg.Metrics.Namespace)
	assert.True(t, cfg.Metrics.Enabled)

	assert.Equal(t, 5, cfg.Resilience.BreakerFailureThreshold)
	assert.Equal(t, 2, cfg.Resilience.BreakerSuccessThreshold)
	assert.Equal(t, 60*time.Second, cfg.Resilience.BreakerTimeout)
	assert.Equal(t, 3, cfg.Resilience.RetryMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Resilience.RetryInitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Resilience.RetryMaxDelay)
	assert.Equal(t, 2.0, cfg.Resilience.RetryMultiplier)
	assert.True(t, cfg.Resilience.RetryJitter)
	assert.Equal(t, time.Hour, cfg.Resilience.TrackerMaxAge)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "10")
	t.Setenv("BREAKER_TIMEOUT", "90s")
	t.Setenv("RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("RETRY_MULTIPLIER", "1.5")
	t.Setenv("RETRY_JITTER", "false")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Resilience.BreakerFailureThreshold)
	assert.Equal(t, 90*time.Second, cfg.Resilience.BreakerTimeout)
	assert.Equal(t, 7, cfg.Resilience.RetryMaxAttempts)
	assert.Equal(t, 1.5, cfg.Resilience.RetryMultiplier)
	assert.False(t, cfg.Resilience.RetryJitter)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "not-a-number")
	t.Setenv("BREAKER_TIMEOUT", "soon")
	t.Setenv("RETRY_JITTER", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Resilience.BreakerFailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Resilience.BreakerTimeout)
	assert.True(t, cfg.Resilience.RetryJitter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server port",
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Resilience.BreakerFailureThreshold = 0 },
			wantErr: "failure threshold",
		},
		{
			name:    "zero success threshold",
			mutate:  func(c *Config) { c.Resilience.BreakerSuccessThreshold = 0 },
			wantErr: "success threshold",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.Resilience.RetryMaxAttempts = 0 },
			wantErr: "max attempts",
		},
		{
			name:    "multiplier below one",
			mutate:  func(c *Config) { c.Resilience.RetryMultiplier = 0.5 },
			wantErr: "multiplier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Port: 8080},
				Resilience: ResilienceConfig{
					BreakerFailureThreshold: 5,
					BreakerSuccessThreshold: 2,
					RetryMaxAttempts:        3,
					RetryMultiplier:         2.0,
				},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
