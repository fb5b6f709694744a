package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := NewLoader(path, logger.NewNoopLogger()).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(3600), cfg.JWT.TTLSeconds)
	assert.Equal(t, 50.0, cfg.Resilience.CircuitBreaker.FailureRateThreshold)
	assert.Equal(t, 30, cfg.Resilience.CircuitBreaker.WaitDurationInOpenState)
	assert.Equal(t, 10, cfg.Resilience.CircuitBreaker.SlidingWindowSize)
	assert.Equal(t, 5, cfg.Resilience.CircuitBreaker.MinimumNumberOfCalls)
	assert.Equal(t, 3, cfg.Resilience.Retry.MaxAttempts)
	assert.Equal(t, 1, cfg.Resilience.Retry.WaitDuration)
	assert.Equal(t, []string{"/auth", "/swagger", "/user-service/v3/api-docs"}, cfg.Gateway.AllowlistPrefixes)
}

func TestLoader_FileAndEnvironment(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	path := writeConfig(t, `
jwt:
  ttl_seconds: 120
gateway:
  routes:
    - prefix: /users
      upstream: http://users:8080
      strip_prefix: true
resilience:
  circuit_breaker:
    failure_rate_threshold: 75
`)
	t.Setenv("PERIMETER_JWT_SECRET_BASE64", secret)
	t.Setenv("PERIMETER_RESILIENCE_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := NewLoader(path, logger.NewNoopLogger()).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(120), cfg.JWT.TTLSeconds)
	assert.Equal(t, secret, cfg.JWT.SecretBase64)
	assert.Equal(t, 75.0, cfg.Resilience.CircuitBreaker.FailureRateThreshold)
	assert.Equal(t, 5, cfg.Resilience.Retry.MaxAttempts)
	require.Len(t, cfg.Gateway.Routes, 1)
	assert.Equal(t, "/users", cfg.Gateway.Routes[0].Prefix)
	assert.True(t, cfg.Gateway.Routes[0].StripPrefix)
}

func TestLoader_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short signing key", "jwt:\n  secret_base64: " + base64.StdEncoding.EncodeToString([]byte("short")) + "\n"},
		{"threshold above 100", "resilience:\n  circuit_breaker:\n    failure_rate_threshold: 150\n"},
		{"minimum calls above window", "resilience:\n  circuit_breaker:\n    minimum_number_of_calls: 20\n"},
		{"zero attempts", "resilience:\n  retry:\n    max_attempts: 0\n"},
		{"route without upstream", "gateway:\n  routes:\n    - prefix: /x\n"},
		{"unknown driver", "database:\n  driver: oracle\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.body), logger.NewNoopLogger()).Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}
