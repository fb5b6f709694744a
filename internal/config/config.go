package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
)

// Config holds the configuration shared by the gateway, auth and identity services.
// Each binary reads only the sections it needs.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	GRPCPort        int    `mapstructure:"grpc_port"`
	Environment     string `mapstructure:"environment"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // in seconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // in seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // in seconds
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type GatewayConfig struct {
	// AllowlistPrefixes are path prefixes that bypass bearer authentication.
	AllowlistPrefixes []string `mapstructure:"allowlist_prefixes"`
	// Routes maps a path prefix to the upstream base URL it is forwarded to.
	Routes         []RouteConfig `mapstructure:"routes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type RouteConfig struct {
	Prefix      string `mapstructure:"prefix"`
	Upstream    string `mapstructure:"upstream"`
	StripPrefix bool   `mapstructure:"strip_prefix"`
}

type JWTConfig struct {
	SecretBase64 string `mapstructure:"secret_base64"`
	TTLSeconds   int64  `mapstructure:"ttl_seconds"`
}

// TTL returns the configured token lifetime.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.TTLSeconds) * time.Second
}

type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
	KeyPath   string `mapstructure:"key_path"`
	KeyField  string `mapstructure:"key_field"`
}

type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          RetryConfig          `mapstructure:"retry"`
}

type CircuitBreakerConfig struct {
	FailureRateThreshold    float64 `mapstructure:"failure_rate_threshold"`      // percent
	WaitDurationInOpenState int     `mapstructure:"wait_duration_in_open_state"` // in seconds
	SlidingWindowSize       int     `mapstructure:"sliding_window_size"`
	MinimumNumberOfCalls    int     `mapstructure:"minimum_number_of_calls"`
}

type RetryConfig struct {
	MaxAttempts  int `mapstructure:"max_attempts"`
	WaitDuration int `mapstructure:"wait_duration"` // in seconds
}

type IdentityConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ValidatePath   string `mapstructure:"validate_path"`
	RequestTimeout int    `mapstructure:"request_timeout"` // in seconds
	// Seed admin account created by the identity service on an empty store.
	AdminUsername string   `mapstructure:"admin_username"`
	AdminPassword string   `mapstructure:"admin_password"`
	AdminEmail    string   `mapstructure:"admin_email"`
	AdminRoles    []string `mapstructure:"admin_roles"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite or postgres
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	AuditTopic   string   `mapstructure:"audit_topic"`
	RequiredAcks int      `mapstructure:"required_acks"`
	BatchTimeout int      `mapstructure:"batch_timeout_ms"`
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.ErrInvalidConfig.WithMessage("server.port must be positive")
	}
	if c.JWT.TTLSeconds <= 0 {
		return errors.ErrInvalidConfig.WithMessage("jwt.ttl_seconds must be positive")
	}
	if !c.Vault.Enabled && c.JWT.SecretBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(c.JWT.SecretBase64)
		if err != nil {
			return errors.ErrInvalidConfig.WithMessage("jwt.secret_base64 is not valid base64").WithCause(err)
		}
		if len(key) < constants.SigningKeyMinLength {
			return errors.ErrInvalidConfig.WithMessage(
				fmt.Sprintf("jwt signing key must be at least %d bytes", constants.SigningKeyMinLength))
		}
	}

	cb := c.Resilience.CircuitBreaker
	if cb.FailureRateThreshold <= 0 || cb.FailureRateThreshold > 100 {
		return errors.ErrInvalidConfig.WithMessage("resilience.circuit_breaker.failure_rate_threshold must be in (0, 100]")
	}
	if cb.SlidingWindowSize <= 0 || cb.MinimumNumberOfCalls <= 0 {
		return errors.ErrInvalidConfig.WithMessage("resilience.circuit_breaker window sizes must be positive")
	}
	if cb.MinimumNumberOfCalls > cb.SlidingWindowSize {
		return errors.ErrInvalidConfig.WithMessage("minimum_number_of_calls cannot exceed sliding_window_size")
	}
	if c.Resilience.Retry.MaxAttempts < 1 {
		return errors.ErrInvalidConfig.WithMessage("resilience.retry.max_attempts must be at least 1")
	}

	for _, r := range c.Gateway.Routes {
		if !strings.HasPrefix(r.Prefix, "/") || r.Upstream == "" {
			return errors.ErrInvalidConfig.WithMessage(fmt.Sprintf("gateway route %q is incomplete", r.Prefix))
		}
	}

	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return errors.ErrInvalidConfig.WithMessage("database.driver must be sqlite or postgres")
	}
	return nil
}
