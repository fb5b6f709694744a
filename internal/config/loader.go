package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// EnvPrefix is the prefix for environment overrides, e.g. PERIMETER_JWT_TTL_SECONDS.
const EnvPrefix = "PERIMETER"

// Loader reads configuration from defaults, a YAML file and the environment.
type Loader struct {
	v   *viper.Viper
	log logger.Logger
}

// NewLoader creates a loader. An empty configFile searches ./config.yaml and /etc/perimeter/.
func NewLoader(configFile string, log logger.Logger) *Loader {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/perimeter/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, log: log}
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.ErrInvalidConfig.WithMessage("failed to read config").WithCause(err)
		}
		l.log.Info(context.Background(), "No config file found, using defaults and environment")
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithMessage("failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the file on change and hands the new configuration to onChange.
// Invalid configurations are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := l.v.Unmarshal(&cfg); err != nil {
			l.log.Error(context.Background(), "Config reload failed", err, logger.String("file", e.Name))
			return
		}
		if err := cfg.Validate(); err != nil {
			l.log.Error(context.Background(), "Reloaded config is invalid", err, logger.String("file", e.Name))
			return
		}
		l.log.Info(context.Background(), "Config reloaded", logger.String("file", e.Name))
		onChange(&cfg)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.shutdown_timeout", 30)

	v.SetDefault("gateway.allowlist_prefixes", []string{"/auth", "/swagger", "/user-service/v3/api-docs"})
	v.SetDefault("gateway.allowed_origins", []string{"*"})

	// Keys without a meaningful default are still registered so that
	// AutomaticEnv can override them during Unmarshal.
	v.SetDefault("jwt.secret_base64", "")
	v.SetDefault("jwt.ttl_seconds", int64(constants.TokenDefaultTTL.Seconds()))

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.key_path", "perimeter/jwt")
	v.SetDefault("vault.key_field", "secret_base64")

	v.SetDefault("resilience.circuit_breaker.failure_rate_threshold", constants.DefaultFailureRateThreshold)
	v.SetDefault("resilience.circuit_breaker.wait_duration_in_open_state", int(constants.DefaultWaitDurationInOpenState.Seconds()))
	v.SetDefault("resilience.circuit_breaker.sliding_window_size", constants.DefaultSlidingWindowSize)
	v.SetDefault("resilience.circuit_breaker.minimum_number_of_calls", constants.DefaultMinimumNumberOfCalls)
	v.SetDefault("resilience.retry.max_attempts", constants.DefaultRetryMaxAttempts)
	v.SetDefault("resilience.retry.wait_duration", int(constants.DefaultRetryWaitDuration.Seconds()))

	v.SetDefault("identity.base_url", "http://localhost:8082")
	v.SetDefault("identity.validate_path", "/internal/users/validate")
	v.SetDefault("identity.request_timeout", 5)
	v.SetDefault("identity.admin_username", "admin")
	v.SetDefault("identity.admin_password", "")
	v.SetDefault("identity.admin_email", "admin@localhost")
	v.SetDefault("identity.admin_roles", []string{"ADMIN"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:perimeter.db?cache=shared")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.audit_topic", "perimeter.login.audit")
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.batch_timeout_ms", 10)
	v.SetDefault("kafka.write_timeout", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "")
	v.SetDefault("tracing.sampling_rate", 1.0)
}
