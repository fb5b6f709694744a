// Package app wires the perimeter services from configuration. The cmd
// binaries and the end-to-end tests build services through it.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	httpapi "github.com/turtacn/perimeter/internal/interfaces/http"
	"github.com/turtacn/perimeter/pkg/logger"
)

// Runtime is the ambient stack of one service process.
type Runtime struct {
	Service  string
	Config   *config.Config
	Logger   logger.Logger
	Level    zap.AtomicLevel
	Registry *prometheus.Registry
	Metrics  *monitoring.Metrics
	Tracing  *monitoring.TracingManager

	loader *config.Loader
}

// Load reads configFile (or the default search path) and builds the runtime
// with a zap logger.
func Load(configFile, service string) (*Runtime, error) {
	bootLog, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"}, service)
	loader := config.NewLoader(configFile, bootLog)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	log, level := monitoring.NewZapLogger(&cfg.Log, service)
	rt, err := NewRuntime(cfg, service, log)
	if err != nil {
		return nil, err
	}
	rt.Level = level
	rt.loader = loader
	return rt, nil
}

// NewRuntime builds a runtime around an already loaded configuration.
func NewRuntime(cfg *config.Config, service string, log logger.Logger) (*Runtime, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracingCfg := cfg.Tracing
	if tracingCfg.ServiceName == "" {
		tracingCfg.ServiceName = service
	}
	tracing, err := monitoring.NewTracingManager(&tracingCfg, log)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Service:  service,
		Config:   cfg,
		Logger:   log,
		Level:    zap.NewAtomicLevelAt(monitoring.ParseLevel(cfg.Log.Level)),
		Registry: registry,
		Metrics:  monitoring.NewMetrics(registry),
		Tracing:  tracing,
	}, nil
}

// WatchConfig re-applies the log level whenever the config file changes.
// Other settings take effect on restart.
func (r *Runtime) WatchConfig() {
	if r.loader == nil {
		return
	}
	r.loader.Watch(func(cfg *config.Config) {
		r.Level.SetLevel(monitoring.ParseLevel(cfg.Log.Level))
		r.Logger.Info(context.Background(), "Log level applied", logger.String("level", cfg.Log.Level))
	})
}

// Observability returns what the HTTP routers need from the runtime.
func (r *Runtime) Observability() httpapi.Observability {
	return httpapi.Observability{
		Service:  r.Service,
		Tracer:   r.Tracing.Tracer(),
		Metrics:  r.Metrics,
		Gatherer: r.Registry,
	}
}

// SigningKey resolves the token signing key from Vault or configuration.
func (r *Runtime) SigningKey(ctx context.Context) (*crypto.SigningKey, error) {
	return crypto.LoadSigningKey(ctx, r.Config, r.Logger)
}

// Shutdown flushes tracing.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.Tracing.Shutdown(ctx)
}

// Serve runs every server until ctx is done or one of them fails, in which
// case the others are stopped too.
func Serve(ctx context.Context, servers ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, run := range servers {
		g.Go(func() error { return run(ctx) })
	}
	return g.Wait()
}
