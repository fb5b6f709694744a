package app

import (
	"context"

	appservice "github.com/turtacn/perimeter/internal/application/service"
	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/internal/infrastructure/audit"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/internal/infrastructure/resilience"
	grpcapi "github.com/turtacn/perimeter/internal/interfaces/grpc"
	httpapi "github.com/turtacn/perimeter/internal/interfaces/http"
	"github.com/turtacn/perimeter/internal/interfaces/http/handlers"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/logger"
)

// AuthService is the login service: HTTP login endpoint plus gRPC health.
type AuthService struct {
	Router   *httpapi.Router
	Health   *grpcapi.HealthServer
	Executor *resilience.Executor

	closeAudit func() error
}

// NewAuth wires the login flow around validator, the identity store client.
func NewAuth(rt *Runtime, codec service.TokenCodec, validator service.IdentityValidator) *AuthService {
	cfg := rt.Config
	log := rt.Logger
	metrics := monitoring.NewMetricsAdapter(rt.Metrics)

	grpcHealth := grpcapi.NewHealthServer(cfg.Server.GRPCPort, log, constants.IdentityServiceTarget)

	settings := resilience.SettingsFromConfig(cfg.Resilience.CircuitBreaker)
	settings.OnStateChange = monitoring.ChainListeners(
		monitoring.BreakerListener(metrics),
		grpcHealth.BreakerListener(),
		func(name string, from, to resilience.State) {
			log.Warn(context.Background(), "Circuit breaker state changed",
				logger.String("target", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	)

	retry := resilience.RetryPolicyFromConfig(cfg.Resilience.Retry)
	retry.OnRetry = func(attempt int, err error) {
		metrics.RecordRetry(constants.IdentityServiceTarget)
		log.Debug(context.Background(), "Retrying identity call",
			logger.Int("attempt", attempt),
			logger.Err(err),
		)
	}

	registry := resilience.NewRegistry(settings)
	executor := resilience.NewExecutor(registry, retry)
	// Create the breaker up front so health reports it before the first login.
	executor.Breaker(constants.IdentityServiceTarget)

	auditSvc, closeAudit := audit.NewAuditService(&cfg.Kafka, metrics, log)
	login := appservice.NewLoginAppService(
		validator, executor, codec, auditSvc, metrics,
		rt.Tracing.Tracer(), cfg.JWT.TTLSeconds, log,
	)

	router := httpapi.NewAuthRouter(cfg, log, rt.Observability(),
		handlers.NewHealthHandler(log, registry),
		handlers.NewAuthHandler(login, log),
	)

	return &AuthService{
		Router:     router,
		Health:     grpcHealth,
		Executor:   executor,
		closeAudit: closeAudit,
	}
}

// Run serves HTTP and gRPC until ctx is done.
func (a *AuthService) Run(ctx context.Context) error {
	return Serve(ctx, a.Router.Run, a.Health.Run)
}

// Close releases the audit sink.
func (a *AuthService) Close() error {
	return a.closeAudit()
}
