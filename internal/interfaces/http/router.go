package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/internal/interfaces/http/filter"
	"github.com/turtacn/perimeter/internal/interfaces/http/handlers"
	"github.com/turtacn/perimeter/internal/interfaces/http/middleware"
	"github.com/turtacn/perimeter/pkg/logger"
)

// Observability bundles what every router needs to trace and measure requests.
type Observability struct {
	Service  string
	Tracer   trace.Tracer
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	config *config.Config
	logger logger.Logger
	server *http.Server
}

// ProbePaths are the health endpoints every service serves locally. The
// gateway allowlists them so orchestrators can probe it without a token.
var ProbePaths = []string{"/health", "/ready", "/live"}

// newRouter installs the global middleware, then edge (if any), then the
// local routes. gin fixes a route's handler chain at registration, so edge
// middleware applies to every route registered here.
func newRouter(cfg *config.Config, log logger.Logger, obs Observability, health *handlers.HealthHandler, edge ...gin.HandlerFunc) *Router {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.ObservabilityMiddleware(obs.Tracer, obs.Metrics, obs.Service))
	engine.Use(edge...)

	// 健康检查路由
	engine.GET(ProbePaths[0], health.HealthCheck)
	engine.GET(ProbePaths[1], health.ReadinessCheck)
	engine.GET(ProbePaths[2], health.LivenessCheck)

	// Prometheus metrics
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{})))

	// Pprof 性能分析（仅在非生产环境）
	if cfg.Server.Environment != "production" {
		pprof.Register(engine)
	}

	return &Router{engine: engine, config: cfg, logger: log}
}

// NewGatewayRouter builds the edge router: CORS and the filter chain in front
// of every route, local ones included, then the reverse proxy for every path
// not served locally. chain must allowlist ProbePaths for unauthenticated
// probes; /metrics and pprof require a bearer token.
func NewGatewayRouter(
	cfg *config.Config,
	log logger.Logger,
	obs Observability,
	health *handlers.HealthHandler,
	chain *filter.Chain,
	proxy *handlers.ProxyHandler,
) *Router {
	r := newRouter(cfg, log, obs, health,
		cors.New(corsConfig(cfg.Gateway.AllowedOrigins)),
		middleware.FilterChain(chain, monitoring.NewMetricsAdapter(obs.Metrics)),
	)

	r.engine.NoRoute(proxy.Forward)
	return r
}

// NewAuthRouter serves POST /auth/login.
func NewAuthRouter(
	cfg *config.Config,
	log logger.Logger,
	obs Observability,
	health *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
) *Router {
	r := newRouter(cfg, log, obs, health)

	auth := r.engine.Group("/auth")
	auth.Use(requestIDOnly())
	{
		auth.POST("/login", authHandler.Login)
	}
	r.notFound()
	return r
}

// NewIdentityRouter serves the identity store's internal API.
func NewIdentityRouter(
	cfg *config.Config,
	log logger.Logger,
	obs Observability,
	health *handlers.HealthHandler,
	identityHandler *handlers.IdentityHandler,
) *Router {
	r := newRouter(cfg, log, obs, health)

	internal := r.engine.Group("/internal")
	internal.Use(requestIDOnly())
	{
		internal.POST("/users/validate", identityHandler.ValidateCredentials)
	}
	r.notFound()
	return r
}

func requestIDOnly() gin.HandlerFunc {
	return middleware.FilterChain(filter.NewChain(filter.NewRequestIDFilter()), monitoring.NewNoopMetrics())
}

// 404 处理
func (r *Router) notFound() {
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "The requested resource was not found",
		})
	})
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (r *Router) Run(ctx context.Context) error {
	addr := r.config.Server.Address()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info(ctx, "Starting HTTP server", logger.String("address", addr))
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info(context.Background(), "Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(r.config.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		r.logger.Error(shutdownCtx, "Server forced to shutdown", err)
		return err
	}
	r.logger.Info(context.Background(), "HTTP server stopped")
	return nil
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
