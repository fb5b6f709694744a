package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/perimeter/internal/infrastructure/resilience"
	"github.com/turtacn/perimeter/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pingers  []Pinger
	breakers *resilience.Registry
	log      logger.Logger
}

// NewHealthHandler creates a new HealthHandler. breakers may be nil for
// services that make no guarded remote calls.
func NewHealthHandler(log logger.Logger, breakers *resilience.Registry, pingers ...Pinger) *HealthHandler {
	return &HealthHandler{
		pingers:  pingers,
		breakers: breakers,
		log:      log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Checks the health of the service and its dependencies.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks := h.performChecks(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	for _, checkStatus := range checks {
		if checkStatus != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	body := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}
	if h.breakers != nil {
		body["circuit_breakers"] = h.breakers.Snapshots()
	}
	c.JSON(httpStatus, body)
}

// ReadinessCheck godoc
// @Summary      Readiness Check
// @Description  Checks if the service is ready to accept traffic.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.HealthCheck(c) // readiness is the same as healthiness
}

// LivenessCheck reports that the process is serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	checks := make(map[string]string, len(h.pingers))

	for _, p := range h.pingers {
		wg.Add(1)
		go func(p Pinger) {
			defer wg.Done()
			status := "ok"
			if err := p.Ping(ctx); err != nil {
				h.log.Warn(ctx, "Health check failed", logger.String("dependency", p.Name()), logger.Err(err))
				status = "error"
			}
			mu.Lock()
			checks[p.Name()] = status
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	if h.breakers != nil {
		for _, snap := range h.breakers.Snapshots() {
			status := "ok"
			if snap.State == resilience.StateOpen {
				status = "circuit open"
			}
			checks["circuit:"+snap.Name] = status
		}
	}
	return checks
}
