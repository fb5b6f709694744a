// Package monitoring provides the zap logger, Prometheus metrics and
// OpenTelemetry tracing used by the perimeter services.
package monitoring

import (
	"time"

	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/internal/infrastructure/resilience"
	"github.com/turtacn/perimeter/pkg/constants"
)

// MetricsAdapter implements the domain's service.Metrics interface on top of Prometheus.
// A nil *Metrics turns every call into a no-op.
type MetricsAdapter struct {
	metrics *Metrics
}

// NewMetricsAdapter wraps a Prometheus Metrics object.
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	return &MetricsAdapter{metrics: metrics}
}

// NewNoopMetrics returns a service.Metrics that records nothing.
func NewNoopMetrics() service.Metrics {
	return &MetricsAdapter{}
}

func (a *MetricsAdapter) RecordLogin(outcome constants.LoginOutcome, duration time.Duration) {
	if a.metrics != nil {
		a.metrics.RecordLogin(outcome, duration)
	}
}

func (a *MetricsAdapter) RecordRetry(target string) {
	if a.metrics != nil {
		a.metrics.RecordRetry(target)
	}
}

func (a *MetricsAdapter) RecordBreakerTransition(target, from, to string) {
	if a.metrics != nil {
		a.metrics.RecordBreakerTransition(target, from, to)
	}
}

func (a *MetricsAdapter) RecordGatewayDecision(decision string) {
	if a.metrics != nil {
		a.metrics.RecordGatewayDecision(decision)
	}
}

func (a *MetricsAdapter) RecordCacheAccess(cacheType string, hit bool) {
	if a.metrics != nil {
		a.metrics.RecordCacheAccess(cacheType, hit)
	}
}

func (a *MetricsAdapter) RecordIdentityValidation(result string) {
	if a.metrics != nil {
		a.metrics.RecordIdentityValidation(result)
	}
}

func (a *MetricsAdapter) RecordAuditPublish(sink string, err error) {
	if a.metrics != nil {
		a.metrics.RecordAuditPublish(sink, err)
	}
}

// BreakerListener returns a state change hook that feeds breaker
// transitions into metrics. Chain it with other hooks via ChainListeners.
func BreakerListener(m service.Metrics) func(name string, from, to resilience.State) {
	return func(name string, from, to resilience.State) {
		m.RecordBreakerTransition(name, from.String(), to.String())
	}
}

// ChainListeners fans a breaker transition out to several hooks.
func ChainListeners(listeners ...func(name string, from, to resilience.State)) func(name string, from, to resilience.State) {
	return func(name string, from, to resilience.State) {
		for _, l := range listeners {
			if l != nil {
				l(name, from, to)
			}
		}
	}
}
