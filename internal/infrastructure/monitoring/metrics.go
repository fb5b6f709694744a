package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/turtacn/perimeter/pkg/constants"
)

var breakerStates = []string{"CLOSED", "OPEN", "HALF_OPEN"}

// Metrics manages the Prometheus metrics.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPLatency         *prometheus.HistogramVec
	LoginAttempts       *prometheus.CounterVec
	LoginLatency        prometheus.Histogram
	RetryAttempts       *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	BreakerTransitions  *prometheus.CounterVec
	GatewayDecisions    *prometheus.CounterVec
	CacheAccess         *prometheus.CounterVec
	IdentityValidations *prometheus.CounterVec
	AuditPublish        *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"service", "method", "route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "perimeter_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "route"},
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_login_attempts_total",
				Help: "Total number of login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		LoginLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "perimeter_login_duration_seconds",
				Help:    "Latency of login attempts, retries included.",
				Buckets: prometheus.DefBuckets,
			},
		),
		RetryAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_retry_attempts_total",
				Help: "Total number of re-attempts against a remote target.",
			},
			[]string{"target"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perimeter_circuit_breaker_state",
				Help: "1 for the current state of each circuit breaker, 0 otherwise.",
			},
			[]string{"target", "state"},
		),
		BreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_circuit_breaker_transitions_total",
				Help: "Total number of circuit breaker state changes.",
			},
			[]string{"target", "from", "to"},
		),
		GatewayDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_gateway_decisions_total",
				Help: "Total number of gateway filter decisions.",
			},
			[]string{"decision"},
		),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_cache_access_total",
				Help: "Total number of cache lookups.",
			},
			[]string{"cache", "result"},
		),
		IdentityValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_identity_validations_total",
				Help: "Total number of credential checks answered by the identity store.",
			},
			[]string{"result"},
		),
		AuditPublish: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_audit_publish_total",
				Help: "Total number of audit events delivered per sink.",
			},
			[]string{"sink", "result"},
		),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(service, method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(service, method, route).Observe(duration.Seconds())
}

// RecordLogin records the outcome of a login attempt.
func (m *Metrics) RecordLogin(outcome constants.LoginOutcome, duration time.Duration) {
	m.LoginAttempts.WithLabelValues(string(outcome)).Inc()
	m.LoginLatency.Observe(duration.Seconds())
}

// RecordRetry records a re-attempt.
func (m *Metrics) RecordRetry(target string) {
	m.RetryAttempts.WithLabelValues(target).Inc()
}

// RecordBreakerTransition counts the transition and moves the state gauge.
func (m *Metrics) RecordBreakerTransition(target, from, to string) {
	m.BreakerTransitions.WithLabelValues(target, from, to).Inc()
	for _, state := range breakerStates {
		value := 0.0
		if state == to {
			value = 1
		}
		m.BreakerState.WithLabelValues(target, state).Set(value)
	}
}

// RecordGatewayDecision records a gateway decision.
func (m *Metrics) RecordGatewayDecision(decision string) {
	m.GatewayDecisions.WithLabelValues(decision).Inc()
}

// RecordCacheAccess records a cache hit or miss.
func (m *Metrics) RecordCacheAccess(cacheType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccess.WithLabelValues(cacheType, result).Inc()
}

// RecordIdentityValidation records a credential check.
func (m *Metrics) RecordIdentityValidation(result string) {
	m.IdentityValidations.WithLabelValues(result).Inc()
}

// RecordAuditPublish records an audit delivery.
func (m *Metrics) RecordAuditPublish(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AuditPublish.WithLabelValues(sink, result).Inc()
}
