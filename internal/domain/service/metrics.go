package service

import (
	"time"

	"github.com/turtacn/perimeter/pkg/constants"
)

// Metrics is the business metrics surface used by the application layer.
// The Prometheus implementation lives in the monitoring package.
type Metrics interface {
	// RecordLogin records the outcome and latency of one login attempt.
	RecordLogin(outcome constants.LoginOutcome, duration time.Duration)

	// RecordRetry records a re-attempt against a remote target.
	RecordRetry(target string)

	// RecordBreakerTransition records a circuit breaker state change.
	RecordBreakerTransition(target, from, to string)

	// RecordGatewayDecision records whether the gateway forwarded or rejected a request.
	RecordGatewayDecision(decision string)

	// RecordCacheAccess records a cache hit or miss.
	RecordCacheAccess(cacheType string, hit bool)

	// RecordIdentityValidation records a credential check answered by the identity store.
	RecordIdentityValidation(result string)

	// RecordAuditPublish records delivery of an audit event to a sink.
	RecordAuditPublish(sink string, err error)
}
