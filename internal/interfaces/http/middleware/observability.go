package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/pkg/constants"
)

// ObservabilityMiddleware returns a Gin middleware that integrates Prometheus metrics and OpenTelemetry tracing.
// Each request gets a server span continuing any inbound W3C trace context, and
// is counted and timed by method, route template and status.
func ObservabilityMiddleware(tracer trace.Tracer, metrics *monitoring.Metrics, service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := monitoring.ExtractTraceContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+routeOf(c), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := routeOf(c)
		span.SetName(c.Request.Method + " " + route)
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(service, c.Request.Method, route, status, time.Since(start))

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.String("http.client_ip", c.ClientIP()),
		)
	}
}

// routeOf returns the route template for low-cardinality labels. Forwarded
// gateway traffic has no template and is labelled by its route prefix.
func routeOf(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	if prefix := c.GetString(constants.GinKeyRoute); prefix != "" {
		return prefix
	}
	return "not_found"
}
