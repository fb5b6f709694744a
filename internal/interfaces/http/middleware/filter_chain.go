package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/internal/interfaces/http/filter"
	"github.com/turtacn/perimeter/pkg/constants"
)

// Gateway decision labels.
const (
	DecisionForwarded = "forwarded"
	DecisionRejected  = "rejected"
)

// FilterChain runs chain against each request. A terminal outcome aborts with
// its status and an empty body. Otherwise the outcome's headers replace the
// inbound ones and the request id and subject are placed in the request context.
// The request id is echoed on the response in both cases.
func FilterChain(chain *filter.Chain, metrics service.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := chain.Run(c.Request.Context(), filter.NewRequest(c.Request.Method, c.Request.URL.Path, c.Request.Header))

		requestID := out.Request().Header(constants.HeaderRequestID)
		if requestID != "" {
			c.Header(constants.HeaderRequestID, requestID)
		}

		if out.IsTerminal() {
			metrics.RecordGatewayDecision(DecisionRejected)
			c.AbortWithStatus(out.Status())
			return
		}

		c.Request.Header = out.Request().Headers()
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		if userID := out.Request().Header(constants.HeaderUserID); userID != "" {
			ctx = context.WithValue(ctx, constants.ContextKeyUserID, userID)
		}
		c.Request = c.Request.WithContext(ctx)

		metrics.RecordGatewayDecision(DecisionForwarded)
		c.Next()
	}
}
