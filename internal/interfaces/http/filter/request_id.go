package filter

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/perimeter/pkg/constants"
)

// OrderRequestID runs before every other filter.
const OrderRequestID = -1000

// RequestIDFilter assigns X-Request-Id when it is absent or blank.
type RequestIDFilter struct {
	generate func() string
}

// NewRequestIDFilter creates the filter with UUID ids.
func NewRequestIDFilter() *RequestIDFilter {
	return &RequestIDFilter{generate: uuid.NewString}
}

func (f *RequestIDFilter) Name() string { return "request-id" }
func (f *RequestIDFilter) Order() int   { return OrderRequestID }

func (f *RequestIDFilter) Apply(_ context.Context, r Request) Outcome {
	if strings.TrimSpace(r.Header(constants.HeaderRequestID)) != "" {
		return Forward(r)
	}
	return Forward(r.WithHeader(constants.HeaderRequestID, f.generate()))
}
