// Package filter implements the gateway's ordered request pipeline. Filters
// see an immutable Request and return an Outcome: forward a (possibly
// augmented) request or stop with a status.
package filter

import (
	"context"
	"net/http"
	"sort"
)

// Request is a read-only snapshot of an inbound request. WithHeader returns
// a modified copy; the receiver is never changed.
type Request struct {
	method string
	path   string
	header http.Header
}

// NewRequest snapshots method, path and a copy of header.
func NewRequest(method, path string, header http.Header) Request {
	return Request{method: method, path: path, header: header.Clone()}
}

func (r Request) Method() string { return r.method }
func (r Request) Path() string   { return r.path }

// Header returns the first value of key.
func (r Request) Header(key string) string {
	return r.header.Get(key)
}

// Headers returns a copy of all headers.
func (r Request) Headers() http.Header {
	return r.header.Clone()
}

// WithHeader returns a copy of r with key set to value, replacing any prior values.
func (r Request) WithHeader(key, value string) Request {
	h := r.header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	return Request{method: r.method, path: r.path, header: h}
}

// Outcome is the result of a filter: a request to forward or a terminal status.
type Outcome struct {
	request  Request
	status   int
	terminal bool
}

// Forward continues the chain with r.
func Forward(r Request) Outcome {
	return Outcome{request: r}
}

// Reject stops the chain and answers with status and no body.
func Reject(status int) Outcome {
	return Outcome{status: status, terminal: true}
}

func (o Outcome) IsTerminal() bool { return o.terminal }
func (o Outcome) Status() int      { return o.status }
func (o Outcome) Request() Request { return o.request }

// Filter is one stage of the pipeline. Lower Order values run first.
// Implementations must be safe for concurrent use.
type Filter interface {
	Name() string
	Order() int
	Apply(ctx context.Context, r Request) Outcome
}

// Chain runs filters in ascending Order, stopping at the first terminal outcome.
type Chain struct {
	filters []Filter
}

// NewChain sorts filters by Order. Equal orders keep their argument order.
func NewChain(filters ...Filter) *Chain {
	sorted := make([]Filter, len(filters))
	copy(sorted, filters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })
	return &Chain{filters: sorted}
}

// Run applies every filter to r. A terminal outcome carries the request as it
// reached the rejecting filter, so earlier augmentations stay visible.
func (c *Chain) Run(ctx context.Context, r Request) Outcome {
	out := Forward(r)
	for _, f := range c.filters {
		current := out.Request()
		out = f.Apply(ctx, current)
		if out.IsTerminal() {
			out.request = current
			return out
		}
	}
	return out
}

// Names lists the filters in execution order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.filters))
	for _, f := range c.filters {
		names = append(names, f.Name())
	}
	return names
}
