package app

import (
	"github.com/turtacn/perimeter/internal/domain/service"
	httpapi "github.com/turtacn/perimeter/internal/interfaces/http"
	"github.com/turtacn/perimeter/internal/interfaces/http/filter"
	"github.com/turtacn/perimeter/internal/interfaces/http/handlers"
)

// NewGateway builds the edge router: request id and bearer authentication in
// front of the configured upstream routes.
func NewGateway(rt *Runtime, codec service.TokenCodec) (*httpapi.Router, error) {
	cfg := rt.Config

	allowlist := append(append([]string{}, httpapi.ProbePaths...), cfg.Gateway.AllowlistPrefixes...)
	chain := filter.NewChain(
		filter.NewRequestIDFilter(),
		filter.NewAuthFilter(codec, allowlist, rt.Logger),
	)
	proxy, err := handlers.NewProxyHandler(cfg.Gateway.Routes, rt.Logger)
	if err != nil {
		return nil, err
	}
	health := handlers.NewHealthHandler(rt.Logger, nil)

	return httpapi.NewGatewayRouter(cfg, rt.Logger, rt.Observability(), health, chain, proxy), nil
}
