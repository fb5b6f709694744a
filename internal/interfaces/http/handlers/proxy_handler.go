package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

type proxyRoute struct {
	prefix string
	strip  bool
	proxy  *httputil.ReverseProxy
}

// ProxyHandler forwards gateway traffic to the upstream owning the longest
// matching path prefix.
type ProxyHandler struct {
	routes []proxyRoute
	log    logger.Logger
}

// NewProxyHandler builds one reverse proxy per configured route.
func NewProxyHandler(routes []config.RouteConfig, log logger.Logger) (*ProxyHandler, error) {
	h := &ProxyHandler{log: log.WithComponent("proxy")}
	for _, rc := range routes {
		target, err := url.Parse(rc.Upstream)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, errors.ErrInvalidConfig.WithMessage("invalid upstream for route " + rc.Prefix)
		}
		h.routes = append(h.routes, proxyRoute{
			prefix: strings.TrimSuffix(rc.Prefix, "/"),
			strip:  rc.StripPrefix,
			proxy:  h.newReverseProxy(rc.Prefix, target, rc.StripPrefix),
		})
	}
	sort.SliceStable(h.routes, func(i, j int) bool { return len(h.routes[i].prefix) > len(h.routes[j].prefix) })
	return h, nil
}

func (h *ProxyHandler) newReverseProxy(prefix string, target *url.URL, strip bool) *httputil.ReverseProxy {
	prefix = strings.TrimSuffix(prefix, "/")
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if strip {
				path := strings.TrimPrefix(pr.In.URL.Path, prefix)
				if !strings.HasPrefix(path, "/") {
					path = "/" + path
				}
				pr.Out.URL.Path = path
				pr.Out.URL.RawPath = ""
			}
			pr.SetURL(target)
			pr.SetXForwarded()
			monitoring.InjectTraceContext(pr.Out.Context(), propagation.HeaderCarrier(pr.Out.Header))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.log.Warn(r.Context(), "Upstream request failed",
				logger.String("upstream", target.Host),
				logger.String("path", r.URL.Path),
				logger.Err(err),
			)
			status, body := dto.ErrorResponse(errors.ErrRemoteCallFailed, r.Header.Get(constants.HeaderRequestID))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		},
	}
}

// Forward proxies the request, or answers 404 when no route matches.
func (h *ProxyHandler) Forward(c *gin.Context) {
	path := c.Request.URL.Path
	for _, r := range h.routes {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			c.Set(constants.GinKeyRoute, r.prefix)
			r.proxy.ServeHTTP(c.Writer, c.Request)
			return
		}
	}
	dto.SendError(c, errors.ErrNotFound)
}
