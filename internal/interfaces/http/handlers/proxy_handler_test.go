package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/logger"
)

func newUpstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", name)
		_, _ = io.WriteString(w, r.URL.Path+"|"+r.Header.Get("X-User-Id"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newProxyServer serves the proxy over a real listener: ReverseProxy needs a
// ResponseWriter that supports CloseNotify, which the recorder does not.
// Each request's matched route (empty when unmatched) is sent on the channel.
func newProxyServer(t *testing.T, routes []config.RouteConfig) (*httptest.Server, <-chan string) {
	t.Helper()
	h, err := NewProxyHandler(routes, logger.NewNoopLogger())
	require.NoError(t, err)
	matched := make(chan string, 16)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		matched <- c.GetString(constants.GinKeyRoute)
	})
	router.NoRoute(h.Forward)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, matched
}

func nextRoute(t *testing.T, matched <-chan string) string {
	t.Helper()
	select {
	case route := <-matched:
		return route
	case <-time.After(5 * time.Second):
		t.Fatal("no request reached the proxy")
		return ""
	}
}

func send(t *testing.T, method, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestProxyHandler_RoutesByLongestPrefix(t *testing.T) {
	users := newUpstream(t, "users")
	auth := newUpstream(t, "auth")
	srv, _ := newProxyServer(t, []config.RouteConfig{
		{Prefix: "/auth", Upstream: auth.URL},
		{Prefix: "/user-service", Upstream: users.URL, StripPrefix: true},
		{Prefix: "/user-service/v3", Upstream: auth.URL},
	})

	resp, body := send(t, http.MethodGet, srv.URL+"/user-service/users/42", http.Header{"X-User-Id": {"42"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "users", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "/users/42|42", body)

	resp, body = send(t, http.MethodPost, srv.URL+"/auth/login", nil)
	assert.Equal(t, "auth", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "/auth/login|", body)

	resp, _ = send(t, http.MethodGet, srv.URL+"/user-service/v3/api-docs", nil)
	assert.Equal(t, "auth", resp.Header.Get("X-Upstream"))
}

func TestProxyHandler_LabelsMatchedRoute(t *testing.T) {
	users := newUpstream(t, "users")
	srv, matched := newProxyServer(t, []config.RouteConfig{{Prefix: "/user-service/", Upstream: users.URL}})

	send(t, http.MethodGet, srv.URL+"/user-service/users/42", nil)
	assert.Equal(t, "/user-service", nextRoute(t, matched))

	send(t, http.MethodGet, srv.URL+"/orders", nil)
	assert.Empty(t, nextRoute(t, matched))
}

func TestProxyHandler_Unmatched(t *testing.T) {
	srv, _ := newProxyServer(t, []config.RouteConfig{{Prefix: "/auth", Upstream: "http://127.0.0.1:1"}})

	resp, _ := send(t, http.MethodGet, srv.URL+"/authority", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxyHandler_UpstreamDown(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	addr := down.URL
	down.Close()
	srv, _ := newProxyServer(t, []config.RouteConfig{{Prefix: "/orders", Upstream: addr}})

	resp, body := send(t, http.MethodGet, srv.URL+"/orders/1", nil)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, `"remote_call_failed"`)
}

func TestNewProxyHandler_InvalidUpstream(t *testing.T) {
	_, err := NewProxyHandler([]config.RouteConfig{{Prefix: "/x", Upstream: "not a url"}}, logger.NewNoopLogger())
	assert.Error(t, err)
}
