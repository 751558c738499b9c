package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"

	"github.com/oakhart/claude-agent/internal/http/handlers"
	"github.com/oakhart/claude-agent/internal/sysmetrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return New(&Config{
		Logger:         logging.Default(),
		HealthHandler:  handlers.NewHealthHandler(nil, nil, false, logging.Default()),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RequestCounter: sysmetrics.NewRequestCounter(),
	})
}

func TestRouterRootRoute(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "endpoints")
}

func TestRouterRejectsUntrustedHost(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(&Config{
		Logger:         logging.Default(),
		HealthHandler:  handlers.NewHealthHandler(nil, nil, false, logging.Default()),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RequestCounter: sysmetrics.NewRequestCounter(),
		AllowedHosts:   []string{"api.example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "evil.example.org"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "api.example.com"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterHealthRoute(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_configured")
}

func TestRouterMetricsRoute(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterChatRequiresPost(t *testing.T) {
	r := newTestRouter()

	// Chat handler not configured: the route is absent entirely.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
