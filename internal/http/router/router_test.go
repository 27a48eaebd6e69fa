package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/http/middleware"
	"github.com/straye-as/estate-sales-api/internal/http/router"
	"github.com/straye-as/estate-sales-api/internal/metrics"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, redis router.Pinger) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		redis,
		registry,
		m,
		auth.NewMiddleware(&cfg.Auth, repository.NewEmployeeRepository(db), log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		router.Handlers{},
	)
	return rt.Setup()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, nil)

	w := get(h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = get(h, "/health/db")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_Readiness(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		w := get(newTestRouter(t, nil), "/health/ready")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"disabled"`)
	})

	t.Run("redis down", func(t *testing.T) {
		down := router.PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })
		w := get(newTestRouter(t, down), "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, nil)
	get(h, "/health")

	w := get(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouter_APIRequiresAuthentication(t *testing.T) {
	h := newTestRouter(t, nil)

	w := get(h, "/api/v1/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(h, "/api/v1/clients")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
