package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func hit(h http.Handler, path, remoteAddr string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/clients", "192.168.1.1:1234", nil).Code)
	}
}

func TestRateLimiter_LimitExceeded(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3, RequestsPerMinuteAuth: 3}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(h, "/api/v1/clients", "10.0.0.1:1234", nil).Code)
	}
	w := hit(h, "/api/v1/clients", "10.0.0.1:1234", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	var body domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrorTypeRateLimited, body.Type)
	assert.Equal(t, http.StatusTooManyRequests, body.Status)

	t.Run("other IPs are independent", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/clients", "10.0.0.2:1234", nil).Code)
	})
}

func TestRateLimiter_Whitelists(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		WhitelistIPs:      []string{"127.0.0.1"},
		WhitelistPaths:    []string{"/health", "/swagger/*"},
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/units", "127.0.0.1:1234", nil).Code)
		assert.Equal(t, http.StatusOK, hit(h, "/health", "10.0.0.9:1234", nil).Code)
		assert.Equal(t, http.StatusOK, hit(h, "/swagger/index.html", "10.0.0.9:1234", nil).Code)
	}
}

func TestRateLimiter_ForwardedClientIP(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}, zap.NewNop())
	h := rl.LimitByIP(okHandler())
	forwarded := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1") }
	}

	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sales", "10.0.0.1:1234", forwarded("203.0.113.5")).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/v1/sales", "10.0.0.1:1234", forwarded("203.0.113.5")).Code)
	// Same proxy, different client
	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sales", "10.0.0.1:1234", forwarded("203.0.113.6")).Code)
}

func TestRateLimiter_PerEmployee(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, RequestsPerMinuteAuth: 2}, zap.NewNop())
	h := rl.LimitByEmployee(okHandler())

	asEmployee := func(id uuid.UUID) func(*http.Request) {
		return func(r *http.Request) {
			actor := &auth.Actor{EmployeeID: id, Role: domain.EmployeeRoleSales}
			*r = *r.WithContext(auth.WithActor(r.Context(), actor))
		}
	}
	alice, bob := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/clients", "10.0.0.1:1", asEmployee(alice)).Code)
	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/clients", "10.0.0.2:1", asEmployee(alice)).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/v1/clients", "10.0.0.3:1", asEmployee(alice)).Code)
	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/clients", "10.0.0.1:1", asEmployee(bob)).Code)
}
