package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := middleware.Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Conflict"}`))
	}))

	t.Run("generates a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil))

		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		entry := logs.TakeAll()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.EqualValues(t, http.StatusConflict, entry.ContextMap()["status_code"])
		assert.EqualValues(t, len(`{"error":"Conflict"}`), entry.ContextMap()["response_size"])
	})

	t.Run("keeps an incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/units", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "abc-123", logs.TakeAll()[0].ContextMap()["request_id"])
	})
}
