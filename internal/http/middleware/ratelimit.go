package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"go.uber.org/zap"
)

// RateLimiter throttles requests with httprate. Anonymous traffic is bucketed per client IP,
// authenticated traffic per employee.
type RateLimiter struct {
	enabled      bool
	logger       *zap.Logger
	perIP        func(http.Handler) http.Handler
	perEmployee  func(http.Handler) http.Handler
	exemptIPs    map[string]struct{}
	exemptPaths  map[string]struct{}
	exemptPrefix []string
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		enabled:     cfg.Enabled,
		logger:      logger,
		exemptIPs:   make(map[string]struct{}, len(cfg.WhitelistIPs)),
		exemptPaths: make(map[string]struct{}, len(cfg.WhitelistPaths)),
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.exemptIPs[ip] = struct{}{}
	}
	for _, path := range cfg.WhitelistPaths {
		if prefix, ok := strings.CutSuffix(path, "/*"); ok {
			rl.exemptPrefix = append(rl.exemptPrefix, prefix)
			continue
		}
		rl.exemptPaths[path] = struct{}{}
	}

	rl.perIP = httprate.Limit(cfg.RequestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "ip:" + clientIP(r), nil
		}),
		httprate.WithLimitHandler(rl.tooManyRequests),
	)
	rl.perEmployee = httprate.Limit(cfg.RequestsPerMinuteAuth, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if actor, ok := auth.FromContext(r.Context()); ok {
				return "employee:" + actor.EmployeeID.String(), nil
			}
			return "ip:" + clientIP(r), nil
		}),
		httprate.WithLimitHandler(rl.tooManyRequests),
	)

	if cfg.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("per_ip_per_minute", cfg.RequestsPerMinute),
			zap.Int("per_employee_per_minute", cfg.RequestsPerMinuteAuth),
			zap.Int("exempt_ips", len(cfg.WhitelistIPs)),
			zap.Int("exempt_paths", len(cfg.WhitelistPaths)))
	}
	return rl
}

// LimitByIP runs ahead of authentication
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	return rl.wrap(next, rl.perIP)
}

// LimitByEmployee runs behind authentication and falls back to the IP bucket without an actor
func (rl *RateLimiter) LimitByEmployee(next http.Handler) http.Handler {
	return rl.wrap(next, rl.perEmployee)
}

func (rl *RateLimiter) wrap(next http.Handler, limit func(http.Handler) http.Handler) http.Handler {
	if !rl.enabled {
		return next
	}
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) exempt(r *http.Request) bool {
	if _, ok := rl.exemptIPs[clientIP(r)]; ok {
		return true
	}
	if _, ok := rl.exemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range rl.exemptPrefix {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the socket address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (rl *RateLimiter) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", clientIP(r)),
	}
	if actor, ok := auth.FromContext(r.Context()); ok {
		fields = append(fields, zap.String("employee_id", actor.EmployeeID.String()))
	}
	rl.logger.Warn("rate limit exceeded", fields...)

	w.Header().Set("Retry-After", "60")
	writeProblem(w, http.StatusTooManyRequests, domain.ErrorTypeRateLimited, "Too many requests. Please try again later.")
}
