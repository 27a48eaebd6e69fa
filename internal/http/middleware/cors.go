package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/straye-as/estate-sales-api/internal/config"
	"go.uber.org/zap"
)

// Headers the frontend must be able to read regardless of configuration
var alwaysExposed = []string{"X-Consistency-Warning", "X-Request-ID", "Content-Disposition", "Location"}

func isDevelopment(environment string) bool {
	return environment == "" || environment == "development" || environment == "local"
}

func allowAnyOrigin(_ *http.Request, origin string) bool {
	return origin != ""
}

// CORS builds the CORS middleware. A "*" origin or an empty list outside production allows
// any origin; an empty list in production denies all cross-origin requests.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	exposed := slices.Clone(cfg.ExposedHeaders)
	for _, h := range alwaysExposed {
		if !slices.Contains(exposed, h) {
			exposed = append(exposed, h)
		}
	}

	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   exposed,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	switch {
	case slices.Contains(cfg.AllowedOrigins, "*"):
		if !isDevelopment(environment) {
			logger.Warn("CORS configured with wildcard origin in non-development environment",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = allowAnyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins", zap.Strings("origins", cfg.AllowedOrigins))
	case isDevelopment(environment):
		options.AllowOriginFunc = allowAnyOrigin
		logger.Info("CORS allowing all origins in development mode")
	default:
		// empty AllowedOrigins means "*" to go-chi/cors
		options.AllowOriginFunc = func(*http.Request, string) bool { return false }
		logger.Warn("CORS configured with no allowed origins, cross-origin requests will be denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}
