package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/database"
	"github.com/straye-as/estate-sales-api/internal/http/handler"
	"github.com/straye-as/estate-sales-api/internal/http/middleware"
	"github.com/straye-as/estate-sales-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/estate-sales-api/docs" // Import generated swagger docs
)

// Pinger is satisfied by the Redis client. A nil Pinger means Redis is disabled.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Employee   *handler.EmployeeHandler
	Client     *handler.ClientHandler
	Catalog    *handler.CatalogHandler
	Lifecycle  *handler.LifecycleHandler
	Sale       *handler.SaleHandler
	Transition *handler.TransitionHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	redis          Pinger
	registry       *prometheus.Registry
	metrics        *metrics.Metrics
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redis Pinger,
	registry *prometheus.Registry,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		redis:          redis,
		registry:       registry,
		metrics:        m,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)
	r.Use(middleware.Metrics(rt.metrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Metrics.Enabled && rt.registry != nil {
		path := rt.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	h := rt.handlers
	r.Route("/api/v1", func(r chi.Router) {
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.LimitByEmployee)

		r.Get("/me", h.Employee.Me)

		// Clients and their follow-ups
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.Client.List)
			r.Post("/", h.Client.Create)
			r.Get("/{id}", h.Client.GetByID)
			r.Put("/{id}", h.Client.Update)
			r.Delete("/{id}", h.Client.Delete)
			r.Get("/{id}/timeline", h.Client.Timeline)
			r.Get("/{id}/follow-ups", h.Lifecycle.ListFollowUps)
			r.Post("/{id}/follow-ups", h.Lifecycle.RecordFollowUp)
		})

		// Catalog. Writes are admin-only, enforced by the service.
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.Catalog.ListProjects)
			r.Post("/", h.Catalog.CreateProject)
			r.Get("/{id}", h.Catalog.GetProject)
			r.Put("/{id}", h.Catalog.UpdateProject)
			r.Delete("/{id}", h.Catalog.DeleteProject)
			r.Get("/{id}/models", h.Catalog.ListModels)
			r.Post("/{id}/models", h.Catalog.CreateModel)
			r.Put("/{id}/models/{modelId}", h.Catalog.UpdateModel)
			r.Delete("/{id}/models/{modelId}", h.Catalog.DeleteModel)
		})
		r.Route("/units", func(r chi.Router) {
			r.Get("/", h.Catalog.ListUnits)
			r.Post("/", h.Catalog.CreateUnit)
			r.Get("/{id}", h.Catalog.GetUnit)
			r.Put("/{id}", h.Catalog.UpdateUnit)
			r.Delete("/{id}", h.Catalog.DeleteUnit)
		})

		// Lifecycle transitions
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", h.Lifecycle.ListReservations)
			r.Post("/", h.Lifecycle.CreateReservation)
			r.Get("/{id}", h.Lifecycle.GetReservation)
			r.Delete("/{id}", h.Lifecycle.DeleteReservation)
			r.Post("/{id}/cancel", h.Lifecycle.CancelReservation)
			r.Post("/{id}/convert", h.Lifecycle.ConvertToSale)
		})
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.Sale.List)
			r.Get("/export", h.Sale.Export)
			r.Get("/{id}", h.Sale.GetByID)
			r.Delete("/{id}", h.Lifecycle.DeleteSale)
			r.Get("/{id}/contract", h.Sale.DownloadContract)
			r.Post("/{id}/contract", h.Sale.UploadContract)
		})

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireAdmin)

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.Employee.List)
				r.Post("/", h.Employee.Create)
				r.Get("/{id}", h.Employee.GetByID)
				r.Put("/{id}", h.Employee.Update)
				r.Put("/{id}/projects", h.Employee.AssignProjects)
			})
			r.Route("/transitions", func(r chi.Router) {
				r.Get("/", h.Transition.List)
				r.Get("/{id}", h.Transition.GetByID)
				r.Post("/{id}/retry", h.Transition.Retry)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

// readiness checks the database and, when enabled, Redis
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			rt.logger.Error("readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			healthy = false
			return
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	check("database", database.HealthCheck(ctx, rt.db))
	if rt.redis != nil {
		check("redis", rt.redis.Ping(ctx))
	} else {
		checks["redis"] = map[string]interface{}{"status": "disabled"}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeHealth(w, code, map[string]interface{}{"status": status, "checks": checks})
}

func writeHealth(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
