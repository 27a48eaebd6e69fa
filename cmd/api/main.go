package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/straye-as/estate-sales-api/docs"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/database"
	"github.com/straye-as/estate-sales-api/internal/http/handler"
	"github.com/straye-as/estate-sales-api/internal/http/middleware"
	"github.com/straye-as/estate-sales-api/internal/http/router"
	"github.com/straye-as/estate-sales-api/internal/jobs"
	"github.com/straye-as/estate-sales-api/internal/locking"
	"github.com/straye-as/estate-sales-api/internal/logger"
	"github.com/straye-as/estate-sales-api/internal/metrics"
	"github.com/straye-as/estate-sales-api/internal/service"
	"github.com/straye-as/estate-sales-api/internal/storage"
	"go.uber.org/zap"
)

// @title Estate Sales API
// @version 1.0
// @description Sales CRM for real-estate developers: clients, follow-ups, unit reservations and sales
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for service calls, combined with X-Employee-ID
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In staging/production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		log.Info("Database schema auto-migrated")
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Redis is optional. Without it unit transitions rely on status compare-and-swap alone.
	var redisClient *redis.Client
	var redisPinger router.Pinger
	if cfg.Redis.Enabled {
		redisClient, err = locking.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		redisPinger = router.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}
	locker := locking.NewUnitLocker(redisClient, &cfg.Redis, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Services
	repos := service.NewRepositories(db)
	lifecycleService := service.NewLifecycleService(repos, locker, fileStorage, m, service.LifecycleOptionsFromConfig(&cfg.Lifecycle), log, db)
	transitionService := service.NewTransitionService(repos.Transitions, lifecycleService, m, cfg.Lifecycle.JournalStaleAfterDuration(), log)
	clientService := service.NewClientService(repos, cfg.Clients.DefaultRegion, log, db)
	catalogService := service.NewCatalogService(repos, log)
	employeeService := service.NewEmployeeService(repos, log)
	saleService := service.NewSaleService(repos, fileStorage, m, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, repos.Employees, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		redisPinger,
		registry,
		m,
		authMiddleware,
		rateLimiter,
		router.Handlers{
			Employee:   handler.NewEmployeeHandler(employeeService, log),
			Client:     handler.NewClientHandler(clientService, log),
			Catalog:    handler.NewCatalogHandler(catalogService, log),
			Lifecycle:  handler.NewLifecycleHandler(lifecycleService, log),
			Sale:       handler.NewSaleHandler(saleService, cfg.Storage.MaxUploadSizeMB, log),
			Transition: handler.NewTransitionHandler(transitionService, log),
		},
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterJournalSweepJob(scheduler, transitionService, log, cfg.Jobs.JournalSweepSchedule, true); err != nil {
			log.Error("Failed to register journal sweep job", zap.Error(err))
		} else {
			scheduler.Start()
		}
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
