// Package app provides application-level coordination and dependency
// injection. It initializes every component of the weather range service,
// wires them together, and manages their lifecycles through startup and
// graceful shutdown.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/adapters/primary/rest"
	"github.com/okarpenko/weather-range-service/internal/adapters/secondary/weatherapi"
	"github.com/okarpenko/weather-range-service/internal/config"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
	"github.com/okarpenko/weather-range-service/internal/core/services"
	"github.com/okarpenko/weather-range-service/internal/infrastructure/cache"
	"github.com/okarpenko/weather-range-service/internal/infrastructure/circuitbreaker"
	"github.com/okarpenko/weather-range-service/internal/infrastructure/database"
	"github.com/okarpenko/weather-range-service/internal/middleware"
	"github.com/okarpenko/weather-range-service/internal/observability"
	"github.com/okarpenko/weather-range-service/internal/version"
	"github.com/okarpenko/weather-range-service/internal/worker"
)

// App manages the application lifecycle and dependencies.
type App struct {
	cfg       *config.Config
	server    *http.Server
	logger    *zap.Logger
	telemetry *observability.Telemetry
	store     *database.ObservationStore
	queue     *worker.PersistQueue

	stopWorker context.CancelFunc
}

// New creates a new application instance.
//
// Returns:
//   - *App: Configured application instance
//   - error: Logger or configuration initialization error
func New() (*App, error) {
	logger, err := zap.NewProduction()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()

	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start initializes and starts all application components.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Component initialization or server start error
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	if err := a.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	cacheService := a.initCache(ctx)
	provider := a.initWeatherProvider()

	a.queue = worker.NewPersistQueue(
		a.store,
		a.cfg.Queue.BufferSize,
		observability.NewPersistMetrics(),
		a.logger,
	)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	a.stopWorker = stopWorker

	go a.queue.Run(workerCtx)

	weatherService := services.NewWeatherService(
		provider,
		a.store,
		a.queue,
		cacheService,
		clockwork.NewRealClock(),
		services.Config{
			MaxHistoryDays: a.cfg.Weather.MaxHistoryDays,
			ForecastDays:   a.cfg.Weather.ForecastDays,
			SearchCacheTTL: a.cfg.Weather.SearchCacheTTL,
		},
		a.logger,
	)

	weatherHandler := rest.NewWeatherHandler(weatherService, a.logger)
	router := a.setupRouter(weatherHandler, a.telemetry)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components: first the HTTP
// server, then the persistence worker (which drains buffered jobs), then
// the database, cache, and telemetry.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.queue != nil && a.stopWorker != nil {
		a.stopWorker()

		select {
		case <-a.queue.Done():
		case <-time.After(30 * time.Second):
			a.logger.Error("persistence worker did not drain in time")
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		// Sync can fail on some platforms, ignore the error
		_ = err
	}
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// initTelemetry initializes OpenTelemetry providers.
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initCache returns the Redis-backed search cache when Redis is enabled and
// reachable, falling back to the in-process cache otherwise. The cache only
// memoizes search responses, so losing it costs latency, not correctness.
func (a *App) initCache(ctx context.Context) ports.CacheService {
	memoryCache := func() ports.CacheService {
		return cache.NewMemoryCache(a.cfg.Weather.SearchCacheTTL, 10*time.Minute, a.logger)
	}

	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using in-memory search cache")
		return memoryCache()
	}

	redisCache, err := cache.NewRedisCache(cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}, a.logger)

	if err != nil {
		a.logger.Warn("Redis connection failed, falling back to in-memory search cache", zap.Error(err))
		return memoryCache()
	}

	a.logger.Info("Redis connected successfully")

	return redisCache
}

// initDatabase connects the observation store and applies pending schema
// migrations.
func (a *App) initDatabase() error {
	store, err := database.NewObservationStore(database.Config{
		Host:                  a.cfg.Database.Host,
		Port:                  a.cfg.Database.Port,
		User:                  a.cfg.Database.User,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		SSLMode:               a.cfg.Database.SSLMode,
		MaxConnections:        a.cfg.Database.MaxConnections,
		MaxIdleConnections:    a.cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: a.cfg.Database.ConnectionMaxLifetime,
	}, a.logger)

	if err != nil {
		return err
	}

	if err := database.RunMigrations(store.DB(), a.logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.store = store

	return nil
}

// initWeatherProvider creates the upstream API client wrapped in a circuit
// breaker.
func (a *App) initWeatherProvider() ports.WeatherProvider {
	httpClient := &http.Client{
		Timeout: a.cfg.Weather.HTTPTimeout,
	}

	client := weatherapi.NewClient(
		a.cfg.Weather.BaseURL,
		a.cfg.Weather.APIKey,
		a.cfg.Weather.Language,
		httpClient,
		a.logger,
	)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "weatherapi",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	}, a.logger)

	return newBreakerProvider(client, breaker)
}

// setupRouter creates and configures the HTTP router with all middleware.
//
// Parameters:
//   - weatherHandler: Handler for weather and city search endpoints
//   - telemetry: Telemetry instance for observability, may be nil
//
// Returns:
//   - http.Handler: Configured router with all routes and middleware
func (a *App) setupRouter(weatherHandler *rest.WeatherHandler, telemetry *observability.Telemetry) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
			a.logger.Error("failed to encode version info", zap.Error(err))
		}
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
		router.Use(obsMiddleware.LoggingMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/weather", weatherHandler.GetWeather).Methods("GET")
	api.HandleFunc("/cities", weatherHandler.SearchCities).Methods("GET")

	return router
}
