package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/commodity-dashboard/internal/api"
	"github.com/mohamedkhairy/commodity-dashboard/internal/cache"
	"github.com/mohamedkhairy/commodity-dashboard/internal/config"
	"github.com/mohamedkhairy/commodity-dashboard/internal/data"
	"github.com/mohamedkhairy/commodity-dashboard/internal/news"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pipeline"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pubsub"
	"github.com/mohamedkhairy/commodity-dashboard/internal/storage"
	"github.com/mohamedkhairy/commodity-dashboard/internal/wsgateway"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting REST API service",
		logger.String("port", fmt.Sprintf("%d", cfg.API.Port)),
		logger.String("cache_backend", cfg.Cache.Backend),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
	)

	// Initialize dataset provider
	provider, err := data.NewProvider(data.ProviderConfig{
		PricesURL:    cfg.Dataset.PricesURL,
		MetaURL:      cfg.Dataset.MetaURL,
		PricesPath:   cfg.Dataset.PricesPath,
		MetaPath:     cfg.Dataset.MetaPath,
		FetchTimeout: cfg.Dataset.FetchTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize dataset provider",
			logger.ErrorField(err),
		)
	}

	// Initialize snapshot cache. The Redis backend shares snapshots
	// across instances and doubles as the refresh event publisher.
	var store cache.Store
	var redisClient pubsub.Client
	if cfg.Cache.Backend == "redis" {
		redisClient, err = pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient)
	} else {
		store = cache.NewMemoryStore()
	}

	// Initialize pipeline service
	service := pipeline.NewService(provider, store, cfg.Dataset.CacheTTL)
	defer service.Close()

	// Initialize news collector
	collector := news.NewCollector(cfg.News, store)

	// Initialize refresh run log (optional)
	var runLog storage.RefreshLogStorage
	if cfg.Database.Enabled {
		pgLog, err := storage.NewPostgresRefreshLog(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize refresh run log",
				logger.ErrorField(err),
			)
		}
		defer pgLog.Close()
		runLog = pgLog
	}

	// Warm the snapshot so the first request doesn't pay for a full pass
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.Dataset.FetchTimeout+30*time.Second)
	if _, err := service.Load(warmCtx); err != nil {
		logger.Warn("Initial snapshot load failed, will retry on demand",
			logger.ErrorField(err),
		)
	}
	warmCancel()

	// JWT validation shared with the WebSocket gateway
	authManager := wsgateway.NewAuthManager(cfg.API.JWTSecret)

	// Initialize handlers
	dashboardHandler := api.NewDashboardHandler(service, redisClient, cfg.Refresher.Channel)
	commodityHandler := api.NewCommodityHandler(service, collector)
	runsHandler := api.NewRefreshRunsHandler(runLog)

	// Set up router
	router := mux.NewRouter()

	// API v1 routes
	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Dashboard endpoints
	v1.HandleFunc("/dashboard/table", dashboardHandler.GetTable).Methods("GET")
	v1.HandleFunc("/dashboard/kpis", dashboardHandler.GetKpis).Methods("GET")
	v1.HandleFunc("/dashboard/movers", dashboardHandler.GetMovers).Methods("GET")
	v1.HandleFunc("/dashboard/report", dashboardHandler.GetReport).Methods("GET")
	v1.HandleFunc("/dashboard/filters", dashboardHandler.GetFilters).Methods("GET")
	v1.HandleFunc("/dashboard/refresh", dashboardHandler.Refresh).Methods("POST")

	// Commodity endpoints
	v1.HandleFunc("/commodities", commodityHandler.ListCommodities).Methods("GET")
	v1.HandleFunc("/commodities/{id}", commodityHandler.GetCommodity).Methods("GET")
	v1.HandleFunc("/commodities/{id}/labels", commodityHandler.GetLabels).Methods("GET")
	v1.HandleFunc("/commodities/{id}/series", commodityHandler.GetSeries).Methods("GET")
	v1.HandleFunc("/commodities/{id}/news", commodityHandler.GetNews).Methods("GET")

	// Refresh history endpoints
	v1.HandleFunc("/refresh/runs", runsHandler.ListRuns).Methods("GET")
	v1.HandleFunc("/refresh/runs/{id}", runsHandler.GetRun).Methods("GET")

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		// Ready once a snapshot can be served, cached or fresh
		if _, err := service.Load(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.LoggingMiddleware(),
		api.ErrorHandlingMiddleware(),
		api.AuthMiddleware(authManager),
		api.RateLimitMiddleware(cfg.API.RateLimitRPS),
	)

	handler := middlewares(router)

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: handler,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down REST API service")

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("REST API service stopped")
}
