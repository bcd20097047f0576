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

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/commodity-dashboard/internal/cache"
	"github.com/mohamedkhairy/commodity-dashboard/internal/config"
	"github.com/mohamedkhairy/commodity-dashboard/internal/data"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pipeline"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pubsub"
	"github.com/mohamedkhairy/commodity-dashboard/internal/storage"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one full refresh run, fetch included
const refreshTimeout = 5 * time.Minute

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

	logger.Info("Starting refresher service",
		logger.String("schedule", cfg.Refresher.Schedule),
		logger.String("channel", cfg.Refresher.Channel),
		logger.Bool("run_on_start", cfg.Refresher.RunOnStart),
		logger.Bool("storage_enabled", cfg.Database.Enabled),
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

	// Initialize snapshot cache and refresh event publisher. Snapshots
	// computed here are only visible to the API through the shared Redis
	// backend; with the memory backend the refresher only feeds storage.
	var store cache.Store
	var publisher pubsub.Client
	if cfg.Cache.Backend == "redis" {
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient)
		publisher = redisClient
	} else {
		store = cache.NewMemoryStore()
		logger.Warn("Memory cache backend: refresh events will not be published")
	}

	// Initialize pipeline service
	service := pipeline.NewService(provider, store, cfg.Dataset.CacheTTL)
	defer service.Close()

	// Initialize storage (optional)
	var datasetStore storage.DatasetStorage
	var runLog storage.RefreshLogStorage
	if cfg.Database.Enabled {
		pgClient, err := storage.NewPostgresClient(cfg.Database, storage.WriteConfigFromRefresherConfig(cfg.Refresher))
		if err != nil {
			logger.Fatal("Failed to initialize Postgres client",
				logger.ErrorField(err),
			)
		}
		if err := pgClient.Start(); err != nil {
			logger.Fatal("Failed to start Postgres write queue",
				logger.ErrorField(err),
			)
		}
		defer pgClient.Close()
		datasetStore = pgClient

		pgLog, err := storage.NewPostgresRefreshLog(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize refresh run log",
				logger.ErrorField(err),
			)
		}
		defer pgLog.Close()
		runLog = pgLog
	}

	job := &refreshJob{
		service:   service,
		dataset:   datasetStore,
		runLog:    runLog,
		publisher: publisher,
		channel:   cfg.Refresher.Channel,
	}

	// Cold start: run one pass before the first scheduled tick
	if cfg.Refresher.RunOnStart {
		job.run(models.RefreshTriggerStartup)
	}

	// Schedule refreshes (standard 5-field cron spec)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Refresher.Schedule, func() {
		job.run(models.RefreshTriggerSchedule)
	}); err != nil {
		logger.Fatal("Invalid refresh schedule",
			logger.ErrorField(err),
			logger.String("schedule", cfg.Refresher.Schedule),
		)
	}
	scheduler.Start()
	logger.Info("Refresh scheduler started",
		logger.String("schedule", cfg.Refresher.Schedule),
	)

	// Start HTTP server for health checks and metrics
	healthServer := startHealthServer(cfg.Refresher.HealthCheckPort, service)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		healthServer.Shutdown(shutdownCtx)
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down refresher service")

	// Let an in-flight run finish
	<-scheduler.Stop().Done()

	logger.Info("Refresher service stopped")
}

// refreshJob runs one refresh end to end: recompute the snapshot, feed
// storage, publish the refresh event and record the run.
type refreshJob struct {
	service   *pipeline.Service
	dataset   storage.DatasetStorage
	runLog    storage.RefreshLogStorage
	publisher pubsub.Client
	channel   string
}

func (j *refreshJob) run(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	run := &models.RefreshRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		StartedAt: start.UTC(),
	}

	snap, err := j.service.Refresh(ctx)
	run.Duration = time.Since(start)
	if err != nil {
		run.Status = models.RefreshStatusError
		run.Error = err.Error()
		logger.Error("Refresh run failed",
			logger.String("run_id", run.ID),
			logger.String("trigger", trigger),
			logger.ErrorField(err),
		)
		j.record(ctx, run)
		return
	}

	run.Status = models.RefreshStatusSuccess
	run.Commodities = len(snap.Records)
	run.LatestDate = snap.LatestDate
	run.PriceRowsTotal = snap.Report.PriceRowsTotal
	run.PriceRowsExcluded = snap.Report.PriceRowsExcluded
	run.DuplicateRows = snap.Report.DuplicateRows

	// Feed the normalized dataset to storage; the write queue batches
	// observations in the background
	if j.dataset != nil {
		if err := j.dataset.WriteObservations(ctx, snap.Prices); err != nil {
			logger.Warn("Failed to enqueue observations",
				logger.ErrorField(err),
				logger.Int("count", len(snap.Prices)),
			)
		}
		if err := j.dataset.WriteMeta(ctx, snap.Meta); err != nil {
			logger.Warn("Failed to write commodity metadata",
				logger.ErrorField(err),
				logger.Int("count", len(snap.Meta)),
			)
		}
	}

	// Announce the new snapshot to connected dashboards
	if j.publisher != nil {
		event := models.RefreshEvent{
			ID:         run.ID,
			Trigger:    trigger,
			LatestDate: snap.LatestDate,
			Timestamp:  time.Now().UTC(),
		}
		if err := j.publisher.Publish(ctx, j.channel, event); err != nil {
			logger.Warn("Failed to publish refresh event",
				logger.ErrorField(err),
				logger.String("channel", j.channel),
			)
		}
	}

	j.record(ctx, run)

	logger.Info("Refresh run complete",
		logger.String("run_id", run.ID),
		logger.String("trigger", trigger),
		logger.Int("commodities", run.Commodities),
		logger.String("latest_date", snap.LatestDate.Format("2006-01-02")),
		logger.Duration("duration", run.Duration),
	)
}

func (j *refreshJob) record(ctx context.Context, run *models.RefreshRun) {
	if j.runLog == nil {
		return
	}
	if err := j.runLog.RecordRun(ctx, run); err != nil {
		logger.Warn("Failed to record refresh run",
			logger.ErrorField(err),
			logger.String("run_id", run.ID),
		)
	}
}

// startHealthServer starts the HTTP server for health checks and metrics
func startHealthServer(port int, service *pipeline.Service) *http.Server {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		}
		if snap := service.Current(); snap != nil {
			health["last_refresh"] = snap.RefreshedAt
			health["latest_date"] = snap.LatestDate.Format("2006-01-02")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(health)
	}).Methods("GET")

	// Readiness probe: ready once a pass has completed
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if service.Current() != nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
		}
	}).Methods("GET")

	// Liveness probe
	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("alive"))
	}).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting health check server",
			logger.Int("port", port),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Health check server failed",
				logger.ErrorField(err),
			)
		}
	}()

	return server
}
