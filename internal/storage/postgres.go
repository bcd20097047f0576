package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/mohamedkhairy/commodity-dashboard/internal/config"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Metrics for Postgres operations
	postgresWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_write_total",
			Help: "Total number of write operations to Postgres",
		},
		[]string{"status"}, // "success" or "error"
	)

	postgresWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_write_errors_total",
			Help: "Total number of write errors to Postgres",
		},
		[]string{"error_type"},
	)

	postgresWriteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postgres_write_latency_seconds",
			Help:    "Write latency to Postgres in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	postgresWriteQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "postgres_write_queue_depth",
			Help: "Current depth of the observation write queue",
		},
	)

	postgresWriteBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postgres_write_batch_size",
			Help:    "Batch size for Postgres writes",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"operation"},
	)
)

// PostgresClient implements DatasetStorage for PostgreSQL
type PostgresClient struct {
	db          *sql.DB
	dbConfig    config.DatabaseConfig
	writeConfig WriteConfig

	// Write queue
	writeQueue chan []models.PriceObservation
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	running    bool
}

// WriteConfig holds configuration for write operations
type WriteConfig struct {
	BatchSize  int
	Interval   time.Duration
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// WriteConfigFromRefresherConfig creates a WriteConfig from RefresherConfig
func WriteConfigFromRefresherConfig(refresherConfig config.RefresherConfig) WriteConfig {
	return WriteConfig{
		BatchSize:  refresherConfig.DBWriteBatchSize,
		Interval:   refresherConfig.DBWriteInterval,
		QueueSize:  refresherConfig.DBWriteQueueSize,
		MaxRetries: refresherConfig.DBMaxRetries,
		RetryDelay: refresherConfig.DBRetryDelay,
	}
}

// NewPostgresClient creates a new Postgres client and ensures the schema exists
func NewPostgresClient(dbConfig config.DatabaseConfig, writeConfig WriteConfig) (*PostgresClient, error) {
	db, err := openDB(dbConfig)
	if err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	clientCtx, clientCancel := context.WithCancel(context.Background())

	client := &PostgresClient{
		db:          db,
		dbConfig:    dbConfig,
		writeConfig: writeConfig,
		writeQueue:  make(chan []models.PriceObservation, writeConfig.QueueSize),
		ctx:         clientCtx,
		cancel:      clientCancel,
	}

	logger.Info("Connected to Postgres",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return client, nil
}

// openDB opens a pooled connection and verifies it with a ping
func openDB(dbConfig config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ensureSchema creates the dashboard tables when they do not exist
func ensureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS price_observations (
			commodity_id TEXT NOT NULL,
			date DATE NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (commodity_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_observations_date ON price_observations (date)`,
		`CREATE TABLE IF NOT EXISTS commodity_meta (
			commodity_id TEXT PRIMARY KEY,
			sector TEXT NOT NULL DEFAULT '',
			nation TEXT NOT NULL DEFAULT '',
			direct_impact TEXT[] NOT NULL DEFAULT '{}',
			inverse_impact TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id TEXT PRIMARY KEY,
			triggered_by TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			commodities INTEGER NOT NULL DEFAULT 0,
			latest_date DATE,
			price_rows_total INTEGER NOT NULL DEFAULT 0,
			price_rows_excluded INTEGER NOT NULL DEFAULT 0,
			duplicate_rows INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_runs_started_at ON refresh_runs (started_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the write queue processor
func (p *PostgresClient) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("postgres client is already running")
	}
	p.running = true
	p.mu.Unlock()

	logger.Info("Starting Postgres write queue processor",
		logger.Int("batch_size", p.writeConfig.BatchSize),
		logger.Duration("interval", p.writeConfig.Interval),
	)

	p.wg.Add(1)
	go p.processWriteQueue()

	return nil
}

// Stop stops the write queue processor and flushes remaining writes
func (p *PostgresClient) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return p.db.Close()
	}
	p.running = false
	p.mu.Unlock()

	logger.Info("Stopping Postgres write queue processor")
	p.cancel()

	// Flush remaining writes
	close(p.writeQueue)
	for observations := range p.writeQueue {
		if len(observations) > 0 {
			p.writeObservationsSync(context.Background(), observations)
		}
	}

	p.wg.Wait()

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	logger.Info("Postgres client stopped")
	return nil
}

// WriteObservations enqueues observations for async writing
func (p *PostgresClient) WriteObservations(ctx context.Context, observations []models.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	// Validate observations
	validObservations := make([]models.PriceObservation, 0, len(observations))
	for _, obs := range observations {
		if err := obs.Validate(); err != nil {
			logger.Warn("Invalid observation, skipping",
				logger.ErrorField(err),
				logger.String("commodity_id", obs.CommodityID),
			)
			continue
		}
		validObservations = append(validObservations, obs)
	}

	if len(validObservations) == 0 {
		return nil
	}

	// Try to enqueue (non-blocking with timeout)
	select {
	case p.writeQueue <- validObservations:
		postgresWriteQueueDepth.Set(float64(len(p.writeQueue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		// Queue might be full, log warning but still try
		logger.Warn("Write queue may be full, attempting to enqueue",
			logger.Int("queue_depth", len(p.writeQueue)),
			logger.Int("observation_count", len(validObservations)),
		)
		select {
		case p.writeQueue <- validObservations:
			postgresWriteQueueDepth.Set(float64(len(p.writeQueue)))
			return nil
		default:
			postgresWriteErrors.WithLabelValues("queue_full").Inc()
			return fmt.Errorf("write queue is full")
		}
	}
}

// WriteMeta upserts commodity metadata rows synchronously
func (p *PostgresClient) WriteMeta(ctx context.Context, meta []models.CommodityMeta) error {
	if len(meta) == 0 {
		return nil
	}

	startTime := time.Now()
	postgresWriteBatchSize.WithLabelValues("meta").Observe(float64(len(meta)))

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commodity_meta (commodity_id, sector, nation, direct_impact, inverse_impact)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (commodity_id) DO UPDATE SET
			sector = EXCLUDED.sector,
			nation = EXCLUDED.nation,
			direct_impact = EXCLUDED.direct_impact,
			inverse_impact = EXCLUDED.inverse_impact
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range meta {
		if err := m.Validate(); err != nil {
			logger.Warn("Invalid commodity meta, skipping",
				logger.ErrorField(err),
				logger.String("commodity_id", m.CommodityID),
			)
			continue
		}
		_, err := stmt.ExecContext(ctx,
			m.CommodityID,
			m.Sector,
			m.Nation,
			pq.Array(m.DirectImpact),
			pq.Array(m.InverseImpact),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert commodity meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	postgresWriteLatency.WithLabelValues("meta").Observe(time.Since(startTime).Seconds())
	return nil
}

// GetObservations retrieves observations for a commodity within a date range
func (p *PostgresClient) GetObservations(ctx context.Context, commodityID string, start, end time.Time) ([]models.PriceObservation, error) {
	query := `
		SELECT commodity_id, date, price
		FROM price_observations
		WHERE commodity_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := p.db.QueryContext(ctx, query, commodityID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []models.PriceObservation
	for rows.Next() {
		var obs models.PriceObservation
		if err := rows.Scan(
			&obs.CommodityID,
			&obs.Date,
			&obs.Price,
		); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		obs.Date = obs.Date.UTC()
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return observations, nil
}

// GetCommodities retrieves all stored commodity metadata
func (p *PostgresClient) GetCommodities(ctx context.Context) ([]models.CommodityMeta, error) {
	query := `
		SELECT commodity_id, sector, nation, direct_impact, inverse_impact
		FROM commodity_meta
		ORDER BY commodity_id ASC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query commodities: %w", err)
	}
	defer rows.Close()

	var meta []models.CommodityMeta
	for rows.Next() {
		var m models.CommodityMeta
		if err := rows.Scan(
			&m.CommodityID,
			&m.Sector,
			&m.Nation,
			pq.Array(&m.DirectImpact),
			pq.Array(&m.InverseImpact),
		); err != nil {
			return nil, fmt.Errorf("failed to scan commodity meta: %w", err)
		}
		meta = append(meta, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return meta, nil
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	return p.Stop()
}

// processWriteQueue processes the write queue
func (p *PostgresClient) processWriteQueue() {
	defer p.wg.Done()

	batch := make([]models.PriceObservation, 0, p.writeConfig.BatchSize)
	ticker := time.NewTicker(p.writeConfig.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			// Flush remaining batch
			if len(batch) > 0 {
				p.writeObservationsSync(context.Background(), batch)
			}
			return

		case observations, ok := <-p.writeQueue:
			if !ok {
				// Channel closed, flush and exit
				if len(batch) > 0 {
					p.writeObservationsSync(context.Background(), batch)
				}
				return
			}

			batch = append(batch, observations...)
			postgresWriteQueueDepth.Set(float64(len(p.writeQueue)))

			// Flush if batch is full
			if len(batch) >= p.writeConfig.BatchSize {
				p.writeObservationsSync(context.Background(), batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			// Flush on interval
			if len(batch) > 0 {
				p.writeObservationsSync(context.Background(), batch)
				batch = batch[:0]
			}
		}
	}
}

// writeObservationsSync writes observations synchronously with retry logic
func (p *PostgresClient) writeObservationsSync(ctx context.Context, observations []models.PriceObservation) {
	if len(observations) == 0 {
		return
	}

	startTime := time.Now()
	postgresWriteBatchSize.WithLabelValues("observations").Observe(float64(len(observations)))

	var err error
	for attempt := 0; attempt < p.writeConfig.MaxRetries; attempt++ {
		err = p.insertObservations(ctx, observations)
		if err == nil {
			break
		}

		if attempt < p.writeConfig.MaxRetries-1 {
			delay := p.writeConfig.RetryDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
			logger.Warn("Failed to write observations, retrying",
				logger.ErrorField(err),
				logger.Int("attempt", attempt+1),
				logger.Int("observation_count", len(observations)),
				logger.Duration("delay", delay),
			)
			time.Sleep(delay)
		}
	}

	latency := time.Since(startTime).Seconds()
	postgresWriteLatency.WithLabelValues("observations").Observe(latency)

	if err != nil {
		postgresWriteErrors.WithLabelValues("write_failed").Inc()
		postgresWriteTotal.WithLabelValues("error").Add(float64(len(observations)))
		logger.Error("Failed to write observations after retries",
			logger.ErrorField(err),
			logger.Int("observation_count", len(observations)),
		)
		return
	}

	postgresWriteTotal.WithLabelValues("success").Add(float64(len(observations)))
	logger.Debug("Wrote observations to Postgres",
		logger.Int("count", len(observations)),
		logger.Duration("latency", time.Since(startTime)),
	)
}

// insertObservations inserts observations using a batched upsert
func (p *PostgresClient) insertObservations(ctx context.Context, observations []models.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	// Use transaction for atomicity
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// One row per (commodity, date); re-fetched datasets overwrite in place
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_observations (commodity_id, date, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (commodity_id, date) DO UPDATE SET
			price = EXCLUDED.price
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.CommodityID,
			obs.Date,
			obs.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsRunning returns whether the client is running
func (p *PostgresClient) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
