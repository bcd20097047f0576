package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/config"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
)

// PostgresRefreshLog implements RefreshLogStorage for PostgreSQL
type PostgresRefreshLog struct {
	db       *sql.DB
	dbConfig config.DatabaseConfig
}

// NewPostgresRefreshLog creates a new Postgres refresh log storage
func NewPostgresRefreshLog(dbConfig config.DatabaseConfig) (*PostgresRefreshLog, error) {
	db, err := openDB(dbConfig)
	if err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	storage := &PostgresRefreshLog{
		db:       db,
		dbConfig: dbConfig,
	}

	logger.Info("Postgres refresh log storage initialized",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return storage, nil
}

// RecordRun writes a refresh run record
func (s *PostgresRefreshLog) RecordRun(ctx context.Context, run *models.RefreshRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid refresh run: %w", err)
	}

	query := `
		INSERT INTO refresh_runs (
			id, triggered_by, status, error, started_at, duration_ms,
			commodities, latest_date, price_rows_total, price_rows_excluded, duplicate_rows
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var latestDate interface{}
	if !run.LatestDate.IsZero() {
		latestDate = run.LatestDate
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Trigger,
		run.Status,
		run.Error,
		run.StartedAt,
		run.Duration.Milliseconds(),
		run.Commodities,
		latestDate,
		run.PriceRowsTotal,
		run.PriceRowsExcluded,
		run.DuplicateRows,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh run: %w", err)
	}

	return nil
}

// GetRuns retrieves refresh runs with filtering options
func (s *PostgresRefreshLog) GetRuns(ctx context.Context, filter RunFilter) ([]*models.RefreshRun, error) {
	query := `
		SELECT id, triggered_by, status, error, started_at, duration_ms,
			commodities, latest_date, price_rows_total, price_rows_excluded, duplicate_rows
		FROM refresh_runs
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if filter.Trigger != "" {
		query += fmt.Sprintf(" AND triggered_by = $%d", argIndex)
		args = append(args, filter.Trigger)
		argIndex++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND started_at >= $%d", argIndex)
		args = append(args, filter.StartTime)
		argIndex++
	}

	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND started_at <= $%d", argIndex)
		args = append(args, filter.EndTime)
		argIndex++
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
		argIndex++
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RefreshRun
	for rows.Next() {
		run, err := scanRefreshRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a single refresh run by ID
func (s *PostgresRefreshLog) GetRun(ctx context.Context, runID string) (*models.RefreshRun, error) {
	query := `
		SELECT id, triggered_by, status, error, started_at, duration_ms,
			commodities, latest_date, price_rows_total, price_rows_excluded, duplicate_rows
		FROM refresh_runs
		WHERE id = $1
	`

	row := s.db.QueryRowContext(ctx, query, runID)
	run, err := scanRefreshRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh run: %w", err)
	}

	return run, nil
}

// Close closes the database connection
func (s *PostgresRefreshLog) Close() error {
	return s.db.Close()
}

// scanRefreshRun scans one refresh_runs row
func scanRefreshRun(scan func(dest ...interface{}) error) (*models.RefreshRun, error) {
	var run models.RefreshRun
	var durationMs int64
	var latestDate sql.NullTime

	if err := scan(
		&run.ID,
		&run.Trigger,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&durationMs,
		&run.Commodities,
		&latestDate,
		&run.PriceRowsTotal,
		&run.PriceRowsExcluded,
		&run.DuplicateRows,
	); err != nil {
		return nil, err
	}

	run.Duration = time.Duration(durationMs) * time.Millisecond
	if latestDate.Valid {
		run.LatestDate = latestDate.Time.UTC()
	}
	return &run, nil
}
