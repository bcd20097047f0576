package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// DatasetStorage defines the interface for persisting the normalized dataset
type DatasetStorage interface {
	// WriteObservations enqueues normalized price observations for writing
	WriteObservations(ctx context.Context, observations []models.PriceObservation) error

	// WriteMeta upserts commodity metadata rows
	WriteMeta(ctx context.Context, meta []models.CommodityMeta) error

	// GetObservations retrieves observations for a commodity within a date range
	GetObservations(ctx context.Context, commodityID string, start, end time.Time) ([]models.PriceObservation, error)

	// GetCommodities retrieves all stored commodity metadata
	GetCommodities(ctx context.Context) ([]models.CommodityMeta, error)

	// Close flushes pending writes and closes the storage connection
	Close() error
}

// RefreshLogStorage defines the interface for refresh run history
type RefreshLogStorage interface {
	// RecordRun writes a refresh run record
	RecordRun(ctx context.Context, run *models.RefreshRun) error

	// GetRuns retrieves refresh runs with filtering options
	GetRuns(ctx context.Context, filter RunFilter) ([]*models.RefreshRun, error)

	// GetRun retrieves a single refresh run by ID
	GetRun(ctx context.Context, runID string) (*models.RefreshRun, error)

	// Close closes the storage connection
	Close() error
}

// RunFilter defines filtering options for refresh run queries
type RunFilter struct {
	Trigger   string
	Status    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}
