package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// MockDatasetStorage is a mock implementation of DatasetStorage for testing
type MockDatasetStorage struct {
	Observations []models.PriceObservation
	Meta         []models.CommodityMeta
	WriteErr     error
	GetErr       error
}

func (m *MockDatasetStorage) WriteObservations(ctx context.Context, observations []models.PriceObservation) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Observations = append(m.Observations, observations...)
	return nil
}

func (m *MockDatasetStorage) WriteMeta(ctx context.Context, meta []models.CommodityMeta) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Meta = append(m.Meta, meta...)
	return nil
}

func (m *MockDatasetStorage) GetObservations(ctx context.Context, commodityID string, start, end time.Time) ([]models.PriceObservation, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var result []models.PriceObservation
	for _, obs := range m.Observations {
		if obs.CommodityID != commodityID {
			continue
		}
		if !start.IsZero() && obs.Date.Before(start) {
			continue
		}
		if !end.IsZero() && obs.Date.After(end) {
			continue
		}
		result = append(result, obs)
	}
	return result, nil
}

func (m *MockDatasetStorage) GetCommodities(ctx context.Context) ([]models.CommodityMeta, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Meta, nil
}

func (m *MockDatasetStorage) Close() error {
	return nil
}

// MockRefreshLog is a mock implementation of RefreshLogStorage for testing
type MockRefreshLog struct {
	Runs      []*models.RefreshRun
	RecordErr error
	GetErr    error
}

func (m *MockRefreshLog) RecordRun(ctx context.Context, run *models.RefreshRun) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.Runs = append(m.Runs, run)
	return nil
}

func (m *MockRefreshLog) GetRuns(ctx context.Context, filter RunFilter) ([]*models.RefreshRun, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var result []*models.RefreshRun
	for _, run := range m.Runs {
		if filter.Trigger != "" && run.Trigger != filter.Trigger {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if !filter.StartTime.IsZero() && run.StartedAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && run.StartedAt.After(filter.EndTime) {
			continue
		}
		result = append(result, run)
	}
	// Apply limit and offset
	start := filter.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + filter.Limit
	if end > len(result) {
		end = len(result)
	}
	if filter.Limit > 0 {
		return result[start:end], nil
	}
	return result[start:], nil
}

func (m *MockRefreshLog) GetRun(ctx context.Context, runID string) (*models.RefreshRun, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, run := range m.Runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return nil, nil
}

func (m *MockRefreshLog) Close() error {
	return nil
}
