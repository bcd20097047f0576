package models

import "time"

// Refresh triggers
const (
	RefreshTriggerSchedule = "schedule"
	RefreshTriggerStartup  = "startup"
	RefreshTriggerManual   = "manual"
)

// Refresh run statuses
const (
	RefreshStatusSuccess = "success"
	RefreshStatusError   = "error"
)

// RefreshEvent announces a completed pipeline run on the refresh
// channel so gateways can push the update to connected dashboards.
type RefreshEvent struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	LatestDate time.Time `json:"latest_date"`
	Timestamp  time.Time `json:"timestamp"`
}

// RefreshRun is the persisted record of one refresh: when it ran, what
// triggered it, and the normalization counts it produced. Runs are the
// audit trail behind the dashboard's refresh history.
type RefreshRun struct {
	ID                string        `json:"id"`
	Trigger           string        `json:"trigger"`
	Status            string        `json:"status"`
	Error             string        `json:"error,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	Commodities       int           `json:"commodities"`
	LatestDate        time.Time     `json:"latest_date"`
	PriceRowsTotal    int           `json:"price_rows_total"`
	PriceRowsExcluded int           `json:"price_rows_excluded"`
	DuplicateRows     int           `json:"duplicate_rows"`
}

// Validate validates a RefreshRun
func (r *RefreshRun) Validate() error {
	if r.ID == "" {
		return ErrInvalidRunID
	}
	if r.StartedAt.IsZero() {
		return ErrInvalidDate
	}
	if r.Status != RefreshStatusSuccess && r.Status != RefreshStatusError {
		return ErrInvalidRunStatus
	}
	return nil
}
