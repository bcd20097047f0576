// Package changes derives per-commodity percentage changes over the
// dashboard's fixed calendar windows. All windows in a run are anchored
// to one global latest date so every section of the dashboard agrees on
// what "current" means.
package changes

import (
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/timeseries"
)

// Calculator computes ChangeRecords from normalized price observations
type Calculator struct{}

// NewCalculator creates a new change calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// LatestDate returns the most recent date present anywhere in the
// price table
func (c *Calculator) LatestDate(prices []models.PriceObservation) (time.Time, error) {
	if len(prices) == 0 {
		return time.Time{}, models.ErrNoObservations
	}

	latest := prices[0].Date
	for _, obs := range prices[1:] {
		if obs.Date.After(latest) {
			latest = obs.Date
		}
	}
	return latest, nil
}

// Compute builds one ChangeRecord per commodity, relative to latestDate.
// A window whose reference date precedes all of a commodity's
// observations, or whose base price is zero, stays undefined. Undefined
// is a first-class state here: it is never collapsed to zero.
func (c *Calculator) Compute(prices []models.PriceObservation, latestDate time.Time) map[string]*models.ChangeRecord {
	series := buildSeries(prices)

	records := make(map[string]*models.ChangeRecord, len(series))
	for id, s := range series {
		latest, ok := s.At(latestDate)
		if !ok {
			// All observations are newer than the reference date
			continue
		}

		record := &models.ChangeRecord{
			CommodityID: id,
			LatestPrice: latest.Value,
			PriceDate:   latest.Time,
			Changes:     make(map[models.Window]models.PctChange, len(models.Windows())),
		}
		for _, w := range models.Windows() {
			record.Changes[w] = windowChange(s, latest.Value, latestDate, w)
		}

		// Filters classify on the weekly change to damp day-to-day noise
		record.ChangeType = models.ChangeTypeOf(record.Change(models.WindowWeekly))

		records[id] = record
	}
	return records
}

// windowChange finds the most recent observation at or before the
// window's reference date and computes the change against it. The base
// lookup never uses a future observation.
func windowChange(s *timeseries.Series, latestPrice float64, latestDate time.Time, w models.Window) models.PctChange {
	base, ok := s.At(TargetDate(latestDate, w))
	if !ok {
		return models.UndefinedPct()
	}

	pct, ok := timeseries.PercentChange(latestPrice, base.Value)
	if !ok {
		return models.UndefinedPct()
	}
	return models.DefinedPct(pct)
}

func buildSeries(prices []models.PriceObservation) map[string]*timeseries.Series {
	grouped := make(map[string][]timeseries.Point)
	for _, obs := range prices {
		grouped[obs.CommodityID] = append(grouped[obs.CommodityID], timeseries.Point{
			Time:  obs.Date,
			Value: obs.Price,
		})
	}

	out := make(map[string]*timeseries.Series, len(grouped))
	for id, points := range grouped {
		out[id] = timeseries.New(points)
	}
	return out
}
