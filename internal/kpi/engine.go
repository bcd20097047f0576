// Package kpi extracts the dashboard's headline cards from a set of
// ChangeRecords: extremal daily movers, the monthly leader, the
// strongest sector by mean weekly change and the count of extreme
// weekly moves.
package kpi

import (
	"math"
	"sort"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// Engine computes KpiSets from change records and joined metadata
type Engine struct{}

// NewEngine creates a new KPI engine
func NewEngine() *Engine {
	return &Engine{}
}

// Compute scans the records and fills every KPI slot. Only commodities
// with both a change record and metadata participate. Slots with no
// eligible commodity stay nil. Ties go to the lexicographically
// smallest identifier so repeated runs render the same card.
func (e *Engine) Compute(records map[string]*models.ChangeRecord, meta map[string]models.CommodityMeta, latestDate time.Time) *models.KpiSet {
	set := &models.KpiSet{LatestDate: latestDate}

	ids := joinedIDs(records, meta)

	for _, id := range ids {
		rec := records[id]

		if daily := rec.Change(models.WindowDaily); daily.Defined {
			if set.MostBullish == nil || daily.Value > set.MostBullish.Value {
				set.MostBullish = &models.CommodityKpi{CommodityID: id, Value: daily.Value}
			}
			if set.MostBearish == nil || daily.Value < set.MostBearish.Value {
				set.MostBearish = &models.CommodityKpi{CommodityID: id, Value: daily.Value}
			}
		}

		if monthly := rec.Change(models.WindowMonthly); monthly.Defined {
			if set.MonthlyLeader == nil || monthly.Value > set.MonthlyLeader.Value {
				set.MonthlyLeader = &models.CommodityKpi{CommodityID: id, Value: monthly.Value}
			}
		}

		// Strictly greater than the threshold; a move of exactly the
		// threshold does not count
		if weekly := rec.Change(models.WindowWeekly); weekly.Defined {
			if math.Abs(weekly.Value) > models.ExtremeMoveThreshold {
				set.ExtremeMoves++
			}
		}
	}

	set.StrongestSector = e.strongestSector(ids, records, meta)

	// HighestVolatility stays nil: the slot is exposed but no formula
	// is defined for it
	return set
}

// strongestSector ranks sectors by the mean weekly change of their
// members. Members without a defined weekly change are left out of
// their sector's mean, and a sector with no eligible members is left
// out of the ranking.
func (e *Engine) strongestSector(ids []string, records map[string]*models.ChangeRecord, meta map[string]models.CommodityMeta) *models.SectorKpi {
	type sectorAgg struct {
		sum     float64
		members []string
	}
	sectors := make(map[string]*sectorAgg)

	for _, id := range ids {
		weekly := records[id].Change(models.WindowWeekly)
		if !weekly.Defined {
			continue
		}
		name := meta[id].Sector
		if name == "" {
			continue
		}

		agg := sectors[name]
		if agg == nil {
			agg = &sectorAgg{}
			sectors[name] = agg
		}
		agg.sum += weekly.Value
		agg.members = append(agg.members, id)
	}

	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)

	var best *models.SectorKpi
	for _, name := range names {
		agg := sectors[name]
		mean := agg.sum / float64(len(agg.members))
		if best == nil || mean > best.MeanWeekly {
			best = &models.SectorKpi{
				Sector:      name,
				MeanWeekly:  mean,
				Commodities: len(agg.members),
			}
		}
	}
	return best
}

// joinedIDs returns the sorted commodity ids present in both the
// records and the metadata
func joinedIDs(records map[string]*models.ChangeRecord, meta map[string]models.CommodityMeta) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		if _, ok := meta[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
