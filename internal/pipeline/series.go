package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/mohamedkhairy/commodity-dashboard/internal/impact"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/timeseries"
)

// Chart intervals
const (
	IntervalDaily     = "daily"
	IntervalWeekly    = "weekly"
	IntervalMonthly   = "monthly"
	IntervalQuarterly = "quarterly"
)

// BuildSeries returns a commodity's price series at the requested
// granularity. Daily is the raw series; coarser intervals keep the last
// price of each period, labeled by the period's closing date.
func BuildSeries(snap *Snapshot, commodityID, interval string) ([]models.SeriesPoint, error) {
	points := make([]timeseries.Point, 0)
	for _, obs := range snap.Prices {
		if obs.CommodityID == commodityID {
			points = append(points, timeseries.Point{Time: obs.Date, Value: obs.Price})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownCommodity, commodityID)
	}

	series := timeseries.New(points)

	var bucketed []timeseries.Point
	var err error
	switch interval {
	case IntervalDaily, "":
		bucketed = series.Points()
	case IntervalWeekly:
		bucketed, err = series.LastPerPeriod(timeseries.PeriodWeek)
	case IntervalMonthly:
		bucketed, err = series.LastPerPeriod(timeseries.PeriodMonth)
	case IntervalQuarterly:
		bucketed, err = series.LastPerPeriod(timeseries.PeriodQuarter)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidInterval, interval)
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.SeriesPoint, len(bucketed))
	for i, p := range bucketed {
		out[i] = models.SeriesPoint{Date: p.Time, Price: p.Value}
	}
	return out, nil
}

// Series loads the current snapshot and builds a commodity's series.
func (s *Service) Series(ctx context.Context, commodityID, interval string) ([]models.SeriesPoint, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return BuildSeries(snap, commodityID, interval)
}

// Labels builds the impact-stock label for a commodity's change in the
// given window. A zero or undefined change yields an empty label:
// without a direction there is nothing to annotate.
func (s *Service) Labels(ctx context.Context, commodityID string, window models.Window) (models.ImpactLabel, error) {
	if err := window.Validate(); err != nil {
		return models.ImpactLabel{}, err
	}

	snap, err := s.Load(ctx)
	if err != nil {
		return models.ImpactLabel{}, err
	}

	meta, ok := snap.MetaFor(commodityID)
	if !ok {
		return models.ImpactLabel{}, fmt.Errorf("%w: %s", models.ErrUnknownCommodity, commodityID)
	}

	rec, ok := snap.Records[commodityID]
	if !ok {
		return models.ImpactLabel{}, fmt.Errorf("%w: %s", models.ErrUnknownCommodity, commodityID)
	}

	sign, ok := impact.SignFromChange(rec.Change(window))
	if !ok {
		return models.ImpactLabel{CommodityID: commodityID, Window: window}, nil
	}

	return s.labels.Build(commodityID, window, meta, sign), nil
}

// Mover is one bar of the movers chart: a commodity, its change for the
// window, and the grouped impact-stock annotation under the bar.
type Mover struct {
	CommodityID string  `json:"commodity_id"`
	Value       float64 `json:"value"`
	Annotation  string  `json:"annotation,omitempty"`
}

// MoverGroups splits a window's changes into gainers and losers the way
// the original chart did: undefined and exactly-zero changes are left
// out, gainers sorted descending, losers ascending, each annotated with
// its impact stocks.
type MoverGroups struct {
	Window   models.Window `json:"window"`
	Positive []Mover       `json:"positive"`
	Negative []Mover       `json:"negative"`
}

// Movers builds the movers chart feed for a window.
func (s *Service) Movers(ctx context.Context, window models.Window) (*MoverGroups, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	snap, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	groups := &MoverGroups{Window: window, Positive: []Mover{}, Negative: []Mover{}}
	for _, row := range snap.Table {
		rec, ok := snap.Records[row.CommodityID]
		if !ok {
			continue
		}
		change := rec.Change(window)
		sign, ok := impact.SignFromChange(change)
		if !ok {
			continue
		}

		meta, _ := snap.MetaFor(row.CommodityID)
		label := s.labels.Build(row.CommodityID, window, meta, sign)
		mover := Mover{
			CommodityID: row.CommodityID,
			Value:       change.Value,
			Annotation:  impact.Annotation(label),
		}
		if sign == models.DirectionPositive {
			groups.Positive = append(groups.Positive, mover)
		} else {
			groups.Negative = append(groups.Negative, mover)
		}
	}

	sort.Slice(groups.Positive, func(i, j int) bool {
		return groups.Positive[i].Value > groups.Positive[j].Value
	})
	sort.Slice(groups.Negative, func(i, j int) bool {
		return groups.Negative[i].Value < groups.Negative[j].Value
	})

	return groups, nil
}
