package timeseries

import (
	"fmt"
	"time"
)

// Period is a calendar bucketing granularity.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// PeriodStart truncates t to the start of its period: Monday for weeks,
// the first of the month, or the first day of the quarter.
func PeriodStart(t time.Time, period Period) (time.Time, error) {
	switch period {
	case PeriodWeek:
		// Weeks start on Monday
		offset := (int(t.Weekday()) + 6) % 7
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return day.AddDate(0, 0, -offset), nil
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()), nil
	case PeriodQuarter:
		quarterMonth := time.Month(((int(t.Month())-1)/3)*3 + 1)
		return time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, t.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period: %s", period)
	}
}

// PeriodEnd returns the last day of t's period: Sunday for weeks, the
// last day of the month or quarter.
func PeriodEnd(t time.Time, period Period) (time.Time, error) {
	start, err := PeriodStart(t, period)
	if err != nil {
		return time.Time{}, err
	}
	switch period {
	case PeriodWeek:
		return start.AddDate(0, 0, 6), nil
	case PeriodMonth:
		return start.AddDate(0, 1, -1), nil
	default:
		return start.AddDate(0, 3, -1), nil
	}
}

// LastPerPeriod buckets the series by period and keeps the last value of
// each bucket, labeled by the bucket's closing date. Output is ordered
// by time.
func (s *Series) LastPerPeriod(period Period) ([]Point, error) {
	if len(s.points) == 0 {
		return nil, nil
	}

	out := make([]Point, 0, len(s.points))
	var current time.Time
	for i, p := range s.points {
		start, err := PeriodStart(p.Time, period)
		if err != nil {
			return nil, err
		}
		end, _ := PeriodEnd(p.Time, period)
		if i == 0 || !start.Equal(current) {
			out = append(out, Point{Time: end, Value: p.Value})
			current = start
			continue
		}
		// Same bucket: later point wins
		out[len(out)-1].Value = p.Value
	}
	return out, nil
}
