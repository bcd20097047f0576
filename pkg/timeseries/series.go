// Package timeseries provides primitives for working with dated price
// series: nearest-prior lookups, percentage changes and period bucketing.
// It is self-contained so that calculators can be tested without any of
// the application's models.
package timeseries

import (
	"sort"
	"time"
)

// Point is a single dated value in a series.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is a set of points ordered by ascending time.
type Series struct {
	points []Point
}

// New builds a Series from points, copying and sorting them by time.
// The input slice is not modified.
func New(points []Point) *Series {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return &Series{points: sorted}
}

// Len returns the number of points in the series.
func (s *Series) Len() int {
	return len(s.points)
}

// Points returns a copy of the underlying points in ascending time order.
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Latest returns the most recent point, or false on an empty series.
func (s *Series) Latest() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// At returns the most recent point at or before target. It never returns
// a point from the future; if no point exists at or before target it
// returns false.
func (s *Series) At(target time.Time) (Point, bool) {
	// First index strictly after target; the point before it is the match.
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Time.After(target)
	})
	if idx == 0 {
		return Point{}, false
	}
	return s.points[idx-1], true
}

// PercentChange returns (latest-base)/base*100. The second return is
// false when base is zero, since the change is undefined in that case.
func PercentChange(latest, base float64) (float64, bool) {
	if base == 0 {
		return 0, false
	}
	return ((latest - base) / base) * 100.0, true
}
