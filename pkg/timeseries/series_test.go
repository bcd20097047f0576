package timeseries

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSeries_SortsOnConstruction(t *testing.T) {
	s := New([]Point{
		{Time: date(2024, 1, 8), Value: 105},
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 5), Value: 102},
	})

	pts := s.Points()
	if len(pts) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(pts))
	}
	if !pts[0].Time.Equal(date(2024, 1, 1)) {
		t.Errorf("Expected first point 2024-01-01, got %v", pts[0].Time)
	}
	if !pts[2].Time.Equal(date(2024, 1, 8)) {
		t.Errorf("Expected last point 2024-01-08, got %v", pts[2].Time)
	}
}

func TestSeries_Latest(t *testing.T) {
	s := New([]Point{
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 8), Value: 105},
	})

	latest, ok := s.Latest()
	if !ok {
		t.Fatal("Expected latest point")
	}
	if latest.Value != 105 {
		t.Errorf("Expected latest value 105, got %f", latest.Value)
	}

	empty := New(nil)
	if _, ok := empty.Latest(); ok {
		t.Error("Empty series should have no latest point")
	}
}

func TestSeries_At_NearestPrior(t *testing.T) {
	s := New([]Point{
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 5), Value: 102},
		{Time: date(2024, 1, 8), Value: 105},
	})

	// Exact match
	p, ok := s.At(date(2024, 1, 5))
	if !ok || p.Value != 102 {
		t.Errorf("Expected exact match at 2024-01-05 with 102, got %v ok=%v", p, ok)
	}

	// Between points: steps back to the prior one
	p, ok = s.At(date(2024, 1, 7))
	if !ok || p.Value != 102 {
		t.Errorf("Expected 102 at 2024-01-07, got %v ok=%v", p, ok)
	}

	// After the last point
	p, ok = s.At(date(2024, 2, 1))
	if !ok || p.Value != 105 {
		t.Errorf("Expected 105 at 2024-02-01, got %v ok=%v", p, ok)
	}
}

func TestSeries_At_NoPriorObservation(t *testing.T) {
	s := New([]Point{
		{Time: date(2024, 1, 5), Value: 102},
	})

	// Before the first point there is nothing to return
	if _, ok := s.At(date(2024, 1, 4)); ok {
		t.Error("Expected no point before the series start")
	}
}

func TestPercentChange(t *testing.T) {
	v, ok := PercentChange(105, 100)
	if !ok {
		t.Fatal("Expected defined change")
	}
	if v != 5.0 {
		t.Errorf("Expected 5.0, got %f", v)
	}

	v, ok = PercentChange(95, 100)
	if !ok || v != -5.0 {
		t.Errorf("Expected -5.0, got %f ok=%v", v, ok)
	}

	// Zero base is undefined, not infinite
	if _, ok := PercentChange(10, 0); ok {
		t.Error("Expected undefined change for zero base")
	}
}
