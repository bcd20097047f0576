package changes

import (
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// TargetDate returns the base-price reference date for a window,
// counting back from the given latest date.
func TargetDate(latest time.Time, w models.Window) time.Time {
	switch w {
	case models.WindowDaily:
		return latest.AddDate(0, 0, -1)
	case models.WindowWeekly:
		return latest.AddDate(0, 0, -7)
	case models.WindowMonthly:
		return monthsBefore(latest, 1)
	case models.WindowQuarterly:
		return monthsBefore(latest, 3)
	case models.WindowYTD:
		return time.Date(latest.Year(), time.January, 1, 0, 0, 0, 0, latest.Location())
	default:
		return latest
	}
}

// monthsBefore steps back whole calendar months, clamping the day to
// the length of the target month. March 31 minus one month is the last
// day of February, not March 2 or 3.
func monthsBefore(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	m := int(month) - months
	for m < 1 {
		m += 12
		year--
	}

	if last := daysInMonth(year, time.Month(m)); day > last {
		day = last
	}
	return time.Date(year, time.Month(m), day, 0, 0, 0, 0, t.Location())
}

// daysInMonth returns the number of days in the given month
func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
