package changes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

func obs(id string, date time.Time, price float64) models.PriceObservation {
	return models.PriceObservation{Date: date, CommodityID: id, Price: price}
}

func TestCalculator_LatestDate(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("Iron ore", day(2024, 1, 5), 100),
		obs("Urea", day(2024, 1, 8), 350),
		obs("Iron ore", day(2024, 1, 1), 98),
	}

	latest, err := calc.LatestDate(prices)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 8), latest)

	_, err = calc.LatestDate(nil)
	assert.ErrorIs(t, err, models.ErrNoObservations)
}

func TestCalculator_WeeklyChange(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("A", day(2024, 1, 1), 100),
		obs("A", day(2024, 1, 8), 105),
	}

	records := calc.Compute(prices, day(2024, 1, 8))
	require.Contains(t, records, "A")
	rec := records["A"]

	assert.Equal(t, 105.0, rec.LatestPrice)
	assert.Equal(t, day(2024, 1, 8), rec.PriceDate)

	weekly := rec.Change(models.WindowWeekly)
	require.True(t, weekly.Defined)
	assert.Equal(t, 5.0, weekly.Value)

	// YTD anchors to Jan 1, which is observed directly here
	ytd := rec.Change(models.WindowYTD)
	require.True(t, ytd.Defined)
	assert.Equal(t, 5.0, ytd.Value)

	// No observation exists a month or a quarter back
	assert.False(t, rec.Change(models.WindowMonthly).Defined)
	assert.False(t, rec.Change(models.WindowQuarterly).Defined)
}

func TestCalculator_NearestPriorBase(t *testing.T) {
	calc := NewCalculator()

	// No observation lands exactly one day before the latest; the base
	// falls back to the nearest older observation
	prices := []models.PriceObservation{
		obs("A", day(2024, 1, 1), 100),
		obs("A", day(2024, 1, 8), 105),
	}

	records := calc.Compute(prices, day(2024, 1, 8))
	daily := records["A"].Change(models.WindowDaily)
	require.True(t, daily.Defined)
	assert.Equal(t, 5.0, daily.Value)
}

func TestCalculator_UndefinedIsNotZero(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		// Flat has a genuine 0% move; Lone has no history at all
		obs("Flat", day(2024, 1, 7), 80),
		obs("Flat", day(2024, 1, 8), 80),
		obs("Lone", day(2024, 1, 8), 42),
	}

	records := calc.Compute(prices, day(2024, 1, 8))

	flat := records["Flat"].Change(models.WindowDaily)
	require.True(t, flat.Defined)
	assert.Equal(t, 0.0, flat.Value)

	lone := records["Lone"].Change(models.WindowDaily)
	assert.False(t, lone.Defined)
}

func TestCalculator_ZeroBasePrice(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("A", day(2024, 1, 1), 0),
		obs("A", day(2024, 1, 8), 10),
	}

	records := calc.Compute(prices, day(2024, 1, 8))

	// Division by a zero base is undefined, not infinite
	assert.False(t, records["A"].Change(models.WindowWeekly).Defined)
}

func TestCalculator_SignMatchesPriceDifference(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("Up", day(2024, 1, 1), 100),
		obs("Up", day(2024, 1, 8), 120),
		obs("Down", day(2024, 1, 1), 100),
		obs("Down", day(2024, 1, 8), 75),
	}

	records := calc.Compute(prices, day(2024, 1, 8))

	up := records["Up"].Change(models.WindowWeekly)
	require.True(t, up.Defined)
	assert.Greater(t, up.Value, 0.0)
	assert.Equal(t, 20.0, up.Value)

	down := records["Down"].Change(models.WindowWeekly)
	require.True(t, down.Defined)
	assert.Less(t, down.Value, 0.0)
	assert.Equal(t, -25.0, down.Value)
}

func TestCalculator_ChangeTypeFollowsWeekly(t *testing.T) {
	calc := NewCalculator()

	// Daily move is negative but the weekly move is positive; the
	// classification follows the weekly window
	prices := []models.PriceObservation{
		obs("A", day(2024, 1, 1), 100),
		obs("A", day(2024, 1, 7), 112),
		obs("A", day(2024, 1, 8), 110),
	}

	records := calc.Compute(prices, day(2024, 1, 8))
	rec := records["A"]

	daily := rec.Change(models.WindowDaily)
	require.True(t, daily.Defined)
	assert.Less(t, daily.Value, 0.0)

	assert.Equal(t, models.ChangePositive, rec.ChangeType)
}

func TestCalculator_ChangeTypeNeutralWhenWeeklyUndefined(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("Lone", day(2024, 1, 8), 42),
	}

	records := calc.Compute(prices, day(2024, 1, 8))
	assert.Equal(t, models.ChangeNeutral, records["Lone"].ChangeType)
}

func TestCalculator_GlobalReferenceDate(t *testing.T) {
	calc := NewCalculator()

	// Stale's newest observation predates the global latest date; its
	// record anchors to its own most recent price
	prices := []models.PriceObservation{
		obs("Fresh", day(2024, 1, 8), 200),
		obs("Stale", day(2024, 1, 1), 50),
		obs("Stale", day(2024, 1, 5), 55),
	}

	records := calc.Compute(prices, day(2024, 1, 8))
	stale := records["Stale"]

	assert.Equal(t, 55.0, stale.LatestPrice)
	assert.Equal(t, day(2024, 1, 5), stale.PriceDate)

	weekly := stale.Change(models.WindowWeekly)
	require.True(t, weekly.Defined)
	assert.Equal(t, 10.0, weekly.Value)
}

func TestCalculator_MonthEndBase(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("A", day(2024, 2, 29), 200),
		obs("A", day(2024, 3, 31), 210),
	}

	records := calc.Compute(prices, day(2024, 3, 31))

	monthly := records["A"].Change(models.WindowMonthly)
	require.True(t, monthly.Defined)
	assert.Equal(t, 5.0, monthly.Value)
}

func TestCalculator_SkipsFutureOnlyCommodities(t *testing.T) {
	calc := NewCalculator()

	prices := []models.PriceObservation{
		obs("A", day(2024, 1, 8), 100),
		obs("Future", day(2024, 2, 1), 500),
	}

	records := calc.Compute(prices, day(2024, 1, 8))
	assert.Contains(t, records, "A")
	assert.NotContains(t, records, "Future")
}
