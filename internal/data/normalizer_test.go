package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

func priceTable(rows ...[]string) [][]string {
	return append([][]string{{"Date", "Commodities", "Price"}}, rows...)
}

func metaTable(rows ...[]string) [][]string {
	return append([][]string{{"Commodities", "Sector", "Nation", "Direct Impact", "Inverse Impact"}}, rows...)
}

func TestNormalizer_CleanTables(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-01", "Iron ore", "100"},
			[]string{"2024-01-08", "Iron ore", "105"},
			[]string{"2024-01-08", "Urea", "350.25"},
		),
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "HPG, HSG", "VJC"},
			[]string{"Urea", "Fertilizer", "Vietnam", "DPM", ""},
		),
	}

	ds, report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	require.Len(t, ds.Prices, 3)
	assert.Equal(t, "Iron ore", ds.Prices[0].CommodityID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ds.Prices[0].Date)
	assert.Equal(t, 100.0, ds.Prices[0].Price)

	require.Len(t, ds.Meta, 2)
	assert.Equal(t, "Iron ore", ds.Meta[0].CommodityID)
	assert.Equal(t, "Steel", ds.Meta[0].Sector)
	assert.Equal(t, []string{"HPG", "HSG"}, ds.Meta[0].DirectImpact)
	assert.Equal(t, []string{"VJC"}, ds.Meta[0].InverseImpact)
	assert.Empty(t, ds.Meta[1].InverseImpact)

	assert.Equal(t, 3, report.PriceRowsTotal)
	assert.Equal(t, 0, report.PriceRowsExcluded)
	assert.Equal(t, 2, report.MetaRowsTotal)
	assert.False(t, report.HasWarnings())
}

func TestNormalizer_TrimsWhitespace(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{" 2024-01-08 ", "  Iron ore  ", " 105 "},
		),
		Meta: metaTable(
			[]string{"Iron ore ", " Steel", " Australia ", " HPG ,  HSG ", "  VJC  "},
		),
	}

	ds, report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	require.Len(t, ds.Prices, 1)
	assert.Equal(t, "Iron ore", ds.Prices[0].CommodityID)

	// Trimmed identifiers join even when the raw cells differ in padding
	require.Len(t, ds.Meta, 1)
	assert.Equal(t, "Iron ore", ds.Meta[0].CommodityID)
	assert.Equal(t, "Steel", ds.Meta[0].Sector)
	assert.Equal(t, "Australia", ds.Meta[0].Nation)
	assert.Equal(t, []string{"HPG", "HSG"}, ds.Meta[0].DirectImpact)
	assert.Equal(t, []string{"VJC"}, ds.Meta[0].InverseImpact)
	assert.False(t, report.HasWarnings())
}

func TestNormalizer_ThousandSeparators(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-08", "Coking coal", "1,234.5"},
			[]string{"2024-01-08", "Iron ore", "12,345,678"},
		),
		Meta: metaTable(
			[]string{"Coking coal", "Steel", "Australia", "", ""},
			[]string{"Iron ore", "Steel", "Australia", "", ""},
		),
	}

	ds, _, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	require.Len(t, ds.Prices, 2)
	assert.Equal(t, 1234.5, ds.Prices[0].Price)
	assert.Equal(t, 12345678.0, ds.Prices[1].Price)
}

func TestNormalizer_DateFormats(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-08", "Iron ore", "100"},
			[]string{"2024/01/09", "Iron ore", "101"},
			[]string{"10/01/2024", "Iron ore", "102"},
			[]string{"Jan 11, 2024", "Iron ore", "103"},
		),
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "", ""},
		),
	}

	ds, report, err := normalizer.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, ds.Prices, 4)
	assert.Equal(t, 0, report.PriceRowsExcluded)

	for i, want := range []time.Time{
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	} {
		assert.Equal(t, want, ds.Prices[i].Date)
	}
}

func TestNormalizer_ExcludesBadRows(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-08", "Iron ore", "100"},
			[]string{"not a date", "Iron ore", "101"},
			[]string{"2024-01-09", "Iron ore", "n/a"},
			[]string{"2024-01-10", "", "102"},
			[]string{"2024-01-11", "Iron ore", "103"},
		),
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "", ""},
			[]string{"", "Steel", "Australia", "", ""},
		),
	}

	ds, report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	// Bad rows are excluded and counted, never fatal
	require.Len(t, ds.Prices, 2)
	assert.Equal(t, 5, report.PriceRowsTotal)
	assert.Equal(t, 3, report.PriceRowsExcluded)
	assert.Equal(t, 2, report.MetaRowsTotal)
	assert.Equal(t, 1, report.MetaRowsExcluded)
	assert.True(t, report.HasWarnings())
}

func TestNormalizer_DuplicateObservations(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-08", "Iron ore", "100"},
			[]string{"2024-01-08", "Iron ore", "111"},
		),
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "", ""},
		),
	}

	ds, report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	// The later row wins and the collision is reported
	require.Len(t, ds.Prices, 1)
	assert.Equal(t, 111.0, ds.Prices[0].Price)
	assert.Equal(t, 1, report.DuplicateRows)
}

func TestNormalizer_JoinWarnings(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-08", "Iron ore", "100"},
			[]string{"2024-01-08", "Unlisted metal", "50"},
		),
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "", ""},
			[]string{"Rubber", "Agri", "Vietnam", "", ""},
		),
	}

	ds, report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	// Priced but unlisted commodities stay in the series
	require.Len(t, ds.Prices, 2)
	assert.Equal(t, []string{"Unlisted metal"}, report.PricesWithoutMeta)

	// Listed but unpriced commodities are dropped
	require.Len(t, ds.Meta, 1)
	assert.Equal(t, "Iron ore", ds.Meta[0].CommodityID)
	assert.Equal(t, []string{"Rubber"}, report.MetaWithoutPrices)

	assert.True(t, report.HasWarnings())
}

func TestNormalizer_MissingColumn(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: [][]string{
			{"Date", "Commodities"},
			{"2024-01-08", "Iron ore"},
		},
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "", ""},
		),
	}

	_, _, err := normalizer.Normalize(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingColumn)
	assert.Contains(t, err.Error(), "price")
}

func TestNormalizer_EmptyTables(t *testing.T) {
	normalizer := NewNormalizer()

	_, _, err := normalizer.Normalize(nil)
	assert.ErrorIs(t, err, models.ErrEmptyTable)

	_, _, err = normalizer.Normalize(&RawTables{Prices: priceTable(), Meta: nil})
	assert.ErrorIs(t, err, models.ErrEmptyTable)
}

func TestNormalizer_ExtraColumnsTolerated(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: [][]string{
			{"Date", "Unit", "Commodities", "Price", "Notes"},
			{"2024-01-08", "USD/t", "Iron ore", "105", "spot"},
		},
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "", ""},
		),
	}

	ds, _, err := normalizer.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, ds.Prices, 1)
	assert.Equal(t, 105.0, ds.Prices[0].Price)
}

func TestNormalizer_Idempotent(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{" 2024-01-08", "Iron ore ", "1,050"},
			[]string{"2024-01-01", "Iron ore", "1000"},
		),
		Meta: metaTable(
			[]string{"Iron ore", "Steel", "Australia", "HPG", "VJC"},
		),
	}

	first, firstReport, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	second, secondReport, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstReport, secondReport)
}

func TestNormalizer_DoesNotMutateInput(t *testing.T) {
	normalizer := NewNormalizer()

	raw := &RawTables{
		Prices: priceTable(
			[]string{"2024-01-08", "  Iron ore  ", "1,050"},
		),
		Meta: metaTable(
			[]string{"Iron ore", " Steel ", "Australia", " HPG ", ""},
		),
	}

	_, _, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "  Iron ore  ", raw.Prices[1][1])
	assert.Equal(t, "1,050", raw.Prices[1][2])
	assert.Equal(t, " Steel ", raw.Meta[1][1])
	assert.Equal(t, " HPG ", raw.Meta[1][3])
}
