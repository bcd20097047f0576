package data

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// Column names expected in the published tables, matched
// case-insensitively after trimming. Extra columns are ignored.
const (
	colDate      = "date"
	colCommodity = "commodities"
	colPrice     = "price"
	colSector    = "sector"
	colNation    = "nation"
	colDirect    = "direct impact"
	colInverse   = "inverse impact"
)

// dateLayouts are tried in order. Slash and dash forms are day-first,
// matching the source sheets.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// Dataset is the cleaned, join-ready form of the two input tables.
// Prices are sorted by (commodity, date) and hold at most one
// observation per (date, commodity). Meta is sorted by commodity and
// only contains commodities that have at least one price observation.
type Dataset struct {
	Prices []models.PriceObservation
	Meta   []models.CommodityMeta
}

// MetaByID returns commodity metadata indexed by identifier
func (d *Dataset) MetaByID() map[string]models.CommodityMeta {
	byID := make(map[string]models.CommodityMeta, len(d.Meta))
	for _, m := range d.Meta {
		byID[m.CommodityID] = m
	}
	return byID
}

// PricesByID groups observations per commodity, in date order
func (d *Dataset) PricesByID() map[string][]models.PriceObservation {
	byID := make(map[string][]models.PriceObservation)
	for _, obs := range d.Prices {
		byID[obs.CommodityID] = append(byID[obs.CommodityID], obs)
	}
	return byID
}

// Normalizer validates and coerces the raw tables into a Dataset
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize cleans both tables and enforces the join invariant between
// them. Bad rows are excluded and counted in the report, never fatal.
// The input records are not modified; all cleaning happens on copies.
func (n *Normalizer) Normalize(raw *RawTables) (*Dataset, *models.NormalizeReport, error) {
	if raw == nil || len(raw.Prices) == 0 || len(raw.Meta) == 0 {
		return nil, nil, models.ErrEmptyTable
	}

	report := &models.NormalizeReport{}

	prices, err := n.normalizePrices(raw.Prices, report)
	if err != nil {
		return nil, nil, err
	}

	meta, err := n.normalizeMeta(raw.Meta, report)
	if err != nil {
		return nil, nil, err
	}

	meta = n.joinTables(prices, meta, report)

	return &Dataset{Prices: prices, Meta: meta}, report, nil
}

func (n *Normalizer) normalizePrices(records [][]string, report *models.NormalizeReport) ([]models.PriceObservation, error) {
	cols, err := resolveColumns(records[0], colDate, colCommodity, colPrice)
	if err != nil {
		return nil, fmt.Errorf("price table: %w", err)
	}

	type obsKey struct {
		date time.Time
		id   string
	}
	seen := make(map[obsKey]int)

	out := make([]models.PriceObservation, 0, len(records)-1)
	for _, row := range records[1:] {
		report.PriceRowsTotal++

		date, ok := parseDate(cell(row, cols[colDate]))
		if !ok {
			report.PriceRowsExcluded++
			continue
		}
		price, ok := parsePrice(cell(row, cols[colPrice]))
		if !ok {
			report.PriceRowsExcluded++
			continue
		}

		obs := models.PriceObservation{
			Date:        date,
			CommodityID: strings.TrimSpace(cell(row, cols[colCommodity])),
			Price:       price,
		}
		if obs.Validate() != nil {
			report.PriceRowsExcluded++
			continue
		}

		// At most one observation per (date, commodity): the later row wins
		key := obsKey{date: obs.Date, id: obs.CommodityID}
		if i, dup := seen[key]; dup {
			out[i] = obs
			report.DuplicateRows++
			continue
		}
		seen[key] = len(out)
		out = append(out, obs)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CommodityID != out[j].CommodityID {
			return out[i].CommodityID < out[j].CommodityID
		}
		return out[i].Date.Before(out[j].Date)
	})

	return out, nil
}

func (n *Normalizer) normalizeMeta(records [][]string, report *models.NormalizeReport) ([]models.CommodityMeta, error) {
	cols, err := resolveColumns(records[0], colCommodity, colSector, colNation, colDirect, colInverse)
	if err != nil {
		return nil, fmt.Errorf("commodity list: %w", err)
	}

	seen := make(map[string]int)

	out := make([]models.CommodityMeta, 0, len(records)-1)
	for _, row := range records[1:] {
		report.MetaRowsTotal++

		meta := models.CommodityMeta{
			CommodityID:   strings.TrimSpace(cell(row, cols[colCommodity])),
			Sector:        strings.TrimSpace(cell(row, cols[colSector])),
			Nation:        strings.TrimSpace(cell(row, cols[colNation])),
			DirectImpact:  splitImpactList(cell(row, cols[colDirect])),
			InverseImpact: splitImpactList(cell(row, cols[colInverse])),
		}
		if meta.Validate() != nil {
			report.MetaRowsExcluded++
			continue
		}

		if i, dup := seen[meta.CommodityID]; dup {
			out[i] = meta
			report.DuplicateRows++
			continue
		}
		seen[meta.CommodityID] = len(out)
		out = append(out, meta)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CommodityID < out[j].CommodityID
	})

	return out, nil
}

// joinTables enforces the join invariant between the two tables.
// Commodities priced but not listed stay in the price series and are
// reported; listed commodities without prices are dropped and
// reported.
func (n *Normalizer) joinTables(prices []models.PriceObservation, meta []models.CommodityMeta, report *models.NormalizeReport) []models.CommodityMeta {
	priced := make(map[string]bool, len(prices))
	for _, obs := range prices {
		priced[obs.CommodityID] = true
	}
	listed := make(map[string]bool, len(meta))

	kept := make([]models.CommodityMeta, 0, len(meta))
	for _, m := range meta {
		listed[m.CommodityID] = true
		if !priced[m.CommodityID] {
			report.MetaWithoutPrices = append(report.MetaWithoutPrices, m.CommodityID)
			continue
		}
		kept = append(kept, m)
	}

	for id := range priced {
		if !listed[id] {
			report.PricesWithoutMeta = append(report.PricesWithoutMeta, id)
		}
	}

	sort.Strings(report.PricesWithoutMeta)
	sort.Strings(report.MetaWithoutPrices)

	return kept
}

// resolveColumns maps required column names to their index in the
// header row
func resolveColumns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrMissingColumn, name)
		}
	}
	return cols, nil
}

// cell reads a column from a possibly ragged row
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseDate coerces a cell into a canonical date at UTC midnight
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parsePrice coerces a cell into a number, stripping thousand
// separators and spaces
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitImpactList parses a delimiter-separated list of stock codes
func splitImpactList(s string) []string {
	s = strings.ReplaceAll(s, ";", ",")
	parts := strings.Split(s, ",")

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
