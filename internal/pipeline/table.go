package pipeline

import (
	"context"
	"sort"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// TableFilter narrows the dashboard table the way the original sidebar
// did: by sector, nation, change classification or a single commodity.
// Empty fields match everything.
type TableFilter struct {
	Sector      string
	Nation      string
	ChangeType  string
	CommodityID string
}

// IsEmpty reports whether the filter constrains nothing
func (f TableFilter) IsEmpty() bool {
	return f.Sector == "" && f.Nation == "" && f.ChangeType == "" && f.CommodityID == ""
}

// Matches reports whether a table row passes the filter
func (f TableFilter) Matches(row models.TableRow) bool {
	if f.Sector != "" && row.Sector != f.Sector {
		return false
	}
	if f.Nation != "" && row.Nation != f.Nation {
		return false
	}
	if f.ChangeType != "" && string(row.ChangeType) != f.ChangeType {
		return false
	}
	if f.CommodityID != "" && row.CommodityID != f.CommodityID {
		return false
	}
	return true
}

// FilterRows returns the rows passing the filter, order preserved
func FilterRows(rows []models.TableRow, filter TableFilter) []models.TableRow {
	if filter.IsEmpty() {
		return rows
	}
	out := make([]models.TableRow, 0, len(rows))
	for _, row := range rows {
		if filter.Matches(row) {
			out = append(out, row)
		}
	}
	return out
}

// FilterOptions lists the distinct values a client can filter on.
type FilterOptions struct {
	Sectors     []string            `json:"sectors"`
	Nations     []string            `json:"nations"`
	ChangeTypes []models.ChangeType `json:"change_types"`
	Commodities []string            `json:"commodities"`
}

// Options derives the distinct filter values from a table
func Options(rows []models.TableRow) FilterOptions {
	sectors := make(map[string]bool)
	nations := make(map[string]bool)
	commodities := make([]string, 0, len(rows))

	for _, row := range rows {
		if row.Sector != "" {
			sectors[row.Sector] = true
		}
		if row.Nation != "" {
			nations[row.Nation] = true
		}
		commodities = append(commodities, row.CommodityID)
	}

	return FilterOptions{
		Sectors:     sortedKeys(sectors),
		Nations:     sortedKeys(nations),
		ChangeTypes: models.ChangeTypes(),
		Commodities: commodities,
	}
}

// KpisFor recomputes the KPI cards over the filtered table subset, the
// way the original dashboard recomputed its cards after sidebar
// filtering. An empty filter returns the snapshot's precomputed set.
func (s *Service) KpisFor(ctx context.Context, filter TableFilter) (*models.KpiSet, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if filter.IsEmpty() {
		return snap.Kpis, nil
	}

	rows := FilterRows(snap.Table, filter)
	records := make(map[string]*models.ChangeRecord, len(rows))
	meta := make(map[string]models.CommodityMeta, len(rows))
	for _, row := range rows {
		if rec, ok := snap.Records[row.CommodityID]; ok {
			records[row.CommodityID] = rec
		}
		if m, ok := snap.MetaFor(row.CommodityID); ok {
			meta[row.CommodityID] = m
		}
	}

	return s.engine.Compute(records, meta, snap.LatestDate), nil
}

// buildTable joins metadata with change records into sorted table rows.
// Commodities without a change record (no observation at or before the
// reference date) are left out.
func buildTable(meta []models.CommodityMeta, records map[string]*models.ChangeRecord) []models.TableRow {
	rows := make([]models.TableRow, 0, len(meta))
	for _, m := range meta {
		rec, ok := records[m.CommodityID]
		if !ok {
			continue
		}
		rows = append(rows, models.TableRow{
			CommodityID:   m.CommodityID,
			Sector:        m.Sector,
			Nation:        m.Nation,
			LatestPrice:   rec.LatestPrice,
			PriceDate:     rec.PriceDate,
			Daily:         rec.Change(models.WindowDaily),
			Weekly:        rec.Change(models.WindowWeekly),
			Monthly:       rec.Change(models.WindowMonthly),
			Quarterly:     rec.Change(models.WindowQuarterly),
			YTD:           rec.Change(models.WindowYTD),
			ChangeType:    rec.ChangeType,
			DirectImpact:  m.DirectImpact,
			InverseImpact: m.InverseImpact,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CommodityID < rows[j].CommodityID
	})
	return rows
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
