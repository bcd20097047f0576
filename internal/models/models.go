package models

import (
	"math"
	"time"
)

// PriceObservation is a single commodity price on a given date. The
// normalizer guarantees at most one observation per (date, commodity)
// pair; observations are immutable once normalized.
type PriceObservation struct {
	Date        time.Time `json:"date"`
	CommodityID string    `json:"commodity_id"`
	Price       float64   `json:"price"`
}

// Validate validates a PriceObservation
func (o *PriceObservation) Validate() error {
	if o.CommodityID == "" {
		return ErrInvalidCommodityID
	}
	if o.Date.IsZero() {
		return ErrInvalidDate
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return ErrInvalidPrice
	}
	return nil
}

// CommodityMeta describes a commodity: its sector, nation and the stock
// codes expected to move with (direct) or against (inverse) its price.
// Impact lists keep their configured order.
type CommodityMeta struct {
	CommodityID   string   `json:"commodity_id"`
	Sector        string   `json:"sector"`
	Nation        string   `json:"nation"`
	DirectImpact  []string `json:"direct_impact"`
	InverseImpact []string `json:"inverse_impact"`
}

// Validate validates a CommodityMeta
func (m *CommodityMeta) Validate() error {
	if m.CommodityID == "" {
		return ErrInvalidCommodityID
	}
	return nil
}

// ChangeRecord holds one commodity's latest price and its percentage
// change per window. Records are fully recomputed on every pipeline run
// and consumed read-only downstream.
type ChangeRecord struct {
	CommodityID string               `json:"commodity_id"`
	LatestPrice float64              `json:"latest_price"`
	PriceDate   time.Time            `json:"price_date"`
	Changes     map[Window]PctChange `json:"changes"`
	ChangeType  ChangeType           `json:"change_type"`
}

// Change returns the percentage change for a window. Unknown windows
// report an undefined value.
func (r *ChangeRecord) Change(w Window) PctChange {
	if r.Changes == nil {
		return PctChange{}
	}
	return r.Changes[w]
}

// TableRow is one row of the dashboard table: meta columns joined with
// the commodity's change record. The impact lists ride along for label
// building but are excluded from the table rendering.
type TableRow struct {
	CommodityID   string     `json:"commodity_id"`
	Sector        string     `json:"sector"`
	Nation        string     `json:"nation"`
	LatestPrice   float64    `json:"latest_price"`
	PriceDate     time.Time  `json:"price_date"`
	Daily         PctChange  `json:"daily"`
	Weekly        PctChange  `json:"weekly"`
	Monthly       PctChange  `json:"monthly"`
	Quarterly     PctChange  `json:"quarterly"`
	YTD           PctChange  `json:"ytd"`
	ChangeType    ChangeType `json:"change_type"`
	DirectImpact  []string   `json:"-"`
	InverseImpact []string   `json:"-"`
}

// NormalizeReport surfaces what normalization excluded or flagged. Rows
// are never dropped silently: every exclusion is counted here and the
// join mismatches are listed so callers can warn instead of crash.
type NormalizeReport struct {
	PriceRowsTotal    int      `json:"price_rows_total"`
	PriceRowsExcluded int      `json:"price_rows_excluded"`
	MetaRowsTotal     int      `json:"meta_rows_total"`
	MetaRowsExcluded  int      `json:"meta_rows_excluded"`
	DuplicateRows     int      `json:"duplicate_rows"`
	PricesWithoutMeta []string `json:"prices_without_meta,omitempty"`
	MetaWithoutPrices []string `json:"meta_without_prices,omitempty"`
}

// HasWarnings reports whether normalization flagged anything at all.
func (r *NormalizeReport) HasWarnings() bool {
	return r.PriceRowsExcluded > 0 || r.MetaRowsExcluded > 0 || r.DuplicateRows > 0 ||
		len(r.PricesWithoutMeta) > 0 || len(r.MetaWithoutPrices) > 0
}

// SeriesPoint is one point of a charted price series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}
