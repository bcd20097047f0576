package models

import "time"

// CommodityKpi is one KPI card value: a commodity and its percentage
// change for the card's window.
type CommodityKpi struct {
	CommodityID string  `json:"commodity_id"`
	Value       float64 `json:"value"`
}

// SectorKpi is the strongest-sector card: a sector and the mean weekly
// change across its commodities with a defined weekly value.
type SectorKpi struct {
	Sector      string  `json:"sector"`
	MeanWeekly  float64 `json:"mean_weekly"`
	Commodities int     `json:"commodities"`
}

// KpiSet holds the dashboard's KPI cards. Slots without a ranked value
// (no defined changes, no eligible sectors) stay nil and render as "—".
type KpiSet struct {
	LatestDate    time.Time     `json:"latest_date"`
	MostBullish   *CommodityKpi `json:"most_bullish"`
	MostBearish   *CommodityKpi `json:"most_bearish"`
	MonthlyLeader *CommodityKpi `json:"monthly_leader"`
	// StrongestSector ranks sectors by mean weekly change; sectors whose
	// members all lack a weekly value are not ranked.
	StrongestSector *SectorKpi `json:"strongest_sector"`
	// ExtremeMoves counts commodities whose absolute weekly change
	// exceeds ExtremeMoveThreshold (strictly).
	ExtremeMoves int `json:"extreme_moves"`
	// HighestVolatility is a reserved card slot. No formula is computed
	// for it; the value stays nil and the card renders as pending.
	HighestVolatility *CommodityKpi `json:"highest_volatility"`
}

// ExtremeMoveThreshold is the absolute weekly percentage change above
// which a commodity counts as an extreme mover. The boundary itself
// does not count.
const ExtremeMoveThreshold = 2.0
