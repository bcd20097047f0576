package models

// StockLabel annotates one impact stock with its expected direction for
// a charted change.
type StockLabel struct {
	StockCode string    `json:"stock_code"`
	Direction Direction `json:"direction"`
}

// ImpactLabel is the full annotation for one commodity and window:
// direct-impact stocks first, then inverse-impact stocks, each list in
// its configured order.
type ImpactLabel struct {
	CommodityID string       `json:"commodity_id"`
	Window      Window       `json:"window"`
	Stocks      []StockLabel `json:"stocks"`
}

// IsEmpty reports whether the label carries no stocks, which happens
// for commodities with empty impact lists. Charts render no annotation
// in that case.
func (l *ImpactLabel) IsEmpty() bool {
	return len(l.Stocks) == 0
}
