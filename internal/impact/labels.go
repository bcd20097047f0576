// Package impact classifies a commodity's impact stocks for chart
// annotation: direct-impact stocks are expected to move with the
// commodity, inverse-impact stocks against it.
package impact

import (
	"fmt"
	"strings"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

// Builder produces impact stock labels for chart bars
type Builder struct{}

// NewBuilder creates a new impact label builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns the expected direction for each impact stock of a
// commodity, given the sign of its change for the charted window.
// Direct-impact entries come first, then inverse-impact entries, each
// in their configured order. Empty impact lists yield an empty label.
func (b *Builder) Build(commodityID string, window models.Window, meta models.CommodityMeta, sign models.Direction) models.ImpactLabel {
	stocks := make([]models.StockLabel, 0, len(meta.DirectImpact)+len(meta.InverseImpact))

	for _, code := range meta.DirectImpact {
		stocks = append(stocks, models.StockLabel{StockCode: code, Direction: sign})
	}
	for _, code := range meta.InverseImpact {
		stocks = append(stocks, models.StockLabel{StockCode: code, Direction: sign.Opposite()})
	}

	return models.ImpactLabel{
		CommodityID: commodityID,
		Window:      window,
		Stocks:      stocks,
	}
}

// SignFromChange maps a percentage change to the sign used for label
// building. Zero and undefined changes carry no bar on the chart, so
// they produce no sign.
func SignFromChange(pct models.PctChange) (models.Direction, bool) {
	switch {
	case !pct.Defined || pct.Value == 0:
		return "", false
	case pct.Value > 0:
		return models.DirectionPositive, true
	default:
		return models.DirectionNegative, true
	}
}

// Annotations renders a label as grouped segments, one per run of
// consecutive same-direction stocks: ["HPG, HSG - negative", "VJC - positive"]
func Annotations(label models.ImpactLabel) []string {
	if len(label.Stocks) == 0 {
		return nil
	}

	var segments []string
	start := 0
	for i := 1; i <= len(label.Stocks); i++ {
		if i < len(label.Stocks) && label.Stocks[i].Direction == label.Stocks[start].Direction {
			continue
		}
		group := label.Stocks[start:i]
		codes := make([]string, len(group))
		for j, s := range group {
			codes[j] = s.StockCode
		}
		segments = append(segments, fmt.Sprintf("%s - %s", strings.Join(codes, ", "), group[0].Direction))
		start = i
	}
	return segments
}

// Annotation joins the grouped segments into the single chart
// annotation text: "HPG, HSG - negative,  VJC - positive"
func Annotation(label models.ImpactLabel) string {
	return strings.Join(Annotations(label), ",  ")
}
