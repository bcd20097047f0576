package data

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
)

// FallbackProvider tries a primary source first and falls back to a
// secondary one when the primary fails. The dashboard keeps serving
// from the local copy when the remote sheet is unreachable.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
}

// NewFallbackProvider creates a provider chain of primary and fallback
func NewFallbackProvider(primary, fallback Provider) *FallbackProvider {
	return &FallbackProvider{
		primary:  primary,
		fallback: fallback,
	}
}

// FetchTables fetches from the primary source, then the fallback
func (p *FallbackProvider) FetchTables(ctx context.Context) (*RawTables, error) {
	tables, err := p.primary.FetchTables(ctx)
	if err == nil {
		return tables, nil
	}

	logger.Warn("Primary dataset source failed, trying fallback",
		logger.String("primary", p.primary.GetName()),
		logger.String("fallback", p.fallback.GetName()),
		logger.ErrorField(err))

	tables, fallbackErr := p.fallback.FetchTables(ctx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary source: %v; fallback source: %w", err, fallbackErr)
	}
	return tables, nil
}

// GetName returns the provider type
func (p *FallbackProvider) GetName() string {
	return "fallback"
}

// Source returns the primary dataset identity so cached results
// survive a temporary switch to the fallback copy
func (p *FallbackProvider) Source() string {
	return p.primary.Source()
}
