package data

import (
	"context"
)

// MockProvider serves fixed in-memory tables. Used in tests and for
// local development without a configured dataset source.
type MockProvider struct {
	Tables *RawTables
	Err    error
	Calls  int
}

// NewMockProvider creates a provider returning the given tables
func NewMockProvider(tables *RawTables) *MockProvider {
	return &MockProvider{Tables: tables}
}

// FetchTables returns the canned tables or the configured error
func (p *MockProvider) FetchTables(ctx context.Context) (*RawTables, error) {
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Tables == nil {
		return nil, ErrNoSource
	}
	return p.Tables, nil
}

// GetName returns the provider type
func (p *MockProvider) GetName() string {
	return "mock"
}

// Source returns a fixed identity for the canned dataset
func (p *MockProvider) Source() string {
	return "mock"
}
