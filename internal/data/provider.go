package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
)

var (
	// ErrNoSource is returned when no dataset source is configured
	ErrNoSource = errors.New("no dataset source configured")
	// ErrFetchFailed is returned when a dataset source cannot be read
	ErrFetchFailed = errors.New("dataset fetch failed")
)

// RawTables carries the two published CSV tables as raw records,
// header row included. Cells are untrimmed; cleaning is the
// Normalizer's job.
type RawTables struct {
	Prices [][]string
	Meta   [][]string
}

// Provider defines the interface for dataset sources
type Provider interface {
	// FetchTables retrieves the raw price table and the commodity list
	FetchTables(ctx context.Context) (*RawTables, error)

	// GetName returns the name/type of the provider (e.g., "http", "file")
	GetName() string

	// Source returns the identity of the underlying source (URL or path),
	// used to key cached pipeline results
	Source() string
}

// ProviderConfig holds the dataset source locations
type ProviderConfig struct {
	PricesURL    string
	MetaURL      string
	PricesPath   string
	MetaPath     string
	FetchTimeout time.Duration
}

// NewProvider builds the provider chain for the configured sources:
// remote CSV when URLs are set, local files as fallback or as the
// sole source when no URLs are configured.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	hasHTTP := cfg.PricesURL != "" && cfg.MetaURL != ""
	hasFile := cfg.PricesPath != "" && cfg.MetaPath != ""

	switch {
	case hasHTTP && hasFile:
		primary := NewHTTPProvider(cfg.PricesURL, cfg.MetaURL, cfg.FetchTimeout)
		fallback := NewFileProvider(cfg.PricesPath, cfg.MetaPath)
		return NewFallbackProvider(primary, fallback), nil
	case hasHTTP:
		return NewHTTPProvider(cfg.PricesURL, cfg.MetaURL, cfg.FetchTimeout), nil
	case hasFile:
		return NewFileProvider(cfg.PricesPath, cfg.MetaPath), nil
	default:
		return nil, ErrNoSource
	}
}

// decodeCSV reads a full CSV document into raw records. Ragged rows
// are tolerated here; the Normalizer decides what to do with them.
func decodeCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decoding csv: %w", err)
	}
	if len(records) == 0 {
		return nil, models.ErrEmptyTable
	}
	return records, nil
}
