package data

import (
	"context"
	"fmt"
	"os"
)

// FileProvider reads the published CSV tables from the local filesystem
type FileProvider struct {
	pricesPath string
	metaPath   string
}

// NewFileProvider creates a provider reading both tables from disk
func NewFileProvider(pricesPath, metaPath string) *FileProvider {
	return &FileProvider{
		pricesPath: pricesPath,
		metaPath:   metaPath,
	}
}

// FetchTables reads and decodes the price table and the commodity list
func (p *FileProvider) FetchTables(ctx context.Context) (*RawTables, error) {
	prices, err := p.readCSV(p.pricesPath)
	if err != nil {
		return nil, fmt.Errorf("reading price table: %w", err)
	}

	meta, err := p.readCSV(p.metaPath)
	if err != nil {
		return nil, fmt.Errorf("reading commodity list: %w", err)
	}

	return &RawTables{Prices: prices, Meta: meta}, nil
}

func (p *FileProvider) readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodeCSV(f)
}

// GetName returns the provider type
func (p *FileProvider) GetName() string {
	return "file"
}

// Source returns the price table path as the dataset identity
func (p *FileProvider) Source() string {
	return p.pricesPath
}
