package data

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPProvider fetches the published CSV tables from remote URLs
type HTTPProvider struct {
	client    *http.Client
	pricesURL string
	metaURL   string
}

// NewHTTPProvider creates a provider reading both tables over HTTP
func NewHTTPProvider(pricesURL, metaURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		client:    &http.Client{Timeout: timeout},
		pricesURL: pricesURL,
		metaURL:   metaURL,
	}
}

// FetchTables downloads and decodes the price table and the commodity list
func (p *HTTPProvider) FetchTables(ctx context.Context) (*RawTables, error) {
	prices, err := p.fetchCSV(ctx, p.pricesURL)
	if err != nil {
		return nil, fmt.Errorf("fetching price table: %w", err)
	}

	meta, err := p.fetchCSV(ctx, p.metaURL)
	if err != nil {
		return nil, fmt.Errorf("fetching commodity list: %w", err)
	}

	return &RawTables{Prices: prices, Meta: meta}, nil
}

func (p *HTTPProvider) fetchCSV(ctx context.Context, url string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrFetchFailed, resp.StatusCode, url)
	}

	return decodeCSV(resp.Body)
}

// GetName returns the provider type
func (p *HTTPProvider) GetName() string {
	return "http"
}

// Source returns the price table URL as the dataset identity
func (p *HTTPProvider) Source() string {
	return p.pricesURL
}
