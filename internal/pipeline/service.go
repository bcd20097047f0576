// Package pipeline runs the dashboard's computational pass: fetch the
// raw tables, normalize them, compute per-window changes and KPIs, and
// assemble the snapshot served by the API. The pass itself is pure and
// synchronous; this package adds the TTL memoization around it.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/commodity-dashboard/internal/cache"
	"github.com/mohamedkhairy/commodity-dashboard/internal/changes"
	"github.com/mohamedkhairy/commodity-dashboard/internal/data"
	"github.com/mohamedkhairy/commodity-dashboard/internal/impact"
	"github.com/mohamedkhairy/commodity-dashboard/internal/kpi"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Metrics for pipeline runs
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // "success" or "error"
	)

	pipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of a full pipeline run in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
	)

	pipelineRowsExcluded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_rows_excluded",
			Help: "Price rows excluded during the last normalization pass",
		},
	)

	pipelineCommoditiesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_commodities_tracked",
			Help: "Commodities with a change record after the last run",
		},
	)
)

// Snapshot is one pipeline run's full output. It is what gets cached
// and what every read endpoint serves from.
type Snapshot struct {
	LatestDate  time.Time                       `json:"latest_date"`
	RefreshedAt time.Time                       `json:"refreshed_at"`
	Source      string                          `json:"source"`
	Prices      []models.PriceObservation       `json:"prices"`
	Meta        []models.CommodityMeta          `json:"meta"`
	Records     map[string]*models.ChangeRecord `json:"records"`
	Table       []models.TableRow               `json:"table"`
	Kpis        *models.KpiSet                  `json:"kpis"`
	Report      *models.NormalizeReport         `json:"report"`
}

// MetaFor returns the metadata for a commodity in the snapshot table.
func (s *Snapshot) MetaFor(commodityID string) (models.CommodityMeta, bool) {
	for _, m := range s.Meta {
		if m.CommodityID == commodityID {
			return m, true
		}
	}
	return models.CommodityMeta{}, false
}

// Service wires Provider, Normalizer, Calculator and KPI engine behind
// a TTL cache. Load serves the cached snapshot when fresh; Refresh
// always recomputes.
type Service struct {
	provider   data.Provider
	normalizer *data.Normalizer
	calculator *changes.Calculator
	engine     *kpi.Engine
	labels     *impact.Builder
	store      cache.Store
	ttl        time.Duration

	mu      sync.RWMutex
	current *Snapshot

	refreshMu sync.Mutex
}

// NewService creates a pipeline service
func NewService(provider data.Provider, store cache.Store, ttl time.Duration) *Service {
	return &Service{
		provider:   provider,
		normalizer: data.NewNormalizer(),
		calculator: changes.NewCalculator(),
		engine:     kpi.NewEngine(),
		labels:     impact.NewBuilder(),
		store:      store,
		ttl:        ttl,
	}
}

// cacheKey derives the snapshot cache key from the provider's source
// identity, so switching sources never serves a stale foreign snapshot.
func (s *Service) cacheKey() string {
	return "snapshot:" + s.provider.Source()
}

// Load returns the current snapshot, serving from cache when it is
// fresh and recomputing otherwise.
func (s *Service) Load(ctx context.Context) (*Snapshot, error) {
	if snap := s.freshCurrent(); snap != nil {
		return snap, nil
	}
	return s.loadSlow(ctx)
}

func (s *Service) loadSlow(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited for the lock
	if snap := s.freshCurrent(); snap != nil {
		return snap, nil
	}

	// The shared cache may hold a snapshot computed by another instance
	var cached Snapshot
	found, err := s.store.Get(ctx, s.cacheKey(), &cached)
	if err != nil {
		logger.Warn("Snapshot cache read failed",
			logger.ErrorField(err),
			logger.String("key", s.cacheKey()),
		)
	}
	if found && time.Since(cached.RefreshedAt) < s.ttl {
		s.setCurrent(&cached)
		return &cached, nil
	}

	return s.refresh(ctx)
}

// Refresh bypasses the cache, runs the full pass and repopulates both
// the in-process snapshot and the shared cache.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) (*Snapshot, error) {
	startTime := time.Now()

	snap, err := s.runPass(ctx)
	if err != nil {
		pipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	pipelineRunDuration.Observe(time.Since(startTime).Seconds())
	pipelineRunsTotal.WithLabelValues("success").Inc()
	pipelineRowsExcluded.Set(float64(snap.Report.PriceRowsExcluded))
	pipelineCommoditiesTracked.Set(float64(len(snap.Records)))

	if err := s.store.Set(ctx, s.cacheKey(), snap, s.ttl); err != nil {
		logger.Warn("Failed to cache snapshot",
			logger.ErrorField(err),
			logger.String("key", s.cacheKey()),
		)
	}
	s.setCurrent(snap)

	logger.Info("Pipeline refresh complete",
		logger.String("source", s.provider.GetName()),
		logger.Int("commodities", len(snap.Records)),
		logger.String("latest_date", snap.LatestDate.Format("2006-01-02")),
		logger.Duration("duration", time.Since(startTime)),
	)

	return snap, nil
}

// runPass executes one full synchronous pipeline pass
func (s *Service) runPass(ctx context.Context) (*Snapshot, error) {
	raw, err := s.provider.FetchTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}

	dataset, report, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize dataset: %w", err)
	}

	if report.HasWarnings() {
		logger.Warn("Normalization flagged rows",
			logger.Int("price_rows_excluded", report.PriceRowsExcluded),
			logger.Int("meta_rows_excluded", report.MetaRowsExcluded),
			logger.Int("duplicate_rows", report.DuplicateRows),
			logger.Int("prices_without_meta", len(report.PricesWithoutMeta)),
			logger.Int("meta_without_prices", len(report.MetaWithoutPrices)),
		)
	}

	latestDate, err := s.calculator.LatestDate(dataset.Prices)
	if err != nil {
		return nil, fmt.Errorf("failed to determine latest date: %w", err)
	}

	records := s.calculator.Compute(dataset.Prices, latestDate)
	metaByID := dataset.MetaByID()
	kpis := s.engine.Compute(records, metaByID, latestDate)
	table := buildTable(dataset.Meta, records)

	return &Snapshot{
		LatestDate:  latestDate,
		RefreshedAt: time.Now().UTC(),
		Source:      s.provider.Source(),
		Prices:      dataset.Prices,
		Meta:        dataset.Meta,
		Records:     records,
		Table:       table,
		Kpis:        kpis,
		Report:      report,
	}, nil
}

// Current returns the last computed snapshot without touching the cache
// or triggering a run. It is nil until the first successful pass.
func (s *Service) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) freshCurrent() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil && time.Since(s.current.RefreshedAt) < s.ttl {
		return s.current
	}
	return nil
}

func (s *Service) setCurrent(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

// Invalidate drops the cached snapshot so the next Load recomputes.
func (s *Service) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return s.store.Delete(ctx, s.cacheKey())
}

// Close releases the cache handle
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
