// Package news collects RSS headlines for the stocks on a commodity's
// impact lists. Feeds are polled through a rate limiter and results are
// cached; a failing feed degrades to fewer items, never to an error on
// the dashboard path.
package news

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mohamedkhairy/commodity-dashboard/internal/cache"
	"github.com/mohamedkhairy/commodity-dashboard/internal/config"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	newsFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_fetch_total",
			Help: "Total number of feed fetches",
		},
		[]string{"feed", "status"}, // "success" or "error"
	)
)

// Collector fetches and matches news for impact stocks.
type Collector struct {
	feeds         []Feed
	parser        *gofeed.Parser
	limiter       *RateLimiter
	store         cache.Store
	cacheTTL      time.Duration
	perStockLimit int
}

// NewCollector creates a news collector from config. The store caches
// parsed feed batches so repeated dashboard loads do not re-poll.
func NewCollector(cfg config.NewsConfig, store cache.Store) *Collector {
	feeds := ParseFeedSpecs(cfg.Feeds)
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.FetchTimeout}

	return &Collector{
		feeds:         feeds,
		parser:        parser,
		limiter:       NewRateLimiter(cfg.RateLimitRPS, time.Second),
		store:         store,
		cacheTTL:      cfg.CacheTTL,
		perStockLimit: cfg.PerStockLimit,
	}
}

// Feeds returns the configured sources
func (c *Collector) Feeds() []Feed {
	return c.feeds
}

// StockNews returns the latest news items mentioning a stock code,
// newest first, capped at limit (the configured per-stock limit when
// limit is zero or negative).
func (c *Collector) StockNews(ctx context.Context, stockCode string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = c.perStockLimit
	}
	stockCode = strings.TrimSpace(stockCode)
	if stockCode == "" {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("news:stock:%s:%d", strings.ToUpper(stockCode), limit)
	var cached []models.NewsItem
	if found, err := c.store.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	all, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.NewsItem, 0, limit)
	for _, item := range all {
		if !mentionsStock(item, stockCode) {
			continue
		}
		item.Ticker = strings.ToUpper(stockCode)
		matched = append(matched, item)
		if len(matched) == limit {
			break
		}
	}

	if err := c.store.Set(ctx, cacheKey, matched, c.cacheTTL); err != nil {
		logger.Warn("Failed to cache stock news",
			logger.ErrorField(err),
			logger.String("stock", stockCode),
		)
	}
	return matched, nil
}

// ImpactNews collects news across a commodity's direct then inverse
// impact stocks, deduplicated by URL and sorted newest first.
func (c *Collector) ImpactNews(ctx context.Context, meta models.CommodityMeta, perStock int) ([]models.NewsItem, error) {
	stocks := make([]string, 0, len(meta.DirectImpact)+len(meta.InverseImpact))
	stocks = append(stocks, meta.DirectImpact...)
	stocks = append(stocks, meta.InverseImpact...)

	seen := make(map[string]bool)
	out := make([]models.NewsItem, 0)
	for _, stock := range stocks {
		items, err := c.StockNews(ctx, stock, perStock)
		if err != nil {
			logger.Warn("Stock news lookup failed",
				logger.ErrorField(err),
				logger.String("stock", stock),
				logger.String("commodity_id", meta.CommodityID),
			)
			continue
		}
		for _, item := range items {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}

// fetchAll polls every configured feed, newest items first. Individual
// feed failures are logged and skipped.
func (c *Collector) fetchAll(ctx context.Context) ([]models.NewsItem, error) {
	cacheKey := "news:feeds:all"
	var cached []models.NewsItem
	if found, err := c.store.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	all := make([]models.NewsItem, 0)
	for _, feed := range c.feeds {
		items, err := c.fetchFeed(ctx, feed)
		if err != nil {
			newsFetchTotal.WithLabelValues(feed.Name, "error").Inc()
			logger.Warn("Feed fetch failed, skipping",
				logger.ErrorField(err),
				logger.String("feed", feed.Name),
			)
			continue
		}
		newsFetchTotal.WithLabelValues(feed.Name, "success").Inc()
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})

	if err := c.store.Set(ctx, cacheKey, all, c.cacheTTL); err != nil {
		logger.Warn("Failed to cache feed batch", logger.ErrorField(err))
	}
	return all, nil
}

// fetchFeed parses one RSS feed into news items
func (c *Collector) fetchFeed(ctx context.Context, feed Feed) ([]models.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	now := time.Now()
	items := make([]models.NewsItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		news := models.NewsItem{
			ID:      item.GUID,
			Title:   strings.TrimSpace(item.Title),
			Summary: truncateSummary(stripHTML(item.Description)),
			Source:  feed.Name,
			URL:     item.Link,
		}
		if news.ID == "" {
			news.ID = item.Link
		}
		if item.PublishedParsed != nil {
			news.PublishedAt = item.PublishedParsed.UTC()
			news.RelativeTime = RelativeTime(news.PublishedAt, now)
		}
		if err := news.Validate(); err != nil {
			continue
		}
		items = append(items, news)
	}
	return items, nil
}

// mentionsStock reports whether an item's title or summary contains the
// stock code as a standalone word, case-insensitively.
func mentionsStock(item models.NewsItem, stockCode string) bool {
	text := strings.ToUpper(item.Title + " " + item.Summary)
	code := strings.ToUpper(stockCode)

	idx := 0
	for {
		pos := strings.Index(text[idx:], code)
		if pos < 0 {
			return false
		}
		pos += idx
		before := pos - 1
		after := pos + len(code)
		if (before < 0 || !isWordChar(text[before])) && (after >= len(text) || !isWordChar(text[after])) {
			return true
		}
		idx = pos + len(code)
	}
}

func isWordChar(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
