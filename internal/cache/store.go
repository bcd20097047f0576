// Package cache provides the expiring key-value store that memoizes
// pipeline results between refreshes. Two backends exist: an in-process
// map for single-node deployments and Redis for shared deployments.
package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)
)

// Store is an expiring key-value store. Values round-trip through JSON
// so both backends behave identically.
type Store interface {
	// Get unmarshals the cached value into dest. Returns false on a
	// miss or an expired entry.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores a value under key for the given TTL. A TTL of zero
	// or less means the entry never expires.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error
}
