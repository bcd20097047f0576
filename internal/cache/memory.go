package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const janitorInterval = time.Minute

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// MemoryStore is an in-process Store guarded by an RWMutex. A janitor
// goroutine sweeps expired entries so the map does not grow without
// bound between refreshes.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryStore creates a memory store and starts its janitor
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]memoryItem),
		stop:  make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Get unmarshals the cached value into dest
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || item.expired(time.Now()) {
		cacheMisses.WithLabelValues("memory").Inc()
		return false, nil
	}

	if err := json.Unmarshal(item.payload, dest); err != nil {
		return false, err
	}
	cacheHits.WithLabelValues("memory").Inc()
	return true, nil
}

// Set stores a value under key for the given TTL
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = memoryItem{payload: payload, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	for key, item := range s.items {
		if item.expired(now) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
}
