package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// MemoryStore is a concurrent-safe in-memory Store for single-process
// serving and tests. Entries are replaced by whole-value assignment under
// the lock, so a reader never observes a half-written snapshot.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
	hits    atomic.Int64
	misses  atomic.Int64
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.CacheEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*model.CacheEntry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, nil
	}
	s.hits.Add(1)
	return &entry, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, snapshot model.RankingSnapshot, ttl time.Duration) error {
	entry := model.CacheEntry{
		Snapshot:  snapshot,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Stats returns cache performance statistics.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	entries := len(s.entries)
	s.mu.RUnlock()

	hits := s.hits.Load()
	misses := s.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries: entries,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}
