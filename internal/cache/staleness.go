package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// ComputeFunc produces a fresh ranking snapshot, typically by running a full
// aggregation pass against the live providers.
type ComputeFunc func(ctx context.Context) (model.RankingSnapshot, error)

// Staleness wraps a Store with the freshness policy: fresh entries are served
// as-is, expired entries trigger a synchronous recompute, and when the
// recompute fails the expired entry is served flagged stale rather than
// evicted. Concurrent refreshes of the same key are collapsed so only one
// aggregation pass runs at a time per key.
type Staleness struct {
	store Store
	ttl   time.Duration

	mu       sync.Mutex
	inFlight map[string]*refreshCall
}

type refreshCall struct {
	done     chan struct{}
	snapshot model.RankingSnapshot
	err      error
}

// NewStaleness creates a Staleness layer over the given store.
func NewStaleness(store Store, ttl time.Duration) *Staleness {
	return &Staleness{
		store:    store,
		ttl:      ttl,
		inFlight: make(map[string]*refreshCall),
	}
}

// GetOrRefresh returns the snapshot for key. Within the TTL window the cached
// snapshot is returned unchanged, so repeated dashboard reads are idempotent
// and cost no provider quota. Past expiry a recompute runs synchronously; if
// it fails and an expired entry exists, that entry is returned with Stale set.
// The returned error is non-nil only when there is nothing at all to serve.
func (s *Staleness) GetOrRefresh(ctx context.Context, key string, compute ComputeFunc) (model.RankingSnapshot, error) {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("cache: read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		entry = nil
	}

	now := time.Now().UTC()
	if entry != nil && !entry.Expired(now) {
		return entry.Snapshot, nil
	}

	snapshot, err := s.refresh(ctx, key, compute)
	if err == nil {
		return snapshot, nil
	}

	if entry != nil {
		zap.L().Warn("cache: refresh failed, serving stale snapshot",
			zap.String("key", key),
			zap.Time("expired_at", entry.ExpiresAt),
			zap.Error(err),
		)
		stale := entry.Snapshot
		stale.Stale = true
		return stale, nil
	}

	return model.RankingSnapshot{}, eris.Wrap(err, "cache: refresh with no cached snapshot")
}

// ForceRefresh recomputes the snapshot for key regardless of freshness.
// The cached entry is replaced only on success; a failed pass leaves the
// prior entry in place — even an expired one — so the stale-serving path
// still has something to fall back on.
func (s *Staleness) ForceRefresh(ctx context.Context, key string, compute ComputeFunc) (model.RankingSnapshot, error) {
	return s.refresh(ctx, key, compute)
}

// Peek returns the cached entry for key without triggering a refresh.
func (s *Staleness) Peek(ctx context.Context, key string) (*model.CacheEntry, error) {
	return s.store.Get(ctx, key)
}

// Clear drops the entry for key.
func (s *Staleness) Clear(ctx context.Context, key string) error {
	return s.store.Clear(ctx, key)
}

// refresh runs compute for key, collapsing concurrent callers onto a single
// in-flight pass. The winning caller's result (or error) is shared.
func (s *Staleness) refresh(ctx context.Context, key string, compute ComputeFunc) (model.RankingSnapshot, error) {
	s.mu.Lock()
	if call, ok := s.inFlight[key]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.snapshot, call.err
		case <-ctx.Done():
			return model.RankingSnapshot{}, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	s.inFlight[key] = call
	s.mu.Unlock()

	call.snapshot, call.err = compute(ctx)
	if call.err == nil {
		if setErr := s.store.Set(ctx, key, call.snapshot, s.ttl); setErr != nil {
			// A write failure degrades future reads, not this response.
			zap.L().Warn("cache: write failed",
				zap.String("key", key),
				zap.Error(setErr),
			)
		}
	}

	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
	close(call.done)

	return call.snapshot, call.err
}
