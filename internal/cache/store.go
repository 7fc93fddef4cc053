// Package cache persists the last successful ranking snapshot per
// aggregation key and applies the staleness policy on reads.
package cache

import (
	"context"
	"time"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Store is the persistence interface for cached ranking snapshots.
// Entries are replaced wholesale; there is no partial update. A missing or
// unparsable entry is a cache miss (nil, nil), never an error the caller
// must distinguish.
type Store interface {
	// Get returns the entry for key, including expired entries — expiry is
	// the staleness layer's decision, not the store's.
	Get(ctx context.Context, key string) (*model.CacheEntry, error)

	// Set replaces the entry for key with the snapshot and a fresh expiry.
	Set(ctx context.Context, key string, snapshot model.RankingSnapshot, ttl time.Duration) error

	// Clear removes the entry for key.
	Clear(ctx context.Context, key string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
