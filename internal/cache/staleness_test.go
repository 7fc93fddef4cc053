package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

func countingCompute(snapshots ...model.RankingSnapshot) (*atomic.Int64, ComputeFunc) {
	var calls atomic.Int64
	return &calls, func(ctx context.Context) (model.RankingSnapshot, error) {
		n := calls.Add(1)
		idx := int(n) - 1
		if idx >= len(snapshots) {
			idx = len(snapshots) - 1
		}
		return snapshots[idx], nil
	}
}

func failingCompute() (*atomic.Int64, ComputeFunc) {
	var calls atomic.Int64
	return &calls, func(ctx context.Context) (model.RankingSnapshot, error) {
		calls.Add(1)
		return model.RankingSnapshot{}, eris.New("providers down")
	}
}

func TestGetOrRefreshIdempotentWithinTTL(t *testing.T) {
	ctx := context.Background()
	s := NewStaleness(NewMemory(), time.Hour)

	calls, compute := countingCompute(testSnapshot("snap-1"))

	first, err := s.GetOrRefresh(ctx, "k", compute)
	require.NoError(t, err)
	second, err := s.GetOrRefresh(ctx, "k", compute)
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Stale)
}

func TestGetOrRefreshRecomputesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	s := NewStaleness(store, time.Hour)

	calls, compute := countingCompute(testSnapshot("snap-1"), testSnapshot("snap-2"))

	_, err := s.GetOrRefresh(ctx, "k", compute)
	require.NoError(t, err)

	// Backdate the entry past its TTL.
	require.NoError(t, store.Set(ctx, "k", testSnapshot("snap-1"), -time.Minute))

	got, err := s.GetOrRefresh(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, "snap-2", got.ID)
}

func TestGetOrRefreshServesStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	s := NewStaleness(store, time.Hour)

	// Seed an expired entry, then fail every refresh.
	require.NoError(t, store.Set(ctx, "k", testSnapshot("snap-old"), -time.Minute))
	_, compute := failingCompute()

	got, err := s.GetOrRefresh(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "snap-old", got.ID)
	assert.True(t, got.Stale)

	// The expired entry is never evicted; a second failing refresh still
	// has something to serve.
	got, err = s.GetOrRefresh(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "snap-old", got.ID)
}

func TestGetOrRefreshErrorsWithNothingToServe(t *testing.T) {
	ctx := context.Background()
	s := NewStaleness(NewMemory(), time.Hour)

	calls, compute := failingCompute()

	_, err := s.GetOrRefresh(ctx, "k", compute)
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGetOrRefreshCollapsesConcurrentRefreshes(t *testing.T) {
	ctx := context.Background()
	s := NewStaleness(NewMemory(), time.Hour)

	var calls atomic.Int64
	release := make(chan struct{})
	compute := func(ctx context.Context) (model.RankingSnapshot, error) {
		calls.Add(1)
		<-release
		return testSnapshot("snap-shared"), nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]model.RankingSnapshot, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := s.GetOrRefresh(ctx, "k", compute)
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}

	// Let the goroutines pile up on the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, snap := range results {
		assert.Equal(t, "snap-shared", snap.ID)
	}
}

func TestForceRefreshBypassesFreshEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	s := NewStaleness(store, time.Hour)

	require.NoError(t, store.Set(ctx, "k", testSnapshot("snap-1"), time.Hour))
	calls, compute := countingCompute(testSnapshot("snap-2"))

	got, err := s.ForceRefresh(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "snap-2", got.ID)

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "snap-2", entry.Snapshot.ID)
}

func TestForceRefreshKeepsEntryOnFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	s := NewStaleness(store, time.Hour)

	// Replace-or-keep: a failed recompute must not evict the entry, fresh
	// or expired.
	require.NoError(t, store.Set(ctx, "k", testSnapshot("snap-old"), -time.Minute))
	_, compute := failingCompute()

	_, err := s.ForceRefresh(ctx, "k", compute)
	require.Error(t, err)

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "snap-old", entry.Snapshot.ID)
}

func TestPeekDoesNotRefresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	s := NewStaleness(store, time.Hour)

	entry, err := s.Peek(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, store.Set(ctx, "k", testSnapshot("snap-1"), -time.Minute))
	entry, err = s.Peek(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Expired(time.Now().UTC()))
}
