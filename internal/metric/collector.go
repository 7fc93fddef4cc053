package metric

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Target carries one entity's per-category provider identifiers. An empty
// identifier means the category cannot be fetched for that entity.
type Target struct {
	DisplayName string
	Queries     map[model.Category]string
}

// Collector fans adapter calls out across all targets and awaits them
// jointly. A failing or slow adapter never cancels or blocks the others:
// every call resolves to a record, and the group collects all outcomes.
type Collector struct {
	adapters             []Adapter
	maxConcurrentTargets int
}

// NewCollector creates a Collector over the given adapters.
func NewCollector(adapters []Adapter, maxConcurrentTargets int) *Collector {
	if maxConcurrentTargets <= 0 {
		maxConcurrentTargets = 4
	}
	return &Collector{
		adapters:             adapters,
		maxConcurrentTargets: maxConcurrentTargets,
	}
}

// Collect fetches every adapter category for every target concurrently and
// returns the records keyed by display name. All metrics in the result were
// fetched within the same time window.
func (c *Collector) Collect(ctx context.Context, targets []Target) map[string]map[model.Category]model.MetricRecord {
	var mu sync.Mutex
	results := make(map[string]map[model.Category]model.MetricRecord, len(targets))
	for _, t := range targets {
		results[t.DisplayName] = make(map[model.Category]model.MetricRecord, len(c.adapters))
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrentTargets * len(c.adapters))

	for _, t := range targets {
		for _, a := range c.adapters {
			g.Go(func() error {
				rec := a.Fetch(gCtx, t.Queries[a.Category()])
				mu.Lock()
				results[t.DisplayName][a.Category()] = rec
				mu.Unlock()
				return nil
			})
		}
	}

	// Goroutines never return errors; Wait is joint-await only.
	_ = g.Wait()

	var okCount int
	for _, recs := range results {
		for _, rec := range recs {
			if rec.OK() {
				okCount++
			}
		}
	}
	zap.L().Info("metric: fan-out complete",
		zap.Int("targets", len(targets)),
		zap.Int("adapters", len(c.adapters)),
		zap.Int("ok_records", okCount),
	)

	return results
}
