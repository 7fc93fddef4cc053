package metric

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// stubAdapter returns a canned record per target and counts fetches.
type stubAdapter struct {
	category model.Category
	records  map[string]model.MetricRecord
	delay    time.Duration
	fetches  atomic.Int64
}

func (s *stubAdapter) Category() model.Category { return s.category }

func (s *stubAdapter) Fetch(ctx context.Context, target string) model.MetricRecord {
	s.fetches.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	if target == "" {
		return unavailableRecord(s.category)
	}
	if rec, ok := s.records[target]; ok {
		return rec
	}
	return failedRecord(s.category, model.StatusError)
}

func okStubRecord(cat model.Category, score float64) model.MetricRecord {
	return model.MetricRecord{
		Category:        cat,
		NormalizedScore: &score,
		SourceStatus:    model.StatusOK,
		FetchedAt:       time.Now().UTC(),
	}
}

func TestCollectFansOutAllAdapters(t *testing.T) {
	local := &stubAdapter{
		category: model.CategoryLocalSEO,
		records: map[string]model.MetricRecord{
			"Imbue Salon & Spa": okStubRecord(model.CategoryLocalSEO, 91),
			"Bond Street Salon": okStubRecord(model.CategoryLocalSEO, 93),
		},
	}
	authority := &stubAdapter{
		category: model.CategoryAuthority,
		records: map[string]model.MetricRecord{
			"imbuesalon.com": okStubRecord(model.CategoryAuthority, 29),
		},
	}

	c := NewCollector([]Adapter{local, authority}, 4)

	results := c.Collect(context.Background(), []Target{
		{
			DisplayName: "Imbue Salon & Spa",
			Queries: map[model.Category]string{
				model.CategoryLocalSEO:  "Imbue Salon & Spa",
				model.CategoryAuthority: "imbuesalon.com",
			},
		},
		{
			DisplayName: "Bond Street Salon",
			Queries: map[model.Category]string{
				model.CategoryLocalSEO: "Bond Street Salon",
			},
		},
	})

	require.Len(t, results, 2)
	assert.Equal(t, int64(2), local.fetches.Load())
	assert.Equal(t, int64(2), authority.fetches.Load())

	subject := results["Imbue Salon & Spa"]
	assert.True(t, subject[model.CategoryLocalSEO].OK())
	assert.True(t, subject[model.CategoryAuthority].OK())

	competitor := results["Bond Street Salon"]
	assert.True(t, competitor[model.CategoryLocalSEO].OK())
	// No authority query: the adapter was still asked and reported
	// unavailable, so the record exists.
	assert.Equal(t, model.StatusUnavailable, competitor[model.CategoryAuthority].SourceStatus)
}

func TestCollectIsolatesFailures(t *testing.T) {
	healthy := &stubAdapter{
		category: model.CategoryLocalSEO,
		records: map[string]model.MetricRecord{
			"A": okStubRecord(model.CategoryLocalSEO, 80),
		},
	}
	broken := &stubAdapter{category: model.CategoryAuthority} // every fetch fails

	c := NewCollector([]Adapter{healthy, broken}, 4)

	results := c.Collect(context.Background(), []Target{
		{DisplayName: "A", Queries: map[model.Category]string{
			model.CategoryLocalSEO:  "A",
			model.CategoryAuthority: "a.example",
		}},
	})

	assert.True(t, results["A"][model.CategoryLocalSEO].OK())
	assert.Equal(t, model.StatusError, results["A"][model.CategoryAuthority].SourceStatus)
}

func TestCollectRunsConcurrently(t *testing.T) {
	// Four slow adapters against two targets must finish in roughly one
	// delay, not eight.
	const delay = 100 * time.Millisecond
	adapters := make([]Adapter, 0, len(model.Categories))
	for _, cat := range model.Categories {
		adapters = append(adapters, &stubAdapter{category: cat, delay: delay})
	}

	c := NewCollector(adapters, 4)

	targets := []Target{
		{DisplayName: "A", Queries: map[model.Category]string{}},
		{DisplayName: "B", Queries: map[model.Category]string{}},
	}

	start := time.Now()
	results := c.Collect(context.Background(), targets)
	elapsed := time.Since(start)

	assert.Len(t, results, 2)
	assert.Less(t, elapsed, 4*delay)
}
