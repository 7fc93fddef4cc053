package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbue-digital/visibility-cli/internal/cache"
	"github.com/imbue-digital/visibility-cli/internal/config"
	"github.com/imbue-digital/visibility-cli/internal/engine"
	"github.com/imbue-digital/visibility-cli/internal/metric"
	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/resolve"
)

// deadAdapter fails every fetch, simulating a total provider outage.
type deadAdapter struct {
	category model.Category
}

func (d *deadAdapter) Category() model.Category { return d.category }

func (d *deadAdapter) Fetch(context.Context, string) model.MetricRecord {
	return model.MetricRecord{Category: d.category, SourceStatus: model.StatusError}
}

// liveAdapter returns a fixed OK score for every target.
type liveAdapter struct {
	category model.Category
	score    float64
}

func (l *liveAdapter) Category() model.Category { return l.category }

func (l *liveAdapter) Fetch(context.Context, string) model.MetricRecord {
	score := l.score
	return model.MetricRecord{
		Category:        l.category,
		NormalizedScore: &score,
		SourceStatus:    model.StatusOK,
		FetchedAt:       time.Now().UTC(),
	}
}

func testServeConfig() *config.Config {
	return &config.Config{
		Subject: config.SubjectConfig{
			Name:       "Imbue Salon & Spa",
			Domain:     "imbuesalon.com",
			Substrings: []string{"imbue", "lmbue"},
		},
		Competitors: []string{"Bond Street Salon"},
		Scoring: config.ScoringConfig{
			Weights:            config.WeightConfig{Local: 0.40, Authority: 0.20, Performance: 0.40},
			AssumedPerformance: 70,
		},
		Cache:   config.CacheConfig{Driver: "memory", TTLSeconds: 900, Key: "dashboard-default"},
		Metrics: config.MetricsConfig{MaxConcurrentTargets: 4},
	}
}

func newTestEnv(t *testing.T, adapters []metric.Adapter) *env {
	t.Helper()

	resolver := resolve.NewResolver(cfg.Subject.Substrings, cfg.Subject.Domain, resolve.DefaultAliases())
	collector := metric.NewCollector(adapters, cfg.Metrics.MaxConcurrentTargets)
	mem := cache.NewMemory()
	staleness := cache.NewStaleness(mem, time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	return &env{
		Engine: engine.New(cfg, resolver, collector, staleness),
		Store:  mem,
		Mem:    mem,
	}
}

func TestRankingHandlerDegradedStillReturns200(t *testing.T) {
	cfg = testServeConfig()
	testEnv := newTestEnv(t, []metric.Adapter{&deadAdapter{category: model.CategoryLocalSEO}})

	req := httptest.NewRequest(http.MethodGet, "/ranking", nil)
	rr := httptest.NewRecorder()
	rankingHandler(testEnv)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp rankingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.False(t, resp.Live)
	assert.True(t, resp.IsFallback)
	require.Len(t, resp.Entities, 2)
	assert.Nil(t, resp.SubjectRank)
	for _, e := range resp.Entities {
		assert.Nil(t, e.CompositeScore)
		assert.Nil(t, e.Rank)
	}
}

func TestRankingHandlerLive(t *testing.T) {
	cfg = testServeConfig()
	testEnv := newTestEnv(t, []metric.Adapter{
		&liveAdapter{category: model.CategoryLocalSEO, score: 85},
	})

	req := httptest.NewRequest(http.MethodGet, "/ranking", nil)
	rr := httptest.NewRecorder()
	rankingHandler(testEnv)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp rankingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.True(t, resp.Live)
	assert.False(t, resp.IsFallback)
	require.Len(t, resp.Entities, 2)
	require.NotNil(t, resp.SubjectRank)
}

func TestRankingHandlerSubjectOnlyFilter(t *testing.T) {
	cfg = testServeConfig()
	testEnv := newTestEnv(t, []metric.Adapter{
		&liveAdapter{category: model.CategoryLocalSEO, score: 85},
	})

	req := httptest.NewRequest(http.MethodGet, "/ranking?competitors=false", nil)
	rr := httptest.NewRecorder()
	rankingHandler(testEnv)(rr, req)

	var resp rankingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	require.Len(t, resp.Entities, 1)
	assert.True(t, resp.Entities[0].IsSubject)
	// SubjectRank still reflects the full ranking.
	require.NotNil(t, resp.SubjectRank)
}

func TestToResponseFlags(t *testing.T) {
	stale := model.RankingSnapshot{Stale: true, GeneratedAt: time.Now().UTC()}
	resp := toResponse(stale, true, true)
	assert.True(t, resp.Success)
	assert.False(t, resp.Live)
	assert.False(t, resp.IsFallback)

	fallback := model.RankingSnapshot{IsFallback: true}
	resp = toResponse(fallback, false, true)
	assert.False(t, resp.Live)
	assert.True(t, resp.IsFallback)

	fresh := model.RankingSnapshot{}
	resp = toResponse(fresh, true, true)
	assert.True(t, resp.Live)
}
