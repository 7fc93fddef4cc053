// Package engine runs the full aggregation pass and applies the fallback
// cascade so a ranking request always produces a servable snapshot.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/cache"
	"github.com/imbue-digital/visibility-cli/internal/config"
	"github.com/imbue-digital/visibility-cli/internal/metric"
	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/ranking"
	"github.com/imbue-digital/visibility-cli/internal/resolve"
	"github.com/imbue-digital/visibility-cli/internal/scorer"
)

// Engine wires the resolver, metric collector, calculator and cache into
// the ranking pipeline.
type Engine struct {
	cfg        *config.Config
	resolver   *resolve.Resolver
	collector  *metric.Collector
	calculator *scorer.Calculator
	staleness  *cache.Staleness
}

// New creates an Engine.
func New(cfg *config.Config, resolver *resolve.Resolver, collector *metric.Collector, staleness *cache.Staleness) *Engine {
	return &Engine{
		cfg:        cfg,
		resolver:   resolver,
		collector:  collector,
		calculator: scorer.NewCalculator(cfg.Scoring),
		staleness:  staleness,
	}
}

// Ranking returns the current snapshot, walking the cascade: fresh cache,
// live aggregation, stale cache, hard-coded baseline. The boolean reports
// whether the snapshot came from cache or live data rather than the
// baseline. This method never returns an empty snapshot.
func (e *Engine) Ranking(ctx context.Context) (model.RankingSnapshot, bool) {
	snapshot, err := e.staleness.GetOrRefresh(ctx, e.cfg.Cache.Key, e.Aggregate)
	if err != nil {
		zap.L().Error("engine: cascade exhausted, serving baseline",
			zap.Error(err),
		)
		return e.Baseline(), false
	}
	return snapshot, true
}

// Refresh forces a live aggregation pass, bypassing the freshness check but
// still writing the result through the cache. A failed pass never evicts
// the cached snapshot: the stale-serving path keeps working through an
// outage.
func (e *Engine) Refresh(ctx context.Context) (model.RankingSnapshot, error) {
	snapshot, err := e.staleness.ForceRefresh(ctx, e.cfg.Cache.Key, e.Aggregate)
	if err != nil {
		return model.RankingSnapshot{}, eris.Wrap(err, "engine: refresh")
	}
	return snapshot, nil
}

// Aggregate runs one live pass: resolve every display name, fan out the
// metric adapters, score each entity and assemble the deterministic ranking.
// It fails only when not a single category resolved for any entity; partial
// provider outages still yield a servable snapshot.
func (e *Engine) Aggregate(ctx context.Context) (model.RankingSnapshot, error) {
	start := time.Now()

	entities := e.buildEntities()
	targets := e.buildTargets(entities)

	records := e.collector.Collect(ctx, targets)

	anyOK := false
	for i := range entities {
		recs := records[entities[i].DisplayName]
		entities[i].Metrics = recs

		if local, ok := recs[model.CategoryLocalSEO]; ok && local.OK() {
			entities[i].Rating = local.Rating
			entities[i].ReviewCount = local.ReviewCount
		}

		e.calculator.Score(&entities[i])
		for _, rec := range recs {
			if rec.OK() {
				anyOK = true
			}
		}
	}

	if !anyOK {
		return model.RankingSnapshot{}, eris.New("engine: no metric source produced data")
	}

	snapshot := ranking.Assemble(entities)

	zap.L().Info("engine: aggregation complete",
		zap.String("snapshot_id", snapshot.ID),
		zap.Int("entities", len(snapshot.Entities)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snapshot, nil
}

// buildEntities seeds the entity list from the configured subject and
// competitor names, resolving each to a canonical domain. At most one
// entity carries the subject flag: a configured competitor whose name also
// matches a subject substring keeps its resolution but is demoted to a
// plain competitor.
func (e *Engine) buildEntities() []model.CompetitorEntity {
	names := append([]string{e.cfg.Subject.Name}, e.cfg.Competitors...)

	entities := make([]model.CompetitorEntity, 0, len(names))
	seen := make(map[string]bool, len(names))
	subjectSeen := false
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		res := e.resolver.Resolve(name)
		isSubject := res.IsSubject || name == e.cfg.Subject.Name
		if isSubject && subjectSeen {
			zap.L().Warn("engine: competitor name also matches the subject, keeping the first subject",
				zap.String("display_name", name),
			)
			isSubject = false
		}
		subjectSeen = subjectSeen || isSubject

		entities = append(entities, model.CompetitorEntity{
			DisplayName:          name,
			CanonicalDomain:      res.Domain,
			IsSubject:            isSubject,
			ResolutionConfidence: res.Confidence,
		})
	}
	return entities
}

// buildTargets maps each entity to its per-category provider identifiers.
// An unresolved domain leaves the domain-keyed categories empty, so those
// adapters mark the metric unavailable without spending a call. Traffic
// analytics exist only for the subject's own site.
func (e *Engine) buildTargets(entities []model.CompetitorEntity) []metric.Target {
	targets := make([]metric.Target, 0, len(entities))
	for _, ent := range entities {
		queries := map[model.Category]string{
			model.CategoryLocalSEO: ent.DisplayName,
		}
		if ent.CanonicalDomain != nil {
			queries[model.CategoryPerformance] = *ent.CanonicalDomain
			queries[model.CategoryAuthority] = *ent.CanonicalDomain
		}
		if ent.IsSubject {
			queries[model.CategoryTraffic] = e.cfg.Plausible.SiteID
		}
		targets = append(targets, metric.Target{
			DisplayName: ent.DisplayName,
			Queries:     queries,
		})
	}
	return targets
}
