package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/cache"
	"github.com/imbue-digital/visibility-cli/internal/engine"
	"github.com/imbue-digital/visibility-cli/internal/metric"
	"github.com/imbue-digital/visibility-cli/internal/resolve"
	"github.com/imbue-digital/visibility-cli/pkg/openpagerank"
	"github.com/imbue-digital/visibility-cli/pkg/pagespeed"
	"github.com/imbue-digital/visibility-cli/pkg/places"
	"github.com/imbue-digital/visibility-cli/pkg/plausible"
)

// env bundles the wired engine and its store for command lifecycles.
type env struct {
	Engine *engine.Engine
	Store  cache.Store

	// Mem is non-nil only for the memory cache driver; it exposes hit/miss
	// stats the other backends don't track.
	Mem *cache.MemoryStore
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("closing cache store", zap.Error(err))
	}
}

// initStore opens the configured cache backend and runs its migration.
func initStore(ctx context.Context) (cache.Store, *cache.MemoryStore, error) {
	var store cache.Store
	var mem *cache.MemoryStore

	switch cfg.Cache.Driver {
	case "postgres":
		pg, err := cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "init postgres cache")
		}
		store = pg
	case "memory":
		mem = cache.NewMemory()
		store = mem
	case "sqlite", "":
		sq, err := cache.NewSQLite(cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "init sqlite cache")
		}
		store = sq
	default:
		return nil, nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, eris.Wrap(err, "migrate cache store")
	}
	return store, mem, nil
}

// initEngine wires the resolver, provider clients, adapters and cache into
// a ready Engine.
func initEngine(ctx context.Context) (*env, error) {
	store, mem, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	aliases := resolve.DefaultAliases()
	if cfg.Aliases.Path != "" {
		aliases, err = resolve.LoadAliases(cfg.Aliases.Path)
		if err != nil {
			store.Close()
			return nil, eris.Wrap(err, "load alias table")
		}
	}
	resolver := resolve.NewResolver(cfg.Subject.Substrings, cfg.Subject.Domain, aliases)

	placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
	pagespeedClient := pagespeed.NewClient(cfg.PageSpeed.Key, pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL))
	oprClient := openpagerank.NewClient(cfg.OpenPageRank.Key, openpagerank.WithBaseURL(cfg.OpenPageRank.BaseURL))
	plausibleClient := plausible.NewClient(cfg.Plausible.Key, plausible.WithBaseURL(cfg.Plausible.BaseURL))

	timeout := time.Duration(cfg.Metrics.AdapterTimeoutSecs) * time.Second
	adapters := []metric.Adapter{
		metric.NewPlacesAdapter(placesClient, cfg.Places.Key != "", timeout),
		metric.NewPageSpeedAdapter(pagespeedClient, cfg.PageSpeed.Key != "", timeout),
		metric.NewAuthorityAdapter(oprClient, cfg.OpenPageRank.Key != "", timeout),
		metric.NewTrafficAdapter(plausibleClient, cfg.Plausible.Key != "", timeout),
	}
	collector := metric.NewCollector(adapters, cfg.Metrics.MaxConcurrentTargets)

	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	staleness := cache.NewStaleness(store, ttl)

	return &env{
		Engine: engine.New(cfg, resolver, collector, staleness),
		Store:  store,
		Mem:    mem,
	}, nil
}
