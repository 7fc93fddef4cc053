package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by
// pgxmock.PgxPoolIface in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ranking_cache (
	key        TEXT PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ranking_cache_expires_at ON ranking_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	var snapshotJSON []byte
	var expiresAt time.Time

	row := s.pool.QueryRow(ctx,
		`SELECT snapshot, expires_at FROM ranking_cache WHERE key = $1`,
		key,
	)
	if err := row.Scan(&snapshotJSON, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get cache entry %s", key)
	}

	var snapshot model.RankingSnapshot
	if err := json.Unmarshal(snapshotJSON, &snapshot); err != nil {
		zap.L().Warn("cache: dropping unparsable entry",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}

	return &model.CacheEntry{Snapshot: snapshot, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, snapshot model.RankingSnapshot, ttl time.Duration) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal snapshot")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ranking_cache (key, snapshot, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			snapshot   = EXCLUDED.snapshot,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`,
		key, snapshotJSON, now.Add(ttl), now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set cache entry %s", key)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ranking_cache WHERE key = $1`, key)
	return eris.Wrapf(err, "postgres: clear cache entry %s", key)
}
