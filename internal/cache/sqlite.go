package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ranking_cache (
	key        TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ranking_cache_expires_at ON ranking_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	var snapshotJSON string
	var expiresAt time.Time

	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot, expires_at FROM ranking_cache WHERE key = ?`,
		key,
	)
	if err := row.Scan(&snapshotJSON, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get cache entry %s", key)
	}

	var snapshot model.RankingSnapshot
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		// Unparsable state is a cache miss, not a failure.
		zap.L().Warn("cache: dropping unparsable entry",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}

	return &model.CacheEntry{Snapshot: snapshot, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, snapshot model.RankingSnapshot, ttl time.Duration) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ranking_cache (key, snapshot, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			snapshot   = excluded.snapshot,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, string(snapshotJSON), now.Add(ttl), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set cache entry %s", key)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ranking_cache WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: clear cache entry %s", key)
}
