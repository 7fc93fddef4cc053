package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Get_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT snapshot, expires_at FROM ranking_cache`).
		WithArgs("absent").
		WillReturnError(pgx.ErrNoRows)

	entry, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	snap := testSnapshot("snap-pg")
	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	expires := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery(`SELECT snapshot, expires_at FROM ranking_cache`).
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"snapshot", "expires_at"}).
			AddRow(payload, expires))

	entry, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "snap-pg", entry.Snapshot.ID)
	assert.False(t, entry.Expired(time.Now().UTC()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_UnparsableIsMiss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT snapshot, expires_at FROM ranking_cache`).
		WithArgs("bad").
		WillReturnRows(pgxmock.NewRows([]string{"snapshot", "expires_at"}).
			AddRow([]byte(`{not json`), time.Now().UTC()))

	entry, err := s.Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("k", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Set(context.Background(), "k", testSnapshot("snap-1"), time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Clear(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM ranking_cache`).
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Clear(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ranking_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
