package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newMemDB(t)

	// Running the full list repeatedly must not fail or duplicate anything.
	for i := 0; i < 3; i++ {
		require.NoError(t, Migrate(ctx, db), "run %d", i)
	}

	var applied int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	require.Equal(t, len(migrations), applied)
}

func TestMigrateCreatesExpectedColumns(t *testing.T) {
	ctx := context.Background()
	db := newMemDB(t)
	require.NoError(t, Migrate(ctx, db))

	users := Columns(ctx, db, "users")
	for _, col := range []string{"id", "external_id", "role", "is_banned", "ban_expires_at"} {
		require.True(t, users[col], "users.%s missing", col)
	}

	// book and the ban ip columns arrive via the addColumn path, not the
	// initial CREATE TABLE.
	require.True(t, Columns(ctx, db, "verses")["book"])
	require.True(t, Columns(ctx, db, "bans")["ip_address"])
	require.True(t, Columns(ctx, db, "audit_logs")["timestamp"])
}

func TestColumnsMissingTable(t *testing.T) {
	ctx := context.Background()
	db := newMemDB(t)

	cols := Columns(ctx, db, "no_such_table")
	require.Empty(t, cols)
}

func TestMigrateSeedsDefaultSettings(t *testing.T) {
	ctx := context.Background()
	db := newMemDB(t)
	require.NoError(t, Migrate(ctx, db))

	var v string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT value FROM system_settings WHERE key=?", "verse_interval").Scan(&v))
	require.Equal(t, "60", v)

	// A changed value must survive re-migration; the seed is DO NOTHING.
	_, err := db.ExecContext(ctx,
		"UPDATE system_settings SET value=? WHERE key=?", "120", "verse_interval")
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT value FROM system_settings WHERE key=?", "verse_interval").Scan(&v))
	require.Equal(t, "120", v)
}

func TestRebind(t *testing.T) {
	pg := &DB{Kind: KindPostgres}
	require.Equal(t,
		"SELECT id FROM users WHERE email=$1 AND role=$2",
		pg.Rebind("SELECT id FROM users WHERE email=? AND role=?"))

	lite := &DB{Kind: KindSQLite}
	require.Equal(t,
		"SELECT id FROM users WHERE email=? AND role=?",
		lite.Rebind("SELECT id FROM users WHERE email=? AND role=?"))
}
