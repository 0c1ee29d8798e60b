package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "stocks.db"),
		Name: "stocks",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestNew_CreatesDirectoryAndMigrates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	db, err := New(Config{Path: filepath.Join(dir, "stocks.db"), Name: "stocks"})
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	var count int
	err = db.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('stocks','refresh_runs')").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, DriverModernc, db.Driver())
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres", Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestBuildConnectionString(t *testing.T) {
	modern := buildConnectionString("/tmp/a.db", DriverModernc)
	assert.Contains(t, modern, "_pragma=journal_mode(WAL)")
	assert.Contains(t, modern, "_pragma=busy_timeout(5000)")

	mattn := buildConnectionString("/tmp/a.db", DriverMattn)
	assert.Contains(t, mattn, "_journal_mode=WAL")
	assert.Contains(t, mattn, "_busy_timeout=5000")

	withQuery := buildConnectionString("file:test?mode=memory", DriverModernc)
	assert.Contains(t, withQuery, "mode=memory&_pragma=")
}

func TestWithTransaction(t *testing.T) {
	db := newTempDB(t)
	insert := func(tx *sql.Tx, symbol string) error {
		_, err := tx.Exec(`INSERT INTO stocks (symbol, name, last_updated, created_at) VALUES (?, ?, '', '')`, symbol, symbol)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM stocks").Scan(&n))
		return n
	}

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			return insert(tx, "ACME")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		errAbort := errors.New("abort")
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "IBM"))
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "MSFT"))
			panic("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic")
		assert.Equal(t, 1, count())
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
	})
}

func TestHealthAndStats(t *testing.T) {
	db := newTempDB(t)
	ctx := context.Background()

	require.NoError(t, db.QuickCheck(ctx))
	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestBackupTo(t *testing.T) {
	db := newTempDB(t)
	_, err := db.Conn().Exec(`INSERT INTO stocks (symbol, name, last_updated, created_at) VALUES ('ACME', 'Acme', '', '')`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup", "stocks.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))

	restored, err := New(Config{Path: dest, Name: "stocks"})
	require.NoError(t, err)
	defer restored.Close()

	var name string
	require.NoError(t, restored.Conn().QueryRow("SELECT name FROM stocks WHERE symbol = 'ACME'").Scan(&name))
	assert.Equal(t, "Acme", name)
}
