package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-syr-auth/storage"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, storage.DriverSQLite, storage.Dialect(db))

	group, err := storage.Migrate(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.False(t, group.IsZero(), "first run should apply migrations")

	for _, table := range []string{"users", "profiles", "sessions"} {
		var count int
		err := db.NewSelect().
			TableExpr("sqlite_master").
			ColumnExpr("COUNT(*)").
			Where("type = 'table' AND name = ?", table).
			Scan(ctx, &count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	group, err = storage.Migrate(ctx, db)
	require.NoError(t, err)
	assert.True(t, group.IsZero(), "second run should be a no-op")
}

func TestRollbackDropsTables(t *testing.T) {
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Options{Driver: "sqlite3"})
	require.NoError(t, err)
	defer db.Close()

	_, err = storage.Migrate(ctx, db)
	require.NoError(t, err)

	_, err = storage.Rollback(ctx, db)
	require.NoError(t, err)

	var count int
	err = db.NewSelect().
		TableExpr("sqlite_master").
		ColumnExpr("COUNT(*)").
		Where("type = 'table' AND name IN (?, ?, ?)", "users", "profiles", "sessions").
		Scan(ctx, &count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Options{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
