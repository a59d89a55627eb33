package dbmigration_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dbmigration/dbmigration"
	"github.com/dbmigration/dbmigration/database"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	store, err := database.NewStore(database.DialectSQLite3, "custom_table")
	require.NoError(t, err)

	t.Run("invalid", func(t *testing.T) {
		// Nil db.
		_, err := dbmigration.NewProvider(database.DialectSQLite3, nil)
		require.Error(t, err)
		// Empty dialect.
		_, err = dbmigration.NewProvider("", db)
		require.Error(t, err)
		// Unknown dialect.
		_, err = dbmigration.NewProvider("unknown-dialect", db)
		require.ErrorIs(t, err, database.ErrUnknownDialect)
		// Nil executor.
		_, err = dbmigration.NewProviderWithExecutor(database.DialectSQLite3, nil)
		require.Error(t, err)
		// Empty table name.
		_, err = dbmigration.NewProvider(database.DialectSQLite3, db, dbmigration.WithTableName(""))
		require.Error(t, err)
		// Table name set twice.
		_, err = dbmigration.NewProvider(database.DialectSQLite3, db,
			dbmigration.WithTableName("foo"),
			dbmigration.WithTableName("bar"),
		)
		require.EqualError(t, err, `table already set to "foo"`)
		// Nil logger.
		_, err = dbmigration.NewProvider(database.DialectSQLite3, db, dbmigration.WithLogger(nil))
		require.Error(t, err)
		// Nil store.
		_, err = dbmigration.NewProvider(database.DialectCustom, db, dbmigration.WithStore(nil))
		require.Error(t, err)
		// Custom dialect without a store.
		_, err = dbmigration.NewProvider(database.DialectCustom, db)
		require.Error(t, err)
		// Store with a built-in dialect.
		_, err = dbmigration.NewProvider(database.DialectSQLite3, db, dbmigration.WithStore(store))
		require.Error(t, err)
		// Store together with a table name.
		_, err = dbmigration.NewProvider(database.DialectCustom, db,
			dbmigration.WithStore(store),
			dbmigration.WithTableName("foo"),
		)
		require.Error(t, err)
	})
	t.Run("defaults", func(t *testing.T) {
		p, err := dbmigration.NewProvider(database.DialectSQLite3, db)
		require.NoError(t, err)
		require.Equal(t, dbmigration.DefaultTablename, p.Tablename())
		require.Equal(t, "db_migration", p.Tablename())
	})
	t.Run("table name", func(t *testing.T) {
		p, err := dbmigration.NewProvider(database.DialectSQLite3, db, dbmigration.WithTableName("schema_history"))
		require.NoError(t, err)
		require.Equal(t, "schema_history", p.Tablename())
		_, err = p.LoadAppliedChangeSets(context.Background(), "main")
		require.NoError(t, err)
		require.True(t, tableExists(t, db, "schema_history"))
	})
	t.Run("custom store", func(t *testing.T) {
		exec, err := database.NewExecutor(db)
		require.NoError(t, err)
		p, err := dbmigration.NewProviderWithExecutor(database.DialectCustom, exec,
			dbmigration.WithStore(store),
			dbmigration.WithLogger(slog.Default()),
		)
		require.NoError(t, err)
		require.Equal(t, "custom_table", p.Tablename())
		_, err = p.Migrate(context.Background(), loadGroup(t, "audit"))
		require.NoError(t, err)
		require.True(t, tableExists(t, db, "custom_table"))
		requireApplied(t, p, "audit", 1, 2)
		// Close is a no-op without an owned pool.
		require.NoError(t, p.Close())
	})
}
