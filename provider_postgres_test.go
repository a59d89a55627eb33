package dbmigration_test

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/dbmigration/dbmigration"
	"github.com/dbmigration/dbmigration/database"
	"github.com/dbmigration/dbmigration/internal/testdata"
	"github.com/dbmigration/dbmigration/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresProvider(t *testing.T) {
	if !testdb.Enabled(testdb.EnvPostgres) {
		t.Skipf("set %s=1 to run tests against a postgres container", testdb.EnvPostgres)
	}
	db, cleanup, err := testdb.NewPostgres()
	require.NoError(t, err)
	t.Cleanup(cleanup)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	p, err := dbmigration.NewProvider(database.DialectPostgres, db)
	require.NoError(t, err)

	t.Run("migrate_and_rollback", func(t *testing.T) {
		generic := loadGroup(t, testdata.GroupGeneric)
		audit := loadGroup(t, testdata.GroupAudit)

		results, err := p.Migrate(ctx, generic)
		require.NoError(t, err)
		require.Len(t, results, generic.Len())
		_, err = p.Migrate(ctx, audit)
		require.NoError(t, err)
		requireApplied(t, p, testdata.GroupGeneric, 1, 10, 11, 200)
		requireApplied(t, p, testdata.GroupAudit, 1, 2)
		assert.True(t, postgresTableExists(t, db, "table200"))

		statuses, err := p.Status(ctx, generic)
		require.NoError(t, err)
		for _, s := range statuses {
			assert.Equal(t, dbmigration.StateApplied, s.State)
		}

		results, err = p.Redo(ctx, generic, 1)
		require.NoError(t, err)
		require.Len(t, results, 2)

		results, err = p.Rollback(ctx, testdata.GroupGeneric)
		require.NoError(t, err)
		require.Len(t, results, 4)
		requireApplied(t, p, testdata.GroupGeneric)
		requireApplied(t, p, testdata.GroupAudit, 1, 2)
		assert.False(t, postgresTableExists(t, db, "table1"))
	})
	t.Run("migrate_is_atomic", func(t *testing.T) {
		local := loadMapFS(t, "atomic", fstest.MapFS{
			"1__ok__up.sql":     {Data: []byte("CREATE TABLE atomic_ok (id INTEGER);")},
			"2__broken__up.sql": {Data: []byte("CREATE TABLE atomic_broken (id INTEGER);\nSELECT * FROM missing_table;")},
		})
		_, err := p.Migrate(ctx, local)
		require.Error(t, err)
		requireApplied(t, p, "atomic")
		assert.False(t, postgresTableExists(t, db, "atomic_ok"))
		assert.False(t, postgresTableExists(t, db, "atomic_broken"))
	})
	t.Run("dollar_quoted_function", func(t *testing.T) {
		local := loadMapFS(t, "plpgsql", fstest.MapFS{
			"1__audit_trigger__up.sql": {Data: []byte(`CREATE TABLE plpgsql_items (id INTEGER PRIMARY KEY, touched INTEGER NOT NULL DEFAULT 0);
CREATE FUNCTION plpgsql_touch() RETURNS trigger AS $$
BEGIN
    NEW.touched := NEW.touched + 1;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;
CREATE TRIGGER plpgsql_touch BEFORE INSERT ON plpgsql_items
    FOR EACH ROW EXECUTE FUNCTION plpgsql_touch();
INSERT INTO plpgsql_items (id) VALUES (1);
`)},
			"1__audit_trigger__down.sql": {Data: []byte(`DROP TABLE plpgsql_items;
DROP FUNCTION plpgsql_touch();
`)},
		})
		_, err := p.Migrate(ctx, local)
		require.NoError(t, err)
		var touched int
		require.NoError(t, db.QueryRow(`SELECT touched FROM plpgsql_items WHERE id = 1`).Scan(&touched))
		assert.Equal(t, 1, touched)

		_, err = p.Rollback(ctx, "plpgsql")
		require.NoError(t, err)
		assert.False(t, postgresTableExists(t, db, "plpgsql_items"))
	})
	t.Run("update_rollback_sql", func(t *testing.T) {
		original := loadMapFS(t, "update", fstest.MapFS{
			"1__t__up.sql":   {Data: []byte("CREATE TABLE update_t (id INTEGER);")},
			"1__t__down.sql": {Data: []byte("DROP TABLE update_t;")},
		})
		_, err := p.Migrate(ctx, original)
		require.NoError(t, err)
		changed := loadMapFS(t, "update", fstest.MapFS{
			"1__t__up.sql":   {Data: []byte("CREATE TABLE update_t (id INTEGER);")},
			"1__t__down.sql": {Data: []byte("DROP TABLE IF EXISTS update_t;")},
		})
		updated, err := p.UpdateRollbackSQL(ctx, changed)
		require.NoError(t, err)
		assert.Equal(t, []dbmigration.VersionedName{{Version: 1, Name: "t"}}, updated)
		applied, err := p.LoadAppliedChangeSets(ctx, "update")
		require.NoError(t, err)
		require.Equal(t, 1, applied.Len())
		assert.Equal(t, "DROP TABLE IF EXISTS update_t;", *applied.At(0).DownSQL)
	})
}

func postgresTableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
		SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1
	)`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}
