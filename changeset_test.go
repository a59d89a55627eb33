package dbmigration_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dbmigration/dbmigration"
	"github.com/stretchr/testify/require"
)

func TestVersionedNameOrder(t *testing.T) {
	t.Parallel()

	a := dbmigration.VersionedName{Version: 111, Name: "foo"}
	b := dbmigration.VersionedName{Version: 200, Name: "bar"}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))

	c := dbmigration.VersionedName{Version: 100, Name: "bar"}
	d := dbmigration.VersionedName{Version: 100, Name: "foo"}
	require.True(t, c.Less(d))
	require.Equal(t, 1, d.Compare(c))
	require.Equal(t, 0, c.Compare(c))

	require.Equal(t, "V100 foo", d.String())
}

func TestNewCollectionSorts(t *testing.T) {
	t.Parallel()

	input := []*dbmigration.ChangeSet{
		newChangeSet(200, "c", nil),
		newChangeSet(1, "a", nil),
		newChangeSet(10, "b", nil),
	}
	c := dbmigration.NewCollection("g", input)
	require.Equal(t, "g", c.Group())
	require.Equal(t, []int32{1, 10, 200}, versions(c))
	// The input slice is not reordered.
	require.EqualValues(t, 200, input[0].Name.Version)

	cs, ok := c.Lookup(10)
	require.True(t, ok)
	require.Equal(t, "b", cs.Name.Name)
	_, ok = c.Lookup(11)
	require.False(t, ok)
}

func TestSubset(t *testing.T) {
	t.Parallel()

	c := sampleCollection(5)
	for n := 0; n <= c.Len(); n++ {
		head, err := c.Subset(0, n)
		require.NoError(t, err)
		tail, err := c.Subset(n, c.Len())
		require.NoError(t, err)
		require.Equal(t, c.Group(), head.Group())
		require.Equal(t, versions(c), append(versions(head), versions(tail)...))
	}
	for _, tc := range []struct{ start, end int }{
		{-1, 2},
		{0, 6},
		{3, 2},
	} {
		_, err := c.Subset(tc.start, tc.end)
		require.ErrorIs(t, err, dbmigration.ErrOutOfRange, "subset [%d:%d]", tc.start, tc.end)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()

	t.Run("self", func(t *testing.T) {
		c := sampleCollection(4)
		plan, err := c.Diff(c)
		require.NoError(t, err)
		require.Equal(t, 0, plan.Len())
	})
	t.Run("prefix", func(t *testing.T) {
		c := sampleCollection(6)
		for n := 0; n <= c.Len(); n++ {
			prefix, err := c.Subset(0, n)
			require.NoError(t, err)
			plan, err := c.Diff(prefix)
			require.NoError(t, err)
			suffix, err := c.Subset(n, c.Len())
			require.NoError(t, err)
			require.Equal(t, suffix.ChangeSets(), plan.ChangeSets())
		}
	})
	t.Run("version mismatch", func(t *testing.T) {
		local := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{
			newChangeSet(1, "a", nil),
			newChangeSet(2, "inserted", nil),
			newChangeSet(3, "b", nil),
		})
		applied := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{
			newChangeSet(1, "a", nil),
			newChangeSet(3, "b", nil),
		})
		_, err := local.Diff(applied)
		var mismatch *dbmigration.VersionMismatchError
		require.True(t, errors.As(err, &mismatch))
		require.EqualValues(t, 2, mismatch.Local)
		require.EqualValues(t, 3, mismatch.Applied)
	})
	t.Run("name mismatch", func(t *testing.T) {
		local := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{newChangeSet(1, "a", nil)})
		applied := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{newChangeSet(1, "b", nil)})
		requireInconsistent(t, local, applied, dbmigration.ReasonNameMismatch, 1)
	})
	t.Run("up SQL mismatch", func(t *testing.T) {
		edited := newChangeSet(1, "a", nil)
		edited.UpSQL = "CREATE TABLE edited (id INTEGER);"
		local := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{edited})
		applied := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{newChangeSet(1, "a", nil)})
		requireInconsistent(t, local, applied, dbmigration.ReasonUpSQLMismatch, 1)
	})
	t.Run("down SQL mismatch", func(t *testing.T) {
		local := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{newChangeSet(1, "a", ptr("DROP TABLE a;"))})
		applied := dbmigration.NewCollection("g", []*dbmigration.ChangeSet{newChangeSet(1, "a", nil)})
		requireInconsistent(t, local, applied, dbmigration.ReasonDownSQLMismatch, 1)

		applied = dbmigration.NewCollection("g", []*dbmigration.ChangeSet{newChangeSet(1, "a", ptr("DROP TABLE b;"))})
		requireInconsistent(t, local, applied, dbmigration.ReasonDownSQLMismatch, 1)
	})
	t.Run("history ahead", func(t *testing.T) {
		c := sampleCollection(3)
		short, err := c.Subset(0, 1)
		require.NoError(t, err)
		requireInconsistent(t, short, c, dbmigration.ReasonHistoryAhead, c.At(1).Name.Version)
	})
	t.Run("group mismatch", func(t *testing.T) {
		a := dbmigration.NewCollection("a", nil)
		b := dbmigration.NewCollection("b", nil)
		_, err := a.Diff(b)
		require.ErrorIs(t, err, dbmigration.ErrGroupMismatch)
	})
}

func requireInconsistent(
	t *testing.T,
	local, applied *dbmigration.Collection,
	reason string,
	version int32,
) {
	t.Helper()
	_, err := local.Diff(applied)
	require.ErrorIs(t, err, dbmigration.ErrInconsistentHistory)
	var inconsistent *dbmigration.InconsistentHistoryError
	require.True(t, errors.As(err, &inconsistent))
	require.Equal(t, reason, inconsistent.Reason)
	require.Equal(t, version, inconsistent.Version)
}

func newChangeSet(version int32, name string, downSQL *string) *dbmigration.ChangeSet {
	return &dbmigration.ChangeSet{
		Name:    dbmigration.VersionedName{Version: version, Name: name},
		UpSQL:   fmt.Sprintf("CREATE TABLE %s_%d (id INTEGER);", name, version),
		DownSQL: downSQL,
	}
}

func sampleCollection(n int) *dbmigration.Collection {
	var changeSets []*dbmigration.ChangeSet
	for i := 1; i <= n; i++ {
		down := fmt.Sprintf("DROP TABLE t_%d;", i*10)
		changeSets = append(changeSets, newChangeSet(int32(i*10), "t", &down))
	}
	return dbmigration.NewCollection("sample", changeSets)
}

func versions(c *dbmigration.Collection) []int32 {
	out := make([]int32, 0, c.Len())
	for _, cs := range c.ChangeSets() {
		out = append(out, cs.Name.Version)
	}
	return out
}

func ptr(s string) *string { return &s }
