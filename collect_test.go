package dbmigration_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/dbmigration/dbmigration"
	"github.com/dbmigration/dbmigration/internal/testdata"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedMatchesDir(t *testing.T) {
	t.Parallel()

	fromEmbed, err := dbmigration.LoadFS(testdata.GroupGeneric, testdata.EmbedChangeSets, testdata.Dir(testdata.GroupGeneric))
	require.NoError(t, err)
	fromDir, err := dbmigration.LoadDir(testdata.GroupGeneric, filepath.Join("internal", "testdata", "migrations", testdata.GroupGeneric))
	require.NoError(t, err)

	require.Equal(t, fromEmbed.Group(), fromDir.Group())
	require.Equal(t, fromEmbed.ChangeSets(), fromDir.ChangeSets())

	require.Equal(t, []int32{1, 10, 11, 200}, versions(fromDir))
	names := make([]string, 0, fromDir.Len())
	for _, cs := range fromDir.ChangeSets() {
		names = append(names, cs.Name.Name)
	}
	require.Equal(t, []string{"setup", "minor_change", "patch_change", "major_change"}, names)
	require.True(t, fromDir.At(0).Reversible())
	require.True(t, fromDir.At(1).Reversible())
	require.False(t, fromDir.At(2).Reversible())
	require.True(t, fromDir.At(3).Reversible())
	require.Equal(t, "DROP TABLE table1;\n", *fromDir.At(0).DownSQL)
}

func TestLoadFS(t *testing.T) {
	t.Parallel()

	t.Run("ignores other files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"cs/1__create__up.sql":      {Data: []byte("CREATE TABLE a (id INTEGER);")},
			"cs/1__create__down.sql":    {Data: []byte("DROP TABLE a;")},
			"cs/2__orphan__down.sql":    {Data: []byte("DROP TABLE b;")},
			"cs/3_bad_separator.sql":    {Data: []byte("SELECT 1;")},
			"cs/README.md":              {Data: []byte("# notes")},
			"cs/nested/4__deep__up.sql": {Data: []byte("SELECT 4;")},
		}
		c, err := dbmigration.LoadFS("g", fsys, "cs")
		require.NoError(t, err)
		require.Equal(t, 1, c.Len())
		require.Equal(t, dbmigration.VersionedName{Version: 1, Name: "create"}, c.At(0).Name)
	})
	t.Run("empty directory", func(t *testing.T) {
		fsys := fstest.MapFS{"cs": {Mode: fs.ModeDir}}
		c, err := dbmigration.LoadFS("g", fsys, "cs")
		require.NoError(t, err)
		require.Equal(t, 0, c.Len())
	})
	t.Run("missing directory", func(t *testing.T) {
		_, err := dbmigration.LoadFS("g", fstest.MapFS{}, "cs")
		require.ErrorIs(t, err, fs.ErrNotExist)
	})
	t.Run("duplicate version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001__a__up.sql": {Data: []byte("SELECT 1;")},
			"1__a__up.sql":   {Data: []byte("SELECT 1;")},
		}
		_, err := dbmigration.LoadFS("g", fsys, ".")
		require.ErrorIs(t, err, dbmigration.ErrDuplicateVersion)
		require.Contains(t, err.Error(), "001__a__up.sql")
		require.Contains(t, err.Error(), "1__a__up.sql")
	})
	t.Run("mismatched down name", func(t *testing.T) {
		fsys := fstest.MapFS{
			"1__a__up.sql":   {Data: []byte("SELECT 1;")},
			"1__b__down.sql": {Data: []byte("SELECT 1;")},
		}
		_, err := dbmigration.LoadFS("g", fsys, ".")
		require.ErrorIs(t, err, dbmigration.ErrMismatchedDownFile)
	})
	t.Run("empty down name", func(t *testing.T) {
		fsys := fstest.MapFS{
			"1__a__up.sql":  {Data: []byte("SELECT 1;")},
			"1____down.sql": {Data: []byte("SELECT 1;")},
		}
		c, err := dbmigration.LoadFS("g", fsys, ".")
		require.NoError(t, err)
		require.False(t, c.At(0).Reversible())
	})
	t.Run("invalid utf8", func(t *testing.T) {
		fsys := fstest.MapFS{
			"1__a__up.sql": {Data: []byte{0xff, 0xfe, 0xfd}},
		}
		_, err := dbmigration.LoadFS("g", fsys, ".")
		var encErr *dbmigration.EncodingError
		require.True(t, errors.As(err, &encErr))
		require.Equal(t, "1__a__up.sql", encErr.Filename)
	})
	t.Run("version overflow", func(t *testing.T) {
		fsys := fstest.MapFS{
			"2147483648__big__up.sql": {Data: []byte("SELECT 1;")},
		}
		_, err := dbmigration.LoadFS("g", fsys, ".")
		require.ErrorIs(t, err, strconv.ErrRange)
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"some/dir/10__b__up.sql": "SELECT 10;",
		"other/dir/2__a__up.sql": "SELECT 2;",
		"other/2__a__down.sql":   "SELECT -2;",
		"unrelated/notes.txt":    "",
	}
	var names []string
	for name := range files {
		names = append(names, name)
	}
	c, err := dbmigration.Load("g", names, func(name string) ([]byte, error) {
		return []byte(files[name]), nil
	})
	require.NoError(t, err)
	require.Equal(t, []int32{2, 10}, versions(c))
	require.Equal(t, "SELECT -2;", *c.At(0).DownSQL)

	readErr := errors.New("disk on fire")
	_, err = dbmigration.Load("g", names, func(string) ([]byte, error) {
		return nil, readErr
	})
	require.ErrorIs(t, err, readErr)
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "5__x__up.sql"), []byte("SELECT 5;"), 0o644))
	c, err := dbmigration.LoadDir("g", dir)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, "SELECT 5;", c.At(0).UpSQL)

	_, err = dbmigration.LoadDir("g", filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
