package dbmigration

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"
)

var (
	upFilePattern   = regexp.MustCompile(`^(\d+)__(.+)__up\.sql$`)
	downFilePattern = regexp.MustCompile(`^(\d+)__(.+)__down\.sql$`)
)

// ReadFunc returns the content of the named file.
type ReadFunc func(name string) ([]byte, error)

// LoadDir loads the change sets of group from a directory on the local filesystem.
func LoadDir(group, dir string) (*Collection, error) {
	return LoadFS(group, osFS{}, dir)
}

// LoadFS loads the change sets of group from dir within fsys. Subdirectories are not traversed.
//
// Use it with an embed.FS to ship change sets inside the binary; the result is identical to
// loading the same files from disk.
func LoadFS(group string, fsys fs.FS, dir string) (*Collection, error) {
	if fsys == nil {
		return nil, errors.New("filesystem must not be nil")
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", dir, err)
	}
	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, path.Join(dir, entry.Name()))
	}
	return Load(group, filenames, func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, name)
	})
}

// Load builds the collection of group from filenames, reading each matching file with read.
//
// Only the base name is matched against the change-set patterns:
//
//	<version>__<name>__up.sql
//	<version>__<name>__down.sql
//
// Other files are ignored. Every version needs an up file; the down file is optional and, when
// present, must carry the same name as its up file. Down files without an up file are ignored.
// Filenames are processed in lexicographic order, and two files of the same kind sharing a version
// fail with [ErrDuplicateVersion].
func Load(group string, filenames []string, read ReadFunc) (*Collection, error) {
	sorted := slices.Clone(filenames)
	slices.Sort(sorted)

	type entry struct {
		filename string
		name     string
		content  string
	}
	up := make(map[int32]entry)
	down := make(map[int32]entry)
	for _, filename := range sorted {
		base := filepath.Base(filename)
		var (
			match []string
			dest  map[int32]entry
		)
		if match = upFilePattern.FindStringSubmatch(base); match != nil {
			dest = up
		} else if match = downFilePattern.FindStringSubmatch(base); match != nil {
			dest = down
		} else {
			continue
		}
		version, err := parseVersion(match[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if prev, ok := dest[version]; ok {
			return nil, fmt.Errorf("%w %d in group %q: %s and %s",
				ErrDuplicateVersion, version, group, prev.filename, filename)
		}
		data, err := read(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		if !utf8.Valid(data) {
			return nil, &EncodingError{Filename: filename}
		}
		dest[version] = entry{filename: filename, name: match[2], content: string(data)}
	}

	changeSets := make([]*ChangeSet, 0, len(up))
	for version, u := range up {
		cs := &ChangeSet{
			Name:  VersionedName{Version: version, Name: u.name},
			UpSQL: u.content,
		}
		if d, ok := down[version]; ok {
			if d.name != u.name {
				return nil, fmt.Errorf("%w: %s and %s", ErrMismatchedDownFile, u.filename, d.filename)
			}
			downSQL := d.content
			cs.DownSQL = &downSQL
		}
		changeSets = append(changeSets, cs)
	}
	return NewCollection(group, changeSets), nil
}

func parseVersion(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return int32(v), nil
}
