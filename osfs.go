package dbmigration

import (
	"io/fs"
	"os"
	"path/filepath"
)

// osFS reads change-set directories from the os filesystem. Unlike os.DirFS it accepts absolute
// and parent-relative paths, which config files commonly use.
type osFS struct{}

var (
	_ fs.FS         = osFS{}
	_ fs.ReadDirFS  = osFS{}
	_ fs.ReadFileFS = osFS{}
)

func (osFS) Open(name string) (fs.File, error) { return os.Open(filepath.FromSlash(name)) }

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(filepath.FromSlash(name))
}

func (osFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(filepath.FromSlash(name)) }
