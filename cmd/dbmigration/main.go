package main

import (
	"runtime/debug"

	"github.com/dbmigration/dbmigration/internal/cli"

	// Init DB drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	version = ""
)

func main() {
	var opts []cli.Options
	if v := buildVersion(); v != "" {
		opts = append(opts, cli.WithVersion(v))
	}
	cli.Main(opts...)
}

// buildVersion returns the version set at link time with -ldflags "-X main.version=...", falling
// back to the module version recorded by go install.
func buildVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return ""
}
