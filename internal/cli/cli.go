package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dbmigration/dbmigration"
)

// Exit codes returned by Main.
const (
	ExitError = 1
	// ExitDrift means the recorded history no longer matches the local change sets.
	ExitDrift    = 3
	ExitCanceled = 130
)

// Main is the entry point for the CLI.
//
// If an error is returned, it is printed to stderr and the process exits with a non-zero exit
// code, see [ExitError]. The run is canceled when an interrupt signal is received, which rolls
// back the transaction in flight. This function does not return.
func Main(opts ...Options) {
	ctx, stop := newContext()
	err := Run(ctx, os.Args[1:], opts...)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbmigration: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(0)
}

// Run runs the CLI with the provided arguments. The arguments should not include the command name
// itself, only the arguments to the command, use os.Args[1:].
//
// Options can be used to customize the behavior of the CLI, such as setting the environment,
// redirecting stdout and stderr, and providing a custom filesystem such as embed.FS.
func Run(ctx context.Context, args []string, opts ...Options) error {
	return run(ctx, args, opts...)
}

func exitCode(err error) int {
	var mismatch *dbmigration.VersionMismatchError
	switch {
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.Is(err, dbmigration.ErrInconsistentHistory), errors.As(err, &mismatch):
		return ExitDrift
	}
	return ExitError
}

func newContext() (context.Context, context.CancelFunc) {
	signals := []os.Signal{os.Interrupt}
	if runtime.GOOS != "windows" {
		signals = append(signals, syscall.SIGTERM)
	}
	return signal.NotifyContext(context.Background(), signals...)
}
