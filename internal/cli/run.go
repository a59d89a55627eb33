package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/mfridman/xflag"
)

type flags struct {
	config  string
	url     string
	table   string
	envFile string
	json    bool
	verbose bool
	help    bool
	version bool
}

type command struct {
	name       string
	shortUsage string
	shortHelp  string
	exec       func(ctx context.Context, st *state, args []string) error
}

const (
	usageMigrate           = "migrate [group] [count]"
	usageRollback          = "rollback <group> <count|all>"
	usageRedo              = "redo <group> [count]"
	usageUpdateRollbackSQL = "update-rollback-sql [group]"
	usageStatus            = "status [group]"
)

var commands = map[string]*command{
	"migrate": {
		name:       "migrate",
		shortUsage: usageMigrate,
		shortHelp:  "Apply pending change sets of every group, or of one group",
		exec:       execMigrate,
	},
	"rollback": {
		name:       "rollback",
		shortUsage: usageRollback,
		shortHelp:  "Revert the most recently applied change sets of a group",
		exec:       execRollback,
	},
	"redo": {
		name:       "redo",
		shortUsage: usageRedo,
		shortHelp:  "Revert and re-apply the most recent change sets of a group (default 1)",
		exec:       execRedo,
	},
	"update-rollback-sql": {
		name:       "update-rollback-sql",
		shortUsage: usageUpdateRollbackSQL,
		shortHelp:  "Replace the recorded down SQL of applied change sets with the local files",
		exec:       execUpdateRollbackSQL,
	},
	"status": {
		name:       "status",
		shortUsage: usageStatus,
		shortHelp:  "List applied, pending, diverged and untracked change sets",
		exec:       execStatus,
	},
	"version": {
		name:       "version",
		shortUsage: "version",
		shortHelp:  "Print the version",
		exec: func(_ context.Context, st *state, _ []string) error {
			fmt.Fprintf(st.stdout, "dbmigration version: %s\n", st.version)
			return nil
		},
	},
}

func run(ctx context.Context, args []string, opts ...Options) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic: %v", r)
		}
	}()
	st, err := newStateWithDefaults(opts...)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("dbmigration", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := registerFlags(fs)
	// Flags may appear before or after the command and its arguments.
	if err := xflag.ParseToEnd(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(st.stdout, fs)
			return nil
		}
		return err
	}
	st.flags = f
	if f.version {
		return commands["version"].exec(ctx, st, nil)
	}
	positional := fs.Args()
	if f.help || len(positional) == 0 {
		printUsage(st.stdout, fs)
		return nil
	}
	cmd, ok := commands[positional[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, see --help", positional[0])
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	st.logger = slog.New(slog.NewTextHandler(st.stderr, &slog.HandlerOptions{Level: level}))

	envExplicit := f.envFile != defaultEnvFile
	if err := loadEnvFile(st.env, f.envFile, envExplicit); err != nil {
		return err
	}
	return cmd.exec(ctx, st, positional[1:])
}

func registerFlags(fs *flag.FlagSet) *flags {
	f := new(flags)
	fs.StringVar(&f.config, "config", "", "config file path (default "+defaultConfigFile+", env "+envConfig+")")
	fs.StringVar(&f.config, "c", "", "shorthand for --config")
	fs.StringVar(&f.url, "url", "", "database connection URL (env "+envDatabaseURL+")")
	fs.StringVar(&f.url, "u", "", "shorthand for --url")
	fs.StringVar(&f.table, "table", "", "tracking table name (env "+envTable+")")
	fs.StringVar(&f.envFile, "env", defaultEnvFile, `env file to load, "none" to disable`)
	fs.BoolVar(&f.json, "json", false, "output as JSON")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logging")
	fs.BoolVar(&f.help, "help", false, "print help")
	fs.BoolVar(&f.version, "version", false, "print version")
	return f
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: dbmigration [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", commands[name].shortUsage, commands[name].shortHelp)
	}
	tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}
