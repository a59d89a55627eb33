package cli

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// state holds the state of the CLI and is passed to each command. It is used to configure the
// environment, filesystem, and output streams.
type state struct {
	version string
	environ []string
	stdout  io.Writer
	stderr  io.Writer
	fsys    func(dir string) (fs.FS, error)

	openConnection OpenConnFunc

	// Populated while parsing flags.
	flags  *flags
	logger *slog.Logger
	env    env
}

func newStateWithDefaults(opts ...Options) (*state, error) {
	state := &state{}
	for _, opt := range opts {
		if err := opt.apply(state); err != nil {
			return nil, err
		}
	}
	// Set defaults if not set by the caller
	if state.environ == nil {
		state.environ = os.Environ()
	}
	if state.stdout == nil {
		state.stdout = os.Stdout
	}
	if state.stderr == nil {
		state.stderr = os.Stderr
	}
	if state.fsys == nil {
		// Use the default filesystem if not set, reading from the local filesystem.
		state.fsys = func(dir string) (fs.FS, error) { return os.DirFS(dir), nil }
	}
	if state.openConnection == nil {
		state.openConnection = openConnection
	}
	if state.version == "" {
		state.version = "devel"
	}
	state.env = newEnv(state.environ)
	return state, nil
}

// env is the process environment, optionally extended by a .env file. Variables set in the process
// take precedence over the .env file.
type env map[string]string

func newEnv(environ []string) env {
	e := make(env, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		e[k] = v
	}
	return e
}

// Get implements interpolate.Env.
func (e env) Get(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

func (e env) merge(values map[string]string) {
	for k, v := range values {
		if _, ok := e[k]; !ok {
			e[k] = v
		}
	}
}
