package testdb

import "time"

type options struct {
	bindPort int
	debug    bool
	timeout  time.Duration
}

type OptionsFunc func(o *options)

func WithBindPort(n int) OptionsFunc {
	return func(o *options) { o.bindPort = n }
}

// WithDebug leaves the container running after cleanup.
func WithDebug(b bool) OptionsFunc {
	return func(o *options) { o.debug = b }
}

// WithTimeout sets how long to wait for the database to accept connections. Default 30s.
func WithTimeout(d time.Duration) OptionsFunc {
	return func(o *options) { o.timeout = d }
}
