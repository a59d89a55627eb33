package dbmigration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dbmigration/dbmigration/database"
)

const (
	// DefaultTablename is the tracking table used when [WithTableName] is not given.
	DefaultTablename = "db_migration"
)

// ProviderOption is a configuration option for a [Provider].
type ProviderOption interface {
	apply(*config) error
}

// WithTableName sets the name of the tracking table.
//
// If WithTableName is not called, the default value is "db_migration".
func WithTableName(name string) ProviderOption {
	return configFunc(func(c *config) error {
		if c.tableName != "" {
			return fmt.Errorf("table already set to %q", c.tableName)
		}
		if name == "" {
			return errors.New("table must not be empty")
		}
		c.tableName = name
		return nil
	})
}

// WithStore sets a custom tracking table [database.Store]. It is required when the dialect is
// [database.DialectCustom] and cannot be combined with [WithTableName], since the store owns its
// table name.
func WithStore(store database.Store) ProviderOption {
	return configFunc(func(c *config) error {
		if c.store != nil {
			return fmt.Errorf("store already set to %T", c.store)
		}
		if store == nil {
			return errors.New("store must not be nil")
		}
		if store.Tablename() == "" {
			return errors.New("store implementation must set the table name")
		}
		c.store = store
		return nil
	})
}

// WithLogger sets the structured logger. Every applied, reverted and updated change set is logged
// at Info level.
//
// If WithLogger is not called, nothing is logged.
func WithLogger(logger *slog.Logger) ProviderOption {
	return configFunc(func(c *config) error {
		if c.logger != nil {
			return errors.New("logger already set")
		}
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	})
}

type config struct {
	tableName string
	store     database.Store
	logger    *slog.Logger
}

type configFunc func(*config) error

func (f configFunc) apply(cfg *config) error {
	return f(cfg)
}
