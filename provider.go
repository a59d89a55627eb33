package dbmigration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dbmigration/dbmigration/database"
)

// NewProvider returns a new Provider that runs change sets against db.
//
// The caller is responsible for matching the database dialect with the database/sql driver. For
// example, if the dialect is "postgres", the driver should be github.com/jackc/pgx/v5/stdlib.
//
// See [ProviderOption] for more information on configuring the provider.
//
// Every method on Provider runs in exactly one transaction and is safe for concurrent use. Two
// concurrent calls for the same group are serialized only as far as the database's transaction
// isolation does so.
func NewProvider(dialect database.Dialect, db *sql.DB, opts ...ProviderOption) (*Provider, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	exec, err := database.NewExecutor(db)
	if err != nil {
		return nil, err
	}
	p, err := newProvider(dialect, exec, opts)
	if err != nil {
		return nil, err
	}
	p.db = db
	return p, nil
}

// NewProviderWithExecutor returns a new Provider that runs change sets through exec. It is the
// extension point for backends that are not reachable through database/sql.
//
// Pass [database.DialectCustom] together with [WithStore] to supply the tracking table SQL as well.
func NewProviderWithExecutor(
	dialect database.Dialect,
	exec database.Executor,
	opts ...ProviderOption,
) (*Provider, error) {
	if exec == nil {
		return nil, errors.New("executor must not be nil")
	}
	return newProvider(dialect, exec, opts)
}

func newProvider(dialect database.Dialect, exec database.Executor, opts []ProviderOption) (*Provider, error) {
	if dialect == "" {
		return nil, errors.New("dialect must not be empty")
	}
	var cfg config
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.store != nil && cfg.tableName != "" {
		return nil, errors.New("WithStore and WithTableName are mutually exclusive")
	}
	if dialect == database.DialectCustom && cfg.store == nil {
		return nil, errors.New("custom dialect requires a store, see WithStore")
	}
	if dialect != database.DialectCustom && cfg.store != nil {
		return nil, fmt.Errorf("WithStore requires the custom dialect, got %q", dialect)
	}
	// Set defaults after applying user-supplied options so option funcs can check for empty values.
	if cfg.tableName == "" {
		cfg.tableName = DefaultTablename
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	store := cfg.store
	if store == nil {
		var err error
		store, err = database.NewStore(dialect, cfg.tableName)
		if err != nil {
			return nil, err
		}
	}
	return &Provider{
		exec:   exec,
		store:  store,
		logger: cfg.logger,
	}, nil
}

// Provider is the migration engine. It reconciles local change-set collections with the history
// recorded in the tracking table and applies or reverts change sets accordingly.
type Provider struct {
	// db is only set when the provider owns a database/sql pool.
	db     *sql.DB
	exec   database.Executor
	store  database.Store
	logger *slog.Logger
}

// Direction is the direction a change set was run in.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Result is the outcome of applying or reverting a single change set.
type Result struct {
	Group     string
	ChangeSet VersionedName
	Direction Direction
	// Duration is the time it took to run the script and update the tracking table.
	Duration time.Duration
	// Empty is true when no script ran. This is the case when an irreversible change set is
	// rolled back: its tracking row is removed but the schema is left untouched.
	Empty bool
}

// Tablename returns the name of the tracking table.
func (p *Provider) Tablename() string {
	return p.store.Tablename()
}

// Close closes the database connection pool the provider was created with. It is a no-op for
// providers created with [NewProviderWithExecutor].
func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Migrate applies every pending change set of local in ascending order. If nothing is pending, it
// returns an empty list and no error.
//
// All change sets are applied in one transaction: if any of them fails, none of them is recorded
// and the schema is left as it was.
func (p *Provider) Migrate(ctx context.Context, local *Collection) ([]*Result, error) {
	return p.migrate(ctx, local, -1)
}

// MigrateN applies the next n pending change sets of local. It fails with [ErrOutOfRange] if fewer
// than n change sets are pending.
func (p *Provider) MigrateN(ctx context.Context, local *Collection, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", n)
	}
	return p.migrate(ctx, local, n)
}

// Rollback reverts every applied change set of group in descending order. An empty history is not
// an error.
func (p *Provider) Rollback(ctx context.Context, group string) ([]*Result, error) {
	return p.rollback(ctx, group, -1)
}

// RollbackN reverts the n most recently applied change sets of group, in descending order. It fails
// with [ErrNoChangeSetsToRevert] if fewer than n change sets are applied.
//
// Reverting a change set removes its tracking row and then runs its down SQL. A change set without
// down SQL is only forgotten; the schema change it made stays in place.
func (p *Provider) RollbackN(ctx context.Context, group string, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", n)
	}
	return p.rollback(ctx, group, n)
}

// Redo reverts the n most recently applied change sets of local's group and then applies the next
// n pending change sets of local, all in one transaction.
func (p *Provider) Redo(ctx context.Context, local *Collection, n int) ([]*Result, error) {
	if local == nil {
		return nil, errors.New("collection must not be nil")
	}
	if n < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", n)
	}
	var results []*Result
	err := p.inTx(ctx, func(tx database.Tx) error {
		down, err := p.revert(ctx, tx, local.Group(), n)
		if err != nil {
			return err
		}
		up, err := p.apply(ctx, tx, local, n)
		if err != nil {
			return err
		}
		results = append(down, up...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateRollbackSQL replaces the recorded down SQL of every applied change set whose local down SQL
// differs, and returns the change sets that were updated. It never runs any up or down SQL.
//
// Local and applied change sets are aligned by position. If a version or a name differs at any
// position, nothing is updated.
func (p *Provider) UpdateRollbackSQL(ctx context.Context, local *Collection) ([]VersionedName, error) {
	if local == nil {
		return nil, errors.New("collection must not be nil")
	}
	var updated []VersionedName
	err := p.inTx(ctx, func(tx database.Tx) error {
		var err error
		updated, err = p.updateRollbackSQL(ctx, tx, local)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// LoadAppliedChangeSets returns the history of group recorded in the tracking table, ordered by
// version.
func (p *Provider) LoadAppliedChangeSets(ctx context.Context, group string) (*Collection, error) {
	var applied *Collection
	err := p.inTx(ctx, func(tx database.Tx) error {
		var err error
		applied, err = p.loadApplied(ctx, tx, group)
		return err
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}
