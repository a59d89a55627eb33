package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dbmigration/dbmigration/internal/sqlsplit"
)

// DBTxConn is a thin interface for common methods that is satisfied by *sql.DB, *sql.Tx and
// *sql.Conn.
//
// There is a long outstanding issue to formalize a std lib interface, but alas. See:
// https://github.com/golang/go/issues/14468
type DBTxConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTxConn = (*sql.DB)(nil)
	_ DBTxConn = (*sql.Tx)(nil)
	_ DBTxConn = (*sql.Conn)(nil)
)

// Executor is a transactional SQL executor. The migration engine only ever talks to the database
// through an Executor, so a backend is plugged in by providing one.
type Executor interface {
	// BeginTx starts a transaction. Cancelling ctx rolls the transaction back.
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a single transaction opened by an [Executor].
type Tx interface {
	DBTxConn

	// BatchExecContext runs a script that may hold several statements separated by semicolons.
	// No parameters are bound.
	BatchExecContext(ctx context.Context, script string) error

	Commit() error
	Rollback() error
}

// ExecutorOption configures an [Executor] returned by [NewExecutor].
type ExecutorOption func(*sqlExecutor)

// WithStatementSplitting makes [Tx.BatchExecContext] split scripts into individual statements and
// execute them one at a time. Only use it with drivers that cannot run multi-statement text: the
// splitter breaks statements at lines ending in a semicolon, so compound statements such as
// trigger or function bodies must be wrapped in
//
//	-- +dbmigration StatementBegin
//	...
//	-- +dbmigration StatementEnd
//
// The pgx and modernc.org/sqlite drivers do not need it.
func WithStatementSplitting() ExecutorOption {
	return func(e *sqlExecutor) { e.split = true }
}

// NewExecutor returns an [Executor] backed by a database/sql connection pool.
//
// By default a script passed to [Tx.BatchExecContext] is handed to the driver as a whole, in one
// call, and the driver runs every statement in it.
func NewExecutor(db *sql.DB, opts ...ExecutorOption) (Executor, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	e := &sqlExecutor{db: db}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type sqlExecutor struct {
	db    *sql.DB
	split bool
}

var _ Executor = (*sqlExecutor)(nil)

func (e *sqlExecutor) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{Tx: tx, split: e.split}, nil
}

type sqlTx struct {
	*sql.Tx
	split bool
}

var _ Tx = (*sqlTx)(nil)

func (t *sqlTx) BatchExecContext(ctx context.Context, script string) error {
	if strings.TrimSpace(script) == "" {
		return nil
	}
	if !t.split {
		_, err := t.ExecContext(ctx, script)
		return err
	}
	statements, err := sqlsplit.Split(script)
	if err != nil {
		return err
	}
	for i, stmt := range statements {
		if _, err := t.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}
