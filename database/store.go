package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dbmigration/dbmigration/database/dialect"
)

// Store is the tracking table manager. It defines the methods used to record, inspect and forget
// applied change sets. The tracking table is the single source of truth for which change sets of a
// group have been applied, keyed by (group_name, version).
//
// Every method takes a DBTxConn so the caller decides which transaction the statement runs in.
// Implementations must never begin or commit transactions themselves.
type Store interface {
	// Tablename is the tracking table used to record applied change sets. Must not be empty.
	Tablename() string

	// CreateVersionTable creates the tracking table if it does not exist. It is idempotent and is
	// called at the start of every engine operation.
	CreateVersionTable(ctx context.Context, db DBTxConn) error

	// Insert records a change set as applied.
	Insert(ctx context.Context, db DBTxConn, req InsertRequest) error

	// Delete forgets an applied change set. It is not an error if the row does not exist.
	Delete(ctx context.Context, db DBTxConn, group string, version int32) error

	// UpdateDownSQL replaces the stored down_sql of an applied change set. A nil downSQL stores
	// NULL. If no row matches, this method must return [ErrVersionNotFound].
	UpdateDownSQL(ctx context.Context, db DBTxConn, group string, version int32, downSQL *string) error

	// ListMigrations retrieves all applied change sets of a group sorted in ascending order by
	// version. If there are none, it returns an empty slice with no error.
	ListMigrations(ctx context.Context, db DBTxConn, group string) ([]*ListMigrationsResult, error)
}

// ErrVersionNotFound must be returned by [Store.UpdateDownSQL] when the version is not recorded.
var ErrVersionNotFound = errors.New("version not found")

// InsertRequest is a single tracking row.
type InsertRequest struct {
	Group   string
	Version int32
	Name    string
	UpSQL   string
	// DownSQL is nil when the change set cannot be reverted.
	DownSQL *string
}

// ListMigrationsResult is a tracking row read back from the database.
type ListMigrationsResult struct {
	Version int32
	Name    string
	UpSQL   string
	DownSQL *string
}

// NewStore returns a new [Store] backed by the given dialect.
func NewStore(d Dialect, tablename string) (Store, error) {
	if tablename == "" {
		return nil, errors.New("tablename must not be empty")
	}
	if d == "" {
		return nil, errors.New("dialect must not be empty")
	}
	if d == DialectCustom {
		return nil, errors.New("dialect must not be custom")
	}
	querier, err := lookupQuerier(d)
	if err != nil {
		return nil, err
	}
	return &store{
		tablename: tablename,
		querier:   querier,
	}, nil
}

type store struct {
	tablename string
	querier   dialect.Querier
}

var _ Store = (*store)(nil)

func (s *store) Tablename() string {
	return s.tablename
}

func (s *store) CreateVersionTable(ctx context.Context, db DBTxConn) error {
	q := s.querier.CreateTable(s.tablename)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create tracking table %q: %w", s.tablename, err)
	}
	return nil
}

func (s *store) Insert(ctx context.Context, db DBTxConn, req InsertRequest) error {
	q := s.querier.InsertChangeSet(s.tablename)
	if _, err := db.ExecContext(ctx, q,
		req.Group,
		req.Version,
		req.Name,
		req.UpSQL,
		nullString(req.DownSQL),
	); err != nil {
		return fmt.Errorf("failed to insert version %d of group %q: %w", req.Version, req.Group, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, db DBTxConn, group string, version int32) error {
	q := s.querier.DeleteChangeSet(s.tablename)
	if _, err := db.ExecContext(ctx, q, group, version); err != nil {
		return fmt.Errorf("failed to delete version %d of group %q: %w", version, group, err)
	}
	return nil
}

func (s *store) UpdateDownSQL(
	ctx context.Context,
	db DBTxConn,
	group string,
	version int32,
	downSQL *string,
) error {
	q := s.querier.UpdateDownSQL(s.tablename)
	res, err := db.ExecContext(ctx, q, nullString(downSQL), group, version)
	if err != nil {
		return fmt.Errorf("failed to update down SQL of version %d of group %q: %w", version, group, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("version %d of group %q: %w", version, group, ErrVersionNotFound)
	}
	return nil
}

func (s *store) ListMigrations(
	ctx context.Context,
	db DBTxConn,
	group string,
) (_ []*ListMigrationsResult, retErr error) {
	q := s.querier.ListChangeSets(s.tablename)
	rows, err := db.QueryContext(ctx, q, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations of group %q: %w", group, err)
	}
	defer func() {
		if err := rows.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()

	migrations := make([]*ListMigrationsResult, 0)
	for rows.Next() {
		var (
			result  ListMigrationsResult
			downSQL sql.NullString
		)
		if err := rows.Scan(&result.Version, &result.Name, &result.UpSQL, &downSQL); err != nil {
			return nil, fmt.Errorf("failed to scan list migrations result: %w", err)
		}
		if downSQL.Valid {
			result.DownSQL = &downSQL.String
		}
		migrations = append(migrations, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return migrations, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
