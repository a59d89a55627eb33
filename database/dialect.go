package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dbmigration/dbmigration/database/dialect"
)

// Dialect is the type of database dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite3  Dialect = "sqlite3"

	// DialectCustom is a special dialect that allows users to provide their own [Store]
	// implementation when constructing a [dbmigration.Provider].
	DialectCustom Dialect = "custom"
)

// ErrUnknownDialect is returned when a dialect name or alias is not supported.
var ErrUnknownDialect = errors.New("unknown dialect")

// ParseDialect returns the dialect for a connection URL scheme or a driver alias, for example
// "postgres", "postgresql", "pgx" or "sqlite3".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg", "pgx", "pgsql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3", "file":
		return DialectSQLite3, nil
	}
	return "", ErrUnknownDialect
}

// DriverName returns the database/sql driver name registered for the dialect by the drivers this
// module depends on: github.com/jackc/pgx/v5/stdlib ("pgx") and modernc.org/sqlite ("sqlite").
func (d Dialect) DriverName() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite3:
		return "sqlite", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, string(d))
}

func lookupQuerier(d Dialect) (dialect.Querier, error) {
	switch d {
	case DialectPostgres:
		return dialect.NewPostgres(), nil
	case DialectSQLite3:
		return dialect.NewSqlite3(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, string(d))
}
