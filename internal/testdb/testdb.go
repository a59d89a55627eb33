// Package testdb starts throwaway databases in docker containers for integration tests.
package testdb

import (
	"database/sql"
	"os"
	"strconv"
)

// EnvPostgres is the environment variable that enables tests against a PostgreSQL container.
const EnvPostgres = "DBMIGRATION_TEST_POSTGRES"

// NewPostgres starts a PostgreSQL docker container. Returns db connection and a docker cleanup
// function.
func NewPostgres(options ...OptionsFunc) (db *sql.DB, cleanup func(), err error) {
	return newPostgres(options...)
}

// Enabled reports whether the environment variable key is set to a true value.
func Enabled(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
