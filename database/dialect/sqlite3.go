package dialect

import "fmt"

// NewSqlite3 returns a [Querier] for SQLite dialect.
func NewSqlite3() Querier {
	return &sqlite3{}
}

type sqlite3 struct{}

var _ Querier = (*sqlite3)(nil)

func (s *sqlite3) CreateTable(tableName string) string {
	q := `CREATE TABLE IF NOT EXISTS %s (
		group_name TEXT NOT NULL,
		version INTEGER NOT NULL,
		name TEXT NOT NULL,
		up_sql TEXT NOT NULL,
		down_sql TEXT,
		PRIMARY KEY(group_name, version)
	)`
	return fmt.Sprintf(q, tableName)
}

func (s *sqlite3) InsertChangeSet(tableName string) string {
	q := `INSERT INTO %s (group_name, version, name, up_sql, down_sql) VALUES (?, ?, ?, ?, ?)`
	return fmt.Sprintf(q, tableName)
}

func (s *sqlite3) DeleteChangeSet(tableName string) string {
	q := `DELETE FROM %s WHERE group_name=? AND version=?`
	return fmt.Sprintf(q, tableName)
}

func (s *sqlite3) UpdateDownSQL(tableName string) string {
	q := `UPDATE %s SET down_sql=? WHERE group_name=? AND version=?`
	return fmt.Sprintf(q, tableName)
}

func (s *sqlite3) ListChangeSets(tableName string) string {
	q := `SELECT version, name, up_sql, down_sql FROM %s WHERE group_name=? ORDER BY version ASC`
	return fmt.Sprintf(q, tableName)
}
