package dialect

import "fmt"

// NewPostgres returns a new [Querier] for PostgreSQL dialect.
func NewPostgres() Querier {
	return &postgres{}
}

type postgres struct{}

var _ Querier = (*postgres)(nil)

func (p *postgres) CreateTable(tableName string) string {
	// The primary key already implies NOT NULL for group_name and version.
	q := `CREATE TABLE IF NOT EXISTS %s (
		group_name TEXT,
		version INTEGER,
		name TEXT NOT NULL,
		up_sql TEXT NOT NULL,
		down_sql TEXT,
		PRIMARY KEY(group_name, version)
	)`
	return fmt.Sprintf(q, tableName)
}

func (p *postgres) InsertChangeSet(tableName string) string {
	q := `INSERT INTO %s (group_name, version, name, up_sql, down_sql) VALUES ($1, $2, $3, $4, $5)`
	return fmt.Sprintf(q, tableName)
}

func (p *postgres) DeleteChangeSet(tableName string) string {
	q := `DELETE FROM %s WHERE group_name=$1 AND version=$2`
	return fmt.Sprintf(q, tableName)
}

func (p *postgres) UpdateDownSQL(tableName string) string {
	q := `UPDATE %s SET down_sql=$1 WHERE group_name=$2 AND version=$3`
	return fmt.Sprintf(q, tableName)
}

func (p *postgres) ListChangeSets(tableName string) string {
	q := `SELECT version, name, up_sql, down_sql FROM %s WHERE group_name=$1 ORDER BY version ASC`
	return fmt.Sprintf(q, tableName)
}
