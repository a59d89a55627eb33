// Package dialect holds the SQL text each supported backend uses to manage the tracking table.
//
// A Querier only builds query strings. Executing them, and the transaction they run in, is the
// job of [database.Store] and the executor.
package dialect

// Querier is the interface that wraps the basic methods to create a dialect specific query for the
// tracking table.
//
// Every query takes the table name so the same Querier can serve any table.
type Querier interface {
	// CreateTable returns the SQL query string to create the tracking table if it does not
	// already exist. It must be safe to run at the start of every operation.
	//
	// Columns: group_name, version (integer), name (non-null text), up_sql (non-null text),
	// down_sql (nullable text), with primary key (group_name, version).
	CreateTable(tableName string) string

	// InsertChangeSet returns the SQL query string to insert a tracking row. Placeholders, in
	// order: group_name, version, name, up_sql, down_sql.
	InsertChangeSet(tableName string) string

	// DeleteChangeSet returns the SQL query string to delete a tracking row. Placeholders, in
	// order: group_name, version.
	DeleteChangeSet(tableName string) string

	// UpdateDownSQL returns the SQL query string to replace the stored down_sql of a tracking row.
	// Placeholders, in order: down_sql, group_name, version.
	UpdateDownSQL(tableName string) string

	// ListChangeSets returns the SQL query string to list all tracking rows of a group in
	// ascending version order. Placeholder: group_name.
	//
	// The query should return the version, name, up_sql and down_sql columns.
	ListChangeSets(tableName string) string
}
