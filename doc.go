// Package dbmigration evolves a relational schema through ordered, named SQL change sets and records
// which of them have been applied in a tracking table inside the target database.
//
// Change sets are loaded from files named
//
//	<version>__<name>__up.sql
//	<version>__<name>__down.sql
//
// into a [Collection], one per group. A [Provider] diffs a local collection against the history
// recorded for its group and applies, reverts or resynchronizes change sets. Every Provider method
// runs in a single transaction: it either completes or leaves the database untouched.
package dbmigration
