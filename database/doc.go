// Package database provides the transactional executor and the tracking table [Store] used by the
// migration engine when interacting with the database. It also provides an implementation for each
// supported database dialect.
//
// The Store interface is meant to be generic and not tied to any specific database.
//
// It's possible to implement a custom Store for a database that is not supported. To do so,
// implement the [Store] interface and pass it to the provider with WithStore.
package database
