// Package postgres provides a PostgreSQL implementation of store.KVStore for
// hosts that keep outbox state in a shared database instead of a local file.
// Connections go through the pgx stdlib driver.
package postgres
