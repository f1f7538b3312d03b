// Package sqlite provides the default local persistence for outbox state: a
// key-value table in a single SQLite file, opened through the pure-Go
// modernc.org/sqlite driver so hosts need no cgo toolchain.
package sqlite
