// Package store defines the persistence contracts used by the delivery
// subsystem: a small key-value interface that every outbox persists through,
// the shared error vocabulary for store implementations, and an in-memory
// implementation for tests and ephemeral hosts.
package store
