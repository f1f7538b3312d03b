// Package syncclient delivers outbox entries to the remote ingest service,
// head first, one request at a time, and stops at the first failure so the
// failed entry and everything behind it stay queued for the next cycle.
//
// The client never retries or backs off. Deciding when to try again belongs
// to the coordinator.
package syncclient
