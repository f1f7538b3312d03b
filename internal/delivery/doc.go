// Package delivery is the embedded facade over the durable delivery layer.
// A Subsystem owns one outbox per event kind, the sync client that drains
// them and the coordinator that decides when a drain runs.
//
// Hosts only enqueue events and trigger drains. Every failure below that
// surface is routed to a diag.Sink.
package delivery
