// Package events defines the outbound event envelope and the four payload
// kinds the delivery subsystem queues: decision telemetry, recall
// submissions, feedback and pending capture URLs.
//
// Events are validated and serialized once, in New. Anything that fails that
// step is rejected with ErrEncoding and never reaches an outbox.
//
// The primary components are:
// - Event: an immutable, already-serialized payload tagged with its Kind
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
