// Package outbox implements the durable, capacity-bounded FIFO queues that hold
// outbound events until a remote service acknowledges them.
//
// Each Outbox owns one key in a store.KVStore and rewrites its whole state on
// every mutation before returning, so a crash right after Enqueue never loses
// the item. Delivery is at-least-once: a crash between PeekHead and CommitHead
// re-delivers the head on the next drain.
package outbox
