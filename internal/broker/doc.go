// Package broker provides the console's publish/subscribe hub.
//
// Every component of the console talks through a single Broker instance that the
// composition root creates at start-up and passes by reference. Subscriptions are
// tagged with an owner (normally the component pointer) so a component can drop all
// of its registrations in one call when it is torn down:
//
//	b := broker.New()
//	b.Listen(broker.TopicBlockSelected, blk, blk.onSelected)
//	b.Listen(broker.TopicBlockLengthChanging, blk, blk.onLengthChanging)
//	...
//	b.StopListeningAll(blk) // nothing owned by blk runs again
//
// # Delivery
//
// Fire is synchronous. Handlers run in registration order on the caller's goroutine
// and Fire returns only after the last one has finished. The subscription table is
// snapshotted before dispatch, so handlers may listen, unlisten and fire freely. A
// subscription removed by an earlier handler of the same Fire is skipped.
//
// # Re-entrancy
//
// A handler that fires a topic re-enters the broker. This is allowed but bounded:
// once nesting exceeds the configured depth the nested Fire is dropped and logged.
// Callers must not rely on nested delivery being safe.
//
// # Threading
//
// The console runs all component work on one goroutine (see package loop). The
// broker guards its table with a mutex so misuse is memory-safe, and WithLoopAffinity
// logs any call that arrives from a goroutine other than the one that fired first.
package broker
