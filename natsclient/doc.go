// Package natsclient manages the NATS connection used by translation-helps-core.
//
// The Client owns one connection plus its JetStream context and provides the
// primitives the rest of the system builds on: core publish/subscribe,
// JetStream streams and consumers (the storage-notification queue), key-value
// buckets (the distributed cache tier), and object-store buckets (archive and
// extracted-file storage).
//
// Reconnection is delegated to the NATS client library with handlers wired
// into the health callbacks and metrics. Connection status is tracked
// atomically and exposed for the diagnostic surface.
package natsclient
