// Package storage defines the pluggable backend interface for content
// storage and the notification type that announces writes to the
// extraction pipeline.
package storage

import (
	"context"
	"time"
)

// Store is the backend interface for content storage.
//
// Keys are hierarchical paths ("en_ult.zip", "en_ult/files/01-GEN.usfm").
// Values are opaque bytes: zip archives, USFM books, TSV tables, Markdown
// articles. Implementations must be safe for concurrent use.
//
// The shipped implementation is objectstore.Store over a NATS JetStream
// object-store bucket; an S3 or filesystem backend would satisfy the same
// interface.
type Store interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the object at key. A missing key is an error
	// wrapping errors.ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix in lexicographic
	// order. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

// Notification announces a completed write. Producers publish one for every
// successful Put; the pipeline consumes them from the storage event stream
// and routes them by the shape of ObjectKey.
type Notification struct {
	ID        string    `json:"id"`
	ObjectKey string    `json:"object_key"`
	EventTime time.Time `json:"event_time"`
}
