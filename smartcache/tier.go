package smartcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/pkg/cache"
	"github.com/klappy/translation-helps-core/pkg/retry"
)

// Tier is a single cache level storing opaque bytes with per-entry TTL.
// Implementations must be safe for concurrent use.
type Tier interface {
	// Get retrieves an entry. A missing, expired, or unreadable entry
	// reports false.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores an entry with the given TTL. A ttl of zero means the
	// tier's default retention.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the tier in logs and metrics.
	Name() string
}

// MemoryTier is the in-process cache level backed by pkg/cache.
type MemoryTier struct {
	backing cache.Cache[[]byte]
}

// NewMemoryTier creates an in-memory tier. defaultTTL applies to entries
// stored with a zero TTL.
func NewMemoryTier(ctx context.Context, defaultTTL, cleanupInterval time.Duration) (*MemoryTier, error) {
	backing, err := cache.NewTTL[[]byte](ctx, defaultTTL, cleanupInterval)
	if err != nil {
		return nil, errors.Wrap(err, "MemoryTier", "NewMemoryTier", "create backing cache")
	}
	return &MemoryTier{backing: backing}, nil
}

// Name implements Tier
func (t *MemoryTier) Name() string { return "memory" }

// Get implements Tier
func (t *MemoryTier) Get(_ context.Context, key string) ([]byte, bool) {
	return t.backing.Get(key)
}

// Set implements Tier
func (t *MemoryTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var err error
	if ttl > 0 {
		_, err = t.backing.SetWithTTL(key, value, ttl)
	} else {
		_, err = t.backing.Set(key, value)
	}
	return err
}

// Delete implements Tier
func (t *MemoryTier) Delete(_ context.Context, key string) error {
	_, err := t.backing.Delete(key)
	return err
}

// Close stops the backing cache's janitor
func (t *MemoryTier) Close() error {
	return t.backing.Close()
}

// kvEnvelope wraps a stored value with its expiry metadata. JetStream KV
// buckets only support a bucket-wide TTL, so per-entry expiry is checked on
// read.
type kvEnvelope struct {
	StoredAt int64         `json:"stored_at"` // unix nanoseconds
	TTL      time.Duration `json:"ttl"`
	Payload  []byte        `json:"payload"`
}

// NATSTier is the shared cache level backed by a JetStream key-value bucket.
type NATSTier struct {
	kv    jetstream.KeyValue
	retry retry.Config
	now   func() time.Time
}

// NewNATSTier creates a tier over an existing KV bucket.
func NewNATSTier(kv jetstream.KeyValue) *NATSTier {
	return &NATSTier{
		kv:    kv,
		retry: retry.Config{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0, AddJitter: true},
		now:   time.Now,
	}
}

// Name implements Tier
func (t *NATSTier) Name() string { return "nats-kv" }

// Get implements Tier
func (t *NATSTier) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, err := t.kv.Get(ctx, sanitizeKVKey(key))
	if err != nil {
		return nil, false
	}

	var env kvEnvelope
	if err := json.Unmarshal(entry.Value(), &env); err != nil {
		return nil, false
	}

	if env.TTL > 0 && t.now().UnixNano() > env.StoredAt+int64(env.TTL) {
		// Expired under its own TTL. Purge lazily so the bucket does
		// not accumulate dead entries.
		_ = t.kv.Delete(ctx, sanitizeKVKey(key))
		return nil, false
	}

	return env.Payload, true
}

// Set implements Tier
func (t *NATSTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	env := kvEnvelope{
		StoredAt: t.now().UnixNano(),
		TTL:      ttl,
		Payload:  value,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return errors.WrapInvalid(err, "NATSTier", "Set", "encode envelope")
	}

	return retry.Do(ctx, t.retry, func() error {
		_, putErr := t.kv.Put(ctx, sanitizeKVKey(key), data)
		return putErr
	})
}

// Delete implements Tier
func (t *NATSTier) Delete(ctx context.Context, key string) error {
	err := t.kv.Delete(ctx, sanitizeKVKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return errors.WrapTransient(err, "NATSTier", "Delete", "delete key")
	}
	return nil
}

// sanitizeKVKey maps cache keys onto the character set JetStream KV accepts.
// Cache keys use ':' as the class separator, which KV rejects.
func sanitizeKVKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}
