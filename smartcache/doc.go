// Package smartcache implements the tiered content cache.
//
// A SmartCache fronts an ordered list of Tiers, fastest first. The default
// deployment runs a MemoryTier backed by pkg/cache over a NATSTier backed by
// a JetStream key-value bucket, so restarts keep warm content and multiple
// instances share it.
//
// Policy lives entirely in the SmartCache layer: a pattern table maps each
// content class to its TTL, invalidation tags, and compression setting, and
// an AccessTracker adapts TTLs to observed access frequency. Tiers store
// opaque bytes and know nothing about classes or tags.
//
// Tier failures are swallowed: a failed read is a miss, a failed write is a
// no-op. A cache problem is never a request failure.
package smartcache
