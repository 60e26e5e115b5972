// Package cache provides a generic, thread-safe TTL cache.
//
// The cache evicts entries when their time-to-live elapses. Every entry may
// carry its own TTL (SetWithTTL); Set applies the cache's default. A
// background janitor goroutine sweeps expired entries between reads.
//
// Statistics are always collected; Prometheus export is optional via
// WithMetrics. Eviction callbacks fire outside the cache lock.
//
//	c, err := cache.NewTTL[[]byte](ctx, time.Hour, time.Minute)
//	c.SetWithTTL("catalog:en/ult", data, 6*time.Hour)
package cache
