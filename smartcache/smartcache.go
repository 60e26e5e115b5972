package smartcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/metric"
)

// Pattern describes the caching policy for one content class.
type Pattern struct {
	TTL      time.Duration
	Tags     []string
	Compress bool
}

// AdaptiveConfig bounds the TTL adaptation. All four values are tunable;
// the defaults match the platform's observed hot/cold access profile.
type AdaptiveConfig struct {
	HotAccessInterval  time.Duration // accesses closer together than this double the TTL
	ColdAccessInterval time.Duration // accesses further apart than this halve the TTL
	MinTTL             time.Duration
	MaxTTL             time.Duration
}

// DefaultAdaptiveConfig returns the standard adaptation bounds.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		HotAccessInterval:  100 * time.Second,
		ColdAccessInterval: 1000 * time.Second,
		MinTTL:             time.Minute,
		MaxTTL:             24 * time.Hour,
	}
}

// DefaultPatterns returns the policy table for the platform's content
// classes. Unknown classes fall back to a conservative short TTL.
func DefaultPatterns() map[string]Pattern {
	return map[string]Pattern{
		"catalog":          {TTL: 6 * time.Hour, Tags: []string{"catalog"}},
		"resource-archive": {TTL: 24 * time.Hour, Tags: []string{"content"}, Compress: true},
		"resource-file":    {TTL: 12 * time.Hour, Tags: []string{"content"}, Compress: true},
		"metadata":         {TTL: 30 * time.Minute, Tags: []string{"catalog"}},
	}
}

// defaultPattern applies to content classes absent from the table.
var defaultPattern = Pattern{TTL: 5 * time.Minute}

// compressThreshold is the minimum payload size worth gzipping.
const compressThreshold = 1024

// Storage flag prepended to every stored entry.
const (
	flagRaw  byte = 0x00
	flagGzip byte = 0x01
)

// tagIndexPrefix namespaces the per-tag key lists stored alongside the
// entries. Persisting the index in the tiers lets any instance sharing them
// invalidate entries another instance stored.
const tagIndexPrefix = "tag-index:"

func tagIndexKey(tag string) string { return tagIndexPrefix + tag }

// SmartCache is the policy layer over an ordered list of tiers.
type SmartCache struct {
	tiers    []Tier
	patterns map[string]Pattern
	adaptive AdaptiveConfig
	tracker  *AccessTracker
	logger   *slog.Logger
	metrics  *metric.Metrics

	tagMu    sync.Mutex
	tagIndex map[string]map[string]struct{} // tag -> keys
}

// Option configures a SmartCache
type Option func(*SmartCache)

// WithPatterns replaces the content-class policy table
func WithPatterns(patterns map[string]Pattern) Option {
	return func(s *SmartCache) {
		s.patterns = patterns
	}
}

// WithAdaptiveConfig sets the TTL adaptation bounds
func WithAdaptiveConfig(cfg AdaptiveConfig) Option {
	return func(s *SmartCache) {
		s.adaptive = cfg
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *SmartCache) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables hit/miss and invalidation metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(s *SmartCache) {
		s.metrics = m
	}
}

// New creates a SmartCache over tiers, ordered fastest first.
func New(tiers []Tier, opts ...Option) (*SmartCache, error) {
	if len(tiers) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "SmartCache", "New", "at least one tier required")
	}

	s := &SmartCache{
		tiers:    tiers,
		patterns: DefaultPatterns(),
		adaptive: DefaultAdaptiveConfig(),
		tracker:  NewAccessTracker(),
		logger:   slog.Default(),
		tagIndex: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Key derives the cache key for a content class and parameter set. Parameter
// order never affects the key.
func Key(class string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonical strings.Builder
	for i, name := range names {
		if i > 0 {
			canonical.WriteByte('&')
		}
		canonical.WriteString(name)
		canonical.WriteByte('=')
		canonical.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(canonical.String()))
	return class + ":" + hex.EncodeToString(sum[:])
}

func (s *SmartCache) pattern(class string) Pattern {
	if p, ok := s.patterns[class]; ok {
		return p
	}
	return defaultPattern
}

// Get looks key up through the tiers in order. A hit in a lower tier is
// promoted into the tiers above it.
func (s *SmartCache) Get(ctx context.Context, class string, params map[string]string) ([]byte, bool) {
	key := Key(class, params)
	s.tracker.Record(key)

	for i, tier := range s.tiers {
		stored, ok := tier.Get(ctx, key)
		if !ok {
			continue
		}

		value, err := decode(stored)
		if err != nil {
			s.logger.Warn("cache entry unreadable, purging",
				"tier", tier.Name(), "class", class, "error", err)
			_ = tier.Delete(ctx, key)
			continue
		}

		if i > 0 {
			s.promote(ctx, key, class, stored, s.tiers[:i])
		}

		if s.metrics != nil {
			s.metrics.RecordCacheRequest(class, "hit")
		}
		return value, true
	}

	if s.metrics != nil {
		s.metrics.RecordCacheRequest(class, "miss")
	}
	return nil, false
}

// Set stores value in every tier under the class's pattern, with the TTL
// adapted to the key's observed access frequency. Tier write failures are
// logged and swallowed.
func (s *SmartCache) Set(ctx context.Context, class string, params map[string]string, value []byte) error {
	key := Key(class, params)
	pattern := s.pattern(class)
	ttl := s.adaptTTL(key, pattern.TTL)

	stored, err := encode(value, pattern.Compress)
	if err != nil {
		return errors.WrapInvalid(err, "SmartCache", "Set", "encode entry")
	}

	for _, tier := range s.tiers {
		if setErr := tier.Set(ctx, key, stored, ttl); setErr != nil {
			s.logger.Warn("cache tier write failed",
				"tier", tier.Name(), "class", class, "error", setErr)
		}
	}

	s.registerTags(ctx, key, pattern.Tags)
	return nil
}

// GetOrLoad returns the cached value for the class/params pair, or calls
// loader and caches its result. Concurrent misses may each invoke loader;
// the operation is idempotent so duplicate work is accepted over locking.
func (s *SmartCache) GetOrLoad(ctx context.Context, class string, params map[string]string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if value, ok := s.Get(ctx, class, params); ok {
		return value, nil
	}

	value, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	if setErr := s.Set(ctx, class, params, value); setErr != nil {
		s.logger.Warn("caching loaded value failed", "class", class, "error", setErr)
	}
	return value, nil
}

// InvalidateByTag removes every entry registered under tag from all tiers
// and returns the number of entries removed. The in-process index is merged
// with the index entries the tiers hold, so entries stored by another
// instance over the same tiers are removed too.
func (s *SmartCache) InvalidateByTag(ctx context.Context, tag string) int {
	s.tagMu.Lock()
	keys := s.tagIndex[tag]
	delete(s.tagIndex, tag)
	s.tagMu.Unlock()

	if keys == nil {
		keys = make(map[string]struct{})
	}
	for _, tier := range s.tiers {
		for key := range s.loadTagIndex(ctx, tier, tag) {
			keys[key] = struct{}{}
		}
	}

	count := 0
	for key := range keys {
		for _, tier := range s.tiers {
			if err := tier.Delete(ctx, key); err != nil {
				s.logger.Warn("cache tier delete failed",
					"tier", tier.Name(), "tag", tag, "error", err)
			}
		}
		s.tracker.Forget(key)
		count++
	}

	for _, tier := range s.tiers {
		if err := tier.Delete(ctx, tagIndexKey(tag)); err != nil {
			s.logger.Warn("tag index delete failed",
				"tier", tier.Name(), "tag", tag, "error", err)
		}
	}

	if s.metrics != nil && count > 0 {
		s.metrics.RecordCacheInvalidation(tag, count)
	}
	s.logger.Info("cache invalidated by tag", "tag", tag, "entries", count)
	return count
}

// adaptTTL adjusts the pattern TTL to the key's access frequency: hot keys
// get double, cold keys get half. The result is clamped to
// [MinTTL, MaxTTL] whichever branch produced it, so a pattern TTL outside
// the bounds cannot escape them.
func (s *SmartCache) adaptTTL(key string, base time.Duration) time.Duration {
	ttl := base
	if stats, ok := s.tracker.Stats(key); ok && stats.Count >= 2 && stats.AverageInterval > 0 {
		switch {
		case stats.AverageInterval < s.adaptive.HotAccessInterval:
			ttl = base * 2
		case stats.AverageInterval > s.adaptive.ColdAccessInterval:
			ttl = base / 2
		}
	}

	if ttl > s.adaptive.MaxTTL {
		ttl = s.adaptive.MaxTTL
	}
	if ttl < s.adaptive.MinTTL {
		ttl = s.adaptive.MinTTL
	}
	return ttl
}

func (s *SmartCache) promote(ctx context.Context, key, class string, stored []byte, upper []Tier) {
	ttl := s.adaptTTL(key, s.pattern(class).TTL)
	for _, tier := range upper {
		if err := tier.Set(ctx, key, stored, ttl); err != nil {
			s.logger.Debug("cache promotion failed",
				"tier", tier.Name(), "class", class, "error", err)
		}
	}
}

func (s *SmartCache) registerTags(ctx context.Context, key string, tags []string) {
	if len(tags) == 0 {
		return
	}
	s.tagMu.Lock()
	for _, tag := range tags {
		keys, ok := s.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}
	s.tagMu.Unlock()

	for _, tag := range tags {
		s.persistTagIndex(ctx, tag, key)
	}
}

// persistTagIndex merges key into the tag's index entry in every tier.
// Read-modify-write without coordination can lose a concurrent membership
// update; invalidation is best-effort across instances, like the cache
// itself.
func (s *SmartCache) persistTagIndex(ctx context.Context, tag, key string) {
	idxKey := tagIndexKey(tag)
	for _, tier := range s.tiers {
		keys := s.loadTagIndex(ctx, tier, tag)
		keys[key] = struct{}{}

		members := make([]string, 0, len(keys))
		for k := range keys {
			members = append(members, k)
		}
		sort.Strings(members)

		data, err := json.Marshal(members)
		if err != nil {
			continue
		}
		if err := tier.Set(ctx, idxKey, data, s.adaptive.MaxTTL); err != nil {
			s.logger.Debug("tag index write failed",
				"tier", tier.Name(), "tag", tag, "error", err)
		}
	}
}

// loadTagIndex reads one tier's index entry for tag. Missing or unreadable
// entries read as empty.
func (s *SmartCache) loadTagIndex(ctx context.Context, tier Tier, tag string) map[string]struct{} {
	keys := make(map[string]struct{})
	data, ok := tier.Get(ctx, tagIndexKey(tag))
	if !ok {
		return keys
	}

	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return keys
	}
	for _, k := range members {
		keys[k] = struct{}{}
	}
	return keys
}

// encode prepends the storage flag and gzips payloads above the threshold
// when the pattern allows it.
func encode(value []byte, compress bool) ([]byte, error) {
	if !compress || len(value) <= compressThreshold {
		return append([]byte{flagRaw}, value...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(flagGzip)
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(value); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode reverses encode.
func decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, errors.New("empty cache entry")
	}

	flag, payload := stored[0], stored[1:]
	switch flag {
	case flagRaw:
		return payload, nil
	case flagGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, errors.New("unknown cache entry flag")
	}
}
