package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Duration wraps time.Duration so config files can write "30s" or "6h"
// while env overrides and JSON numbers (nanoseconds) also work.
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON renders the duration as a string ("2s", "6h0m0s")
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(value))
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
	return nil
}

// Config represents the complete service configuration
type Config struct {
	Platform PlatformConfig `json:"platform"`
	NATS     NATSConfig     `json:"nats"`
	Origin   OriginConfig   `json:"origin"`
	Cache    CacheConfig    `json:"cache"`
	Pipeline PipelineConfig `json:"pipeline"`
	Diag     DiagConfig     `json:"diag"`
}

// PlatformConfig defines service identity
type PlatformConfig struct {
	ID          string `json:"id"`                    // Service instance identifier (e.g., "helpsd-1")
	Environment string `json:"environment,omitempty"` // "prod", "dev", "test"
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string `json:"urls,omitempty"`
	MaxReconnects int      `json:"max_reconnects,omitempty"`
	ReconnectWait Duration `json:"reconnect_wait,omitempty"`
	Username      string   `json:"username,omitempty"`
	Password      string   `json:"password,omitempty"`
	Token         string   `json:"token,omitempty"`
}

// OriginConfig defines the upstream content platform connection
type OriginConfig struct {
	BaseURL        string        `json:"base_url"`
	RequestTimeout Duration      `json:"request_timeout,omitempty"`
	RateLimit      float64       `json:"rate_limit,omitempty"` // requests per second
	RateBurst      int           `json:"rate_burst,omitempty"`
	SearchLimit    int           `json:"search_limit,omitempty"` // max catalog results per query
	Breaker        BreakerConfig `json:"breaker,omitempty"`
}

// BreakerConfig defines circuit breaker thresholds for an upstream
type BreakerConfig struct {
	FailureThreshold int      `json:"failure_threshold,omitempty"`
	ResetTimeout     Duration `json:"reset_timeout,omitempty"`
}

// CacheConfig defines the tiered cache layout
type CacheConfig struct {
	Bucket          string   `json:"bucket,omitempty"`           // NATS KV bucket backing the shared tier
	MemoryTTL       Duration `json:"memory_ttl,omitempty"`       // default TTL for the in-process tier
	CleanupInterval Duration `json:"cleanup_interval,omitempty"` // in-process expiry sweep interval
}

// PipelineConfig defines the extraction pipeline wiring
type PipelineConfig struct {
	ObjectBucket string   `json:"object_bucket,omitempty"` // object-store bucket for content
	Stream       string   `json:"stream,omitempty"`        // storage event stream
	Subject      string   `json:"subject,omitempty"`       // storage event subject
	Consumer     string   `json:"consumer,omitempty"`      // durable consumer name
	BatchSize    int      `json:"batch_size,omitempty"`
	MaxWait      Duration `json:"max_wait,omitempty"`
	Concurrency  int      `json:"concurrency,omitempty"` // per-worker intra-batch concurrency
}

// DiagConfig defines the diagnostic HTTP endpoint
type DiagConfig struct {
	Addr string `json:"addr,omitempty"`
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Masked returns a deep copy with credentials replaced, safe to expose on
// diagnostic endpoints and in logs.
func (c *Config) Masked() *Config {
	masked := c.Clone()
	if masked.NATS.Password != "" {
		masked.NATS.Password = "[REDACTED]"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "[REDACTED]"
	}
	return masked
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Platform.ID == "" {
		return errors.New("platform.id is required")
	}

	if len(c.NATS.URLs) == 0 {
		return errors.New("nats.urls is required")
	}

	if c.Origin.BaseURL == "" {
		return errors.New("origin.base_url is required")
	}
	parsed, err := url.Parse(c.Origin.BaseURL)
	if err != nil {
		return fmt.Errorf("origin.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("origin.base_url must be http or https, got %q", parsed.Scheme)
	}
	if c.Origin.RateLimit < 0 {
		return errors.New("origin.rate_limit cannot be negative")
	}

	if c.Pipeline.BatchSize < 0 {
		return errors.New("pipeline.batch_size cannot be negative")
	}
	if c.Pipeline.Concurrency < 0 {
		return errors.New("pipeline.concurrency cannot be negative")
	}

	return nil
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "THC",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := l.getDefaults()

	// Load each layer and merge using map-based approach
	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns default configuration
func (l *Loader) getDefaults() *Config {
	return &Config{
		Platform: PlatformConfig{
			Environment: "dev",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		Origin: OriginConfig{
			BaseURL:        "https://git.door43.org",
			RequestTimeout: Duration(30 * time.Second),
			RateLimit:      10,
			RateBurst:      20,
			SearchLimit:    100,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     Duration(30 * time.Second),
			},
		},
		Cache: CacheConfig{
			Bucket:          "helps-cache",
			MemoryTTL:       Duration(5 * time.Minute),
			CleanupInterval: Duration(time.Minute),
		},
		Pipeline: PipelineConfig{
			ObjectBucket: "helps-content",
			Stream:       "STORAGE_EVENTS",
			Subject:      "storage.events",
			Consumer:     "helpsd-pipeline",
			BatchSize:    32,
			MaxWait:      Duration(5 * time.Second),
			Concurrency:  4,
		},
		Diag: DiagConfig{
			Addr: ":8080",
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	// Use secure file reading with validation
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	// Validate JSON depth to prevent DoS
	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	// Marshal the base config to JSON then to map
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	// Deep merge the maps
	mergedMap := l.deepMergeMaps(baseMap, override)

	// Convert back to Config
	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := l.env("PLATFORM_ID"); val != "" {
		cfg.Platform.ID = val
	}
	if val := l.env("ENVIRONMENT"); val != "" {
		cfg.Platform.Environment = val
	}

	if val := l.env("NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val := l.env("NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := l.env("NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := l.env("NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}

	if val := l.env("ORIGIN_BASE_URL"); val != "" {
		cfg.Origin.BaseURL = val
	}

	if val := l.env("CACHE_BUCKET"); val != "" {
		cfg.Cache.Bucket = val
	}
	if val := l.env("PIPELINE_OBJECT_BUCKET"); val != "" {
		cfg.Pipeline.ObjectBucket = val
	}

	if val := l.env("DIAG_ADDR"); val != "" {
		cfg.Diag.Addr = val
	}
}

// env reads one prefixed environment variable, dropping values that fail
// basic validation.
func (l *Loader) env(name string) string {
	key := l.envPrefix + "_" + name
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return ""
	}
	return val
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Use secure file writing with validation
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config with credentials masked
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Masked(), "", "  ")
	return string(data)
}
