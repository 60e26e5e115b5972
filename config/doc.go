// Package config provides layered configuration loading for the content
// platform service.
//
// Configuration comes from three sources, later sources winning:
//
//  1. Built-in defaults (a working local setup: localhost NATS, the public
//     Door43 origin, standard bucket names)
//  2. JSON file layers added with Loader.AddLayer, deep-merged so a file
//     only needs the fields it changes
//  3. THC_-prefixed environment variables for deployment-specific values
//     (THC_PLATFORM_ID, THC_NATS_URLS, THC_NATS_PASSWORD,
//     THC_ORIGIN_BASE_URL, THC_DIAG_ADDR, ...)
//
// Loading a config:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Durations in config files are strings ("30s", "6h"); the Duration type
// also accepts raw nanoseconds for round-tripping.
//
// SafeConfig wraps a Config for concurrent access: Get returns a deep copy
// and Update validates before swapping. Masked returns a copy with
// credentials redacted, which is what the diagnostic config endpoint and
// String() expose.
//
// File access is guarded: config paths must be JSON, must not traverse
// outside the working directory, and files are size- and depth-limited
// before parsing.
package config
