// Package index is the search-index adapter for extracted content.
//
// The pipeline writes Documents through the Index interface and never sees
// the engine behind it. Document IDs are deterministic — resource type plus
// path — so re-indexing the same file is an idempotent upsert, which is what
// lets the pipeline run at-least-once.
//
// MemoryIndex is the built-in implementation: an inverted token index with
// substring fallback, sufficient for single-instance deployments and tests.
// A hosted search engine would be wired in by implementing Index.
package index
