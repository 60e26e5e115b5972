// Package translationhelps is the content-supply core for Bible translation
// helps: it resolves which resources exist for a language, fetches their
// content from a Door43-compatible catalog origin, and keeps an always-warm
// search index over the extracted files.
//
// # Architecture
//
// The module is organized around three flows that share a tiered cache and a
// NATS JetStream backbone:
//
// Resolution (catalog): given a language and resource subject, the Resolver
// asks the origin catalog which resources exist, normalizes the answer, and
// caches it. The OriginClient wraps the upstream HTTP API with rate limiting
// and a circuit breaker so a slow or failing origin degrades to cached
// answers instead of cascading.
//
// Content (fetcher, smartcache): the Fetcher pulls release archives from the
// origin and serves individual ingredient files out of them. Every read goes
// through the SmartCache, a memory-over-KV tier stack with access-pattern
// driven TTLs, so repeat reads never touch the network.
//
// Indexing (storage, pipeline, index): archives and extracted files live in a
// JetStream object store. Every Put publishes a notification to a work-queue
// stream; the pipeline Runner consumes it in batches and the Router
// dispatches each key by kind. Archives go to the UnzipWorker, which extracts
// indexable entries back into the store under the resource's "/files/"
// prefix. Extracted files go to the IndexWorker, which upserts them into the
// search index under deterministic document IDs, making redelivery and
// reindexing idempotent.
//
// # Supporting packages
//
//   - config: layered JSON configuration with THC_ environment overrides
//   - errors: transient/invalid/fatal error classification used for retry
//     and ack decisions throughout
//   - extract: format-aware content extraction for USFM, TSV and Markdown
//   - health: three-state health model behind the diagnostic endpoints
//   - metric: Prometheus metrics on an isolated registry
//   - natsclient: managed NATS connection with JetStream provisioning
//   - pkg/breaker, pkg/cache, pkg/retry, pkg/worker: shared primitives
//   - service: diagnostic HTTP server (healthz, config, reindex, metrics)
//
// The cmd/helpsd daemon wires all of this together; embedders can instead
// construct the pieces they need directly.
package translationhelps
