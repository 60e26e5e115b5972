// Package service provides the diagnostic HTTP surface for the platform.
//
// The server is deliberately not part of the content path. It exposes:
//
//   - GET /healthz — aggregated subsystem health as JSON. Unhealthy answers
//     503; degraded answers 200 because the platform keeps serving cached
//     content when its origin is down.
//   - GET /diag/config — the running configuration with credentials masked.
//   - POST /diag/reindex — synchronously re-lists stored extracted files
//     and re-submits them to the index worker. Deterministic document IDs
//     make this an idempotent upsert walk.
//   - GET /metrics — Prometheus metrics, when a registry is wired in.
//
// Health comes from a health.Monitor the daemon updates with NATS
// connection status and circuit breaker snapshots; the server only reads
// and aggregates.
package service
