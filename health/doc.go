// Package health provides thread-safe health tracking and aggregation for
// the platform's subsystems.
//
// The package supports three health states:
//   - Healthy: subsystem operating normally
//   - Degraded: subsystem operating with reduced functionality
//   - Unhealthy: subsystem not functioning
//
// The three-state model matters here because the platform is built to keep
// answering from cache when its origin is down: an open circuit breaker is
// degraded, not unhealthy, and the /healthz endpoint keeps returning 200.
//
// # Core Components
//
// Status: one subsystem's health containing status level, message,
// timestamp, optional metrics, and hierarchical sub-statuses.
//
// Monitor: thread-safe tracking of multiple subsystem statuses with
// worst-case aggregation (any unhealthy → unhealthy; any degraded with no
// unhealthy → degraded; else healthy).
//
// Converters: FromConnection maps the NATS client's connection status,
// FromBreaker maps a circuit breaker snapshot, and FromError wraps an error
// with automatic message sanitization.
//
// # Usage
//
//	monitor := health.NewMonitor()
//	monitor.Update("nats", health.FromConnection("nats", client.GetStatus()))
//	monitor.Update("breaker:origin-api", health.FromBreaker(originBreaker.Snapshot()))
//
//	system := monitor.AggregateHealth("helpsd")
//	if system.IsUnhealthy() {
//	    // fail the readiness check
//	}
//
// # Security
//
// Error messages passed through FromError are sanitized before exposure:
// URLs, file paths, IP addresses, ports, and credential-shaped substrings
// are replaced with placeholder tokens. This prevents accidental exposure of
// sensitive data on health endpoints and dashboards.
//
// Status is a value type; WithMetrics and WithSubStatus return copies rather
// than mutating, so statuses can be shared across goroutines freely once
// published to the Monitor.
package health
