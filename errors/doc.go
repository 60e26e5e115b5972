// Package errors provides standardized error handling for translation-helps-core.
//
// # Overview
//
// Errors are classified into three classes: Transient (temporary, retryable),
// Invalid (bad input or a definitive catalog fact, non-retryable), and Fatal
// (unrecoverable, stop processing). Classification lets callers make retry and
// degradation decisions without string matching.
//
// The package also defines the content-supply error taxonomy:
//
//   - ErrResourceNotFound: catalog or ingredient absent. A fact about the
//     content catalog, never retried.
//   - ErrUpstreamUnavailable: circuit open or origin timeout. Retryable by the
//     caller's own policy, not internally.
//   - ErrExtractionFailed: archive entry missing or unparseable. Carries the
//     offending path via detail context.
//   - ErrIndexWriteFailed: index write rejected; the queue message stays
//     unacknowledged for redelivery.
//   - ErrCircuitOpen: a circuit breaker rejected the call fast.
//
// Cache-tier failures are deliberately absent from the taxonomy: caching is an
// optimization, and tier errors are swallowed as misses by the cache layer.
//
// # Wrapping
//
// All wrapping follows the format "component.method: action failed: %w":
//
//	errors.WrapTransient(err, "Fetcher", "fetchArchive", "origin request")
//	errors.WrapInvalid(err, "Resolver", "Resolve", "catalog lookup")
//
// The generic Wrap preserves the original error's classification. Classified
// errors support errors.Is, errors.As and Unwrap, and may carry a structured
// detail map for diagnostics (for example the archive path that failed to
// extract):
//
//	err := errors.WrapInvalid(errors.ErrExtractionFailed, "Unzip", "extract", "entry read")
//	err = errors.WithDetail(err, "path", entry.Name)
package errors
