// Package retry provides exponential backoff retry logic with jitter.
//
// Do runs a function until it succeeds, the attempt budget is exhausted, or
// the context is cancelled. Errors wrapped with NonRetryable fail immediately,
// which lets callers short-circuit on definitive failures (a missing catalog
// resource) while retrying transient ones (an index write timeout).
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return idx.Upsert(ctx, doc)
//	})
package retry
