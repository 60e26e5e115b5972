// Package breaker provides a circuit breaker for calls to external services.
//
// A Breaker tracks consecutive failures against a named dependency and moves
// through three states:
//
//	Closed -> Open        after FailureThreshold consecutive failures
//	Open -> HalfOpen      once ResetTimeout has elapsed (exactly one probe)
//	HalfOpen -> Closed    when the probe succeeds (failure count reset)
//	HalfOpen -> Open      when the probe fails (timer restarted)
//
// While Open, Execute fails fast with errors.ErrCircuitOpen without invoking
// the wrapped function. Successes while Closed decrement the failure count
// (floored at zero) so isolated blips heal without a full reset.
//
// State transitions are compare-and-set on an atomic state word, so two
// concurrent callers cannot both claim the half-open probe. Failure counting
// is a best-effort atomic increment; the threshold is a heuristic, not a
// correctness boundary.
//
// One Breaker is held per named external dependency so failures in one (the
// origin catalog API) do not trip another (the archive-fetch path). Registry
// hands out per-name instances.
//
//	b := breaker.New("origin-api", breaker.WithFailureThreshold(5))
//	err := b.Execute(ctx, func(ctx context.Context) error {
//	    return client.Search(ctx, q)
//	})
package breaker
