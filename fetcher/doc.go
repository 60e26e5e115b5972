// Package fetcher climbs the content ladder: archive, file, parse.
//
// A fetch resolves to a repository archive (cached long-term), locates the
// ingredient file inside the zip (the extracted bytes cached separately),
// and parses the file into structured content (never cached; parsing is
// cheap and deterministic).
//
// Archive downloads go through the "archive-fetch" circuit breaker. When
// the breaker is open the fetch fails fast with
// errors.ErrUpstreamUnavailable instead of waiting on a dead origin —
// cached archives keep serving throughout.
package fetcher
