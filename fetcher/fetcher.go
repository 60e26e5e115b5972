package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/klappy/translation-helps-core/catalog"
	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/extract"
	"github.com/klappy/translation-helps-core/metric"
	"github.com/klappy/translation-helps-core/pkg/breaker"
	"github.com/klappy/translation-helps-core/smartcache"
)

// Content classes for the two cached rungs.
const (
	archiveClass = "resource-archive"
	fileClass    = "resource-file"
)

// Options selects what FetchContent extracts.
type Options struct {
	Range     extract.VerseRange
	SkipClean bool
}

// Fetcher implements the ladder content fetch.
type Fetcher struct {
	baseURL    string
	cache      *smartcache.SmartCache
	httpClient *http.Client
	breaker    *breaker.Breaker
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		if hc != nil {
			f.httpClient = hc
		}
	}
}

// WithBreaker sets the circuit breaker guarding archive downloads
func WithBreaker(b *breaker.Breaker) Option {
	return func(f *Fetcher) {
		f.breaker = b
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics enables fetch metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// New creates a Fetcher downloading archives from the origin at baseURL.
func New(baseURL string, cache *smartcache.SmartCache, opts ...Option) (*Fetcher, error) {
	if baseURL == "" || cache == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Fetcher", "New", "base URL and cache required")
	}

	f := &Fetcher{
		baseURL:    baseURL,
		cache:      cache,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		breaker:    breaker.New("archive-fetch"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FetchContent climbs the ladder for one ingredient: archive bytes, file
// bytes, parsed content. The first two rungs are cached; repeated fetches
// for files of the same resource cost zero origin calls while the archive
// entry lives.
func (f *Fetcher) FetchContent(ctx context.Context, locator catalog.ResourceLocator, entry *catalog.CatalogEntry, ingredient *catalog.Ingredient, opts Options) (*extract.Content, error) {
	if entry == nil || ingredient == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Fetcher", "FetchContent", "entry and ingredient required")
	}

	file, err := f.fetchFile(ctx, entry, ingredient)
	if err != nil {
		f.recordFetch(locator.ResourceType, "error")
		return nil, err
	}

	start := time.Now()
	content, err := extract.Parse(locator.ResourceType, file, extract.Options{
		Range:     opts.Range,
		SkipClean: opts.SkipClean,
	})
	f.recordDuration("parse", time.Since(start))
	if err != nil {
		f.recordFetch(locator.ResourceType, "error")
		return nil, err
	}

	f.recordFetch(locator.ResourceType, "ok")
	return content, nil
}

// fetchFile runs the file rung over the archive rung.
func (f *Fetcher) fetchFile(ctx context.Context, entry *catalog.CatalogEntry, ingredient *catalog.Ingredient) ([]byte, error) {
	params := map[string]string{
		"owner":   entry.Owner,
		"repo":    entry.RepoName,
		"release": entry.Release,
		"path":    normalizePath(ingredient.Path),
	}

	return f.cache.GetOrLoad(ctx, fileClass, params, func(ctx context.Context) ([]byte, error) {
		archive, err := f.fetchArchive(ctx, entry)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		file, err := fileFromArchive(archive, ingredient.Path)
		f.recordDuration("file", time.Since(start))
		return file, err
	})
}

// fetchArchive runs the archive rung.
func (f *Fetcher) fetchArchive(ctx context.Context, entry *catalog.CatalogEntry) ([]byte, error) {
	params := map[string]string{
		"owner":   entry.Owner,
		"repo":    entry.RepoName,
		"release": entry.Release,
	}

	return f.cache.GetOrLoad(ctx, archiveClass, params, func(ctx context.Context) ([]byte, error) {
		start := time.Now()
		defer func() { f.recordDuration("archive", time.Since(start)) }()

		var archive []byte
		err := f.breaker.Execute(ctx, func(ctx context.Context) error {
			var dlErr error
			archive, dlErr = f.download(ctx, entry)
			return dlErr
		})
		if err != nil {
			if errors.Is(err, errors.ErrCircuitOpen) {
				// Fail fast; nothing upstream will answer right now.
				return nil, errors.WrapTransient(
					fmt.Errorf("archive fetch circuit open: %w", errors.ErrUpstreamUnavailable),
					"Fetcher", "fetchArchive", "origin unavailable")
			}
			return nil, err
		}
		return archive, nil
	})
}

func (f *Fetcher) download(ctx context.Context, entry *catalog.CatalogEntry) ([]byte, error) {
	archiveURL := fmt.Sprintf("%s/%s/%s/archive/%s.zip", f.baseURL, entry.Owner, entry.RepoName, entry.Release)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Fetcher", "download", "build request")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.recordOrigin("archive", "error")
		return nil, errors.WrapTransient(err, "Fetcher", "download", "origin request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.recordOrigin("archive", strconv.Itoa(resp.StatusCode))
		err := fmt.Errorf("origin returned status %d: %w", resp.StatusCode, errors.ErrUpstreamUnavailable)
		return nil, errors.WrapTransient(err, "Fetcher", "download", "download archive")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.recordOrigin("archive", "error")
		return nil, errors.WrapTransient(err, "Fetcher", "download", "read archive body")
	}

	f.recordOrigin("archive", "200")
	f.logger.Debug("archive downloaded", "repo", entry.RepoName, "release", entry.Release, "bytes", len(data))
	return data, nil
}

func (f *Fetcher) recordFetch(resourceType, status string) {
	if f.metrics != nil {
		f.metrics.RecordFetch(resourceType, status)
	}
}

func (f *Fetcher) recordDuration(rung string, d time.Duration) {
	if f.metrics != nil {
		f.metrics.RecordFetchDuration(rung, d)
	}
}

func (f *Fetcher) recordOrigin(endpoint, status string) {
	if f.metrics != nil {
		f.metrics.RecordOriginRequest(endpoint, status)
	}
}
