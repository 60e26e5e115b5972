package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/time/rate"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/metric"
	"github.com/klappy/translation-helps-core/pkg/breaker"
)

// searchResponseSchema validates the shape of a catalog-search response
// before any field is trusted. The origin occasionally serves error pages
// and truncated bodies under a 200 status.
const searchResponseSchema = `{
	"type": "object",
	"required": ["ok", "data"],
	"properties": {
		"ok": {"type": "boolean"},
		"data": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "owner"],
				"properties": {
					"name": {"type": "string"},
					"owner": {"type": "string"},
					"default_branch": {"type": "string"},
					"release": {
						"type": "object",
						"properties": {
							"tag_name": {"type": "string"}
						}
					},
					"ingredients": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["identifier", "path"],
							"properties": {
								"identifier": {"type": "string"},
								"path": {"type": "string"},
								"title": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

// searchResponse mirrors the origin catalog-search payload.
type searchResponse struct {
	OK   bool          `json:"ok"`
	Data []searchEntry `json:"data"`
}

type searchEntry struct {
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	DefaultBranch string `json:"default_branch"`
	Release       struct {
		TagName string `json:"tag_name"`
	} `json:"release"`
	Ingredients []Ingredient `json:"ingredients"`
}

// releaseRef picks the archive ref for an entry: the tagged release when one
// exists, else the default branch. Empty means the repo has nothing
// fetchable.
func (e searchEntry) releaseRef() string {
	if e.Release.TagName != "" {
		return e.Release.TagName
	}
	return e.DefaultBranch
}

// OriginClient calls the origin catalog API. Every request passes the rate
// limiter first and then the "origin-api" circuit breaker.
type OriginClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker.Breaker
	schema     *gojsonschema.Schema
	searchMax  int
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// ClientOption configures an OriginClient
type ClientOption func(*OriginClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *OriginClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit sets the sustained request rate and burst toward the origin
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *OriginClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker sets the circuit breaker guarding origin calls
func WithBreaker(b *breaker.Breaker) ClientOption {
	return func(c *OriginClient) {
		c.breaker = b
	}
}

// WithSearchLimit caps the number of entries requested per search
func WithSearchLimit(limit int) ClientOption {
	return func(c *OriginClient) {
		if limit > 0 {
			c.searchMax = limit
		}
	}
}

// WithClientLogger sets the structured logger
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *OriginClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientMetrics enables origin request metrics
func WithClientMetrics(m *metric.Metrics) ClientOption {
	return func(c *OriginClient) {
		c.metrics = m
	}
}

// NewOriginClient creates a client for the catalog API at baseURL.
func NewOriginClient(baseURL string, opts ...ClientOption) (*OriginClient, error) {
	if baseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "OriginClient", "NewOriginClient", "base URL required")
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(searchResponseSchema))
	if err != nil {
		return nil, errors.WrapFatal(err, "OriginClient", "NewOriginClient", "compile response schema")
	}

	c := &OriginClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		breaker:    breaker.New("origin-api"),
		schema:     schema,
		searchMax:  100,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search queries the catalog for production-stage resource-container
// repositories owned by owner in the given language.
func (c *OriginClient) Search(ctx context.Context, language, owner string) ([]CatalogEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapTransient(err, "OriginClient", "Search", "rate limiter wait")
	}

	var entries []CatalogEntry
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		entries, callErr = c.search(ctx, language, owner)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *OriginClient) search(ctx context.Context, language, owner string) ([]CatalogEntry, error) {
	query := url.Values{}
	query.Set("lang", language)
	query.Set("owner", owner)
	query.Set("stage", "prod")
	query.Set("metadataType", "rc")
	query.Set("limit", strconv.Itoa(c.searchMax))

	searchURL := c.baseURL + "/catalog/search?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "OriginClient", "search", "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest("catalog_search", "error")
		return nil, errors.WrapTransient(err, "OriginClient", "search", "origin request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordRequest("catalog_search", strconv.Itoa(resp.StatusCode))
		err := fmt.Errorf("origin returned status %d: %w", resp.StatusCode, errors.ErrUpstreamUnavailable)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, errors.WrapInvalid(err, "OriginClient", "search", "origin rejected request")
		}
		return nil, errors.WrapTransient(err, "OriginClient", "search", "origin unavailable")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordRequest("catalog_search", "error")
		return nil, errors.WrapTransient(err, "OriginClient", "search", "read response body")
	}

	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil || !result.Valid() {
		c.recordRequest("catalog_search", "invalid")
		if err == nil {
			err = fmt.Errorf("%d schema violations: %w", len(result.Errors()), errors.ErrInvalidData)
		}
		return nil, errors.WrapTransient(err, "OriginClient", "search", "validate response")
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.recordRequest("catalog_search", "invalid")
		return nil, errors.WrapTransient(err, "OriginClient", "search", "decode response")
	}

	c.recordRequest("catalog_search", "200")

	entries := make([]CatalogEntry, 0, len(parsed.Data))
	for _, entry := range parsed.Data {
		ref := entry.releaseRef()
		if ref == "" {
			// No tagged release and no default branch: nothing to
			// build an archive URL from.
			c.logger.Warn("catalog entry has no fetchable ref, skipping",
				"repo", entry.Name, "owner", entry.Owner)
			continue
		}
		entries = append(entries, CatalogEntry{
			Owner:       entry.Owner,
			RepoName:    entry.Name,
			ResourceID:  entry.Name,
			Release:     ref,
			Ingredients: entry.Ingredients,
		})
	}
	return entries, nil
}

func (c *OriginClient) recordRequest(endpoint, status string) {
	if c.metrics != nil {
		c.metrics.RecordOriginRequest(endpoint, status)
	}
}
