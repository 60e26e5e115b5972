package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/smartcache"
)

// cacheClass is the smart-cache content class for resolved catalog entries.
const cacheClass = "catalog"

// Resolver turns resource locators into catalog entries, caching resolutions
// so repeated requests for the same resource cost one origin call.
type Resolver struct {
	cache  *smartcache.SmartCache
	client *OriginClient
	logger *slog.Logger
}

// NewResolver creates a Resolver over the given cache and origin client.
func NewResolver(cache *smartcache.SmartCache, client *OriginClient, logger *slog.Logger) (*Resolver, error) {
	if cache == nil || client == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Resolver", "NewResolver", "cache and client required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cache: cache, client: client, logger: logger}, nil
}

// Resolve maps a locator to its catalog entry. Identical locators resolve
// identically while the cache entry lives; the book ID does not participate
// in the cache key since one entry covers all books of a resource.
func (r *Resolver) Resolve(ctx context.Context, locator ResourceLocator) (*CatalogEntry, error) {
	if locator.Language == "" || locator.Organization == "" || locator.ResourceType == "" {
		return nil, errors.WrapInvalid(errors.ErrResourceNotFound, "Resolver", "Resolve", "incomplete locator")
	}

	params := map[string]string{
		"language":      strings.ToLower(locator.Language),
		"organization":  locator.Organization,
		"resource_type": strings.ToLower(locator.ResourceType),
	}

	data, err := r.cache.GetOrLoad(ctx, cacheClass, params, func(ctx context.Context) ([]byte, error) {
		entry, loadErr := r.resolveFromOrigin(ctx, locator)
		if loadErr != nil {
			return nil, loadErr
		}
		return json.Marshal(entry)
	})
	if err != nil {
		return nil, err
	}

	var entry CatalogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Wrap(err, "Resolver", "Resolve", "decode cached entry")
	}
	return &entry, nil
}

func (r *Resolver) resolveFromOrigin(ctx context.Context, locator ResourceLocator) (*CatalogEntry, error) {
	entries, err := r.client.Search(ctx, locator.Language, locator.Organization)
	if err != nil {
		return nil, err
	}

	want := locator.RepoName()
	for i := range entries {
		if strings.EqualFold(entries[i].RepoName, want) {
			r.logger.Debug("catalog resolved",
				"repo", entries[i].RepoName, "owner", entries[i].Owner, "release", entries[i].Release)
			return &entries[i], nil
		}
	}

	notFound := errors.WrapInvalid(errors.ErrResourceNotFound, "Resolver", "resolveFromOrigin", "no catalog match")
	return nil, errors.WithDetail(notFound, "repo", want)
}
