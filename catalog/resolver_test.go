package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/smartcache"
)

func newTestCache(t *testing.T) *smartcache.SmartCache {
	t.Helper()
	tier, err := smartcache.NewMemoryTier(context.Background(), time.Minute, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { tier.Close() })

	sc, err := smartcache.New([]smartcache.Tier{tier})
	require.NoError(t, err)
	return sc
}

func TestResolveCachesOriginCall(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Write([]byte(sampleSearchBody))
	}))
	defer srv.Close()

	client, err := NewOriginClient(srv.URL)
	require.NoError(t, err)
	resolver, err := NewResolver(newTestCache(t), client, nil)
	require.NoError(t, err)

	ctx := context.Background()
	locator := ResourceLocator{Language: "en", Organization: "unfoldingWord", ResourceType: "ult", BookID: "gen"}

	first, err := resolver.Resolve(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, "en_ult", first.RepoName)
	assert.Equal(t, "v86", first.Release)
	require.Len(t, first.Ingredients, 2)

	// Same locator again, and with a different book: one origin call total.
	second, err := resolver.Resolve(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	locator.BookID = "exo"
	_, err = resolver.Resolve(ctx, locator)
	require.NoError(t, err)

	assert.Equal(t, int32(1), requests.Load())
}

func TestResolveDistinctResourceTypes(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Write([]byte(sampleSearchBody))
	}))
	defer srv.Close()

	client, err := NewOriginClient(srv.URL)
	require.NoError(t, err)
	resolver, err := NewResolver(newTestCache(t), client, nil)
	require.NoError(t, err)

	ctx := context.Background()

	ult, err := resolver.Resolve(ctx, ResourceLocator{Language: "en", Organization: "unfoldingWord", ResourceType: "ult"})
	require.NoError(t, err)
	tn, err := resolver.Resolve(ctx, ResourceLocator{Language: "en", Organization: "unfoldingWord", ResourceType: "tn"})
	require.NoError(t, err)

	assert.Equal(t, "en_ult", ult.RepoName)
	assert.Equal(t, "en_tn", tn.RepoName)
	assert.Equal(t, int32(2), requests.Load(), "different resource types cache separately")
}

func TestResolveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok": true, "data": []}`))
	}))
	defer srv.Close()

	client, err := NewOriginClient(srv.URL)
	require.NoError(t, err)
	resolver, err := NewResolver(newTestCache(t), client, nil)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), ResourceLocator{
		Language: "xx", Organization: "nobody", ResourceType: "ult",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResourceNotFound)
	assert.True(t, errors.IsInvalid(err), "not-found is never retried")

	repo, ok := errors.DetailFrom(err, "repo")
	require.True(t, ok)
	assert.Equal(t, "xx_ult", repo)
}

func TestResolveNotFoundIsNotCached(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			w.Write([]byte(`{"ok": true, "data": []}`))
			return
		}
		w.Write([]byte(sampleSearchBody))
	}))
	defer srv.Close()

	client, err := NewOriginClient(srv.URL)
	require.NoError(t, err)
	resolver, err := NewResolver(newTestCache(t), client, nil)
	require.NoError(t, err)

	ctx := context.Background()
	locator := ResourceLocator{Language: "en", Organization: "unfoldingWord", ResourceType: "ult"}

	_, err = resolver.Resolve(ctx, locator)
	require.Error(t, err)

	// Resource appears upstream later; a fresh resolve must see it.
	entry, err := resolver.Resolve(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, "en_ult", entry.RepoName)
}

func TestResolveIncompleteLocator(t *testing.T) {
	client, err := NewOriginClient("http://localhost:1")
	require.NoError(t, err)
	resolver, err := NewResolver(newTestCache(t), client, nil)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), ResourceLocator{Language: "en"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResourceNotFound)
}

func TestNewResolverValidation(t *testing.T) {
	_, err := NewResolver(nil, nil, nil)
	assert.Error(t, err)
}
