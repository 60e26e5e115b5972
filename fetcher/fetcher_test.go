package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klappy/translation-helps-core/catalog"
	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/extract"
	"github.com/klappy/translation-helps-core/pkg/breaker"
	"github.com/klappy/translation-helps-core/smartcache"
)

const genesisUSFM = `\id GEN
\c 1
\p
\v 1 In the beginning God created the heavens and the earth.
\c 2
\p
\v 3 God blessed the seventh day.
\v 4 These are the generations.
\v 5 No plant of the field was yet.
\v 6 A mist went up.
`

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newFetcherCache(t *testing.T) *smartcache.SmartCache {
	t.Helper()
	tier, err := smartcache.NewMemoryTier(context.Background(), time.Hour, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { tier.Close() })
	sc, err := smartcache.New([]smartcache.Tier{tier})
	require.NoError(t, err)
	return sc
}

var testEntry = &catalog.CatalogEntry{
	Owner:    "unfoldingWord",
	RepoName: "en_ult",
	Release:  "v86",
	Ingredients: []catalog.Ingredient{
		{Identifier: "gen", Path: "./01-GEN.usfm"},
		{Identifier: "exo", Path: "./02-EXO.usfm"},
	},
}

var testLocator = catalog.ResourceLocator{
	Language: "en", Organization: "unfoldingWord", ResourceType: "ult", BookID: "gen",
}

func TestFetchContentLadder(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"en_ult/01-GEN.usfm": genesisUSFM,
		"en_ult/02-EXO.usfm": "\\id EXO\n\\c 1\n\\v 1 Exodus text.\n",
	})

	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		assert.Equal(t, "/unfoldingWord/en_ult/archive/v86.zip", r.URL.Path)
		w.Write(archive)
	}))
	defer srv.Close()

	f, err := New(srv.URL, newFetcherCache(t))
	require.NoError(t, err)

	ctx := context.Background()
	content, err := f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[0], Options{
		Range: extract.VerseRange{Chapter: 2, Start: 3, End: 5},
	})
	require.NoError(t, err)

	require.Equal(t, extract.KindScripture, content.Kind)
	assert.Contains(t, content.Scripture.USFM, "God blessed the seventh day")
	assert.Contains(t, content.Scripture.USFM, "generations")
	assert.NotContains(t, content.Scripture.USFM, "mist went up")
	assert.NotEmpty(t, content.Scripture.Clean)

	// Repeat fetch and a different book: still one archive download.
	_, err = f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[0], Options{})
	require.NoError(t, err)
	_, err = f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[1], Options{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), downloads.Load())
}

func TestFetchContentFileRungCached(t *testing.T) {
	archive := buildArchive(t, map[string]string{"en_ult/01-GEN.usfm": genesisUSFM})

	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads.Add(1)
		w.Write(archive)
	}))
	defer srv.Close()

	cache := newFetcherCache(t)
	f, err := New(srv.URL, cache)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[0], Options{})
	require.NoError(t, err)
	require.Equal(t, int32(1), downloads.Load())

	// Drop the archive from the cache; the file rung alone must serve.
	cache.InvalidateByTag(ctx, "content")
	fileParams := map[string]string{
		"owner": "unfoldingWord", "repo": "en_ult", "release": "v86", "path": "01-GEN.usfm",
	}
	_, cached := cache.Get(ctx, "resource-file", fileParams)
	assert.False(t, cached, "invalidation removed the file entry too")

	_, err = f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[0], Options{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), downloads.Load())
}

func TestFetchContentMissingEntry(t *testing.T) {
	archive := buildArchive(t, map[string]string{"en_ult/01-GEN.usfm": genesisUSFM})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	f, err := New(srv.URL, newFetcherCache(t))
	require.NoError(t, err)

	missing := &catalog.Ingredient{Identifier: "lev", Path: "./03-LEV.usfm"}
	_, err = f.FetchContent(context.Background(), testLocator, testEntry, missing, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExtractionFailed)
	assert.True(t, errors.IsInvalid(err))

	path, ok := errors.DetailFrom(err, "path")
	require.True(t, ok)
	assert.Equal(t, "03-LEV.usfm", path)
}

func TestFetchContentOriginDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, err := New(srv.URL, newFetcherCache(t))
	require.NoError(t, err)

	_, err = f.FetchContent(context.Background(), testLocator, testEntry, &testEntry.Ingredients[0], Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
	assert.True(t, errors.IsTransient(err))
}

func TestFetchContentBreakerOpenFailsFast(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := breaker.New("archive-fetch",
		breaker.WithFailureThreshold(2),
		breaker.WithResetTimeout(time.Hour),
	)
	f, err := New(srv.URL, newFetcherCache(t), WithBreaker(b))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err = f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[0], Options{})
		require.Error(t, err)
	}
	require.Equal(t, int32(2), requests.Load())

	_, err = f.FetchContent(ctx, testLocator, testEntry, &testEntry.Ingredients[0], Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), requests.Load(), "open breaker sends no origin traffic")
}

func TestFetchContentCorruptArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("this is not a zip"))
	}))
	defer srv.Close()

	f, err := New(srv.URL, newFetcherCache(t))
	require.NoError(t, err)

	_, err = f.FetchContent(context.Background(), testLocator, testEntry, &testEntry.Ingredients[0], Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExtractionFailed)
}

func TestFileFromArchiveExactPathMatch(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"01-GEN.usfm":        "flat layout",
		"repo/01-GEN.usfm":   "nested layout",
		"repo/sub/deep.usfm": "deep",
	})

	data, err := fileFromArchive(archive, "./01-GEN.usfm")
	require.NoError(t, err)
	assert.Equal(t, "flat layout", string(data))

	data, err = fileFromArchive(archive, "sub/deep.usfm")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestNewValidation(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}
