package glossary_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *glossary.Loader {
	t.Helper()
	loader, err := glossary.NewLoader(nil, 4, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return loader
}

func TestLoader_FromURLCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "English,Korean\nPotion,물약\nGuild,길드\n")
	}))
	defer srv.Close()

	loader := newTestLoader(t)
	ctx := context.Background()

	g, err := loader.FromURL(ctx, srv.URL, "English")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, "Glossary loaded: 2 entries.", glossary.Describe(g))

	again, err := loader.FromURL(ctx, srv.URL, "english ")
	require.NoError(t, err)
	assert.Same(t, g, again)
	assert.Equal(t, int32(1), hits.Load())

	_, err = loader.FromURL(ctx, srv.URL, "Korean")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "different source language is a separate entry")
}

func TestLoader_FromURLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	loader := newTestLoader(t)

	_, err := loader.FromURL(context.Background(), srv.URL, "English")
	assert.ErrorContains(t, err, "unexpected status 404")

	_, err = loader.FromURL(context.Background(), "file:///etc/passwd", "English")
	assert.ErrorIs(t, err, glossary.ErrInvalidGlossary)
}

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.csv")
	require.NoError(t, os.WriteFile(path, []byte("English,Japanese\nPotion,ポーション\n"), 0o600))

	loader := newTestLoader(t)

	g, err := loader.Load(context.Background(), path, "http://unused.invalid", "English")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	_, err = loader.Load(context.Background(), "", "", "English")
	assert.ErrorIs(t, err, glossary.ErrNoSource)

	_, err = loader.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "", "English")
	assert.Error(t, err)
}

func TestNewLoader_NilLogger(t *testing.T) {
	_, err := glossary.NewLoader(nil, 1, time.Minute, nil)
	assert.Error(t, err)
}

// flakySource serves a glossary on the first request and 404 afterwards.
func flakySource(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "English,Korean\nPotion,물약\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoader_RefreshBypassesCache(t *testing.T) {
	var hits atomic.Int32
	srv := flakySource(t, &hits)
	loader := newTestLoader(t)
	ctx := context.Background()

	g, err := loader.FromURL(ctx, srv.URL, "English")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	_, err = loader.Refresh(ctx, srv.URL, "English")
	assert.ErrorContains(t, err, "unexpected status 404")
	assert.Equal(t, int32(2), hits.Load())

	_, err = loader.FromURL(ctx, srv.URL, "English")
	assert.Error(t, err, "a failed refresh drops the cached copy")
	assert.Equal(t, int32(3), hits.Load())
}

func TestLoader_CachedEntriesExpire(t *testing.T) {
	var hits atomic.Int32
	srv := flakySource(t, &hits)

	loader, err := glossary.NewLoader(nil, 4, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = loader.FromURL(ctx, srv.URL, "English")
	require.NoError(t, err)

	_, err = loader.FromURL(ctx, srv.URL, "English")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	time.Sleep(150 * time.Millisecond)

	_, err = loader.FromURL(ctx, srv.URL, "English")
	assert.Error(t, err, "an expired entry is fetched again")
	assert.Equal(t, int32(2), hits.Load())
}
