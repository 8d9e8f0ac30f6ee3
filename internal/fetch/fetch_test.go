package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func gzipped(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

// mirror serves gzipped files keyed by request path and counts requests.
func mirror(t *testing.T, files map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(gzipped(t, content))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestFetcher_URL(t *testing.T) {
	f := NewFetcher("http://example.org/TSPLIB95/", t.TempDir(), 1, zap.NewNop())

	tests := []struct {
		name string
		want string
	}{
		{"a280.tsp", "http://example.org/TSPLIB95/tsp/a280.tsp.gz"},
		{"a280.opt.tour", "http://example.org/TSPLIB95/tsp/a280.opt.tour.gz"},
		{"br17.atsp.gz", "http://example.org/TSPLIB95/atsp/br17.atsp.gz"},
		{"ESC07.sop", "http://example.org/TSPLIB95/sop/ESC07.sop.gz"},
	}
	for _, tt := range tests {
		got, err := f.URL(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := f.URL("readme.txt")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestFetcher_Fetch(t *testing.T) {
	server, hits := mirror(t, map[string]string{
		"/tsp/a280.tsp.gz":   "NAME: a280\n",
		"/atsp/br17.atsp.gz": "NAME: br17\n",
		"/vrp/E-n13.vrp.gz":  "NAME: E-n13\n",
	})
	cacheDir := filepath.Join(t.TempDir(), "cache")
	f := NewFetcher(server.URL, cacheDir, 3, zap.NewNop())

	results := f.Fetch(context.Background(), []string{"a280.tsp", "br17.atsp", "E-n13.vrp", "missing.tsp", "x.doc"})
	require.Len(t, results, 5)

	for i, want := range []string{"NAME: a280\n", "NAME: br17\n", "NAME: E-n13\n"} {
		require.NoError(t, results[i].Err)
		assert.False(t, results[i].Cached)
		data, err := os.ReadFile(results[i].Path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
	require.Error(t, results[3].Err)
	assert.Contains(t, results[3].Err.Error(), "HTTP 404")
	require.ErrorIs(t, results[4].Err, ErrUnknownKind)
	assert.Equal(t, int32(4), atomic.LoadInt32(hits))

	// No temp files survive, successful or not.
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFetcher_Cache(t *testing.T) {
	server, hits := mirror(t, map[string]string{"/tsp/a280.tsp.gz": "fresh"})
	cacheDir := t.TempDir()
	f := NewFetcher(server.URL, cacheDir, 1, zap.NewNop())

	cached := filepath.Join(cacheDir, "a280.tsp")
	require.NoError(t, os.WriteFile(cached, []byte("cached"), 0644))

	results := f.Fetch(context.Background(), []string{"a280.tsp"})
	require.NoError(t, results[0].Err)
	assert.True(t, results[0].Cached)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))

	// Past the TTL the file is downloaded again.
	old := time.Now().Add(-2 * DefaultTTL)
	require.NoError(t, os.Chtimes(cached, old, old))

	results = f.Fetch(context.Background(), []string{"a280.tsp"})
	require.NoError(t, results[0].Err)
	assert.False(t, results[0].Cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	data, err := os.ReadFile(cached)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestFetcher_NotGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	f := NewFetcher(server.URL, cacheDir, 1, zap.NewNop())
	results := f.Fetch(context.Background(), []string{"a280.tsp"})
	require.Error(t, results[0].Err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetcher_Cancelled(t *testing.T) {
	server, _ := mirror(t, map[string]string{"/tsp/a280.tsp.gz": "x"})
	f := NewFetcher(server.URL, t.TempDir(), 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := f.Fetch(ctx, []string{"a280.tsp"})
	require.ErrorIs(t, results[0].Err, context.Canceled)
}
