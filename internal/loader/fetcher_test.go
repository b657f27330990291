package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeResolver(t *testing.T) {
	u, err := RelativeResolver("https://example.com/clouds/lion/cloud.js")("data/r/r.hrc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/clouds/lion/data/r/r.hrc", u)

	u, err = RelativeResolver("s3://bucket/lion/cloud.js")("data/r/r0.bin")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/lion/data/r/r0.bin", u)

	u, err = RelativeResolver(filepath.Join("tmp", "lion", "cloud.js"))("data/r/r.hrc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("tmp", "lion", "data", "r", "r.hrc"), u)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)
	f.Header = http.Header{"X-Test": []string{"yes"}}

	b, err := f.Fetch(context.Background(), srv.URL+"/cloud.js")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cloud.js")
	require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))

	b, err := FileFetcher{}.Fetch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	b, err = FileFetcher{}.Fetch(context.Background(), "file://"+filepath.ToSlash(p))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	_, err = FileFetcher{}.Fetch(context.Background(), filepath.Join(dir, "nope"))
	assert.Error(t, err)
}
