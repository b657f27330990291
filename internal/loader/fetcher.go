package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Transport used to read manifests, hierarchy chunks and payloads
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// Maps a path relative to the dataset manifest to a URL the fetcher understands
type URLResolver func(relative string) (string, error)

// Resolves paths against the directory of the manifest URL. Works for http(s), s3 and file URLs as well
// as plain file paths.
func RelativeResolver(manifestURL string) URLResolver {
	u, err := url.Parse(manifestURL)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, single letter schemes are windows drives
		dir := filepath.Dir(manifestURL)
		return func(relative string) (string, error) {
			return filepath.Join(dir, filepath.FromSlash(relative)), nil
		}
	}
	return func(relative string) (string, error) {
		r := *u
		r.Path = path.Join(path.Dir(u.Path), relative)
		r.RawPath = ""
		return r.String(), nil
	}
}

type HTTPFetcher struct {
	Client *http.Client
	Header http.Header
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, values := range f.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Reads files from the local file system, accepting file:// URLs and plain paths
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := u
	if strings.HasPrefix(u, "file://") {
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		p = filepath.FromSlash(parsed.Path)
	}
	return os.ReadFile(p)
}
