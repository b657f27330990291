package source_manager

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	miniofetch "github.com/ecopia-map/potree_streamer/pkg/fetch/minio"
	s3fetch "github.com/ecopia-map/potree_streamer/pkg/fetch/s3"
	"github.com/golang/glog"
)

type SourceManager interface {
	loader.Fetcher
	GetFetcher(ctx context.Context, url string) (loader.Fetcher, error)
	GetResolver(url string) loader.URLResolver
}

// Picks the transport from the URL scheme: http(s), s3, minio, file or a plain path.
// Object store clients are created on first use.
type StdSourceManager struct {
	remote *config.RemoteOptions
	http   *loader.HTTPFetcher
	file   loader.FileFetcher

	mu    sync.Mutex
	s3    loader.Fetcher
	minio loader.Fetcher
}

func NewSourceManager(opts *config.CommandOptions) SourceManager {
	remote := opts.Remote
	if remote == nil {
		remote = &config.RemoteOptions{}
	}
	timeout := config.DefaultOptions().FetchTimeout
	if opts.Stream != nil {
		timeout = opts.Stream.FetchTimeout
	}
	return &StdSourceManager{
		remote: remote,
		http:   loader.NewHTTPFetcher(timeout),
	}
}

// Registers a fetcher for a scheme instead of building one from the remote options
func (m *StdSourceManager) SetFetcher(scheme string, f loader.Fetcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch scheme {
	case "s3":
		m.s3 = f
	case "minio":
		m.minio = f
	}
}

func scheme(raw string) string {
	u, err := url.Parse(raw)
	// single letter schemes are windows drives
	if err != nil || len(u.Scheme) <= 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

func (m *StdSourceManager) GetFetcher(ctx context.Context, raw string) (loader.Fetcher, error) {
	switch s := scheme(raw); s {
	case "http", "https":
		return m.http, nil
	case "", "file":
		return m.file, nil
	case "s3":
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.s3 == nil {
			f, err := s3fetch.NewFetcherFromEnv(ctx, m.remote.S3Region)
			if err != nil {
				return nil, err
			}
			glog.V(1).Infof("created s3 client, region %q", m.remote.S3Region)
			m.s3 = f
		}
		return m.s3, nil
	case "minio":
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.minio == nil {
			if m.remote.MinioEndpoint == "" {
				return nil, fmt.Errorf("%s: no minio endpoint configured", raw)
			}
			f, err := miniofetch.New(m.remote.MinioEndpoint, m.remote.MinioAccessKey, m.remote.MinioSecretKey, m.remote.MinioSecure)
			if err != nil {
				return nil, err
			}
			glog.V(1).Infof("created minio client for %s", m.remote.MinioEndpoint)
			m.minio = f
		}
		return m.minio, nil
	default:
		return nil, fmt.Errorf("%s: unsupported scheme %q", raw, s)
	}
}

func (m *StdSourceManager) GetResolver(url string) loader.URLResolver {
	return loader.RelativeResolver(url)
}

// Dispatches each fetch on the scheme of its URL
func (m *StdSourceManager) Fetch(ctx context.Context, url string) ([]byte, error) {
	f, err := m.GetFetcher(ctx, url)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, url)
}
