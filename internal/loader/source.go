package loader

import (
	"context"

	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Where the files of one dataset are read from
type Source struct {
	Fetcher  Fetcher
	Resolver URLResolver
	// Chosen from the payload format of the index when nil
	Decoder Decoder
}

func NewSource(fetcher Fetcher, resolver URLResolver) *Source {
	return &Source{Fetcher: fetcher, Resolver: resolver}
}

var _ octree.HierarchyFetcher = (*Source)(nil)

func (s *Source) FetchHierarchy(ctx context.Context, path string) ([]byte, error) {
	_, b, err := s.Fetch(ctx, path)
	return b, err
}

// Reads a file given its path relative to the manifest, returning the resolved URL as well
func (s *Source) Fetch(ctx context.Context, path string) (string, []byte, error) {
	url, err := s.Resolver(path)
	if err != nil {
		return path, nil, err
	}
	b, err := s.Fetcher.Fetch(ctx, url)
	return url, b, err
}

func (s *Source) decoder(idx *octree.Index) Decoder {
	if s.Decoder != nil {
		return s.Decoder
	}
	return DecoderFor(idx)
}
