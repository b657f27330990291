package loader

import (
	"context"
	"testing"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newSource(ds *testutil.Dataset) *Source {
	return NewSource(FetcherFunc(ds.Fetch), ds.Resolve)
}

func openIndex(t *testing.T, ds *testutil.Dataset) (*octree.Index, *Source) {
	t.Helper()
	src := newSource(ds)
	_, b, err := src.Fetch(context.Background(), "cloud.js")
	require.NoError(t, err)
	m, err := octree.ParseManifest(b)
	require.NoError(t, err)
	idx, err := octree.NewIndex(context.Background(), m, src)
	require.NoError(t, err)
	return idx, src
}

func mustResolve(t *testing.T, idx *octree.Index, name string) *octree.Node {
	t.Helper()
	n, ok := idx.Resolve(name)
	require.True(t, ok, "node %q not indexed", name)
	return n
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
