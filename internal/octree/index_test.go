package octree

import (
	"context"
	"errors"
	"testing"

	"github.com/ecopia-map/potree_streamer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, ds *testutil.Dataset) (*Index, error) {
	t.Helper()
	b, err := ds.Fetch(context.Background(), ds.URL("cloud.js"))
	require.NoError(t, err)
	m, err := ParseManifest(b)
	if err != nil {
		return nil, err
	}
	src := HierarchyFetcherFunc(func(ctx context.Context, p string) ([]byte, error) {
		return ds.Fetch(ctx, ds.URL(p))
	})
	return NewIndex(context.Background(), m, src)
}

func TestNewIndexChunked(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{StepSize: 2, Min: [3]float64{1000, 2000, 10}, Max: [3]float64{1100, 2100, 110}})
	ds.AddNode("", 100)
	ds.AddNode("0", 50)
	ds.AddNode("7", 60)
	ds.AddNode("03", 10)
	ds.AddNode("035", 5)
	ds.Build()

	idx, err := buildIndex(t, ds)
	require.NoError(t, err)

	// r035 lives in the chunk of r03
	assert.Equal(t, 4, idx.Len())
	root := idx.Root()
	assert.Equal(t, 100, root.NumPoints())
	assert.Equal(t, "r", root.Key())
	assert.Equal(t, -1, root.Octant())
	assert.True(t, root.IsRoot())
	assert.Equal(t, uint8(0b10000001), root.ChildMask())
	assert.Equal(t, 1000.0, idx.Offset().X)
	assert.Equal(t, 0.0, idx.BoundingBox().Xmin)
	assert.Equal(t, 100.0, idx.BoundingBox().Xmax)

	n, ok := idx.Resolve("03")
	require.True(t, ok)
	assert.Equal(t, 2, n.Level())
	assert.Equal(t, 3, n.Octant())
	assert.Equal(t, 10, n.NumPoints())
	assert.InDelta(t, 1.0, n.Spacing(), 1e-12)
	assert.True(t, n.IsLeaf())
	assert.True(t, n.HasChildren())
	assert.True(t, idx.NeedsHierarchy(n))
	assert.Equal(t, "data/r/03/r03.hrc", idx.HierarchyPath(n))
	assert.Equal(t, "data/r/03/r03.bin", idx.PayloadPath(n))
	assert.Equal(t, "data/r/r0.bin", idx.PayloadPath(idx.Root().Children()[0]))

	same, ok := idx.Resolve("r03")
	require.True(t, ok)
	assert.Same(t, n, same)
	assert.Same(t, n, idx.Node(n.ID()))
	assert.Nil(t, idx.Node(NodeID(1000)))

	_, ok = idx.Resolve("035")
	assert.False(t, ok)

	idx.Traverse(func(node *Node) bool {
		for _, c := range idx.Children(node) {
			if c != nil {
				assert.True(t, node.BoundingBox().ContainsBox(c.BoundingBox()))
				assert.Same(t, node, c.Parent())
			}
		}
		return true
	})
}

func TestAttachHierarchy(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{StepSize: 1})
	ds.AddNode("", 100)
	ds.AddNode("2", 50)
	ds.AddNode("24", 20)
	ds.AddNode("25", 20)
	ds.Build()

	idx, err := buildIndex(t, ds)
	require.NoError(t, err)
	n, ok := idx.Resolve("2")
	require.True(t, ok)
	require.True(t, idx.NeedsHierarchy(n))

	b, err := ds.Fetch(context.Background(), ds.URL(idx.HierarchyPath(n)))
	require.NoError(t, err)
	specs, err := ParseHierarchy(n.Name(), b, 1)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	require.NoError(t, idx.AttachHierarchy(n, specs))
	assert.False(t, idx.NeedsHierarchy(n))
	assert.Equal(t, 4, idx.Len())

	c, ok := idx.Resolve("25")
	require.True(t, ok)
	assert.Same(t, n, c.Parent())
	assert.True(t, n.BoundingBox().ContainsBox(c.BoundingBox()))

	// attaching twice is harmless
	require.NoError(t, idx.AttachHierarchy(n, specs))
	assert.Equal(t, 4, idx.Len())
}

func TestAttachHierarchyMismatch(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{StepSize: 1})
	ds.AddNode("", 100)
	ds.AddNode("2", 50)
	ds.AddNode("24", 20)
	ds.Build()

	idx, err := buildIndex(t, ds)
	require.NoError(t, err)
	n, _ := idx.Resolve("2")

	err = idx.AttachHierarchy(n, []NodeSpec{{Name: "2", ChildMask: 0b1}, {Name: "20", NumPoints: 3}})
	var branchErr *BranchError
	require.ErrorAs(t, err, &branchErr)
	assert.Equal(t, "2", branchErr.Node)
	assert.Equal(t, 2, idx.Len())

	err = idx.AttachHierarchy(n, []NodeSpec{{Name: "2", ChildMask: 0b10000}, {Name: "30", NumPoints: 3}})
	require.ErrorAs(t, err, &branchErr)
	assert.Equal(t, 2, idx.Len())
}

func TestNewIndexLegacy(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{Version: "1.3"})
	ds.AddNode("", 10)
	ds.AddNode("1", 5)
	ds.AddNode("16", 2)
	ds.Build()

	idx, err := buildIndex(t, ds)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	n, ok := idx.Resolve("16")
	require.True(t, ok)
	assert.False(t, idx.NeedsHierarchy(n))
	assert.Equal(t, "data/r16", idx.PayloadPath(n))
	assert.Equal(t, uint8(0b10), idx.Root().ChildMask())
}

func TestNewIndexRootHierarchyFailure(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{})
	ds.AddNode("", 10)
	ds.Build()
	ds.Fail("data/r/r.hrc", errors.New("connection reset"))

	_, err := buildIndex(t, ds)
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "data/r/r.hrc", structural.URL)
	assert.Contains(t, err.Error(), "connection reset")

	ds.Fail("data/r/r.hrc", nil)
	ds.SetFile("data/r/r.hrc", []byte{1, 2, 3})
	_, err = buildIndex(t, ds)
	require.ErrorAs(t, err, &structural)
}

func TestDisposeIndex(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{})
	ds.AddNode("", 10)
	ds.AddNode("3", 10)
	ds.Build()
	idx, err := buildIndex(t, ds)
	require.NoError(t, err)

	idx.Dispose()
	assert.True(t, idx.Disposed())
	idx.Traverse(func(n *Node) bool {
		assert.True(t, n.Disposed())
		return true
	})
}

func TestNodeState(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{})
	ds.AddNode("", 10)
	ds.Build()
	idx, err := buildIndex(t, ds)
	require.NoError(t, err)
	n := idx.Root()

	n.MarkLoading()
	assert.True(t, n.IsLoading())
	n.MarkLoaded()
	assert.True(t, n.IsLoaded())
	assert.False(t, n.IsLoading())
	n.MarkUnloaded()
	assert.False(t, n.IsLoaded())
	n.MarkFailed()
	assert.True(t, n.IsFailed())
	n.ResetFailed()
	assert.False(t, n.IsFailed())
	assert.Equal(t, 10*(12+4+2+1), n.ByteSize())
}
