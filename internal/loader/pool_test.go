package loader

import (
	"errors"
	"testing"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/metrics"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallDataset() *testutil.Dataset {
	ds := testutil.NewDataset(testutil.DatasetOptions{StepSize: 2})
	ds.AddNode("", 100)
	ds.AddNode("0", 40)
	ds.AddNode("1", 30)
	ds.AddNode("00", 10)
	ds.AddNode("004", 5)
	ds.Build()
	return ds
}

func TestPoolLoadsNode(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	reg := prometheus.NewRegistry()
	p := NewPool(WithWorkers(2), WithMetrics(metrics.New(reg)))
	defer p.Close()

	root := idx.Root()
	f, err := p.Submit(root, src)
	require.NoError(t, err)
	assert.True(t, root.IsLoading())

	buf, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 100, buf.NumPoints)
	assert.Equal(t, 0, p.InFlight())

	done, more := p.Drain(-1)
	assert.False(t, more)
	require.Len(t, done, 1)
	assert.Same(t, root, done[0].Node)
	assert.Same(t, buf, done[0].Buffer)
	assert.Nil(t, done[0].Hierarchy)
	assert.NoError(t, done[0].Err)
}

func TestPoolInFlight(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(4))
	defer p.Close()

	release := ds.Block(idx.PayloadPath(idx.Root()))
	f, err := p.Submit(idx.Root(), src)
	require.NoError(t, err)
	_, err = p.Submit(mustResolve(t, idx, "0"), src)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return p.Pending() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, p.InFlight())
	assert.False(t, f.Ready())

	release()
	_, err = f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 0, p.InFlight())
	assert.Equal(t, 2, p.Pending())
}

func TestPoolQueueFull(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1), WithQueueSize(1))
	defer p.Close()

	rootPath := idx.PayloadPath(idx.Root())
	release := ds.Block(rootPath)
	defer release()

	_, err := p.Submit(idx.Root(), src)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ds.Requests(rootPath) == 1 }, 5*time.Second, time.Millisecond)

	_, err = p.Submit(mustResolve(t, idx, "0"), src)
	require.NoError(t, err)

	n1 := mustResolve(t, idx, "1")
	_, err = p.Submit(n1, src)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.False(t, n1.IsLoading())
	assert.Equal(t, 2, p.InFlight())
}

func TestPoolTransportFailure(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1))
	defer p.Close()

	node := mustResolve(t, idx, "1")
	ds.Fail(idx.PayloadPath(node), errors.New("connection reset"))

	f, err := p.Submit(node, src)
	require.NoError(t, err)
	_, err = f.Wait(waitCtx(t))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, KindTransport, loadErr.Kind)
	assert.Equal(t, "1", loadErr.Node)
	assert.Contains(t, loadErr.URL, "r1.bin")

	done, _ := p.Drain(0)
	require.Len(t, done, 1)
	assert.Same(t, err, done[0].Err)
}

func TestPoolParseFailure(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1))
	defer p.Close()

	node := mustResolve(t, idx, "0")
	ds.SetFile(idx.PayloadPath(node), []byte{1, 2, 3})

	f, err := p.Submit(node, src)
	require.NoError(t, err)
	_, err = f.Wait(waitCtx(t))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, KindParse, loadErr.Kind)
}

func TestPoolDiscardsDisposedNode(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1))
	defer p.Close()

	node := mustResolve(t, idx, "0")
	release := ds.Block(idx.PayloadPath(node))
	f, err := p.Submit(node, src)
	require.NoError(t, err)

	idx.Dispose()
	release()

	_, err = f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrNodeDisposed)
	done, more := p.Drain(-1)
	assert.Empty(t, done)
	assert.False(t, more)
	assert.Equal(t, 0, p.InFlight())
}

func TestPoolFetchesSubHierarchy(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1))
	defer p.Close()

	node := mustResolve(t, idx, "00")
	require.True(t, idx.NeedsHierarchy(node))

	f, err := p.Submit(node, src)
	require.NoError(t, err)
	_, err = f.Wait(waitCtx(t))
	require.NoError(t, err)

	done, _ := p.Drain(-1)
	require.Len(t, done, 1)
	require.Len(t, done[0].Hierarchy, 2)
	assert.Equal(t, "00", done[0].Hierarchy[0].Name)
	assert.Equal(t, octree.NodeSpec{Name: "004", NumPoints: 5}, done[0].Hierarchy[1])
	assert.Equal(t, 1, ds.Requests(idx.HierarchyPath(node)))
}

func TestPoolBrokenSubHierarchy(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1))
	defer p.Close()

	node := mustResolve(t, idx, "00")
	ds.SetFile(idx.HierarchyPath(node), []byte{1, 2})

	f, err := p.Submit(node, src)
	require.NoError(t, err)
	_, err = f.Wait(waitCtx(t))

	var branchErr *octree.BranchError
	require.ErrorAs(t, err, &branchErr)
	assert.Equal(t, "00", branchErr.Node)
	// the payload is not read when the branch is broken
	assert.Equal(t, 0, ds.Requests(idx.PayloadPath(node)))
}

func TestPoolDrainLimit(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(2))
	defer p.Close()

	failing := mustResolve(t, idx, "1")
	ds.Fail(idx.PayloadPath(failing), errors.New("gone"))

	var futures []*Future[*data.PointBuffer]
	for _, n := range []*octree.Node{idx.Root(), mustResolve(t, idx, "0"), failing} {
		f, err := p.Submit(n, src)
		require.NoError(t, err)
		futures = append(futures, f)
	}
	for _, f := range futures {
		_, _ = f.Wait(waitCtx(t))
	}

	done, more := p.Drain(1)
	assert.True(t, more)
	require.Len(t, done, 2)
	failures := 0
	for _, c := range done {
		if c.Err != nil {
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	done, more = p.Drain(1)
	assert.False(t, more)
	assert.Len(t, done, 1)
}

func TestPoolClosed(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1))
	p.Close()
	p.Close()

	_, err := p.Submit(idx.Root(), src)
	assert.ErrorIs(t, err, ErrLoaderClosed)
	assert.False(t, idx.Root().IsLoading())
}

func TestPoolRateLimit(t *testing.T) {
	ds := smallDataset()
	idx, src := openIndex(t, ds)
	p := NewPool(WithWorkers(1), WithRateLimit(1<<20), WithFetchTimeout(time.Second))
	defer p.Close()

	f, err := p.Submit(idx.Root(), src)
	require.NoError(t, err)
	buf, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 100, buf.NumPoints)
}
