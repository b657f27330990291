// Package scheduler runs the per frame visibility pass: it picks the octree nodes that best
// represent a set of point clouds under a point budget, issues loads for the missing ones and
// releases payloads that fell out of the budget.
//
// A Scheduler is not safe for concurrent use. Update never blocks on I/O.
package scheduler

import (
	"errors"
	"math"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/lru"
	"github.com/ecopia-map/potree_streamer/internal/metrics"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/golang/geo/r3"
	"github.com/golang/glog"
)

// One point cloud taking part in a pass
type Target struct {
	Index    *octree.Index
	Source   *loader.Source
	Position r3.Vector // world position of the local origin
	Options  *config.PointCloudOptions
}

type Scheduler struct {
	opts     *config.Options
	producer loader.Producer
	cache    *lru.Cache
	metrics  *metrics.Collector

	geometry map[*octree.Node]*data.PointBuffer
	previous []*octree.Node
}

func New(producer loader.Producer, opts *config.Options, m *metrics.Collector) *Scheduler {
	s := &Scheduler{
		opts:     opts.Copy(),
		producer: producer,
		metrics:  m,
		geometry: make(map[*octree.Node]*data.PointBuffer),
	}
	s.cache = lru.New(s.opts.PointBudget, s.release)
	return s
}

func (s *Scheduler) release(node *octree.Node) {
	delete(s.geometry, node)
}

// Payload attached to a loaded node
func (s *Scheduler) Geometry(node *octree.Node) (*data.PointBuffer, bool) {
	b, ok := s.geometry[node]
	return b, ok
}

func (s *Scheduler) Cache() *lru.Cache {
	return s.cache
}

func (s *Scheduler) PointBudget() int {
	return s.opts.PointBudget
}

// Takes effect on the next pass, nodes over the new budget are evicted at its end
func (s *Scheduler) SetPointBudget(n int) {
	s.opts.PointBudget = n
	s.cache.SetPointBudget(n)
}

func (s *Scheduler) MaxNumNodesLoading() int {
	return s.opts.MaxNumNodesLoading
}

func (s *Scheduler) SetMaxNumNodesLoading(n int) {
	s.opts.MaxNumNodesLoading = n
}

func (s *Scheduler) MaxLoadsToGPU() int {
	return s.opts.MaxLoadsToGPU
}

func (s *Scheduler) SetMaxLoadsToGPU(n int) {
	s.opts.MaxLoadsToGPU = n
}

// Releases every payload of idx and marks its nodes disposed so in flight loads are discarded
func (s *Scheduler) Dispose(idx *octree.Index) []*octree.Node {
	idx.Dispose()
	released := s.cache.DisposeSubtree(idx.Root())
	kept := s.previous[:0]
	for _, n := range s.previous {
		if n.Tree() != idx {
			kept = append(kept, n)
		}
	}
	s.previous = kept
	return released
}

// Makes failed nodes of idx eligible for loading again
func (s *Scheduler) ResetFailed(idx *octree.Index) int {
	count := 0
	idx.Traverse(func(n *octree.Node) bool {
		if n.IsFailed() {
			n.ResetFailed()
			count++
		}
		return true
	})
	return count
}

// Applies queued load completions, at most MaxLoadsToGPU successful ones. Reports whether some
// were left for a later pass.
func (s *Scheduler) applyCompletions(res *Result) bool {
	done, more := s.producer.Drain(s.opts.MaxLoadsToGPU)
	for _, c := range done {
		node := c.Node
		if node.Disposed() {
			node.MarkUnloaded()
			continue
		}
		if c.Err != nil {
			node.MarkFailed()
			res.NodeLoadFailed = true
			var branchErr *octree.BranchError
			if errors.As(c.Err, &branchErr) {
				glog.Warningf("excluding branch %s: %v", node.Key(), c.Err)
			}
			continue
		}
		if c.Hierarchy != nil {
			if err := node.Tree().AttachHierarchy(node, c.Hierarchy); err != nil {
				glog.Warningf("excluding branch %s: %v", node.Key(), err)
				node.MarkFailed()
				res.NodeLoadFailed = true
				continue
			}
		}
		node.MarkLoaded()
		if node.TightBoundingBox() == nil {
			node.SetTightBoundingBox(c.Buffer.TightBoundingBox)
		}
		s.geometry[node] = c.Buffer
		s.cache.Touch(node)
	}
	return more
}

type targetState struct {
	target  *Target
	frustum geometry.Frustum
	camera  r3.Vector // camera position in the local frame
	clips   []*geometry.BoundingBox
}

func (s *Scheduler) prepare(targets []*Target, camera *geometry.Camera) []*targetState {
	frustum := camera.Frustum()
	states := make([]*targetState, len(targets))
	for i, t := range targets {
		st := &targetState{
			target:  t,
			frustum: frustum.ToLocal(t.Position),
			camera:  camera.Position.Sub(t.Position),
		}
		if t.Options.Clipping() {
			for _, b := range t.Options.ClipBoxes {
				st.clips = append(st.clips, b.Translate(t.Position.Mul(-1)))
			}
		}
		states[i] = st
	}
	return states
}

func (st *targetState) clipped(node *octree.Node) bool {
	if len(st.clips) == 0 {
		return false
	}
	for _, b := range st.clips {
		if b.IntersectsBox(node.BoundingBox()) {
			return false
		}
	}
	return true
}

// Runs one visibility pass over targets. Targets whose index was disposed are ignored.
func (s *Scheduler) Update(targets []*Target, camera *geometry.Camera, viewport geometry.Viewport) *Result {
	start := time.Now()
	res := &Result{CloudPoints: make([]int, len(targets))}
	pending := s.applyCompletions(res)

	states := s.prepare(targets, camera)
	pq := &priorityQueue{}
	for i, st := range states {
		if st.target.Index.Disposed() {
			continue
		}
		pq.push(&queueItem{cloud: i, node: st.target.Index.Root(), weight: math.Inf(1)})
	}

	budget := s.opts.PointBudget
	for pq.Len() > 0 {
		item := pq.pop()
		node := item.node
		st := states[item.cloud]
		opts := st.target.Options

		if node.Level() > opts.MaxLevel {
			continue
		}
		if !st.frustum.IntersectsBox(node.BoundingBox()) {
			continue
		}
		if st.clipped(node) {
			continue
		}
		if node.IsFailed() {
			res.NodeLoadFailed = true
			continue
		}
		buf := s.geometry[node]
		if buf != nil && buf.AllClassesHidden(opts.HiddenClassifications) {
			continue
		}

		if res.NumVisiblePoints+node.NumPoints() > budget {
			break
		}
		res.NumVisiblePoints += node.NumPoints()
		res.CloudPoints[item.cloud] += node.NumPoints()

		if node.IsLoaded() {
			s.cache.Touch(node)
			res.VisibleNodes = append(res.VisibleNodes, VisibleNode{Cloud: item.cloud, Node: node, Buffer: buf, Weight: item.weight})
			s.pushChildren(pq, item, st, camera, viewport)
		} else if !node.IsLoading() {
			s.requestLoad(res, node, st.target.Source)
		}
	}

	res.ExceededMaxLoadsToGPU = pending || s.producer.Pending() > 0
	res.Evicted = s.cache.FreeMemory()
	s.diff(res)

	s.metrics.PassFinished(start, len(res.VisibleNodes), res.NumVisiblePoints, res.DeferredLoads, s.cache.NumPoints(), len(res.Evicted))
	glog.V(2).Infof("visibility pass: %d nodes, %d points, %d loading, %d deferred, %d evicted",
		len(res.VisibleNodes), res.NumVisiblePoints, len(res.NodeLoadFutures), res.DeferredLoads, len(res.Evicted))
	return res
}

func (s *Scheduler) requestLoad(res *Result, node *octree.Node, src *loader.Source) {
	if s.producer.InFlight() >= s.opts.MaxNumNodesLoading {
		res.DeferredLoads++
		return
	}
	f, err := s.producer.Submit(node, src)
	if err != nil {
		// a full queue or a closed loader both leave the node for a later pass
		glog.V(2).Infof("deferring load of %s: %v", node.Key(), err)
		res.DeferredLoads++
		return
	}
	res.NodeLoadFutures = append(res.NodeLoadFutures, f)
}

// Queues the children of a loaded node. Children projecting to fewer than MinNodePixelSize pixels
// are dropped with their subtree.
func (s *Scheduler) pushChildren(pq *priorityQueue, parent *queueItem, st *targetState, camera *geometry.Camera, viewport geometry.Viewport) {
	for _, child := range parent.node.Children() {
		if child == nil {
			continue
		}
		sphere := child.BoundingSphere()
		distance := sphere.Center.Sub(st.camera).Norm()
		screenRadius := sphere.Radius * camera.ProjectionFactor(distance, viewport)
		if screenRadius < st.target.Options.MinNodePixelSize {
			continue
		}

		weight := math.Inf(1)
		if distance >= sphere.Radius {
			weight = screenRadius + 1/distance
		}
		weight = math.Min(weight, parent.weight)
		pq.push(&queueItem{cloud: parent.cloud, node: child, parent: parent.node, weight: weight})
	}
}

func (s *Scheduler) diff(res *Result) {
	current := make(map[*octree.Node]bool, len(res.VisibleNodes))
	nodes := make([]*octree.Node, 0, len(res.VisibleNodes))
	for _, v := range res.VisibleNodes {
		current[v.Node] = true
		nodes = append(nodes, v.Node)
	}
	before := make(map[*octree.Node]bool, len(s.previous))
	for _, n := range s.previous {
		before[n] = true
		if !current[n] {
			res.Removed = append(res.Removed, n)
		}
	}
	for _, n := range nodes {
		if !before[n] {
			res.Added = append(res.Added, n)
		}
	}
	s.previous = nodes
}
