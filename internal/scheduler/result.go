package scheduler

import (
	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Loaded node selected by a pass, with the payload the renderer should draw
type VisibleNode struct {
	Cloud  int
	Node   *octree.Node
	Buffer *data.PointBuffer
	Weight float64
}

// Outcome of one visibility pass
type Result struct {
	// Loaded nodes selected this pass, in priority order
	VisibleNodes []VisibleNode
	// Points of every selected node, loaded or still wanted
	NumVisiblePoints int
	// NumVisiblePoints split by cloud
	CloudPoints []int
	// Loads completed without being applied, the caller should run another pass
	ExceededMaxLoadsToGPU bool
	// At least one node failed to load or to expand its hierarchy
	NodeLoadFailed bool
	// Loads issued by this pass
	NodeLoadFutures []*loader.Future[*data.PointBuffer]
	// Wanted nodes not issued because of the concurrent load cap
	DeferredLoads int

	// Visible set changes since the previous pass
	Added   []*octree.Node
	Removed []*octree.Node
	// Payloads released by the cache at the end of the pass
	Evicted []*octree.Node
}

// Visible nodes of one cloud, by its position in the slice given to Update
func (r *Result) Visible(cloud int) []VisibleNode {
	var out []VisibleNode
	for _, v := range r.VisibleNodes {
		if v.Cloud == cloud {
			out = append(out, v)
		}
	}
	return out
}

func (r *Result) NumLoadedPoints() int {
	n := 0
	for _, v := range r.VisibleNodes {
		n += v.Node.NumPoints()
	}
	return n
}
