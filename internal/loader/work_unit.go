package loader

import (
	"time"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Contains the minimal data needed to load a single node: where to read it from, whether its
// hierarchy chunk must be read first, and the future to resolve
type WorkUnit struct {
	Node           *octree.Node
	Source         *Source
	NeedsHierarchy bool
	Future         *Future[*data.PointBuffer]
	Submitted      time.Time
}

// Outcome of a WorkUnit, waiting to be applied by the scheduling goroutine
type Completion struct {
	Node *octree.Node
	// Decoded payload, nil on failure
	Buffer *data.PointBuffer
	// Sub-hierarchy rooted at Node when its chunk was read, first entry is Node itself
	Hierarchy []octree.NodeSpec
	// *LoadError or *octree.BranchError
	Err error
}
