package pkg

import (
	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/scheduler"
	"github.com/golang/geo/r3"
)

// One streamed dataset. Positions of decoded points are local, Position places them in the world.
type PointCloud struct {
	potree *Potree
	url    string
	index  *octree.Index
	source *loader.Source

	// World position of the local origin, the min corner of the declared box by default
	Position r3.Vector
	Settings *config.PointCloudOptions

	visible          []scheduler.VisibleNode
	numVisiblePoints int
	visibleBounds    *geometry.BoundingBox
	disposed         bool
}

func newPointCloud(p *Potree, url string, idx *octree.Index, src *loader.Source, settings *config.PointCloudOptions) *PointCloud {
	return &PointCloud{
		potree:        p,
		url:           url,
		index:         idx,
		source:        src,
		Position:      idx.Offset(),
		Settings:      settings,
		visibleBounds: geometry.NewEmptyBoundingBox(),
	}
}

func (pc *PointCloud) target() *scheduler.Target {
	return &scheduler.Target{
		Index:    pc.index,
		Source:   pc.source,
		Position: pc.Position,
		Options:  pc.Settings,
	}
}

func (pc *PointCloud) updateVisibility(visible []scheduler.VisibleNode, numVisiblePoints int) {
	pc.visible = visible
	pc.numVisiblePoints = numVisiblePoints
	bounds := geometry.NewEmptyBoundingBox()
	for _, v := range visible {
		box := v.Node.TightBoundingBox()
		if box == nil {
			box = v.Node.BoundingBox()
		}
		bounds.Union(box)
	}
	pc.visibleBounds = bounds
}

func (pc *PointCloud) URL() string {
	return pc.url
}

func (pc *PointCloud) Index() *octree.Index {
	return pc.index
}

func (pc *PointCloud) Manifest() *octree.Manifest {
	return pc.index.Manifest()
}

func (pc *PointCloud) Root() *octree.Node {
	return pc.index.Root()
}

// Declared box in world coordinates
func (pc *PointCloud) BoundingBox() *geometry.BoundingBox {
	return pc.index.BoundingBox().Translate(pc.Position)
}

// Declared tight box in world coordinates
func (pc *PointCloud) TightBoundingBox() *geometry.BoundingBox {
	return pc.index.TightBoundingBox().Translate(pc.Position)
}

// Payload attached to node, absent when the node is not loaded
func (pc *PointCloud) Geometry(node *octree.Node) (*data.PointBuffer, bool) {
	pc.potree.mu.Lock()
	defer pc.potree.mu.Unlock()
	return pc.potree.sched.Geometry(node)
}

// Loaded nodes selected by the last pass, in priority order
func (pc *PointCloud) VisibleNodes() []scheduler.VisibleNode {
	return pc.visible
}

// Points selected by the last pass, loaded or not
func (pc *PointCloud) NumVisiblePoints() int {
	return pc.numVisiblePoints
}

// Union of the boxes of the visible nodes in world coordinates, empty when nothing is visible
func (pc *PointCloud) VisibleBounds() *geometry.BoundingBox {
	if pc.visibleBounds.IsEmpty() {
		return pc.visibleBounds.Copy()
	}
	return pc.visibleBounds.Translate(pc.Position)
}

// Share of the selected points that are loaded, 1 when nothing is selected
func (pc *PointCloud) Progress() float64 {
	if pc.numVisiblePoints == 0 {
		return 1
	}
	loaded := 0
	for _, v := range pc.visible {
		loaded += v.Node.NumPoints()
	}
	return float64(loaded) / float64(pc.numVisiblePoints)
}

func (pc *PointCloud) Disposed() bool {
	return pc.disposed
}
