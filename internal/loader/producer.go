package loader

import (
	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Loader side of the visibility pass. Submit and Drain are called from the scheduling goroutine
// only; InFlight may be read from anywhere.
type Producer interface {
	Submit(node *octree.Node, src *Source) (*Future[*data.PointBuffer], error)
	InFlight() int
	Drain(maxApplied int) ([]*Completion, bool)
	Pending() int
}
