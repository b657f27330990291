package loader

import (
	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Turns the raw payload of a node into a point buffer in the local frame of its dataset
type Decoder interface {
	Decode(node *octree.Node, b []byte) (*data.PointBuffer, error)
}

// Picks the decoder matching the payload format of an index
func DecoderFor(idx *octree.Index) Decoder {
	switch idx.Format() {
	case octree.FormatLAS, octree.FormatLAZ:
		return &LASDecoder{}
	default:
		return &BinaryDecoder{}
	}
}
