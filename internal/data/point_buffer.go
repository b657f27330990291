package data

import (
	"math"
	"sort"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/golang/geo/r3"
)

// Decoded payload of one octree node. Positions are expressed in the local frame of the point cloud.
// Optional attribute slices are nil when the dataset does not carry them.
type PointBuffer struct {
	NumPoints int

	Positions       []float32 // x,y,z per point
	Colors          []uint8   // r,g,b,a per point
	Intensities     []uint16
	Classifications []uint8
	ReturnNumbers   []uint8
	NumberOfReturns []uint8
	SourceIDs       []uint16
	Normals         []float32 // x,y,z per point
	GPSTimes        []float64
	Indices         []uint32 // position of each point inside the node payload

	TightBoundingBox *geometry.BoundingBox
	Mean             r3.Vector

	classes []uint8
}

// Allocates the slices required by the layout for n points
func NewPointBuffer(n int, layout *PointAttributes) *PointBuffer {
	b := &PointBuffer{
		NumPoints: n,
		Positions: make([]float32, 3*n),
		Indices:   make([]uint32, n),
	}
	for i := range b.Indices {
		b.Indices[i] = uint32(i)
	}
	if layout == nil {
		return b
	}
	if layout.HasColors() {
		b.Colors = make([]uint8, 4*n)
	}
	if layout.HasNormals() {
		b.Normals = make([]float32, 3*n)
	}
	if layout.Has(Intensity) {
		b.Intensities = make([]uint16, n)
	}
	if layout.Has(Classification) {
		b.Classifications = make([]uint8, n)
	}
	if layout.Has(ReturnNumber) {
		b.ReturnNumbers = make([]uint8, n)
	}
	if layout.Has(NumberOfReturns) {
		b.NumberOfReturns = make([]uint8, n)
	}
	if layout.Has(SourceID) {
		b.SourceIDs = make([]uint16, n)
	}
	if layout.Has(GPSTime) {
		b.GPSTimes = make([]float64, n)
	}
	return b
}

func (b *PointBuffer) Position(i int) r3.Vector {
	return r3.Vector{
		X: float64(b.Positions[3*i]),
		Y: float64(b.Positions[3*i+1]),
		Z: float64(b.Positions[3*i+2]),
	}
}

func (b *PointBuffer) SetPosition(i int, p r3.Vector) {
	b.Positions[3*i] = float32(p.X)
	b.Positions[3*i+1] = float32(p.Y)
	b.Positions[3*i+2] = float32(p.Z)
}

// Recomputes the tight bounding box, the mean position and the set of classes present
func (b *PointBuffer) Finalize() {
	box := geometry.NewEmptyBoundingBox()
	var sum r3.Vector
	for i := 0; i < b.NumPoints; i++ {
		p := b.Position(i)
		box.ExpandByPoint(p)
		sum = sum.Add(p)
	}
	b.TightBoundingBox = box
	if b.NumPoints > 0 {
		b.Mean = sum.Mul(1 / float64(b.NumPoints))
	}

	b.classes = nil
	if b.Classifications != nil {
		var seen [256]bool
		for _, c := range b.Classifications {
			if !seen[c] {
				seen[c] = true
				b.classes = append(b.classes, c)
			}
		}
		sort.Slice(b.classes, func(i, j int) bool { return b.classes[i] < b.classes[j] })
	}
}

// Sorted classification codes present in the buffer, nil when the dataset has no classification
func (b *PointBuffer) Classes() []uint8 {
	return b.classes
}

// Reports whether every point of the buffer belongs to one of the hidden classes
func (b *PointBuffer) AllClassesHidden(hidden map[uint8]bool) bool {
	if len(hidden) == 0 || len(b.classes) == 0 {
		return false
	}
	for _, c := range b.classes {
		if !hidden[c] {
			return false
		}
	}
	return true
}

// Approximate memory held by the buffer in bytes
func (b *PointBuffer) ByteSize() int {
	return 4*len(b.Positions) + len(b.Colors) + 2*len(b.Intensities) + len(b.Classifications) +
		len(b.ReturnNumbers) + len(b.NumberOfReturns) + 2*len(b.SourceIDs) + 4*len(b.Normals) +
		8*len(b.GPSTimes) + 4*len(b.Indices)
}

// Unit length normal of point i, or the zero vector when normals are absent
func (b *PointBuffer) Normal(i int) r3.Vector {
	if b.Normals == nil {
		return r3.Vector{}
	}
	n := r3.Vector{X: float64(b.Normals[3*i]), Y: float64(b.Normals[3*i+1]), Z: float64(b.Normals[3*i+2])}
	if l := n.Norm(); l > 0 && math.Abs(l-1) > 1e-6 {
		n = n.Mul(1 / l)
	}
	return n
}
