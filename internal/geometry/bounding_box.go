package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Axis aligned box with its precomputed mid point, the same layout used for octree cells
type BoundingBox struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
	Zmin, Zmax float64
	Xmid, Ymid, Zmid float64
}

// Builds a BoundingBox from its extents
func NewBoundingBox(Xmin, Xmax, Ymin, Ymax, Zmin, Zmax float64) *BoundingBox {
	return &BoundingBox{
		Xmin: Xmin,
		Xmax: Xmax,
		Ymin: Ymin,
		Ymax: Ymax,
		Zmin: Zmin,
		Zmax: Zmax,
		Xmid: (Xmin + Xmax) / 2,
		Ymid: (Ymin + Ymax) / 2,
		Zmid: (Zmin + Zmax) / 2,
	}
}

// Builds a BoundingBox from two corners
func NewBoundingBoxFromCorners(min, max r3.Vector) *BoundingBox {
	return NewBoundingBox(min.X, max.X, min.Y, max.Y, min.Z, max.Z)
}

// Returns an empty box that grows to the first point passed to ExpandByPoint
func NewEmptyBoundingBox() *BoundingBox {
	return &BoundingBox{
		Xmin: math.Inf(1), Xmax: math.Inf(-1),
		Ymin: math.Inf(1), Ymax: math.Inf(-1),
		Zmin: math.Inf(1), Zmax: math.Inf(-1),
	}
}

// Builds the box of the given octant of the parent box. Octant bits follow the potree layout:
// bit 0 selects the upper z half, bit 1 the upper y half and bit 2 the upper x half.
func NewBoundingBoxFromParent(parent *BoundingBox, octant *uint8) *BoundingBox {
	xMin, xMax := parent.Xmin, parent.Xmax
	yMin, yMax := parent.Ymin, parent.Ymax
	zMin, zMax := parent.Zmin, parent.Zmax

	if *octant&0b001 != 0 {
		zMin = parent.Zmid
	} else {
		zMax = parent.Zmid
	}
	if *octant&0b010 != 0 {
		yMin = parent.Ymid
	} else {
		yMax = parent.Ymid
	}
	if *octant&0b100 != 0 {
		xMin = parent.Xmid
	} else {
		xMax = parent.Xmid
	}

	return NewBoundingBox(xMin, xMax, yMin, yMax, zMin, zMax)
}

// Returns the octant of the box containing the given point, using the same bit layout as NewBoundingBoxFromParent
func (b *BoundingBox) OctantOf(p r3.Vector) uint8 {
	var octant uint8
	if p.Z > b.Zmid {
		octant |= 0b001
	}
	if p.Y > b.Ymid {
		octant |= 0b010
	}
	if p.X > b.Xmid {
		octant |= 0b100
	}
	return octant
}

func (b *BoundingBox) Min() r3.Vector {
	return r3.Vector{X: b.Xmin, Y: b.Ymin, Z: b.Zmin}
}

func (b *BoundingBox) Max() r3.Vector {
	return r3.Vector{X: b.Xmax, Y: b.Ymax, Z: b.Zmax}
}

func (b *BoundingBox) Center() r3.Vector {
	return r3.Vector{X: b.Xmid, Y: b.Ymid, Z: b.Zmid}
}

func (b *BoundingBox) Size() r3.Vector {
	return b.Max().Sub(b.Min())
}

func (b *BoundingBox) IsEmpty() bool {
	return b.Xmax < b.Xmin || b.Ymax < b.Ymin || b.Zmax < b.Zmin
}

// Smallest sphere enclosing the box
func (b *BoundingBox) BoundingSphere() Sphere {
	return Sphere{
		Center: b.Center(),
		Radius: b.Size().Norm() / 2,
	}
}

func (b *BoundingBox) ContainsPoint(p r3.Vector) bool {
	return p.X >= b.Xmin && p.X <= b.Xmax &&
		p.Y >= b.Ymin && p.Y <= b.Ymax &&
		p.Z >= b.Zmin && p.Z <= b.Zmax
}

// Reports whether other lies completely inside b, with a small tolerance for float rounding
func (b *BoundingBox) ContainsBox(other *BoundingBox) bool {
	const eps = 1e-9
	return other.Xmin >= b.Xmin-eps && other.Xmax <= b.Xmax+eps &&
		other.Ymin >= b.Ymin-eps && other.Ymax <= b.Ymax+eps &&
		other.Zmin >= b.Zmin-eps && other.Zmax <= b.Zmax+eps
}

func (b *BoundingBox) IntersectsBox(other *BoundingBox) bool {
	return b.Xmin <= other.Xmax && b.Xmax >= other.Xmin &&
		b.Ymin <= other.Ymax && b.Ymax >= other.Ymin &&
		b.Zmin <= other.Zmax && b.Zmax >= other.Zmin
}

// Grows the box in place to include p
func (b *BoundingBox) ExpandByPoint(p r3.Vector) {
	b.Xmin, b.Xmax = math.Min(b.Xmin, p.X), math.Max(b.Xmax, p.X)
	b.Ymin, b.Ymax = math.Min(b.Ymin, p.Y), math.Max(b.Ymax, p.Y)
	b.Zmin, b.Zmax = math.Min(b.Zmin, p.Z), math.Max(b.Zmax, p.Z)
	b.updateMid()
}

// Grows the box in place to include other
func (b *BoundingBox) Union(other *BoundingBox) {
	if other == nil || other.IsEmpty() {
		return
	}
	b.ExpandByPoint(other.Min())
	b.ExpandByPoint(other.Max())
}

// Returns a copy of the box moved by offset
func (b *BoundingBox) Translate(offset r3.Vector) *BoundingBox {
	return NewBoundingBox(
		b.Xmin+offset.X, b.Xmax+offset.X,
		b.Ymin+offset.Y, b.Ymax+offset.Y,
		b.Zmin+offset.Z, b.Zmax+offset.Z,
	)
}

func (b *BoundingBox) Copy() *BoundingBox {
	c := *b
	return &c
}

func (b *BoundingBox) updateMid() {
	b.Xmid = (b.Xmin + b.Xmax) / 2
	b.Ymid = (b.Ymin + b.Ymax) / 2
	b.Zmid = (b.Zmin + b.Zmax) / 2
}
