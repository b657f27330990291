package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundingBoxFromParent(t *testing.T) {
	parent := NewBoundingBox(0, 8, 0, 4, 0, 2)

	for octant := uint8(0); octant < 8; octant++ {
		o := octant
		child := NewBoundingBoxFromParent(parent, &o)
		assert.True(t, parent.ContainsBox(child), "octant %d", octant)
		assert.InDelta(t, 4, child.Xmax-child.Xmin, 1e-12)
		assert.InDelta(t, 2, child.Ymax-child.Ymin, 1e-12)
		assert.InDelta(t, 1, child.Zmax-child.Zmin, 1e-12)
		assert.Equal(t, octant, parent.OctantOf(child.Center()))
	}

	o := uint8(0b100)
	upperX := NewBoundingBoxFromParent(parent, &o)
	assert.Equal(t, 4.0, upperX.Xmin)
	assert.Equal(t, 0.0, upperX.Ymin)
	assert.Equal(t, 0.0, upperX.Zmin)

	o = 0b001
	upperZ := NewBoundingBoxFromParent(parent, &o)
	assert.Equal(t, 1.0, upperZ.Zmin)
	assert.Equal(t, 4.0, upperZ.Xmax)
}

func TestBoundingBoxExpand(t *testing.T) {
	b := NewEmptyBoundingBox()
	assert.True(t, b.IsEmpty())

	b.ExpandByPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	b.ExpandByPoint(r3.Vector{X: -1, Y: 5, Z: 0})
	require.False(t, b.IsEmpty())
	assert.Equal(t, r3.Vector{X: -1, Y: 2, Z: 0}, b.Min())
	assert.Equal(t, r3.Vector{X: 1, Y: 5, Z: 3}, b.Max())
	assert.Equal(t, r3.Vector{X: 0, Y: 3.5, Z: 1.5}, b.Center())

	other := NewBoundingBox(10, 11, 0, 1, 0, 1)
	b.Union(other)
	assert.Equal(t, 11.0, b.Xmax)
	b.Union(NewEmptyBoundingBox())
	assert.Equal(t, 11.0, b.Xmax)
}

func TestBoundingSphere(t *testing.T) {
	b := NewBoundingBox(0, 2, 0, 2, 0, 2)
	s := b.BoundingSphere()
	assert.Equal(t, r3.Vector{X: 1, Y: 1, Z: 1}, s.Center)
	assert.InDelta(t, math.Sqrt(3), s.Radius, 1e-12)
	assert.True(t, s.ContainsPoint(r3.Vector{X: 2, Y: 2, Z: 2}))
}

func TestBoundingBoxIntersects(t *testing.T) {
	a := NewBoundingBox(0, 1, 0, 1, 0, 1)
	assert.True(t, a.IntersectsBox(NewBoundingBox(0.5, 2, 0.5, 2, 0.5, 2)))
	assert.False(t, a.IntersectsBox(NewBoundingBox(1.5, 2, 0, 1, 0, 1)))
	assert.True(t, a.ContainsPoint(r3.Vector{X: 1, Y: 0, Z: 0.5}))

	moved := a.Translate(r3.Vector{X: 10})
	assert.Equal(t, 10.0, moved.Xmin)
	assert.Equal(t, 10.5, moved.Xmid)
}
