package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func testCamera() *Camera {
	return NewPerspectiveCamera(r3.Vector{X: 0, Y: -10, Z: 0}, r3.Vector{}, 60, 1, 0.1, 1000)
}

func TestFrustumIntersectsBox(t *testing.T) {
	fr := testCamera().Frustum()

	assert.True(t, fr.IntersectsBox(NewBoundingBox(-1, 1, -1, 1, -1, 1)))
	// behind the camera
	assert.False(t, fr.IntersectsBox(NewBoundingBox(-1, 1, -30, -20, -1, 1)))
	// far to the side
	assert.False(t, fr.IntersectsBox(NewBoundingBox(100, 101, -1, 1, -1, 1)))
	// beyond the far plane
	assert.False(t, fr.IntersectsBox(NewBoundingBox(-1, 1, 2000, 2001, -1, 1)))
}

func TestFrustumToLocal(t *testing.T) {
	fr := testCamera().Frustum()
	offset := r3.Vector{X: 500, Y: 500, Z: 0}
	local := fr.ToLocal(offset)

	box := NewBoundingBox(-1, 1, -1, 1, -1, 1)
	assert.False(t, local.IntersectsBox(box))
	assert.True(t, local.IntersectsBox(box.Translate(offset.Mul(-1))))
}

func TestOrthographicFrustum(t *testing.T) {
	c := NewOrthographicCamera(r3.Vector{X: 0, Y: -10, Z: 0}, r3.Vector{}, -5, 5, 5, -5, 0.1, 100)
	fr := c.Frustum()

	assert.True(t, fr.IntersectsBox(NewBoundingBox(4, 4.5, -1, 1, 4, 4.5)))
	assert.False(t, fr.IntersectsBox(NewBoundingBox(6, 7, -1, 1, 0, 1)))
	assert.InDelta(t, 100.0/10.0, c.ProjectionFactor(50, Viewport{Width: 100, Height: 100, PixelRatio: 1}), 1e-9)
}

func TestProjectionFactor(t *testing.T) {
	c := testCamera()
	vp := Viewport{Width: 800, Height: 600, PixelRatio: 2}

	expected := 600.0 / (math.Tan(math.Pi/6) * 10)
	assert.InDelta(t, expected, c.ProjectionFactor(10, vp), 1e-9)
	assert.InDelta(t, 1/expected, c.PixelSize(10, vp), 1e-12)
	assert.True(t, math.IsInf(c.ProjectionFactor(0, vp), 1))
}

func TestCameraRay(t *testing.T) {
	c := testCamera()
	center := c.Ray(0, 0)
	assert.InDelta(t, 1, center.Direction.Y, 1e-12)

	hit, ok := center.IntersectsBox(NewBoundingBox(-1, 1, -1, 1, -1, 1))
	assert.True(t, ok)
	assert.InDelta(t, 9, hit, 1e-9)

	_, ok = c.Ray(1, 1).IntersectsBox(NewBoundingBox(-0.1, 0.1, -0.1, 0.1, -0.1, 0.1))
	assert.False(t, ok)

	tParam, d := center.ClosestPoint(r3.Vector{X: 1, Y: 0, Z: 0})
	assert.InDelta(t, 10, tParam, 1e-9)
	assert.InDelta(t, 1, d, 1e-9)
}
