package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

type ProjectionType int

const (
	Perspective ProjectionType = iota
	Orthographic
)

func (p ProjectionType) String() string {
	if p == Orthographic {
		return "ORTHOGRAPHIC"
	}
	return "PERSPECTIVE"
}

// Size of the render target in CSS pixels plus the device pixel ratio
type Viewport struct {
	Width      int
	Height     int
	PixelRatio float64
}

// Half of the render target height in device pixels
func (v Viewport) HalfHeight() float64 {
	ratio := v.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	return 0.5 * float64(v.Height) * ratio
}

// Camera state fed to the visibility pass. Fov is the vertical field of view in degrees.
// Left, Right, Top and Bottom are the orthographic extents relative to the camera axis.
type Camera struct {
	Projection ProjectionType
	Position   r3.Vector
	Direction  r3.Vector
	Up         r3.Vector

	Fov    float64
	Aspect float64
	Near   float64
	Far    float64

	Left, Right, Top, Bottom float64
}

// Builds a perspective camera at position looking at target
func NewPerspectiveCamera(position, target r3.Vector, fov, aspect, near, far float64) *Camera {
	c := &Camera{
		Projection: Perspective,
		Position:   position,
		Up:         r3.Vector{X: 0, Y: 0, Z: 1},
		Fov:        fov,
		Aspect:     aspect,
		Near:       near,
		Far:        far,
	}
	c.LookAt(target)
	return c
}

// Builds an orthographic camera at position looking at target
func NewOrthographicCamera(position, target r3.Vector, left, right, top, bottom, near, far float64) *Camera {
	c := &Camera{
		Projection: Orthographic,
		Position:   position,
		Up:         r3.Vector{X: 0, Y: 0, Z: 1},
		Left:       left,
		Right:      right,
		Top:        top,
		Bottom:     bottom,
		Near:       near,
		Far:        far,
	}
	c.LookAt(target)
	return c
}

// Points the camera at target, keeping Up as close as possible to its current value
func (c *Camera) LookAt(target r3.Vector) {
	dir := target.Sub(c.Position)
	if dir.Norm() == 0 {
		return
	}
	c.Direction = dir.Normalize()
	if c.Direction.Cross(c.Up).Norm() < 1e-9 {
		// looking straight along the up axis
		c.Up = c.Direction.Ortho()
	}
}

// Returns the orthonormal camera basis: forward, right and up
func (c *Camera) Basis() (forward, right, up r3.Vector) {
	forward = c.Direction.Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

// Frustum of the camera in world coordinates
func (c *Camera) Frustum() Frustum {
	f, r, u := c.Basis()
	nearPoint := c.Position.Add(f.Mul(c.Near))
	farPoint := c.Position.Add(f.Mul(c.Far))

	var fr Frustum
	if c.Projection == Orthographic {
		fr.Planes[0] = NewPlane(r, c.Position.Add(r.Mul(c.Left)))
		fr.Planes[1] = NewPlane(r.Mul(-1), c.Position.Add(r.Mul(c.Right)))
		fr.Planes[2] = NewPlane(u, c.Position.Add(u.Mul(c.Bottom)))
		fr.Planes[3] = NewPlane(u.Mul(-1), c.Position.Add(u.Mul(c.Top)))
	} else {
		halfV := math.Tan(c.fovRadians() / 2)
		halfH := halfV * c.Aspect
		fr.Planes[0] = NewPlane(r.Add(f.Mul(halfH)), c.Position)
		fr.Planes[1] = NewPlane(r.Mul(-1).Add(f.Mul(halfH)), c.Position)
		fr.Planes[2] = NewPlane(u.Add(f.Mul(halfV)), c.Position)
		fr.Planes[3] = NewPlane(u.Mul(-1).Add(f.Mul(halfV)), c.Position)
	}
	fr.Planes[4] = NewPlane(f, nearPoint)
	fr.Planes[5] = NewPlane(f.Mul(-1), farPoint)
	return fr
}

// Factor converting a world space length at the given distance into device pixels
func (c *Camera) ProjectionFactor(distance float64, viewport Viewport) float64 {
	halfHeight := viewport.HalfHeight()
	if c.Projection == Orthographic {
		height := c.Top - c.Bottom
		if height <= 0 {
			return 0
		}
		return 2 * halfHeight / height
	}
	if distance <= 0 {
		return math.Inf(1)
	}
	return halfHeight / (math.Tan(c.fovRadians()/2) * distance)
}

// World space size of one device pixel at the given distance along the view axis
func (c *Camera) PixelSize(distance float64, viewport Viewport) float64 {
	factor := c.ProjectionFactor(distance, viewport)
	if factor == 0 || math.IsInf(factor, 1) {
		return 0
	}
	return 1 / factor
}

// Ray through the given normalized device coordinates, both in [-1, 1] with +y up
func (c *Camera) Ray(ndcX, ndcY float64) Ray {
	f, r, u := c.Basis()
	if c.Projection == Orthographic {
		x := c.Left + (ndcX+1)/2*(c.Right-c.Left)
		y := c.Bottom + (ndcY+1)/2*(c.Top-c.Bottom)
		origin := c.Position.Add(r.Mul(x)).Add(u.Mul(y))
		return NewRay(origin, f)
	}
	halfV := math.Tan(c.fovRadians() / 2)
	halfH := halfV * c.Aspect
	dir := f.Add(r.Mul(ndcX * halfH)).Add(u.Mul(ndcY * halfV))
	return NewRay(c.Position, dir)
}

func (c *Camera) fovRadians() float64 {
	return c.Fov * math.Pi / 180
}
