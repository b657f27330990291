package geometry

import "github.com/golang/geo/r3"

// Plane in Hessian form, points with Normal·p + D >= 0 are on the inner side
type Plane struct {
	Normal r3.Vector
	D      float64
}

// Builds a plane through point with the given inward normal
func NewPlane(normal r3.Vector, point r3.Vector) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

func (p Plane) DistanceToPoint(v r3.Vector) float64 {
	return p.Normal.Dot(v) + p.D
}

// Frustum made of six inward facing planes: left, right, bottom, top, near, far
type Frustum struct {
	Planes [6]Plane
}

// Reports whether any part of the box lies inside the frustum. The test is conservative,
// boxes near frustum corners may be reported as intersecting.
func (f Frustum) IntersectsBox(b *BoundingBox) bool {
	for _, plane := range f.Planes {
		// farthest corner along the plane normal
		p := r3.Vector{X: b.Xmin, Y: b.Ymin, Z: b.Zmin}
		if plane.Normal.X > 0 {
			p.X = b.Xmax
		}
		if plane.Normal.Y > 0 {
			p.Y = b.Ymax
		}
		if plane.Normal.Z > 0 {
			p.Z = b.Zmax
		}
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) IntersectsSphere(s Sphere) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

func (f Frustum) ContainsPoint(p r3.Vector) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

// Expresses the frustum in the local frame of an object placed at position, so that
// world = local + position
func (f Frustum) ToLocal(position r3.Vector) Frustum {
	local := f
	for i := range local.Planes {
		local.Planes[i].D += local.Planes[i].Normal.Dot(position)
	}
	return local
}
