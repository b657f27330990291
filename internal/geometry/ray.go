package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

type Ray struct {
	Origin    r3.Vector
	Direction r3.Vector
}

// Builds a ray with a normalized direction
func NewRay(origin, direction r3.Vector) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

func (r Ray) At(t float64) r3.Vector {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Returns the parameter of the closest point on the ray to p, and the distance between them.
// Points behind the origin are measured from the origin itself.
func (r Ray) ClosestPoint(p r3.Vector) (t float64, distance float64) {
	t = p.Sub(r.Origin).Dot(r.Direction)
	if t < 0 {
		return 0, p.Distance(r.Origin)
	}
	return t, p.Distance(r.At(t))
}

// Slab test against an axis aligned box, returns the entry parameter when hit
func (r Ray) IntersectsBox(b *BoundingBox) (float64, bool) {
	tMin, tMax := math.Inf(-1), math.Inf(1)
	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{b.Xmin, b.Ymin, b.Zmin}
	hi := [3]float64{b.Xmax, b.Ymax, b.Zmax}

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if tMax < 0 {
		return 0, false
	}
	return math.Max(tMin, 0), true
}

// Reports whether the ray passes within radius of the sphere
func (r Ray) IntersectsSphere(s Sphere, margin float64) bool {
	_, d := r.ClosestPoint(s.Center)
	return d <= s.Radius+margin
}
