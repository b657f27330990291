package geometry

import "github.com/golang/geo/r3"

type Sphere struct {
	Center r3.Vector
	Radius float64
}

// Distance from p to the sphere center
func (s Sphere) DistanceTo(p r3.Vector) float64 {
	return s.Center.Distance(p)
}

func (s Sphere) ContainsPoint(p r3.Vector) bool {
	return s.DistanceTo(p) <= s.Radius
}

func (s Sphere) Translate(offset r3.Vector) Sphere {
	return Sphere{Center: s.Center.Add(offset), Radius: s.Radius}
}
