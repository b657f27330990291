package pkg

import (
	"math"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/golang/geo/r3"
)

// Overrides of the per cloud pick settings, nil fields keep the cloud value
type PickParams struct {
	PickWindowSize        *int
	PickOutsideClipRegion *bool
}

type PickResult struct {
	PointCloud *PointCloud
	Node       *octree.Node
	// Picked point in world coordinates
	Point *data.Point
	// Distance from the camera along the pick ray
	Distance float64
}

// Finds the point closest to the camera among the loaded points of the visible nodes that project
// inside a square window centered on the pixel (x, y). Pixel coordinates start at the top left
// corner of the viewport.
func (p *Potree) Pick(clouds []*PointCloud, camera *geometry.Camera, viewport geometry.Viewport, x, y float64, params *PickParams) (*PickResult, bool) {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return nil, false
	}
	ndcX := 2*x/float64(viewport.Width) - 1
	ndcY := 1 - 2*y/float64(viewport.Height)
	ray := camera.Ray(ndcX, ndcY)

	p.mu.Lock()
	defer p.mu.Unlock()

	var best *PickResult
	for _, pc := range clouds {
		if pc.disposed {
			continue
		}
		window := pc.Settings.PickWindowSize
		outside := pc.Settings.PickOutsideClipRegion
		if params != nil && params.PickWindowSize != nil {
			window = *params.PickWindowSize
		}
		if params != nil && params.PickOutsideClipRegion != nil {
			outside = *params.PickOutsideClipRegion
		}
		halfWindow := math.Max(float64(window), 1) / 2

		local := geometry.NewRay(ray.Origin.Sub(pc.Position), ray.Direction)
		var clips []*geometry.BoundingBox
		if pc.Settings.Clipping() && !outside {
			for _, b := range pc.Settings.ClipBoxes {
				clips = append(clips, b.Translate(pc.Position.Mul(-1)))
			}
		}

		for _, v := range pc.visible {
			buf, ok := p.sched.Geometry(v.Node)
			if !ok {
				continue
			}
			sphere := v.Node.BoundingSphere()
			t, _ := local.ClosestPoint(sphere.Center)
			margin := halfWindow * camera.PixelSize(t+sphere.Radius, viewport)
			if !local.IntersectsSphere(sphere, margin) {
				continue
			}
			for i := 0; i < buf.NumPoints; i++ {
				pos := buf.Position(i)
				t, d := local.ClosestPoint(pos)
				if t <= 0 {
					continue
				}
				if d > halfWindow*camera.PixelSize(t, viewport) {
					continue
				}
				if len(clips) > 0 && !insideAny(clips, pos) {
					continue
				}
				if best == nil || t < best.Distance {
					best = &PickResult{
						PointCloud: pc,
						Node:       v.Node,
						Point:      buf.Point(i, pc.Position, v.Node.Key()),
						Distance:   t,
					}
				}
			}
		}
	}
	return best, best != nil
}

func insideAny(boxes []*geometry.BoundingBox, p r3.Vector) bool {
	for _, b := range boxes {
		if b.ContainsPoint(p) {
			return true
		}
	}
	return false
}
