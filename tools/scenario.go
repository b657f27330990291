package tools

import (
	"fmt"
	"math"
	"os"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// Camera path replayed by the simulate and export commands
type Scenario struct {
	Viewport ScenarioViewport `yaml:"viewport"`
	Steps    []ScenarioStep   `yaml:"steps"`
}

type ScenarioViewport struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	PixelRatio float64 `yaml:"pixelRatio"`
}

// One camera held for Frames visibility passes
type ScenarioStep struct {
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
	Fov      float64    `yaml:"fov"`
	Near     float64    `yaml:"near"`
	Far      float64    `yaml:"far"`
	Frames   int        `yaml:"frames"`
}

func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(b)
}

func ParseScenario(b []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, err
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario has no steps")
	}
	s.applyDefaults(1)
	if s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", s.Viewport.Width, s.Viewport.Height)
	}
	for i, step := range s.Steps {
		if step.Position == step.Target {
			return nil, fmt.Errorf("step %d: camera position equals its target", i)
		}
	}
	return s, nil
}

// Four cameras looking at the center of box from each side, slightly above it
func DefaultScenario(box *geometry.BoundingBox, frames int) *Scenario {
	center := box.Center()
	size := box.Size()
	dist := 1.5 * size.Norm()
	s := &Scenario{}
	for i := 0; i < 4; i++ {
		angle := float64(i) * math.Pi / 2
		pos := center.Add(r3.Vector{X: dist * math.Cos(angle), Y: dist * math.Sin(angle), Z: size.Z})
		s.Steps = append(s.Steps, ScenarioStep{
			Position: [3]float64{pos.X, pos.Y, pos.Z},
			Target:   [3]float64{center.X, center.Y, center.Z},
			Frames:   frames,
		})
	}
	s.applyDefaults(frames)
	return s
}

func (s *Scenario) applyDefaults(frames int) {
	if s.Viewport == (ScenarioViewport{}) {
		s.Viewport = ScenarioViewport{Width: 1920, Height: 1080}
	}
	if s.Viewport.PixelRatio <= 0 {
		s.Viewport.PixelRatio = 1
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Fov <= 0 {
			step.Fov = 60
		}
		if step.Near <= 0 {
			step.Near = 0.1
		}
		if step.Far <= step.Near {
			step.Far = 1e7
		}
		if step.Frames <= 0 {
			step.Frames = frames
		}
	}
}

func (s *Scenario) GeometryViewport() geometry.Viewport {
	return geometry.Viewport{Width: s.Viewport.Width, Height: s.Viewport.Height, PixelRatio: s.Viewport.PixelRatio}
}

func (s *Scenario) Camera(step int) *geometry.Camera {
	st := s.Steps[step]
	aspect := float64(s.Viewport.Width) / float64(s.Viewport.Height)
	return geometry.NewPerspectiveCamera(
		r3.Vector{X: st.Position[0], Y: st.Position[1], Z: st.Position[2]},
		r3.Vector{X: st.Target[0], Y: st.Target[1], Z: st.Target[2]},
		st.Fov, aspect, st.Near, st.Far,
	)
}

// Total number of visibility passes
func (s *Scenario) Frames() int {
	n := 0
	for _, st := range s.Steps {
		n += st.Frames
	}
	return n
}
