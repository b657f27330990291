package octree

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/version"
	"github.com/golang/geo/r3"
	"github.com/shopspring/decimal"
)

type PayloadFormat int

const (
	FormatBinary PayloadFormat = iota
	FormatLAS
	FormatLAZ
)

func (f PayloadFormat) String() string {
	switch f {
	case FormatLAS:
		return "LAS"
	case FormatLAZ:
		return "LAZ"
	default:
		return "BINARY"
	}
}

type ManifestBox struct {
	Lx float64 `json:"lx"`
	Ly float64 `json:"ly"`
	Lz float64 `json:"lz"`
	Ux float64 `json:"ux"`
	Uy float64 `json:"uy"`
	Uz float64 `json:"uz"`
}

func (b ManifestBox) toBoundingBox() *geometry.BoundingBox {
	return geometry.NewBoundingBox(b.Lx, b.Ux, b.Ly, b.Uy, b.Lz, b.Uz)
}

// One entry of the hierarchy embedded in manifests up to version 1.4
type HierarchyEntry struct {
	Name      string
	NumPoints int
}

func (e *HierarchyEntry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("hierarchy entry %s: expected [name, numPoints]", string(b))
	}
	if err := json.Unmarshal(raw[0], &e.Name); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.NumPoints)
}

// Dataset header, the cloud.js file of a potree dataset
type Manifest struct {
	Version           string           `json:"version"`
	OctreeDir         string           `json:"octreeDir"`
	Projection        string           `json:"projection"`
	Points            int64            `json:"points"`
	BoundingBox       *ManifestBox     `json:"boundingBox"`
	TightBoundingBox  *ManifestBox     `json:"tightBoundingBox"`
	PointAttributes   json.RawMessage  `json:"pointAttributes"`
	Spacing           decimal.Decimal  `json:"spacing"`
	Scale             decimal.Decimal  `json:"scale"`
	HierarchyStepSize int              `json:"hierarchyStepSize"`
	Hierarchy         []HierarchyEntry `json:"hierarchy"`

	version *version.Version
	layout  *data.PointAttributes
	format  PayloadFormat
}

// Parses and validates a dataset manifest. Every failure is a *StructuralError.
func ParseManifest(b []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, &StructuralError{Err: err}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if m.Version == "" {
		return structuralErrorf("missing version")
	}
	v, err := version.Parse(m.Version)
	if err != nil {
		return &StructuralError{Err: err}
	}
	m.version = v

	if m.OctreeDir == "" {
		return structuralErrorf("missing octreeDir")
	}
	if m.BoundingBox == nil {
		return structuralErrorf("missing boundingBox")
	}
	if m.BoundingBox.toBoundingBox().IsEmpty() {
		return structuralErrorf("inverted boundingBox %+v", *m.BoundingBox)
	}
	if !m.Spacing.IsPositive() {
		return structuralErrorf("spacing must be positive, got %s", m.Spacing)
	}

	if err := m.parseAttributes(); err != nil {
		return err
	}

	if m.format == FormatBinary && v.QuantizedPositions() && !m.Scale.IsPositive() {
		return structuralErrorf("scale must be positive for version %s, got %s", m.Version, m.Scale)
	}
	if v.ChunkedHierarchy() {
		if m.HierarchyStepSize <= 0 {
			return structuralErrorf("hierarchyStepSize must be positive, got %d", m.HierarchyStepSize)
		}
	} else {
		if len(m.Hierarchy) == 0 {
			return structuralErrorf("version %s requires an embedded hierarchy", m.Version)
		}
		if m.Hierarchy[0].Name != "r" {
			return structuralErrorf("embedded hierarchy must start with the root, got %q", m.Hierarchy[0].Name)
		}
	}
	return nil
}

// pointAttributes is either a list of attribute names or the string "LAS" / "LAZ"
func (m *Manifest) parseAttributes() error {
	if len(m.PointAttributes) == 0 {
		return structuralErrorf("missing pointAttributes")
	}

	var kind string
	if err := json.Unmarshal(m.PointAttributes, &kind); err == nil {
		switch strings.ToUpper(kind) {
		case "LAS":
			m.format = FormatLAS
		case "LAZ":
			m.format = FormatLAZ
		default:
			return structuralErrorf("unsupported pointAttributes %q", kind)
		}
		m.layout = data.LASAttributes()
		return nil
	}

	var names []string
	if err := json.Unmarshal(m.PointAttributes, &names); err != nil {
		return &StructuralError{Err: fmt.Errorf("pointAttributes: %w", err)}
	}
	layout, err := data.ParseAttributes(names)
	if err != nil {
		return &StructuralError{Err: err}
	}
	m.format = FormatBinary
	m.layout = layout
	return nil
}

func (m *Manifest) FormatVersion() *version.Version {
	return m.version
}

func (m *Manifest) Layout() *data.PointAttributes {
	return m.layout
}

func (m *Manifest) Format() PayloadFormat {
	return m.format
}

// Min corner of the declared box. Local coordinates are relative to it.
func (m *Manifest) Offset() r3.Vector {
	return r3.Vector{X: m.BoundingBox.Lx, Y: m.BoundingBox.Ly, Z: m.BoundingBox.Lz}
}

// Declared box in local coordinates
func (m *Manifest) LocalBoundingBox() *geometry.BoundingBox {
	return m.BoundingBox.toBoundingBox().Translate(m.Offset().Mul(-1))
}

// Declared tight box in local coordinates, falling back to the declared box
func (m *Manifest) LocalTightBoundingBox() *geometry.BoundingBox {
	if m.TightBoundingBox == nil {
		return m.LocalBoundingBox()
	}
	return m.TightBoundingBox.toBoundingBox().Translate(m.Offset().Mul(-1))
}

func (m *Manifest) ScaleFloat() float64 {
	return m.Scale.InexactFloat64()
}
