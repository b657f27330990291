package octree

import (
	"testing"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
	"version": "1.7",
	"octreeDir": "data",
	"projection": "",
	"points": 1000,
	"boundingBox": {"lx": 10, "ly": 20, "lz": 30, "ux": 50, "uy": 60, "uz": 70},
	"tightBoundingBox": {"lx": 11, "ly": 21, "lz": 31, "ux": 40, "uy": 45, "uz": 50},
	"pointAttributes": ["POSITION_CARTESIAN", "COLOR_PACKED", "NORMAL_OCT16"],
	"spacing": 0.75,
	"scale": 0.001,
	"hierarchyStepSize": 5
}`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	require.NoError(t, err)

	assert.Equal(t, "1.7", m.FormatVersion().String())
	assert.Equal(t, FormatBinary, m.Format())
	assert.Equal(t, 18, m.Layout().ByteSize)
	assert.True(t, m.Layout().Has(data.NormalOct16))
	assert.InDelta(t, 0.001, m.ScaleFloat(), 1e-15)
	assert.Equal(t, 10.0, m.Offset().X)

	box := m.LocalBoundingBox()
	assert.Equal(t, 0.0, box.Xmin)
	assert.Equal(t, 40.0, box.Xmax)
	tight := m.LocalTightBoundingBox()
	assert.Equal(t, 1.0, tight.Xmin)
	assert.Equal(t, 20.0, tight.Zmax)
}

func TestParseManifestLAS(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"version": "1.7", "octreeDir": "data",
		"boundingBox": {"lx": 0, "ly": 0, "lz": 0, "ux": 1, "uy": 1, "uz": 1},
		"pointAttributes": "LAZ", "spacing": 1, "scale": 0.01, "hierarchyStepSize": 4
	}`))
	require.NoError(t, err)
	assert.Equal(t, FormatLAZ, m.Format())
	assert.True(t, m.Layout().Has(data.Classification))
}

func TestParseManifestErrors(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"no version":     `{"octreeDir": "data"}`,
		"bad version":    `{"version": "x.y", "octreeDir": "data"}`,
		"no octree dir":  `{"version": "1.7"}`,
		"no bbox":        `{"version": "1.7", "octreeDir": "data", "spacing": 1}`,
		"inverted bbox":  `{"version": "1.7", "octreeDir": "data", "spacing": 1, "boundingBox": {"lx": 1, "ly": 0, "lz": 0, "ux": 0, "uy": 1, "uz": 1}}`,
		"zero spacing":   `{"version": "1.7", "octreeDir": "data", "spacing": 0, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": ["POSITION_CARTESIAN"]}`,
		"bad attribute":  `{"version": "1.7", "octreeDir": "data", "spacing": 1, "scale": 1, "hierarchyStepSize": 5, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": ["POSITION_CARTESIAN", "FOO"]}`,
		"no step size":   `{"version": "1.7", "octreeDir": "data", "spacing": 1, "scale": 1, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": ["POSITION_CARTESIAN"]}`,
		"no scale":       `{"version": "1.7", "octreeDir": "data", "spacing": 1, "hierarchyStepSize": 5, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": ["POSITION_CARTESIAN"]}`,
		"no hierarchy":   `{"version": "1.3", "octreeDir": "data", "spacing": 1, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": ["POSITION_CARTESIAN"]}`,
		"hierarchy root": `{"version": "1.3", "octreeDir": "data", "spacing": 1, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": ["POSITION_CARTESIAN"], "hierarchy": [["r0", 1]]}`,
		"bad kind":       `{"version": "1.7", "octreeDir": "data", "spacing": 1, "scale": 1, "hierarchyStepSize": 5, "boundingBox": {"ux": 1, "uy": 1, "uz": 1}, "pointAttributes": "PLY"}`,
	}
	for name, manifest := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(manifest))
			var structural *StructuralError
			assert.ErrorAs(t, err, &structural)
		})
	}
}
