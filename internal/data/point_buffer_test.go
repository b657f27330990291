package data

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributes(t *testing.T) {
	layout, err := ParseAttributes([]string{"POSITION_CARTESIAN", "COLOR_PACKED", "NORMAL_SPHEREMAPPED", "intensity"})
	require.NoError(t, err)
	assert.Equal(t, 12+4+2+2, layout.ByteSize)
	assert.True(t, layout.HasColors())
	assert.True(t, layout.HasNormals())
	assert.True(t, layout.Has(Intensity))
	assert.False(t, layout.Has(Classification))
	assert.Equal(t, []string{"POSITION_CARTESIAN", "COLOR_PACKED", "NORMAL_SPHEREMAPPED", "INTENSITY"}, layout.Names())

	_, err = ParseAttributes([]string{"POSITION_CARTESIAN", "WHATEVER"})
	assert.Error(t, err)

	_, err = ParseAttributes([]string{"COLOR_PACKED"})
	assert.Error(t, err)

	_, err = ParseAttributes(nil)
	assert.Error(t, err)
}

func TestLASAttributes(t *testing.T) {
	layout := LASAttributes()
	assert.True(t, layout.HasColors())
	assert.True(t, layout.Has(SourceID))
	assert.Equal(t, 12+4+2+1+1+1+2, layout.ByteSize)
}

func TestPointBufferFinalize(t *testing.T) {
	layout, err := ParseAttributes([]string{"POSITION_CARTESIAN", "CLASSIFICATION"})
	require.NoError(t, err)

	b := NewPointBuffer(3, layout)
	assert.Nil(t, b.Colors)
	assert.Len(t, b.Classifications, 3)
	assert.Equal(t, []uint32{0, 1, 2}, b.Indices)

	b.SetPosition(0, r3.Vector{X: 1, Y: 2, Z: 3})
	b.SetPosition(1, r3.Vector{X: -1, Y: 0, Z: 3})
	b.SetPosition(2, r3.Vector{X: 0, Y: 4, Z: 0})
	b.Classifications[0] = 6
	b.Classifications[1] = 2
	b.Classifications[2] = 6
	b.Finalize()

	require.NotNil(t, b.TightBoundingBox)
	assert.Equal(t, r3.Vector{X: -1, Y: 0, Z: 0}, b.TightBoundingBox.Min())
	assert.Equal(t, r3.Vector{X: 1, Y: 4, Z: 3}, b.TightBoundingBox.Max())
	assert.Equal(t, r3.Vector{X: 0, Y: 2, Z: 2}, b.Mean)
	assert.Equal(t, []uint8{2, 6}, b.Classes())

	assert.False(t, b.AllClassesHidden(nil))
	assert.False(t, b.AllClassesHidden(map[uint8]bool{6: true}))
	assert.True(t, b.AllClassesHidden(map[uint8]bool{2: true, 6: true}))
}

func TestPointBufferPoint(t *testing.T) {
	layout, err := ParseAttributes([]string{"POSITION_CARTESIAN", "RGB_PACKED", "INTENSITY"})
	require.NoError(t, err)

	b := NewPointBuffer(2, layout)
	b.SetPosition(1, r3.Vector{X: 1, Y: 1, Z: 1})
	copy(b.Colors[4:], []uint8{10, 20, 30, 255})
	b.Intensities[1] = 900

	p := b.Point(1, r3.Vector{X: 100, Y: 200, Z: 300}, "04")
	assert.Equal(t, r3.Vector{X: 101, Y: 201, Z: 301}, p.Position())
	assert.Equal(t, uint8(10), p.R)
	assert.Equal(t, uint8(30), p.B)
	assert.Equal(t, uint16(900), p.Intensity)
	assert.Equal(t, uint8(0), p.Classification)
	assert.Equal(t, &PointExtend{NodeName: "04", PointIndex: 1}, p.PointExtend)
}
