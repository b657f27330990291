package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/edaniels/lidario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lasManifest = `{
	"version": "1.4",
	"octreeDir": "data",
	"boundingBox": {"lx": 1000, "ly": 2000, "lz": 0, "ux": 1100, "uy": 2100, "uz": 100},
	"pointAttributes": %q,
	"spacing": 2,
	"scale": 0.01,
	"hierarchyStepSize": 5,
	"hierarchy": [["r", 2]]
}`

func lasIndex(t *testing.T, kind string) *octree.Index {
	t.Helper()
	m, err := octree.ParseManifest([]byte(fmt.Sprintf(lasManifest, kind)))
	require.NoError(t, err)
	idx, err := octree.NewIndex(context.Background(), m, nil)
	require.NoError(t, err)
	return idx
}

func writeLAS(t *testing.T) []byte {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "r.las")
	lf, err := lidario.NewLasFile(fn, "w")
	require.NoError(t, err)
	require.NoError(t, lf.AddHeader(lidario.LasHeader{PointFormatID: 2}))

	points := []struct {
		x, y, z   float64
		class     uint8
		intensity uint16
	}{
		{1010, 2020, 30, 6, 100},
		{1090, 2080, 70, 2, 200},
	}
	for _, p := range points {
		require.NoError(t, lf.AddLasPoint(&lidario.PointRecord2{
			PointRecord0: &lidario.PointRecord0{
				X: p.x, Y: p.y, Z: p.z,
				Intensity:     p.intensity,
				BitField:      lidario.PointBitField{Value: 2 | (3 << 3)},
				ClassBitField: lidario.ClassificationBitField{Value: p.class},
				PointSourceID: 9,
			},
			RGB: &lidario.RgbData{Red: 255 * 256, Green: 128 * 256, Blue: 0},
		}))
	}
	require.NoError(t, lf.Close())

	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	return b
}

func TestLASDecoder(t *testing.T) {
	idx := lasIndex(t, "LAS")
	assert.Equal(t, "data/r.las", idx.PayloadPath(idx.Root()))
	assert.IsType(t, &LASDecoder{}, DecoderFor(idx))

	buf, err := (&LASDecoder{TempDir: t.TempDir()}).Decode(idx.Root(), writeLAS(t))
	require.NoError(t, err)
	require.Equal(t, 2, buf.NumPoints)

	p := buf.Position(0)
	assert.InDelta(t, 10.0, p.X, 0.01)
	assert.InDelta(t, 20.0, p.Y, 0.01)
	assert.InDelta(t, 30.0, p.Z, 0.01)
	assert.Equal(t, []uint8{2, 6}, buf.Classes())
	assert.Equal(t, []uint16{100, 200}, buf.Intensities)
	assert.Equal(t, []uint8{2, 2}, buf.ReturnNumbers)
	assert.Equal(t, []uint8{3, 3}, buf.NumberOfReturns)
	assert.Equal(t, []uint16{9, 9}, buf.SourceIDs)
	assert.Equal(t, []uint8{255, 128, 0, 255}, buf.Colors[0:4])
	assert.InDelta(t, 90.0, buf.TightBoundingBox.Xmax, 0.01)
}

func TestLASDecoderRejectsGarbage(t *testing.T) {
	idx := lasIndex(t, "LAS")
	_, err := (&LASDecoder{}).Decode(idx.Root(), []byte("not a las file"))
	assert.Error(t, err)
}

func TestLAZUnsupported(t *testing.T) {
	idx := lasIndex(t, "LAZ")
	assert.Equal(t, "data/r.laz", idx.PayloadPath(idx.Root()))
	_, err := DecoderFor(idx).Decode(idx.Root(), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrLAZUnsupported)
}
