package loader

import (
	"context"
	"testing"

	"github.com/ecopia-map/potree_streamer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryDecoderQuantized(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{
		Min: [3]float64{1000, 2000, 10}, Max: [3]float64{1100, 2100, 110},
		Classes: map[string]uint8{"7": 6},
	})
	ds.AddNode("", 10)
	ds.AddNode("7", 4)
	ds.Build()
	idx, src := openIndex(t, ds)

	node := mustResolve(t, idx, "7")
	_, b, err := src.Fetch(context.Background(), idx.PayloadPath(node))
	require.NoError(t, err)

	buf, err := (&BinaryDecoder{}).Decode(node, b)
	require.NoError(t, err)
	require.Equal(t, 4, buf.NumPoints)

	// first point sits at 1/8 of the diagonal of the octant [50,100]^3 in local space
	p := buf.Position(0)
	assert.InDelta(t, 56.25, p.X, 1e-3)
	assert.InDelta(t, 56.25, p.Y, 1e-3)
	assert.InDelta(t, 56.25, p.Z, 1e-3)
	for i := 0; i < buf.NumPoints; i++ {
		assert.True(t, node.BoundingBox().ContainsPoint(buf.Position(i)))
	}

	assert.Equal(t, []uint8{0, 0, 128, 255}, buf.Colors[0:4])
	assert.Equal(t, []uint8{1, 0, 128, 255}, buf.Colors[4:8])
	assert.Equal(t, []uint16{0, 1, 2, 3}, buf.Intensities)
	assert.Equal(t, []uint8{6}, buf.Classes())
	assert.Nil(t, buf.Normals)

	require.NotNil(t, buf.TightBoundingBox)
	assert.InDelta(t, 56.25, buf.TightBoundingBox.Xmin, 1e-3)
	assert.InDelta(t, 93.75, buf.TightBoundingBox.Xmax, 1e-3)
	assert.InDelta(t, 75.0, buf.Mean.Y, 1e-3)
}

func TestBinaryDecoderLegacyFloats(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{
		Version:    "1.3",
		Attributes: []string{"POSITION_CARTESIAN", "RGB_PACKED", "NORMAL_OCT16", "SOURCE_ID", "GPS_TIME"},
		Min:        [3]float64{500, 500, 500},
		Max:        [3]float64{600, 600, 600},
	})
	ds.AddNode("", 2)
	ds.Build()
	idx, src := openIndex(t, ds)

	node := idx.Root()
	assert.Equal(t, "data/r", idx.PayloadPath(node))
	_, b, err := src.Fetch(context.Background(), idx.PayloadPath(node))
	require.NoError(t, err)

	buf, err := (&BinaryDecoder{}).Decode(node, b)
	require.NoError(t, err)
	require.Equal(t, 2, buf.NumPoints)
	assert.InDelta(t, 25.0, buf.Position(0).X, 1e-4)
	assert.InDelta(t, 75.0, buf.Position(1).Z, 1e-4)
	assert.Equal(t, uint8(255), buf.Colors[3])
	assert.Equal(t, []uint16{7, 7}, buf.SourceIDs)
	assert.Equal(t, []float64{0, 1}, buf.GPSTimes)
	assert.InDelta(t, 1.0, buf.Normal(1).Z, 1e-3)
	assert.Nil(t, buf.Classifications)
}

func TestBinaryDecoderStrideMismatch(t *testing.T) {
	ds := testutil.NewDataset(testutil.DatasetOptions{})
	ds.AddNode("", 3)
	ds.Build()
	idx, _ := openIndex(t, ds)

	_, err := (&BinaryDecoder{}).Decode(idx.Root(), make([]byte, 7))
	assert.Error(t, err)

	buf, err := (&BinaryDecoder{}).Decode(idx.Root(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.NumPoints)
}

func TestNormalDecoding(t *testing.T) {
	n := decodeOct16(128, 128)
	assert.InDelta(t, 1.0, n.Norm(), 1e-9)
	assert.InDelta(t, 1.0, n.Z, 1e-3)

	// lower hemisphere folds onto the corners
	n = decodeOct16(255, 255)
	assert.InDelta(t, 1.0, n.Norm(), 1e-9)
	assert.True(t, n.Z < 0)

	n = decodeSphereMapped(128, 128)
	assert.InDelta(t, 1.0, n.Z, 1e-3)
	n = decodeSphereMapped(0, 128)
	assert.InDelta(t, -1.0, n.Z, 1e-3)
}
