package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	v, err := Parse("1.7")
	require.NoError(t, err)
	assert.Equal(t, "1.7", v.String())
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, uint64(7), v.Minor())

	_, err = Parse("not-a-version")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	v := MustParse("1.5")

	assert.True(t, v.NewerThan("1.4"))
	assert.False(t, v.NewerThan("1.5"))
	assert.False(t, v.NewerThan("1.6"))
	assert.True(t, v.NewerThan("0.9"))

	assert.True(t, v.EqualOrHigher("1.5"))
	assert.True(t, v.EqualOrHigher("1.3"))
	assert.False(t, v.EqualOrHigher("1.6"))
	assert.False(t, v.EqualOrHigher("2.0"))

	assert.True(t, v.UpTo("1.5"))
	assert.True(t, v.UpTo("1.8"))
	assert.False(t, v.UpTo("1.4"))

	// minor versions compare numerically
	assert.True(t, MustParse("1.10").NewerThan("1.9"))
	// patch numbers are ignored
	assert.False(t, MustParse("1.5.3").NewerThan("1.5"))
}

func TestQuirks(t *testing.T) {
	cases := []struct {
		version   string
		quantized bool
		bin       bool
		chunked   bool
	}{
		{"1.3", false, false, false},
		{"1.4", true, true, false},
		{"1.5", true, true, true},
		{"1.7", true, true, true},
		{"1.8.2", true, true, true},
	}
	for _, c := range cases {
		v := MustParse(c.version)
		assert.Equal(t, c.quantized, v.QuantizedPositions(), c.version)
		assert.Equal(t, c.bin, v.BinExtension(), c.version)
		assert.Equal(t, c.chunked, v.ChunkedHierarchy(), c.version)
	}
}
