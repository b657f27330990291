package loader

import (
	"os"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

// Decodes LAS payloads. The LAS reader works on files so the payload is spooled to a temporary
// file first. Coordinates are absolute and are moved into the local frame of the dataset.
type LASDecoder struct {
	// Directory for spooled payloads, the system default when empty
	TempDir string
}

func (d *LASDecoder) Decode(node *octree.Node, b []byte) (buf *data.PointBuffer, err error) {
	idx := node.Tree()
	if idx.Format() == octree.FormatLAZ {
		return nil, ErrLAZUnsupported
	}

	f, err := os.CreateTemp(d.TempDir, node.Key()+"-*.las")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	defer func() {
		err = multierr.Append(err, os.Remove(name))
	}()
	_, err = f.Write(b)
	err = multierr.Combine(err, f.Close())
	if err != nil {
		return nil, err
	}

	lf, err := lidario.NewLasFile(name, "r")
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, lf.Close())
	}()

	offset := idx.Offset()
	n := lf.Header.NumberPoints
	buf = data.NewPointBuffer(n, idx.Layout())
	for i := 0; i < n; i++ {
		p, perr := lf.LasPoint(i)
		if perr != nil {
			return nil, perr
		}
		pd := p.PointData()
		buf.SetPosition(i, r3.Vector{X: pd.X, Y: pd.Y, Z: pd.Z}.Sub(offset))
		buf.Intensities[i] = pd.Intensity
		buf.Classifications[i] = pd.ClassBitField.Value & 0x1f
		buf.ReturnNumbers[i] = pd.BitField.Value & 0x07
		buf.NumberOfReturns[i] = (pd.BitField.Value >> 3) & 0x07
		buf.SourceIDs[i] = pd.PointSourceID

		buf.Colors[4*i+3] = 255
		if rgb := p.RgbData(); rgb != nil {
			buf.Colors[4*i] = uint8(rgb.Red / 256)
			buf.Colors[4*i+1] = uint8(rgb.Green / 256)
			buf.Colors[4*i+2] = uint8(rgb.Blue / 256)
		}
	}

	buf.Finalize()
	return buf, nil
}
