package loader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/golang/geo/r3"
)

// Decodes the fixed stride potree binary format. Record fields follow the attribute layout of
// the dataset, all values little endian.
type BinaryDecoder struct{}

func (d *BinaryDecoder) Decode(node *octree.Node, b []byte) (*data.PointBuffer, error) {
	idx := node.Tree()
	layout := idx.Layout()
	stride := layout.ByteSize
	if stride == 0 {
		return nil, fmt.Errorf("empty point record layout")
	}
	if len(b)%stride != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a multiple of the %d bytes record", len(b), stride)
	}

	n := len(b) / stride
	buf := data.NewPointBuffer(n, layout)
	quantized := idx.Version().QuantizedPositions()
	scale := idx.Scale()
	min := node.BoundingBox().Min()

	for i := 0; i < n; i++ {
		offset := i * stride
		for _, attr := range layout.Attributes {
			rec := b[offset : offset+attr.ByteSize]
			switch attr.Name {
			case data.PositionCartesian:
				var p r3.Vector
				if quantized {
					p = r3.Vector{
						X: float64(binary.LittleEndian.Uint32(rec[0:]))*scale + min.X,
						Y: float64(binary.LittleEndian.Uint32(rec[4:]))*scale + min.Y,
						Z: float64(binary.LittleEndian.Uint32(rec[8:]))*scale + min.Z,
					}
				} else {
					p = r3.Vector{
						X: float64(readFloat32(rec[0:])),
						Y: float64(readFloat32(rec[4:])),
						Z: float64(readFloat32(rec[8:])),
					}
				}
				buf.SetPosition(i, p)
			case data.ColorPacked, data.RGBAPacked:
				copy(buf.Colors[4*i:4*i+4], rec)
			case data.RGBPacked:
				copy(buf.Colors[4*i:4*i+3], rec)
				buf.Colors[4*i+3] = 255
			case data.Intensity:
				buf.Intensities[i] = binary.LittleEndian.Uint16(rec)
			case data.Classification:
				buf.Classifications[i] = rec[0]
			case data.ReturnNumber:
				buf.ReturnNumbers[i] = rec[0]
			case data.NumberOfReturns:
				buf.NumberOfReturns[i] = rec[0]
			case data.SourceID:
				buf.SourceIDs[i] = binary.LittleEndian.Uint16(rec)
			case data.GPSTime:
				buf.GPSTimes[i] = math.Float64frombits(binary.LittleEndian.Uint64(rec))
			case data.NormalFloats, data.Normal:
				setNormal(buf, i, r3.Vector{
					X: float64(readFloat32(rec[0:])),
					Y: float64(readFloat32(rec[4:])),
					Z: float64(readFloat32(rec[8:])),
				})
			case data.NormalSphereMapped:
				setNormal(buf, i, decodeSphereMapped(rec[0], rec[1]))
			case data.NormalOct16:
				setNormal(buf, i, decodeOct16(rec[0], rec[1]))
			}
			offset += attr.ByteSize
		}
	}

	buf.Finalize()
	return buf, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func setNormal(buf *data.PointBuffer, i int, n r3.Vector) {
	buf.Normals[3*i] = float32(n.X)
	buf.Normals[3*i+1] = float32(n.Y)
	buf.Normals[3*i+2] = float32(n.Z)
}

// Inverse of the spheremap transform, see
// http://aras-p.info/texts/CompactNormalStorage.html#method04spheremap
func decodeSphereMapped(bx, by uint8) r3.Vector {
	ex := float64(bx)/255*2 - 1
	ey := float64(by)/255*2 - 1
	l := 1 - ex*ex - ey*ey
	if l < 0 {
		l = 0
	}
	s := math.Sqrt(l)
	return r3.Vector{X: 2 * ex * s, Y: 2 * ey * s, Z: 2*l - 1}
}

// Octahedral normal encoding on 16 bits
func decodeOct16(bx, by uint8) r3.Vector {
	u := float64(bx)/255*2 - 1
	v := float64(by)/255*2 - 1
	z := 1 - math.Abs(u) - math.Abs(v)
	x, y := u, v
	if z < 0 {
		x = (1 - math.Abs(v)) * sign(u)
		y = (1 - math.Abs(u)) * sign(v)
	}
	n := r3.Vector{X: x, Y: y, Z: z}
	if l := n.Norm(); l > 0 {
		n = n.Mul(1 / l)
	}
	return n
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
