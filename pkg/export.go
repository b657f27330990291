package pkg

import (
	"github.com/ecopia-map/potree_streamer/internal/converters"
	"github.com/edaniels/lidario"
	"github.com/golang/glog"
	"go.uber.org/multierr"
)

// Writes the loaded points of the visible nodes of clouds to a LAS file in world coordinates.
// A nil corrector keeps elevations. Returns the number of points written.
func (p *Potree) ExportLAS(path string, clouds []*PointCloud, corrector converters.ElevationCorrector) (written int, err error) {
	if corrector == nil {
		corrector = converters.NoopElevationCorrector{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	hasColor := false
	for _, pc := range clouds {
		if pc.index.Layout().HasColors() {
			hasColor = true
		}
	}

	lf, err := lidario.NewLasFile(path, "w")
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	pointFormatID := 0
	if hasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{PointFormatID: byte(pointFormatID)}); err != nil {
		return 0, err
	}

	for _, pc := range clouds {
		if pc.disposed {
			continue
		}
		for _, v := range pc.visible {
			buf, ok := p.sched.Geometry(v.Node)
			if !ok {
				continue
			}
			for i := 0; i < buf.NumPoints; i++ {
				pt := buf.Point(i, pc.Position, v.Node.Key())
				returnNumber, numberOfReturns := pt.ReturnNumber, pt.NumberOfReturns
				if returnNumber == 0 {
					returnNumber, numberOfReturns = 1, 1
				}
				pr0 := &lidario.PointRecord0{
					X:             pt.X,
					Y:             pt.Y,
					Z:             corrector.CorrectElevation(pt.X, pt.Y, pt.Z),
					Intensity:     pt.Intensity,
					BitField:      lidario.PointBitField{Value: (returnNumber & 0x07) | (numberOfReturns&0x07)<<3},
					ClassBitField: lidario.ClassificationBitField{Value: pt.Classification & 0x1f},
					PointSourceID: pt.SourceID,
				}
				var lp lidario.LasPointer = pr0
				if hasColor {
					lp = &lidario.PointRecord2{
						PointRecord0: pr0,
						RGB: &lidario.RgbData{
							Red:   uint16(pt.R) * 256,
							Green: uint16(pt.G) * 256,
							Blue:  uint16(pt.B) * 256,
						},
					}
				}
				if err = lf.AddLasPoint(lp); err != nil {
					return written, err
				}
				written++
			}
		}
	}
	glog.Infof("exported %d points to %s", written, path)
	return written, nil
}
