package converters

// Adjusts the elevation of exported points given their world coordinates
type ElevationCorrector interface {
	CorrectElevation(x, y, z float64) float64
}

type OffsetElevationCorrector struct {
	Offset float64
}

func NewOffsetElevationCorrector(offset float64) ElevationCorrector {
	return &OffsetElevationCorrector{
		Offset: offset,
	}
}

func (c *OffsetElevationCorrector) CorrectElevation(x, y, z float64) float64 {
	return z + c.Offset
}

type NoopElevationCorrector struct{}

func (NoopElevationCorrector) CorrectElevation(x, y, z float64) float64 {
	return z
}
