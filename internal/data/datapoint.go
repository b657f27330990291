package data

import "github.com/golang/geo/r3"

// Contains data of a single Point Cloud Point, namely X,Y,Z world coords,
// R,G,B color components, Intensity, Classification and return information
type Point struct {
	X              float64
	Y              float64
	Z              float64
	R              uint8
	G              uint8
	B              uint8
	Intensity      uint16
	Classification uint8

	ReturnNumber    uint8
	NumberOfReturns uint8
	SourceID        uint16
	GPSTime         float64

	// extend in point buffer
	PointExtend *PointExtend
}

// Locates the point inside the payload it was read from
type PointExtend struct {
	NodeName   string
	PointIndex int
}

// Builds a new Point from the given coordinates, colors, intensity and classification values
func NewPoint(X, Y, Z float64, R, G, B uint8, Intensity uint16, Classification uint8, pointExtend *PointExtend) *Point {
	return &Point{
		X:              X,
		Y:              Y,
		Z:              Z,
		R:              R,
		G:              G,
		B:              B,
		Intensity:      Intensity,
		Classification: Classification,
		PointExtend:    pointExtend,
	}
}

func (p *Point) Position() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Extracts point i of the buffer, translated to world coordinates by offset
func (b *PointBuffer) Point(i int, offset r3.Vector, nodeName string) *Point {
	pos := b.Position(i).Add(offset)
	p := NewPoint(pos.X, pos.Y, pos.Z, 0, 0, 0, 0, 0, &PointExtend{NodeName: nodeName, PointIndex: int(b.Indices[i])})
	if b.Colors != nil {
		p.R, p.G, p.B = b.Colors[4*i], b.Colors[4*i+1], b.Colors[4*i+2]
	}
	if b.Intensities != nil {
		p.Intensity = b.Intensities[i]
	}
	if b.Classifications != nil {
		p.Classification = b.Classifications[i]
	}
	if b.ReturnNumbers != nil {
		p.ReturnNumber = b.ReturnNumbers[i]
	}
	if b.NumberOfReturns != nil {
		p.NumberOfReturns = b.NumberOfReturns[i]
	}
	if b.SourceIDs != nil {
		p.SourceID = b.SourceIDs[i]
	}
	if b.GPSTimes != nil {
		p.GPSTime = b.GPSTimes[i]
	}
	return p
}
