package data

import (
	"fmt"
	"strings"
)

type AttributeName string

const (
	PositionCartesian  AttributeName = "POSITION_CARTESIAN"
	ColorPacked        AttributeName = "COLOR_PACKED"
	RGBAPacked         AttributeName = "RGBA_PACKED"
	RGBPacked          AttributeName = "RGB_PACKED"
	NormalFloats       AttributeName = "NORMAL_FLOATS"
	Normal             AttributeName = "NORMAL"
	Filler1B           AttributeName = "FILLER_1B"
	Intensity          AttributeName = "INTENSITY"
	Classification     AttributeName = "CLASSIFICATION"
	NormalSphereMapped AttributeName = "NORMAL_SPHEREMAPPED"
	NormalOct16        AttributeName = "NORMAL_OCT16"
	ReturnNumber       AttributeName = "RETURN_NUMBER"
	NumberOfReturns    AttributeName = "NUMBER_OF_RETURNS"
	SourceID           AttributeName = "SOURCE_ID"
	GPSTime            AttributeName = "GPS_TIME"
)

// Record size in bytes of every known attribute
var attributeSizes = map[AttributeName]int{
	PositionCartesian:  12,
	ColorPacked:        4,
	RGBAPacked:         4,
	RGBPacked:          3,
	NormalFloats:       12,
	Normal:             12,
	Filler1B:           1,
	Intensity:          2,
	Classification:     1,
	NormalSphereMapped: 2,
	NormalOct16:        2,
	ReturnNumber:       1,
	NumberOfReturns:    1,
	SourceID:           2,
	GPSTime:            8,
}

// One field of a point record
type PointAttribute struct {
	Name     AttributeName
	ByteSize int
}

func NewPointAttribute(name string) (PointAttribute, error) {
	n := AttributeName(strings.ToUpper(strings.TrimSpace(name)))
	size, ok := attributeSizes[n]
	if !ok {
		return PointAttribute{}, fmt.Errorf("unknown point attribute %q", name)
	}
	return PointAttribute{Name: n, ByteSize: size}, nil
}

// Ordered description of the fields of a fixed stride point record
type PointAttributes struct {
	Attributes []PointAttribute
	ByteSize   int
}

// Builds the layout from the attribute names declared by a dataset
func ParseAttributes(names []string) (*PointAttributes, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("empty point attribute list")
	}
	layout := &PointAttributes{}
	hasPosition := false
	for _, name := range names {
		attr, err := NewPointAttribute(name)
		if err != nil {
			return nil, err
		}
		if attr.Name == PositionCartesian {
			hasPosition = true
		}
		layout.Add(attr)
	}
	if !hasPosition {
		return nil, fmt.Errorf("point attributes do not declare %s", PositionCartesian)
	}
	return layout, nil
}

// Layout used by LAS sourced datasets
func LASAttributes() *PointAttributes {
	layout := &PointAttributes{}
	for _, name := range []AttributeName{PositionCartesian, RGBAPacked, Intensity, Classification, ReturnNumber, NumberOfReturns, SourceID} {
		layout.Add(PointAttribute{Name: name, ByteSize: attributeSizes[name]})
	}
	return layout
}

func (p *PointAttributes) Add(attr PointAttribute) {
	p.Attributes = append(p.Attributes, attr)
	p.ByteSize += attr.ByteSize
}

func (p *PointAttributes) Has(name AttributeName) bool {
	for _, attr := range p.Attributes {
		if attr.Name == name {
			return true
		}
	}
	return false
}

func (p *PointAttributes) HasColors() bool {
	return p.Has(ColorPacked) || p.Has(RGBAPacked) || p.Has(RGBPacked)
}

func (p *PointAttributes) HasNormals() bool {
	return p.Has(Normal) || p.Has(NormalFloats) || p.Has(NormalSphereMapped) || p.Has(NormalOct16)
}

func (p *PointAttributes) Names() []string {
	names := make([]string, len(p.Attributes))
	for i, attr := range p.Attributes {
		names[i] = string(attr.Name)
	}
	return names
}
