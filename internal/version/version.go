// Package version compares dataset format versions and maps them to binary layout quirks.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Layout quirks keyed by the versions that carry them
var (
	quantizedPositions = mustConstraint("> 1.3")
	binExtension       = mustConstraint(">= 1.4")
	chunkedHierarchy   = mustConstraint(">= 1.5")
)

// Version is a dataset format version such as "1.7". Only major and minor take part in comparisons.
type Version struct {
	raw string
	v   *semver.Version
}

func Parse(raw string) (*Version, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid format version %q: %w", raw, err)
	}
	return &Version{raw: raw, v: v}, nil
}

func MustParse(raw string) *Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Version) String() string {
	return v.raw
}

func (v *Version) Major() uint64 {
	return v.v.Major()
}

func (v *Version) Minor() uint64 {
	return v.v.Minor()
}

// Reports whether v is strictly newer than other
func (v *Version) NewerThan(other string) bool {
	o, err := semver.NewVersion(other)
	if err != nil {
		return false
	}
	if v.v.Major() != o.Major() {
		return v.v.Major() > o.Major()
	}
	return v.v.Minor() > o.Minor()
}

// Reports whether v is the same as or newer than other
func (v *Version) EqualOrHigher(other string) bool {
	o, err := semver.NewVersion(other)
	if err != nil {
		return false
	}
	if v.v.Major() != o.Major() {
		return v.v.Major() > o.Major()
	}
	return v.v.Minor() >= o.Minor()
}

// Reports whether v is not newer than other
func (v *Version) UpTo(other string) bool {
	return !v.NewerThan(other)
}

// Positions are stored as uint32 multiples of the dataset scale relative to the node corner.
// Older datasets store float32 coordinates.
func (v *Version) QuantizedPositions() bool {
	return quantizedPositions.Check(v.minorOnly())
}

// Binary payloads use the .bin extension
func (v *Version) BinExtension() bool {
	return binExtension.Check(v.minorOnly())
}

// The hierarchy is split in .hrc chunks fetched lazily, instead of being embedded in the manifest
func (v *Version) ChunkedHierarchy() bool {
	return chunkedHierarchy.Check(v.minorOnly())
}

func (v *Version) minorOnly() *semver.Version {
	return semver.New(v.v.Major(), v.v.Minor(), 0, "", "")
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
