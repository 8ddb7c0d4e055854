// Package units provides shared constants, validation and conversion for
// grid coordinate units.
package units

import (
	"fmt"
	"math"
	"strings"
)

// Longitude unit spellings accepted for spherical X coordinates.
const (
	DegreesEast = "degrees_east"
	DegreeEast  = "degree_east"
	DegreesE    = "degrees_E"
	DegreeE     = "degree_E"
	DegreesEAbb = "degreesE"
	DegreeEAbb  = "degreeE"
)

// Latitude unit spellings accepted for spherical Y coordinates.
const (
	DegreesNorth = "degrees_north"
	DegreeNorth  = "degree_north"
	DegreesN     = "degrees_N"
	DegreeN      = "degree_N"
	DegreesNAbb  = "degreesN"
	DegreeNAbb   = "degreeN"
)

// Plain units understood by the Cartesian conformance check.
const (
	Degrees = "degrees"
	Radians = "radians"
	Metre   = "m"
	Km      = "km"
	Cm      = "cm"
	Mm      = "mm"
	One     = "1"
)

// Dimension groups units that can be converted into each other.
type Dimension int

const (
	Unknown Dimension = iota
	Angle
	Length
	Dimensionless
)

func (d Dimension) String() string {
	switch d {
	case Angle:
		return "angle"
	case Length:
		return "length"
	case Dimensionless:
		return "dimensionless"
	default:
		return "unknown"
	}
}

// ValidLongitudeUnits contains all longitude unit values
var ValidLongitudeUnits = []string{DegreesEast, DegreeEast, DegreesE, DegreeE, DegreesEAbb, DegreeEAbb}

// ValidLatitudeUnits contains all latitude unit values
var ValidLatitudeUnits = []string{DegreesNorth, DegreeNorth, DegreesN, DegreeN, DegreesNAbb, DegreeNAbb}

// factor to the canonical unit of each dimension (degrees, metres, 1).
var scale = map[string]struct {
	dim    Dimension
	factor float64
}{
	Degrees:  {Angle, 1},
	"degree": {Angle, 1},
	Radians:  {Angle, 180 / math.Pi},
	"radian": {Angle, 180 / math.Pi},
	"rad":    {Angle, 180 / math.Pi},
	Metre:    {Length, 1},
	"metre":  {Length, 1},
	"meter":  {Length, 1},
	"metres": {Length, 1},
	"meters": {Length, 1},
	Km:       {Length, 1000},
	Cm:       {Length, 0.01},
	Mm:       {Length, 0.001},
	One:      {Dimensionless, 1},
	"":       {Dimensionless, 1},
}

// IsLongitude reports whether unit is a recognised longitude unit.
func IsLongitude(unit string) bool {
	return contains(ValidLongitudeUnits, unit)
}

// IsLatitude reports whether unit is a recognised latitude unit.
func IsLatitude(unit string) bool {
	return contains(ValidLatitudeUnits, unit)
}

// GetValidLongitudeString returns a comma-separated string of longitude units for error messages
func GetValidLongitudeString() string {
	return strings.Join(ValidLongitudeUnits, ", ")
}

// GetValidLatitudeString returns a comma-separated string of latitude units for error messages
func GetValidLatitudeString() string {
	return strings.Join(ValidLatitudeUnits, ", ")
}

func contains(list []string, unit string) bool {
	for _, u := range list {
		if unit == u {
			return true
		}
	}
	return false
}

func lookup(unit string) (Dimension, float64) {
	if IsLongitude(unit) || IsLatitude(unit) {
		return Angle, 1
	}
	s, ok := scale[strings.TrimSpace(unit)]
	if !ok {
		return Unknown, 0
	}
	return s.dim, s.factor
}

// DimensionOf returns the physical dimension of unit.
func DimensionOf(unit string) Dimension {
	d, _ := lookup(unit)
	return d
}

// Equivalent reports whether values in unit a can be converted to unit b.
// Identical strings are always equivalent, even when not recognised.
func Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	da, _ := lookup(a)
	db, _ := lookup(b)
	return da != Unknown && da == db
}

// ConversionFactor returns the multiplier that converts values in unit from
// into unit to.
func ConversionFactor(from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	df, ff := lookup(from)
	dt, ft := lookup(to)
	if df == Unknown || dt == Unknown || df != dt {
		return 0, fmt.Errorf("units %q and %q are not equivalent", from, to)
	}
	return ff / ft, nil
}

// Convert rescales values in place from unit from to unit to.
func Convert(values []float64, from, to string) error {
	f, err := ConversionFactor(from, to)
	if err != nil {
		return err
	}
	if f == 1 {
		return nil
	}
	for i := range values {
		values[i] *= f
	}
	return nil
}
