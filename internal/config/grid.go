package config

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/regrid"
)

// GridFile describes a destination grid of 1-d coordinates. Each
// coordinate gives either explicit values or a linspace range.
type GridFile struct {
	CoordSys    string                     `json:"coord_sys" yaml:"coord_sys" validate:"omitempty,oneof=spherical Cartesian cartesian"`
	Coordinates map[string]*GridCoordinate `json:"coordinates" yaml:"coordinates" validate:"required,min=1,max=3,dive,required"`
	AxisOrder   []string                   `json:"axis_order,omitempty" yaml:"axis_order,omitempty" validate:"omitempty,max=3,dive,required"`
	Cyclic      *bool                      `json:"cyclic,omitempty" yaml:"cyclic,omitempty"`
}

// GridCoordinate is one destination coordinate.
type GridCoordinate struct {
	Units    string    `json:"units,omitempty" yaml:"units,omitempty"`
	Values   []float64 `json:"values,omitempty" yaml:"values,omitempty" validate:"required_without=Linspace"`
	Linspace *Linspace `json:"linspace,omitempty" yaml:"linspace,omitempty" validate:"required_without=Values"`
	// Bounds adds cell bounds half way between neighbouring values.
	Bounds bool `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// Linspace is num evenly spaced values from start to stop inclusive.
type Linspace struct {
	Start float64 `json:"start" yaml:"start"`
	Stop  float64 `json:"stop" yaml:"stop"`
	Num   int     `json:"num" yaml:"num" validate:"min=1"`
}

// LoadGridFile loads a GridFile from a JSON or YAML file of at most 1MB.
func LoadGridFile(path string) (*GridFile, error) {
	data, ext, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	g := &GridFile{}
	if err := decode(data, ext, g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid file: %w", err)
	}
	return g, nil
}

// Validate checks that the grid description is complete.
func (g *GridFile) Validate() error {
	if err := validate.Struct(g); err != nil {
		return err
	}
	for _, name := range sortedNames(g.Coordinates) {
		c := g.Coordinates[name]
		if err := validate.Struct(c); err != nil {
			return fmt.Errorf("coordinate %q: %w", name, err)
		}
		if c.Values != nil && c.Linspace != nil {
			return fmt.Errorf("coordinate %q: values and linspace are mutually exclusive", name)
		}
	}
	return nil
}

// GetCoordSys returns the coordinate system or the default, spherical.
func (g *GridFile) GetCoordSys() regrid.CoordSys {
	if g.CoordSys == "" {
		return regrid.Spherical
	}
	cs, err := regrid.ParseCoordSys(g.CoordSys)
	if err != nil {
		return regrid.Spherical
	}
	return cs
}

// GridSpec builds the destination grid specification.
func (g *GridFile) GridSpec() regrid.GridSpec {
	spec := regrid.GridSpec{
		Coords:    make(map[string]*field.Coordinate, len(g.Coordinates)),
		AxisOrder: append([]string(nil), g.AxisOrder...),
	}
	if g.Cyclic != nil {
		spec.Cyclic = ptrBool(*g.Cyclic)
	}
	for name, gc := range g.Coordinates {
		values := gc.Values
		if gc.Linspace != nil {
			values = linspace(*gc.Linspace)
		}
		c := field.NewDimensionCoordinate("", "", gc.Units, values)
		if gc.Bounds {
			lo, hi := boundsRange(name, gc.Units)
			c.WithBounds(cellBounds(values, lo, hi))
		}
		spec.Coords[name] = c
	}
	return spec
}

func linspace(l Linspace) []float64 {
	if l.Num == 1 {
		return []float64{l.Start}
	}
	return floats.Span(make([]float64, l.Num), l.Start, l.Stop)
}

// boundsRange limits latitude bounds to the poles.
func boundsRange(name, units string) (float64, float64) {
	if name == "latitude" && (units == "" || units == "degrees_north") {
		return -90, 90
	}
	return math.Inf(-1), math.Inf(1)
}

// cellBounds places bounds half way between neighbouring values and
// extrapolates the outer edges, clamped to [lo, hi].
func cellBounds(values []float64, lo, hi float64) [][2]float64 {
	n := len(values)
	out := make([][2]float64, n)
	if n == 1 {
		out[0] = [2]float64{values[0], values[0]}
		return out
	}
	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = (values[i-1] + values[i]) / 2
	}
	edges[0] = values[0] - (edges[1] - values[0])
	edges[n] = values[n-1] + (values[n-1] - edges[n-1])
	for i := range edges {
		if edges[i] < lo {
			edges[i] = lo
		}
		if edges[i] > hi {
			edges[i] = hi
		}
	}
	for i := range out {
		out[i] = [2]float64{edges[i], edges[i+1]}
	}
	return out
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
