// Package testutil provides shared test utilities and grid fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/gridmap/internal/field"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// CellBounds returns contiguous (lower, upper) bounds for cells centred on
// centres, placing each interior bound halfway between neighbours and
// extrapolating the outer two.
func CellBounds(centres []float64) [][2]float64 {
	n := len(centres)
	out := make([][2]float64, n)
	if n == 1 {
		out[0] = [2]float64{centres[0] - 0.5, centres[0] + 0.5}
		return out
	}
	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = (centres[i-1] + centres[i]) / 2
	}
	edges[0] = centres[0] - (edges[1] - centres[0])
	edges[n] = centres[n-1] + (centres[n-1] - edges[n-1])
	for i := range out {
		out[i] = [2]float64{edges[i], edges[i+1]}
	}
	return out
}

// LatLonField returns a field named "tas" with data of shape (lat, lon)
// and 1-d latitude and longitude dimension coordinates. Cell bounds are
// attached when withBounds is set, and fill gives the value at each cell
// centre.
func LatLonField(t *testing.T, lons, lats []float64, withBounds bool, fill func(lat, lon float64) float64) *field.Field {
	t.Helper()
	f := field.New("tas")
	f.Units = "K"
	yAxis := f.AddDomainAxis(len(lats))
	xAxis := f.AddDomainAxis(len(lons))

	lat := field.NewDimensionCoordinate("Y", "latitude", "degrees_north", lats)
	lon := field.NewDimensionCoordinate("X", "longitude", "degrees_east", lons)
	if withBounds {
		lb := CellBounds(lats)
		for i := range lb {
			lb[i][0] = clamp(lb[i][0], -90, 90)
			lb[i][1] = clamp(lb[i][1], -90, 90)
		}
		lat.WithBounds(lb)
		lon.WithBounds(CellBounds(lons))
	}
	_, err := f.SetConstruct(lat, yAxis)
	AssertNoError(t, err)
	_, err = f.SetConstruct(lon, xAxis)
	AssertNoError(t, err)

	data := field.NewMaskedArray(len(lats), len(lons))
	for j, y := range lats {
		for i, x := range lons {
			v := 0.0
			if fill != nil {
				v = fill(y, x)
			}
			data.Set(v, j, i)
		}
	}
	AssertNoError(t, f.SetData(data, yAxis, xAxis))
	return f
}

// CartesianField returns a field with one dimension coordinate per entry
// of axes, named "x", "y" and "z" in turn, and data spanning them in the
// given order. fill receives the coordinate values of each cell.
func CartesianField(t *testing.T, withBounds bool, fill func(x ...float64) float64, axes ...[]float64) *field.Field {
	t.Helper()
	names := []string{"x", "y", "z"}
	tags := []string{"X", "Y", "Z"}
	f := field.New("density")
	f.Units = "kg m-3"
	keys := make([]string, len(axes))
	shape := make([]int, len(axes))
	for d, values := range axes {
		keys[d] = f.AddDomainAxis(len(values))
		shape[d] = len(values)
		c := field.NewDimensionCoordinate(tags[d], names[d], "m", values)
		c.NcVar = names[d]
		if withBounds {
			c.WithBounds(CellBounds(values))
		}
		_, err := f.SetConstruct(c, keys[d])
		AssertNoError(t, err)
	}

	data := field.NewMaskedArray(shape...)
	idx := make([]int, len(shape))
	x := make([]float64, len(shape))
	for p := 0; p < data.Size(); p++ {
		field.Unravel(p, shape, idx)
		for d := range idx {
			x[d] = axes[d][idx[d]]
		}
		if fill != nil {
			data.Data.Elements[p] = fill(x...)
		}
	}
	AssertNoError(t, f.SetData(data, keys...))
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
