package regrid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/testutil"
)

var (
	lons4 = []float64{45, 135, 225, 315}
	lats3 = []float64{-60, 0, 60}
)

func sumLatLon(lat, lon float64) float64 { return lat + lon }

func TestNewGridDescriptor_SphericalRectilinear(t *testing.T) {
	f := testutil.LatLonField(t, lons4, lats3, true, sumLatLon)
	xAxis := f.DataAxes()[1]
	f.SetCyclic(xAxis, true, Period)

	g, err := NewGridDescriptor(f, DescriptorOptions{
		CoordSys: Spherical,
		Role:     RoleSource,
		Method:   MethodConservative,
	})
	require.NoError(t, err)

	assert.Equal(t, SphericalRectilinear, g.Kind)
	assert.Equal(t, f.DataAxes(), g.AxisKeys, "axis keys are (Y, X)")
	assert.Equal(t, []int{0, 1}, g.AxisIndices)
	assert.Equal(t, []int{3, 4}, g.Shape)
	assert.True(t, g.Cyclic)
	require.Len(t, g.Coords, 2)
	if diff := cmp.Diff(g.Coords[0].Elements, lons4); diff != "" {
		t.Errorf("X coordinate mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(g.Coords[1].Elements, lats3); diff != "" {
		t.Errorf("Y coordinate mismatch (-got +want):\n%s", diff)
	}
	require.Len(t, g.Bounds, 2)
	assert.Equal(t, []int{4, 2}, g.Bounds[0].Shape)
	assert.Equal(t, 12, g.Size())

	// The descriptor holds copies.
	g.Coords[0].Elements[0] = -1
	_, lon, _ := f.DimensionCoordinate("X")
	assert.Equal(t, 45.0, lon.Data.Elements[0])
}

func TestNewGridDescriptor_CyclicOverride(t *testing.T) {
	f := testutil.LatLonField(t, lons4, lats3, false, nil)
	yes := true
	g, err := NewGridDescriptor(f, DescriptorOptions{
		CoordSys: Spherical, Role: RoleSource, Method: MethodLinear, Cyclic: &yes,
	})
	require.NoError(t, err)
	assert.True(t, g.Cyclic)
	assert.Nil(t, g.Bounds, "non-conservative methods carry no bounds")
}

func TestNewGridDescriptor_MissingBounds(t *testing.T) {
	f := testutil.LatLonField(t, lons4, lats3, false, nil)
	_, err := NewGridDescriptor(f, DescriptorOptions{
		CoordSys: Spherical, Role: RoleDestination, Method: MethodConservative,
	})
	require.Error(t, err)
	var gi *GridIncompatibilityError
	require.True(t, errors.As(err, &gi))
	assert.Equal(t, RoleDestination, gi.Role)
	assert.Equal(t, "bounds", gi.Attribute)
}

func TestNewGridDescriptor_SizeOneSourceAxis(t *testing.T) {
	f := testutil.LatLonField(t, lons4, []float64{10}, false, nil)
	tests := []struct {
		method  Method
		role    Role
		wantErr bool
	}{
		{MethodLinear, RoleSource, true},
		{MethodPatch, RoleSource, true},
		{MethodNearestStoD, RoleSource, false},
		{MethodLinear, RoleDestination, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.method)+"/"+string(tt.role), func(t *testing.T) {
			_, err := NewGridDescriptor(f.Copy(), DescriptorOptions{
				CoordSys: Spherical, Role: tt.role, Method: tt.method,
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrGridIncompatible)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewGridDescriptor_NoSphericalCoordinates(t *testing.T) {
	f := testutil.CartesianField(t, false, nil, []float64{0, 1, 2})
	_, err := NewGridDescriptor(f, DescriptorOptions{CoordSys: Spherical, Role: RoleSource, Method: MethodLinear})
	assert.ErrorIs(t, err, ErrConfiguration)
}

// curvilinearField returns a field with 2-d longitude and latitude
// auxiliary coordinates spanning (Y, X) data axes.
func curvilinearField(t *testing.T) *field.Field {
	t.Helper()
	f := field.New("sst")
	y := f.AddDomainAxis(2)
	x := f.AddDomainAxis(3)
	lon := &field.Coordinate{Auxiliary: true, Axis: "X", StandardName: "longitude", Units: "degrees_east",
		Data: field.DenseFrom([]float64{0, 10, 20, 0, 10, 20}, 2, 3)}
	lat := &field.Coordinate{Auxiliary: true, Axis: "Y", StandardName: "latitude", Units: "degrees_north",
		Data: field.DenseFrom([]float64{0, 0, 0, 5, 5, 5}, 2, 3)}
	_, err := f.SetConstruct(lon, y, x)
	require.NoError(t, err)
	_, err = f.SetConstruct(lat, y, x)
	require.NoError(t, err)
	require.NoError(t, f.SetData(field.NewMaskedArray(2, 3), y, x))
	return f
}

func TestNewGridDescriptor_SphericalCurvilinear(t *testing.T) {
	f := curvilinearField(t)
	axes := f.DataAxes()

	_, err := NewGridDescriptor(f, DescriptorOptions{CoordSys: Spherical, Role: RoleSource, Method: MethodLinear})
	assert.ErrorIs(t, err, ErrConfiguration, "2-d coordinates need an axis mapping")

	for _, xy := range []*AxisMapping{PositionalMapping(1, 0), {X: axes[1], Y: axes[0]}} {
		g, err := NewGridDescriptor(f, DescriptorOptions{
			CoordSys: Spherical, Role: RoleSource, Method: MethodLinear, XY: xy,
		})
		require.NoError(t, err)
		assert.Equal(t, SphericalCurvilinear, g.Kind)
		assert.True(t, g.Curvilinear)
		assert.Equal(t, []string{axes[0], axes[1]}, g.AxisKeys)
		assert.Equal(t, []int{2, 3}, g.Shape)
		// Coordinates are transposed to (X, Y).
		assert.Equal(t, []int{3, 2}, g.Coords[0].Shape)
		assert.Equal(t, []float64{0, 0, 10, 10, 20, 20}, g.Coords[0].Elements)
		assert.Equal(t, []float64{0, 5, 0, 5, 0, 5}, g.Coords[1].Elements)
	}

	_, err = NewGridDescriptor(f, DescriptorOptions{
		CoordSys: Spherical, Role: RoleSource, Method: MethodLinear, XY: &AxisMapping{X: axes[0], Y: axes[0]},
	})
	assert.ErrorIs(t, err, ErrConfiguration, "X and Y on the same axis")
}

func TestNewGridDescriptor_CartesianOrder(t *testing.T) {
	f := testutil.CartesianField(t, false, nil, []float64{0, 1}, []float64{0, 1, 2}, []float64{5, 6, 7, 8})
	axes := f.DataAxes()

	g, err := NewGridDescriptor(f, DescriptorOptions{
		CoordSys: Cartesian, Role: RoleSource, Method: MethodLinear, Axes: []string{"z", "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, CartesianGrid, g.Kind)
	assert.Equal(t, []string{axes[0], axes[2]}, g.AxisKeys, "sorted by data position")
	assert.Equal(t, []int{0, 2}, g.AxisIndices)
	assert.Equal(t, []int{2, 4}, g.Shape)
	assert.Equal(t, []float64{5, 6, 7, 8}, g.Coords[0].Elements, "coordinates reversed")
	assert.Equal(t, []float64{0, 1}, g.Coords[1].Elements)
	assert.False(t, g.Synthetic)
}

func TestNewGridDescriptor_CartesianSynthetic(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	tests := []struct {
		method     Method
		wantCoord  []float64
		wantBounds bool
	}{
		{MethodLinear, []float64{epsNeg, eps}, false},
		{MethodConservative, []float64{0}, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			f := testutil.CartesianField(t, true, nil, xs)
			g, err := NewGridDescriptor(f, DescriptorOptions{
				CoordSys: Cartesian, Role: RoleSource, Method: tt.method, Axes: []string{"x"},
			})
			require.NoError(t, err)
			assert.True(t, g.Synthetic)
			assert.Equal(t, []int{4}, g.Shape, "the synthetic axis is not a domain axis")
			require.Len(t, g.Coords, 2)
			assert.Equal(t, tt.wantCoord, g.Coords[1].Elements)
			if tt.wantBounds {
				require.Len(t, g.Bounds, 2)
				assert.Equal(t, []float64{epsNeg, eps}, g.Bounds[1].Elements)
			} else {
				assert.Nil(t, g.Bounds)
			}
		})
	}
}

func TestNewGridDescriptor_CartesianErrors(t *testing.T) {
	f := testutil.CartesianField(t, false, nil, []float64{0, 1}, []float64{0, 1, 2})
	tests := []struct {
		name string
		axes []string
	}{
		{"none", nil},
		{"too many", []string{"x", "y", "x", "y"}},
		{"repeated", []string{"x", "X"}},
		{"unknown", []string{"w"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGridDescriptor(f.Copy(), DescriptorOptions{
				CoordSys: Cartesian, Role: RoleSource, Method: MethodLinear, Axes: tt.axes,
			})
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNewGridDescriptor_InsertsMissingAxis(t *testing.T) {
	f := testutil.LatLonField(t, lons4, lats3, false, nil)
	zAxis := f.AddDomainAxis(1)
	_, err := f.SetConstruct(field.NewDimensionCoordinate("Z", "height", "m", []float64{2}), zAxis)
	require.NoError(t, err)

	g, err := NewGridDescriptor(f, DescriptorOptions{
		CoordSys: Cartesian, Role: RoleDestination, Method: MethodNearestStoD, Axes: []string{"height"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, g.AxisIndices)
	assert.Equal(t, []int{3, 4, 1}, f.Data().Shape())
}
