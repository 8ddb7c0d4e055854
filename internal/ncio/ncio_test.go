package ncio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/regrid"
	"github.com/banshee-data/gridmap/internal/testutil"
)

func TestWriteReadField_RoundTrip(t *testing.T) {
	lons := []float64{45, 135, 225, 315}
	lats := []float64{-45, 45}
	src := testutil.LatLonField(t, lons, lats, true, func(lat, lon float64) float64 { return lat + lon })
	src.Data().SetMasked(true, 1, 2)

	path := filepath.Join(t.TempDir(), "tas.nc")
	require.NoError(t, WriteField(path, src))

	got, err := ReadField(path, "tas")
	require.NoError(t, err)
	assert.Equal(t, "K", got.Units)

	data := got.Data()
	assert.Equal(t, []int{2, 4}, data.Shape())
	assert.True(t, data.IsMasked(1, 2))
	assert.False(t, data.IsMasked(0, 0))
	assert.Equal(t, 0.0, data.Get(0, 0))
	assert.Equal(t, 180.0, data.Get(1, 1))

	_, lat, ok := got.DimensionCoordinate("Y")
	require.True(t, ok)
	assert.Equal(t, "latitude", lat.StandardName)
	assert.Equal(t, "degrees_north", lat.Units)
	assert.Equal(t, lats, lat.Data.Elements)
	require.True(t, lat.HasBounds())
	assert.Equal(t, []float64{-90, 0, 0, 90}, lat.Bounds.Elements)

	lonKey, lon, ok := got.DimensionCoordinate("X")
	require.True(t, ok)
	assert.Equal(t, lons, lon.Data.Elements)
	assert.Equal(t, []int{4, 2}, lon.Bounds.Shape)

	// Dimension names survive as netCDF dimension names on the axes.
	da, ok := got.DomainAxis(got.ConstructAxes(lonKey)[0])
	require.True(t, ok)
	assert.Equal(t, "longitude", da.NcDim)
}

func TestWriteReadField_AuxiliaryCoordinates(t *testing.T) {
	f := field.New("sst")
	f.Units = "K"
	ya := f.AddDomainAxis(2)
	xa := f.AddDomainAxis(3)
	lon := &field.Coordinate{Auxiliary: true, Axis: "X", StandardName: "longitude", Units: "degrees_east", NcVar: "nav_lon",
		Data: field.DenseFrom([]float64{0, 10, 20, 1, 11, 21}, 2, 3)}
	lat := &field.Coordinate{Auxiliary: true, Axis: "Y", StandardName: "latitude", Units: "degrees_north", NcVar: "nav_lat",
		Data: field.DenseFrom([]float64{0, 0, 0, 10, 10, 10}, 2, 3)}
	_, err := f.SetConstruct(lon, ya, xa)
	require.NoError(t, err)
	_, err = f.SetConstruct(lat, ya, xa)
	require.NoError(t, err)
	data, err := field.FromValues([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	require.NoError(t, f.SetData(data, ya, xa))

	path := filepath.Join(t.TempDir(), "sst.nc")
	require.NoError(t, WriteField(path, f))
	got, err := ReadField(path, "sst")
	require.NoError(t, err)

	_, c, ok := got.AuxiliaryCoordinate("X", 2)
	require.True(t, ok)
	assert.Equal(t, "nav_lon", c.NcVar)
	assert.Equal(t, []float64{0, 10, 20, 1, 11, 21}, c.Data.Elements)
	assert.Nil(t, got.Data().Mask)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got.Data().Data.Elements)

	// The file carries everything a curvilinear regrid needs.
	g, err := regrid.NewGridDescriptor(got, regrid.DescriptorOptions{
		CoordSys: regrid.Spherical, Method: regrid.MethodLinear, Role: regrid.RoleSource,
		XY: regrid.PositionalMapping(1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, regrid.SphericalCurvilinear, g.Kind)
}

func TestReadField_Errors(t *testing.T) {
	src := testutil.CartesianField(t, false, nil, []float64{0, 1})
	path := filepath.Join(t.TempDir(), "density.nc")
	require.NoError(t, WriteField(path, src))

	_, err := ReadField(path, "missing")
	assert.ErrorContains(t, err, "not in file")

	_, err = ReadField(filepath.Join(t.TempDir(), "absent.nc"), "density")
	assert.Error(t, err)

	assert.Error(t, WriteField(path, field.New("domain")))
}
