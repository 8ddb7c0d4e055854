package regrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/testutil"
)

var (
	lons8 = testutil.Linspace(22.5, 337.5, 8)
	lats6 = testutil.Linspace(-75, 75, 6)
)

func cyclicLatLon(t *testing.T, lons, lats []float64, fill func(lat, lon float64) float64) *field.Field {
	t.Helper()
	f := testutil.LatLonField(t, lons, lats, true, fill)
	f.SetCyclic(f.DataAxes()[1], true, Period)
	return f
}

// cellAreas returns sin-latitude cell areas of f's (lat, lon) grid,
// flattened row-major.
func cellAreas(t *testing.T, f *field.Field) []float64 {
	t.Helper()
	_, lon, ok := f.DimensionCoordinate("X")
	require.True(t, ok)
	_, lat, ok := f.DimensionCoordinate("Y")
	require.True(t, ok)
	nx, ny := len(lon.Data.Elements), len(lat.Data.Elements)
	out := make([]float64, 0, nx*ny)
	for j := 0; j < ny; j++ {
		s0 := math.Sin(lat.Bounds.Elements[2*j] * math.Pi / 180)
		s1 := math.Sin(lat.Bounds.Elements[2*j+1] * math.Pi / 180)
		for i := 0; i < nx; i++ {
			out = append(out, (lon.Bounds.Elements[2*i+1]-lon.Bounds.Elements[2*i])*(s1-s0))
		}
	}
	return out
}

func TestRegrid_SphericalConservativeCyclic(t *testing.T) {
	src := cyclicLatLon(t, lons4, lats3, func(lat, lon float64) float64 { return 3*lat + math.Cos(lon*math.Pi/180) })
	dst := cyclicLatLon(t, lons8, lats6, nil)

	opts := DefaultOptions()
	opts.Method = MethodConservative
	op, err := BuildOperator(src, dst, opts)
	require.NoError(t, err)
	assert.True(t, op.SrcCyclic())
	assert.True(t, op.DstCyclic())
	assert.Equal(t, []int{3, 4}, op.SrcShape())
	assert.Equal(t, []int{6, 8}, op.DstShape())

	w := op.Weights()
	sums := make([]float64, 48)
	for k := range w.Weights {
		sums[w.Rows[k]] += w.Weights[k]
	}
	for r, s := range sums {
		assert.InDelta(t, 1.0, s, 1e-9, "row %d", r)
	}

	got, err := RegridWith(src, op, opts)
	require.NoError(t, err)
	assert.Nil(t, got.Data().Mask)

	// First-order conservative regridding preserves the area integral.
	before := floats.Dot(cellAreas(t, src), src.Data().Data.Elements)
	after := floats.Dot(cellAreas(t, got), got.Data().Data.Elements)
	assert.InDelta(t, before, after, 1e-9*math.Abs(before)+1e-12)

	// The regridded field takes the destination coordinates and cyclicity.
	key, lon, ok := got.DimensionCoordinate("X")
	require.True(t, ok)
	assert.Equal(t, lons8, lon.Data.Elements)
	assert.True(t, got.IsCyclic(got.ConstructAxes(key)[0]))
	p, _ := got.Period(got.ConstructAxes(key)[0])
	assert.Equal(t, Period, p)
}

func TestRegrid_ZeroOptions(t *testing.T) {
	want, err := Regrid(maskedSource(t), pointDestination(t), DefaultOptions())
	require.NoError(t, err)
	got, err := Regrid(maskedSource(t), pointDestination(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, want.Data().Data.Elements, got.Data().Data.Elements)
	assert.Equal(t, want.Data().Mask, got.Data().Mask)

	_, err = Regrid(maskedSource(t), pointDestination(t), Options{IgnoreSrcMask: true})
	assert.ErrorIs(t, err, ErrConfiguration)

	unmasked := testutil.LatLonField(t, maskLons, maskLats, false, sumLatLon)
	op, err := BuildOperator(unmasked, pointDestination(t), Options{Method: MethodNearestStoD, IgnoreSrcMask: true})
	require.NoError(t, err)
	assert.Equal(t, Spherical, op.CoordSys())
}

func TestRegrid_Cartesian1DLinear(t *testing.T) {
	src := testutil.CartesianField(t, false, func(x ...float64) float64 { return 10 * x[0] }, []float64{0, 1, 2, 3})
	dst := testutil.CartesianField(t, false, nil, testutil.Linspace(0, 3, 6))

	opts := DefaultOptions()
	opts.CoordSys = Cartesian
	opts.Axes = []string{"x"}
	got, err := Regrid(src, dst, opts)
	require.NoError(t, err)

	data := got.Data()
	assert.Equal(t, []int{6}, data.Shape())
	assert.Nil(t, data.Mask, "every destination cell has a contributing source")
	assert.InDeltaSlice(t, []float64{0, 6, 12, 18, 24, 30}, data.Data.Elements, 1e-9)
}

func TestRegrid_CartesianDestinationAxes(t *testing.T) {
	src := testutil.CartesianField(t, false, func(x ...float64) float64 { return x[0] + 100*x[1] },
		[]float64{0, 1, 2}, []float64{0, 1})
	// The destination names its axes differently.
	dst := field.New("grid")
	a := dst.AddDomainAxis(2)
	b := dst.AddDomainAxis(1)
	_, err := dst.SetConstruct(field.NewDimensionCoordinate("", "eastings", "m", []float64{0.5, 1.5}), a)
	require.NoError(t, err)
	_, err = dst.SetConstruct(field.NewDimensionCoordinate("", "northings", "m", []float64{0.5}), b)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.CoordSys = Cartesian
	opts.Axes = []string{"x", "y"}
	opts.DstAxes = []string{"eastings", "northings"}
	got, err := Regrid(src, dst, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, got.Data().Shape())
	assert.InDeltaSlice(t, []float64{50.5, 51.5}, got.Data().Data.Elements, 1e-12)

	_, c, ok := got.DimensionCoordinateForAxis(got.DataAxes()[0])
	require.True(t, ok)
	assert.Equal(t, "eastings", c.StandardName)
}

func TestRegridToSpec(t *testing.T) {
	src := testutil.LatLonField(t, maskLons, maskLats, false, sumLatLon)
	spec := GridSpec{Coords: map[string]*field.Coordinate{
		"longitude": field.NewDimensionCoordinate("", "", "degrees_east", []float64{5, 25}),
		"latitude":  field.NewDimensionCoordinate("", "", "degrees_north", []float64{5, 15, 25}),
	}}
	got, err := RegridToSpec(src, spec, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, got.Data().Shape())
	assert.InDeltaSlice(t, []float64{10, 30, 20, 40, 30, 50}, got.Data().Data.Elements, 1e-12)

	// The operator alone is enough to regrid another field.
	op, err := BuildOperatorToSpec(src, spec, DefaultOptions())
	require.NoError(t, err)
	again, err := RegridWith(src, op, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, got.Data().Data.Elements, again.Data().Data.Elements)
}

func TestRegridWith_CheckCoordinates(t *testing.T) {
	src := testutil.LatLonField(t, maskLons, maskLats, false, sumLatLon)
	op, err := BuildOperator(src, pointDestination(t), DefaultOptions())
	require.NoError(t, err)

	shifted := testutil.LatLonField(t, []float64{1, 11, 21, 31, 41}, maskLats, false, sumLatLon)
	_, err = RegridWith(shifted, op, DefaultOptions())
	assert.NoError(t, err, "coordinates are not compared by default")

	opts := DefaultOptions()
	opts.CheckCoordinates = true
	_, err = RegridWith(shifted, op, opts)
	var re *OperatorReuseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "coordinates", re.Attribute)
}

func TestRegrid_DoesNotModifyInputs(t *testing.T) {
	src := maskedSource(t)
	dst := pointDestination(t)
	srcData := append([]float64(nil), src.Data().Data.Elements...)
	_, err := Regrid(src, dst, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, srcData, src.Data().Data.Elements)
	assert.Equal(t, []int{4, 5}, src.Data().Shape())
	assert.Equal(t, []int{2, 3}, dst.Data().Shape())
}

// metadataSource returns a latitude-longitude field carrying a horizontal
// coordinate reference, a hybrid height reference with a surface altitude
// domain ancillary, a cell measure and a field ancillary.
func metadataSource(t *testing.T) (*field.Field, map[string]string) {
	t.Helper()
	f := testutil.LatLonField(t, maskLons, maskLats, false, sumLatLon)
	keys := map[string]string{}
	axes := f.DataAxes()
	latKey, _, _ := f.DimensionCoordinate("Y")
	lonKey, _, _ := f.DimensionCoordinate("X")

	zAxis := f.AddDomainAxis(1)
	zKey, err := f.SetConstruct(field.NewDimensionCoordinate("Z", "atmosphere_hybrid_height_coordinate", "m", []float64{10}), zAxis)
	require.NoError(t, err)

	orog := field.NewMaskedArray(4, 5)
	for j, lat := range maskLats {
		for i, lon := range maskLons {
			orog.Set(100*lat+lon, j, i)
		}
	}
	keys["orog"], err = f.SetConstruct(&field.DomainAncillary{Name: "surface_altitude", Units: "m", Data: orog}, axes...)
	require.NoError(t, err)

	keys["hybrid"], err = f.SetConstruct(&field.CoordinateReference{
		Name:              "atmosphere_hybrid_height_coordinate",
		Coordinates:       []string{zKey},
		DomainAncillaries: map[string]string{"orog": keys["orog"]},
	})
	require.NoError(t, err)
	keys["latlon"], err = f.SetConstruct(&field.CoordinateReference{
		Name:        "latitude_longitude",
		Coordinates: []string{latKey, lonKey},
	})
	require.NoError(t, err)

	keys["area"], err = f.SetConstruct(&field.CellMeasure{Measure: "area", Units: "m2",
		Data: field.Zeros([]int{4, 5})}, axes...)
	require.NoError(t, err)
	keys["flag"], err = f.SetConstruct(&field.FieldAncillary{Name: "status_flag",
		Data: field.NewMaskedArray(5)}, axes[1])
	require.NoError(t, err)
	keys["lonOnly"], err = f.SetConstruct(&field.DomainAncillary{Name: "lon_term",
		Data: field.NewMaskedArray(5)}, axes[1])
	require.NoError(t, err)
	return f, keys
}

func TestRegrid_PropagatesMetadata(t *testing.T) {
	src, keys := metadataSource(t)
	dst := pointDestination(t)
	dLatKey, dlat, _ := dst.DimensionCoordinate("Y")
	dLonKey, dlon, _ := dst.DimensionCoordinate("X")
	dlat.NcVar = "lat"
	dlon.NcVar = "lon"
	_, err := dst.SetConstruct(&field.CoordinateReference{
		Name:        "latitude_longitude",
		Coordinates: []string{dLatKey, dLonKey},
	})
	require.NoError(t, err)

	got, err := Regrid(src, dst, DefaultOptions())
	require.NoError(t, err)

	for _, name := range []string{"latlon", "area", "flag", "lonOnly"} {
		_, ok := got.Construct(keys[name])
		assert.False(t, ok, "%s should be removed", name)
	}

	// The surface altitude is regridded in place and stays linked.
	c, ok := got.Construct(keys["orog"])
	require.True(t, ok)
	orog := c.(*field.DomainAncillary)
	assert.Equal(t, []int{2, 3}, orog.Data.Shape())
	assert.InDelta(t, 100*20.0+15, orog.Data.Get(1, 1), 1e-9)
	c, ok = got.Construct(keys["hybrid"])
	require.True(t, ok)
	assert.Equal(t, keys["orog"], c.(*field.CoordinateReference).DomainAncillaries["orog"])

	// Destination coordinates replace the source ones.
	latKey, lat, ok := got.DimensionCoordinate("Y")
	require.True(t, ok)
	assert.Equal(t, "lat", lat.NcVar)
	assert.Equal(t, []float64{10, 20}, lat.Data.Elements)
	lonKey, _, ok := got.DimensionCoordinate("X")
	require.True(t, ok)

	// The destination horizontal reference is copied with remapped keys.
	refs := got.Keys(field.Filter{Types: []field.ConstructType{field.TypeCoordinateReference}})
	require.Len(t, refs, 2)
	var copied *field.CoordinateReference
	for _, k := range refs {
		c, _ := got.Construct(k)
		if r := c.(*field.CoordinateReference); r.Name == "latitude_longitude" {
			copied = r
		}
	}
	require.NotNil(t, copied)
	assert.ElementsMatch(t, []string{latKey, lonKey}, copied.Coordinates)

	// The source X axis was not cyclic and neither is the destination.
	assert.False(t, got.IsCyclic(got.ConstructAxes(lonKey)[0]))

	// The Z coordinate is untouched.
	_, z, ok := got.DimensionCoordinate("Z")
	require.True(t, ok)
	assert.Equal(t, []float64{10}, z.Data.Elements)
}

func TestRegrid_ToDomain(t *testing.T) {
	src := testutil.LatLonField(t, maskLons, maskLats, false, sumLatLon)
	dst := pointDestination(t)
	dst.DelData()
	opts := DefaultOptions()
	opts.UseDstMask = true
	got, err := Regrid(src, dst, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Data().Shape())
	assert.Nil(t, got.Data().Mask)
}
