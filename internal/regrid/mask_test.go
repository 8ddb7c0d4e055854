package regrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/testutil"
)

// withTime returns a copy of f whose data gains a leading time axis of
// size n. Every time slice repeats the original data and mask.
func withTime(t *testing.T, f *field.Field, n int) *field.Field {
	t.Helper()
	out := f.Copy()
	tAxis := out.AddDomainAxis(n)
	_, err := out.SetConstruct(field.NewDimensionCoordinate("T", "time", "days since 2000-01-01",
		testutil.Linspace(0, float64(n-1), n)), tAxis)
	require.NoError(t, err)

	old := f.Data()
	shape := append([]int{n}, old.Shape()...)
	data := field.NewMaskedArray(shape...)
	if old.Mask != nil {
		data.Mask = make([]bool, data.Size())
	}
	for s := 0; s < n; s++ {
		copy(data.Data.Elements[s*old.Size():], old.Data.Elements)
		if old.Mask != nil {
			copy(data.Mask[s*old.Size():], old.Mask)
		}
	}
	require.NoError(t, out.SetData(data, append([]string{tAxis}, f.DataAxes()...)...))
	return out
}

func TestExtractMask(t *testing.T) {
	f := testutil.LatLonField(t, lons4, lats3, false, sumLatLon)
	f.Data().SetMasked(true, 1, 2)
	f = withTime(t, f, 2)
	// Only the first time slice is consulted.
	f.Data().SetMasked(true, 1, 0, 0)

	g, err := NewGridDescriptor(f, DescriptorOptions{CoordSys: Spherical, Role: RoleSource, Method: MethodLinear})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, g.AxisIndices)

	m, err := ExtractMask(f, g)
	require.NoError(t, err)
	want := make(Mask, 12)
	want[1*4+2] = true
	assert.Equal(t, want, m)
	assert.Equal(t, 1, m.Count())
}

func TestExtractMask_AxisOrder(t *testing.T) {
	// Data spans (X, Y) so the mask must be reordered to (Y, X).
	f := testutil.LatLonField(t, lons4, lats3, false, nil)
	axes := f.DataAxes()
	data, err := f.Data().Transpose([]int{1, 0})
	require.NoError(t, err)
	data.SetMasked(true, 3, 0) // lon 315, lat -60
	require.NoError(t, f.SetData(data, axes[1], axes[0]))

	g, err := NewGridDescriptor(f, DescriptorOptions{CoordSys: Spherical, Role: RoleSource, Method: MethodLinear})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, g.AxisIndices)

	m, err := ExtractMask(f, g)
	require.NoError(t, err)
	assert.True(t, m[0*4+3])
	assert.Equal(t, 1, m.Count())
}

func TestExtractMask_NoData(t *testing.T) {
	f := testutil.LatLonField(t, lons4, lats3, false, nil)
	g, err := NewGridDescriptor(f, DescriptorOptions{CoordSys: Spherical, Role: RoleSource, Method: MethodLinear})
	require.NoError(t, err)
	f.DelData()
	m, err := ExtractMask(f, g)
	require.NoError(t, err)
	assert.Nil(t, m)

	unmasked := testutil.LatLonField(t, lons4, lats3, false, nil)
	m, err = ExtractMask(unmasked, g)
	require.NoError(t, err)
	assert.Len(t, m, 12)
	assert.False(t, m.Any())
}

func TestMaskEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Mask
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and all false", nil, Mask{false, false}, true},
		{"nil and masked", nil, Mask{false, true}, false},
		{"same", Mask{true, false}, Mask{true, false}, true},
		{"different", Mask{true, false}, Mask{false, true}, false},
		{"different lengths", Mask{true}, Mask{true, false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}
