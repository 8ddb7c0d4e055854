package regrid

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/gridmap/internal/field"
)

func pairs(values ...float64) *sparse.DenseArray {
	return field.DenseFrom(values, len(values)/2, 2)
}

func TestCheckContiguous(t *testing.T) {
	tests := []struct {
		name    string
		bounds  []*sparse.DenseArray
		cyclic  bool
		wantErr bool
	}{
		{
			name:   "contiguous",
			bounds: []*sparse.DenseArray{pairs(0, 90, 90, 180, 180, 270, 270, 360), pairs(-90, 0, 0, 90)},
		},
		{
			name:    "gap",
			bounds:  []*sparse.DenseArray{pairs(0, 90, 95, 180), pairs(-90, 0, 0, 90)},
			wantErr: true,
		},
		{
			name:    "overlap",
			bounds:  []*sparse.DenseArray{pairs(0, 90, 90, 180), pairs(-90, 10, 0, 90)},
			wantErr: true,
		},
		{
			name:   "cyclic wrap",
			bounds: []*sparse.DenseArray{pairs(0, 90, 90, 180, 180, 270, 270, 360), pairs(-90, 0, 0, 90)},
			cyclic: true,
		},
		{
			name:   "cyclic across the date line",
			bounds: []*sparse.DenseArray{pairs(180, 270, 270, 360, 0, 90, 90, 180), pairs(-90, 90)},
			cyclic: true,
		},
		{
			name:    "cyclic wrap gap",
			bounds:  []*sparse.DenseArray{pairs(0, 90, 90, 180, 180, 270, 270, 350), pairs(-90, 90)},
			cyclic:  true,
			wantErr: true,
		},
		{
			name:   "non-cyclic ignores the wrap pair",
			bounds: []*sparse.DenseArray{pairs(0, 90, 90, 180, 180, 270, 270, 350), pairs(-90, 90)},
		},
		{
			name: "2-d cells",
			bounds: []*sparse.DenseArray{
				// x vertices of a 2x1 grid in (X, Y, vertex) order
				field.DenseFrom([]float64{0, 1, 1, 0, 1, 2, 2, 1}, 2, 1, 4),
				field.DenseFrom([]float64{0, 0, 1, 1, 0, 0, 1, 1}, 2, 1, 4),
			},
		},
		{
			name: "2-d cells with a gap",
			bounds: []*sparse.DenseArray{
				field.DenseFrom([]float64{0, 1, 1, 0, 1.5, 2, 2, 1.5}, 2, 1, 4),
				field.DenseFrom([]float64{0, 0, 1, 1, 0, 0, 1, 1}, 2, 1, 4),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkContiguous(tt.bounds, tt.cyclic)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClipLatitudes(t *testing.T) {
	b := pairs(-95, -30, -30, 30, 30, 92)
	clipLatitudes(b)
	assert.Equal(t, []float64{-90, -30, -30, 30, 30, 90}, b.Elements)
}

func TestCornerArrays(t *testing.T) {
	lon := pairs(0, 90, 90, 180, 180, 270, 270, 360)
	lat := pairs(-90, 0, 0, 90)

	got := cornerArrays([]*sparse.DenseArray{lon, lat}, true, true)
	assert.Equal(t, []float64{0, 90, 180, 270}, got[0].Elements, "cyclic longitude drops the repeated edge")
	assert.Equal(t, []float64{-90, 0, 90}, got[1].Elements)

	got = cornerArrays([]*sparse.DenseArray{lon, lat}, true, false)
	assert.Equal(t, []float64{0, 90, 180, 270, 360}, got[0].Elements)

	x := field.DenseFrom([]float64{0, 1, 1, 0, 1, 2, 2, 1}, 2, 1, 4)
	y := field.DenseFrom([]float64{0, 0, 1, 1, 0, 0, 1, 1}, 2, 1, 4)
	got = cornerArrays([]*sparse.DenseArray{x, y}, false, false)
	assert.Equal(t, []int{3, 2}, got[0].Shape)
	assert.Equal(t, []float64{0, 0, 1, 1, 2, 2}, got[0].Elements)
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 1}, got[1].Elements)
}
