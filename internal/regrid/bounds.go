package regrid

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"

	"github.com/banshee-data/gridmap/internal/field"
)

// Period of a cyclic longitude axis in degrees.
const Period = 360.0

// checkContiguous verifies that neighbouring cells share their bounds
// exactly. bounds are in (X, Y[, Z]) order; 1-d cells have shape (n, 2)
// and 2-d cells have shape (nx, ny, 4) with vertices ordered lower-left,
// lower-right, upper-right, upper-left. On a cyclic grid differences in the
// X bounds are taken modulo Period and the last X cell must also meet the
// first.
func checkContiguous(bounds []*sparse.DenseArray, cyclic bool) error {
	for d, b := range bounds {
		periodic := cyclic && d == 0
		differ := func(a, c float64) bool {
			diff := a - c
			if periodic {
				diff = math.Mod(diff, Period)
			}
			return diff != 0
		}
		switch len(b.Shape) - 1 {
		case 1:
			n := b.Shape[0]
			e := b.Elements
			for i := 0; i < n-1; i++ {
				if differ(e[2*(i+1)], e[2*i+1]) {
					return fmt.Errorf("coordinate %d: cell %d upper bound %v does not meet cell %d lower bound %v",
						d, i, e[2*i+1], i+1, e[2*(i+1)])
				}
			}
			if periodic && n > 0 && differ(e[0], e[2*(n-1)+1]) {
				return fmt.Errorf("coordinate %d: last cell upper bound %v does not wrap onto first cell lower bound %v",
					d, e[2*(n-1)+1], e[0])
			}
		case 2:
			if nv := b.Shape[2]; nv != 4 {
				return fmt.Errorf("coordinate %d: cannot check contiguity of 2-d cells with %d vertices", d, nv)
			}
			nx, ny := b.Shape[0], b.Shape[1]
			v := func(i, j, k int) float64 { return b.Elements[(i*ny+j)*4+k] }
			for i := 0; i < nx; i++ {
				for j := 0; j < ny; j++ {
					if i+1 < nx && (differ(v(i, j, 1), v(i+1, j, 0)) || differ(v(i, j, 2), v(i+1, j, 3))) {
						return fmt.Errorf("coordinate %d: cells (%d, %d) and (%d, %d) do not share an edge", d, i, j, i+1, j)
					}
					if j+1 < ny && (differ(v(i, j, 3), v(i, j+1, 0)) || differ(v(i, j, 2), v(i, j+1, 1))) {
						return fmt.Errorf("coordinate %d: cells (%d, %d) and (%d, %d) do not share an edge", d, i, j, i, j+1)
					}
				}
			}
		default:
			return fmt.Errorf("coordinate %d: bounds of shape %v are not 1-d or 2-d cells", d, b.Shape)
		}
	}
	return nil
}

// clipLatitudes limits latitude bounds to [-90, 90] in place.
func clipLatitudes(b *sparse.DenseArray) {
	for i, v := range b.Elements {
		b.Elements[i] = math.Max(-90, math.Min(90, v))
	}
}

// cornerArrays converts cell bounds to the corner arrays used by the
// weight engine. A cyclic 1-d longitude keeps only the lower bound of each
// cell since the last upper bound duplicates the first lower bound.
func cornerArrays(bounds []*sparse.DenseArray, spherical, cyclic bool) []*sparse.DenseArray {
	out := make([]*sparse.DenseArray, len(bounds))
	for d, b := range bounds {
		if len(b.Shape) == 2 {
			n := b.Shape[0]
			if spherical && cyclic && d == 0 {
				c := field.Zeros([]int{n})
				for i := 0; i < n; i++ {
					c.Elements[i] = b.Elements[2*i]
				}
				out[d] = c
				continue
			}
			c := field.Zeros([]int{n + 1})
			for i := 0; i < n; i++ {
				c.Elements[i] = b.Elements[2*i]
			}
			c.Elements[n] = b.Elements[2*(n-1)+1]
			out[d] = c
			continue
		}

		nx, ny := b.Shape[0], b.Shape[1]
		v := func(i, j, k int) float64 { return b.Elements[(i*ny+j)*4+k] }
		c := field.Zeros([]int{nx + 1, ny + 1})
		set := func(i, j int, x float64) { c.Elements[i*(ny+1)+j] = x }
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				set(i, j, v(i, j, 0))
			}
			set(i, ny, v(i, ny-1, 3))
		}
		for j := 0; j < ny; j++ {
			set(nx, j, v(nx-1, j, 1))
		}
		set(nx, ny, v(nx-1, ny-1, 2))
		out[d] = c
	}
	return out
}
