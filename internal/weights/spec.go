package weights

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
)

// Method is an engine-level interpolation kernel.
type Method string

const (
	MethodBilinear    Method = "bilinear"
	MethodPatch       Method = "patch"
	MethodConserve    Method = "conserve"
	MethodConserve2nd Method = "conserve_2nd"
	MethodNearestStoD Method = "nearest_stod"
	MethodNearestDtoS Method = "nearest_dtos"
)

// Conservative reports whether the kernel needs cell corners.
func (m Method) Conservative() bool {
	return m == MethodConserve || m == MethodConserve2nd
}

// UnmappedAction controls what happens to unmasked destination points that
// receive no weights.
type UnmappedAction int

const (
	UnmappedIgnore UnmappedAction = iota
	UnmappedError
)

// ErrUnmapped is returned under UnmappedError when a destination point
// cannot be mapped.
var ErrUnmapped = errors.New("unmapped destination point")

// ErrDegenerate is returned when a degenerate cell is found and degenerate
// cells are not ignored.
var ErrDegenerate = errors.New("degenerate cell")

// Period of a periodic spherical X axis, in degrees.
const Period = 360.0

// GridSpec describes one grid. Centers holds one array per dimension: 1-d
// of length Shape[d] for rectilinear grids, or of shape Shape for 2-d
// curvilinear grids. Corners is optional; for rectilinear grids each array
// has Shape[d]+1 elements (Shape[d] for a periodic X axis), for curvilinear
// grids each has shape (nx+1, ny+1).
type GridSpec struct {
	Name      string
	Spherical bool
	Periodic  bool
	Shape     []int
	Centers   []*sparse.DenseArray
	Corners   []*sparse.DenseArray
	// Mask marks masked points with 0. Nil means unmasked.
	Mask []int32
}

// Curvilinear reports whether the coordinates are 2-d arrays.
func (g GridSpec) Curvilinear() bool {
	return len(g.Centers) > 0 && len(g.Centers[0].Shape) > 1
}

// Size returns the number of grid points.
func (g GridSpec) Size() int {
	n := 1
	for _, s := range g.Shape {
		n *= s
	}
	return n
}

// Masked reports whether point p is masked.
func (g GridSpec) Masked(p int) bool {
	return g.Mask != nil && g.Mask[p] == 0
}

// Validate checks internal consistency.
func (g GridSpec) Validate() error {
	nd := len(g.Shape)
	if nd < 1 || nd > 3 {
		return fmt.Errorf("grid %q: %d dimensions, want 1 to 3", g.Name, nd)
	}
	if len(g.Centers) != nd {
		return fmt.Errorf("grid %q: %d centre arrays for %d dimensions", g.Name, len(g.Centers), nd)
	}
	if g.Spherical && nd != 2 {
		return fmt.Errorf("grid %q: spherical grids must be 2-d", g.Name)
	}
	if g.Periodic && !g.Spherical {
		return fmt.Errorf("grid %q: only spherical grids can be periodic", g.Name)
	}
	curv := g.Curvilinear()
	if curv && nd != 2 {
		return fmt.Errorf("grid %q: curvilinear grids must be 2-d", g.Name)
	}
	for d, c := range g.Centers {
		if c == nil {
			return fmt.Errorf("grid %q: missing centres for dimension %d", g.Name, d)
		}
		if curv {
			if len(c.Shape) != 2 || c.Shape[0] != g.Shape[0] || c.Shape[1] != g.Shape[1] {
				return fmt.Errorf("grid %q: centre array %d has shape %v, want %v", g.Name, d, c.Shape, g.Shape)
			}
		} else if len(c.Shape) != 1 || c.Shape[0] != g.Shape[d] {
			return fmt.Errorf("grid %q: centre array %d has shape %v, want [%d]", g.Name, d, c.Shape, g.Shape[d])
		}
	}
	if g.Corners != nil {
		if len(g.Corners) != nd {
			return fmt.Errorf("grid %q: %d corner arrays for %d dimensions", g.Name, len(g.Corners), nd)
		}
		for d, c := range g.Corners {
			if c == nil {
				return fmt.Errorf("grid %q: missing corners for dimension %d", g.Name, d)
			}
			if curv {
				if len(c.Shape) != 2 || c.Shape[0] != g.Shape[0]+1 || c.Shape[1] != g.Shape[1]+1 {
					return fmt.Errorf("grid %q: corner array %d has shape %v", g.Name, d, c.Shape)
				}
				continue
			}
			want := g.Shape[d] + 1
			if g.Periodic && d == 0 {
				want = g.Shape[d]
			}
			if len(c.Shape) != 1 || c.Shape[0] != want {
				return fmt.Errorf("grid %q: corner array %d has shape %v, want [%d]", g.Name, d, c.Shape, want)
			}
		}
	}
	if g.Mask != nil && len(g.Mask) != g.Size() {
		return fmt.Errorf("grid %q: mask has %d elements, grid has %d", g.Name, len(g.Mask), g.Size())
	}
	return nil
}

// RegridOptions configures weight generation.
type RegridOptions struct {
	Method           Method
	Unmapped         UnmappedAction
	IgnoreDegenerate bool
}

// Triple is a sparse weight matrix in coordinate form. Rows index the
// destination grid and Cols the source grid.
type Triple struct {
	Weights []float64
	Rows    []int
	Cols    []int
}

// Len returns the number of non-zero weights.
func (t Triple) Len() int { return len(t.Weights) }

// Copy returns a deep copy.
func (t Triple) Copy() Triple {
	return Triple{
		Weights: append([]float64(nil), t.Weights...),
		Rows:    append([]int(nil), t.Rows...),
		Cols:    append([]int(nil), t.Cols...),
	}
}

// tripleFromSparse extracts the non-zero entries of an (ndst, nsrc) matrix
// sorted by row then column.
func tripleFromSparse(m *sparse.SparseArray, nsrc int) Triple {
	keys := make([]int, 0, len(m.Elements))
	for k, v := range m.Elements {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	t := Triple{
		Weights: make([]float64, len(keys)),
		Rows:    make([]int, len(keys)),
		Cols:    make([]int, len(keys)),
	}
	for i, k := range keys {
		t.Weights[i] = m.Elements[k]
		t.Rows[i] = k / nsrc
		t.Cols[i] = k % nsrc
	}
	return t
}
