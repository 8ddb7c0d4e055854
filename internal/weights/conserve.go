package weights

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
)

// overlap is the extent shared by a destination cell and one source cell
// along one dimension.
type overlap struct {
	src    int
	length float64
}

// conservativeWeights computes first-order conservative weights normalised
// by the destination fraction covered by unmasked source cells.
func conservativeWeights(src, dst GridSpec, m *sparse.SparseArray, ignoreDegenerate bool) error {
	if src.Corners == nil || dst.Corners == nil {
		return errors.New("conservative regridding needs cell corners for both grids")
	}
	if src.Curvilinear() || dst.Curvilinear() {
		return polygonConservativeWeights(src, dst, m, ignoreDegenerate)
	}

	nd := len(src.Shape)
	ov := make([][][]overlap, nd)
	srcLen := make([][]float64, nd)
	for d := 0; d < nd; d++ {
		wrap := src.Spherical && d == 0
		srcLen[d] = make([]float64, src.Shape[d])
		for b := range srcLen[d] {
			b0, b1 := measuredEdges(src, d, b)
			srcLen[d][b] = b1 - b0
		}
		ov[d] = make([][]overlap, dst.Shape[d])
		for a := range ov[d] {
			a0, a1 := measuredEdges(dst, d, a)
			for b := 0; b < src.Shape[d]; b++ {
				b0, b1 := measuredEdges(src, d, b)
				if l := overlapLength(a0, a1, b0, b1, wrap); l > 0 {
					ov[d][a] = append(ov[d][a], overlap{src: b, length: l})
				}
			}
		}
	}

	idx := make([]int, nd)
	sidx := make([]int, nd)
	for p := 0; p < dst.Size(); p++ {
		if dst.Masked(p) {
			continue
		}
		dst.unravel(p, idx)
		area := 1.0
		for d := 0; d < nd; d++ {
			a0, a1 := measuredEdges(dst, d, idx[d])
			area *= a1 - a0
		}
		if area == 0 {
			if !ignoreDegenerate {
				return fmt.Errorf("destination cell %d: %w", p, ErrDegenerate)
			}
			continue
		}

		var st stencil
		var walk func(d int, w float64) error
		walk = func(d int, w float64) error {
			if d == nd {
				col := src.ravel(sidx)
				if src.Masked(col) {
					return nil
				}
				st.add(col, w)
				return nil
			}
			for _, o := range ov[d][idx[d]] {
				if srcLen[d][o.src] == 0 {
					if !ignoreDegenerate {
						return fmt.Errorf("source cell %d along dimension %d: %w", o.src, d, ErrDegenerate)
					}
					continue
				}
				sidx[d] = o.src
				if err := walk(d+1, w*o.length); err != nil {
					return err
				}
			}
			return nil
		}
		if err := walk(0, 1); err != nil {
			return err
		}
		st.store(m, p, src, true)
	}
	return nil
}

// measuredEdges returns the sorted edges of cell i along dimension d in
// area-measure space.
func measuredEdges(g GridSpec, d, i int) (float64, float64) {
	lo, hi := rectEdges(g, d, i)
	if d == 1 {
		lo, hi = areaY(g.Spherical, lo), areaY(g.Spherical, hi)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// overlapLength is the length of the intersection of [a0, a1] and
// [b0, b1]. With wrap set the second interval is also tried one period
// either side.
func overlapLength(a0, a1, b0, b1 float64, wrap bool) float64 {
	shifts := []float64{0}
	if wrap {
		shifts = []float64{-Period, 0, Period}
	}
	var total float64
	for _, s := range shifts {
		if l := math.Min(a1, b1+s) - math.Max(a0, b0+s); l > 0 {
			total += l
		}
	}
	return total
}

// polygonConservativeWeights intersects destination cell polygons with
// source cell polygons found through an R-tree.
func polygonConservativeWeights(src, dst GridSpec, m *sparse.SparseArray, ignoreDegenerate bool) error {
	if len(src.Shape) != 2 {
		return errors.New("curvilinear conservative regridding needs 2-d grids")
	}
	tree := rtree.NewTree(25, 50)
	for _, c := range cellPolygons(src) {
		if math.Abs(c.Area()) == 0 {
			if !ignoreDegenerate {
				return fmt.Errorf("source cell %d: %w", c.index, ErrDegenerate)
			}
			continue
		}
		if src.Masked(c.index) {
			continue
		}
		tree.Insert(c)
	}
	shifts := []float64{0}
	if src.Spherical {
		shifts = []float64{0, -Period, Period}
	}
	for _, dc := range cellPolygons(dst) {
		if dst.Masked(dc.index) {
			continue
		}
		if math.Abs(dc.Area()) == 0 {
			if !ignoreDegenerate {
				return fmt.Errorf("destination cell %d: %w", dc.index, ErrDegenerate)
			}
			continue
		}
		var st stencil
		for _, shift := range shifts {
			poly := shiftPolygon(dc.Polygon, shift)
			for _, item := range tree.SearchIntersect(poly.Bounds()) {
				sc := item.(cell)
				isect := poly.Intersection(sc.Polygon)
				if isect == nil {
					continue
				}
				st.add(sc.index, math.Abs(isect.Area()))
			}
		}
		st.store(m, dc.index, src, true)
	}
	return nil
}

func shiftPolygon(p geom.Polygon, dx float64) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, path := range p {
		out[i] = make([]geom.Point, len(path))
		for j, pt := range path {
			out[i][j] = geom.Point{X: pt.X + dx, Y: pt.Y}
		}
	}
	return out
}
