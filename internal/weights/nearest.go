package weights

import (
	"math"

	"github.com/ctessum/sparse"
)

// nearest returns the unmasked point of g closest to x, or -1. Ties go to
// the lowest index.
func nearest(g GridSpec, pts [][]float64, x []float64) int {
	best, bestD := -1, math.Inf(1)
	for q, y := range pts {
		if g.Masked(q) {
			continue
		}
		if d := distance2(g.Spherical, x, y); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}

func gridPoints(g GridSpec) [][]float64 {
	pts := make([][]float64, g.Size())
	for p := range pts {
		pts[p] = g.point(p)
	}
	return pts
}

// nearestStoD maps each destination point to its nearest source point.
func nearestStoD(src, dst GridSpec, m *sparse.SparseArray) {
	srcPts := gridPoints(src)
	for p := 0; p < dst.Size(); p++ {
		if dst.Masked(p) {
			continue
		}
		if q := nearest(src, srcPts, dst.point(p)); q >= 0 {
			m.AddVal(1, p, q)
		}
	}
}

// nearestDtoS maps each source point to its nearest destination point. A
// destination point receiving several source points takes their mean.
func nearestDtoS(src, dst GridSpec, m *sparse.SparseArray) {
	dstPts := gridPoints(dst)
	hits := make(map[int][]int)
	for q := 0; q < src.Size(); q++ {
		if src.Masked(q) {
			continue
		}
		if p := nearest(dst, dstPts, src.point(q)); p >= 0 {
			hits[p] = append(hits[p], q)
		}
	}
	for p, qs := range hits {
		w := 1 / float64(len(qs))
		for _, q := range qs {
			m.AddVal(w, p, q)
		}
	}
}
