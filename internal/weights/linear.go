package weights

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
)

// stencil is the set of source points contributing to one destination
// point.
type stencil struct {
	cols    []int
	weights []float64
}

func (s *stencil) add(col int, w float64) {
	if w == 0 {
		return
	}
	s.cols = append(s.cols, col)
	s.weights = append(s.weights, w)
}

// store writes the stencil into row p of m. Without renormalisation a
// stencil touching a masked source point leaves the destination unmapped.
// With renormalisation masked points are dropped and the rest rescaled.
func (s *stencil) store(m *sparse.SparseArray, p int, src GridSpec, renorm bool) {
	var total float64
	keep := s.cols[:0:0]
	kw := s.weights[:0:0]
	for k, c := range s.cols {
		if src.Masked(c) {
			if !renorm {
				return
			}
			continue
		}
		keep = append(keep, c)
		kw = append(kw, s.weights[k])
		total += s.weights[k]
	}
	if len(keep) == 0 || total == 0 {
		return
	}
	for k, c := range keep {
		w := kw[k]
		if renorm {
			w /= total
		}
		m.AddVal(w, p, c)
	}
}

func linearWeights(src, dst GridSpec, m *sparse.SparseArray, renorm bool) error {
	if src.Curvilinear() {
		return curvilinearLinearWeights(src, dst, m, renorm)
	}
	nd := len(src.Shape)
	axes := make([][]float64, nd)
	for d := range axes {
		axes[d] = src.Centers[d].Elements
	}
	spans := make([]span, nd)
	idx := make([]int, nd)
	for p := 0; p < dst.Size(); p++ {
		if dst.Masked(p) {
			continue
		}
		x := dst.point(p)
		ok := true
		for d := 0; d < nd && ok; d++ {
			spans[d], ok = bracket(axes[d], x[d], src.Periodic && d == 0)
		}
		if !ok {
			continue
		}
		var st stencil
		for corner := 0; corner < 1<<nd; corner++ {
			w := 1.0
			for d := 0; d < nd; d++ {
				if corner&(1<<d) == 0 {
					idx[d] = spans[d].lo
					w *= 1 - spans[d].t
				} else {
					idx[d] = spans[d].hi
					w *= spans[d].t
				}
			}
			st.add(src.ravel(idx), w)
		}
		st.store(m, p, src, renorm)
	}
	return nil
}

// quad is the cell between four neighbouring centres of a curvilinear
// grid, indexed in an R-tree by its bounding box.
type quad struct {
	geom.Polygon
	corners [4]int
	x, y    [4]float64
}

func curvilinearQuads(src GridSpec) *rtree.Rtree {
	tree := rtree.NewTree(25, 50)
	nx, ny := src.Shape[0], src.Shape[1]
	cx, cy := src.Centers[0].Elements, src.Centers[1].Elements
	ilast := nx - 1
	if src.Periodic {
		ilast = nx
	}
	for i := 0; i < ilast; i++ {
		for j := 0; j < ny-1; j++ {
			i1 := (i + 1) % nx
			// corners in counter-clockwise order
			pts := [4][2]int{{i, j}, {i1, j}, {i1, j + 1}, {i, j + 1}}
			var q quad
			path := make([]geom.Point, 4)
			for v, ij := range pts {
				k := ij[0]*ny + ij[1]
				q.corners[v] = ij[0] + nx*ij[1]
				q.x[v], q.y[v] = cx[k], cy[k]
				if src.Spherical && v > 0 {
					q.x[v] = q.x[0] + wrapDiff(q.x[v]-q.x[0])
				}
				path[v] = geom.Point{X: q.x[v], Y: q.y[v]}
			}
			q.Polygon = geom.Polygon{path}
			tree.Insert(q)
		}
	}
	return tree
}

func curvilinearLinearWeights(src, dst GridSpec, m *sparse.SparseArray, renorm bool) error {
	tree := curvilinearQuads(src)
	shifts := []float64{0}
	if src.Spherical {
		shifts = []float64{0, -Period, Period}
	}
	for p := 0; p < dst.Size(); p++ {
		if dst.Masked(p) {
			continue
		}
		x := dst.point(p)
		found := false
		for _, shift := range shifts {
			pt := geom.Point{X: x[0] + shift, Y: x[1]}
			for _, item := range tree.SearchIntersect(pt.Bounds()) {
				q := item.(quad)
				s, t, ok := invertBilinear(q.x, q.y, pt.X, pt.Y)
				if !ok {
					continue
				}
				var st stencil
				st.add(q.corners[0], (1-s)*(1-t))
				st.add(q.corners[1], s*(1-t))
				st.add(q.corners[2], s*t)
				st.add(q.corners[3], (1-s)*t)
				st.store(m, p, src, renorm)
				found = true
				break
			}
			if found {
				break
			}
		}
	}
	return nil
}

// invertBilinear finds the local coordinates (s, t) in [0, 1] of the point
// (px, py) inside the quadrilateral with counter-clockwise vertices x, y.
func invertBilinear(x, y [4]float64, px, py float64) (float64, float64, bool) {
	const tol = 1e-9
	s, t := 0.5, 0.5
	scale := math.Max(math.Abs(x[2]-x[0])+math.Abs(x[3]-x[1]), math.Abs(y[2]-y[0])+math.Abs(y[3]-y[1]))
	if scale == 0 {
		return 0, 0, false
	}
	converged := false
	for iter := 0; iter < 50; iter++ {
		fx := (1-s)*(1-t)*x[0] + s*(1-t)*x[1] + s*t*x[2] + (1-s)*t*x[3] - px
		fy := (1-s)*(1-t)*y[0] + s*(1-t)*y[1] + s*t*y[2] + (1-s)*t*y[3] - py
		if math.Hypot(fx, fy) < tol*scale {
			converged = true
			break
		}
		dxs := (1-t)*(x[1]-x[0]) + t*(x[2]-x[3])
		dys := (1-t)*(y[1]-y[0]) + t*(y[2]-y[3])
		dxt := (1-s)*(x[3]-x[0]) + s*(x[2]-x[1])
		dyt := (1-s)*(y[3]-y[0]) + s*(y[2]-y[1])
		det := dxs*dyt - dxt*dys
		if det == 0 {
			return 0, 0, false
		}
		s -= (fx*dyt - fy*dxt) / det
		t -= (fy*dxs - fx*dys) / det
	}
	if !converged || s < -tol || s > 1+tol || t < -tol || t > 1+tol {
		return 0, 0, false
	}
	return clamp01(s), clamp01(t), true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
