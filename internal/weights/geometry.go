package weights

import (
	"math"

	"github.com/ctessum/geom"
)

// unravel splits a flat grid index into per-dimension indices, first
// dimension fastest.
func (g GridSpec) unravel(p int, out []int) {
	for d, n := range g.Shape {
		out[d] = p % n
		p /= n
	}
}

// ravel is the inverse of unravel.
func (g GridSpec) ravel(idx []int) int {
	p := 0
	for d := len(g.Shape) - 1; d >= 0; d-- {
		p = p*g.Shape[d] + idx[d]
	}
	return p
}

// point returns the coordinates of grid point p.
func (g GridSpec) point(p int) []float64 {
	idx := make([]int, len(g.Shape))
	g.unravel(p, idx)
	x := make([]float64, len(g.Shape))
	if g.Curvilinear() {
		k := idx[0]*g.Shape[1] + idx[1]
		for d := range x {
			x[d] = g.Centers[d].Elements[k]
		}
		return x
	}
	for d := range x {
		x[d] = g.Centers[d].Elements[idx[d]]
	}
	return x
}

// wrapInto returns x shifted by a whole number of periods into
// [base, base+Period).
func wrapInto(x, base float64) float64 {
	r := math.Mod(x-base, Period)
	if r < 0 {
		r += Period
	}
	return base + r
}

// wrapDiff returns d shifted by a whole number of periods into
// [-Period/2, Period/2).
func wrapDiff(d float64) float64 {
	return wrapInto(d, -Period/2)
}

// span is a bracketing pair of indices with the fractional position t of
// the target between them.
type span struct {
	lo, hi int
	t      float64
}

// bracket locates x between two consecutive values of c, which must be
// monotonic. A periodic axis also brackets between the last value and the
// first value plus one period.
func bracket(c []float64, x float64, periodic bool) (span, bool) {
	n := len(c)
	if n == 1 {
		if x == c[0] {
			return span{}, true
		}
		return span{}, false
	}
	if periodic {
		x = wrapInto(x, c[0])
		if x > c[n-1] {
			return span{lo: n - 1, hi: 0, t: (x - c[n-1]) / (c[0] + Period - c[n-1])}, true
		}
	}
	for k := 0; k < n-1; k++ {
		a, b := c[k], c[k+1]
		if x < math.Min(a, b) || x > math.Max(a, b) {
			continue
		}
		if a == b {
			return span{lo: k, hi: k}, true
		}
		return span{lo: k, hi: k + 1, t: (x - a) / (b - a)}, true
	}
	return span{}, false
}

// unitVector converts longitude and latitude in degrees to a point on the
// unit sphere.
func unitVector(lon, lat float64) [3]float64 {
	lo := lon * math.Pi / 180
	la := lat * math.Pi / 180
	return [3]float64{math.Cos(la) * math.Cos(lo), math.Cos(la) * math.Sin(lo), math.Sin(la)}
}

// distance2 is a monotonic measure of the distance between two points: the
// squared chord length on the sphere, or the squared Euclidean distance.
func distance2(spherical bool, a, b []float64) float64 {
	if spherical {
		u, v := unitVector(a[0], a[1]), unitVector(b[0], b[1])
		var s float64
		for i := range u {
			s += (u[i] - v[i]) * (u[i] - v[i])
		}
		return s
	}
	var s float64
	for i := range a {
		s += (a[i] - b[i]) * (a[i] - b[i])
	}
	return s
}

// areaY maps a Y coordinate into the space in which areas are measured.
// On the sphere that is sin(latitude), which makes longitude-latitude
// rectangles equal-area.
func areaY(spherical bool, y float64) float64 {
	if !spherical {
		return y
	}
	y = math.Max(-90, math.Min(90, y))
	return math.Sin(y * math.Pi / 180)
}

// cell is a grid cell polygon tagged with its flat index.
type cell struct {
	geom.Polygon
	index int
}

// cellPolygons builds one polygon per cell from the grid corners. On the
// sphere longitudes are unwrapped relative to each cell's first vertex and
// latitudes are mapped through areaY.
func cellPolygons(g GridSpec) []cell {
	out := make([]cell, 0, g.Size())
	ny := g.Shape[1]
	idx := make([]int, 2)
	for p := 0; p < g.Size(); p++ {
		g.unravel(p, idx)
		i, j := idx[0], idx[1]
		var vx, vy [4]float64
		if g.Curvilinear() {
			cx, cy := g.Corners[0], g.Corners[1]
			at := func(a, b int) (float64, float64) {
				k := a*(ny+1) + b
				return cx.Elements[k], cy.Elements[k]
			}
			vx[0], vy[0] = at(i, j)
			vx[1], vy[1] = at(i+1, j)
			vx[2], vy[2] = at(i+1, j+1)
			vx[3], vy[3] = at(i, j+1)
		} else {
			x0, x1 := rectEdges(g, 0, i)
			y0, y1 := rectEdges(g, 1, j)
			vx = [4]float64{x0, x1, x1, x0}
			vy = [4]float64{y0, y0, y1, y1}
		}
		path := make([]geom.Point, 4)
		for v := 0; v < 4; v++ {
			x := vx[v]
			if g.Spherical && v > 0 {
				x = vx[0] + wrapDiff(vx[v]-vx[0])
			}
			path[v] = geom.Point{X: x, Y: areaY(g.Spherical, vy[v])}
		}
		out = append(out, cell{Polygon: geom.Polygon{path}, index: p})
	}
	return out
}

// rectEdges returns the lower and upper corner values of cell i along
// dimension d of a rectilinear grid. The last cell of a periodic X axis
// closes onto the first corner shifted by one period.
func rectEdges(g GridSpec, d, i int) (float64, float64) {
	c := g.Corners[d].Elements
	if i+1 < len(c) {
		return c[i], c[i+1]
	}
	return c[i], c[0] + Period
}
