package weights

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

const (
	epsneg = 1.1102230246251565e-16
	eps    = 2.220446049250313e-16
)

func dense(values ...float64) *sparse.DenseArray {
	d := sparse.ZerosDense(len(values))
	copy(d.Elements, values)
	return d
}

func rectGrid(name string, spherical bool, centers ...[]float64) GridSpec {
	g := GridSpec{Name: name, Spherical: spherical}
	for _, c := range centers {
		g.Shape = append(g.Shape, len(c))
		g.Centers = append(g.Centers, dense(c...))
	}
	return g
}

func withCorners(g GridSpec, corners ...[]float64) GridSpec {
	for _, c := range corners {
		g.Corners = append(g.Corners, dense(c...))
	}
	return g
}

func regrid(t *testing.T, src, dst GridSpec, opts RegridOptions) (Triple, error) {
	t.Helper()
	e := NewEngine()
	require.NoError(t, e.Initialise())
	sg, err := e.NewGrid(src)
	require.NoError(t, err)
	defer sg.Destroy()
	dg, err := e.NewGrid(dst)
	require.NoError(t, err)
	defer dg.Destroy()
	sf, err := e.NewField(sg, "src")
	require.NoError(t, err)
	defer sf.Destroy()
	df, err := e.NewField(dg, "dst")
	require.NoError(t, err)
	defer df.Destroy()
	r, err := e.NewRegrid(sf, df, opts)
	if err != nil {
		return Triple{}, err
	}
	defer r.Destroy()
	return r.Weights()
}

func rowSums(t Triple, n int) []float64 {
	sums := make([]float64, n)
	for k, r := range t.Rows {
		sums[r] += t.Weights[k]
	}
	return sums
}

func TestEngine_RequiresInitialise(t *testing.T) {
	e := NewEngine()
	_, err := e.NewGrid(rectGrid("g", false, []float64{0, 1}, []float64{0, 1}))
	assert.ErrorIs(t, err, ErrNotInitialised)
}

func TestEngine_HandleLifecycle(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Initialise())
	require.NoError(t, e.Initialise())

	g, err := e.NewGrid(rectGrid("g", false, []float64{0, 1}, []float64{0, 1}))
	require.NoError(t, err)
	f, err := e.NewField(g, "f")
	require.NoError(t, err)
	r, err := e.NewRegrid(f, f, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Live())

	r.Destroy()
	r.Destroy()
	assert.Equal(t, 2, e.Live())
	_, err = r.Weights()
	assert.ErrorIs(t, err, ErrDestroyed)

	g.Destroy()
	_, err = e.NewField(g, "again")
	assert.ErrorIs(t, err, ErrDestroyed)
	f.Destroy()
	assert.Equal(t, 0, e.Live())

	other := NewEngine()
	require.NoError(t, other.Initialise())
	og, err := other.NewGrid(rectGrid("o", false, []float64{0, 1}, []float64{0, 1}))
	require.NoError(t, err)
	defer og.Destroy()
	_, err = e.NewField(og, "foreign")
	assert.Error(t, err)
}

func TestGridSpec_Validate(t *testing.T) {
	good := rectGrid("g", false, []float64{0, 1, 2}, []float64{0, 1})
	tests := []struct {
		name   string
		mutate func(g *GridSpec)
	}{
		{"too many dimensions", func(g *GridSpec) { g.Shape = []int{1, 1, 1, 1} }},
		{"centre count", func(g *GridSpec) { g.Centers = g.Centers[:1] }},
		{"centre length", func(g *GridSpec) { g.Shape = []int{4, 2} }},
		{"periodic cartesian", func(g *GridSpec) { g.Periodic = true }},
		{"mask length", func(g *GridSpec) { g.Mask = []int32{1} }},
		{"corner length", func(g *GridSpec) { g.Corners = []*sparse.DenseArray{dense(0, 1), dense(0, 1, 2)} }},
	}
	require.NoError(t, good.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := good
			g.Centers = append([]*sparse.DenseArray(nil), good.Centers...)
			g.Shape = append([]int(nil), good.Shape...)
			tt.mutate(&g)
			assert.Error(t, g.Validate())
		})
	}
}

func TestLinear_OneDimensionalWithDummyAxis(t *testing.T) {
	src := rectGrid("src", false, []float64{0, 1, 2, 3}, []float64{epsneg, eps})
	dst := rectGrid("dst", false, []float64{0, 0.6, 1.2, 1.8, 2.4, 3}, []float64{epsneg, eps})

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)

	// The second dummy row maps only onto the second dummy column, so the
	// top-left quarter holds the 1-d weights.
	for k := range w.Rows {
		assert.Equal(t, w.Rows[k] < 6, w.Cols[k] < 4, "weight %d crosses the dummy axis", k)
	}
	sums := rowSums(w, dst.Size())
	for p, s := range sums {
		assert.InDelta(t, 1, s, 1e-12, "row %d", p)
	}
	assert.Equal(t, []int{0, 1}, w.Cols[1:3])
	assert.InDelta(t, 0.4, w.Weights[1], 1e-12)
	assert.InDelta(t, 0.6, w.Weights[2], 1e-12)
}

func TestLinear_PeriodicWrap(t *testing.T) {
	src := rectGrid("src", true, []float64{0, 90, 180, 270}, []float64{-45, 45})
	src.Periodic = true
	dst := rectGrid("dst", true, []float64{315, -45}, []float64{-45})

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)
	want := Triple{Weights: []float64{0.5, 0.5, 0.5, 0.5}, Rows: []int{0, 0, 1, 1}, Cols: []int{0, 3, 0, 3}}
	if diff := cmp.Diff(w, want); diff != "" {
		t.Errorf("weights mismatch (-got +want):\n%s", diff)
	}

	src.Periodic = false
	w, err = regrid(t, src, dst, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)
	assert.Zero(t, w.Len(), "a non-periodic grid cannot bracket beyond its last longitude")
}

func TestLinear_SourceMask(t *testing.T) {
	src := rectGrid("src", false, []float64{0, 1, 2}, []float64{0, 1})
	src.Mask = []int32{1, 0, 1, 1, 1, 1}
	dst := rectGrid("dst", false, []float64{0.5, 1.5}, []float64{0.5})

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)
	assert.Zero(t, w.Len(), "both destination points touch the masked source point")

	w, err = regrid(t, src, dst, RegridOptions{Method: MethodPatch})
	require.NoError(t, err)
	sums := rowSums(w, 2)
	assert.InDelta(t, 1, sums[0], 1e-12)
	assert.InDelta(t, 1, sums[1], 1e-12)
	assert.NotContains(t, w.Cols, 1)
}

func TestLinear_CurvilinearMatchesRectilinear(t *testing.T) {
	xs := []float64{0, 1, 2, 4}
	ys := []float64{10, 11, 13}
	rect := rectGrid("rect", false, xs, ys)

	cx := sparse.ZerosDense(len(xs), len(ys))
	cy := sparse.ZerosDense(len(xs), len(ys))
	for i, x := range xs {
		for j, y := range ys {
			cx.Set(x, i, j)
			cy.Set(y, i, j)
		}
	}
	curv := GridSpec{Name: "curv", Shape: []int{len(xs), len(ys)}, Centers: []*sparse.DenseArray{cx, cy}}
	dst := rectGrid("dst", false, []float64{0.25, 1.5, 3}, []float64{10.5, 12})

	want, err := regrid(t, rect, dst, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)
	got, err := regrid(t, curv, dst, RegridOptions{Method: MethodBilinear})
	require.NoError(t, err)

	require.Equal(t, want.Rows, got.Rows)
	require.Equal(t, want.Cols, got.Cols)
	assert.True(t, floats.EqualApprox(want.Weights, got.Weights, 1e-9))
}

func TestConservative_SphericalCyclic(t *testing.T) {
	src := withCorners(
		rectGrid("src", true, []float64{45, 135, 225, 315}, []float64{-60, 0, 60}),
		[]float64{0, 90, 180, 270},
		[]float64{-90, -30, 30, 90},
	)
	src.Periodic = true

	dlon := make([]float64, 8)
	dlonc := make([]float64, 8)
	for i := range dlon {
		dlonc[i] = 45 * float64(i)
		dlon[i] = dlonc[i] + 22.5
	}
	dst := withCorners(
		rectGrid("dst", true, dlon, []float64{-75, -45, -15, 15, 45, 75}),
		dlonc,
		[]float64{-90, -60, -30, 0, 30, 60, 90},
	)
	dst.Periodic = true

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodConserve, IgnoreDegenerate: true})
	require.NoError(t, err)
	for p, s := range rowSums(w, dst.Size()) {
		assert.InDelta(t, 1, s, 1e-12, "destination cell %d", p)
	}

	// Destination cell (i=0, j=0) lies inside source cell (0, 0).
	assert.Equal(t, 0, w.Rows[0])
	assert.Equal(t, 0, w.Cols[0])
	assert.InDelta(t, 1, w.Weights[0], 1e-12)
	assert.Equal(t, 1, w.Rows[1], "row 0 has a single contributor")
}

func TestConservative_MaskedSourceRenormalised(t *testing.T) {
	src := withCorners(
		rectGrid("src", false, []float64{0.5, 1.5}, []float64{0.5}),
		[]float64{0, 1, 2}, []float64{0, 1},
	)
	src.Mask = []int32{1, 0}
	dst := withCorners(
		rectGrid("dst", false, []float64{1}, []float64{0.5}),
		[]float64{0, 2}, []float64{0, 1},
	)

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodConserve})
	require.NoError(t, err)
	want := Triple{Weights: []float64{1}, Rows: []int{0}, Cols: []int{0}}
	if diff := cmp.Diff(w, want); diff != "" {
		t.Errorf("weights mismatch (-got +want):\n%s", diff)
	}
}

func TestConservative_Degenerate(t *testing.T) {
	src := withCorners(
		rectGrid("src", false, []float64{0.5, 1}, []float64{0.5}),
		[]float64{0, 1, 1}, []float64{0, 1},
	)
	dst := withCorners(
		rectGrid("dst", false, []float64{0.5}, []float64{0.5}),
		[]float64{0, 1}, []float64{0, 1},
	)
	_, err := regrid(t, src, dst, RegridOptions{Method: MethodConserve})
	require.NoError(t, err, "a zero-width cell that overlaps nothing is never visited")

	dst = withCorners(
		rectGrid("dst", false, []float64{1}, []float64{0.5}),
		[]float64{1, 1}, []float64{0, 1},
	)
	_, err = regrid(t, src, dst, RegridOptions{Method: MethodConserve})
	assert.True(t, errors.Is(err, ErrDegenerate))
	_, err = regrid(t, src, dst, RegridOptions{Method: MethodConserve, IgnoreDegenerate: true})
	assert.NoError(t, err)
}

func TestConservative_Curvilinear(t *testing.T) {
	cx := sparse.ZerosDense(3, 3)
	cy := sparse.ZerosDense(3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cx.Set(float64(i), i, j)
			cy.Set(float64(j), i, j)
		}
	}
	px := sparse.ZerosDense(2, 2)
	py := sparse.ZerosDense(2, 2)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			px.Set(float64(i)+0.5, i, j)
			py.Set(float64(j)+0.5, i, j)
		}
	}
	src := GridSpec{Name: "src", Shape: []int{2, 2}, Centers: []*sparse.DenseArray{px, py}, Corners: []*sparse.DenseArray{cx, cy}}
	dst := withCorners(
		rectGrid("dst", false, []float64{1}, []float64{1}),
		[]float64{0.5, 1.5}, []float64{0.5, 1.5},
	)

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodConserve})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, w.Cols)
	for _, v := range w.Weights {
		assert.InDelta(t, 0.25, v, 1e-9)
	}
}

func TestNearest(t *testing.T) {
	src := rectGrid("src", false, []float64{0, 1, 2, 3}, []float64{0})
	src.Mask = []int32{1, 0, 1, 1}
	dst := rectGrid("dst", false, []float64{0.9, 2.6}, []float64{0})

	w, err := regrid(t, src, dst, RegridOptions{Method: MethodNearestStoD})
	require.NoError(t, err)
	want := Triple{Weights: []float64{1, 1}, Rows: []int{0, 1}, Cols: []int{0, 3}}
	if diff := cmp.Diff(w, want); diff != "" {
		t.Errorf("stod mismatch (-got +want):\n%s", diff)
	}

	w, err = regrid(t, src, dst, RegridOptions{Method: MethodNearestDtoS})
	require.NoError(t, err)
	want = Triple{Weights: []float64{1, 0.5, 0.5}, Rows: []int{0, 1, 1}, Cols: []int{0, 2, 3}}
	if diff := cmp.Diff(w, want); diff != "" {
		t.Errorf("dtos mismatch (-got +want):\n%s", diff)
	}
}

func TestNearest_GreatCircle(t *testing.T) {
	// 350E is closer to 0E than to 300E on the sphere.
	src := rectGrid("src", true, []float64{0, 300}, []float64{0})
	dst := rectGrid("dst", true, []float64{350}, []float64{0})
	w, err := regrid(t, src, dst, RegridOptions{Method: MethodNearestStoD})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, w.Cols)
}

func TestUnmappedError(t *testing.T) {
	src := rectGrid("src", false, []float64{0, 1}, []float64{0, 1})
	dst := rectGrid("dst", false, []float64{0.5, 5}, []float64{0.5})

	_, err := regrid(t, src, dst, RegridOptions{Method: MethodBilinear, Unmapped: UnmappedError})
	assert.ErrorIs(t, err, ErrUnmapped)

	dst.Mask = []int32{1, 0}
	_, err = regrid(t, src, dst, RegridOptions{Method: MethodBilinear, Unmapped: UnmappedError})
	assert.NoError(t, err, "masked destination points need no weights")
}

func TestWrapInto(t *testing.T) {
	tests := []struct{ x, base, want float64 }{
		{-45, 0, 315},
		{360, 0, 0},
		{725, 0, 5},
		{10, -180, 10},
		{190, -180, -170},
	}
	for _, tt := range tests {
		if got := wrapInto(tt.x, tt.base); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("wrapInto(%v, %v) = %v, want %v", tt.x, tt.base, got, tt.want)
		}
	}
}
