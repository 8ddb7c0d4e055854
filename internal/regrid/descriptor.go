package regrid

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ctessum/sparse"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/units"
)

// Machine epsilons used for the synthetic axis of 1-d Cartesian grids.
const (
	epsNeg = 1.1102230246251565e-16
	eps    = 2.220446049250313e-16
)

// GridDescriptor is the canonical description of the spatial grid of a
// field. It holds no reference to the field it was built from.
type GridDescriptor struct {
	Kind     GridKind
	CoordSys CoordSys

	// AxisKeys are the regrid domain axes, slowest-varying first.
	AxisKeys []string
	// AxisIndices are the positions of AxisKeys in the field's data.
	AxisIndices []int
	// Shape holds the size of each axis in AxisKeys.
	Shape []int

	// Coords are the coordinate arrays in (X, Y[, Z]) order, the reverse
	// of AxisKeys, plus any synthetic axis.
	Coords []*sparse.DenseArray
	// Bounds are per-coordinate cell bounds, present only for
	// conservative methods.
	Bounds []*sparse.DenseArray
	// Units of each coordinate in Coords.
	Units []string
	// CoordKeys are the field construct keys of Coords, "" for synthetic.
	CoordKeys []string

	Cyclic      bool
	Curvilinear bool
	Synthetic   bool
}

// AxisMapping identifies the X and Y domain axes spanned by 2-d spherical
// coordinates. Each entry is either a position ("0" or "1") within the
// coordinates' own dimensions, or an axis specifier resolved by the field.
type AxisMapping struct {
	X string `json:"X" yaml:"X" validate:"required"`
	Y string `json:"Y" yaml:"Y" validate:"required"`
}

// PositionalMapping returns a mapping by dimension position.
func PositionalMapping(x, y int) *AxisMapping {
	return &AxisMapping{X: strconv.Itoa(x), Y: strconv.Itoa(y)}
}

func (m *AxisMapping) positions() (int, int, bool) {
	x, errX := strconv.Atoi(m.X)
	y, errY := strconv.Atoi(m.Y)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	if (x == 0 && y == 1) || (x == 1 && y == 0) {
		return x, y, true
	}
	return 0, 0, false
}

// DescriptorOptions configures NewGridDescriptor.
type DescriptorOptions struct {
	CoordSys CoordSys
	Role     Role
	Method   Method
	// Cyclic overrides the cyclicity recorded on the field's X axis.
	Cyclic *bool
	// Axes lists one to three Cartesian axis specifiers.
	Axes []string
	// XY disambiguates 2-d spherical coordinates.
	XY *AxisMapping
}

// Size returns the number of cells in the grid.
func (g *GridDescriptor) Size() int { return field.Size(g.Shape) }

// Copy returns a deep copy.
func (g *GridDescriptor) Copy() *GridDescriptor {
	out := *g
	out.AxisKeys = append([]string(nil), g.AxisKeys...)
	out.AxisIndices = append([]int(nil), g.AxisIndices...)
	out.Shape = append([]int(nil), g.Shape...)
	out.Units = append([]string(nil), g.Units...)
	out.CoordKeys = append([]string(nil), g.CoordKeys...)
	out.Coords = copyArrays(g.Coords)
	out.Bounds = copyArrays(g.Bounds)
	return &out
}

func copyArrays(in []*sparse.DenseArray) []*sparse.DenseArray {
	if in == nil {
		return nil
	}
	out := make([]*sparse.DenseArray, len(in))
	for i, a := range in {
		out[i] = field.CopyDense(a)
	}
	return out
}

// NewGridDescriptor builds the descriptor of f's regrid axes. When f has
// data that does not span a regrid axis, a size-1 dimension for that axis
// is appended to the data in place.
func NewGridDescriptor(f *field.Field, opts DescriptorOptions) (*GridDescriptor, error) {
	p, err := opts.Method.policy()
	if err != nil {
		return nil, err
	}
	switch opts.CoordSys {
	case Spherical:
		return sphericalDescriptor(f, opts, p)
	case Cartesian:
		return cartesianDescriptor(f, opts, p)
	}
	return nil, &ConfigurationError{
		Role:      opts.Role,
		Method:    opts.Method,
		Attribute: "coordinate system",
		Detail:    fmt.Sprintf("must be spherical or Cartesian, got %q", string(opts.CoordSys)),
	}
}

func sphericalDescriptor(f *field.Field, opts DescriptorOptions, p methodPolicy) (*GridDescriptor, error) {
	cfgErr := func(attr, detail string) error {
		return &ConfigurationError{Role: opts.Role, Method: opts.Method, Attribute: attr, Detail: detail}
	}

	g := &GridDescriptor{CoordSys: Spherical, Kind: SphericalRectilinear}
	var (
		lonKey, latKey string
		lon, lat       *field.Coordinate
		xAxis, yAxis   string
	)

	k1, c1, ok1 := f.DimensionCoordinate("X")
	k2, c2, ok2 := f.DimensionCoordinate("Y")
	if ok1 && ok2 && units.IsLongitude(c1.Units) && units.IsLatitude(c2.Units) {
		lonKey, lon, latKey, lat = k1, c1, k2, c2
		xAxis = f.ConstructAxes(lonKey)[0]
		yAxis = f.ConstructAxes(latKey)[0]
	} else {
		k1, c1, ok1 = f.AuxiliaryCoordinate("X", 2)
		k2, c2, ok2 = f.AuxiliaryCoordinate("Y", 2)
		if !ok1 || !ok2 || !units.IsLongitude(c1.Units) || !units.IsLatitude(c2.Units) {
			return nil, cfgErr("coordinates", fmt.Sprintf(
				"field %q has neither 1-d nor 2-d latitude and longitude coordinates "+
					"(longitude units: %s; latitude units: %s)",
				f.Name, units.GetValidLongitudeString(), units.GetValidLatitudeString()))
		}
		lonKey, lon, latKey, lat = k1, c1, k2, c2
		g.Kind = SphericalCurvilinear
		g.Curvilinear = true

		lonAxes, latAxes := f.ConstructAxes(lonKey), f.ConstructAxes(latKey)
		if opts.XY == nil || opts.XY.X == "" || opts.XY.Y == "" {
			return nil, cfgErr("axes", "an X and Y axis mapping is required for 2-d latitude and longitude coordinates")
		}
		if x, y, ok := opts.XY.positions(); ok {
			if !equalStrings(lonAxes, latAxes) {
				return nil, cfgErr("axes", "2-d longitude and latitude coordinates span their axes in different orders")
			}
			xAxis, yAxis = lonAxes[x], lonAxes[y]
		} else {
			var err error
			if xAxis, err = f.ResolveAxis(opts.XY.X); err != nil {
				return nil, cfgErr("axes", fmt.Sprintf("X axis: %v", err))
			}
			if yAxis, err = f.ResolveAxis(opts.XY.Y); err != nil {
				return nil, cfgErr("axes", fmt.Sprintf("Y axis: %v", err))
			}
			want := []string{xAxis, yAxis}
			if !sameSet(lonAxes, want) || !sameSet(latAxes, want) {
				return nil, cfgErr("axes", fmt.Sprintf(
					"2-d coordinates do not span exactly the X and Y axes %v", want))
			}
		}
	}

	if xAxis == yAxis {
		return nil, cfgErr("axes", fmt.Sprintf("X and Y resolve to the same domain axis %q in field %q", xAxis, f.Name))
	}

	xa, _ := f.DomainAxis(xAxis)
	ya, _ := f.DomainAxis(yAxis)
	if opts.Role == RoleSource && p.strict && (xa.Size == 1 || ya.Size == 1) {
		return nil, &GridIncompatibilityError{
			Role:      opts.Role,
			Method:    opts.Method,
			Attribute: "shape",
			Detail:    fmt.Sprintf("neither the longitude nor latitude axis of field %q can have size 1", f.Name),
		}
	}

	coords := []*field.Coordinate{lon, lat}
	keys := []string{lonKey, latKey}
	if err := setCoords(g, f, coords, keys, p, opts); err != nil {
		return nil, err
	}

	if g.Curvilinear {
		for d, key := range keys {
			caxes := f.ConstructAxes(key)
			order := []int{indexOf(caxes, xAxis), indexOf(caxes, yAxis)}
			c, err := field.TransposeDense(g.Coords[d], order)
			if err != nil {
				return nil, err
			}
			g.Coords[d] = c
			if g.Bounds != nil {
				b, err := field.TransposeDense(g.Bounds[d], append(order, 2))
				if err != nil {
					return nil, err
				}
				g.Bounds[d] = b
			}
		}
	}

	if opts.Cyclic != nil {
		g.Cyclic = *opts.Cyclic
	} else {
		g.Cyclic = f.IsCyclic(xAxis)
	}

	g.AxisKeys = []string{yAxis, xAxis}
	g.Shape = []int{ya.Size, xa.Size}
	idx, err := axisIndices(f, g.AxisKeys)
	if err != nil {
		return nil, err
	}
	g.AxisIndices = idx
	return g, nil
}

func cartesianDescriptor(f *field.Field, opts DescriptorOptions, p methodPolicy) (*GridDescriptor, error) {
	cfgErr := func(attr, detail string) error {
		return &ConfigurationError{Role: opts.Role, Method: opts.Method, Attribute: attr, Detail: detail}
	}
	n := len(opts.Axes)
	if n < 1 || n > 3 {
		return nil, cfgErr("axes", fmt.Sprintf("between 1 and 3 Cartesian axes must be given, got %d", n))
	}

	keys := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for _, spec := range opts.Axes {
		key, err := f.ResolveAxis(spec)
		if err != nil {
			return nil, cfgErr("axes", fmt.Sprintf("field %q: %v", f.Name, err))
		}
		if seen[key] {
			return nil, cfgErr("axes", fmt.Sprintf("axis %q given more than once", spec))
		}
		seen[key] = true
		keys = append(keys, key)
	}

	// Regrid axes follow the order in which they appear in the data.
	if !f.IsDomain() {
		for _, key := range keys {
			if err := insertAxis(f, key); err != nil {
				return nil, err
			}
		}
		dataAxes := f.DataAxes()
		sort.SliceStable(keys, func(i, j int) bool {
			return indexOf(dataAxes, keys[i]) < indexOf(dataAxes, keys[j])
		})
	}

	g := &GridDescriptor{CoordSys: Cartesian, Kind: CartesianGrid, AxisKeys: keys}
	coords := make([]*field.Coordinate, n)
	ckeys := make([]string, n)
	for i := range keys {
		axis := keys[n-1-i]
		ck, c, ok := f.DimensionCoordinateForAxis(axis)
		if !ok {
			return nil, cfgErr("coordinates", fmt.Sprintf("no unique dimension coordinate for domain axis %q of field %q", axis, f.Name))
		}
		coords[i], ckeys[i] = c, ck
	}
	for _, key := range keys {
		a, _ := f.DomainAxis(key)
		g.Shape = append(g.Shape, a.Size)
	}

	if opts.Role == RoleSource && p.strict {
		for i, s := range g.Shape {
			if s == 1 {
				return nil, &GridIncompatibilityError{
					Role:      opts.Role,
					Method:    opts.Method,
					Attribute: "shape",
					Detail:    fmt.Sprintf("axis %q of field %q has size 1", keys[i], f.Name),
				}
			}
		}
	}

	if err := setCoords(g, f, coords, ckeys, p, opts); err != nil {
		return nil, err
	}

	if n == 1 {
		g.Synthetic = true
		g.Units = append(g.Units, "")
		g.CoordKeys = append(g.CoordKeys, "")
		if p.conservative {
			g.Coords = append(g.Coords, field.DenseFrom([]float64{0}, 1))
			g.Bounds = append(g.Bounds, field.DenseFrom([]float64{epsNeg, eps}, 1, 2))
		} else {
			g.Coords = append(g.Coords, field.DenseFrom([]float64{epsNeg, eps}, 2))
		}
	}

	idx, err := axisIndices(f, g.AxisKeys)
	if err != nil {
		return nil, err
	}
	g.AxisIndices = idx
	return g, nil
}

// setCoords copies coordinate values, units and, for conservative methods,
// bounds into g.
func setCoords(g *GridDescriptor, f *field.Field, coords []*field.Coordinate, keys []string, p methodPolicy, opts DescriptorOptions) error {
	for i, c := range coords {
		g.Coords = append(g.Coords, field.CopyDense(c.Data))
		g.Units = append(g.Units, c.Units)
		g.CoordKeys = append(g.CoordKeys, keys[i])
		if !p.conservative {
			continue
		}
		if !c.HasBounds() {
			return &GridIncompatibilityError{
				Role:      opts.Role,
				Method:    opts.Method,
				Attribute: "bounds",
				Detail:    fmt.Sprintf("coordinate %q of field %q has no bounds", keys[i], f.Name),
			}
		}
		g.Bounds = append(g.Bounds, field.CopyDense(c.Bounds))
	}
	return nil
}

// axisIndices returns the data positions of keys, inserting missing axes
// into the data. A domain's axes are numbered in order.
func axisIndices(f *field.Field, keys []string) ([]int, error) {
	out := make([]int, len(keys))
	if f.IsDomain() {
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	for _, key := range keys {
		if err := insertAxis(f, key); err != nil {
			return nil, err
		}
	}
	dataAxes := f.DataAxes()
	for i, key := range keys {
		out[i] = indexOf(dataAxes, key)
	}
	return out, nil
}

func insertAxis(f *field.Field, key string) error {
	if indexOf(f.DataAxes(), key) >= 0 {
		return nil
	}
	if err := f.InsertDimension(key); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if indexOf(b, s) < 0 {
			return false
		}
	}
	return true
}
