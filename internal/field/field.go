package field

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a construct or axis lookup has no match.
var ErrNotFound = errors.New("not found")

// Field is a domain plus an optional data array. A Field whose data is nil
// is a domain.
type Field struct {
	Name  string
	Units string

	data     *MaskedArray
	dataAxes []string

	axes       map[string]*DomainAxis
	constructs map[string]Construct
	spans      map[string][]string
	periods    map[string]float64 // cyclic axes and their period
	counter    map[string]int
}

// New returns an empty domain.
func New(name string) *Field {
	return &Field{
		Name:       name,
		axes:       make(map[string]*DomainAxis),
		constructs: make(map[string]Construct),
		spans:      make(map[string][]string),
		periods:    make(map[string]float64),
		counter:    make(map[string]int),
	}
}

func (f *Field) nextKey(prefix string) string {
	for {
		key := fmt.Sprintf("%s%d", prefix, f.counter[prefix])
		f.counter[prefix]++
		if _, ok := f.axes[key]; ok {
			continue
		}
		if _, ok := f.constructs[key]; ok {
			continue
		}
		return key
	}
}

// IsDomain reports whether the field carries no data.
func (f *Field) IsDomain() bool { return f.data == nil }

// AddDomainAxis creates a new domain axis and returns its key.
func (f *Field) AddDomainAxis(size int) string {
	key := f.nextKey("domainaxis")
	f.axes[key] = &DomainAxis{Size: size}
	return key
}

// SetDomainAxis creates or replaces the domain axis with the given key.
func (f *Field) SetDomainAxis(key string, axis DomainAxis) {
	a := axis
	f.axes[key] = &a
}

// DomainAxis returns the domain axis with the given key.
func (f *Field) DomainAxis(key string) (*DomainAxis, bool) {
	a, ok := f.axes[key]
	return a, ok
}

// DomainAxes returns the keys of all domain axes in sorted order.
func (f *Field) DomainAxes() []string { return sortedKeys(f.axes) }

// SetConstruct stores c spanning axes under a generated key.
func (f *Field) SetConstruct(c Construct, axes ...string) (string, error) {
	key := f.nextKey(c.Type().keyPrefix())
	if err := f.SetConstructKey(key, c, axes...); err != nil {
		return "", err
	}
	return key, nil
}

// SetConstructKey stores c spanning axes under key, replacing any existing
// construct with that key.
func (f *Field) SetConstructKey(key string, c Construct, axes ...string) error {
	if c.Type() == TypeCoordinateReference {
		if len(axes) != 0 {
			return fmt.Errorf("coordinate reference %q cannot span axes", key)
		}
	} else {
		shape := constructShape(c)
		if shape != nil && len(shape) != len(axes) {
			return fmt.Errorf("construct %q has %d dimensions but spans %d axes", key, len(shape), len(axes))
		}
		for i, a := range axes {
			da, ok := f.axes[a]
			if !ok {
				return fmt.Errorf("construct %q: domain axis %q: %w", key, a, ErrNotFound)
			}
			if shape != nil && shape[i] != da.Size {
				return fmt.Errorf("construct %q dimension %d has size %d, domain axis %q has size %d",
					key, i, shape[i], a, da.Size)
			}
		}
	}
	f.constructs[key] = c
	f.spans[key] = append([]string(nil), axes...)
	return nil
}

func constructShape(c Construct) []int {
	switch v := c.(type) {
	case *Coordinate:
		if v.Data != nil {
			return v.Data.Shape
		}
	case *CellMeasure:
		if v.Data != nil {
			return v.Data.Shape
		}
	case *FieldAncillary:
		if v.Data != nil {
			return v.Data.Data.Shape
		}
	case *DomainAncillary:
		if v.Data != nil {
			return v.Data.Data.Shape
		}
	}
	return nil
}

// Construct returns the construct with the given key.
func (f *Field) Construct(key string) (Construct, bool) {
	c, ok := f.constructs[key]
	return c, ok
}

// ConstructAxes returns the domain axes spanned by the construct.
func (f *Field) ConstructAxes(key string) []string {
	return append([]string(nil), f.spans[key]...)
}

// DelConstruct removes a construct. Coordinates and domain ancillaries are
// also unlinked from any coordinate reference that names them.
func (f *Field) DelConstruct(key string) error {
	if _, ok := f.constructs[key]; !ok {
		return fmt.Errorf("construct %q: %w", key, ErrNotFound)
	}
	delete(f.constructs, key)
	delete(f.spans, key)
	for _, c := range f.constructs {
		ref, ok := c.(*CoordinateReference)
		if !ok {
			continue
		}
		coords := ref.Coordinates[:0]
		for _, k := range ref.Coordinates {
			if k != key {
				coords = append(coords, k)
			}
		}
		ref.Coordinates = coords
		for term, k := range ref.DomainAncillaries {
			if k == key {
				ref.DomainAncillaries[term] = ""
			}
		}
	}
	return nil
}

// DelCoordinateReference removes a coordinate reference together with the
// domain ancillaries it names.
func (f *Field) DelCoordinateReference(key string) error {
	c, ok := f.constructs[key]
	if !ok {
		return fmt.Errorf("coordinate reference %q: %w", key, ErrNotFound)
	}
	ref, ok := c.(*CoordinateReference)
	if !ok {
		return fmt.Errorf("construct %q is not a coordinate reference", key)
	}
	for _, da := range sortedKeys(ref.DomainAncillaries) {
		if k := ref.DomainAncillaries[da]; k != "" {
			if _, ok := f.constructs[k]; ok {
				delete(f.constructs, k)
				delete(f.spans, k)
			}
		}
	}
	delete(f.constructs, key)
	delete(f.spans, key)
	return nil
}

// Keys returns the keys of the constructs selected by flt, sorted.
func (f *Field) Keys(flt Filter) []string {
	var out []string
	for _, key := range sortedKeys(f.constructs) {
		c := f.constructs[key]
		if !flt.matchType(c.Type()) {
			continue
		}
		if !flt.matchAxes(f.spans[key]) {
			continue
		}
		out = append(out, key)
	}
	return out
}

// Coordinate returns the coordinate with the given key.
func (f *Field) Coordinate(key string) (*Coordinate, bool) {
	c, ok := f.constructs[key].(*Coordinate)
	return c, ok
}

// DimensionCoordinate returns the unique dimension coordinate whose Axis
// tag is axisTag.
func (f *Field) DimensionCoordinate(axisTag string) (string, *Coordinate, bool) {
	return f.uniqueCoordinate(Filter{Types: []ConstructType{TypeDimensionCoordinate}}, axisTag)
}

// AuxiliaryCoordinate returns the unique ndim-dimensional auxiliary
// coordinate whose Axis tag is axisTag.
func (f *Field) AuxiliaryCoordinate(axisTag string, ndim int) (string, *Coordinate, bool) {
	return f.uniqueCoordinate(Filter{Types: []ConstructType{TypeAuxiliaryCoordinate}, NDim: ndim}, axisTag)
}

func (f *Field) uniqueCoordinate(flt Filter, axisTag string) (string, *Coordinate, bool) {
	var found string
	for _, key := range f.Keys(flt) {
		c := f.constructs[key].(*Coordinate)
		if c.Axis != axisTag {
			continue
		}
		if found != "" {
			return "", nil, false
		}
		found = key
	}
	if found == "" {
		return "", nil, false
	}
	return found, f.constructs[found].(*Coordinate), true
}

// DimensionCoordinateForAxis returns the dimension coordinate spanning the
// domain axis.
func (f *Field) DimensionCoordinateForAxis(axis string) (string, *Coordinate, bool) {
	keys := f.Keys(Filter{
		Types: []ConstructType{TypeDimensionCoordinate},
		Axes:  []string{axis},
		Mode:  AxisSubset,
	})
	if len(keys) != 1 {
		return "", nil, false
	}
	return keys[0], f.constructs[keys[0]].(*Coordinate), true
}

// ResolveAxis maps an axis specifier to a unique domain axis key. The
// specifier may be a domain axis key, an Axis tag ("X", "Y", ...), the
// standard name of a 1-d dimension coordinate, or a netCDF dimension name.
func (f *Field) ResolveAxis(spec string) (string, error) {
	if _, ok := f.axes[spec]; ok {
		return spec, nil
	}
	var matches []string
	for _, key := range f.Keys(Filter{Types: []ConstructType{TypeDimensionCoordinate}}) {
		c := f.constructs[key].(*Coordinate)
		if c.Axis == spec || c.StandardName == spec || c.NcVar == spec {
			matches = append(matches, f.spans[key]...)
		}
	}
	for _, key := range f.DomainAxes() {
		if f.axes[key].NcDim != "" && f.axes[key].NcDim == spec {
			matches = append(matches, key)
		}
	}
	matches = dedupe(matches)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("axis %q: %w", spec, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("axis %q is ambiguous: matches %v", spec, matches)
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// IsCyclic reports whether the domain axis wraps around.
func (f *Field) IsCyclic(axis string) bool {
	_, ok := f.periods[axis]
	return ok
}

// Period returns the period of a cyclic axis.
func (f *Field) Period(axis string) (float64, bool) {
	p, ok := f.periods[axis]
	return p, ok
}

// SetCyclic marks the axis as cyclic with the given period, or clears it.
func (f *Field) SetCyclic(axis string, cyclic bool, period float64) {
	if cyclic {
		f.periods[axis] = period
		return
	}
	delete(f.periods, axis)
}

// Data returns the data array, nil for a domain.
func (f *Field) Data() *MaskedArray { return f.data }

// DataAxes returns the domain axes spanned by the data, in dimension order.
func (f *Field) DataAxes() []string { return append([]string(nil), f.dataAxes...) }

// SetData attaches data spanning axes. The data shape must agree with the
// domain axis sizes.
func (f *Field) SetData(data *MaskedArray, axes ...string) error {
	shape := data.Shape()
	if len(shape) != len(axes) {
		return fmt.Errorf("data has %d dimensions but %d axes were given", len(shape), len(axes))
	}
	for i, a := range axes {
		da, ok := f.axes[a]
		if !ok {
			return fmt.Errorf("data axis %q: %w", a, ErrNotFound)
		}
		if da.Size != shape[i] {
			return fmt.Errorf("data dimension %d has size %d, domain axis %q has size %d", i, shape[i], a, da.Size)
		}
	}
	f.data = data
	f.dataAxes = append([]string(nil), axes...)
	return nil
}

// DelData turns the field into a domain.
func (f *Field) DelData() {
	f.data = nil
	f.dataAxes = nil
}

// InsertDimension appends a size-1 domain axis to the end of the data.
func (f *Field) InsertDimension(axis string) error {
	da, ok := f.axes[axis]
	if !ok {
		return fmt.Errorf("domain axis %q: %w", axis, ErrNotFound)
	}
	if da.Size != 1 {
		return fmt.Errorf("cannot insert domain axis %q of size %d into the data", axis, da.Size)
	}
	for _, a := range f.dataAxes {
		if a == axis {
			return nil
		}
	}
	if f.data == nil {
		return nil
	}
	shape := append(f.data.Shape(), 1)
	f.data.Data.Shape = shape
	f.dataAxes = append(f.dataAxes, axis)
	return nil
}

// Copy returns a deep copy.
func (f *Field) Copy() *Field {
	out := New(f.Name)
	out.Units = f.Units
	for k, a := range f.axes {
		ax := *a
		out.axes[k] = &ax
	}
	for k, c := range f.constructs {
		out.constructs[k] = c.CopyConstruct()
		out.spans[k] = append([]string(nil), f.spans[k]...)
	}
	for k, p := range f.periods {
		out.periods[k] = p
	}
	for k, n := range f.counter {
		out.counter[k] = n
	}
	if f.data != nil {
		out.data = f.data.Copy()
		out.dataAxes = append([]string(nil), f.dataAxes...)
	}
	return out
}

// ConvertToField returns a new field whose data is the domain ancillary
// with the given key and whose domain is a copy of this field's domain.
func (f *Field) ConvertToField(key string) (*Field, error) {
	c, ok := f.constructs[key].(*DomainAncillary)
	if !ok {
		return nil, fmt.Errorf("domain ancillary %q: %w", key, ErrNotFound)
	}
	out := f.Copy()
	out.Name = c.Name
	out.Units = c.Units
	out.DelData()
	if err := out.DelConstruct(key); err != nil {
		return nil, err
	}
	data := c.Data
	if data == nil {
		return nil, fmt.Errorf("domain ancillary %q has no data", key)
	}
	if err := out.SetData(data.Copy(), f.spans[key]...); err != nil {
		return nil, err
	}
	return out, nil
}
