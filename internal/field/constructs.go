package field

import (
	"sort"

	"github.com/ctessum/sparse"
)

// ConstructType identifies the kind of a metadata construct.
type ConstructType int

const (
	TypeDimensionCoordinate ConstructType = iota
	TypeAuxiliaryCoordinate
	TypeCoordinateReference
	TypeCellMeasure
	TypeFieldAncillary
	TypeDomainAncillary
)

// keyPrefix is the stem of generated construct keys.
func (t ConstructType) keyPrefix() string {
	switch t {
	case TypeDimensionCoordinate:
		return "dimensioncoordinate"
	case TypeAuxiliaryCoordinate:
		return "auxiliarycoordinate"
	case TypeCoordinateReference:
		return "coordinatereference"
	case TypeCellMeasure:
		return "cellmeasure"
	case TypeFieldAncillary:
		return "fieldancillary"
	default:
		return "domainancillary"
	}
}

func (t ConstructType) String() string { return t.keyPrefix() }

// Construct is any metadata construct held by a Field.
type Construct interface {
	Type() ConstructType
	CopyConstruct() Construct
}

// DomainAxis is one dimension of a field's domain.
type DomainAxis struct {
	Size int
	// NcDim is the netCDF dimension name, if known.
	NcDim string
}

// Coordinate is a dimension or auxiliary coordinate. Bounds, when present,
// have the coordinate's shape plus a trailing vertex dimension.
type Coordinate struct {
	Auxiliary    bool
	Axis         string // "X", "Y", "Z", "T" or ""
	StandardName string
	Units        string
	NcVar        string
	Data         *sparse.DenseArray
	Bounds       *sparse.DenseArray
}

// Type implements Construct.
func (c *Coordinate) Type() ConstructType {
	if c.Auxiliary {
		return TypeAuxiliaryCoordinate
	}
	return TypeDimensionCoordinate
}

// CopyConstruct implements Construct.
func (c *Coordinate) CopyConstruct() Construct { return c.Copy() }

// Copy returns a deep copy.
func (c *Coordinate) Copy() *Coordinate {
	out := *c
	out.Data = CopyDense(c.Data)
	out.Bounds = CopyDense(c.Bounds)
	return &out
}

// NDim returns the number of dimensions of the coordinate data.
func (c *Coordinate) NDim() int {
	if c.Data == nil {
		return 0
	}
	return len(c.Data.Shape)
}

// HasBounds reports whether cell bounds are attached.
func (c *Coordinate) HasBounds() bool { return c.Bounds != nil }

// NewDimensionCoordinate builds a 1-d dimension coordinate.
func NewDimensionCoordinate(axis, standardName, units string, values []float64) *Coordinate {
	return &Coordinate{
		Axis:         axis,
		StandardName: standardName,
		Units:        units,
		Data:         DenseFrom(values, len(values)),
	}
}

// WithBounds attaches bounds given as (lower, upper) pairs per cell.
func (c *Coordinate) WithBounds(pairs [][2]float64) *Coordinate {
	b := Zeros([]int{len(pairs), 2})
	for i, p := range pairs {
		b.Elements[2*i] = p[0]
		b.Elements[2*i+1] = p[1]
	}
	c.Bounds = b
	return c
}

// CoordinateReference groups the coordinates and domain ancillaries that
// together define a coordinate system or formula.
type CoordinateReference struct {
	Name              string
	Coordinates       []string
	DomainAncillaries map[string]string // formula term -> construct key
}

// Type implements Construct.
func (*CoordinateReference) Type() ConstructType { return TypeCoordinateReference }

// CopyConstruct implements Construct.
func (r *CoordinateReference) CopyConstruct() Construct {
	out := &CoordinateReference{
		Name:        r.Name,
		Coordinates: append([]string(nil), r.Coordinates...),
	}
	if r.DomainAncillaries != nil {
		out.DomainAncillaries = make(map[string]string, len(r.DomainAncillaries))
		for k, v := range r.DomainAncillaries {
			out.DomainAncillaries[k] = v
		}
	}
	return out
}

// CellMeasure holds cell areas or volumes.
type CellMeasure struct {
	Measure string
	Units   string
	Data    *sparse.DenseArray
}

// Type implements Construct.
func (*CellMeasure) Type() ConstructType { return TypeCellMeasure }

// CopyConstruct implements Construct.
func (m *CellMeasure) CopyConstruct() Construct {
	return &CellMeasure{Measure: m.Measure, Units: m.Units, Data: CopyDense(m.Data)}
}

// FieldAncillary holds per-cell metadata such as quality flags.
type FieldAncillary struct {
	Name  string
	Units string
	Data  *MaskedArray
}

// Type implements Construct.
func (*FieldAncillary) Type() ConstructType { return TypeFieldAncillary }

// CopyConstruct implements Construct.
func (a *FieldAncillary) CopyConstruct() Construct {
	out := &FieldAncillary{Name: a.Name, Units: a.Units}
	if a.Data != nil {
		out.Data = a.Data.Copy()
	}
	return out
}

// DomainAncillary holds a formula term that is geometrically bound to the
// axes it spans, for example surface altitude.
type DomainAncillary struct {
	Name   string
	Units  string
	Data   *MaskedArray
	Bounds *sparse.DenseArray
}

// Type implements Construct.
func (*DomainAncillary) Type() ConstructType { return TypeDomainAncillary }

// CopyConstruct implements Construct.
func (a *DomainAncillary) CopyConstruct() Construct {
	out := &DomainAncillary{Name: a.Name, Units: a.Units, Bounds: CopyDense(a.Bounds)}
	if a.Data != nil {
		out.Data = a.Data.Copy()
	}
	return out
}

// AxisMode controls how Filter.Axes is matched against a construct's axes.
type AxisMode int

const (
	// AxisAny matches constructs spanning at least one of the axes.
	AxisAny AxisMode = iota
	// AxisSubset matches constructs whose axes all lie within the axes.
	AxisSubset
	// AxisAll matches constructs spanning every one of the axes.
	AxisAll
)

// Filter selects constructs. Zero-valued fields do not filter.
type Filter struct {
	Types []ConstructType
	Axes  []string
	Mode  AxisMode
	NDim  int
}

func (flt Filter) matchType(t ConstructType) bool {
	if len(flt.Types) == 0 {
		return true
	}
	for _, ft := range flt.Types {
		if ft == t {
			return true
		}
	}
	return false
}

func (flt Filter) matchAxes(axes []string) bool {
	if flt.NDim > 0 && len(axes) != flt.NDim {
		return false
	}
	if len(flt.Axes) == 0 {
		return true
	}
	want := toSet(flt.Axes)
	have := toSet(axes)
	switch flt.Mode {
	case AxisSubset:
		if len(axes) == 0 {
			return false
		}
		for a := range have {
			if !want[a] {
				return false
			}
		}
		return true
	case AxisAll:
		for a := range want {
			if !have[a] {
				return false
			}
		}
		return true
	default:
		for a := range have {
			if want[a] {
				return true
			}
		}
		return false
	}
}

func toSet(keys []string) map[string]bool {
	s := make(map[string]bool, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
