package regrid

import (
	"fmt"
	"sort"
	"time"

	"github.com/ctessum/sparse"
	"github.com/google/uuid"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/weights"
)

// Parameters capture the destination grid of an operator so that the
// operator alone is enough to regrid another source field.
type Parameters struct {
	// Dst is a copy of the destination domain, without data.
	Dst *field.Field
	// DstAxes are the destination Cartesian axis keys.
	DstAxes []string
	// DstXY maps the destination X and Y axes for 2-d spherical grids.
	DstXY *AxisMapping
}

func (p Parameters) copy() Parameters {
	out := Parameters{DstAxes: append([]string(nil), p.DstAxes...)}
	if p.Dst != nil {
		out.Dst = p.Dst.Copy()
	}
	if p.DstXY != nil {
		xy := *p.DstXY
		out.DstXY = &xy
	}
	return out
}

// OperatorSpec holds everything needed to construct an Operator.
type OperatorSpec struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	Method     Method
	CoordSys   CoordSys
	Weights    weights.Triple
	SrcShape   []int
	DstShape   []int
	SrcCyclic  bool
	DstCyclic  bool
	SrcCoords  []*sparse.DenseArray
	SrcBounds  []*sparse.DenseArray
	SrcMask    Mask
	DstMask    Mask
	Parameters Parameters
}

// Operator is an immutable sparse regrid operator. All accessors return
// copies.
type Operator struct {
	id        uuid.UUID
	createdAt time.Time
	method    Method
	coordSys  CoordSys

	weights weights.Triple
	// rowStart[r] is the first entry of destination row r in weights.
	rowStart []int

	srcShape, dstShape   []int
	srcCyclic, dstCyclic bool
	srcCoords, srcBounds []*sparse.DenseArray
	srcMask, dstMask     Mask
	// srcBaked is set when the source mask shaped the weights.
	srcBaked bool
	params   Parameters
}

// NewOperator validates s and returns an operator holding deep copies of
// its contents. Weights are sorted by destination row then source column,
// and masks without masked cells are stored as nil.
func NewOperator(s OperatorSpec) (*Operator, error) {
	p, err := s.Method.policy()
	if err != nil {
		return nil, err
	}
	if s.CoordSys != Spherical && s.CoordSys != Cartesian {
		return nil, fmt.Errorf("operator: unknown coordinate system %q", s.CoordSys)
	}
	w := s.Weights
	if len(w.Rows) != len(w.Weights) || len(w.Cols) != len(w.Weights) {
		return nil, fmt.Errorf("operator: weight triple has %d weights, %d rows, %d columns",
			len(w.Weights), len(w.Rows), len(w.Cols))
	}
	nsrc, ndst := field.Size(s.SrcShape), field.Size(s.DstShape)
	for k := range w.Weights {
		if w.Rows[k] < 0 || w.Rows[k] >= ndst {
			return nil, fmt.Errorf("operator: row index %d out of range [0, %d)", w.Rows[k], ndst)
		}
		if w.Cols[k] < 0 || w.Cols[k] >= nsrc {
			return nil, fmt.Errorf("operator: column index %d out of range [0, %d)", w.Cols[k], nsrc)
		}
	}
	if s.SrcMask.Any() && len(s.SrcMask) != nsrc {
		return nil, fmt.Errorf("operator: source mask has %d cells, source grid has %d", len(s.SrcMask), nsrc)
	}
	if s.DstMask.Any() && len(s.DstMask) != ndst {
		return nil, fmt.Errorf("operator: destination mask has %d cells, destination grid has %d", len(s.DstMask), ndst)
	}

	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	op := &Operator{
		id:        id,
		createdAt: created,
		method:    p.canonical,
		coordSys:  s.CoordSys,
		weights:   sortTriple(w.Copy()),
		srcShape:  append([]int(nil), s.SrcShape...),
		dstShape:  append([]int(nil), s.DstShape...),
		srcCyclic: s.SrcCyclic,
		dstCyclic: s.DstCyclic,
		srcCoords: copyArrays(s.SrcCoords),
		srcBounds: copyArrays(s.SrcBounds),
		srcMask:   s.SrcMask.collapse(),
		dstMask:   s.DstMask.collapse(),
		srcBaked:  p.src == Baked || s.SrcMask.Any(),
		params:    s.Parameters.copy(),
	}
	// The destination parameters describe a grid only.
	if op.params.Dst != nil {
		op.params.Dst.DelData()
	}
	op.rowStart = make([]int, ndst+1)
	for _, r := range op.weights.Rows {
		op.rowStart[r+1]++
	}
	for r := 0; r < ndst; r++ {
		op.rowStart[r+1] += op.rowStart[r]
	}
	return op, nil
}

type byRowCol weights.Triple

func (t byRowCol) Len() int { return len(t.Weights) }
func (t byRowCol) Less(i, j int) bool {
	if t.Rows[i] != t.Rows[j] {
		return t.Rows[i] < t.Rows[j]
	}
	return t.Cols[i] < t.Cols[j]
}
func (t byRowCol) Swap(i, j int) {
	t.Weights[i], t.Weights[j] = t.Weights[j], t.Weights[i]
	t.Rows[i], t.Rows[j] = t.Rows[j], t.Rows[i]
	t.Cols[i], t.Cols[j] = t.Cols[j], t.Cols[i]
}

func sortTriple(t weights.Triple) weights.Triple {
	sort.Stable(byRowCol(t))
	return t
}

func (op *Operator) ID() uuid.UUID                   { return op.id }
func (op *Operator) CreatedAt() time.Time            { return op.createdAt }
func (op *Operator) Method() Method                  { return op.method }
func (op *Operator) CoordSys() CoordSys              { return op.coordSys }
func (op *Operator) Weights() weights.Triple         { return op.weights.Copy() }
func (op *Operator) SrcShape() []int                 { return append([]int(nil), op.srcShape...) }
func (op *Operator) DstShape() []int                 { return append([]int(nil), op.dstShape...) }
func (op *Operator) SrcCyclic() bool                 { return op.srcCyclic }
func (op *Operator) DstCyclic() bool                 { return op.dstCyclic }
func (op *Operator) SrcCoords() []*sparse.DenseArray { return copyArrays(op.srcCoords) }
func (op *Operator) SrcBounds() []*sparse.DenseArray { return copyArrays(op.srcBounds) }

// SrcMask returns the source mask baked into the weights, nil if none.
func (op *Operator) SrcMask() Mask { return op.srcMask.collapse() }

// DstMask returns the destination mask applied at Apply time, nil if none.
func (op *Operator) DstMask() Mask { return op.dstMask.collapse() }

// Parameters returns a copy of the destination grid definition.
func (op *Operator) Parameters() Parameters { return op.params.copy() }

// Spec returns the operator's contents, suitable for NewOperator.
func (op *Operator) Spec() OperatorSpec {
	return OperatorSpec{
		ID:         op.id,
		CreatedAt:  op.createdAt,
		Method:     op.method,
		CoordSys:   op.coordSys,
		Weights:    op.Weights(),
		SrcShape:   op.SrcShape(),
		DstShape:   op.DstShape(),
		SrcCyclic:  op.srcCyclic,
		DstCyclic:  op.dstCyclic,
		SrcCoords:  op.SrcCoords(),
		SrcBounds:  op.SrcBounds(),
		SrcMask:    op.SrcMask(),
		DstMask:    op.DstMask(),
		Parameters: op.Parameters(),
	}
}

func (op *Operator) String() string {
	return fmt.Sprintf("RegridOperator(%s, method=%s, src=%v, dst=%v, weights=%d)",
		op.coordSys, op.method, op.srcShape, op.dstShape, len(op.weights.Weights))
}

// Check verifies that the operator can regrid a source with grid src.
// The coordinate system, source cyclicity and source shape must match. In
// strict mode every source coordinate and bounds array must also be
// identical to those the operator was built with.
func (op *Operator) Check(coordSys CoordSys, src *GridDescriptor, strict bool) error {
	if coordSys != op.coordSys {
		return &OperatorReuseError{
			Role:      RoleSource,
			Method:    op.method,
			Attribute: "coordinate system",
			Detail:    fmt.Sprintf("operator is %s, source is %s", op.coordSys, coordSys),
			Err: &GridIncompatibilityError{
				Role: RoleSource, Method: op.method, Attribute: "coordinate system",
			},
		}
	}
	reuseErr := func(attr, detail string) error {
		return &OperatorReuseError{Role: RoleSource, Method: op.method, Attribute: attr, Detail: detail}
	}
	if src.Cyclic != op.srcCyclic {
		return reuseErr("cyclicity", fmt.Sprintf("operator source cyclic=%t, source cyclic=%t", op.srcCyclic, src.Cyclic))
	}
	if !equalInts(src.Shape, op.srcShape) {
		return reuseErr("shape", fmt.Sprintf("operator source shape %v, source shape %v", op.srcShape, src.Shape))
	}
	if !strict {
		return nil
	}
	if !equalArrays(src.Coords, op.srcCoords) {
		return reuseErr("coordinates", "source grid coordinates differ from those the operator was built with")
	}
	if !equalArrays(src.Bounds, op.srcBounds) {
		return reuseErr("bounds", "source grid coordinate bounds differ from those the operator was built with")
	}
	return nil
}

func equalInts(a, b []int) bool {
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

func equalArrays(a, b []*sparse.DenseArray) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !field.EqualDense(a[i], b[i]) {
			return false
		}
	}
	return true
}
