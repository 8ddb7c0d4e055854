package regrid

import (
	"fmt"

	"github.com/banshee-data/gridmap/internal/field"
)

// Mask is a boolean mask over a grid, flattened row-major over the grid's
// AxisKeys. True marks a masked cell. A nil Mask masks nothing.
type Mask []bool

// Any reports whether at least one cell is masked.
func (m Mask) Any() bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}

// Count returns the number of masked cells.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether two masks mask the same cells. A nil mask equals a
// mask with no true entries.
func (m Mask) Equal(o Mask) bool {
	if !m.Any() || !o.Any() {
		return m.Any() == o.Any()
	}
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

// collapse returns nil for a mask with no true entries and a copy
// otherwise.
func (m Mask) collapse() Mask {
	if !m.Any() {
		return nil
	}
	return append(Mask(nil), m...)
}

// ExtractMask returns the mask of f's data over the grid g, taking index 0
// along every axis that is not a regrid axis. The result covers every cell
// of g. It is nil when f has no data.
func ExtractMask(f *field.Field, g *GridDescriptor) (Mask, error) {
	data := f.Data()
	if data == nil {
		return nil, nil
	}
	shape := data.Shape()
	for k, pos := range g.AxisIndices {
		if pos < 0 || pos >= len(shape) {
			return nil, fmt.Errorf("field %q: regrid axis %q is not in the data", f.Name, g.AxisKeys[k])
		}
		if shape[pos] != g.Shape[k] {
			return nil, fmt.Errorf("field %q: data dimension %d has size %d, grid axis %q has size %d",
				f.Name, pos, shape[pos], g.AxisKeys[k], g.Shape[k])
		}
	}

	out := make(Mask, g.Size())
	if data.Mask == nil {
		return out, nil
	}
	gidx := make([]int, len(g.Shape))
	didx := make([]int, len(shape))
	for q := range out {
		field.Unravel(q, g.Shape, gidx)
		for k, pos := range g.AxisIndices {
			didx[pos] = gidx[k]
		}
		out[q] = data.IsMasked(didx...)
	}
	return out, nil
}
