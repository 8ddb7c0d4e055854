package field

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// MaskedArray is an n-dimensional float64 array with an optional boolean
// mask. A nil Mask means no element is masked.
type MaskedArray struct {
	Data *sparse.DenseArray
	Mask []bool
}

// NewMaskedArray returns a zero-filled, unmasked array of the given shape.
func NewMaskedArray(shape ...int) *MaskedArray {
	return &MaskedArray{Data: Zeros(shape)}
}

// Zeros returns a zero-filled dense array. The shape slice is copied since
// sparse.ZerosDense keeps the slice it is given.
func Zeros(shape []int) *sparse.DenseArray {
	return sparse.ZerosDense(append([]int(nil), shape...)...)
}

// FromValues wraps values (row-major) in an unmasked array of the given shape.
func FromValues(values []float64, shape ...int) (*MaskedArray, error) {
	if n := Size(shape); n != len(values) {
		return nil, fmt.Errorf("shape %v holds %d elements, got %d values", shape, n, len(values))
	}
	a := NewMaskedArray(shape...)
	copy(a.Data.Elements, values)
	return a, nil
}

// Shape returns a copy of the array shape.
func (a *MaskedArray) Shape() []int {
	return append([]int(nil), a.Data.Shape...)
}

// NDim returns the number of dimensions.
func (a *MaskedArray) NDim() int { return len(a.Data.Shape) }

// Size returns the number of elements.
func (a *MaskedArray) Size() int { return len(a.Data.Elements) }

// Get returns the element at index.
func (a *MaskedArray) Get(index ...int) float64 {
	return a.Data.Elements[Ravel(index, a.Data.Shape)]
}

// Set stores v at index.
func (a *MaskedArray) Set(v float64, index ...int) {
	a.Data.Elements[Ravel(index, a.Data.Shape)] = v
}

// IsMasked reports whether the element at index is masked.
func (a *MaskedArray) IsMasked(index ...int) bool {
	return a.MaskedAt(Ravel(index, a.Data.Shape))
}

// MaskedAt reports whether the element at flat position i is masked.
func (a *MaskedArray) MaskedAt(i int) bool {
	return a.Mask != nil && a.Mask[i]
}

// SetMasked masks or unmasks the element at index.
func (a *MaskedArray) SetMasked(masked bool, index ...int) {
	i := Ravel(index, a.Data.Shape)
	if a.Mask == nil {
		if !masked {
			return
		}
		a.Mask = make([]bool, a.Size())
	}
	a.Mask[i] = masked
}

// AnyMasked reports whether at least one element is masked.
func (a *MaskedArray) AnyMasked() bool {
	for _, m := range a.Mask {
		if m {
			return true
		}
	}
	return false
}

// Copy returns a deep copy.
func (a *MaskedArray) Copy() *MaskedArray {
	out := NewMaskedArray(a.Data.Shape...)
	copy(out.Data.Elements, a.Data.Elements)
	if a.Mask != nil {
		out.Mask = append([]bool(nil), a.Mask...)
	}
	return out
}

// Transpose returns a new array whose dimension i is dimension perm[i] of a.
func (a *MaskedArray) Transpose(perm []int) (*MaskedArray, error) {
	shape := a.Data.Shape
	if err := checkPerm(perm, len(shape)); err != nil {
		return nil, err
	}
	newShape := make([]int, len(shape))
	for i, p := range perm {
		newShape[i] = shape[p]
	}
	out := NewMaskedArray(newShape...)
	if a.Mask != nil {
		out.Mask = make([]bool, a.Size())
	}
	src := make([]int, len(shape))
	dst := make([]int, len(shape))
	for i := range a.Data.Elements {
		Unravel(i, shape, src)
		for d, p := range perm {
			dst[d] = src[p]
		}
		j := Ravel(dst, newShape)
		out.Data.Elements[j] = a.Data.Elements[i]
		if a.Mask != nil {
			out.Mask[j] = a.Mask[i]
		}
	}
	return out, nil
}

// TransposeDense permutes the dimensions of a dense array.
func TransposeDense(d *sparse.DenseArray, perm []int) (*sparse.DenseArray, error) {
	t, err := (&MaskedArray{Data: d}).Transpose(perm)
	if err != nil {
		return nil, err
	}
	return t.Data, nil
}

// CopyDense returns a deep copy of d, or nil.
func CopyDense(d *sparse.DenseArray) *sparse.DenseArray {
	if d == nil {
		return nil
	}
	out := Zeros(d.Shape)
	copy(out.Elements, d.Elements)
	return out
}

// DenseFrom builds a dense array from row-major values.
func DenseFrom(values []float64, shape ...int) *sparse.DenseArray {
	out := Zeros(shape)
	copy(out.Elements, values)
	return out
}

// EqualDense reports whether a and b have the same shape and bit-identical
// elements.
func EqualDense(a, b *sparse.DenseArray) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Shape) != len(b.Shape) || len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	for i := range a.Elements {
		if a.Elements[i] != b.Elements[i] {
			return false
		}
	}
	return true
}

func checkPerm(perm []int, n int) error {
	if len(perm) != n {
		return fmt.Errorf("permutation %v does not match %d dimensions", perm, n)
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return fmt.Errorf("invalid permutation %v", perm)
		}
		seen[p] = true
	}
	return nil
}

// Size returns the number of elements in an array of the given shape.
func Size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Ravel converts an n-d index into a row-major flat position.
func Ravel(index, shape []int) int {
	flat := 0
	for d, i := range index {
		flat = flat*shape[d] + i
	}
	return flat
}

// Unravel converts a row-major flat position into an n-d index, written to out.
func Unravel(flat int, shape []int, out []int) {
	for d := len(shape) - 1; d >= 0; d-- {
		out[d] = flat % shape[d]
		flat /= shape[d]
	}
}
