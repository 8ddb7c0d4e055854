package regrid

import (
	"fmt"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/monitoring"
)

// Apply regrids data with op. axes holds the data positions of the source
// grid axes, slowest-varying first, and dstSizes the sizes those positions
// take in the result, which must match the operator's destination shape.
// Every other dimension is regridded slice by slice.
//
// A destination cell is masked when no weight maps to it, when every
// source cell contributing to it is masked, or when the operator's
// destination mask marks it. Otherwise its value is the weighted sum of
// the unmasked contributors scaled by the ratio of the total weight to the
// unmasked weight.
func Apply(data *field.MaskedArray, op *Operator, axes []int, dstSizes []int) (*field.MaskedArray, error) {
	if data == nil {
		return nil, fmt.Errorf("regrid: no data to regrid")
	}
	shape := data.Shape()
	if len(axes) != len(op.srcShape) {
		return nil, fmt.Errorf("regrid: %d regrid axes given for a %d-d operator", len(axes), len(op.srcShape))
	}
	if !equalInts(dstSizes, op.dstShape) {
		return nil, fmt.Errorf("regrid: destination sizes %v do not match operator destination shape %v", dstSizes, op.dstShape)
	}
	isRegrid := make([]bool, len(shape))
	for k, pos := range axes {
		if pos < 0 || pos >= len(shape) || isRegrid[pos] {
			return nil, fmt.Errorf("regrid: invalid regrid axis position %d for %d-d data", pos, len(shape))
		}
		isRegrid[pos] = true
		if shape[pos] != op.srcShape[k] {
			return nil, &OperatorReuseError{
				Role:      RoleSource,
				Method:    op.method,
				Attribute: "shape",
				Detail:    fmt.Sprintf("data dimension %d has size %d, operator expects %d", pos, shape[pos], op.srcShape[k]),
			}
		}
	}

	// Move the regrid axes to the end so that each slice is contiguous.
	perm := make([]int, 0, len(shape))
	for d := range shape {
		if !isRegrid[d] {
			perm = append(perm, d)
		}
	}
	nouter := len(perm)
	perm = append(perm, axes...)
	work, err := data.Transpose(perm)
	if err != nil {
		return nil, err
	}

	nsrc, ndst := field.Size(op.srcShape), field.Size(op.dstShape)
	nslices := 1
	if nsrc > 0 {
		nslices = work.Size() / nsrc
	}

	if err := checkSliceMasks(work, op, nslices, nsrc); err != nil {
		return nil, err
	}

	outShape := make([]int, 0, len(shape))
	for _, d := range perm[:nouter] {
		outShape = append(outShape, shape[d])
	}
	outShape = append(outShape, op.dstShape...)
	out := field.NewMaskedArray(outShape...)
	out.Mask = make([]bool, out.Size())

	for s := 0; s < nslices; s++ {
		x := work.Data.Elements[s*nsrc : (s+1)*nsrc]
		var m []bool
		if work.Mask != nil {
			m = work.Mask[s*nsrc : (s+1)*nsrc]
		}
		y := out.Data.Elements[s*ndst : (s+1)*ndst]
		ym := out.Mask[s*ndst : (s+1)*ndst]
		op.applySlice(x, m, y, ym)
	}

	// Restore the original dimension order.
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	res, err := out.Transpose(inv)
	if err != nil {
		return nil, err
	}
	if !res.AnyMasked() {
		res.Mask = nil
	}
	monitoring.Applies.WithLabelValues(string(op.method)).Inc()
	return res, nil
}

// applySlice regrids one flattened source slice x with mask m (nil for
// none) into y and ym.
func (op *Operator) applySlice(x []float64, m []bool, y []float64, ym []bool) {
	w := op.weights
	for r := range y {
		lo, hi := op.rowStart[r], op.rowStart[r+1]
		if lo == hi || (op.dstMask != nil && op.dstMask[r]) {
			ym[r] = true
			continue
		}
		var sum, total, unmasked float64
		n := 0
		for k := lo; k < hi; k++ {
			total += w.Weights[k]
			c := w.Cols[k]
			if m != nil && m[c] {
				continue
			}
			n++
			unmasked += w.Weights[k]
			sum += w.Weights[k] * x[c]
		}
		if n == 0 {
			ym[r] = true
			continue
		}
		if unmasked != 0 && unmasked != total {
			sum *= total / unmasked
		}
		y[r] = sum
	}
}

// checkSliceMasks enforces the single-mask assumption of methods whose
// weights were built against one source mask.
func checkSliceMasks(work *field.MaskedArray, op *Operator, nslices, nsrc int) error {
	if nslices == 0 || (!op.method.FixedMask() && !op.srcBaked) {
		return nil
	}
	slice := func(s int) Mask {
		if work.Mask == nil {
			return nil
		}
		return Mask(work.Mask[s*nsrc : (s+1)*nsrc])
	}
	first := slice(0)
	if op.method.FixedMask() {
		for s := 1; s < nslices; s++ {
			if !slice(s).Equal(first) {
				return &UnsupportedMaskVariationError{
					Role:      RoleSource,
					Method:    op.method,
					Attribute: "mask",
					Detail: fmt.Sprintf("the source mask of slice %d differs from that of slice 0; "+
						"regrid each slice separately", s),
				}
			}
		}
	}
	if op.srcBaked && !first.Equal(op.srcMask) {
		return &OperatorReuseError{
			Role:      RoleSource,
			Method:    op.method,
			Attribute: "mask",
			Detail:    "the source mask differs from the mask the operator weights were built with",
		}
	}
	return nil
}
