package regrid

import (
	"fmt"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/units"
)

var (
	coordinateTypes = []field.ConstructType{field.TypeDimensionCoordinate, field.TypeAuxiliaryCoordinate}
	measureTypes    = []field.ConstructType{field.TypeCellMeasure, field.TypeFieldAncillary}
)

// PropagateMetadata rewrites the metadata of src, whose data has been
// removed, to describe the destination grid of op. dst is the destination
// domain and the grids are the descriptors the operator was applied with;
// srcGrid.AxisKeys[k] is regridded onto dstGrid.AxisKeys[k].
//
// Source constructs that depend on the regrid axes are removed, except
// domain ancillaries spanning every regrid axis, which are regridded with
// op. Destination coordinates and the coordinate references built solely
// on them are copied in.
func PropagateMetadata(src, dst *field.Field, op *Operator, srcGrid, dstGrid *GridDescriptor, opts Options) error {
	srcKeys, dstKeys := srcGrid.AxisKeys, dstGrid.AxisKeys
	if len(srcKeys) != len(dstKeys) {
		return fmt.Errorf("regrid: %d source axes but %d destination axes", len(srcKeys), len(dstKeys))
	}
	axisMap := make(map[string]string, len(dstKeys))
	for k, d := range dstKeys {
		axisMap[d] = srcKeys[k]
	}

	// Coordinate references whose coordinates span a regrid axis go, along
	// with their domain ancillaries.
	for _, key := range src.Keys(field.Filter{Types: []field.ConstructType{field.TypeCoordinateReference}}) {
		c, _ := src.Construct(key)
		ref := c.(*field.CoordinateReference)
		var axes []string
		for _, ck := range ref.Coordinates {
			axes = append(axes, src.ConstructAxes(ck)...)
		}
		if intersects(axes, srcKeys) {
			if err := src.DelCoordinateReference(key); err != nil {
				return err
			}
		}
	}

	for _, key := range src.Keys(field.Filter{Types: measureTypes, Axes: srcKeys, Mode: field.AxisAny}) {
		if err := src.DelConstruct(key); err != nil {
			return err
		}
	}

	type ancillary struct {
		key  string
		axes []string
		c    *field.DomainAncillary
	}
	var regridded []ancillary
	for _, key := range src.Keys(field.Filter{
		Types: []field.ConstructType{field.TypeDomainAncillary},
		Axes:  srcKeys,
		Mode:  field.AxisAny,
	}) {
		axes := src.ConstructAxes(key)
		if !sameSet(intersection(axes, srcKeys), srcKeys) {
			if err := src.DelConstruct(key); err != nil {
				return err
			}
			continue
		}
		da, err := regridAncillary(src, key, op, srcKeys, opts)
		if err != nil {
			return fmt.Errorf("regrid: domain ancillary %q: %w", key, err)
		}
		// Replaced under the same key once the axes are resized, so that
		// references naming it keep the link.
		regridded = append(regridded, ancillary{key: key, axes: axes, c: da})
	}

	for _, key := range src.Keys(field.Filter{Types: coordinateTypes, Axes: srcKeys, Mode: field.AxisAny}) {
		if err := src.DelConstruct(key); err != nil {
			return err
		}
	}

	for k, sk := range srcKeys {
		da, ok := dst.DomainAxis(dstKeys[k])
		if !ok {
			return fmt.Errorf("regrid: destination domain axis %q: %w", dstKeys[k], field.ErrNotFound)
		}
		axis, _ := src.DomainAxis(sk)
		resized := field.DomainAxis{Size: da.Size, NcDim: axis.NcDim}
		if da.NcDim != "" {
			resized.NcDim = da.NcDim
		}
		src.SetDomainAxis(sk, resized)
	}

	keyMap := make(map[string]string)
	for _, key := range dst.Keys(field.Filter{Types: coordinateTypes, Axes: dstKeys, Mode: field.AxisSubset}) {
		c, _ := dst.Coordinate(key)
		axes := dst.ConstructAxes(key)
		mapped := make([]string, len(axes))
		for i, a := range axes {
			mapped[i] = axisMap[a]
		}
		newKey, err := src.SetConstruct(c.Copy(), mapped...)
		if err != nil {
			return fmt.Errorf("regrid: destination coordinate %q: %w", key, err)
		}
		keyMap[key] = newKey
	}

	for _, a := range regridded {
		if err := src.SetConstructKey(a.key, a.c, a.axes...); err != nil {
			return fmt.Errorf("regrid: domain ancillary %q: %w", a.key, err)
		}
	}

	for _, key := range dst.Keys(field.Filter{Types: []field.ConstructType{field.TypeCoordinateReference}}) {
		c, _ := dst.Construct(key)
		ref := c.(*field.CoordinateReference)
		var axes []string
		for _, ck := range ref.Coordinates {
			axes = append(axes, dst.ConstructAxes(ck)...)
		}
		if len(axes) == 0 || !subset(axes, dstKeys) {
			continue
		}
		out := &field.CoordinateReference{Name: ref.Name}
		for _, ck := range ref.Coordinates {
			if nk, ok := keyMap[ck]; ok {
				out.Coordinates = append(out.Coordinates, nk)
			}
		}
		if len(ref.DomainAncillaries) > 0 {
			out.DomainAncillaries = make(map[string]string, len(ref.DomainAncillaries))
			for term := range ref.DomainAncillaries {
				out.DomainAncillaries[term] = ""
			}
		}
		if _, err := src.SetConstruct(out); err != nil {
			return err
		}
	}

	if op.coordSys == Spherical {
		if key, x, ok := src.DimensionCoordinate("X"); ok && units.IsLongitude(x.Units) {
			src.SetCyclic(src.ConstructAxes(key)[0], dstGrid.Cyclic, Period)
		}
	}
	return nil
}

// regridAncillary regrids a domain ancillary spanning every regrid axis as
// a field of its own, stripped of the constructs that could recurse.
func regridAncillary(src *field.Field, key string, op *Operator, srcKeys []string, opts Options) (*field.DomainAncillary, error) {
	c, _ := src.Construct(key)
	orig := c.(*field.DomainAncillary)
	f, err := src.ConvertToField(key)
	if err != nil {
		return nil, err
	}
	for _, k := range f.Keys(field.Filter{Types: []field.ConstructType{
		field.TypeCoordinateReference,
		field.TypeDomainAncillary,
		field.TypeCellMeasure,
	}}) {
		if _, ok := f.Construct(k); !ok {
			continue
		}
		if err := f.DelConstruct(k); err != nil {
			return nil, err
		}
	}

	sub := opts
	sub.CoordSys = op.coordSys
	sub.Method = op.method
	sub.CheckCoordinates = false
	cyclic := op.srcCyclic
	sub.SrcCyclic = &cyclic
	if op.coordSys == Spherical {
		sub.SrcXY = &AxisMapping{Y: srcKeys[0], X: srcKeys[1]}
	} else {
		sub.Axes = append([]string(nil), srcKeys...)
	}
	out, err := RegridWith(f, op, sub)
	if err != nil {
		return nil, err
	}
	return &field.DomainAncillary{
		Name:  orig.Name,
		Units: orig.Units,
		Data:  out.Data(),
	}, nil
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if indexOf(b, s) >= 0 {
			return true
		}
	}
	return false
}

func intersection(a, b []string) []string {
	var out []string
	for _, s := range a {
		if indexOf(b, s) >= 0 && indexOf(out, s) < 0 {
			out = append(out, s)
		}
	}
	return out
}

func subset(a, b []string) bool {
	for _, s := range a {
		if indexOf(b, s) < 0 {
			return false
		}
	}
	return true
}
