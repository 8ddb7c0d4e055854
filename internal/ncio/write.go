package ncio

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ctessum/cdf"

	"github.com/banshee-data/gridmap/internal/field"
)

// FillValue marks masked elements in written files.
const FillValue = 9.969209968386869e36

// ncVar is one variable queued for writing.
type ncVar struct {
	name  string
	dims  []string
	attrs [][2]string
	data  []float64
	fill  bool
}

// WriteField writes the data of f together with its coordinates and their
// bounds to a new NetCDF classic file at path. Coordinates spanning axes
// outside the data are not written, and neither are cell measures or
// ancillaries.
func WriteField(path string, f *field.Field) error {
	if f.IsDomain() {
		return fmt.Errorf("ncio: field %q has no data", f.Name)
	}
	data := f.Data()
	dataAxes := f.DataAxes()

	dimOf := make(map[string]string, len(dataAxes))
	used := make(map[string]bool)
	dimNames := make([]string, 0, len(dataAxes)+1)
	dimLengths := make([]int, 0, len(dataAxes)+1)
	for i, axis := range dataAxes {
		name := uniqueName(dimensionName(f, axis), used)
		dimOf[axis] = name
		dimNames = append(dimNames, name)
		dimLengths = append(dimLengths, data.Shape()[i])
	}

	var vars []ncVar
	var auxNames []string
	needVertices := map[int]bool{}
	coordKeys := f.Keys(field.Filter{
		Types: []field.ConstructType{field.TypeDimensionCoordinate, field.TypeAuxiliaryCoordinate},
		Axes:  dataAxes,
		Mode:  field.AxisSubset,
	})
	for _, key := range coordKeys {
		c, _ := f.Coordinate(key)
		axes := f.ConstructAxes(key)
		var name string
		if c.Auxiliary {
			name = c.NcVar
			if name == "" {
				name = c.StandardName
			}
			if name == "" {
				name = key
			}
			name = uniqueName(name, used)
			auxNames = append(auxNames, name)
		} else {
			name = dimOf[axes[0]]
		}
		dims := make([]string, len(axes))
		for i, a := range axes {
			dims[i] = dimOf[a]
		}
		v := ncVar{name: name, dims: dims, data: c.Data.Elements}
		v.attrs = appendAttr(v.attrs, "standard_name", c.StandardName)
		v.attrs = appendAttr(v.attrs, "units", c.Units)
		v.attrs = appendAttr(v.attrs, "axis", c.Axis)
		if c.HasBounds() {
			nv := c.Bounds.Shape[len(c.Bounds.Shape)-1]
			bname := uniqueName(name+"_bnds", used)
			v.attrs = appendAttr(v.attrs, "bounds", bname)
			needVertices[nv] = true
			vars = append(vars, ncVar{
				name: bname,
				dims: append(append([]string(nil), dims...), vertexDim(nv)),
				data: c.Bounds.Elements,
			})
		}
		vars = append(vars, v)
	}

	for _, nv := range sortedInts(needVertices) {
		dimNames = append(dimNames, vertexDim(nv))
		dimLengths = append(dimLengths, nv)
	}

	dv := ncVar{name: uniqueName(variableName(f), used), dims: append([]string(nil), dimNames[:len(dataAxes)]...)}
	dv.attrs = appendAttr(dv.attrs, "units", f.Units)
	dv.attrs = appendAttr(dv.attrs, "coordinates", strings.Join(auxNames, " "))
	dv.data = data.Data.Elements
	if data.AnyMasked() {
		dv.fill = true
		dv.data = make([]float64, data.Size())
		for i, x := range data.Data.Elements {
			if data.MaskedAt(i) {
				x = FillValue
			}
			dv.data[i] = x
		}
	}
	vars = append(vars, dv)

	h := cdf.NewHeader(dimNames, dimLengths)
	h.AddAttribute("", "Conventions", "CF-1.8")
	for _, v := range vars {
		h.AddVariable(v.name, v.dims, []float64{0})
		for _, a := range v.attrs {
			h.AddAttribute(v.name, a[0], a[1])
		}
		if v.fill {
			h.AddAttribute(v.name, "_FillValue", []float64{FillValue})
		}
	}
	h.Define()

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	nc, err := cdf.Create(fh, h)
	if err != nil {
		fh.Close()
		return fmt.Errorf("ncio: create %s: %w", path, err)
	}
	for _, v := range vars {
		if err := writeVariable(nc, v.name, v.data); err != nil {
			fh.Close()
			return err
		}
	}
	return fh.Close()
}

func writeVariable(nc *cdf.File, name string, data []float64) error {
	end := nc.Header.Lengths(name)
	start := make([]int, len(end))
	w := nc.Writer(name, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("ncio: write variable %s: %w", name, err)
	}
	return nil
}

// dimensionName picks the NetCDF dimension name of a domain axis.
func dimensionName(f *field.Field, axis string) string {
	if da, ok := f.DomainAxis(axis); ok && da.NcDim != "" {
		return da.NcDim
	}
	if _, c, ok := f.DimensionCoordinateForAxis(axis); ok {
		if c.NcVar != "" {
			return c.NcVar
		}
		if c.StandardName != "" {
			return c.StandardName
		}
	}
	return axis
}

func variableName(f *field.Field) string {
	if f.Name != "" {
		return f.Name
	}
	return "data"
}

func vertexDim(n int) string {
	if n == 2 {
		return "bnds"
	}
	return fmt.Sprintf("nv%d", n)
}

func uniqueName(name string, used map[string]bool) string {
	out := name
	for i := 1; used[out]; i++ {
		out = fmt.Sprintf("%s_%d", name, i)
	}
	used[out] = true
	return out
}

func appendAttr(attrs [][2]string, name, value string) [][2]string {
	if value == "" {
		return attrs
	}
	return append(attrs, [2]string{name, value})
}

func sortedInts(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
