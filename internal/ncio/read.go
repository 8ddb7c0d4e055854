// Package ncio reads and writes fields as NetCDF classic files following
// the CF conventions for units, coordinates, bounds and missing data.
package ncio

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ctessum/cdf"

	"github.com/banshee-data/gridmap/internal/field"
)

// ReadField reads variable from the NetCDF file at path. Every dimension
// of the variable becomes a domain axis, 1-d variables named after a
// dimension become dimension coordinates, and the variables listed in the
// "coordinates" attribute become auxiliary coordinates. Elements equal to
// _FillValue or missing_value are masked.
func ReadField(path, variable string) (*field.Field, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	defer fh.Close()
	nc, err := cdf.Open(fh)
	if err != nil {
		return nil, fmt.Errorf("ncio: open %s: %w", path, err)
	}
	return readField(nc, variable)
}

func readField(nc *cdf.File, variable string) (*field.Field, error) {
	h := nc.Header
	if !hasVariable(h, variable) {
		return nil, fmt.Errorf("ncio: variable %q not in file", variable)
	}
	dims := h.Dimensions(variable)
	lengths := h.Lengths(variable)

	f := field.New(variable)
	f.Units = attrString(h, variable, "units")

	axisOf := make(map[string]string, len(dims))
	axes := make([]string, len(dims))
	for i, dim := range dims {
		key := f.AddDomainAxis(lengths[i])
		f.SetDomainAxis(key, field.DomainAxis{Size: lengths[i], NcDim: dim})
		axisOf[dim] = key
		axes[i] = key
	}

	for i, dim := range dims {
		if !hasVariable(h, dim) || len(h.Dimensions(dim)) != 1 {
			continue
		}
		c, err := readCoordinate(nc, dim, false)
		if err != nil {
			return nil, err
		}
		if _, err := f.SetConstruct(c, axes[i]); err != nil {
			return nil, fmt.Errorf("ncio: coordinate %q: %w", dim, err)
		}
	}

	for _, name := range strings.Fields(attrString(h, variable, "coordinates")) {
		if !hasVariable(h, name) {
			return nil, fmt.Errorf("ncio: coordinate variable %q not in file", name)
		}
		caxes := make([]string, 0, 2)
		for _, dim := range h.Dimensions(name) {
			key, ok := axisOf[dim]
			if !ok {
				return nil, fmt.Errorf("ncio: coordinate %q spans dimension %q which %q does not", name, dim, variable)
			}
			caxes = append(caxes, key)
		}
		c, err := readCoordinate(nc, name, true)
		if err != nil {
			return nil, err
		}
		if _, err := f.SetConstruct(c, caxes...); err != nil {
			return nil, fmt.Errorf("ncio: coordinate %q: %w", name, err)
		}
	}

	values, err := readFloats(nc, variable)
	if err != nil {
		return nil, err
	}
	data := &field.MaskedArray{Data: field.DenseFrom(values, lengths...)}
	fills := fillValues(h, variable)
	if len(fills) > 0 {
		mask := make([]bool, len(values))
		masked := false
		for i, v := range values {
			for _, fv := range fills {
				if v == fv || (math.IsNaN(fv) && math.IsNaN(v)) {
					mask[i] = true
					masked = true
				}
			}
		}
		if masked {
			data.Mask = mask
		}
	}
	if err := f.SetData(data, axes...); err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	return f, nil
}

func readCoordinate(nc *cdf.File, name string, auxiliary bool) (*field.Coordinate, error) {
	h := nc.Header
	values, err := readFloats(nc, name)
	if err != nil {
		return nil, err
	}
	c := &field.Coordinate{
		Auxiliary:    auxiliary,
		Axis:         attrString(h, name, "axis"),
		StandardName: attrString(h, name, "standard_name"),
		Units:        attrString(h, name, "units"),
		NcVar:        name,
		Data:         field.DenseFrom(values, h.Lengths(name)...),
	}
	if bname := attrString(h, name, "bounds"); bname != "" {
		if !hasVariable(h, bname) {
			return nil, fmt.Errorf("ncio: bounds variable %q of %q not in file", bname, name)
		}
		b, err := readFloats(nc, bname)
		if err != nil {
			return nil, err
		}
		c.Bounds = field.DenseFrom(b, h.Lengths(bname)...)
	}
	return c, nil
}

// readFloats reads a whole numeric variable as float64.
func readFloats(nc *cdf.File, name string) ([]float64, error) {
	r := nc.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncio: read variable %s: %w", name, err)
	}
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("ncio: variable %s has unsupported type %T", name, buf)
	}
}

func hasVariable(h *cdf.Header, name string) bool {
	for _, v := range h.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func attrString(h *cdf.Header, variable, name string) string {
	s, _ := h.GetAttribute(variable, name).(string)
	return s
}

// fillValues returns the _FillValue and missing_value attributes of
// variable.
func fillValues(h *cdf.Header, variable string) []float64 {
	var out []float64
	for _, name := range []string{"_FillValue", "missing_value"} {
		switch v := h.GetAttribute(variable, name).(type) {
		case []float64:
			out = append(out, v...)
		case []float32:
			for _, x := range v {
				out = append(out, float64(x))
			}
		case []int32:
			for _, x := range v {
				out = append(out, float64(x))
			}
		}
	}
	return out
}
