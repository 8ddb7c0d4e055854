package opstore

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ctessum/sparse"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/regrid"
	"github.com/banshee-data/gridmap/internal/weights"
)

// metadata is the JSON document stored alongside an operator's weights.
type metadata struct {
	SrcCyclic bool        `json:"src_cyclic"`
	DstCyclic bool        `json:"dst_cyclic"`
	SrcCoords []*arrayDoc `json:"src_coords"`
	SrcBounds []*arrayDoc `json:"src_bounds,omitempty"`
	SrcMask   []bool      `json:"src_mask,omitempty"`
	DstMask   []bool      `json:"dst_mask,omitempty"`

	Dst     *domainDoc          `json:"dst,omitempty"`
	DstAxes []string            `json:"dst_axes,omitempty"`
	DstXY   *regrid.AxisMapping `json:"dst_xy,omitempty"`
}

type arrayDoc struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
	Mask   []bool    `json:"mask,omitempty"`
}

func encodeArray(d *sparse.DenseArray) *arrayDoc {
	if d == nil {
		return nil
	}
	return &arrayDoc{Shape: d.Shape, Values: d.Elements}
}

func (a *arrayDoc) dense() (*sparse.DenseArray, error) {
	if a == nil {
		return nil, nil
	}
	if field.Size(a.Shape) != len(a.Values) {
		return nil, fmt.Errorf("array of shape %v holds %d values", a.Shape, len(a.Values))
	}
	return field.DenseFrom(a.Values, a.Shape...), nil
}

func encodeMasked(m *field.MaskedArray) *arrayDoc {
	if m == nil {
		return nil
	}
	a := encodeArray(m.Data)
	a.Mask = m.Mask
	return a
}

func (a *arrayDoc) masked() (*field.MaskedArray, error) {
	d, err := a.dense()
	if err != nil || d == nil {
		return nil, err
	}
	return &field.MaskedArray{Data: d, Mask: a.Mask}, nil
}

// domainDoc is a field domain with its construct keys preserved, so that
// axis keys recorded elsewhere in the operator stay valid.
type domainDoc struct {
	Name       string         `json:"name"`
	Units      string         `json:"units,omitempty"`
	Axes       []axisDoc      `json:"axes"`
	Constructs []constructDoc `json:"constructs"`
}

type axisDoc struct {
	Key    string   `json:"key"`
	Size   int      `json:"size"`
	NcDim  string   `json:"nc_dim,omitempty"`
	Period *float64 `json:"period,omitempty"`
}

type constructDoc struct {
	Key  string   `json:"key"`
	Axes []string `json:"axes,omitempty"`

	Coordinate      *coordinateDoc             `json:"coordinate,omitempty"`
	Reference       *field.CoordinateReference `json:"reference,omitempty"`
	CellMeasure     *ancillaryDoc              `json:"cell_measure,omitempty"`
	FieldAncillary  *ancillaryDoc              `json:"field_ancillary,omitempty"`
	DomainAncillary *ancillaryDoc              `json:"domain_ancillary,omitempty"`
}

type coordinateDoc struct {
	Auxiliary    bool      `json:"auxiliary,omitempty"`
	Axis         string    `json:"axis,omitempty"`
	StandardName string    `json:"standard_name,omitempty"`
	Units        string    `json:"units,omitempty"`
	NcVar        string    `json:"nc_var,omitempty"`
	Data         *arrayDoc `json:"data"`
	Bounds       *arrayDoc `json:"bounds,omitempty"`
}

type ancillaryDoc struct {
	Name   string    `json:"name"`
	Units  string    `json:"units,omitempty"`
	Data   *arrayDoc `json:"data"`
	Bounds *arrayDoc `json:"bounds,omitempty"`
}

func encodeDomain(f *field.Field) (*domainDoc, error) {
	if f == nil {
		return nil, nil
	}
	doc := &domainDoc{Name: f.Name, Units: f.Units}
	for _, key := range f.DomainAxes() {
		da, _ := f.DomainAxis(key)
		ad := axisDoc{Key: key, Size: da.Size, NcDim: da.NcDim}
		if p, ok := f.Period(key); ok {
			ad.Period = &p
		}
		doc.Axes = append(doc.Axes, ad)
	}
	for _, key := range f.Keys(field.Filter{}) {
		c, _ := f.Construct(key)
		cd := constructDoc{Key: key, Axes: f.ConstructAxes(key)}
		switch v := c.(type) {
		case *field.Coordinate:
			cd.Coordinate = &coordinateDoc{
				Auxiliary:    v.Auxiliary,
				Axis:         v.Axis,
				StandardName: v.StandardName,
				Units:        v.Units,
				NcVar:        v.NcVar,
				Data:         encodeArray(v.Data),
				Bounds:       encodeArray(v.Bounds),
			}
		case *field.CoordinateReference:
			cd.Reference = v
		case *field.CellMeasure:
			cd.CellMeasure = &ancillaryDoc{Name: v.Measure, Units: v.Units, Data: encodeArray(v.Data)}
		case *field.FieldAncillary:
			cd.FieldAncillary = &ancillaryDoc{Name: v.Name, Units: v.Units, Data: encodeMasked(v.Data)}
		case *field.DomainAncillary:
			cd.DomainAncillary = &ancillaryDoc{Name: v.Name, Units: v.Units,
				Data: encodeMasked(v.Data), Bounds: encodeArray(v.Bounds)}
		default:
			return nil, fmt.Errorf("construct %q: unsupported type %T", key, c)
		}
		doc.Constructs = append(doc.Constructs, cd)
	}
	return doc, nil
}

func (doc *domainDoc) field() (*field.Field, error) {
	if doc == nil {
		return nil, nil
	}
	f := field.New(doc.Name)
	f.Units = doc.Units
	for _, a := range doc.Axes {
		f.SetDomainAxis(a.Key, field.DomainAxis{Size: a.Size, NcDim: a.NcDim})
		if a.Period != nil {
			f.SetCyclic(a.Key, true, *a.Period)
		}
	}
	for _, cd := range doc.Constructs {
		c, err := cd.construct()
		if err != nil {
			return nil, fmt.Errorf("construct %q: %w", cd.Key, err)
		}
		if err := f.SetConstructKey(cd.Key, c, cd.Axes...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (cd constructDoc) construct() (field.Construct, error) {
	switch {
	case cd.Coordinate != nil:
		v := cd.Coordinate
		data, err := v.Data.dense()
		if err != nil {
			return nil, err
		}
		bounds, err := v.Bounds.dense()
		if err != nil {
			return nil, err
		}
		return &field.Coordinate{
			Auxiliary:    v.Auxiliary,
			Axis:         v.Axis,
			StandardName: v.StandardName,
			Units:        v.Units,
			NcVar:        v.NcVar,
			Data:         data,
			Bounds:       bounds,
		}, nil
	case cd.Reference != nil:
		return cd.Reference.CopyConstruct(), nil
	case cd.CellMeasure != nil:
		data, err := cd.CellMeasure.Data.dense()
		if err != nil {
			return nil, err
		}
		return &field.CellMeasure{Measure: cd.CellMeasure.Name, Units: cd.CellMeasure.Units, Data: data}, nil
	case cd.FieldAncillary != nil:
		data, err := cd.FieldAncillary.Data.masked()
		if err != nil {
			return nil, err
		}
		return &field.FieldAncillary{Name: cd.FieldAncillary.Name, Units: cd.FieldAncillary.Units, Data: data}, nil
	case cd.DomainAncillary != nil:
		v := cd.DomainAncillary
		data, err := v.Data.masked()
		if err != nil {
			return nil, err
		}
		bounds, err := v.Bounds.dense()
		if err != nil {
			return nil, err
		}
		return &field.DomainAncillary{Name: v.Name, Units: v.Units, Data: data, Bounds: bounds}, nil
	}
	return nil, fmt.Errorf("empty construct")
}

func encodeMetadata(s regrid.OperatorSpec) (*metadata, error) {
	dst, err := encodeDomain(s.Parameters.Dst)
	if err != nil {
		return nil, err
	}
	md := &metadata{
		SrcCyclic: s.SrcCyclic,
		DstCyclic: s.DstCyclic,
		SrcMask:   s.SrcMask,
		DstMask:   s.DstMask,
		Dst:       dst,
		DstAxes:   s.Parameters.DstAxes,
		DstXY:     s.Parameters.DstXY,
	}
	for _, c := range s.SrcCoords {
		md.SrcCoords = append(md.SrcCoords, encodeArray(c))
	}
	for _, b := range s.SrcBounds {
		md.SrcBounds = append(md.SrcBounds, encodeArray(b))
	}
	return md, nil
}

// apply copies the metadata into s.
func (md *metadata) apply(s *regrid.OperatorSpec) error {
	s.SrcCyclic = md.SrcCyclic
	s.DstCyclic = md.DstCyclic
	s.SrcMask = md.SrcMask
	s.DstMask = md.DstMask
	for _, a := range md.SrcCoords {
		d, err := a.dense()
		if err != nil {
			return fmt.Errorf("source coordinates: %w", err)
		}
		s.SrcCoords = append(s.SrcCoords, d)
	}
	for _, a := range md.SrcBounds {
		d, err := a.dense()
		if err != nil {
			return fmt.Errorf("source bounds: %w", err)
		}
		s.SrcBounds = append(s.SrcBounds, d)
	}
	dst, err := md.Dst.field()
	if err != nil {
		return fmt.Errorf("destination domain: %w", err)
	}
	s.Parameters = regrid.Parameters{Dst: dst, DstAxes: md.DstAxes, DstXY: md.DstXY}
	return nil
}

// encodeWeights packs a weight triple as a little-endian count followed
// by row indices, column indices and weights.
func encodeWeights(t weights.Triple) ([]byte, error) {
	n := len(t.Weights)
	rows := make([]int32, n)
	cols := make([]int32, n)
	for k := 0; k < n; k++ {
		rows[k] = int32(t.Rows[k])
		cols[k] = int32(t.Cols[k])
	}
	var buf bytes.Buffer
	buf.Grow(4 + n*16)
	for _, v := range []any{uint32(n), rows, cols, t.Weights} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeWeights(b []byte) (weights.Triple, error) {
	r := bytes.NewReader(b)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return weights.Triple{}, fmt.Errorf("weights header: %w", err)
	}
	if want := 4 + int(n)*16; len(b) != want {
		return weights.Triple{}, fmt.Errorf("weights blob has %d bytes, want %d", len(b), want)
	}
	rows := make([]int32, n)
	cols := make([]int32, n)
	t := weights.Triple{Weights: make([]float64, n), Rows: make([]int, n), Cols: make([]int, n)}
	for _, v := range []any{rows, cols, t.Weights} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return weights.Triple{}, err
		}
	}
	for k := range rows {
		t.Rows[k] = int(rows[k])
		t.Cols[k] = int(cols[k])
	}
	return t, nil
}
