package regrid

import (
	"fmt"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/monitoring"
	"github.com/banshee-data/gridmap/internal/timeutil"
)

// Options configure a regrid. The zero value regrids spherical fields
// linearly; DefaultOptions spells that out and also skips degenerate cells.
type Options struct {
	CoordSys CoordSys
	Method   Method

	// Axes are the source Cartesian axis specifiers. DstAxes are the
	// destination ones and default to Axes.
	Axes    []string
	DstAxes []string
	// SrcXY and DstXY map X and Y axes for 2-d spherical coordinates.
	SrcXY, DstXY *AxisMapping
	// SrcCyclic and DstCyclic override the cyclicity recorded on the
	// fields.
	SrcCyclic, DstCyclic *bool

	// IgnoreSrcMask switches off use of the source mask. Only nearest_stod
	// accepts it.
	IgnoreSrcMask bool
	// UseDstMask applies the destination field's mask. It is ignored for
	// destinations without data.
	UseDstMask       bool
	IgnoreDegenerate bool
	Unmapped         UnmappedAction
	// CheckCoordinates makes a reused operator compare source coordinates
	// and bounds element by element.
	CheckCoordinates bool

	Engine Engine
	Clock  timeutil.Clock
}

// DefaultOptions returns spherical linear regridding options.
func DefaultOptions() Options {
	return Options{
		CoordSys:         Spherical,
		Method:           MethodLinear,
		IgnoreDegenerate: true,
		Unmapped:         UnmappedIgnore,
	}
}

// withDefaults fills in an unset method and coordinate system.
func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = MethodLinear
	}
	if o.CoordSys == "" {
		o.CoordSys = Spherical
	}
	return o
}

// Regrid regrids src onto the grid of dst, which may be a field or a
// domain. Neither argument is modified.
func Regrid(src, dst *field.Field, opts Options) (*field.Field, error) {
	op, err := BuildOperator(src, dst, opts)
	if err != nil {
		return nil, err
	}
	return RegridWith(src, op, opts)
}

// RegridToSpec regrids src onto a grid defined by spec.
func RegridToSpec(src *field.Field, spec GridSpec, opts Options) (*field.Field, error) {
	op, err := BuildOperatorToSpec(src, spec, opts)
	if err != nil {
		return nil, err
	}
	return RegridWith(src, op, opts)
}

// BuildOperator computes the operator that regrids src onto the grid of
// dst without regridding any data.
func BuildOperator(src, dst *field.Field, opts Options) (*Operator, error) {
	opts = opts.withDefaults()
	dstAxes := opts.DstAxes
	if dstAxes == nil {
		dstAxes = opts.Axes
	}
	return buildOperator(src, dst, dstAxes, opts.DstXY, opts.UseDstMask && !dst.IsDomain(), opts)
}

// BuildOperatorToSpec computes the operator that regrids src onto the grid
// defined by spec.
func BuildOperatorToSpec(src *field.Field, spec GridSpec, opts Options) (*Operator, error) {
	opts = opts.withDefaults()
	if spec.Cyclic == nil && opts.DstCyclic != nil {
		spec.Cyclic = opts.DstCyclic
	}
	sd, err := spec.Domain(opts.CoordSys)
	if err != nil {
		return nil, err
	}
	return buildOperator(src, sd.Domain, sd.Axes, sd.XY, false, opts)
}

func buildOperator(src, dst *field.Field, dstAxes []string, dstXY *AxisMapping, useDstMask bool, opts Options) (*Operator, error) {
	method, err := ParseMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}
	if _, err := ParseCoordSys(string(opts.CoordSys)); err != nil {
		return nil, err
	}
	src, dst = src.Copy(), dst.Copy()

	srcGrid, err := NewGridDescriptor(src, DescriptorOptions{
		CoordSys: opts.CoordSys,
		Role:     RoleSource,
		Method:   method,
		Cyclic:   opts.SrcCyclic,
		Axes:     opts.Axes,
		XY:       opts.SrcXY,
	})
	if err != nil {
		return nil, err
	}
	dstGrid, err := NewGridDescriptor(dst, DescriptorOptions{
		CoordSys: opts.CoordSys,
		Role:     RoleDestination,
		Method:   method,
		Cyclic:   opts.DstCyclic,
		Axes:     dstAxes,
		XY:       dstXY,
	})
	if err != nil {
		return nil, err
	}
	if len(srcGrid.AxisKeys) != len(dstGrid.AxisKeys) {
		return nil, &ConfigurationError{
			Method:    method,
			Attribute: "axes",
			Detail:    fmt.Sprintf("%d source axes but %d destination axes", len(srcGrid.AxisKeys), len(dstGrid.AxisKeys)),
		}
	}

	srcMask, err := ExtractMask(src, srcGrid)
	if err != nil {
		return nil, err
	}
	var dstMask Mask
	if useDstMask {
		if dstMask, err = ExtractMask(dst, dstGrid); err != nil {
			return nil, err
		}
	}

	dst.DelData()
	b := NewBuilder(opts.Engine, BuilderConfig{
		Unmapped:         opts.Unmapped,
		IgnoreDegenerate: opts.IgnoreDegenerate,
		Clock:            opts.Clock,
	})
	return b.Build(BuildRequest{
		CoordSys:   opts.CoordSys,
		Method:     method,
		Src:        srcGrid,
		Dst:        dstGrid,
		SrcMask:    srcMask,
		DstMask:    dstMask,
		UseSrcMask: !opts.IgnoreSrcMask,
		Parameters: Parameters{
			Dst:     dst,
			DstAxes: dstGrid.AxisKeys,
			DstXY:   dstXY,
		},
	})
}

// RegridWith regrids src with a previously built operator. The source grid
// must match the one the operator was built for. opts supplies the source
// axis selection; an unset CoordSys takes the operator's.
func RegridWith(src *field.Field, op *Operator, opts Options) (*field.Field, error) {
	coordSys := opts.CoordSys
	if coordSys == "" {
		coordSys = op.coordSys
	}
	src = src.Copy()
	srcGrid, err := NewGridDescriptor(src, DescriptorOptions{
		CoordSys: coordSys,
		Role:     RoleSource,
		Method:   op.method,
		Cyclic:   opts.SrcCyclic,
		Axes:     opts.Axes,
		XY:       opts.SrcXY,
	})
	if err != nil {
		return nil, err
	}
	if err := op.Check(coordSys, srcGrid, opts.CheckCoordinates); err != nil {
		return nil, err
	}

	params := op.params
	dstCyclic := op.dstCyclic
	dstGrid, err := NewGridDescriptor(params.Dst, DescriptorOptions{
		CoordSys: op.coordSys,
		Role:     RoleDestination,
		Method:   op.method,
		Cyclic:   &dstCyclic,
		Axes:     params.DstAxes,
		XY:       params.DstXY,
	})
	if err != nil {
		return nil, fmt.Errorf("regrid: operator destination grid: %w", err)
	}

	var data *field.MaskedArray
	if src.Data() != nil {
		if data, err = Apply(src.Data(), op, srcGrid.AxisIndices, dstGrid.Shape); err != nil {
			return nil, err
		}
	}

	dataAxes := src.DataAxes()
	src.DelData()
	if err := PropagateMetadata(src, params.Dst, op, srcGrid, dstGrid, opts); err != nil {
		return nil, err
	}
	if data != nil {
		if err := src.SetData(data, dataAxes...); err != nil {
			return nil, fmt.Errorf("regrid: %w", err)
		}
	}
	monitoring.Logf("regrid: %s regridded %q from %v to %v", op.method, src.Name, srcGrid.Shape, dstGrid.Shape)
	return src, nil
}
