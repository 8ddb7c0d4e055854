package regrid

import (
	"fmt"

	"github.com/banshee-data/gridmap/internal/monitoring"
	"github.com/banshee-data/gridmap/internal/timeutil"
	"github.com/banshee-data/gridmap/internal/units"
	"github.com/banshee-data/gridmap/internal/weights"
)

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	Unmapped         UnmappedAction
	IgnoreDegenerate bool
	Clock            timeutil.Clock
}

// Builder turns a pair of grid descriptors into an Operator.
type Builder struct {
	engine Engine
	cfg    BuilderConfig
}

// NewBuilder returns a builder using engine, or the default engine when
// engine is nil.
func NewBuilder(engine Engine, cfg BuilderConfig) *Builder {
	if engine == nil {
		engine = DefaultEngine()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Builder{engine: engine, cfg: cfg}
}

// BuildRequest is the input to Build.
type BuildRequest struct {
	CoordSys CoordSys
	Method   Method
	Src, Dst *GridDescriptor
	// SrcMask and DstMask are the candidate masks. The method's mask
	// policy decides whether each is baked into the weights or kept for
	// Apply.
	SrcMask, DstMask Mask
	// UseSrcMask false bakes the source mask under nearest_stod.
	UseSrcMask bool
	Parameters Parameters
}

// Build computes the weights mapping req.Src onto req.Dst. No operator is
// returned on failure, and engine handles are always released.
func (b *Builder) Build(req BuildRequest) (op *Operator, err error) {
	start := b.cfg.Clock.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		monitoring.OperatorBuilds.WithLabelValues(string(req.Method), result).Inc()
		monitoring.OperatorBuildSeconds.WithLabelValues(string(req.Method)).Observe(b.cfg.Clock.Since(start).Seconds())
	}()

	p, err := req.Method.policy()
	if err != nil {
		return nil, err
	}
	method := p.canonical
	if !req.UseSrcMask && method != MethodNearestStoD {
		return nil, &ConfigurationError{
			Method:    method,
			Attribute: "use source mask",
			Detail:    "can only be false for the nearest_stod method",
		}
	}
	if req.Src == nil || req.Dst == nil {
		return nil, &ConfigurationError{Method: method, Attribute: "grids", Detail: "source and destination grids are required"}
	}
	if req.Src.CoordSys != req.CoordSys || req.Dst.CoordSys != req.CoordSys {
		return nil, &GridIncompatibilityError{
			Method:    method,
			Attribute: "coordinate system",
			Detail: fmt.Sprintf("regrid is %s but source grid is %s and destination grid is %s",
				req.CoordSys, req.Src.CoordSys, req.Dst.CoordSys),
		}
	}
	if method == MethodPatch && req.CoordSys == Cartesian && len(req.Src.AxisKeys) != 2 {
		return nil, &ConfigurationError{
			Method:    method,
			Attribute: "axes",
			Detail:    "patch recovery is only available for 2-d regridding",
		}
	}
	if len(req.Src.Coords) != len(req.Dst.Coords) {
		return nil, &GridIncompatibilityError{
			Method:    method,
			Attribute: "dimensions",
			Detail:    fmt.Sprintf("source grid has %d coordinates, destination grid has %d", len(req.Src.Coords), len(req.Dst.Coords)),
		}
	}
	if p.strict {
		for k, s := range req.Src.Shape {
			if s == 1 {
				return nil, &GridIncompatibilityError{
					Role:      RoleSource,
					Method:    method,
					Attribute: "shape",
					Detail:    fmt.Sprintf("axis %q has size 1", req.Src.AxisKeys[k]),
				}
			}
		}
	}

	src, dst := req.Src.Copy(), req.Dst.Copy()
	if req.CoordSys == Cartesian {
		if err := conformUnits(src, dst, method); err != nil {
			return nil, err
		}
	}

	srcPolicy, dstPolicy := method.MaskPolicies(req.UseSrcMask)
	var engineSrcMask, engineDstMask, opSrcMask, opDstMask Mask
	if srcPolicy == Baked {
		engineSrcMask = req.SrcMask
		opSrcMask = req.SrcMask
	}
	if dstPolicy == Baked {
		engineDstMask = req.DstMask
	} else {
		opDstMask = req.DstMask
	}

	srcSpec, err := engineGrid(src, RoleSource, method, p, engineSrcMask)
	if err != nil {
		return nil, err
	}
	dstSpec, err := engineGrid(dst, RoleDestination, method, p, engineDstMask)
	if err != nil {
		return nil, err
	}

	unmapped, err := b.cfg.Unmapped.engine()
	if err != nil {
		return nil, err
	}
	w, err := b.weights(srcSpec, dstSpec, weights.RegridOptions{
		Method:           p.engine,
		Unmapped:         unmapped,
		IgnoreDegenerate: b.cfg.IgnoreDegenerate,
	})
	if err != nil {
		return nil, fmt.Errorf("regrid: %s weights: %w", method, err)
	}

	// Quarter truncation: with a size-2 synthetic axis only the weights
	// between the first halves of both grids address real cells.
	if req.CoordSys == Cartesian && src.Synthetic && len(src.Bounds) == 0 {
		w = quarter(w, dstSpec.Size(), srcSpec.Size())
	}

	op, err = NewOperator(OperatorSpec{
		CreatedAt:  b.cfg.Clock.Now().UTC(),
		Method:     method,
		CoordSys:   req.CoordSys,
		Weights:    w,
		SrcShape:   req.Src.Shape,
		DstShape:   req.Dst.Shape,
		SrcCyclic:  req.Src.Cyclic,
		DstCyclic:  req.Dst.Cyclic,
		SrcCoords:  req.Src.Coords,
		SrcBounds:  req.Src.Bounds,
		SrcMask:    opSrcMask,
		DstMask:    opDstMask,
		Parameters: req.Parameters,
	})
	if err != nil {
		return nil, err
	}

	monitoring.Logger().Debug().
		Str("component", "regrid").
		Str("operator", op.ID().String()).
		Str("method", string(method)).
		Ints("src_shape", req.Src.Shape).
		Ints("dst_shape", req.Dst.Shape).
		Int("weights", len(w.Weights)).
		Bool("src_mask_baked", op.srcMask != nil).
		Msg("built regrid operator")
	return op, nil
}

// weights runs the engine, releasing every handle before returning.
func (b *Builder) weights(src, dst weights.GridSpec, opts weights.RegridOptions) (weights.Triple, error) {
	if err := b.engine.Initialise(); err != nil {
		return weights.Triple{}, err
	}
	sg, err := b.engine.NewGrid(src)
	if err != nil {
		return weights.Triple{}, fmt.Errorf("source grid: %w", err)
	}
	defer sg.Destroy()
	dg, err := b.engine.NewGrid(dst)
	if err != nil {
		return weights.Triple{}, fmt.Errorf("destination grid: %w", err)
	}
	defer dg.Destroy()
	sf, err := b.engine.NewField(sg, "src")
	if err != nil {
		return weights.Triple{}, err
	}
	defer sf.Destroy()
	df, err := b.engine.NewField(dg, "dst")
	if err != nil {
		return weights.Triple{}, err
	}
	defer df.Destroy()
	r, err := b.engine.NewRegrid(sf, df, opts)
	if err != nil {
		return weights.Triple{}, err
	}
	defer r.Destroy()
	return r.Weights()
}

// quarter keeps the weights whose row and column both lie in the first
// half of the flattened destination and source index spaces.
func quarter(w weights.Triple, ndst, nsrc int) weights.Triple {
	var out weights.Triple
	for k := range w.Weights {
		if w.Rows[k] < ndst/2 && w.Cols[k] < nsrc/2 {
			out.Weights = append(out.Weights, w.Weights[k])
			out.Rows = append(out.Rows, w.Rows[k])
			out.Cols = append(out.Cols, w.Cols[k])
		}
	}
	return out
}

// conformUnits converts the source coordinates and bounds to the units of
// the destination. Coordinates without units are left alone.
func conformUnits(src, dst *GridDescriptor, method Method) error {
	for d := range src.Coords {
		from, to := src.Units[d], dst.Units[d]
		if from == "" || to == "" || from == to {
			continue
		}
		if !units.Equivalent(from, to) {
			return &GridIncompatibilityError{
				Method:    method,
				Attribute: "units",
				Detail: fmt.Sprintf("source coordinate %d units %q are not equivalent to destination units %q",
					d, from, to),
			}
		}
		if err := units.Convert(src.Coords[d].Elements, from, to); err != nil {
			return err
		}
		if d < len(src.Bounds) {
			if err := units.Convert(src.Bounds[d].Elements, from, to); err != nil {
				return err
			}
		}
		src.Units[d] = to
	}
	return nil
}

// engineGrid converts a descriptor into the weight engine's grid form.
func engineGrid(g *GridDescriptor, role Role, method Method, p methodPolicy, mask Mask) (weights.GridSpec, error) {
	spherical := g.CoordSys == Spherical
	spec := weights.GridSpec{
		Name:      string(role),
		Spherical: spherical,
		Periodic:  spherical && g.Cyclic,
		Centers:   g.Coords,
	}
	if g.Curvilinear {
		spec.Shape = append([]int(nil), g.Coords[0].Shape...)
	} else {
		for _, c := range g.Coords {
			spec.Shape = append(spec.Shape, len(c.Elements))
		}
	}

	if p.conservative {
		bounds := g.Bounds
		if spherical {
			bounds = copyArrays(g.Bounds)
			clipLatitudes(bounds[1])
		}
		if err := checkContiguous(bounds, g.Cyclic); err != nil {
			return weights.GridSpec{}, &GridIncompatibilityError{
				Role:      role,
				Method:    method,
				Attribute: "bounds",
				Detail:    "coordinates must have contiguous, non-overlapping bounds",
				Err:       err,
			}
		}
		spec.Corners = cornerArrays(bounds, spherical, g.Cyclic)
	}

	if mask.Any() {
		spec.Mask = engineMask(mask, g.Size(), spec.Size())
	}
	return spec, nil
}

// engineMask encodes a mask as engine integers, 0 for masked. A mask over
// n real cells is repeated across any synthetic axis.
func engineMask(m Mask, n, total int) []int32 {
	out := make([]int32, total)
	for p := range out {
		if !m[p%n] {
			out[p] = 1
		}
	}
	return out
}
