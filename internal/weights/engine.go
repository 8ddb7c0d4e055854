package weights

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ctessum/sparse"

	"github.com/banshee-data/gridmap/internal/monitoring"
)

// ErrNotInitialised is returned when handles are requested before
// Initialise.
var ErrNotInitialised = errors.New("weight engine not initialised")

// ErrDestroyed is returned when a destroyed handle is used.
var ErrDestroyed = errors.New("handle destroyed")

// GridHandle is an engine-side grid.
type GridHandle interface {
	Destroy()
}

// FieldHandle is an engine-side field defined on a grid.
type FieldHandle interface {
	Destroy()
}

// RegridHandle holds the weights computed between two fields.
type RegridHandle interface {
	Destroy()
	Weights() (Triple, error)
}

// Engine is the reference weight engine. It is safe for concurrent use.
type Engine struct {
	once sync.Once

	mu          sync.Mutex
	initialised bool
	live        int
}

// NewEngine returns an uninitialised engine.
func NewEngine() *Engine { return &Engine{} }

// Initialise prepares the engine. It is idempotent.
func (e *Engine) Initialise() error {
	e.once.Do(func() {
		e.mu.Lock()
		e.initialised = true
		e.mu.Unlock()
		monitoring.Logf("weights: engine initialised")
	})
	return nil
}

// Live returns the number of handles not yet destroyed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

func (e *Engine) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialised {
		return ErrNotInitialised
	}
	e.live++
	monitoring.EngineHandlesLive.Inc()
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live--
	monitoring.EngineHandlesLive.Dec()
}

// handle is the common part of every engine handle.
type handle struct {
	engine    *Engine
	mu        sync.Mutex
	destroyed bool
}

// Destroy releases the handle. Repeated calls are no-ops.
func (h *handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.engine.release()
}

func (h *handle) alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.destroyed
}

type grid struct {
	handle
	spec GridSpec
}

type fieldHandle struct {
	handle
	name string
	grid *grid
}

type regridHandle struct {
	handle
	weights Triple
}

// NewGrid validates spec and creates a grid handle.
func (e *Engine) NewGrid(spec GridSpec) (GridHandle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := e.acquire(); err != nil {
		return nil, err
	}
	return &grid{handle: handle{engine: e}, spec: spec}, nil
}

// NewField creates a field on a grid created by this engine.
func (e *Engine) NewField(g GridHandle, name string) (FieldHandle, error) {
	gr, ok := g.(*grid)
	if !ok || gr.engine != e {
		return nil, fmt.Errorf("field %q: grid was not created by this engine", name)
	}
	if !gr.alive() {
		return nil, fmt.Errorf("field %q: grid: %w", name, ErrDestroyed)
	}
	if err := e.acquire(); err != nil {
		return nil, err
	}
	return &fieldHandle{handle: handle{engine: e}, name: name, grid: gr}, nil
}

// NewRegrid computes the weights mapping src onto dst.
func (e *Engine) NewRegrid(src, dst FieldHandle, opts RegridOptions) (RegridHandle, error) {
	s, ok := src.(*fieldHandle)
	if !ok || s.engine != e {
		return nil, errors.New("source field was not created by this engine")
	}
	d, ok := dst.(*fieldHandle)
	if !ok || d.engine != e {
		return nil, errors.New("destination field was not created by this engine")
	}
	if !s.alive() || !d.alive() {
		return nil, ErrDestroyed
	}

	w, err := computeWeights(s.grid.spec, d.grid.spec, opts)
	if err != nil {
		return nil, err
	}
	if err := e.acquire(); err != nil {
		return nil, err
	}
	return &regridHandle{handle: handle{engine: e}, weights: w}, nil
}

// Weights returns a copy of the computed weights.
func (r *regridHandle) Weights() (Triple, error) {
	if !r.alive() {
		return Triple{}, ErrDestroyed
	}
	return r.weights.Copy(), nil
}

func computeWeights(src, dst GridSpec, opts RegridOptions) (Triple, error) {
	if len(src.Shape) != len(dst.Shape) {
		return Triple{}, fmt.Errorf("source grid has %d dimensions, destination grid has %d",
			len(src.Shape), len(dst.Shape))
	}
	if src.Spherical != dst.Spherical {
		return Triple{}, errors.New("source and destination grids have different coordinate systems")
	}

	nsrc, ndst := src.Size(), dst.Size()
	m := sparse.ZerosSparse(ndst, nsrc)

	var err error
	switch opts.Method {
	case MethodBilinear:
		err = linearWeights(src, dst, m, false)
	case MethodPatch:
		err = linearWeights(src, dst, m, true)
	case MethodConserve, MethodConserve2nd:
		err = conservativeWeights(src, dst, m, opts.IgnoreDegenerate)
	case MethodNearestStoD:
		nearestStoD(src, dst, m)
	case MethodNearestDtoS:
		nearestDtoS(src, dst, m)
	default:
		return Triple{}, fmt.Errorf("unsupported method %q", opts.Method)
	}
	if err != nil {
		return Triple{}, err
	}

	t := tripleFromSparse(m, nsrc)
	if opts.Unmapped == UnmappedError {
		if err := checkMapped(dst, t); err != nil {
			return Triple{}, err
		}
	}
	return t, nil
}

func checkMapped(dst GridSpec, t Triple) error {
	mapped := make([]bool, dst.Size())
	for _, r := range t.Rows {
		mapped[r] = true
	}
	for p, ok := range mapped {
		if !ok && !dst.Masked(p) {
			return fmt.Errorf("destination point %d: %w", p, ErrUnmapped)
		}
	}
	return nil
}
