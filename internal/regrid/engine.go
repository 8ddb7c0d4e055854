package regrid

import (
	"github.com/banshee-data/gridmap/internal/weights"
)

// Engine computes regrid weights. Handles it returns must be destroyed by
// the caller; Initialise must be idempotent.
type Engine interface {
	Initialise() error
	NewGrid(spec weights.GridSpec) (weights.GridHandle, error)
	NewField(g weights.GridHandle, name string) (weights.FieldHandle, error)
	NewRegrid(src, dst weights.FieldHandle, opts weights.RegridOptions) (weights.RegridHandle, error)
}

var defaultEngine Engine = weights.NewEngine()

// DefaultEngine returns the process-wide reference engine.
func DefaultEngine() Engine { return defaultEngine }
