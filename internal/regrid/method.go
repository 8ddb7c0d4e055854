package regrid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/gridmap/internal/monitoring"
	"github.com/banshee-data/gridmap/internal/weights"
)

// Method names an interpolation method.
type Method string

const (
	MethodLinear          Method = "linear"
	MethodBilinear        Method = "bilinear" // deprecated alias of linear
	MethodConservative    Method = "conservative"
	MethodConservative1st Method = "conservative_1st"
	MethodConservative2nd Method = "conservative_2nd"
	MethodNearestDtoS     Method = "nearest_dtos"
	MethodNearestStoD     Method = "nearest_stod"
	MethodPatch           Method = "patch"
)

// MaskPolicy says where a mask takes effect.
type MaskPolicy int

const (
	// Retrospective masks are applied to already computed weights at
	// Apply time and may vary between slices.
	Retrospective MaskPolicy = iota
	// Baked masks are handed to the weight engine and shape the weights.
	Baked
)

func (p MaskPolicy) String() string {
	if p == Baked {
		return "baked"
	}
	return "retrospective"
}

// methodPolicy is one row of the method table.
type methodPolicy struct {
	canonical    Method
	engine       weights.Method
	conservative bool
	// strict methods interpolate between neighbours and cannot use a
	// size-1 source axis.
	strict bool
	src    MaskPolicy
	dst    MaskPolicy
}

var policies = map[Method]methodPolicy{
	MethodLinear:          {MethodLinear, weights.MethodBilinear, false, true, Retrospective, Retrospective},
	MethodBilinear:        {MethodLinear, weights.MethodBilinear, false, true, Retrospective, Retrospective},
	MethodConservative:    {MethodConservative, weights.MethodConserve, true, false, Retrospective, Retrospective},
	MethodConservative1st: {MethodConservative, weights.MethodConserve, true, false, Retrospective, Retrospective},
	MethodConservative2nd: {MethodConservative2nd, weights.MethodConserve2nd, true, false, Baked, Retrospective},
	MethodNearestDtoS:     {MethodNearestDtoS, weights.MethodNearestDtoS, false, false, Retrospective, Retrospective},
	MethodNearestStoD:     {MethodNearestStoD, weights.MethodNearestStoD, false, false, Retrospective, Baked},
	MethodPatch:           {MethodPatch, weights.MethodPatch, false, true, Baked, Retrospective},
}

// Methods returns every recognised method name, sorted.
func Methods() []string {
	out := make([]string, 0, len(policies))
	for m := range policies {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

// ParseMethod resolves a method name, including aliases, to its canonical
// form.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.TrimSpace(name))
	p, ok := policies[m]
	if !ok {
		return "", &ConfigurationError{
			Method:    m,
			Attribute: "method",
			Detail:    fmt.Sprintf("must be one of %s", strings.Join(Methods(), ", ")),
		}
	}
	if m == MethodBilinear {
		monitoring.Logf("regrid: the 'bilinear' method has been renamed to 'linear'; 'bilinear' is still accepted but will be removed")
	}
	return p.canonical, nil
}

func (m Method) policy() (methodPolicy, error) {
	p, ok := policies[m]
	if !ok {
		return methodPolicy{}, &ConfigurationError{
			Method:    m,
			Attribute: "method",
			Detail:    fmt.Sprintf("must be one of %s", strings.Join(Methods(), ", ")),
		}
	}
	return p, nil
}

// Conservative reports whether the method needs cell bounds.
func (m Method) Conservative() bool {
	p, ok := policies[m]
	return ok && p.conservative
}

// StrictNeighbour reports whether the method rejects size-1 source axes.
func (m Method) StrictNeighbour() bool {
	p, ok := policies[m]
	return ok && p.strict
}

// MaskPolicies returns where the source and destination masks take effect.
// With useSrcMask false, which only nearest_stod allows, the source mask is
// baked so destination points map only from unmasked source points.
func (m Method) MaskPolicies(useSrcMask bool) (src, dst MaskPolicy) {
	p := policies[m]
	src, dst = p.src, p.dst
	if m == MethodNearestStoD && !useSrcMask {
		src = Baked
	}
	return src, dst
}

// FixedMask reports whether weights built with the method assume a single
// source mask for every slice of the data.
func (m Method) FixedMask() bool {
	p, ok := policies[m]
	return ok && (p.src == Baked || p.dst == Baked)
}

// CoordSys is the coordinate system of a regrid.
type CoordSys string

const (
	Spherical CoordSys = "spherical"
	Cartesian CoordSys = "Cartesian"
)

// ParseCoordSys accepts "spherical" or "Cartesian", case-insensitively.
func ParseCoordSys(s string) (CoordSys, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spherical":
		return Spherical, nil
	case "cartesian":
		return Cartesian, nil
	}
	return "", &ConfigurationError{
		Attribute: "coordinate system",
		Detail:    fmt.Sprintf("must be spherical or Cartesian, got %q", s),
	}
}

// GridKind is the resolved shape of a grid's coordinates.
type GridKind int

const (
	SphericalRectilinear GridKind = iota
	SphericalCurvilinear
	CartesianGrid
)

func (k GridKind) String() string {
	switch k {
	case SphericalRectilinear:
		return "spherical rectilinear"
	case SphericalCurvilinear:
		return "spherical curvilinear"
	default:
		return "Cartesian"
	}
}

// Role says which side of a regrid a grid is on.
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// UnmappedAction controls unmasked destination cells that receive no
// weights.
type UnmappedAction string

const (
	UnmappedIgnore UnmappedAction = "ignore"
	UnmappedError  UnmappedAction = "error"
)

func (a UnmappedAction) engine() (weights.UnmappedAction, error) {
	switch a {
	case "", UnmappedIgnore:
		return weights.UnmappedIgnore, nil
	case UnmappedError:
		return weights.UnmappedError, nil
	}
	return 0, &ConfigurationError{
		Attribute: "unmapped action",
		Detail:    fmt.Sprintf("must be ignore or error, got %q", string(a)),
	}
}
