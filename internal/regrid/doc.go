// Package regrid builds, checks and applies sparse regrid operators that
// move gridded field data between spherical (longitude-latitude) and
// Cartesian discretisations of one to three dimensions.
//
// The pipeline runs in a fixed order:
//
//	NewGridDescriptor   canonical description of each grid
//	ExtractMask         spatial mask of a field, first slice of other axes
//	Builder.Build       weights from an Engine, packaged as an Operator
//	Operator.Check      compatibility of a reused operator with a source
//	Apply               sparse multiply with result-mask derivation
//	PropagateMetadata   coordinates and constructs rewritten for the result
//
// Regrid, RegridToSpec, BuildOperator and RegridWith orchestrate these
// steps. An Operator is immutable and may be applied concurrently.
//
// Whether a mask is baked into the weights or applied afterwards depends
// on the method; see the policy table in method.go.
//
// Flattened grid indices are row-major over GridDescriptor.AxisKeys, which
// is column-major over GridDescriptor.Coords since coordinates are held in
// the reverse (X, Y[, Z]) order. A synthetic second axis added for 1-d
// Cartesian regridding is always the last coordinate and so varies
// slowest: the real cells occupy the first half of the engine's flattened
// index space.
package regrid
