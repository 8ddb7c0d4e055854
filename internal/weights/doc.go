// Package weights is a reference regrid weight engine.
//
// Grids are described by a GridSpec whose coordinates are in (X, Y[, Z])
// order. A flattened grid index runs with the first coordinate fastest, so
// for a 2-d grid index = i + nx*j. Weights are returned as a sparse triple
// of (weight, destination row, source column) sorted by row then column.
//
// The engine implements first-order kernels only: multilinear
// interpolation, first-order conservative remapping with fractional-area
// normalisation and nearest-neighbour searches. It is intended as a
// correct, dependency-light collaborator for the regrid pipeline and for
// tests, not as a replacement for a production remapping library.
package weights
