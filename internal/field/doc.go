// Package field is the labelled-array data model the regridding pipeline
// reads from and writes to.
//
// A Field owns domain axes, an optional n-dimensional masked data array and
// a set of metadata constructs (dimension and auxiliary coordinates,
// coordinate references, cell measures, field ancillaries and domain
// ancillaries), each spanning an ordered list of domain axes. A Field without
// data is a domain.
//
// Key types: Field, MaskedArray, Coordinate, DomainAxis.
//
// No regridding logic is allowed in this package; callers reach storage only
// through the accessors defined here.
package field
