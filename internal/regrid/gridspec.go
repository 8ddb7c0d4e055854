package regrid

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/units"
)

var validate = validator.New()

// GridSpec defines a destination grid directly from coordinates.
//
// A spherical spec holds "longitude" and "latitude" coordinates, both 1-d
// or both 2-d. 2-d coordinates need AxisOrder, either ["Y", "X"] or
// ["X", "Y"], naming the order of their dimensions. A Cartesian spec holds
// one to three 1-d coordinates keyed by name; AxisOrder lists the names in
// regrid order and defaults to the sorted keys.
type GridSpec struct {
	Coords    map[string]*field.Coordinate `validate:"required,min=1,max=3,dive,required"`
	AxisOrder []string                     `validate:"omitempty,max=3,dive,required"`
	Cyclic    *bool
}

// SpecDomain is the domain built from a GridSpec together with the axis
// information needed to describe it as a destination grid.
type SpecDomain struct {
	Domain *field.Field
	// Axes are the Cartesian axis keys in AxisOrder.
	Axes []string
	// XY maps the X and Y axes of 2-d spherical coordinates.
	XY *AxisMapping
}

// Domain validates the spec and converts it into a field without data.
func (s GridSpec) Domain(coordSys CoordSys) (*SpecDomain, error) {
	if err := validate.Struct(s); err != nil {
		return nil, &ConfigurationError{
			Role:      RoleDestination,
			Attribute: "grid specification",
			Detail:    "invalid destination grid",
			Err:       err,
		}
	}
	switch coordSys {
	case Spherical:
		return s.sphericalDomain()
	case Cartesian:
		return s.cartesianDomain()
	}
	return nil, &ConfigurationError{
		Role:      RoleDestination,
		Attribute: "coordinate system",
		Detail:    fmt.Sprintf("must be spherical or Cartesian, got %q", string(coordSys)),
	}
}

func specErr(detail string) error {
	return &ConfigurationError{Role: RoleDestination, Attribute: "grid specification", Detail: detail}
}

func (s GridSpec) sphericalDomain() (*SpecDomain, error) {
	lon, okX := s.Coords["longitude"]
	lat, okY := s.Coords["latitude"]
	if !okX || !okY || len(s.Coords) != 2 {
		return nil, specErr("keys 'longitude' and 'latitude', and no others, must be given for a spherical grid")
	}
	lon, lat = lon.Copy(), lat.Copy()
	if lon.NDim() != lat.NDim() {
		return nil, specErr("longitude and latitude coordinates must have the same number of dimensions")
	}
	if lon.Units == "" {
		lon.Units = "degrees_east"
	}
	if lat.Units == "" {
		lat.Units = "degrees_north"
	}
	if !units.IsLongitude(lon.Units) || !units.IsLatitude(lat.Units) {
		return nil, specErr(fmt.Sprintf("longitude units must be one of %s and latitude units one of %s",
			units.GetValidLongitudeString(), units.GetValidLatitudeString()))
	}
	lon.StandardName, lon.Axis = "longitude", "X"
	lat.StandardName, lat.Axis = "latitude", "Y"

	d := field.New("grid")
	out := &SpecDomain{Domain: d}
	var xAxis, yAxis string

	switch lon.NDim() {
	case 1:
		yAxis = d.AddDomainAxis(lat.Data.Shape[0])
		xAxis = d.AddDomainAxis(lon.Data.Shape[0])
		lat.Auxiliary, lon.Auxiliary = false, false
		if _, err := d.SetConstruct(lat, yAxis); err != nil {
			return nil, err
		}
		if _, err := d.SetConstruct(lon, xAxis); err != nil {
			return nil, err
		}
	case 2:
		if !equalInts(lon.Data.Shape, lat.Data.Shape) {
			return nil, specErr("2-d longitude and latitude coordinates must have the same shape")
		}
		shape := lat.Data.Shape
		var axes []string
		switch {
		case equalStrings(s.AxisOrder, []string{"Y", "X"}):
			yAxis = d.AddDomainAxis(shape[0])
			xAxis = d.AddDomainAxis(shape[1])
			axes = []string{yAxis, xAxis}
		case equalStrings(s.AxisOrder, []string{"X", "Y"}):
			yAxis = d.AddDomainAxis(shape[1])
			xAxis = d.AddDomainAxis(shape[0])
			axes = []string{xAxis, yAxis}
		default:
			return nil, specErr(fmt.Sprintf("axis order must be [Y X] or [X Y] for 2-d coordinates, got %v", s.AxisOrder))
		}
		lat.Auxiliary, lon.Auxiliary = true, true
		if _, err := d.SetConstruct(lat, axes...); err != nil {
			return nil, err
		}
		if _, err := d.SetConstruct(lon, axes...); err != nil {
			return nil, err
		}
		out.XY = &AxisMapping{X: xAxis, Y: yAxis}
	default:
		return nil, specErr("longitude and latitude coordinates must be 1-d or 2-d")
	}

	if s.Cyclic != nil {
		d.SetCyclic(xAxis, *s.Cyclic, Period)
	}
	return out, nil
}

func (s GridSpec) cartesianDomain() (*SpecDomain, error) {
	order := s.AxisOrder
	if len(order) == 0 {
		for name := range s.Coords {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	if len(order) != len(s.Coords) {
		return nil, specErr(fmt.Sprintf("axis order %v does not name all %d coordinates", order, len(s.Coords)))
	}
	d := field.New("grid")
	out := &SpecDomain{Domain: d}
	for _, name := range order {
		c, ok := s.Coords[name]
		if !ok {
			return nil, specErr(fmt.Sprintf("axis order names unknown coordinate %q", name))
		}
		if c.NDim() != 1 {
			return nil, specErr(fmt.Sprintf("Cartesian coordinate %q must be 1-d", name))
		}
		c = c.Copy()
		c.Auxiliary = false
		if c.NcVar == "" {
			c.NcVar = name
		}
		axis := d.AddDomainAxis(c.Data.Shape[0])
		if _, err := d.SetConstruct(c, axis); err != nil {
			return nil, err
		}
		out.Axes = append(out.Axes, axis)
	}
	return out, nil
}
