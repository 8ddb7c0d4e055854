package regrid

import (
	"errors"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrConfiguration            = errors.New("invalid regrid configuration")
	ErrGridIncompatible         = errors.New("incompatible grid")
	ErrOperatorReuse            = errors.New("regrid operator cannot be reused")
	ErrUnsupportedMaskVariation = errors.New("unsupported mask variation")
)

// ConfigurationError reports an invalid or ambiguous method, axis
// specification or parameter combination.
type ConfigurationError struct {
	Role      Role
	Method    Method
	Attribute string
	Detail    string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return format("invalid configuration", e.Role, e.Method, e.Attribute, e.Detail, e.Err)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
func (e *ConfigurationError) Unwrap() error        { return e.Err }

// GridIncompatibilityError reports a grid that cannot be used: unit
// mismatch, missing or non-contiguous bounds, a size-1 axis under a strict
// method, or a coordinate system mismatch on reuse.
type GridIncompatibilityError struct {
	Role      Role
	Method    Method
	Attribute string
	Detail    string
	Err       error
}

func (e *GridIncompatibilityError) Error() string {
	return format("incompatible grid", e.Role, e.Method, e.Attribute, e.Detail, e.Err)
}

func (e *GridIncompatibilityError) Is(target error) bool { return target == ErrGridIncompatible }
func (e *GridIncompatibilityError) Unwrap() error        { return e.Err }

// OperatorReuseError reports a source grid or mask that does not match the
// one an operator was built for.
type OperatorReuseError struct {
	Role      Role
	Method    Method
	Attribute string
	Detail    string
	Err       error
}

func (e *OperatorReuseError) Error() string {
	return format("cannot reuse operator", e.Role, e.Method, e.Attribute, e.Detail, e.Err)
}

func (e *OperatorReuseError) Is(target error) bool { return target == ErrOperatorReuse }
func (e *OperatorReuseError) Unwrap() error        { return e.Err }

// UnsupportedMaskVariationError reports a source mask that varies between
// slices of the data under a method whose weights assume one fixed mask.
type UnsupportedMaskVariationError struct {
	Role      Role
	Method    Method
	Attribute string
	Detail    string
	Err       error
}

func (e *UnsupportedMaskVariationError) Error() string {
	return format("unsupported mask variation", e.Role, e.Method, e.Attribute, e.Detail, e.Err)
}

func (e *UnsupportedMaskVariationError) Is(target error) bool {
	return target == ErrUnsupportedMaskVariation
}
func (e *UnsupportedMaskVariationError) Unwrap() error { return e.Err }

func format(kind string, role Role, method Method, attribute, detail string, err error) string {
	var b strings.Builder
	b.WriteString("regrid: ")
	b.WriteString(kind)
	if role != "" {
		b.WriteString(" for ")
		b.WriteString(string(role))
		b.WriteString(" grid")
	}
	if method != "" {
		b.WriteString(" (method ")
		b.WriteString(string(method))
		b.WriteString(")")
	}
	if attribute != "" {
		b.WriteString(": ")
		b.WriteString(attribute)
	}
	if detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}
