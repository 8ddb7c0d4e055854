package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/gridmap/internal/regrid"
)

// maxFileSize bounds every configuration file read by this package.
const maxFileSize = 1 * 1024 * 1024 // 1MB

var validate = validator.New()

// RegridConfig holds the options of a regrid run. The same document is
// accepted as JSON or YAML. Unset fields fall back to the defaults returned
// by the Get* methods, so partial configs are safe.
type RegridConfig struct {
	CoordSys *string `json:"coord_sys,omitempty" yaml:"coord_sys,omitempty" validate:"omitempty,oneof=spherical Cartesian cartesian"`
	Method   *string `json:"method,omitempty" yaml:"method,omitempty"`

	// Cartesian axis specifiers.
	Axes    []string `json:"axes,omitempty" yaml:"axes,omitempty" validate:"omitempty,max=3,dive,required"`
	DstAxes []string `json:"dst_axes,omitempty" yaml:"dst_axes,omitempty" validate:"omitempty,max=3,dive,required"`

	// X and Y axes of 2-d spherical coordinates.
	SrcXY *regrid.AxisMapping `json:"src_xy,omitempty" yaml:"src_xy,omitempty"`
	DstXY *regrid.AxisMapping `json:"dst_xy,omitempty" yaml:"dst_xy,omitempty"`

	SrcCyclic *bool `json:"src_cyclic,omitempty" yaml:"src_cyclic,omitempty"`
	DstCyclic *bool `json:"dst_cyclic,omitempty" yaml:"dst_cyclic,omitempty"`

	UseSrcMask       *bool   `json:"use_src_mask,omitempty" yaml:"use_src_mask,omitempty"`
	UseDstMask       *bool   `json:"use_dst_mask,omitempty" yaml:"use_dst_mask,omitempty"`
	IgnoreDegenerate *bool   `json:"ignore_degenerate,omitempty" yaml:"ignore_degenerate,omitempty"`
	Unmapped         *string `json:"unmapped,omitempty" yaml:"unmapped,omitempty" validate:"omitempty,oneof=ignore error"`
	CheckCoordinates *bool   `json:"check_coordinates,omitempty" yaml:"check_coordinates,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// EmptyRegridConfig returns a RegridConfig with all fields unset.
func EmptyRegridConfig() *RegridConfig {
	return &RegridConfig{}
}

// DefaultRegridConfig returns a RegridConfig with every field set to its
// default.
func DefaultRegridConfig() *RegridConfig {
	return &RegridConfig{
		CoordSys:         ptrString(string(regrid.Spherical)),
		Method:           ptrString(string(regrid.MethodLinear)),
		UseSrcMask:       ptrBool(true),
		UseDstMask:       ptrBool(false),
		IgnoreDegenerate: ptrBool(true),
		Unmapped:         ptrString(string(regrid.UnmappedIgnore)),
		CheckCoordinates: ptrBool(false),
	}
}

// readConfigFile checks the extension and size of path and returns its
// contents.
func readConfigFile(path string) ([]byte, string, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, "", fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, "", fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config file: %w", err)
	}
	return data, ext, nil
}

func decode(data []byte, ext string, v any) error {
	if ext == ".json" {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse config JSON: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// LoadRegridConfig loads a RegridConfig from a JSON or YAML file of at
// most 1MB.
func LoadRegridConfig(path string) (*RegridConfig, error) {
	data, ext, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg := EmptyRegridConfig()
	if err := decode(data, ext, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RegridConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Method != nil {
		if _, err := regrid.ParseMethod(*c.Method); err != nil {
			return err
		}
	}
	if !c.GetUseSrcMask() && c.GetMethod() != regrid.MethodNearestStoD {
		return fmt.Errorf("use_src_mask=false is only valid with method %q", regrid.MethodNearestStoD)
	}
	return nil
}

// GetCoordSys returns the coordinate system or the default, spherical.
func (c *RegridConfig) GetCoordSys() regrid.CoordSys {
	if c.CoordSys == nil {
		return regrid.Spherical
	}
	cs, err := regrid.ParseCoordSys(*c.CoordSys)
	if err != nil {
		return regrid.Spherical // default on parse error
	}
	return cs
}

// GetMethod returns the canonical method or the default, linear.
func (c *RegridConfig) GetMethod() regrid.Method {
	if c.Method == nil {
		return regrid.MethodLinear
	}
	m, err := regrid.ParseMethod(*c.Method)
	if err != nil {
		return regrid.MethodLinear // default on parse error
	}
	return m
}

// GetUseSrcMask returns the use_src_mask value or the default.
func (c *RegridConfig) GetUseSrcMask() bool {
	if c.UseSrcMask == nil {
		return true // default
	}
	return *c.UseSrcMask
}

// GetUseDstMask returns the use_dst_mask value or the default.
func (c *RegridConfig) GetUseDstMask() bool {
	if c.UseDstMask == nil {
		return false // default
	}
	return *c.UseDstMask
}

// GetIgnoreDegenerate returns the ignore_degenerate value or the default.
func (c *RegridConfig) GetIgnoreDegenerate() bool {
	if c.IgnoreDegenerate == nil {
		return true // default
	}
	return *c.IgnoreDegenerate
}

// GetUnmapped returns the unmapped action or the default, ignore.
func (c *RegridConfig) GetUnmapped() regrid.UnmappedAction {
	if c.Unmapped == nil || *c.Unmapped == "" {
		return regrid.UnmappedIgnore
	}
	return regrid.UnmappedAction(*c.Unmapped)
}

// GetCheckCoordinates returns the check_coordinates value or the default.
func (c *RegridConfig) GetCheckCoordinates() bool {
	if c.CheckCoordinates == nil {
		return false // default
	}
	return *c.CheckCoordinates
}

// ToOptions converts the configuration into regrid options.
func (c *RegridConfig) ToOptions() regrid.Options {
	opts := regrid.DefaultOptions()
	opts.CoordSys = c.GetCoordSys()
	opts.Method = c.GetMethod()
	opts.Axes = append([]string(nil), c.Axes...)
	opts.DstAxes = append([]string(nil), c.DstAxes...)
	if c.SrcXY != nil {
		xy := *c.SrcXY
		opts.SrcXY = &xy
	}
	if c.DstXY != nil {
		xy := *c.DstXY
		opts.DstXY = &xy
	}
	if c.SrcCyclic != nil {
		opts.SrcCyclic = ptrBool(*c.SrcCyclic)
	}
	if c.DstCyclic != nil {
		opts.DstCyclic = ptrBool(*c.DstCyclic)
	}
	opts.IgnoreSrcMask = !c.GetUseSrcMask()
	opts.UseDstMask = c.GetUseDstMask()
	opts.IgnoreDegenerate = c.GetIgnoreDegenerate()
	opts.Unmapped = c.GetUnmapped()
	opts.CheckCoordinates = c.GetCheckCoordinates()
	return opts
}
