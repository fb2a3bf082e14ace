// Package config provides configuration loading and management for volreslice.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"volreslice/pkg/interpolation"
	"volreslice/pkg/reslice"
	"volreslice/pkg/transform"
	"volreslice/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Reslice parameters
	Reslice struct {
		// NumWorkers specifies how many output pieces are resampled in parallel
		NumWorkers int `yaml:"numWorkers"`

		// Interpolation is one of nearest, linear or cubic
		Interpolation interpolation.Mode `yaml:"interpolation"`

		// Boundary is one of background, wrap, mirror, border or null
		Boundary interpolation.BoundaryMode `yaml:"boundary"`

		// Background holds up to four values, one per component
		Background []float64 `yaml:"background"`
	} `yaml:"reslice"`

	// Transform parameters mapping output world coordinates to input world
	// coordinates. Without Matrix, points are scaled and rotated about
	// Center and then translated.
	Transform struct {
		// Matrix is an optional 3x4 or 4x4 row-major homogeneous matrix
		Matrix [][]float64 `yaml:"matrix,omitempty"`

		// Translation in world units
		Translation [3]float64 `yaml:"translation"`

		// RotationAxis is the axis of RotationDegrees
		RotationAxis [3]float64 `yaml:"rotationAxis"`

		// RotationDegrees is applied about Center
		RotationDegrees float64 `yaml:"rotationDegrees"`

		// Scale per axis about Center
		Scale [3]float64 `yaml:"scale"`

		// Center is the fixed point of rotation and scaling
		Center [3]float64 `yaml:"center"`
	} `yaml:"transform"`

	// Output grid parameters
	Output struct {
		// Kind is the scalar kind of the output; empty keeps the input kind
		Kind string `yaml:"kind"`

		// Spacing of the output grid; zero keeps the input spacing
		Spacing [3]float64 `yaml:"spacing"`

		// Extent of the output grid; nil keeps the input extent
		Extent []int `yaml:"extent,omitempty"`

		// Compress writes the payload xz-compressed
		Compress bool `yaml:"compress"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Slice export parameters
	Slice struct {
		// Format is one of jpeg, png or tiff
		Format string `yaml:"format"`

		// Quality is the JPEG quality
		Quality int `yaml:"quality"`
	} `yaml:"slice"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Reslice.NumWorkers = runtime.NumCPU()
	cfg.Reslice.Interpolation = interpolation.Linear
	cfg.Reslice.Boundary = interpolation.Background
	cfg.Reslice.Background = []float64{0}

	cfg.Transform.RotationAxis = [3]float64{0, 0, 1}
	cfg.Transform.Scale = [3]float64{1, 1, 1}

	cfg.Output.Compress = false
	cfg.Output.Verbose = false

	cfg.Slice.Format = "png"
	cfg.Slice.Quality = 95

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks value ranges that YAML decoding cannot.
func (c *Config) Validate() error {
	if c.Reslice.NumWorkers < 0 {
		return fmt.Errorf("numWorkers must not be negative, got %d", c.Reslice.NumWorkers)
	}
	if len(c.Reslice.Background) > reslice.MaxBackgroundComponents {
		return fmt.Errorf("background has %d values, at most %d are allowed",
			len(c.Reslice.Background), reslice.MaxBackgroundComponents)
	}
	if c.Transform.Matrix != nil {
		if _, err := transform.FromRows(c.Transform.Matrix); err != nil {
			return err
		}
	}
	if c.Output.Kind != "" {
		if _, err := volume.ParseScalarKind(c.Output.Kind); err != nil {
			return err
		}
	}
	if c.Output.Extent != nil && len(c.Output.Extent) != 6 {
		return fmt.Errorf("output extent needs 6 values, got %d", len(c.Output.Extent))
	}
	for axis, s := range c.Output.Spacing {
		if s < 0 {
			return fmt.Errorf("output spacing along axis %d is negative", axis)
		}
	}
	switch c.Slice.Format {
	case "jpeg", "jpg", "png", "tiff":
	default:
		return fmt.Errorf("unknown slice format %q", c.Slice.Format)
	}
	return nil
}

// Matrix returns the configured transform: the explicit matrix when one
// is set, otherwise scaling and rotation about Center followed by the
// translation.
func (c *Config) Matrix() (*mat.Dense, error) {
	t := &c.Transform
	if t.Matrix != nil {
		return transform.FromRows(t.Matrix)
	}
	center := r3.Vec{X: t.Center[0], Y: t.Center[1], Z: t.Center[2]}
	scale := r3.Vec{X: t.Scale[0], Y: t.Scale[1], Z: t.Scale[2]}
	if scale == (r3.Vec{}) {
		scale = r3.Vec{X: 1, Y: 1, Z: 1}
	}
	axis := r3.Vec{X: t.RotationAxis[0], Y: t.RotationAxis[1], Z: t.RotationAxis[2]}
	return transform.Compose(
		transform.Translation(r3.Scale(-1, center)),
		transform.Scaling(scale),
		transform.Rotation(axis, t.RotationDegrees*math.Pi/180),
		transform.Translation(center),
		transform.Translation(r3.Vec{X: t.Translation[0], Y: t.Translation[1], Z: t.Translation[2]}),
	), nil
}

// Options converts the reslice section into engine options.
func (c *Config) Options() (reslice.Options, error) {
	m, err := c.Matrix()
	if err != nil {
		return reslice.Options{}, err
	}
	return reslice.Options{
		Interpolation: c.Reslice.Interpolation,
		Boundary:      c.Reslice.Boundary,
		Background:    append([]float64(nil), c.Reslice.Background...),
		Matrix:        m,
		NumWorkers:    c.Reslice.NumWorkers,
	}, nil
}
