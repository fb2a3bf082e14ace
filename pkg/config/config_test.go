package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"volreslice/pkg/interpolation"
)

// TestLoadMissingFile verifies that a missing file yields the defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Reslice.Interpolation != interpolation.Linear {
		t.Errorf("Expected linear interpolation by default, got %v", cfg.Reslice.Interpolation)
	}
	if cfg.Slice.Format != "png" {
		t.Errorf("Expected png slices by default, got %q", cfg.Slice.Format)
	}
}

// TestSaveLoadRoundTrip verifies that a saved configuration loads back
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Reslice.Interpolation = interpolation.Cubic
	cfg.Reslice.Boundary = interpolation.Mirror
	cfg.Reslice.Background = []float64{1, 2}
	cfg.Transform.Translation = [3]float64{1, 2, 3}
	cfg.Output.Kind = "uint16"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.Contains(string(data), "interpolation: cubic") {
		t.Errorf("Expected modes to be written by name, got:\n%s", data)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Reslice.Interpolation != interpolation.Cubic || loaded.Reslice.Boundary != interpolation.Mirror {
		t.Errorf("Expected cubic/mirror, got %v/%v", loaded.Reslice.Interpolation, loaded.Reslice.Boundary)
	}
	if !floats.Equal(loaded.Reslice.Background, []float64{1, 2}) {
		t.Errorf("Expected background [1 2], got %v", loaded.Reslice.Background)
	}
	if loaded.Transform.Translation != [3]float64{1, 2, 3} || loaded.Output.Kind != "uint16" {
		t.Errorf("Expected translation and kind to survive, got %v %q", loaded.Transform.Translation, loaded.Output.Kind)
	}
}

// TestLoadRejectsInvalid verifies parse and validation errors
func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"mode":       "reslice:\n  interpolation: bicubic\n",
		"background": "reslice:\n  background: [1, 2, 3, 4, 5]\n",
		"matrix":     "transform:\n  matrix: [[1, 0, 0]]\n",
		"kind":       "output:\n  kind: complex\n",
		"format":     "slice:\n  format: gif\n",
		"extent":     "output:\n  extent: [0, 1]\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

// TestOptions verifies that the transform section becomes a matrix
func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transform.Translation = [3]float64{5, 0, 0}
	cfg.Transform.Center = [3]float64{1, 1, 0}
	cfg.Transform.RotationDegrees = 90

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	var p mat.VecDense
	p.MulVec(opts.Matrix, mat.NewVecDense(4, []float64{2, 1, 0, 1}))
	// (2,1) rotates about (1,1) onto (1,2), then moves by 5 along x
	if !floats.EqualApprox(p.RawVector().Data, []float64{6, 2, 0, 1}, 1e-12) {
		t.Errorf("Expected (6,2,0), got %v", p.RawVector().Data)
	}
	if opts.Interpolation != interpolation.Linear || opts.NumWorkers != cfg.Reslice.NumWorkers {
		t.Errorf("Expected reslice settings to carry over, got %+v", opts)
	}

	cfg.Transform.Matrix = [][]float64{{2, 0, 0, 0}, {0, 2, 0, 0}, {0, 0, 2, 0}}
	m, err := cfg.Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	if m.At(0, 0) != 2 || m.At(3, 3) != 1 {
		t.Errorf("Expected the explicit matrix to be used, got %v", mat.Formatted(m))
	}
}

// TestCreateDefaultConfigFile verifies the generated file is loadable
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volreslice.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("Expected the default file to load, got %v", err)
	}
}
