package visualization

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/pkg/interpolation"
	"volreslice/pkg/reslice"
	"volreslice/pkg/volume"
)

// createTestVolume builds a float64 volume filled by fn.
func createTestVolume(t *testing.T, width, height, depth int, fn func(x, y, z int) float64) *volume.Volume {
	t.Helper()
	v, err := volume.New(volume.Float64, volume.Extent{0, width - 1, 0, height - 1, 0, depth - 1}, 1)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	v.Fill(func(x, y, z, _ int) float64 { return fn(x, y, z) })
	return v
}

func createViewer(t *testing.T, vol *volume.Volume) *Viewer {
	t.Helper()
	viewer, err := NewViewer(vol, reslice.Options{Interpolation: interpolation.Linear, NumWorkers: 2})
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	return viewer
}

// TestNewViewer verifies the default display window
func TestNewViewer(t *testing.T) {
	vol := createTestVolume(t, 10, 10, 5, func(x, y, z int) float64 { return float64(x + y + z) })
	viewer := createViewer(t, vol)

	lo, hi := viewer.Window()
	if lo != 0 || hi != 22 {
		t.Errorf("Expected window [0, 22], got [%v, %v]", lo, hi)
	}

	empty, _ := volume.New(volume.Float64, volume.Extent{0, -1, 0, 0, 0, 0}, 1)
	if _, err := NewViewer(empty, reslice.Options{}); err == nil {
		t.Error("Expected error for an empty volume, got nil")
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	ctx := context.Background()
	width, height, depth := 10, 8, 5

	// each slice along Z has a unique value
	vol := createTestVolume(t, width, height, depth, func(x, y, z int) float64 { return float64(z) })
	viewer := createViewer(t, vol)

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice(ctx, "z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		gray16Img, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		expectedValue := uint16(math.Round(float64(z) / float64(depth-1) * 65535))
		for _, p := range []image.Point{{0, 0}, {width / 2, height / 2}, {width - 1, height - 1}} {
			if got := gray16Img.Gray16At(p.X, p.Y).Y; got != expectedValue {
				t.Errorf("Expected Z slice %d value %d at %v, got %d", z, expectedValue, p, got)
			}
		}
	}

	imgX, err := viewer.ExtractSlice(ctx, "x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}

	imgY, err := viewer.ExtractSlice(ctx, "y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice(ctx, "invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice(ctx, "z", depth); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
}

// TestSliceValues verifies that axis slices copy voxels exactly, also with
// non-unit spacing and a shifted extent
func TestSliceValues(t *testing.T) {
	vol, _ := volume.New(volume.Int16, volume.Extent{2, 6, -1, 3, 4, 7}, 1)
	vol.Spacing = [3]float64{0.3, 0.7, 1.1}
	vol.Origin = [3]float64{-2, 5, 0.5}
	vol.Fill(func(x, y, z, _ int) float64 { return float64(100*x + 10*y + z) })
	viewer := createViewer(t, vol)

	cases := []struct {
		axis string
		pos  int
		at   func(i, j int) (x, y, z int)
	}{
		{"x", 4, func(i, j int) (int, int, int) { return 4, -1 + j, 4 + i }},
		{"y", 0, func(i, j int) (int, int, int) { return 2 + i, 0, 4 + j }},
		{"z", 6, func(i, j int) (int, int, int) { return 2 + i, -1 + j, 6 }},
	}
	for _, c := range cases {
		s, err := viewer.Slice(context.Background(), c.axis, c.pos)
		if err != nil {
			t.Fatalf("Slice %s failed: %v", c.axis, err)
		}
		d := s.Extent.Dims()
		for j := 0; j < d[1]; j++ {
			for i := 0; i < d[0]; i++ {
				x, y, z := c.at(i, j)
				if got, want := s.Value(i, j, 0, 0), vol.Value(x, y, z, 0); got != want {
					t.Errorf("Slice %s at (%d,%d): expected %v, got %v", c.axis, i, j, want, got)
				}
			}
		}
	}
}

// TestExtractOblique verifies that an axial plane matches the Z slice and
// that a tilted plane interpolates between slices
func TestExtractOblique(t *testing.T) {
	ctx := context.Background()
	vol := createTestVolume(t, 10, 10, 6, func(x, y, z int) float64 { return float64(10 * z) })
	viewer := createViewer(t, vol)

	plane := Plane{Center: r3.Vec{X: 4.5, Y: 4.5, Z: 2}, Normal: r3.Vec{Z: 2}, Width: 10, Height: 10, Spacing: 1}
	s, err := viewer.Oblique(ctx, plane)
	if err != nil {
		t.Fatalf("Oblique failed: %v", err)
	}
	for j := 0; j < 10; j++ {
		for i := 0; i < 10; i++ {
			if got := s.Value(i, j, 0, 0); got != 20 {
				t.Fatalf("Expected 20 at (%d,%d), got %v", i, j, got)
			}
		}
	}

	// plane containing the x axis, tilted about it
	tilted := Plane{Center: r3.Vec{X: 4.5, Y: 4.5, Z: 2.5}, Normal: r3.Vec{Y: -1, Z: 1}, Width: 5, Height: 3, Spacing: 1}
	s, err = viewer.Oblique(ctx, tilted)
	if err != nil {
		t.Fatalf("Oblique failed: %v", err)
	}
	if got := s.Value(2, 1, 0, 0); !scalar.EqualWithinAbs(got, 25, 1e-9) {
		t.Errorf("Expected 25 at the plane center, got %v", got)
	}

	if _, err := viewer.ExtractOblique(ctx, Plane{Normal: r3.Vec{}, Width: 1, Height: 1, Spacing: 1}); err == nil {
		t.Error("Expected error for a zero normal, got nil")
	}
	if _, err := viewer.ExtractOblique(ctx, Plane{Normal: r3.Vec{Z: 1}, Width: 0, Height: 1, Spacing: 1}); err == nil {
		t.Error("Expected error for a zero width, got nil")
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	ctx := context.Background()
	width, height, depth := 10, 10, 5
	vol := createTestVolume(t, width, height, depth, func(x, y, z int) float64 {
		return float64(x)/float64(width) + float64(y)/float64(height) + float64(z)/float64(depth)
	})
	viewer := createViewer(t, vol)

	region := volume.Extent{2, 5, 3, 5, 1, 2}
	sub, err := viewer.ExtractRegion(ctx, region)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}
	if sub.Extent != region {
		t.Errorf("Expected extent %v, got %v", region, sub.Extent)
	}
	for z := region[4]; z <= region[5]; z++ {
		for y := region[2]; y <= region[3]; y++ {
			for x := region[0]; x <= region[1]; x++ {
				if got, want := sub.Value(x, y, z, 0), vol.Value(x, y, z, 0); got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f", x, y, z, want, got)
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(ctx, volume.Extent{-1, 0, 0, 0, 0, 0}); err == nil {
		t.Error("Expected error for a region outside the volume, got nil")
	}
	if _, err := viewer.ExtractRegion(ctx, volume.Extent{0, -1, 0, 0, 0, 0}); err == nil {
		t.Error("Expected error for an empty region, got nil")
	}
}

// TestSaveSlice verifies that slices can be saved to disk in every format
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}
	tempDir := t.TempDir()

	vol := createTestVolume(t, 10, 10, 5, func(x, y, z int) float64 { return float64(x * y) })
	viewer := createViewer(t, vol)
	img, err := viewer.ExtractSlice(context.Background(), "z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	for _, name := range []string{"slice.jpg", "slice.png", "slice.tiff"} {
		filename := filepath.Join(tempDir, name)
		if err := viewer.SaveSlice(img, filename); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
			t.Errorf("Expected a non-empty file %s", filename)
		}
	}

	bad := filepath.Join(tempDir, "slice.gif")
	if err := viewer.SaveSlice(img, bad); err == nil {
		t.Error("Expected error for an unsupported format, got nil")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("Expected no file for an unsupported format")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}
	tempDir := t.TempDir()

	width, height, depth := 5, 5, 3
	vol := createTestVolume(t, width, height, depth, func(x, y, z int) float64 { return 0.5 })
	viewer := createViewer(t, vol)

	outputDir := filepath.Join(tempDir, "slices")
	if err := viewer.SaveSliceSequence(context.Background(), "z", outputDir, "png"); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence(context.Background(), "invalid", outputDir, "png"); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
