// Package visualization extracts 2D slices from volumes through the
// reslicing engine and saves them as images.
package visualization

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/pkg/interpolation"
	"volreslice/pkg/reslice"
	"volreslice/pkg/transform"
	"volreslice/pkg/volume"
)

// Viewer cuts planes out of a volume. Axis-aligned slices land on voxel
// centers and are sampled nearest-neighbour; oblique planes are
// interpolated with the configured kernel.
type Viewer struct {
	// vol is the volume being viewed
	vol *volume.Volume

	// opts carries interpolation, boundary and background for resampling
	opts reslice.Options

	// lo and hi map to black and white in extracted images
	lo, hi float64

	// Quality is used when saving JPEG images
	Quality int
}

// Plane describes an oblique cut through a volume in world coordinates.
type Plane struct {
	// Center is the world position of the middle of the image
	Center r3.Vec

	// Normal is the plane normal; it does not need to be unit length
	Normal r3.Vec

	// Width and Height are the image size in pixels
	Width, Height int

	// Spacing is the world distance between neighbouring pixels
	Spacing float64
}

// NewViewer creates a viewer for vol. The display window defaults to the
// full intensity range of the first component.
func NewViewer(vol *volume.Volume, opts reslice.Options) (*Viewer, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if vol.Extent.Empty() {
		return nil, fmt.Errorf("cannot view an empty volume")
	}
	v := &Viewer{vol: vol, opts: opts, Quality: 90}

	data := vol.Float64s()
	first := make([]float64, 0, len(data)/vol.Components)
	for i := 0; i < len(data); i += vol.Components {
		first = append(first, data[i])
	}
	v.lo, v.hi = floats.Min(first), floats.Max(first)
	return v, nil
}

// SetWindow sets the intensities shown as black and white.
func (v *Viewer) SetWindow(lo, hi float64) {
	v.lo, v.hi = lo, hi
}

// Window returns the intensities shown as black and white.
func (v *Viewer) Window() (lo, hi float64) {
	return v.lo, v.hi
}

// Slice resamples the plane at index position along axis into a single
// slice volume. The x axis gives a (z, y) image, y gives (x, z) and z gives
// (x, y).
func (v *Viewer) Slice(ctx context.Context, axis string, position int) (*volume.Volume, error) {
	e := v.vol.Extent
	s := v.vol.Spacing
	var a int
	var u, w r3.Vec
	var su, sw float64
	switch axis {
	case "x", "X":
		a, u, w, su, sw = 0, r3.Vec{Z: 1}, r3.Vec{Y: 1}, s[2], s[1]
	case "y", "Y":
		a, u, w, su, sw = 1, r3.Vec{X: 1}, r3.Vec{Z: 1}, s[0], s[2]
	case "z", "Z":
		a, u, w, su, sw = 2, r3.Vec{X: 1}, r3.Vec{Y: 1}, s[0], s[1]
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	if position < e[2*a] || position > e[2*a+1] {
		return nil, fmt.Errorf("position %d outside %s range [%d, %d]", position, axis, e[2*a], e[2*a+1])
	}

	corner := [3]int{e[0], e[2], e[4]}
	corner[a] = position
	origin := r3.Vec{
		X: v.vol.Origin[0] + float64(corner[0])*s[0],
		Y: v.vol.Origin[1] + float64(corner[1])*s[1],
		Z: v.vol.Origin[2] + float64(corner[2])*s[2],
	}
	// sizes along u and w in voxels
	d := e.Dims()
	width, height := d[axisOf(u)], d[axisOf(w)]
	opts := v.opts
	opts.Interpolation = interpolation.Nearest
	return resample(ctx, v.vol, opts, origin, u, w, r3.Cross(u, w), width, height, su, sw)
}

// Oblique resamples an arbitrary plane into a single slice volume.
func (v *Viewer) Oblique(ctx context.Context, p Plane) (*volume.Volume, error) {
	if p.Width < 1 || p.Height < 1 || p.Spacing <= 0 {
		return nil, fmt.Errorf("invalid plane size %dx%d at spacing %v", p.Width, p.Height, p.Spacing)
	}
	if r3.Norm(p.Normal) == 0 {
		return nil, fmt.Errorf("plane normal must not be zero")
	}
	n := r3.Unit(p.Normal)
	ref := r3.Vec{Z: 1}
	if math.Abs(n.Z) >= 0.9 {
		ref = r3.Vec{Y: 1}
	}
	u := r3.Unit(r3.Cross(ref, n))
	w := r3.Cross(n, u)

	origin := r3.Sub(p.Center, r3.Add(
		r3.Scale(float64(p.Width-1)/2*p.Spacing, u),
		r3.Scale(float64(p.Height-1)/2*p.Spacing, w),
	))
	return resample(ctx, v.vol, v.opts, origin, u, w, n, p.Width, p.Height, p.Spacing, p.Spacing)
}

// resample cuts the plane spanned by u and w at origin out of vol into a
// width by height slice volume.
func resample(ctx context.Context, vol *volume.Volume, opts reslice.Options, origin, u, w, n r3.Vec, width, height int, su, sw float64) (*volume.Volume, error) {
	out, err := volume.New(vol.Kind(), volume.Extent{0, width - 1, 0, height - 1, 0, 0}, vol.Components)
	if err != nil {
		return nil, err
	}
	out.Spacing = [3]float64{su, sw, 1}

	opts.Matrix = transform.Axes(origin, u, w, n)
	opts.Stencil = nil
	opts.Progress = nil
	r, err := reslice.New(opts)
	if err != nil {
		return nil, err
	}
	if err := r.Run(ctx, vol, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractRegion copies the sub-extent region out of the volume. The
// result keeps the geometry of the source, so its voxel indices match.
func (v *Viewer) ExtractRegion(ctx context.Context, region volume.Extent) (*volume.Volume, error) {
	if region.Empty() {
		return nil, fmt.Errorf("region %v is empty", region)
	}
	if !v.vol.Extent.Contains(region) {
		return nil, fmt.Errorf("region %v extends beyond volume %v", region, v.vol.Extent)
	}
	out, err := v.vol.Like(region)
	if err != nil {
		return nil, err
	}
	opts := v.opts
	opts.Interpolation = interpolation.Nearest
	opts.Matrix = nil
	opts.Transform = nil
	opts.Stencil = nil
	opts.Progress = nil
	r, err := reslice.New(opts)
	if err != nil {
		return nil, err
	}
	if err := r.Run(ctx, v.vol, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
// and windows it into a 16-bit grey image.
func (v *Viewer) ExtractSlice(ctx context.Context, axis string, position int) (image.Image, error) {
	s, err := v.Slice(ctx, axis, position)
	if err != nil {
		return nil, err
	}
	return v.Image(s), nil
}

// ExtractOblique extracts an oblique plane as a 16-bit grey image.
func (v *Viewer) ExtractOblique(ctx context.Context, p Plane) (image.Image, error) {
	s, err := v.Oblique(ctx, p)
	if err != nil {
		return nil, err
	}
	return v.Image(s), nil
}

// Image windows the first component of a slice volume into a 16-bit grey
// image.
func (v *Viewer) Image(s *volume.Volume) *image.Gray16 {
	d := s.Extent.Dims()
	img := image.NewGray16(image.Rect(0, 0, d[0], d[1]))
	span := v.hi - v.lo
	for j := 0; j < d[1]; j++ {
		for i := 0; i < d[0]; i++ {
			t := 0.0
			if span > 0 {
				t = (s.Value(s.Extent[0]+i, s.Extent[2]+j, s.Extent[4], 0) - v.lo) / span
			}
			t = math.Max(0, math.Min(1, t))
			img.SetGray16(i, j, color.Gray16{Y: uint16(math.Round(t * 65535))})
		}
	}
	return img
}

// SaveSlice saves an extracted slice in the format given by the file
// extension: .jpg, .jpeg, .png, .tif or .tiff.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	var encode func(w io.Writer, img image.Image) error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg":
		encode = func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: v.Quality})
		}
	case ".png":
		encode = png.Encode
	case ".tif", ".tiff":
		encode = func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := encode(file, img); err != nil {
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along the specified axis.
// format is the file extension without the dot.
func (v *Viewer) SaveSliceSequence(ctx context.Context, axis, outputDir, format string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	e := v.vol.Extent
	var lo, hi int
	switch axis {
	case "x", "X":
		lo, hi = e[0], e[1]
	case "y", "Y":
		lo, hi = e[2], e[3]
	case "z", "Z":
		lo, hi = e[4], e[5]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := lo; pos <= hi; pos++ {
		img, err := v.ExtractSlice(ctx, axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", strings.ToLower(axis), pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// axisOf returns the index of the unit axis vector a.
func axisOf(a r3.Vec) int {
	switch {
	case a.X != 0:
		return 0
	case a.Y != 0:
		return 1
	}
	return 2
}
