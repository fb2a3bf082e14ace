// Package phantom generates synthetic volumes with known contents for
// exercising the resampler.
package phantom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/pkg/volume"
)

// Ramp returns a volume of the given kind and extent whose value at
// (x, y, z) is x + nx*y + nx*ny*z, counted from the extent minimum, with
// nx and ny the extent sizes. Every voxel holds a distinct value, so a
// 4x4x4 ramp holds x+4y+16z.
func Ramp(kind volume.ScalarKind, ext volume.Extent) (*volume.Volume, error) {
	v, err := volume.New(kind, ext, 1)
	if err != nil {
		return nil, err
	}
	d := ext.Dims()
	v.Fill(func(x, y, z, _ int) float64 {
		return float64((x - ext[0]) + d[0]*(y-ext[2]) + d[0]*d[1]*(z-ext[4]))
	})
	return v, nil
}

// Sphere describes a ball of constant intensity on a constant background.
type Sphere struct {
	// Center in voxel index coordinates
	Center r3.Vec

	// Radius in voxels
	Radius float64

	// Inside and Outside are the voxel values inside and outside the ball
	Inside, Outside float64

	// Soft is the width, in voxels, of a linear ramp across the surface.
	// Zero gives a hard edge.
	Soft float64
}

// Volume renders the sphere into a new single component volume.
func (s Sphere) Volume(kind volume.ScalarKind, ext volume.Extent) (*volume.Volume, error) {
	if s.Radius <= 0 || s.Soft < 0 {
		return nil, fmt.Errorf("phantom: invalid sphere radius %v soft %v", s.Radius, s.Soft)
	}
	v, err := volume.New(kind, ext, 1)
	if err != nil {
		return nil, err
	}
	v.Fill(func(x, y, z, _ int) float64 {
		p := r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
		return s.At(r3.Norm(r3.Sub(p, s.Center)))
	})
	return v, nil
}

// At returns the sphere intensity at distance r from its center.
func (s Sphere) At(r float64) float64 {
	if s.Soft == 0 {
		if r <= s.Radius {
			return s.Inside
		}
		return s.Outside
	}
	// fraction of the way from inside to outside
	t := (r - (s.Radius - s.Soft/2)) / s.Soft
	t = math.Max(0, math.Min(1, t))
	return s.Inside + t*(s.Outside-s.Inside)
}

// Centered returns a hard edged sphere in the middle of ext whose radius
// is fraction of the smallest half-size.
func Centered(ext volume.Extent, fraction, inside, outside float64) Sphere {
	d := ext.Dims()
	half := float64(min(d[0], d[1], d[2])) / 2
	return Sphere{
		Center: r3.Vec{
			X: float64(ext[0]+ext[1]) / 2,
			Y: float64(ext[2]+ext[3]) / 2,
			Z: float64(ext[4]+ext[5]) / 2,
		},
		Radius:  fraction * half,
		Inside:  inside,
		Outside: outside,
	}
}
