// Package transform maps output voxel indices to input index coordinates
// through an optional homogeneous matrix and an optional nonlinear point
// transform.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/pkg/volume"
)

// ErrDegenerateTransform is returned when the homogeneous coordinate of a
// transformed point is zero.
var ErrDegenerateTransform = errors.New("transform: degenerate homogeneous coordinate")

// Transformer is a nonlinear point transform in world coordinates.
// Implementations must be safe for concurrent use.
type Transformer interface {
	Transform(p r3.Vec) r3.Vec
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(p r3.Vec) r3.Vec

func (f TransformerFunc) Transform(p r3.Vec) r3.Vec { return f(p) }

// Chain applies transformers in order.
type Chain []Transformer

func (c Chain) Transform(p r3.Vec) r3.Vec {
	for _, t := range c {
		p = t.Transform(p)
	}
	return p
}

// Mapper converts output voxel indices into input index coordinates.
// It only reads its own fields after construction.
type Mapper struct {
	outOrigin, outSpacing r3.Vec
	inOrigin, inInvScale  r3.Vec

	hasMatrix bool
	m         [4][4]float64
	nonlinear Transformer
}

// NewMapper prepares a mapper from the geometry of in and out. m may be nil
// or a 4x4 matrix; nonlinear may be nil.
func NewMapper(in, out *volume.Volume, m mat.Matrix, nonlinear Transformer) (*Mapper, error) {
	for axis, s := range in.Spacing {
		if s == 0 {
			return nil, fmt.Errorf("transform: zero input spacing along axis %d", axis)
		}
	}
	mp := &Mapper{
		outOrigin:  vec(out.Origin),
		outSpacing: vec(out.Spacing),
		inOrigin:   vec(in.Origin),
		inInvScale: r3.Vec{X: 1 / in.Spacing[0], Y: 1 / in.Spacing[1], Z: 1 / in.Spacing[2]},
		nonlinear:  nonlinear,
	}
	if m != nil {
		if r, c := m.Dims(); r != 4 || c != 4 {
			return nil, fmt.Errorf("transform: matrix is %dx%d, want 4x4", r, c)
		}
		mp.hasMatrix = true
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				mp.m[i][j] = m.At(i, j)
			}
		}
	}
	return mp, nil
}

// Linear reports whether the mapping has no nonlinear stage.
func (mp *Mapper) Linear() bool { return mp.nonlinear == nil }

// World returns the world position of output voxel (x, y, z).
func (mp *Mapper) World(x, y, z int) r3.Vec {
	return r3.Vec{
		X: float64(x)*mp.outSpacing.X + mp.outOrigin.X,
		Y: float64(y)*mp.outSpacing.Y + mp.outOrigin.Y,
		Z: float64(z)*mp.outSpacing.Z + mp.outOrigin.Z,
	}
}

// Map returns the input index coordinate sampled for output voxel (x, y, z).
func (mp *Mapper) Map(x, y, z int) (r3.Vec, error) {
	p := mp.World(x, y, z)
	if mp.hasMatrix {
		var err error
		if p, err = mp.project(p); err != nil {
			return r3.Vec{}, err
		}
	}
	if mp.nonlinear != nil {
		p = mp.nonlinear.Transform(p)
	}
	return r3.Vec{
		X: (p.X - mp.inOrigin.X) * mp.inInvScale.X,
		Y: (p.Y - mp.inOrigin.Y) * mp.inInvScale.Y,
		Z: (p.Z - mp.inOrigin.Z) * mp.inInvScale.Z,
	}, nil
}

func (mp *Mapper) project(p r3.Vec) (r3.Vec, error) {
	m := &mp.m
	w := m[3][0]*p.X + m[3][1]*p.Y + m[3][2]*p.Z + m[3][3]
	if w == 0 {
		return r3.Vec{}, ErrDegenerateTransform
	}
	f := 1 / w
	return r3.Vec{
		X: (m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3]) * f,
		Y: (m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3]) * f,
		Z: (m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3]) * f,
	}, nil
}

// Reaches reports whether any voxel of the output extent out can map to
// within margin voxels of the input extent in. It is exact only for a
// linear mapping without perspective; nonlinear mappings, perspective
// matrices and degenerate corners conservatively report true.
func (mp *Mapper) Reaches(out, in volume.Extent, margin float64) bool {
	if out.Empty() || in.Empty() {
		return false
	}
	if mp.nonlinear != nil {
		return true
	}
	if mp.hasMatrix && (mp.m[3][0] != 0 || mp.m[3][1] != 0 || mp.m[3][2] != 0) {
		return true
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for corner := 0; corner < 8; corner++ {
		x := out[corner&1]
		y := out[2+(corner>>1)&1]
		z := out[4+(corner>>2)&1]
		p, err := mp.Map(x, y, z)
		if err != nil {
			return true
		}
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return hi.X >= float64(in[0])-margin && lo.X <= float64(in[1])+margin &&
		hi.Y >= float64(in[2])-margin && lo.Y <= float64(in[3])+margin &&
		hi.Z >= float64(in[4])-margin && lo.Z <= float64(in[5])+margin
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
