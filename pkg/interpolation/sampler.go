// Package interpolation samples image volumes at fractional input index
// coordinates with nearest, trilinear or tricubic kernels and a shared
// out-of-bounds policy.
package interpolation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/pkg/volume"
)

// ErrUnsupported is returned for interpolation or boundary modes that
// have no implementation.
var ErrUnsupported = errors.New("interpolation: unsupported configuration")

// coordLimit keeps far-away coordinates inside the int range before they
// are floored. Anything this far out is outside every extent anyway.
const coordLimit = 1 << 30

// Sampler interpolates one input volume. A Sampler only reads its view
// and background, so one instance may be shared by concurrent callers.
type Sampler[T volume.Scalar] struct {
	view       volume.View[T]
	mode       Mode
	boundary   BoundaryMode
	background []T
	num        volume.Numeric[T]
	sample     func(out []T, p r3.Vec) bool
}

// NewSampler returns a sampler for view. background must hold one value
// per component and is written for out-of-bounds points.
func NewSampler[T volume.Scalar](view volume.View[T], mode Mode, boundary BoundaryMode, background []T) (*Sampler[T], error) {
	if !boundary.Valid() {
		return nil, fmt.Errorf("%w: boundary %v", ErrUnsupported, boundary)
	}
	if len(background) != view.Components {
		return nil, fmt.Errorf("interpolation: background has %d components, volume has %d", len(background), view.Components)
	}
	s := &Sampler[T]{
		view:       view,
		mode:       mode,
		boundary:   boundary,
		background: background,
		num:        volume.NumericFor[T](),
	}
	switch mode {
	case Nearest:
		s.sample = s.nearest
	case Linear:
		s.sample = s.linear
	case Cubic:
		s.sample = s.cubic
	default:
		return nil, fmt.Errorf("%w: interpolation %v", ErrUnsupported, mode)
	}
	return s, nil
}

// Sample interpolates the input at index coordinate p and writes one voxel
// into out. It returns false when p fell outside the input, in which case
// out holds the background, or is left untouched in Null mode.
func (s *Sampler[T]) Sample(out []T, p r3.Vec) bool {
	return s.sample(out, p)
}

// Miss handles a point that cannot be sampled at all, the same way an
// out-of-bounds point is handled.
func (s *Sampler[T]) Miss(out []T) bool {
	if s.boundary != Null {
		copy(out, s.background)
	}
	return false
}

// Mode returns the interpolation kernel of the sampler.
func (s *Sampler[T]) Mode() Mode { return s.mode }

// Boundary returns the out-of-bounds policy of the sampler.
func (s *Sampler[T]) Boundary() BoundaryMode { return s.boundary }

func limit(x float64) float64 {
	if x != x {
		return -coordLimit
	}
	return math.Max(-coordLimit, math.Min(coordLimit, x))
}

// floorFrac splits x into floor(x) and the fraction x - floor(x).
func floorFrac(x float64) (int, float64) {
	x = limit(x)
	f := math.Floor(x)
	return int(f), x - f
}

// round rounds half up, the same way on every platform.
func round(x float64) int {
	return int(math.Floor(limit(x) + 0.5))
}

// step is the offset of the second neighbour: 0 on an exact voxel, else 1.
func step(f float64) int {
	if f != 0 {
		return 1
	}
	return 0
}
