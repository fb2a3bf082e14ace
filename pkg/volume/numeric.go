package volume

import "math"

// Numeric converts computed float64 samples back into scalars of type T.
// Integer kinds round half up and clamp to their range; float kinds pass
// the value through unchanged.
type Numeric[T Scalar] struct {
	lo, hi float64
	float  bool
}

// NumericFor returns the conversion rules for T.
func NumericFor[T Scalar]() Numeric[T] {
	k := KindOf[T]()
	lo, hi := k.Range()
	return Numeric[T]{lo: lo, hi: hi, float: k.IsFloat()}
}

// Convert rounds and clamps x into T. NaN becomes 0 for integer kinds.
func (n Numeric[T]) Convert(x float64) T {
	if n.float {
		return T(x)
	}
	if math.IsNaN(x) {
		return 0
	}
	if x < n.lo {
		x = n.lo
	}
	if x > n.hi {
		x = n.hi
	}
	return T(math.Floor(x + 0.5))
}

// Pixel converts up to four color values into one voxel of the given
// component count. Components past the fourth are zero.
func (n Numeric[T]) Pixel(color []float64, components int) []T {
	px := make([]T, components)
	for i := range px {
		if i < len(color) && i < 4 {
			px[i] = n.Convert(color[i])
		}
	}
	return px
}
