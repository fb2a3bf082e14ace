package interpolation

import (
	"fmt"
	"strings"
)

// BoundaryMode decides what a sampler does with coordinates that fall
// outside the input extent.
type BoundaryMode int

const (
	// Background writes the background pixel.
	Background BoundaryMode = iota
	// Wrap repeats the volume periodically.
	Wrap
	// Mirror reflects the volume at its edges.
	Mirror
	// Border accepts points within half a voxel of the edge and clamps
	// them onto the edge voxel, and writes background beyond that.
	Border
	// Null leaves the output voxel untouched.
	Null
)

var boundaryNames = []string{"background", "wrap", "mirror", "border", "null"}

func (b BoundaryMode) String() string {
	if b >= 0 && int(b) < len(boundaryNames) {
		return boundaryNames[b]
	}
	return fmt.Sprintf("BoundaryMode(%d)", int(b))
}

// Valid reports whether b names a known policy.
func (b BoundaryMode) Valid() bool {
	return b >= Background && b <= Null
}

// ParseBoundaryMode converts a policy name into a BoundaryMode.
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range boundaryNames {
		if n == name {
			return BoundaryMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: boundary %q", ErrUnsupported, s)
}

func (b BoundaryMode) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: boundary %d", ErrUnsupported, int(b))
	}
	return []byte(b.String()), nil
}

func (b *BoundaryMode) UnmarshalText(text []byte) error {
	parsed, err := ParseBoundaryMode(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// folds reports whether the policy maps every index back into range.
func (b BoundaryMode) folds() bool {
	return b == Wrap || b == Mirror
}

// fold maps i into [0, n) for Wrap and Mirror and returns it unchanged
// for every other policy.
func (b BoundaryMode) fold(i, n int) int {
	switch b {
	case Wrap:
		return WrapIndex(i, n)
	case Mirror:
		return MirrorIndex(i, n)
	}
	return i
}

// WrapIndex limits i to [0, n) periodically, also for negative i.
func WrapIndex(i, n int) int {
	if i %= n; i < 0 {
		i += n
	}
	return i
}

// MirrorIndex reflects i into [0, n). The pattern repeats every 2n
// indices, with -1 mapping to 0 and n mapping to n-1.
func MirrorIndex(i, n int) int {
	if i < 0 {
		i = -i - 1
	}
	block := i / n
	i %= n
	if block&1 != 0 {
		i = n - i - 1
	}
	return i
}

// BorderIndices applies the half-voxel border rule to the neighbour pair
// (i0, i1) with fraction f along an axis of n voxels. A pair within range
// is returned unchanged; a pair within half a voxel outside either edge is
// snapped onto that edge voxel; anything else is reported as outside.
func BorderIndices(i0, i1, n int, f float64) (int, int, bool) {
	switch {
	case i0 >= 0 && i1 < n:
		return i0, i1, true
	case i0 == -1 && f >= 0.5:
		return 0, 0, true
	case i0 == n-1 && f < 0.5:
		return i0, i0, true
	}
	return i0, i1, false
}
