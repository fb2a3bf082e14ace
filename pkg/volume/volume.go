// Package volume provides the in-memory image volume model shared by the
// reslicing engine: extents, scalar kinds, typed flat buffers and strided views.
package volume

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferSize is returned when a buffer does not match its extent.
	ErrBufferSize = errors.New("volume: buffer length does not match extent")

	// ErrKind is returned when a buffer is read back with the wrong Go type.
	ErrKind = errors.New("volume: scalar kind mismatch")
)

// Volume represents a 3D image with one or more scalar components per voxel.
//
// Voxel (x, y, z, c) lives at buffer offset
// (x-xmin)*inc[0] + (y-ymin)*inc[1] + (z-zmin)*inc[2] + c
// where inc is returned by Increments.
type Volume struct {
	// Extent is the inclusive index range covered by the buffer
	Extent Extent

	// Spacing is the physical size of a voxel along each axis
	Spacing [3]float64

	// Origin is the world position of voxel index (0, 0, 0)
	Origin [3]float64

	// Components is the number of scalars stored per voxel
	Components int

	// Scalars holds a []int8, []uint8, []int16, []uint16, []int32,
	// []uint32, []float32 or []float64 of length NumVoxels*Components
	Scalars any
}

// New allocates a zero-filled volume with unit spacing and zero origin.
func New(kind ScalarKind, ext Extent, components int) (*Volume, error) {
	if components < 1 {
		return nil, fmt.Errorf("volume: invalid component count %d", components)
	}
	n := ext.NumVoxels() * components
	var scalars any
	switch kind {
	case Int8:
		scalars = make([]int8, n)
	case Uint8:
		scalars = make([]uint8, n)
	case Int16:
		scalars = make([]int16, n)
	case Uint16:
		scalars = make([]uint16, n)
	case Int32:
		scalars = make([]int32, n)
	case Uint32:
		scalars = make([]uint32, n)
	case Float32:
		scalars = make([]float32, n)
	case Float64:
		scalars = make([]float64, n)
	default:
		return nil, fmt.Errorf("volume: unsupported scalar kind %v", kind)
	}
	return &Volume{
		Extent:     ext,
		Spacing:    [3]float64{1, 1, 1},
		Components: components,
		Scalars:    scalars,
	}, nil
}

// FromSlice wraps an existing buffer without copying it.
func FromSlice[T Scalar](data []T, ext Extent, components int) (*Volume, error) {
	v := &Volume{
		Extent:     ext,
		Spacing:    [3]float64{1, 1, 1},
		Components: components,
		Scalars:    data,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Like allocates an empty volume with the same kind, components and
// geometry as v but covering ext.
func (v *Volume) Like(ext Extent) (*Volume, error) {
	out, err := New(v.Kind(), ext, v.Components)
	if err != nil {
		return nil, err
	}
	out.Spacing = v.Spacing
	out.Origin = v.Origin
	return out, nil
}

// Kind returns the scalar kind of the buffer.
func (v *Volume) Kind() ScalarKind {
	switch v.Scalars.(type) {
	case []int8:
		return Int8
	case []uint8:
		return Uint8
	case []int16:
		return Int16
	case []uint16:
		return Uint16
	case []int32:
		return Int32
	case []uint32:
		return Uint32
	case []float32:
		return Float32
	case []float64:
		return Float64
	}
	return UnknownKind
}

// Len returns the number of scalars in the buffer.
func (v *Volume) Len() int {
	switch s := v.Scalars.(type) {
	case []int8:
		return len(s)
	case []uint8:
		return len(s)
	case []int16:
		return len(s)
	case []uint16:
		return len(s)
	case []int32:
		return len(s)
	case []uint32:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	}
	return 0
}

// SizeInBytes returns the byte length of the buffer.
func (v *Volume) SizeInBytes() int {
	return v.Len() * v.Kind().Size()
}

// Validate checks the buffer against the extent and component count.
func (v *Volume) Validate() error {
	if v.Kind() == UnknownKind {
		return fmt.Errorf("volume: unsupported buffer type %T", v.Scalars)
	}
	if v.Components < 1 {
		return fmt.Errorf("volume: invalid component count %d", v.Components)
	}
	if want := v.Extent.NumVoxels() * v.Components; v.Len() != want {
		return fmt.Errorf("%w: have %d scalars, extent %v needs %d", ErrBufferSize, v.Len(), v.Extent, want)
	}
	for axis, s := range v.Spacing {
		if s == 0 {
			return fmt.Errorf("volume: zero spacing along axis %d", axis)
		}
	}
	return nil
}

// Increments returns the buffer strides for one step along x, y and z.
// They are derived from the current extent and component count on every
// call so they cannot go stale.
func (v *Volume) Increments() [3]int {
	d := v.Extent.Dims()
	c := v.Components
	return [3]int{c, c * max(d[0], 0), c * max(d[0], 0) * max(d[1], 0)}
}

// ContinuousIncrements returns the extra buffer offsets to add at the end
// of each row and each slice when walking sub row by row. The x entry is
// always 0.
func (v *Volume) ContinuousIncrements(sub Extent) [3]int {
	inc := v.Increments()
	d := sub.Dims()
	return [3]int{
		0,
		inc[1] - d[0]*inc[0],
		inc[2] - d[1]*inc[1],
	}
}

// Offset returns the buffer offset of the first component of voxel (x, y, z).
func (v *Volume) Offset(x, y, z int) int {
	inc := v.Increments()
	return (x-v.Extent[0])*inc[0] + (y-v.Extent[2])*inc[1] + (z-v.Extent[4])*inc[2]
}

// Value returns component c of voxel (x, y, z) as a float64.
func (v *Volume) Value(x, y, z, c int) float64 {
	i := v.Offset(x, y, z) + c
	switch s := v.Scalars.(type) {
	case []int8:
		return float64(s[i])
	case []uint8:
		return float64(s[i])
	case []int16:
		return float64(s[i])
	case []uint16:
		return float64(s[i])
	case []int32:
		return float64(s[i])
	case []uint32:
		return float64(s[i])
	case []float32:
		return float64(s[i])
	case []float64:
		return s[i]
	}
	panic(fmt.Sprintf("volume: unsupported buffer type %T", v.Scalars))
}

// SetValue stores val into component c of voxel (x, y, z), rounding and
// clamping it for integer kinds.
func (v *Volume) SetValue(x, y, z, c int, val float64) {
	i := v.Offset(x, y, z) + c
	switch s := v.Scalars.(type) {
	case []int8:
		s[i] = NumericFor[int8]().Convert(val)
	case []uint8:
		s[i] = NumericFor[uint8]().Convert(val)
	case []int16:
		s[i] = NumericFor[int16]().Convert(val)
	case []uint16:
		s[i] = NumericFor[uint16]().Convert(val)
	case []int32:
		s[i] = NumericFor[int32]().Convert(val)
	case []uint32:
		s[i] = NumericFor[uint32]().Convert(val)
	case []float32:
		s[i] = float32(val)
	case []float64:
		s[i] = val
	default:
		panic(fmt.Sprintf("volume: unsupported buffer type %T", v.Scalars))
	}
}

// Fill sets every voxel of the volume from fn.
func (v *Volume) Fill(fn func(x, y, z, c int) float64) {
	e := v.Extent
	for z := e[4]; z <= e[5]; z++ {
		for y := e[2]; y <= e[3]; y++ {
			for x := e[0]; x <= e[1]; x++ {
				for c := 0; c < v.Components; c++ {
					v.SetValue(x, y, z, c, fn(x, y, z, c))
				}
			}
		}
	}
}

// Float64s returns a float64 copy of the whole buffer.
func (v *Volume) Float64s() []float64 {
	out := make([]float64, v.Len())
	switch s := v.Scalars.(type) {
	case []int8:
		copyFloat(out, s)
	case []uint8:
		copyFloat(out, s)
	case []int16:
		copyFloat(out, s)
	case []uint16:
		copyFloat(out, s)
	case []int32:
		copyFloat(out, s)
	case []uint32:
		copyFloat(out, s)
	case []float32:
		copyFloat(out, s)
	case []float64:
		copy(out, s)
	}
	return out
}

func copyFloat[T Scalar](dst []float64, src []T) {
	for i, s := range src {
		dst[i] = float64(s)
	}
}

// Scalars returns the typed buffer of v.
func Scalars[T Scalar](v *Volume) ([]T, error) {
	s, ok := v.Scalars.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: buffer is %v, want %v", ErrKind, v.Kind(), KindOf[T]())
	}
	return s, nil
}
