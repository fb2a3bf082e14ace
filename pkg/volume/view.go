package volume

// View is a read-only strided window over a typed volume buffer. Indices
// passed to Offset are relative to the extent minimum.
type View[T Scalar] struct {
	Data       []T
	Dims       [3]int
	Inc        [3]int
	Min        [3]int
	Components int
}

// NewView builds a View over v's buffer.
func NewView[T Scalar](v *Volume) (View[T], error) {
	data, err := Scalars[T](v)
	if err != nil {
		return View[T]{}, err
	}
	if err := v.Validate(); err != nil {
		return View[T]{}, err
	}
	return View[T]{
		Data:       data,
		Dims:       v.Extent.Dims(),
		Inc:        v.Increments(),
		Min:        v.Extent.Min(),
		Components: v.Components,
	}, nil
}

// Offset returns the buffer offset of relative voxel (i, j, k).
func (w View[T]) Offset(i, j, k int) int {
	return i*w.Inc[0] + j*w.Inc[1] + k*w.Inc[2]
}

// Voxel returns the components of relative voxel (i, j, k).
func (w View[T]) Voxel(i, j, k int) []T {
	off := w.Offset(i, j, k)
	return w.Data[off : off+w.Components]
}
