package volume

import "fmt"

// Extent holds inclusive voxel index bounds as {xmin, xmax, ymin, ymax, zmin, zmax}.
type Extent [6]int

// Dims returns the number of voxels along each axis. Axes with max < min
// report a non-positive size.
func (e Extent) Dims() [3]int {
	return [3]int{e[1] - e[0] + 1, e[3] - e[2] + 1, e[5] - e[4] + 1}
}

// Empty reports whether the extent holds no voxels.
func (e Extent) Empty() bool {
	return e[1] < e[0] || e[3] < e[2] || e[5] < e[4]
}

// NumVoxels returns the voxel count of the extent, 0 when it is empty.
func (e Extent) NumVoxels() int {
	if e.Empty() {
		return 0
	}
	d := e.Dims()
	return d[0] * d[1] * d[2]
}

// Min returns the lower corner of the extent.
func (e Extent) Min() [3]int {
	return [3]int{e[0], e[2], e[4]}
}

// Contains reports whether o lies completely inside e. An empty o is
// contained in any extent.
func (e Extent) Contains(o Extent) bool {
	if o.Empty() {
		return true
	}
	for axis := 0; axis < 3; axis++ {
		if o[2*axis] < e[2*axis] || o[2*axis+1] > e[2*axis+1] {
			return false
		}
	}
	return true
}

// Intersect returns the overlap of two extents and whether it is non-empty.
func (e Extent) Intersect(o Extent) (Extent, bool) {
	var r Extent
	for axis := 0; axis < 3; axis++ {
		r[2*axis] = max(e[2*axis], o[2*axis])
		r[2*axis+1] = min(e[2*axis+1], o[2*axis+1])
	}
	return r, !r.Empty()
}

// Pieces splits the extent into at most n disjoint, non-empty sub-extents
// that together cover it. The split runs along z, or along y when the extent
// has fewer slices than rows. Rows are never split, so every piece can be
// walked scanline by scanline.
func (e Extent) Pieces(n int) []Extent {
	if e.Empty() {
		return nil
	}
	if n < 1 {
		n = 1
	}
	d := e.Dims()
	axis := 2
	if d[1] > d[2] {
		axis = 1
	}
	size := d[axis]
	n = min(n, size)

	pieces := make([]Extent, 0, n)
	chunk := size / n
	extra := size % n
	lo := e[2*axis]
	for i := 0; i < n; i++ {
		count := chunk
		if i < extra {
			count++
		}
		p := e
		p[2*axis] = lo
		p[2*axis+1] = lo + count - 1
		pieces = append(pieces, p)
		lo += count
	}
	return pieces
}

func (e Extent) String() string {
	return fmt.Sprintf("[%d..%d, %d..%d, %d..%d]", e[0], e[1], e[2], e[3], e[4], e[5])
}
