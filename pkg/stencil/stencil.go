// Package stencil describes per-scanline clipping masks for the reslicing
// engine and walks them as alternating covered and uncovered segments.
package stencil

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/pkg/volume"
)

// Range is an inclusive span of x indices on one scanline.
type Range struct {
	Start, End int
}

// Len returns the number of voxels in the range.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Stencil provides the covered x ranges of each output scanline.
//
// NextRange returns the next covered range of row (y, z), clipped to
// [lo, hi]. iter is owned by the caller: it starts at 0 for each row and is
// advanced by the stencil. Ranges come back in ascending order without
// overlap; ok is false once the row is exhausted.
type Stencil interface {
	NextRange(y, z, lo, hi int, iter *int) (r Range, ok bool)
}

// Data is a stencil stored as sorted, merged ranges per row. Rows outside
// its extent are not covered at all.
type Data struct {
	extent volume.Extent
	rows   [][]Range
}

// New returns an empty stencil over the y and z bounds of ext. The x
// bounds of ext are informational only.
func New(ext volume.Extent) *Data {
	d := ext.Dims()
	n := 0
	if !ext.Empty() {
		n = d[1] * d[2]
	}
	return &Data{extent: ext, rows: make([][]Range, n)}
}

// Extent returns the extent the stencil was created with.
func (d *Data) Extent() volume.Extent { return d.extent }

func (d *Data) row(y, z int) int {
	e := d.extent
	if y < e[2] || y > e[3] || z < e[4] || z > e[5] {
		return -1
	}
	return (z-e[4])*(e[3]-e[2]+1) + (y - e[2])
}

// Insert marks r as covered on row (y, z), merging it with any touching
// or overlapping ranges already there.
func (d *Data) Insert(y, z int, r Range) error {
	if r.End < r.Start {
		return nil
	}
	i := d.row(y, z)
	if i < 0 {
		return fmt.Errorf("stencil: row (%d, %d) outside extent %v", y, z, d.extent)
	}
	ranges := append(d.rows[i], r)
	sort.Slice(ranges, func(a, b int) bool { return ranges[a].Start < ranges[b].Start })

	merged := ranges[:1]
	for _, next := range ranges[1:] {
		last := &merged[len(merged)-1]
		if next.Start <= last.End+1 {
			last.End = max(last.End, next.End)
			continue
		}
		merged = append(merged, next)
	}
	d.rows[i] = merged
	return nil
}

// Ranges returns the covered ranges of row (y, z).
func (d *Data) Ranges(y, z int) []Range {
	i := d.row(y, z)
	if i < 0 {
		return nil
	}
	return d.rows[i]
}

// NextRange implements Stencil.
func (d *Data) NextRange(y, z, lo, hi int, iter *int) (Range, bool) {
	ranges := d.Ranges(y, z)
	for *iter < len(ranges) {
		r := ranges[*iter]
		*iter++
		r.Start = max(r.Start, lo)
		r.End = min(r.End, hi)
		if r.Start <= r.End {
			return r, true
		}
	}
	return Range{}, false
}

// FromMask builds a stencil covering every voxel of mask whose first
// component is greater than threshold.
func FromMask(mask *volume.Volume, threshold float64) (*Data, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	e := mask.Extent
	d := New(e)
	for z := e[4]; z <= e[5]; z++ {
		for y := e[2]; y <= e[3]; y++ {
			start := -1
			for x := e[0]; x <= e[1]+1; x++ {
				in := x <= e[1] && mask.Value(x, y, z, 0) > threshold
				switch {
				case in && start < 0:
					start = x
				case !in && start >= 0:
					d.rows[d.row(y, z)] = append(d.rows[d.row(y, z)], Range{start, x - 1})
					start = -1
				}
			}
		}
	}
	return d, nil
}

// Box builds a stencil over ext that covers the index box b.
func Box(ext, b volume.Extent) *Data {
	d := New(ext)
	clip, ok := ext.Intersect(b)
	if !ok {
		return d
	}
	for z := clip[4]; z <= clip[5]; z++ {
		for y := clip[2]; y <= clip[3]; y++ {
			d.rows[d.row(y, z)] = []Range{{clip[0], clip[1]}}
		}
	}
	return d
}

// Ellipsoid builds a stencil over ext covering the voxels whose index
// lies inside the ellipsoid with the given center and radii.
func Ellipsoid(ext volume.Extent, center, radii r3.Vec) *Data {
	d := New(ext)
	if radii.X <= 0 || radii.Y <= 0 || radii.Z <= 0 {
		return d
	}
	for z := ext[4]; z <= ext[5]; z++ {
		dz := (float64(z) - center.Z) / radii.Z
		for y := ext[2]; y <= ext[3]; y++ {
			dy := (float64(y) - center.Y) / radii.Y
			rem := 1 - dy*dy - dz*dz
			if rem < 0 {
				continue
			}
			half := radii.X * math.Sqrt(rem)
			start := max(ext[0], int(math.Ceil(center.X-half)))
			end := min(ext[1], int(math.Floor(center.X+half)))
			if start <= end {
				d.rows[d.row(y, z)] = []Range{{start, end}}
			}
		}
	}
	return d
}
