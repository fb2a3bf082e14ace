package interpolation

import "gonum.org/v1/gonum/spatial/r3"

func (s *Sampler[T]) nearest(out []T, p r3.Vec) bool {
	v := &s.view
	n := v.Dims
	i := round(p.X) - v.Min[0]
	j := round(p.Y) - v.Min[1]
	k := round(p.Z) - v.Min[2]

	if i < 0 || i >= n[0] || j < 0 || j >= n[1] || k < 0 || k >= n[2] {
		if !s.boundary.folds() {
			return s.Miss(out)
		}
		i = s.boundary.fold(i, n[0])
		j = s.boundary.fold(j, n[1])
		k = s.boundary.fold(k, n[2])
	}

	copy(out, v.Voxel(i, j, k))
	return true
}
