package interpolation

import "gonum.org/v1/gonum/spatial/r3"

// cubicCoeffs fills w with the Catmull-Rom weights for fraction f using
// taps lo..hi of the four taps at offsets -1, 0, 1, 2. Fewer taps near an
// edge degrade the kernel to quadratic, linear or a plain copy; weights of
// unused taps are zero.
func cubicCoeffs(w *[4]float64, lo, hi int, f float64) {
	switch order := hi - lo; {
	case order == 0:
		*w = [4]float64{0, 1, 0, 0}
	case order == 3:
		fm1 := f - 1
		fd2 := f * 0.5
		ft3 := f * 3
		w[0] = -fd2 * fm1 * fm1
		w[1] = ((ft3-2)*fd2 - 1) * fm1
		w[2] = -((ft3-4)*f - 1) * fd2
		w[3] = f * fd2 * fm1
	case order == 1:
		*w = [4]float64{0, 1 - f, f, 0}
	case lo == 0:
		// left taps -1, 0, 1
		fp1 := f + 1
		fm1 := f - 1
		fd2 := f * 0.5
		*w = [4]float64{fd2 * fm1, -fp1 * fm1, fp1 * fd2, 0}
	default:
		// right taps 0, 1, 2
		fm1 := f - 1
		fm2 := fm1 - 1
		fm1d2 := fm1 * 0.5
		*w = [4]float64{0, fm1d2 * fm2, -f * fm2, f * fm1d2}
	}
}

// borderInside is the half-voxel rule of BorderIndices without the snap.
func borderInside(i0, i1, n int, f float64) bool {
	_, _, ok := BorderIndices(i0, i1, n, f)
	return ok
}

func clampIndex(i, n int) int {
	return max(0, min(i, n-1))
}

func (s *Sampler[T]) cubic(out []T, p r3.Vec) bool {
	v := &s.view
	n := v.Dims
	inc := v.Inc

	var idx [3]int
	var frac [3]float64
	idx[0], frac[0] = floorFrac(p.X)
	idx[1], frac[1] = floorFrac(p.Y)
	idx[2], frac[2] = floorFrac(p.Z)

	outside := false
	for a := 0; a < 3; a++ {
		idx[a] -= v.Min[a]
		if idx[a] < 0 || idx[a]+step(frac[a]) >= n[a] {
			outside = true
		}
	}
	if outside {
		switch s.boundary {
		case Border:
			for a := 0; a < 3; a++ {
				if !borderInside(idx[a], idx[a]+step(frac[a]), n[a], frac[a]) {
					return s.Miss(out)
				}
			}
		case Wrap, Mirror:
		default:
			return s.Miss(out)
		}
	}

	// per axis: buffer offsets of the four taps, their weights and the
	// range of taps that carry weight
	var taps [3][4]int
	var w [3][4]float64
	var lo, hi [3]int
	for a := 0; a < 3; a++ {
		i0, nz := idx[a], step(frac[a])
		switch {
		case s.boundary.folds():
			if a == 0 {
				lo[a], hi[a] = 0, 3
			} else {
				lo[a], hi[a] = 1-nz, 1+2*nz
			}
			for t := 0; t < 4; t++ {
				taps[a][t] = s.boundary.fold(i0+t-1, n[a]) * inc[a]
			}
		case s.boundary == Border:
			lo[a], hi[a] = 1-nz, 1+2*nz
			for t := 0; t < 4; t++ {
				taps[a][t] = clampIndex(i0+t-1, n[a]) * inc[a]
			}
		default:
			// inside the extent: use as many taps as the edges allow
			left, right := 0, 0
			if i0 > 0 {
				left = 1
			}
			if i0+2 < n[a] {
				right = 1
			}
			lo[a], hi[a] = 1-left*nz, 1+(1+right)*nz
			for t := 0; t < 4; t++ {
				taps[a][t] = (i0 + t - 1) * inc[a]
			}
		}
		cubicCoeffs(&w[a], lo[a], hi[a], frac[a])
	}

	d := v.Data
	for c := 0; c < v.Components; c++ {
		val := 0.0
		for k := lo[2]; k <= hi[2]; k++ {
			for j := lo[1]; j <= hi[1]; j++ {
				base := taps[2][k] + taps[1][j] + c
				row := 0.0
				for i := lo[0]; i <= hi[0]; i++ {
					row += w[0][i] * float64(d[base+taps[0][i]])
				}
				val += w[2][k] * w[1][j] * row
			}
		}
		out[c] = s.num.Convert(val)
	}
	return true
}
