package interpolation

import "gonum.org/v1/gonum/spatial/r3"

func (s *Sampler[T]) linear(out []T, p r3.Vec) bool {
	v := &s.view
	n := v.Dims

	x0, fx := floorFrac(p.X)
	y0, fy := floorFrac(p.Y)
	z0, fz := floorFrac(p.Z)
	x0 -= v.Min[0]
	y0 -= v.Min[1]
	z0 -= v.Min[2]
	x1 := x0 + step(fx)
	y1 := y0 + step(fy)
	z1 := z0 + step(fz)

	if x0 < 0 || x1 >= n[0] || y0 < 0 || y1 >= n[1] || z0 < 0 || z1 >= n[2] {
		switch s.boundary {
		case Border:
			var inX, inY, inZ bool
			x0, x1, inX = BorderIndices(x0, x1, n[0], fx)
			y0, y1, inY = BorderIndices(y0, y1, n[1], fy)
			z0, z1, inZ = BorderIndices(z0, z1, n[2], fz)
			if !inX || !inY || !inZ {
				return s.Miss(out)
			}
		case Wrap, Mirror:
			x0, x1 = s.boundary.fold(x0, n[0]), s.boundary.fold(x1, n[0])
			y0, y1 = s.boundary.fold(y0, n[1]), s.boundary.fold(y1, n[1])
			z0, z1 = s.boundary.fold(z0, n[2]), s.boundary.fold(z1, n[2])
		default:
			return s.Miss(out)
		}
	}

	inc := v.Inc
	i00 := y0*inc[1] + z0*inc[2]
	i01 := y0*inc[1] + z1*inc[2]
	i10 := y1*inc[1] + z0*inc[2]
	i11 := y1*inc[1] + z1*inc[2]
	a := x0 * inc[0]
	b := x1 * inc[0]

	rx, ry, rz := 1-fx, 1-fy, 1-fz
	ryrz := ry * rz
	ryfz := ry * fz
	fyrz := fy * rz
	fyfz := fy * fz

	d := v.Data
	for c := 0; c < v.Components; c++ {
		r := rx*(ryrz*float64(d[a+i00+c])+ryfz*float64(d[a+i01+c])+
			fyrz*float64(d[a+i10+c])+fyfz*float64(d[a+i11+c])) +
			fx*(ryrz*float64(d[b+i00+c])+ryfz*float64(d[b+i01+c])+
				fyrz*float64(d[b+i10+c])+fyfz*float64(d[b+i11+c]))
		out[c] = s.num.Convert(r)
	}
	return true
}
