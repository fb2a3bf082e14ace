package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity returns a 4x4 identity matrix.
func Identity() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Translation returns a matrix that moves points by t.
func Translation(t r3.Vec) *mat.Dense {
	m := Identity()
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	return m
}

// Scaling returns a matrix that scales each axis by s.
func Scaling(s r3.Vec) *mat.Dense {
	m := Identity()
	m.Set(0, 0, s.X)
	m.Set(1, 1, s.Y)
	m.Set(2, 2, s.Z)
	return m
}

// Rotation returns a matrix that rotates by angle radians about axis
// through the origin.
func Rotation(axis r3.Vec, angle float64) *mat.Dense {
	m := Identity()
	if r3.Norm(axis) == 0 {
		return m
	}
	u := r3.Unit(axis)
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	rot := [3][3]float64{
		{t*u.X*u.X + c, t*u.X*u.Y - s*u.Z, t*u.X*u.Z + s*u.Y},
		{t*u.X*u.Y + s*u.Z, t*u.Y*u.Y + c, t*u.Y*u.Z - s*u.X},
		{t*u.X*u.Z - s*u.Y, t*u.Y*u.Z + s*u.X, t*u.Z*u.Z + c},
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, rot[i][j])
		}
	}
	return m
}

// Axes returns reslice axes: the columns are the output x, y and z
// directions expressed in input world coordinates, and origin is where
// the output origin lands.
func Axes(origin, x, y, z r3.Vec) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		x.X, y.X, z.X, origin.X,
		x.Y, y.Y, z.Y, origin.Y,
		x.Z, y.Z, z.Z, origin.Z,
		0, 0, 0, 1,
	})
}

// Compose returns the matrix that applies ms in order, the first one first.
func Compose(ms ...mat.Matrix) *mat.Dense {
	out := Identity()
	for _, m := range ms {
		var next mat.Dense
		next.Mul(m, out)
		out = &next
	}
	return out
}

// Invert returns the inverse of m.
func Invert(m mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("transform: matrix is not invertible: %w", err)
	}
	return &inv, nil
}

// FromRows builds a 4x4 matrix from a row-major list of rows, as stored in
// configuration files. A 3x4 list gets the affine bottom row appended.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) != 3 && len(rows) != 4 {
		return nil, fmt.Errorf("transform: matrix has %d rows, want 3 or 4", len(rows))
	}
	data := make([]float64, 0, 16)
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("transform: matrix row %d has %d entries, want 4", i, len(row))
		}
		data = append(data, row...)
	}
	if len(rows) == 3 {
		data = append(data, 0, 0, 0, 1)
	}
	return mat.NewDense(4, 4, data), nil
}
