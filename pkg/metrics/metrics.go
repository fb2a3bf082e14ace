// Package metrics compares a resampled volume against a reference volume
// with the quality measures used to validate reconstructions.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"volreslice/pkg/volume"
)

// ErrShapeMismatch is returned when two volumes cannot be compared voxel
// by voxel.
var ErrShapeMismatch = errors.New("metrics: volumes differ in extent or components")

// histogramBins is the number of intensity bins used for entropy.
const histogramBins = 256

// Metrics holds the comparison of a test volume against a reference.
type Metrics struct {
	// MI (Mutual Information) measures the statistical dependency between
	// the two volumes under a Gaussian model. Higher is better.
	MI float64

	// EntropyDiff is the absolute difference in histogram entropy, in bits.
	// Lower is better.
	EntropyDiff float64

	// RMSE (Root Mean Square Error) of the voxel intensities, divided by the
	// reference intensity range so that 0 is perfect.
	RMSE float64

	// SSIM (Structural Similarity Index) over the whole volume, from -1 to 1.
	SSIM float64

	// EdgePreserved is the correlation of the gradient magnitude maps,
	// from -1 to 1.
	EdgePreserved float64

	// Accuracy combines the other measures into a percentage.
	Accuracy float64
}

// Compare computes Metrics for test against ref. Both volumes must share
// extent and component count; their scalar kinds may differ.
func Compare(ref, test *volume.Volume) (Metrics, error) {
	if err := ref.Validate(); err != nil {
		return Metrics{}, err
	}
	if err := test.Validate(); err != nil {
		return Metrics{}, err
	}
	if ref.Extent != test.Extent || ref.Components != test.Components {
		return Metrics{}, fmt.Errorf("%w: %v/%d vs %v/%d", ErrShapeMismatch,
			ref.Extent, ref.Components, test.Extent, test.Components)
	}
	if ref.Extent.Empty() {
		return Metrics{}, fmt.Errorf("%w: empty extent", ErrShapeMismatch)
	}

	a := ref.Float64s()
	b := test.Float64s()
	scale := dynamicRange(a)

	var m Metrics
	m.MI = MutualInformation(a, b)
	m.RMSE = RMSE(a, b) / scale
	m.SSIM = SSIM(a, b, scale)
	m.EntropyDiff = math.Abs(Entropy(a) - Entropy(b))
	m.EdgePreserved = stat.Correlation(gradientMagnitude(ref), gradientMagnitude(test), nil)
	if math.IsNaN(m.EdgePreserved) {
		m.EdgePreserved = 0
	}

	m.Accuracy = (1 - m.EntropyDiff) *
		(1 - (1 - math.Min(m.MI, 1))) *
		(1 - m.RMSE) *
		m.SSIM *
		m.EdgePreserved
	m.Accuracy *= 100
	return m, nil
}

// MutualInformation approximates the mutual information of two equally
// long series from their variances and covariance.
func MutualInformation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	varA := stat.Variance(a, nil)
	varB := stat.Variance(b, nil)
	cov := stat.Covariance(a, b, nil)
	if varA > 0 && varB > 0 {
		det := varA*varB - cov*cov
		if det > 0 {
			return 0.5 * math.Log(varA*varB/det)
		}
		// perfectly correlated
		return math.Inf(1)
	}
	return 0
}

// RMSE returns the root mean square difference of two equally long series.
func RMSE(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}

// SSIM returns the global structural similarity of two series whose
// intensities span a dynamic range of l.
func SSIM(a, b []float64, l float64) float64 {
	const k1 = 0.01
	const k2 = 0.03
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	muA := stat.Mean(a, nil)
	muB := stat.Mean(b, nil)
	varA := stat.Variance(a, nil)
	varB := stat.Variance(b, nil)
	cov := stat.Covariance(a, b, nil)

	num := (2*muA*muB + c1) * (2*cov + c2)
	den := (muA*muA + muB*muB + c1) * (varA + varB + c2)
	if den > 0 {
		return num / den
	}
	return 0
}

// Entropy returns the Shannon entropy, in bits, of a 256-bin histogram
// of data.
func Entropy(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}
	hist := make([]float64, histogramBins)
	width := (hi - lo) / histogramBins
	for _, v := range data {
		bin := int((v - lo) / width)
		hist[max(0, min(bin, histogramBins-1))]++
	}
	floats.Scale(1/float64(len(data)), hist)
	return stat.Entropy(hist) / math.Ln2
}

func dynamicRange(data []float64) float64 {
	if r := floats.Max(data) - floats.Min(data); r > 0 {
		return r
	}
	return 1
}

// gradientMagnitude returns the central-difference gradient magnitude of
// the first component at every voxel, with one-sided differences at the
// edges.
func gradientMagnitude(v *volume.Volume) []float64 {
	e := v.Extent
	out := make([]float64, 0, e.NumVoxels())
	diff := func(x, y, z, axis int) float64 {
		lo := [3]int{x, y, z}
		hi := lo
		if lo[axis] > e[2*axis] {
			lo[axis]--
		}
		if hi[axis] < e[2*axis+1] {
			hi[axis]++
		}
		if span := hi[axis] - lo[axis]; span > 0 {
			return (v.Value(hi[0], hi[1], hi[2], 0) - v.Value(lo[0], lo[1], lo[2], 0)) / float64(span)
		}
		return 0
	}
	for z := e[4]; z <= e[5]; z++ {
		for y := e[2]; y <= e[3]; y++ {
			for x := e[0]; x <= e[1]; x++ {
				gx, gy, gz := diff(x, y, z, 0), diff(x, y, z, 1), diff(x, y, z, 2)
				out = append(out, math.Sqrt(gx*gx+gy*gy+gz*gz))
			}
		}
	}
	return out
}
