package atom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Scalar and vector kernels underlying the proximal operators and ball
// projections of the supported seminorm families.

// SoftThreshold stores into dst the proximal point of thr*||.||_1 at x,
// shrinking every component toward zero by thr.
func SoftThreshold(dst, x []float64, thr float64) {
	if len(dst) != len(x) {
		panic(lenMismatch)
	}
	for i, v := range x {
		switch {
		case v > thr:
			dst[i] = v - thr
		case v < -thr:
			dst[i] = v + thr
		default:
			dst[i] = 0
		}
	}
}

// ShrinkL2 stores into dst the proximal point of thr*||.||_2 at x: the
// whole vector is shrunk radially, reaching zero when ||x|| <= thr.
func ShrinkL2(dst, x []float64, thr float64) {
	if len(dst) != len(x) {
		panic(lenMismatch)
	}
	nrm := floats.Norm(x, 2)
	if nrm <= thr {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	c := 1 - thr/nrm
	for i, v := range x {
		dst[i] = c * v
	}
}

// Clip stores into dst the projection of x onto the sup-norm ball of the
// given radius.
func Clip(dst, x []float64, radius float64) {
	if len(dst) != len(x) {
		panic(lenMismatch)
	}
	for i, v := range x {
		dst[i] = math.Max(-radius, math.Min(radius, v))
	}
}

// ProjL2Ball stores into dst the projection of x onto the Euclidean ball
// of the given radius.
func ProjL2Ball(dst, x []float64, radius float64) {
	if len(dst) != len(x) {
		panic(lenMismatch)
	}
	nrm := floats.Norm(x, 2)
	if nrm <= radius {
		copy(dst, x)
		return
	}
	c := radius / nrm
	for i, v := range x {
		dst[i] = c * v
	}
}

// ProjL1Ball stores into dst the projection of x onto the l1 ball of the
// given radius, using the sort-based threshold search of Duchi et al.
func ProjL1Ball(dst, x []float64, radius float64) {
	if len(dst) != len(x) {
		panic(lenMismatch)
	}
	if radius <= 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	if floats.Norm(x, 1) <= radius {
		copy(dst, x)
		return
	}
	mu := make([]float64, len(x))
	for i, v := range x {
		mu[i] = math.Abs(v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(mu)))
	var cum, rhoCum float64
	var rho int
	for j, m := range mu {
		cum += m
		if m-(cum-radius)/float64(j+1) > 0 {
			rho = j + 1
			rhoCum = cum
		}
	}
	theta := (rhoCum - radius) / float64(rho)
	SoftThreshold(dst, x, theta)
}

// ProxSup stores into dst the proximal point of thr*||.||_inf at x, via
// the Moreau identity with the l1-ball projection.
func ProxSup(dst, x []float64, t, thr float64) {
	if len(dst) != len(x) {
		panic(lenMismatch)
	}
	scaled := make([]float64, len(x))
	for i, v := range x {
		scaled[i] = v / t
	}
	ProjL1Ball(dst, scaled, thr)
	for i, v := range x {
		dst[i] = v - t*dst[i]
	}
}
