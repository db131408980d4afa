// Package smooth provides the differentiable parts of a composite
// objective: quadratic losses, affine re-centering, sums, Moreau-Yosida
// smoothed seminorms, and smoothed conjugates.
package smooth

import (
	"gonum.org/v1/gonum/floats"

	"github.com/fperez/regreg/common"
)

var lenMismatch string = "smooth: length mismatch"

// Function is a differentiable objective part. A Function will panic if
// slice lengths do not equal Dim, and must not modify its arguments
// beyond grad.
type Function interface {
	Dim() int

	// Obj evaluates the function.
	Obj(x []float64) float64

	// ObjGrad evaluates the function and stores the gradient in place
	// into grad.
	ObjGrad(x, grad []float64) float64

	// Lipschitz returns an estimate of the gradient's Lipschitz
	// constant, used to seed solver step sizes. Backtracking corrects
	// an underestimate.
	Lipschitz() float64
}

// Conjugable is a Function with a known exact Fenchel conjugate. The
// gradient of the conjugate is the maximizer map used for primal
// recovery from a dual solution.
type Conjugable interface {
	Function
	Conjugate() Function
}

// Sum is the additive composite of smooth functions on a common
// dimension: values and gradients add.
type Sum struct {
	fs  []Function
	dim int
}

// NewSum combines fs. At least one function is required.
func NewSum(fs ...Function) (*Sum, error) {
	if len(fs) == 0 {
		return nil, common.ErrNoAtoms
	}
	s := &Sum{dim: fs[0].Dim()}
	for _, f := range fs {
		if err := s.Add(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add merges another smooth part into the sum.
func (s *Sum) Add(f Function) error {
	if f.Dim() != s.dim {
		return common.DimensionMismatch{Op: "smooth.Sum.Add", Want: s.dim, Got: f.Dim()}
	}
	s.fs = append(s.fs, f)
	return nil
}

func (s *Sum) Dim() int { return s.dim }

func (s *Sum) Obj(x []float64) float64 {
	var v float64
	for _, f := range s.fs {
		v += f.Obj(x)
	}
	return v
}

func (s *Sum) ObjGrad(x, grad []float64) float64 {
	if len(grad) != s.dim {
		panic(lenMismatch)
	}
	var v float64
	tmp := make([]float64, s.dim)
	for i := range grad {
		grad[i] = 0
	}
	for _, f := range s.fs {
		v += f.ObjGrad(x, tmp)
		floats.Add(grad, tmp)
	}
	return v
}

func (s *Sum) Lipschitz() float64 {
	var l float64
	for _, f := range s.fs {
		l += f.Lipschitz()
	}
	return l
}

// Shifted evaluates an existing Function at x - center, re-centering it
// without copying its state.
type Shifted struct {
	f      Function
	center []float64
}

func NewShifted(f Function, center []float64) (*Shifted, error) {
	if len(center) != f.Dim() {
		return nil, common.DimensionMismatch{Op: "smooth.NewShifted", Want: f.Dim(), Got: len(center)}
	}
	return &Shifted{f: f, center: append([]float64(nil), center...)}, nil
}

func (s *Shifted) Dim() int { return s.f.Dim() }

func (s *Shifted) Obj(x []float64) float64 {
	return s.f.Obj(s.translate(x))
}

func (s *Shifted) ObjGrad(x, grad []float64) float64 {
	return s.f.ObjGrad(s.translate(x), grad)
}

func (s *Shifted) Lipschitz() float64 { return s.f.Lipschitz() }

func (s *Shifted) translate(x []float64) []float64 {
	if len(x) != s.f.Dim() {
		panic(lenMismatch)
	}
	z := make([]float64, len(x))
	floats.SubTo(z, x, s.center)
	return z
}
