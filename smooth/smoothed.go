package smooth

import (
	"gonum.org/v1/gonum/floats"

	"github.com/fperez/regreg/atom"
	"github.com/fperez/regreg/linop"
)

// Smoothed is the Moreau-Yosida envelope of a seminorm atom with
// smoothing parameter eps > 0:
//
//	f_eps(x) = min_u f(u) + ||u - (Lx+b)||^2 / (2 eps)
//
// evaluated through the atom's base prox. The gradient is
// Lt*(z - prox_eps(z))/eps at z = Lx+b, Lipschitz-continuous with
// constant ||L||^2/eps. Smoothing is what lets FISTA run in pure
// gradient mode on an otherwise non-smooth objective.
type Smoothed struct {
	a        atom.Atom
	eps      float64
	opNormSq float64
}

// NewSmoothed smooths a with parameter eps > 0.
func NewSmoothed(a atom.Atom, eps float64) *Smoothed {
	if eps <= 0 {
		panic("smooth: nonpositive smoothing parameter")
	}
	s := &Smoothed{a: a, eps: eps, opNormSq: 1}
	if l, _ := a.Transform(); l != nil {
		// Power iteration underestimates; pad the way regreg pads
		// its power_L estimate.
		s.opNormSq = 1.05 * linop.EstimateSquaredNorm(l, 200, 1e-10)
	}
	return s
}

func (s *Smoothed) Dim() int           { return s.a.Dim() }
func (s *Smoothed) Epsilon() float64   { return s.eps }
func (s *Smoothed) Atom() atom.Atom    { return s.a }
func (s *Smoothed) Lipschitz() float64 { return s.opNormSq / s.eps }

func (s *Smoothed) Obj(x []float64) float64 {
	z := s.transformed(x)
	p := make([]float64, len(z))
	s.a.BaseProx(p, z, s.eps)
	d := floats.Distance(p, z, 2)
	return s.a.BaseValue(p) + d*d/(2*s.eps)
}

func (s *Smoothed) ObjGrad(x, grad []float64) float64 {
	if len(grad) != s.a.Dim() {
		panic(lenMismatch)
	}
	z := s.transformed(x)
	p := make([]float64, len(z))
	s.a.BaseProx(p, z, s.eps)
	d := floats.Distance(p, z, 2)
	v := s.a.BaseValue(p) + d*d/(2*s.eps)

	// gradient in the transformed space
	gz := make([]float64, len(z))
	floats.SubTo(gz, z, p)
	floats.Scale(1/s.eps, gz)

	if l, _ := s.a.Transform(); l != nil {
		l.MulVecTrans(grad, gz)
	} else {
		copy(grad, gz)
	}
	return v
}

func (s *Smoothed) transformed(x []float64) []float64 {
	if len(x) != s.a.Dim() {
		panic(lenMismatch)
	}
	z := make([]float64, s.a.NormDim())
	if l, _ := s.a.Transform(); l != nil {
		l.MulVec(z, x)
	} else {
		copy(z, x)
	}
	if _, b := s.a.Transform(); b != nil {
		floats.Add(z, b)
	}
	return z
}

// SmoothedConjugate is the Moreau-Yosida regularized conjugate of a
// smooth loss,
//
//	L*_eps(v) = max_x <v,x> - L(x) - (eps/2)||x||^2
//
// the generic fallback when no exact conjugate is supplied. The added
// quadratic makes the maximizer unique and the gradient (which equals
// the maximizer) Lipschitz with constant 1/eps, at the price of an
// approximation error that vanishes as eps -> 0. The maximizer is found
// by a damped fixed-point iteration on the stationarity condition and is
// warm-started across evaluations; instances are not safe for concurrent
// use.
type SmoothedConjugate struct {
	f       Function
	eps     float64
	warm    []float64
	maxIter int
	tol     float64
}

// NewSmoothedConjugate builds L*_eps for the given loss with eps > 0.
func NewSmoothedConjugate(f Function, eps float64) *SmoothedConjugate {
	if eps <= 0 {
		panic("smooth: nonpositive smoothing parameter")
	}
	return &SmoothedConjugate{
		f:       f,
		eps:     eps,
		warm:    make([]float64, f.Dim()),
		maxIter: 500,
		tol:     1e-12,
	}
}

func (c *SmoothedConjugate) Dim() int           { return c.f.Dim() }
func (c *SmoothedConjugate) Lipschitz() float64 { return 1 / c.eps }

func (c *SmoothedConjugate) Obj(v []float64) float64 {
	x := c.argmax(v)
	return floats.Dot(v, x) - c.f.Obj(x) - 0.5*c.eps*sqNorm(x)
}

// ObjGrad evaluates L*_eps and stores its gradient, the maximizer x(v),
// into grad.
func (c *SmoothedConjugate) ObjGrad(v, grad []float64) float64 {
	if len(grad) != c.f.Dim() {
		panic(lenMismatch)
	}
	x := c.argmax(v)
	copy(grad, x)
	return floats.Dot(v, x) - c.f.Obj(x) - 0.5*c.eps*sqNorm(x)
}

// argmax solves grad L(x) + eps*x = v by damped fixed-point iteration,
// warm-starting from the previous evaluation.
func (c *SmoothedConjugate) argmax(v []float64) []float64 {
	if len(v) != c.f.Dim() {
		panic(lenMismatch)
	}
	n := c.f.Dim()
	x := append([]float64(nil), c.warm...)
	g := make([]float64, n)
	r := make([]float64, n)

	lf := c.f.Lipschitz()
	if lf <= 0 {
		lf = 1
	}
	step := 1 / (lf + c.eps)

	vnrm := 1 + floats.Norm(v, 2)
	for k := 0; k < c.maxIter; k++ {
		c.f.ObjGrad(x, g)
		for i := range r {
			r[i] = g[i] + c.eps*x[i] - v[i]
		}
		if floats.Norm(r, 2) <= c.tol*vnrm {
			break
		}
		floats.AddScaled(x, -step, r)
	}
	copy(c.warm, x)
	return x
}

func sqNorm(x []float64) float64 {
	return floats.Dot(x, x)
}
