package problem

import (
	"gonum.org/v1/gonum/floats"

	"github.com/fperez/regreg/atom"
	"github.com/fperez/regreg/common"
	"github.com/fperez/regreg/linop"
	"github.com/fperez/regreg/smooth"
)

// ConjugateProblem builds the Fenchel-dual problem
//
//	min_u  loss*(-Dt u) - <u, b> + sum_i f_i*(u_i)
//
// over the stacked dual blocks u, where D is the row-stack of the
// atoms' linear parts and f_i* the block conjugates (always
// prox-capable, so the dual never needs the two-loop fallback).
//
// trueConj, when non-nil, is used as the exact conjugate of the loss.
// The default path, with trueConj nil, is the generic Moreau-Yosida
// smoothed conjugate with the container's Epsilon: tractable for any
// differentiable loss, exact only in the limit Epsilon -> 0. Both paths
// go through this single entry point.
func (c *Container) ConjugateProblem(trueConj smooth.Function) (*DualProblem, error) {
	if c.loss == nil {
		return nil, common.ErrConjugateUnavailable
	}
	if len(c.atoms) == 0 {
		return nil, common.ErrNoAtoms
	}
	conj := trueConj
	if conj == nil {
		conj = smooth.NewSmoothedConjugate(c.loss, c.Epsilon)
	}
	if conj.Dim() != c.dim {
		return nil, common.DimensionMismatch{Op: "problem.ConjugateProblem", Want: c.dim, Got: conj.Dim()}
	}

	stack, blocks, shifts, err := stackTransforms(c.dim, c.atoms)
	if err != nil {
		return nil, err
	}
	conjAtoms := make([]atom.Atom, len(c.atoms))
	for i, a := range c.atoms {
		conjAtoms[i] = a.Conjugate()
	}
	rows, _ := stack.Dims()
	return &DualProblem{
		conj:   conj,
		stack:  stack,
		blocks: blocks,
		shifts: shifts,
		atoms:  conjAtoms,
		coefs:  make([]float64, rows),
		lip:    conj.Lipschitz() * 1.05 * linop.EstimateSquaredNorm(stack, 200, 1e-10),
	}, nil
}

// DualProblem is the Fenchel dual as a solve.Problem over the stacked
// dual coefficients.
type DualProblem struct {
	conj   smooth.Function
	stack  *linop.Stack
	blocks []int
	shifts [][]float64
	atoms  []atom.Atom // block conjugates
	coefs  []float64
	lip    float64
}

func (d *DualProblem) Dim() int           { return len(d.coefs) }
func (d *DualProblem) Coefs() []float64   { return d.coefs }
func (d *DualProblem) Lipschitz() float64 { return d.lip }

func (d *DualProblem) SetLipschitz(l float64) { d.lip = l }

func (d *DualProblem) SmoothObj(u []float64) float64 {
	v := d.conj.Obj(d.negAdjoint(u))
	for i, b := range d.shifts {
		if b != nil {
			v -= floats.Dot(u[d.blocks[i]:d.blocks[i+1]], b)
		}
	}
	return v
}

func (d *DualProblem) SmoothObjGrad(u, grad []float64) float64 {
	v := d.negAdjoint(u)
	g := make([]float64, len(v))
	val := d.conj.ObjGrad(v, g)
	// chain rule through u -> -Dt u
	d.stack.MulVec(grad, g)
	floats.Scale(-1, grad)
	for i, b := range d.shifts {
		if b != nil {
			ui := u[d.blocks[i]:d.blocks[i+1]]
			val -= floats.Dot(ui, b)
			floats.Sub(grad[d.blocks[i]:d.blocks[i+1]], b)
		}
	}
	return val
}

func (d *DualProblem) Objective(u []float64) float64 {
	v := d.SmoothObj(u)
	for i, a := range d.atoms {
		v += a.Value(u[d.blocks[i]:d.blocks[i+1]])
	}
	return v
}

func (d *DualProblem) ProxStep(dst, u []float64, t float64) {
	for i, a := range d.atoms {
		a.Prox(dst[d.blocks[i]:d.blocks[i+1]], u[d.blocks[i]:d.blocks[i+1]], t)
	}
}

// Primal recovers an approximate primal solution from dual coefficients
// via the stationarity relation of the Lagrangian: the primal point is
// the maximizer defining loss*(-Dt u), which is the conjugate's
// gradient. With the smoothed conjugate the recovery is exact only up
// to the smoothing error. A nil u uses the problem's current
// coefficients.
func (d *DualProblem) Primal(u []float64) ([]float64, error) {
	if u == nil {
		u = d.coefs
	}
	if len(u) != len(d.coefs) {
		return nil, common.DimensionMismatch{Op: "problem.Primal", Want: len(d.coefs), Got: len(u)}
	}
	x := make([]float64, d.conj.Dim())
	d.conj.ObjGrad(d.negAdjoint(u), x)
	return x, nil
}

// negAdjoint computes -Dt u.
func (d *DualProblem) negAdjoint(u []float64) []float64 {
	if len(u) != len(d.coefs) {
		panic(lenMismatch)
	}
	v := make([]float64, d.conj.Dim())
	d.stack.MulVecTrans(v, u)
	floats.Scale(-1, v)
	return v
}
