// Package problem builds solvable objectives out of a smooth loss and a
// collection of seminorm atoms: the penalized primal problem, its
// Fenchel dual, conversions between primal and dual coefficients, and
// the blockwise coordinate-descent solver for signal-approximator
// objectives.
package problem

import (
	"github.com/fperez/regreg/atom"
	"github.com/fperez/regreg/common"
	"github.com/fperez/regreg/linop"
	"github.com/fperez/regreg/smooth"
	"github.com/fperez/regreg/solve"
)

var lenMismatch string = "problem: length mismatch"

// Container is an ordered collection of atoms plus a loss. Atoms are
// held by reference and may be shared across containers; their weight
// and constraint flag may be mutated between solves (last-writer-wins).
// The atom order is fixed at construction and affects only block order
// in the dual, not correctness.
type Container struct {
	loss  smooth.Function // may be nil
	atoms []atom.Atom
	dim   int

	// ProxSettings controls the inner solves of the generic two-loop
	// proximal fallback. Tight tolerances here keep the fallback exact
	// to working precision.
	ProxSettings *solve.Settings

	// Epsilon is the Moreau-Yosida smoothing parameter used when a
	// conjugate problem is requested without an exact conjugate.
	Epsilon float64
}

// NewContainer combines a loss (which may be nil) with atoms sharing the
// loss's dimension.
func NewContainer(loss smooth.Function, atoms ...atom.Atom) (*Container, error) {
	if loss == nil && len(atoms) == 0 {
		return nil, common.ErrNoAtoms
	}
	var dim int
	if loss != nil {
		dim = loss.Dim()
	} else {
		dim = atoms[0].Dim()
	}
	for _, a := range atoms {
		if a.Dim() != dim {
			return nil, common.DimensionMismatch{Op: "problem.NewContainer", Want: dim, Got: a.Dim()}
		}
	}
	return &Container{
		loss:         loss,
		atoms:        atoms,
		dim:          dim,
		ProxSettings: proxDefaults(),
		Epsilon:      1e-4,
	}, nil
}

// proxDefaults mirrors the tight inner-solve defaults of the generic
// fallback: fixed step (the stack's operator norm is known exactly
// enough), many iterations, near-machine tolerance.
func proxDefaults() *solve.Settings {
	s := solve.DefaultSettings()
	s.MaxIts = 2000
	s.MinIts = 5
	s.Tol = 1e-12
	s.Backtrack = false
	s.MonotonicityRestart = true
	return s
}

func (c *Container) Dim() int              { return c.dim }
func (c *Container) Loss() smooth.Function { return c.loss }
func (c *Container) Atoms() []atom.Atom    { return c.atoms }

// Problem builds the solver-facing primal problem
//
//	minimize loss(x) + sum_i w_i norm_i(L_i x + b_i)
//	subject to norm_j(L_j x + b_j) <= w_j for constraint atoms
//
// With exactly one atom whose prox is available in closed form the
// proximal step is that atom's prox. Any second non-smooth atom, or any
// non-identity linear map, has no closed-form combined prox; those
// containers get the documented two-loop fallback, which solves each
// proximal step in the dual with an inner FISTA run. The fallback is
// exact up to the inner tolerance, never silently approximate.
func (c *Container) Problem() (*Problem, error) {
	p := &Problem{
		loss:  c.loss,
		atoms: c.atoms,
		coefs: make([]float64, c.dim),
		lip:   1,
	}
	if c.loss != nil && c.loss.Lipschitz() > 0 {
		p.lip = c.loss.Lipschitz()
	}
	switch {
	case len(c.atoms) == 0:
		p.prox = identityProx{}
	case len(c.atoms) == 1 && c.atoms[0].ProxCapable():
		p.prox = singleProx{a: c.atoms[0]}
	default:
		fb, err := newDualFallback(c.dim, c.atoms, c.ProxSettings)
		if err != nil {
			return nil, err
		}
		p.prox = fb
	}
	return p, nil
}

// SmoothedProblem replaces every atom by its Moreau envelope with the
// given epsilon, yielding a fully differentiable problem FISTA can run
// on in pure gradient mode. Useful on its own and as the first stage of
// a smooth-then-block refinement.
func (c *Container) SmoothedProblem(eps float64) (*Problem, error) {
	fs := make([]smooth.Function, 0, len(c.atoms)+1)
	if c.loss != nil {
		fs = append(fs, c.loss)
	}
	for _, a := range c.atoms {
		fs = append(fs, smooth.NewSmoothed(a, eps))
	}
	sum, err := smooth.NewSum(fs...)
	if err != nil {
		return nil, err
	}
	return &Problem{
		loss:  sum,
		coefs: make([]float64, c.dim),
		lip:   sum.Lipschitz(),
		prox:  identityProx{},
	}, nil
}

// stackTransforms builds the row-stacked dual transform over the atoms'
// linear parts, with identity blocks for untransformed atoms, plus the
// per-block shifts and block offsets.
func stackTransforms(dim int, atoms []atom.Atom) (*linop.Stack, []int, [][]float64, error) {
	ops := make([]linop.Op, len(atoms))
	shifts := make([][]float64, len(atoms))
	for i, a := range atoms {
		l, b := a.Transform()
		if l == nil {
			l = linop.Identity{N: dim}
		}
		ops[i] = l
		shifts[i] = b
	}
	stack, err := linop.NewStack(ops...)
	if err != nil {
		return nil, nil, nil, err
	}
	return stack, stack.Blocks(), shifts, nil
}
