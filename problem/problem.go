package problem

import (
	"gonum.org/v1/gonum/floats"

	"github.com/fperez/regreg/atom"
	"github.com/fperez/regreg/linop"
	"github.com/fperez/regreg/solve"
)

// Problem is the solver-facing composite objective. The coefficient
// vector and Lipschitz estimate are mutated in place by whichever solver
// currently holds the problem; problems must not be shared between
// concurrent solvers.
type Problem struct {
	loss  smoothPart
	atoms []atom.Atom
	coefs []float64
	lip   float64
	prox  proximator
}

type smoothPart interface {
	Obj(x []float64) float64
	ObjGrad(x, grad []float64) float64
}

// proximator computes the proximal step of the summed non-smooth part.
type proximator interface {
	step(dst, x []float64, t float64)
}

func (p *Problem) Dim() int           { return len(p.coefs) }
func (p *Problem) Coefs() []float64   { return p.coefs }
func (p *Problem) Lipschitz() float64 { return p.lip }

func (p *Problem) SetLipschitz(l float64) { p.lip = l }

// SetCoefs overwrites the current coefficients, resetting or
// warm-starting the next solve.
func (p *Problem) SetCoefs(x []float64) {
	if len(x) != len(p.coefs) {
		panic(lenMismatch)
	}
	copy(p.coefs, x)
}

func (p *Problem) SmoothObj(x []float64) float64 {
	if p.loss == nil {
		return 0
	}
	return p.loss.Obj(x)
}

func (p *Problem) SmoothObjGrad(x, grad []float64) float64 {
	if p.loss == nil {
		for i := range grad {
			grad[i] = 0
		}
		return 0
	}
	return p.loss.ObjGrad(x, grad)
}

// Nonsmooth is the atoms' contribution to the objective: weighted
// seminorm values for penalties, zero for constraints (feasibility is
// checked via Feasible, not during objective reporting).
func (p *Problem) Nonsmooth(x []float64) float64 {
	var v float64
	for _, a := range p.atoms {
		v += a.Value(x)
	}
	return v
}

func (p *Problem) Objective(x []float64) float64 {
	return p.SmoothObj(x) + p.Nonsmooth(x)
}

func (p *Problem) ProxStep(dst, x []float64, t float64) {
	p.prox.step(dst, x, t)
}

// Feasible reports whether x satisfies every constraint atom within a
// relative tolerance.
func (p *Problem) Feasible(x []float64, tol float64) bool {
	for _, a := range p.atoms {
		if !a.Feasible(x, tol) {
			return false
		}
	}
	return true
}

// identityProx handles fully smoothed problems: the proximal step is a
// copy and FISTA degenerates to accelerated gradient descent.
type identityProx struct{}

func (identityProx) step(dst, x []float64, t float64) { copy(dst, x) }

// singleProx is the closed-form path: one prox-capable atom.
type singleProx struct {
	a atom.Atom
}

func (s singleProx) step(dst, x []float64, t float64) { s.a.Prox(dst, x, t) }

// dualFallback is the generic two-loop strategy. The proximal
// subproblem
//
//	min_x (1/2)||x - z||^2 + t * sum_i f_i(L_i x + b_i)
//
// has no closed form once atoms are transformed or stacked, so it is
// solved in the dual: with D the row-stack of the L_i and u the stacked
// dual blocks,
//
//	min_u (1/2)||z - Dt u||^2 - <u, b> + sum_i (t f_i)*(u_i)
//
// where each block conjugate has a closed-form prox. The primal prox
// point is recovered as x = z - Dt u. Dual coefficients are kept warm
// across outer iterations, and the inner Lipschitz constant ||D||^2 is
// estimated once by power iteration.
type dualFallback struct {
	atoms  []atom.Atom
	stack  *linop.Stack
	blocks []int
	shifts [][]float64
	u      []float64
	lipD   float64
	inner  *solve.Settings
}

func newDualFallback(dim int, atoms []atom.Atom, inner *solve.Settings) (*dualFallback, error) {
	stack, blocks, shifts, err := stackTransforms(dim, atoms)
	if err != nil {
		return nil, err
	}
	rows, _ := stack.Dims()
	return &dualFallback{
		atoms:  atoms,
		stack:  stack,
		blocks: blocks,
		shifts: shifts,
		u:      make([]float64, rows),
		lipD:   1.05 * linop.EstimateSquaredNorm(stack, 200, 1e-10),
		inner:  inner,
	}, nil
}

func (d *dualFallback) step(dst, z []float64, t float64) {
	// Block conjugates of t*f_i: a weight-w penalty conjugates to the
	// dual-norm ball of radius t*w; a constraint's support function is
	// unchanged by the step size.
	conj := make([]atom.Atom, len(d.atoms))
	for i, a := range d.atoms {
		ci := a.Conjugate()
		if !a.Constraint() {
			ci.SetWeight(t * a.Weight())
		}
		conj[i] = ci
	}
	inner := &innerDual{
		stack:  d.stack,
		blocks: d.blocks,
		shifts: d.shifts,
		conj:   conj,
		z:      z,
		u:      d.u,
		lip:    d.lipD,
	}
	// Fixed step at the known operator norm: no backtracking failures
	// are possible, so the error is structurally nil.
	opt := solve.NewFISTA(inner)
	opt.Fit(d.inner)

	if len(dst) != len(z) {
		panic(lenMismatch)
	}
	d.stack.MulVecTrans(dst, d.u)
	floats.SubTo(dst, z, dst)
}

// innerDual is the dual of one proximal subproblem, a solve.Problem
// over the stacked dual coefficients.
type innerDual struct {
	stack  *linop.Stack
	blocks []int
	shifts [][]float64
	conj   []atom.Atom
	z      []float64
	u      []float64
	lip    float64
}

func (p *innerDual) Dim() int             { return len(p.u) }
func (p *innerDual) Coefs() []float64     { return p.u }
func (p *innerDual) Lipschitz() float64   { return p.lip }
func (p *innerDual) SetLipschitz(float64) {}

func (p *innerDual) SmoothObj(u []float64) float64 {
	r := p.residual(u)
	v := 0.5 * floats.Dot(r, r)
	for i, b := range p.shifts {
		if b != nil {
			v -= floats.Dot(u[p.blocks[i]:p.blocks[i+1]], b)
		}
	}
	return v
}

func (p *innerDual) SmoothObjGrad(u, grad []float64) float64 {
	r := p.residual(u)
	v := 0.5 * floats.Dot(r, r)
	p.stack.MulVec(grad, r)
	floats.Scale(-1, grad)
	for i, b := range p.shifts {
		if b != nil {
			ui := u[p.blocks[i]:p.blocks[i+1]]
			v -= floats.Dot(ui, b)
			floats.Sub(grad[p.blocks[i]:p.blocks[i+1]], b)
		}
	}
	return v
}

func (p *innerDual) Objective(u []float64) float64 {
	v := p.SmoothObj(u)
	for i, c := range p.conj {
		v += c.Value(u[p.blocks[i]:p.blocks[i+1]])
	}
	return v
}

func (p *innerDual) ProxStep(dst, u []float64, t float64) {
	for i, c := range p.conj {
		c.Prox(dst[p.blocks[i]:p.blocks[i+1]], u[p.blocks[i]:p.blocks[i+1]], t)
	}
}

// residual computes z - Dt u.
func (p *innerDual) residual(u []float64) []float64 {
	r := make([]float64, len(p.z))
	p.stack.MulVecTrans(r, u)
	floats.SubTo(r, p.z, r)
	return r
}
