// Package atom provides seminorm atoms: single non-smooth penalty terms
// with known proximal operators, usable in Lagrange (penalty) form or as
// constraints, optionally pre-composed with a linear map and affine shift.
package atom

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/fperez/regreg/common"
	"github.com/fperez/regreg/linop"
)

var lenMismatch string = "atom: length mismatch"

// Kind tags a seminorm family. The conjugate relationships are
// L1 <-> Sup and L2 <-> L2.
type Kind int

const (
	L1 Kind = iota
	L2
	Sup
)

func (k Kind) String() string {
	switch k {
	case L1:
		return "l1"
	case L2:
		return "l2"
	case Sup:
		return "sup"
	}
	return "unknown"
}

// Dual returns the kind of the dual norm.
func (k Kind) Dual() Kind {
	switch k {
	case L1:
		return Sup
	case Sup:
		return L1
	}
	return L2
}

// norm evaluates the raw seminorm of this kind.
func (k Kind) norm(z []float64) float64 {
	switch k {
	case L1:
		return floats.Norm(z, 1)
	case L2:
		return floats.Norm(z, 2)
	}
	return floats.Norm(z, math.Inf(1))
}

// prox stores into dst the proximal point of t*w*||.||_k at z.
func (k Kind) prox(dst, z []float64, t, w float64) {
	switch k {
	case L1:
		SoftThreshold(dst, z, t*w)
	case L2:
		ShrinkL2(dst, z, t*w)
	default:
		ProxSup(dst, z, t, w)
	}
}

// project stores into dst the projection of z onto the radius ball of
// this kind's norm.
func (k Kind) project(dst, z []float64, radius float64) {
	switch k {
	case L1:
		ProjL1Ball(dst, z, radius)
	case L2:
		ProjL2Ball(dst, z, radius)
	default:
		Clip(dst, z, radius)
	}
}

// An Atom is a single seminorm penalty f(x) = weight * norm(Lx + b), or,
// in constraint mode, the indicator of {x : norm(Lx + b) <= weight}. The
// weight and constraint flag are the only mutable fields; containers
// holding a shared atom see mutations immediately (last-writer-wins,
// single-threaded use assumed).
type Atom interface {
	// Dim is the dimension of the primal variable the atom acts on.
	Dim() int
	// NormDim is the dimension of the space the norm is evaluated in
	// (the output dimension of the linear part).
	NormDim() int

	Weight() float64
	SetWeight(w float64)
	Constraint() bool
	SetConstraint(c bool)

	// Norm is the raw seminorm value norm(Lx+b), ignoring weight and
	// mode. It is the achieved penalty value used when converting a
	// Lagrange solve into a constraint-form solve.
	Norm(x []float64) float64

	// Value is the atom's contribution to a reported objective:
	// weight*Norm(x) in penalty mode, 0 in constraint mode (feasibility
	// is not checked during objective reporting; use Feasible).
	Value(x []float64) float64

	// Feasible reports whether x satisfies the constraint within a
	// relative tolerance. Always true in penalty mode.
	Feasible(x []float64, tol float64) bool

	// ProxCapable reports whether Prox is available in closed form,
	// which requires the linear part to be the identity.
	ProxCapable() bool

	// Prox stores into dst the proximal point of t*f at x in penalty
	// mode, or the projection onto the constraint set in constraint
	// mode. Panics if !ProxCapable.
	Prox(dst, x []float64, t float64)

	// BaseProx applies the prox (or projection) of the bare weighted
	// norm in the transformed space, ignoring the linear part and
	// shift. It is always available and is what smoothing and dual
	// problem construction use.
	BaseProx(dst, z []float64, t float64)

	// BaseValue is the bare weighted norm at a point of the
	// transformed space, 0 in constraint mode.
	BaseValue(z []float64) float64

	// Conjugate returns the atom's Fenchel conjugate, taken in the
	// transformed space: a weight-w penalty becomes the dual-norm ball
	// constraint of radius w and vice versa. Linear parts and shifts do
	// not carry over; they contribute linear terms handled during dual
	// problem construction.
	Conjugate() Atom

	// Transform returns the linear part and shift. The shift may be
	// nil, meaning zero.
	Transform() (l linop.Op, shift []float64)
}

// Seminorm is the concrete atom for the supported norm families.
type Seminorm struct {
	kind       Kind
	dim        int
	weight     float64
	constraint bool
	op         linop.Op  // nil means identity
	shift      []float64 // nil means zero
}

// New returns an untransformed penalty atom weight*norm_kind(x) on R^dim.
func New(kind Kind, dim int, weight float64) *Seminorm {
	if dim <= 0 {
		panic("atom: nonpositive dimension")
	}
	if weight < 0 {
		panic("atom: negative weight")
	}
	return &Seminorm{kind: kind, dim: dim, weight: weight}
}

// NewL1 returns the atom weight*||x||_1.
func NewL1(dim int, weight float64) *Seminorm { return New(L1, dim, weight) }

// NewL2 returns the atom weight*||x||_2.
func NewL2(dim int, weight float64) *Seminorm { return New(L2, dim, weight) }

// NewSup returns the atom weight*||x||_inf.
func NewSup(dim int, weight float64) *Seminorm { return New(Sup, dim, weight) }

// Linear returns a new atom evaluating the same norm at l*x, with the
// given weight. The operator's output dimension must match the atom's
// norm dimension. The result is not prox-capable unless l is the
// identity; containers route it through the dual fallback.
func (s *Seminorm) Linear(l linop.Op, weight float64) (*Seminorm, error) {
	rows, cols := l.Dims()
	if rows != s.NormDim() {
		return nil, common.DimensionMismatch{Op: "atom.Linear", Want: s.NormDim(), Got: rows}
	}
	if weight < 0 {
		panic("atom: negative weight")
	}
	a := &Seminorm{kind: s.kind, dim: cols, weight: weight, constraint: s.constraint}
	if _, isID := l.(linop.Identity); !isID {
		a.op = l
	}
	return a, nil
}

// Affine returns a new atom evaluating the norm at l*x + b.
func (s *Seminorm) Affine(l linop.Op, b []float64) (*Seminorm, error) {
	a, err := s.Linear(l, s.weight)
	if err != nil {
		return nil, err
	}
	if len(b) != a.NormDim() {
		return nil, common.DimensionMismatch{Op: "atom.Affine", Want: a.NormDim(), Got: len(b)}
	}
	a.shift = append([]float64(nil), b...)
	return a, nil
}

// Shift returns a new atom evaluating the norm at x + b, keeping the
// linear part.
func (s *Seminorm) Shift(b []float64) (*Seminorm, error) {
	if len(b) != s.NormDim() {
		return nil, common.DimensionMismatch{Op: "atom.Shift", Want: s.NormDim(), Got: len(b)}
	}
	a := *s
	a.shift = append([]float64(nil), b...)
	return &a, nil
}

func (s *Seminorm) Dim() int {
	if s.op != nil {
		_, cols := s.op.Dims()
		return cols
	}
	return s.dim
}

func (s *Seminorm) NormDim() int {
	if s.op != nil {
		rows, _ := s.op.Dims()
		return rows
	}
	return s.dim
}

func (s *Seminorm) Kind() Kind      { return s.kind }
func (s *Seminorm) Weight() float64 { return s.weight }

func (s *Seminorm) SetWeight(w float64) {
	if w < 0 {
		panic("atom: negative weight")
	}
	s.weight = w
}

func (s *Seminorm) Constraint() bool     { return s.constraint }
func (s *Seminorm) SetConstraint(c bool) { s.constraint = c }

func (s *Seminorm) Transform() (linop.Op, []float64) { return s.op, s.shift }

// apply computes Lx+b into a fresh slice of length NormDim.
func (s *Seminorm) apply(x []float64) []float64 {
	if len(x) != s.Dim() {
		panic(lenMismatch)
	}
	z := make([]float64, s.NormDim())
	if s.op != nil {
		s.op.MulVec(z, x)
	} else {
		copy(z, x)
	}
	if s.shift != nil {
		floats.Add(z, s.shift)
	}
	return z
}

func (s *Seminorm) Norm(x []float64) float64 {
	return s.kind.norm(s.apply(x))
}

func (s *Seminorm) Value(x []float64) float64 {
	if s.constraint {
		return 0
	}
	return s.weight * s.Norm(x)
}

func (s *Seminorm) Feasible(x []float64, tol float64) bool {
	if !s.constraint {
		return true
	}
	return s.Norm(x) <= s.weight*(1+tol)+tol
}

func (s *Seminorm) ProxCapable() bool { return s.op == nil }

func (s *Seminorm) Prox(dst, x []float64, t float64) {
	if s.op != nil {
		panic("atom: no closed form prox for a linearly transformed atom")
	}
	if len(dst) != s.dim || len(x) != s.dim {
		panic(lenMismatch)
	}
	if s.shift == nil {
		s.BaseProx(dst, x, t)
		return
	}
	// prox of f(u) = g(u+b) by the substitution v = u+b.
	z := make([]float64, s.dim)
	floats.AddTo(z, x, s.shift)
	s.BaseProx(dst, z, t)
	floats.Sub(dst, s.shift)
}

func (s *Seminorm) BaseProx(dst, z []float64, t float64) {
	if len(dst) != len(z) || len(z) != s.NormDim() {
		panic(lenMismatch)
	}
	if s.constraint {
		s.kind.project(dst, z, s.weight)
		return
	}
	s.kind.prox(dst, z, t, s.weight)
}

func (s *Seminorm) BaseValue(z []float64) float64 {
	if len(z) != s.NormDim() {
		panic(lenMismatch)
	}
	if s.constraint {
		return 0
	}
	return s.weight * s.kind.norm(z)
}

func (s *Seminorm) Conjugate() Atom {
	return &Seminorm{
		kind:       s.kind.Dual(),
		dim:        s.NormDim(),
		weight:     s.weight,
		constraint: !s.constraint,
	}
}
