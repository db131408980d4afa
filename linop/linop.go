// Package linop defines the linear operator boundary used by atoms and
// problems. Storage format is an external concern: anything that can apply
// itself and its transpose to a vector satisfies Op.
package linop

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fperez/regreg/common"
)

var lenMismatch string = "linop: length mismatch"

// Op is a linear operator from R^cols to R^rows. Implementations must be
// safe for concurrent read-only use. MulVec and MulVecTrans panic if the
// slice lengths do not match Dims.
type Op interface {
	// Dims returns the output and input dimensions of the operator.
	Dims() (rows, cols int)

	// MulVec stores A*x into dst. dst and x must not alias.
	MulVec(dst, x []float64)

	// MulVecTrans stores Aᵀ*y into dst. dst and y must not alias.
	MulVecTrans(dst, y []float64)
}

// Identity is the identity operator on R^n.
type Identity struct {
	N int
}

func (id Identity) Dims() (rows, cols int) { return id.N, id.N }

func (id Identity) MulVec(dst, x []float64) {
	if len(dst) != id.N || len(x) != id.N {
		panic(lenMismatch)
	}
	copy(dst, x)
}

func (id Identity) MulVecTrans(dst, y []float64) {
	id.MulVec(dst, y)
}

// Dense wraps a gonum matrix as an Op.
type Dense struct {
	a mat.Matrix
}

// NewDense wraps a. The matrix is not copied; callers must not mutate it
// while a solve is running.
func NewDense(a mat.Matrix) *Dense {
	return &Dense{a: a}
}

func (d *Dense) Dims() (rows, cols int) { return d.a.Dims() }

func (d *Dense) MulVec(dst, x []float64) {
	r, c := d.a.Dims()
	if len(dst) != r || len(x) != c {
		panic(lenMismatch)
	}
	v := mat.NewVecDense(r, dst)
	v.MulVec(d.a, mat.NewVecDense(c, x))
}

func (d *Dense) MulVecTrans(dst, y []float64) {
	r, c := d.a.Dims()
	if len(dst) != c || len(y) != r {
		panic(lenMismatch)
	}
	v := mat.NewVecDense(c, dst)
	v.MulVec(d.a.T(), mat.NewVecDense(r, y))
}

// FirstDiff is the first-difference operator mapping x in R^n to the n-1
// successive differences x[i+1]-x[i]. It is the fused-lasso transform.
type FirstDiff struct {
	N int
}

func (f FirstDiff) Dims() (rows, cols int) { return f.N - 1, f.N }

func (f FirstDiff) MulVec(dst, x []float64) {
	if len(dst) != f.N-1 || len(x) != f.N {
		panic(lenMismatch)
	}
	for i := 0; i < f.N-1; i++ {
		dst[i] = x[i+1] - x[i]
	}
}

func (f FirstDiff) MulVecTrans(dst, y []float64) {
	if len(dst) != f.N || len(y) != f.N-1 {
		panic(lenMismatch)
	}
	dst[0] = -y[0]
	for i := 1; i < f.N-1; i++ {
		dst[i] = y[i-1] - y[i]
	}
	dst[f.N-1] = y[f.N-2]
}

// Stack is the row-stack of a set of operators sharing an input dimension.
// Its output is the concatenation of the blocks' outputs, in order. It is
// the transform of the stacked dual problem.
type Stack struct {
	ops  []Op
	rows int
	cols int
}

// NewStack stacks ops. All operators must share the same input dimension.
func NewStack(ops ...Op) (*Stack, error) {
	if len(ops) == 0 {
		panic("linop: empty stack")
	}
	_, cols := ops[0].Dims()
	s := &Stack{ops: ops, cols: cols}
	for _, op := range ops {
		r, c := op.Dims()
		if c != cols {
			return nil, common.DimensionMismatch{Op: "NewStack", Want: cols, Got: c}
		}
		s.rows += r
	}
	return s, nil
}

func (s *Stack) Dims() (rows, cols int) { return s.rows, s.cols }

// Blocks returns the offsets of each block in the stacked output, with a
// final entry equal to the total number of rows.
func (s *Stack) Blocks() []int {
	offs := make([]int, len(s.ops)+1)
	for i, op := range s.ops {
		r, _ := op.Dims()
		offs[i+1] = offs[i] + r
	}
	return offs
}

func (s *Stack) MulVec(dst, x []float64) {
	if len(dst) != s.rows || len(x) != s.cols {
		panic(lenMismatch)
	}
	var off int
	for _, op := range s.ops {
		r, _ := op.Dims()
		op.MulVec(dst[off:off+r], x)
		off += r
	}
}

func (s *Stack) MulVecTrans(dst, y []float64) {
	if len(dst) != s.cols || len(y) != s.rows {
		panic(lenMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	tmp := make([]float64, s.cols)
	var off int
	for _, op := range s.ops {
		r, _ := op.Dims()
		op.MulVecTrans(tmp, y[off:off+r])
		floats.Add(dst, tmp)
		off += r
	}
}

// EstimateSquaredNorm estimates ||A||² (the largest eigenvalue of AᵀA) by
// power iteration. The estimate converges from below; callers using it as
// a Lipschitz constant should scale it up slightly.
func EstimateSquaredNorm(a Op, maxIter int, tol float64) float64 {
	rows, cols := a.Dims()
	v := make([]float64, cols)
	w := make([]float64, rows)
	for i := range v {
		v[i] = 1 + 1/float64(i+1)
	}
	floats.Scale(1/floats.Norm(v, 2), v)

	var lam float64
	for k := 0; k < maxIter; k++ {
		a.MulVec(w, v)
		next := floats.Norm(w, 2)
		next = next * next
		a.MulVecTrans(v, w)
		nrm := floats.Norm(v, 2)
		if nrm == 0 {
			return 0
		}
		floats.Scale(1/nrm, v)
		if k > 0 && math.Abs(next-lam) <= tol*math.Abs(lam) {
			return next
		}
		lam = next
	}
	return lam
}
