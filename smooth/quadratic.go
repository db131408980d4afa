package smooth

import (
	"github.com/fperez/regreg/common"
)

// Quadratic is the loss
//
//	f(x) = (coef/2)*||x - center||^2 + <linear, x> + constant
//
// covering the l2normsq and signal-approximator losses. Its gradient is
// coef*(x-center) + linear with Lipschitz constant coef, and its exact
// Fenchel conjugate is again a Quadratic.
type Quadratic struct {
	dim      int
	coef     float64
	center   []float64 // nil means zero
	linear   []float64 // nil means zero
	constant float64
}

// NewL2NormSq returns (coef/2)*||x||^2 on R^dim.
func NewL2NormSq(dim int, coef float64) *Quadratic {
	if dim <= 0 {
		panic("smooth: nonpositive dimension")
	}
	if coef <= 0 {
		panic("smooth: nonpositive quadratic coefficient")
	}
	return &Quadratic{dim: dim, coef: coef}
}

// NewSignalApproximator returns (1/2)*||x - y||^2.
func NewSignalApproximator(y []float64) *Quadratic {
	q := NewL2NormSq(len(y), 1)
	q.center = append([]float64(nil), y...)
	return q
}

// NewQuadratic returns the general form. center and linear may be nil.
func NewQuadratic(dim int, coef float64, center, linear []float64, constant float64) (*Quadratic, error) {
	if center != nil && len(center) != dim {
		return nil, common.DimensionMismatch{Op: "smooth.NewQuadratic", Want: dim, Got: len(center)}
	}
	if linear != nil && len(linear) != dim {
		return nil, common.DimensionMismatch{Op: "smooth.NewQuadratic", Want: dim, Got: len(linear)}
	}
	q := NewL2NormSq(dim, coef)
	if center != nil {
		q.center = append([]float64(nil), center...)
	}
	if linear != nil {
		q.linear = append([]float64(nil), linear...)
	}
	q.constant = constant
	return q, nil
}

// Shifted returns a new Quadratic re-centered at center with the given
// coefficient, keeping the linear term and constant.
func (q *Quadratic) Shifted(center []float64, coef float64) (*Quadratic, error) {
	return NewQuadratic(q.dim, coef, center, q.linear, q.constant)
}

func (q *Quadratic) Dim() int           { return q.dim }
func (q *Quadratic) Coef() float64      { return q.coef }
func (q *Quadratic) Center() []float64  { return q.center }
func (q *Quadratic) Linear() []float64  { return q.linear }
func (q *Quadratic) Lipschitz() float64 { return q.coef }

func (q *Quadratic) Obj(x []float64) float64 {
	if len(x) != q.dim {
		panic(lenMismatch)
	}
	v := q.constant
	for i, xi := range x {
		d := xi
		if q.center != nil {
			d -= q.center[i]
		}
		v += 0.5 * q.coef * d * d
		if q.linear != nil {
			v += q.linear[i] * xi
		}
	}
	return v
}

func (q *Quadratic) ObjGrad(x, grad []float64) float64 {
	if len(x) != q.dim || len(grad) != q.dim {
		panic(lenMismatch)
	}
	v := q.constant
	for i, xi := range x {
		d := xi
		if q.center != nil {
			d -= q.center[i]
		}
		v += 0.5 * q.coef * d * d
		grad[i] = q.coef * d
		if q.linear != nil {
			v += q.linear[i] * xi
			grad[i] += q.linear[i]
		}
	}
	return v
}

// Conjugate returns the exact Fenchel conjugate, a Quadratic with
// coefficient 1/coef. Its gradient at v is the maximizer of
// <v,x> - f(x), which primal recovery relies on.
func (q *Quadratic) Conjugate() Function {
	// f*(v) = (1/(2c))*||v - (linear - c*center)||^2 - (c/2)*||center||^2 - constant
	center := make([]float64, q.dim)
	var c2 float64
	for i := range center {
		if q.linear != nil {
			center[i] = q.linear[i]
		}
		if q.center != nil {
			center[i] -= q.coef * q.center[i]
			c2 += q.center[i] * q.center[i]
		}
	}
	conj := &Quadratic{
		dim:      q.dim,
		coef:     1 / q.coef,
		center:   center,
		constant: -0.5*q.coef*c2 - q.constant,
	}
	return conj
}
