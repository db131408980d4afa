package solve

import (
	"math"

	"github.com/fperez/regreg/common"
)

// FISTA is the accelerated proximal-gradient solver. Each iteration
// takes a gradient step from an extrapolated point, applies the
// problem's proximal operator at step size 1/L, and updates the
// momentum sequence t_{k+1} = (1 + sqrt(1+4 t_k^2))/2.
type FISTA struct {
	prob   Problem
	status Status
}

// NewFISTA wraps p. The solver assumes single-owner access to p for the
// duration of every Fit call.
func NewFISTA(p Problem) *FISTA {
	return &FISTA{prob: p, status: Initialized}
}

func (f *FISTA) Status() Status { return f.status }

// Fit runs the solver until the relative objective change drops below
// s.Tol (after at least s.MinIts iterations) or s.MaxIts is reached,
// starting from and finishing into the problem's coefficient vector.
// A nil s means DefaultSettings. The only hard failure is backtracking
// exhaustion; everything else is reported through the result.
func (f *FISTA) Fit(s *Settings) (*Result, error) {
	if s == nil {
		s = DefaultSettings()
	}
	p := f.prob
	n := p.Dim()

	x := append([]float64(nil), p.Coefs()...)
	y := append([]float64(nil), x...)
	z := make([]float64, n)
	grad := make([]float64, n)
	step := make([]float64, n)

	tk := 1.0
	fx := p.Objective(x)
	res := &Result{Status: Iterating, Objectives: []float64{fx}}
	f.status = Iterating

	for it := 0; it < s.MaxIts; it++ {
		res.Iterations = it + 1

		fy := p.SmoothObjGrad(y, grad)
		l := p.Lipschitz()
		if l <= 0 || math.IsInf(l, 0) || math.IsNaN(l) {
			l = 1
		}
		for {
			t := 1 / l
			for i := range step {
				step[i] = y[i] - t*grad[i]
			}
			p.ProxStep(z, step, t)
			if !s.Backtrack {
				break
			}
			if descentOK(p.SmoothObj(z), fy, grad, z, y, l) {
				break
			}
			l *= s.BacktrackFactor
			if l > s.MaxLipschitz {
				p.SetLipschitz(l)
				copy(p.Coefs(), x)
				f.status = Failed
				res.Status = f.status
				return res, common.ErrBacktrackExhausted
			}
		}
		p.SetLipschitz(l)

		fz := p.Objective(z)
		if s.MonotonicityRestart && fz > fx+1e-12*(1+math.Abs(fx)) {
			// Accelerated steps can overshoot on non-strongly-convex
			// objectives; drop the momentum and retry from the last
			// accepted iterate.
			tk = 1
			copy(y, x)
			res.Objectives = append(res.Objectives, fx)
			continue
		}
		res.Objectives = append(res.Objectives, fz)

		var done bool
		if fx == 0 {
			done = math.Abs(fz) < s.Tol
		} else {
			done = math.Abs(fz-fx)/math.Abs(fx) < s.Tol
		}

		tk1 := 0.5 * (1 + math.Sqrt(1+4*tk*tk))
		mom := (tk - 1) / tk1
		for i := range y {
			y[i] = z[i] + mom*(z[i]-x[i])
		}
		copy(x, z)
		tk = tk1
		fx = fz

		if done && it+1 >= s.MinIts {
			f.status = Converged
			break
		}
	}
	if f.status != Converged {
		f.status = MaxIterationsReached
	}
	res.Status = f.status
	copy(p.Coefs(), x)
	return res, nil
}

// descentOK is the backtracking sufficiency test: the smooth part at z
// must lie under its quadratic majorization around y at curvature l.
func descentOK(fz, fy float64, grad, z, y []float64, l float64) bool {
	var lin, sq float64
	for i := range z {
		d := z[i] - y[i]
		lin += grad[i] * d
		sq += d * d
	}
	return fz <= fy+lin+0.5*l*sq+1e-10*(1+math.Abs(fy))
}
