// Package solve provides the first-order solvers driving composite
// problems: the accelerated proximal-gradient method (FISTA) and, in the
// problem package, the blockwise coordinate descent specialization.
package solve

// A Problem is what the solvers consume: a composite objective split
// into a smooth part with gradient and a non-smooth part with a proximal
// operator, plus the mutable solver-facing state (coefficients and a
// Lipschitz estimate). A Problem is owned by one solver at a time.
type Problem interface {
	Dim() int

	// Coefs returns the live coefficient vector. Solvers read it as
	// the starting point and write the final iterate back into it, so
	// coefficients persist across repeated Fit calls.
	Coefs() []float64

	// Lipschitz returns the current estimate of the smooth part's
	// gradient Lipschitz constant; SetLipschitz records the value the
	// backtracking loop settles on.
	Lipschitz() float64
	SetLipschitz(l float64)

	// Objective is the full composite objective, smooth plus
	// non-smooth, used for the recorded trace and convergence checks.
	Objective(x []float64) float64

	// SmoothObj and SmoothObjGrad evaluate only the smooth part;
	// SmoothObjGrad stores the gradient in place.
	SmoothObj(x []float64) float64
	SmoothObjGrad(x, grad []float64) float64

	// ProxStep stores into dst the proximal point of the non-smooth
	// part at x with step size t. For a fully smoothed problem this is
	// a copy, turning the solver into plain accelerated gradient
	// descent.
	ProxStep(dst, x []float64, t float64)
}

// Status is the state of a solver run. Converged, MaxIterationsReached
// and Failed are terminal; Failed always accompanies a non-nil error
// from Fit.
type Status int

const (
	Initialized Status = iota
	Iterating
	Converged
	MaxIterationsReached
	Failed
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Iterating:
		return "Iterating"
	case Converged:
		return "Converged"
	case MaxIterationsReached:
		return "MaxIterationsReached"
	case Failed:
		return "Failed"
	}
	return "Unknown"
}

// Settings controls a Fit run. The zero value is not useful; start from
// DefaultSettings.
type Settings struct {
	// MaxIts bounds the number of iterations; MinIts is a floor below
	// which convergence is not declared.
	MaxIts int
	MinIts int

	// Tol is the relative objective-change tolerance. When the
	// previous objective is exactly zero the comparison is absolute to
	// avoid dividing by zero.
	Tol float64

	// Backtrack enables the Lipschitz backtracking line search. When
	// disabled the problem's current estimate is used unchanged for
	// the whole run.
	Backtrack bool

	// BacktrackFactor is the multiplicative growth applied to the
	// Lipschitz estimate when the descent test fails.
	BacktrackFactor float64

	// MaxLipschitz bounds backtracking growth; exceeding it surfaces
	// ErrBacktrackExhausted instead of looping.
	MaxLipschitz float64

	// MonotonicityRestart resets the acceleration sequence whenever a
	// step would increase the objective, keeping the recorded trace
	// non-increasing.
	MonotonicityRestart bool
}

// DefaultSettings returns the settings used when Fit is given nil.
func DefaultSettings() *Settings {
	return &Settings{
		MaxIts:              5000,
		MinIts:              5,
		Tol:                 1e-6,
		Backtrack:           true,
		BacktrackFactor:     2,
		MaxLipschitz:        1e20,
		MonotonicityRestart: true,
	}
}

// Result reports a finished (or aborted) Fit. Non-convergence is not an
// error: callers judge convergence quality from the status, iteration
// count and objective trace.
type Result struct {
	Status     Status
	Iterations int

	// Objectives is the recorded objective value per iteration,
	// starting with the value at the initial point.
	Objectives []float64
}

// FinalObjective returns the last recorded objective value.
func (r *Result) FinalObjective() float64 {
	return r.Objectives[len(r.Objectives)-1]
}
