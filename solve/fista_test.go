package solve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fperez/regreg/atom"
	"github.com/fperez/regreg/common"
	"github.com/fperez/regreg/problem"
	"github.com/fperez/regreg/smooth"
	"github.com/fperez/regreg/solve"
)

func lassoProblem(t *testing.T, y []float64, lam float64) *problem.Problem {
	t.Helper()
	c, err := problem.NewContainer(smooth.NewSignalApproximator(y), atom.NewL1(len(y), lam))
	require.NoError(t, err)
	p, err := c.Problem()
	require.NoError(t, err)
	return p
}

func softThreshold(y []float64, lam float64) []float64 {
	out := make([]float64, len(y))
	atom.SoftThreshold(out, y, lam)
	return out
}

func TestFISTALasso(t *testing.T) {
	y := []float64{3, -0.2, 1.7, 0, -4, 0.9}
	const lam = 1.1
	p := lassoProblem(t, y, lam)

	opt := solve.NewFISTA(p)
	assert.Equal(t, solve.Initialized, opt.Status())

	res, err := opt.Fit(nil)
	require.NoError(t, err)
	assert.Equal(t, solve.Converged, res.Status)
	assert.Equal(t, solve.Converged, opt.Status())

	want := softThreshold(y, lam)
	assert.InDeltaSlice(t, want, p.Coefs(), 1e-4)
	assert.InDelta(t, p.Objective(want), res.FinalObjective(), 1e-6)
}

func TestFISTAMonotoneTrace(t *testing.T) {
	y := []float64{5, -3, 2, 2, -1, 0.5, 7, -2}
	p := lassoProblem(t, y, 0.8)

	s := solve.DefaultSettings()
	s.MonotonicityRestart = true
	s.Tol = 1e-12
	res, err := solve.NewFISTA(p).Fit(s)
	require.NoError(t, err)

	objs := res.Objectives
	for i := 1; i < len(objs); i++ {
		assert.LessOrEqual(t, objs[i], objs[i-1]+1e-9*(1+objs[i-1]),
			"objective increased at iteration %d", i)
	}
}

func TestFISTAMaxIterations(t *testing.T) {
	p := lassoProblem(t, []float64{4, -4, 2}, 0.5)
	s := solve.DefaultSettings()
	s.MaxIts = 2
	s.Tol = 0
	res, err := solve.NewFISTA(p).Fit(s)
	require.NoError(t, err)
	assert.Equal(t, solve.MaxIterationsReached, res.Status)
	assert.Equal(t, 2, res.Iterations)
	// the trace still carries the initial value plus one entry per
	// iteration, enough to judge stagnation
	assert.Len(t, res.Objectives, 3)
}

func TestFISTAWarmStart(t *testing.T) {
	y := []float64{1, 2, -3, 0.4}
	p := lassoProblem(t, y, 0.3)
	opt := solve.NewFISTA(p)
	_, err := opt.Fit(nil)
	require.NoError(t, err)

	// a second fit starts at the solution and converges immediately
	s := solve.DefaultSettings()
	s.MinIts = 1
	res, err := opt.Fit(s)
	require.NoError(t, err)
	assert.Equal(t, solve.Converged, res.Status)
	assert.Less(t, res.Iterations, 10)
}

func TestFISTABacktracking(t *testing.T) {
	y := []float64{2, -1, 3}
	p := lassoProblem(t, y, 0.2)
	// start from a badly underestimated Lipschitz constant and let
	// backtracking recover
	p.SetLipschitz(1e-6)
	s := solve.DefaultSettings()
	res, err := solve.NewFISTA(p).Fit(s)
	require.NoError(t, err)
	assert.Equal(t, solve.Converged, res.Status)
	assert.InDeltaSlice(t, softThreshold(y, 0.2), p.Coefs(), 1e-4)
	assert.GreaterOrEqual(t, p.Lipschitz(), 0.5)
}

func TestFISTAFixedStep(t *testing.T) {
	y := []float64{2, -1, 3}
	p := lassoProblem(t, y, 0.2)
	// the signal approximator has Lipschitz constant exactly 1, so a
	// fixed step works without the line search
	s := solve.DefaultSettings()
	s.Backtrack = false
	res, err := solve.NewFISTA(p).Fit(s)
	require.NoError(t, err)
	assert.Equal(t, solve.Converged, res.Status)
	assert.InDeltaSlice(t, softThreshold(y, 0.2), p.Coefs(), 1e-4)
}

// inconsistent reports a smooth value that can never satisfy the
// descent test, forcing the backtracking loop to give up.
type inconsistent struct {
	coefs []float64
	lip   float64
}

func (p *inconsistent) Dim() int                           { return len(p.coefs) }
func (p *inconsistent) Coefs() []float64                   { return p.coefs }
func (p *inconsistent) Lipschitz() float64                 { return p.lip }
func (p *inconsistent) SetLipschitz(l float64)             { p.lip = l }
func (p *inconsistent) Objective(x []float64) float64      { return 1 }
func (p *inconsistent) SmoothObj(x []float64) float64      { return 1 }
func (p *inconsistent) ProxStep(dst, x []float64, _ float64) { copy(dst, x) }

func (p *inconsistent) SmoothObjGrad(x, grad []float64) float64 {
	for i := range grad {
		grad[i] = 0
	}
	return 0
}

func TestFISTABacktrackExhausted(t *testing.T) {
	p := &inconsistent{coefs: make([]float64, 2), lip: 1}
	opt := solve.NewFISTA(p)
	res, err := opt.Fit(nil)
	require.ErrorIs(t, err, common.ErrBacktrackExhausted)
	assert.Equal(t, solve.Failed, res.Status)
	assert.Equal(t, solve.Failed, opt.Status())
}
