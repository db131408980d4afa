package problem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fperez/regreg/atom"
	"github.com/fperez/regreg/common"
	"github.com/fperez/regreg/linop"
	"github.com/fperez/regreg/problem"
	"github.com/fperez/regreg/smooth"
	"github.com/fperez/regreg/solve"
)

func softThreshold(y []float64, lam float64) []float64 {
	out := make([]float64, len(y))
	atom.SoftThreshold(out, y, lam)
	return out
}

func fitContainer(t *testing.T, c *problem.Container) []float64 {
	t.Helper()
	p, err := c.Problem()
	require.NoError(t, err)
	res, err := solve.NewFISTA(p).Fit(nil)
	require.NoError(t, err)
	require.Equal(t, solve.Converged, res.Status)
	return p.Coefs()
}

func TestContainerErrors(t *testing.T) {
	_, err := problem.NewContainer(nil)
	assert.ErrorIs(t, err, common.ErrNoAtoms)

	_, err = problem.NewContainer(smooth.NewSignalApproximator([]float64{1, 2}), atom.NewL1(3, 1))
	var dm common.DimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Want)
}

func TestSingleProxLasso(t *testing.T) {
	y := []float64{3, -0.2, 1.7, 0, -4, 0.9}
	const lam = 1.1
	c, err := problem.NewContainer(smooth.NewSignalApproximator(y), atom.NewL1(len(y), lam))
	require.NoError(t, err)
	got := fitContainer(t, c)
	assert.InDeltaSlice(t, softThreshold(y, lam), got, 1e-5)
}

func TestSingleProxGroupShrink(t *testing.T) {
	y := []float64{3, 4, -1}
	const lam = 2
	c, err := problem.NewContainer(smooth.NewSignalApproximator(y), atom.NewL2(3, lam))
	require.NoError(t, err)
	got := fitContainer(t, c)
	want := make([]float64, 3)
	atom.ShrinkL2(want, y, lam)
	assert.InDeltaSlice(t, want, got, 1e-5)
}

func TestConstraintProjection(t *testing.T) {
	y := []float64{3, -4, 1, 0.5}
	const radius = 2.5
	a := atom.NewL1(4, radius)
	a.SetConstraint(true)
	c, err := problem.NewContainer(smooth.NewSignalApproximator(y), a)
	require.NoError(t, err)
	got := fitContainer(t, c)

	want := make([]float64, 4)
	atom.ProjL1Ball(want, y, radius)
	assert.InDeltaSlice(t, want, got, 1e-5)
	assert.True(t, a.Feasible(got, 1e-8))
}

func TestFallbackMatchesClosedForm(t *testing.T) {
	// composing with a dense identity matrix forces the two-loop
	// fallback; the answer must still be the closed-form soft threshold
	y := []float64{2, -3, 0.4, 0, 1.6}
	const lam = 0.9
	eye := mat.NewDense(5, 5, nil)
	for i := 0; i < 5; i++ {
		eye.Set(i, i, 1)
	}
	a, err := atom.NewL1(5, 1).Linear(linop.NewDense(eye), lam)
	require.NoError(t, err)
	require.False(t, a.ProxCapable())

	c, err := problem.NewContainer(smooth.NewSignalApproximator(y), a)
	require.NoError(t, err)
	got := fitContainer(t, c)
	assert.InDeltaSlice(t, softThreshold(y, lam), got, 1e-4)
}

func TestFallbackTwoAtoms(t *testing.T) {
	// two l1 penalties add up to a single one with the summed weight
	y := []float64{4, -1, 0.3, 2.5}
	c, err := problem.NewContainer(smooth.NewSignalApproximator(y),
		atom.NewL1(4, 0.7), atom.NewL1(4, 0.5))
	require.NoError(t, err)
	got := fitContainer(t, c)
	assert.InDeltaSlice(t, softThreshold(y, 1.2), got, 1e-4)
}

func TestSmoothedProblem(t *testing.T) {
	y := []float64{3, -0.2, 1.7, 0, -4, 0.9}
	const lam = 1.1
	c, err := problem.NewContainer(smooth.NewSignalApproximator(y), atom.NewL1(len(y), lam))
	require.NoError(t, err)

	p, err := c.SmoothedProblem(1e-3)
	require.NoError(t, err)
	s := solve.DefaultSettings()
	s.MaxIts = 20000
	s.Tol = 1e-10
	res, err := solve.NewFISTA(p).Fit(s)
	require.NoError(t, err)
	require.NotEqual(t, solve.Initialized, res.Status)

	want := softThreshold(y, lam)
	assert.InDelta(t, floats.Norm(want, 2), floats.Norm(p.Coefs(), 2), 0.1)
	assert.InDeltaSlice(t, want, p.Coefs(), 0.1)
}
