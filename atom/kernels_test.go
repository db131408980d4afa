package atom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestSoftThreshold(t *testing.T) {
	for _, test := range []struct {
		name string
		x    []float64
		thr  float64
		want []float64
	}{
		{"Basic", []float64{3, -2, 0.5, 0}, 1, []float64{2, -1, 0, 0}},
		{"ZeroThreshold", []float64{3, -2}, 0, []float64{3, -2}},
		{"AllKilled", []float64{0.2, -0.3}, 1, []float64{0, 0}},
	} {
		dst := make([]float64, len(test.x))
		SoftThreshold(dst, test.x, test.thr)
		if !floats.EqualApprox(dst, test.want, 1e-14) {
			t.Errorf("%v: mismatch. want %v, got %v", test.name, test.want, dst)
		}
	}
}

func TestShrinkL2(t *testing.T) {
	x := []float64{3, 4}
	dst := make([]float64, 2)
	ShrinkL2(dst, x, 1)
	// ||x|| = 5, shrink by 1/5
	if !floats.EqualApprox(dst, []float64{2.4, 3.2}, 1e-14) {
		t.Errorf("shrink mismatch. got %v", dst)
	}
	ShrinkL2(dst, x, 6)
	if !floats.EqualApprox(dst, []float64{0, 0}, 1e-14) {
		t.Errorf("shrink should kill short vectors. got %v", dst)
	}
}

func TestProjL1Ball(t *testing.T) {
	for _, test := range []struct {
		name   string
		x      []float64
		radius float64
	}{
		{"Inside", []float64{0.2, -0.3, 0.1}, 1},
		{"Boundary", []float64{0.5, -0.5}, 1},
		{"Outside", []float64{3, -4, 1, 0}, 2},
		{"FarOutside", []float64{10, 1, 1, 1}, 0.5},
	} {
		dst := make([]float64, len(test.x))
		ProjL1Ball(dst, test.x, test.radius)
		nrm := floats.Norm(dst, 1)
		if nrm > test.radius*(1+1e-12) {
			t.Errorf("%v: projection infeasible. ||p||_1 = %v > %v", test.name, nrm, test.radius)
		}
		if floats.Norm(test.x, 1) <= test.radius {
			if !floats.EqualApprox(dst, test.x, 1e-14) {
				t.Errorf("%v: interior point moved", test.name)
			}
			continue
		}
		if math.Abs(nrm-test.radius) > 1e-12*(1+test.radius) {
			t.Errorf("%v: projection of an exterior point should hit the boundary. got %v", test.name, nrm)
		}
		// projection optimality: no closer feasible point among
		// scaled soft thresholdings
		d0 := floats.Distance(dst, test.x, 2)
		probe := make([]float64, len(test.x))
		for _, thr := range []float64{0.01, 0.1, 0.5, 1, 2} {
			SoftThreshold(probe, test.x, thr)
			if floats.Norm(probe, 1) <= test.radius && floats.Distance(probe, test.x, 2) < d0-1e-10 {
				t.Errorf("%v: found a closer feasible point than the projection", test.name)
			}
		}
	}
}

func TestProxSupMoreau(t *testing.T) {
	// prox of t*w*||.||_inf and the scaled l1-ball projection must
	// decompose x by the Moreau identity.
	x := []float64{2, -3, 0.5, 1}
	const tstep, w = 0.7, 1.3
	p := make([]float64, len(x))
	ProxSup(p, x, tstep, w)
	scaled := make([]float64, len(x))
	for i, v := range x {
		scaled[i] = v / tstep
	}
	q := make([]float64, len(x))
	ProjL1Ball(q, scaled, w)
	for i := range x {
		if math.Abs(p[i]+tstep*q[i]-x[i]) > 1e-12 {
			t.Errorf("Moreau identity violated at %v: %v + %v != %v", i, p[i], tstep*q[i], x[i])
		}
	}
	// the prox point's sup norm never exceeds the input's
	if floats.Norm(p, math.Inf(1)) > floats.Norm(x, math.Inf(1)) {
		t.Errorf("prox expanded the sup norm")
	}
}

func TestClipAndL2Ball(t *testing.T) {
	x := []float64{2, -3, 0.5}
	dst := make([]float64, 3)
	Clip(dst, x, 1)
	if !floats.EqualApprox(dst, []float64{1, -1, 0.5}, 1e-14) {
		t.Errorf("clip mismatch. got %v", dst)
	}
	dst2 := make([]float64, 2)
	ProjL2Ball(dst2, []float64{3, 4}, 1)
	if !floats.EqualApprox(dst2, []float64{0.6, 0.8}, 1e-14) {
		t.Errorf("l2 ball projection mismatch. got %v", dst2)
	}
}
