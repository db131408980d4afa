package common

import (
	"errors"
	"fmt"
)

// DimensionMismatch is returned when an operator, shift vector or
// coefficient vector disagrees with the dimension an atom or problem was
// declared with. It is a construction-time failure and is not recoverable.
type DimensionMismatch struct {
	Op   string // operation being constructed
	Want int
	Got  int
}

func (d DimensionMismatch) Error() string {
	return fmt.Sprintf("regreg: dimension mismatch in %s. want: %v, got: %v", d.Op, d.Want, d.Got)
}

// ErrConjugateUnavailable is returned when a dual problem is requested but
// the loss has no usable conjugate.
var ErrConjugateUnavailable = errors.New("regreg: loss has no usable conjugate")

// ErrBacktrackExhausted is returned when backtracking grows the Lipschitz
// estimate past any reasonable bound without satisfying the descent
// condition.
var ErrBacktrackExhausted = errors.New("regreg: backtracking failed to satisfy descent condition")

// ErrNoAtoms is returned when a container is built with neither a loss nor
// any atoms.
var ErrNoAtoms = errors.New("regreg: container needs a loss or at least one atom")

// ErrNotSignalApproximator is returned when the blockwise solver is given
// a container whose loss is not of signal-approximator form.
var ErrNotSignalApproximator = errors.New("regreg: blockwise solver needs a signal approximator loss")
