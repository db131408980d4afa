// Package regreg solves regularized regression problems of the form
// loss plus a sum of seminorm penalties, optionally subject to seminorm
// constraints, with proximal first-order methods.
//
// The pieces are split across subpackages:
//
//   - atom: seminorm atoms (l1, l2, sup) with proximal operators,
//     penalty/constraint modes and affine pre-composition
//   - smooth: differentiable losses, sums, and Moreau-Yosida smoothing
//   - problem: containers combining a loss with atoms, building the
//     primal problem, its Fenchel dual, and primal-dual conversions,
//     plus the blockwise coordinate-descent solver
//   - solve: the FISTA solver and its settings/result types
//   - linop: the linear-operator boundary atoms compose with
//   - common: shared error types
//
// A typical fused-lasso fit builds first-difference and identity l1
// atoms, wraps them with a signal-approximator loss in a container,
// and hands the container's problem to FISTA.
package regreg
