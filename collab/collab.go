// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package collab declares the two remaining external collaborators named
// in §6: the per-element physics collaborator (energy + localized-error
// callbacks) and the constitutive (material) collaborator used by the KS
// stress functional. Both are read-only during a functional evaluation
// (§5). Grounded on ele.Element / msolid.Solid's interface-first design:
// the core depends only on narrow method sets, never on a concrete
// element or material type.
package collab

import "github.com/peekwez/tmr/forest"

// Constitutive is the material-model collaborator (§6): scalar failure
// value, its strain gradient, and scale-accumulated design sensitivity.
// x is the global design-variable vector (§4.6.3 step 1's "∂f/∂x
// (design)"); every method receives it so a perturbation of x actually
// changes the primal failure value, not just its recorded sensitivity.
type Constitutive interface {
	// Failure returns the scalar failure value f at point pt for the
	// given strain (6 Mandel/Voigt components) and design vector x.
	Failure(pt forest.Point, strain [6]float64, x []float64) (fval float64, err error)

	// FailureStrainSens returns df/dstrain (6 components) at (strain, x).
	FailureStrainSens(pt forest.Point, strain [6]float64, x []float64) (dfde [6]float64, err error)

	// AddFailureDVSens scale-accumulates the design-variable sensitivity
	// of f into dfdx: dfdx[k] += alpha * df/dx_k for k in [0,size).
	AddFailureDVSens(pt forest.Point, strain [6]float64, x []float64, alpha float64, dfdx []float64) error
}

// Element is the per-element physics collaborator (§6).
type Element interface {
	// NumNodes returns the number of nodes of this element.
	NumNodes() int

	// Constitutive returns the material model bound to this element.
	Constitutive() Constitutive

	// GetNodes fetches the node indices of element i.
	GetNodes(i int) []int

	// GetElement fetches node coordinates and state (vars, dvars,
	// ddvars) for element i.
	GetElement(i int, Xpts [][]float64, vars, dvars, ddvars []float64) error

	// ComputeEnergies returns kinetic and potential energy (Te, Pe) for
	// the given state at the given time (§4.6.1).
	ComputeEnergies(time float64, Xpts [][]float64, vars, dvars []float64) (Te, Pe float64, err error)

	// AddLocalizedError accumulates a nodal-distributed error estimate
	// into errbuf, weighted by the adjoint correction psi (§4.6.2).
	AddLocalizedError(time float64, errbuf []float64, psi []float64, Xpts [][]float64, U []float64) error
}
