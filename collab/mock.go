// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collab

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/tsr"

	"github.com/peekwez/tmr/forest"
)

// LinearElastic is a minimal isotropic small-strain elastic material used
// by the test suites. Strain/stress tensors follow gosl/tsr's Mandel
// basis (as elasticity.go's σ[i] = L·tr(ε)·Im[i] + 2G·ε[i]), so the
// invariant helpers tsr.M_p/tsr.M_q/tsr.Psd apply without shear-factor
// bookkeeping.
type LinearElastic struct {
	E, Nu   float64 // Young's modulus and Poisson ratio
	Yield0  float64 // nominal yield/failure stress at design variable x = 1
	DVIndex int      // index into the global design-variable vector this material's yield stress is tied to
}

func (o *LinearElastic) lame() (L, G, K float64) {
	G = o.E / (2 * (1 + o.Nu))
	L = o.E * o.Nu / ((1 + o.Nu) * (1 - 2*o.Nu))
	K = L + 2*G/3
	return
}

func (o *LinearElastic) stress(strain [6]float64) (sig [6]float64) {
	L, G, _ := o.lame()
	tr := strain[0] + strain[1] + strain[2]
	for i := 0; i < 6; i++ {
		sig[i] = L*tr*tsr.Im[i] + 2*G*strain[i]
	}
	return
}

// yieldAt returns the design-scaled yield stress Yield = Yield0*x[DVIndex]
// (x[DVIndex]=1 is nominal, recovering Yield0).
func (o *LinearElastic) yieldAt(x []float64) (float64, error) {
	if o.DVIndex < 0 || o.DVIndex >= len(x) {
		return 0, chk.Err("collab: DVIndex %d out of range [0,%d)", o.DVIndex, len(x))
	}
	if o.Yield0 <= 0 {
		return 0, chk.Err("collab: Yield0 must be positive")
	}
	return o.Yield0 * x[o.DVIndex], nil
}

// Failure returns f = q(σ)/Yield - 1, the normalized von Mises-style
// failure measure used throughout the KS functional tests (§4.6.3), with
// Yield = Yield0*x[DVIndex] so a perturbation of the design vector x
// actually moves the primal value (needed for a non-vacuous S4 check).
func (o *LinearElastic) Failure(pt forest.Point, strain [6]float64, x []float64) (fval float64, err error) {
	sig := o.stress(strain)
	q := tsr.M_q(sig[:])
	yield, err := o.yieldAt(x)
	if err != nil {
		return 0, err
	}
	return q/yield - 1, nil
}

// FailureStrainSens returns the analytic gradient df/dstrain via the chain
// rule df/dσ · dσ/dε, with df/dσ_i = (3/2)·dev(σ)_i/(q·Yield) (uniform across all
// six Mandel components) and dσ/dε the elastic tangent K·Im⊗Im + 2G·Psd.
func (o *LinearElastic) FailureStrainSens(pt forest.Point, strain [6]float64, x []float64) (dfde [6]float64, err error) {
	sig := o.stress(strain)
	p := tsr.M_p(sig[:])
	q := tsr.M_q(sig[:])
	if q < 1e-14 {
		return dfde, nil // zero deviatoric stress: gradient vanishes
	}
	yield, err := o.yieldAt(x)
	if err != nil {
		return dfde, err
	}
	_, G, K := o.lame()
	var dfds [6]float64
	for i := 0; i < 6; i++ {
		dev := sig[i] - p*tsr.Im[i]
		dfds[i] = 1.5 * dev / (q * yield)
	}
	for i := 0; i < 6; i++ {
		sum := 0.0
		for j := 0; j < 6; j++ {
			Dij := K*tsr.Im[i]*tsr.Im[j] + 2*G*tsr.Psd[i][j]
			sum += Dij * dfds[j]
		}
		dfde[i] = sum
	}
	return
}

// AddFailureDVSens scale-accumulates df/dx into dfdx[DVIndex]: with
// Yield = Yield0*x[DVIndex], df/dYield = -q/Yield² = -(f+1)/Yield, and
// dYield/dx[DVIndex] = Yield0, so df/dx[DVIndex] = -(f+1)/x[DVIndex].
func (o *LinearElastic) AddFailureDVSens(pt forest.Point, strain [6]float64, x []float64, alpha float64, dfdx []float64) error {
	if o.DVIndex < 0 || o.DVIndex >= len(dfdx) || o.DVIndex >= len(x) {
		return chk.Err("collab: DVIndex %d out of range", o.DVIndex)
	}
	fval, err := o.Failure(pt, strain, x)
	if err != nil {
		return err
	}
	dfdx[o.DVIndex] += alpha * (-(fval + 1) / x[o.DVIndex])
	return nil
}

// LinearElement is a minimal per-element physics collaborator whose
// energy is the elastic strain energy of a uniform small-strain field and
// whose localized error is a simple weighted residual of the adjoint
// correction against the primal field, sufficient to exercise C6.1/C6.2
// without pulling in a full displacement-based element formulation.
type LinearElement struct {
	Nodes    [][]int   // nodes[i] = node indices of element i
	Mat      *LinearElastic
	nnodes   int
}

func NewLinearElement(nodes [][]int, mat *LinearElastic, nnodesPerElem int) *LinearElement {
	return &LinearElement{Nodes: nodes, Mat: mat, nnodes: nnodesPerElem}
}

func (o *LinearElement) NumNodes() int               { return o.nnodes }
func (o *LinearElement) Constitutive() Constitutive  { return o.Mat }
func (o *LinearElement) GetNodes(i int) []int        { return o.Nodes[i] }

func (o *LinearElement) GetElement(i int, Xpts [][]float64, vars, dvars, ddvars []float64) error {
	return nil // coordinates/state are supplied directly by callers in this mock
}

// ComputeEnergies returns Pe = |½ σ:ε| for the strain passed in vars[0:6]
// (an energy density: Xpts is not used and no volume factor is applied),
// Te = 0 (static analysis).
func (o *LinearElement) ComputeEnergies(time float64, Xpts [][]float64, vars, dvars []float64) (Te, Pe float64, err error) {
	if len(vars) < 6 {
		return 0, 0, nil
	}
	var strain [6]float64
	copy(strain[:], vars[:6])
	sig := o.Mat.stress(strain)
	for i := 0; i < 6; i++ {
		Pe += 0.5 * sig[i] * strain[i]
	}
	return 0, math.Abs(Pe), nil
}

// AddLocalizedError accumulates psi[n]*U[n] at each node, a first-order
// approximation of the adjoint-weighted residual (§4.6.2) suitable for
// the manufactured-solution consistency test (S5).
func (o *LinearElement) AddLocalizedError(time float64, errbuf []float64, psi []float64, Xpts [][]float64, U []float64) error {
	for i := range errbuf {
		if i < len(psi) && i < len(U) {
			errbuf[i] += psi[i] * U[i]
		}
	}
	return nil
}
