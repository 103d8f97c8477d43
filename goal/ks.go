// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goal

import (
	"math"

	"github.com/cpmech/gosl/mpi"
	"github.com/cpmech/gosl/num"

	"github.com/peekwez/tmr/collab"
	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/jacobian"
	"github.com/peekwez/tmr/recon"
	"github.com/peekwez/tmr/refine"
)

// ksSweep runs one element/Gauss-point pass shared by phase A and phase B
// of KSStressConstraint, invoking visit(f, detJ, wg) at every non-degenerate
// Gauss point. The Gauss rule reuses the element's own mesh-order knot grid
// and weights (recon.KnotGrid/KnotWeights at g.Order) rather than a
// separate (p+1)-point Gauss-Legendre table, since forest.Knots/Weights
// already double as this module's quadrature rule wherever one is needed
// (see DESIGN.md). x is the global design-variable vector (§4.6.3) every
// constitutive evaluation is taken against.
func ksSweep(f forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D *dvec.Vec, elems []collab.Element, x []float64, visit func(e int, pt forest.Point, fval, detJ, wg float64) error) error {
	conn, nelems := f.NodeConn()
	pts := f.Points()
	grid := recon.KnotGrid(g.Dim, g.Order, g.Knots)
	wk := recon.KnotWeights(g.Dim, g.Order, g.Wvals)

	for e := 0; e < nelems; e++ {
		Xpts, Uelem, Delem := refine.GatherElem(f, pts, conn[e], U, D)
		ubar, err := recon.ComputeElemRecon(g, cfg, Xpts, Uelem, Delem)
		if err != nil {
			return err
		}
		constit := elems[e].Constitutive()

		for kk, pt := range grid {
			vars, detJ, degen, err := evalFieldVars(g, Xpts, Uelem, ubar, pt)
			if err != nil {
				return err
			}
			if degen {
				continue
			}
			N, _ := g.CoarseBasis(pt)
			var phys forest.Point
			coords := [3]float64{}
			for i := range Xpts {
				for a := 0; a < g.Dim; a++ {
					coords[a] += N[i] * Xpts[i][a]
				}
			}
			phys.X, phys.Y, phys.Z = coords[0], coords[1], coords[2]

			fval, err := constit.Failure(phys, vars, x)
			if err != nil {
				return err
			}
			if err := visit(e, phys, fval, detJ, wk[kk]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ksConstraintCore runs KSStressConstraint's two-phase sweep and also
// returns ksFailSum, needed by KSSensitivity's per-Gauss-point KS weight
// but not part of KSStressConstraint's own public contract.
func ksConstraintCore(f forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D *dvec.Vec, elems []collab.Element, x []float64) (ksVal, ksMaxFail, ksFailSum float64, err error) {
	k := cfg.KSWeight

	ksMaxFail = math.Inf(-1)
	if err = ksSweep(f, g, cfg, U, D, elems, x, func(e int, pt forest.Point, fval, detJ, wg float64) error {
		if fval > ksMaxFail {
			ksMaxFail = fval
		}
		return nil
	}); err != nil {
		return 0, 0, 0, err
	}
	if mpi.IsOn() {
		buf := []float64{ksMaxFail}
		work := make([]float64, 1)
		mpi.AllReduceMax(buf, work)
		ksMaxFail = buf[0]
	}

	ksFailSum = 0.0
	if err = ksSweep(f, g, cfg, U, D, elems, x, func(e int, pt forest.Point, fval, detJ, wg float64) error {
		ksFailSum += detJ * wg * math.Exp(k*(fval-ksMaxFail))
		return nil
	}); err != nil {
		return 0, 0, 0, err
	}
	if mpi.IsOn() {
		buf := []float64{ksFailSum}
		work := make([]float64, 1)
		mpi.AllReduceSum(buf, work)
		ksFailSum = buf[0]
	}

	ksVal = ksMaxFail + math.Log(ksFailSum)/k
	return ksVal, ksMaxFail, ksFailSum, nil
}

// KSStressConstraint implements C6.3's primal pass (§4.6.3): a two-phase
// sweep computing, first, the global maximum failure value (MPI max-reduce)
// and, second, the KS aggregation sum (MPI sum-reduce) weighted against
// that maximum. ksVal = ks_max_fail + log(ks_fail_sum)/k.
func KSStressConstraint(f forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D *dvec.Vec, elems []collab.Element, x []float64) (ksVal, ksMaxFail float64, err error) {
	ksVal, ksMaxFail, _, err = ksConstraintCore(f, g, cfg, U, D, elems, x)
	return ksVal, ksMaxFail, err
}

// elemFieldJac rebuilds the volume/shell Jacobian at a reference point,
// the same computation evalFieldVars performs internally, factored out so
// KSSensitivity can chain FailureStrainSens's strain gradient back through
// the coarse and enrichment physical-gradient bases without recomputing
// evalFieldVars's own accumulation.
func elemFieldJac(g *recon.ElemGeom, Xpts [][]float64, pt []float64) (vol jacobian.Result, shell jacobian.ShellResult, dN [][]float64, err error) {
	_, dN = g.CoarseBasis(pt)
	if g.Shell {
		shell, err = jacobian.Shell(Xpts, dN[0], dN[1])
	} else {
		vol, err = jacobian.Volume(Xpts, dN, g.Dim)
	}
	return
}

// KSSensitivity implements C6.3's sensitivity pass (§4.6.3 steps 1-5): the
// analytic reverse-mode chain from ksVal back to the design vector x
// (dfdx, via the constitutive collaborator's direct design sensitivity)
// and to the nodal primal field U (dfdU).
//
// Per Gauss point, with alpha = detJ·wg·exp(k·(fval-ksMaxFail))/ksFailSum
// the KS aggregate's own per-point weight (dksVal/dfval):
//  1. alpha·df/dx is accumulated directly via AddFailureDVSens.
//  2. df/dstrain (FailureStrainSens) is chained through the same coarse
//     and enrichment physical gradients evalFieldVars used to build the
//     strain, giving a local df/dUelem and df/dubar.
//  3. df/dubar is chained through C4's own sensitivity operators
//     (factorU, factorD — §4.6.3 step 3's dubar_duderiv = Ainv, exposed
//     by recon.ComputeElemReconSens) into an additional df/dUelem term
//     and a local df/dDelem ("dfduderiv").
//  4. The element-local df/dU and df/dDelem are each finalize-added
//     (shared nodes receive every touching element's contribution).
//  5. recon.TransposeNodeDeriv (§4.6.3's "duderiv/du" C3-transpose)
//     carries the finalized df/dDelem back through C3's own broadcast
//     into the remaining df/dU contribution, added to step 4's direct one.
func KSSensitivity(f forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D *dvec.Vec, elems []collab.Element, x []float64) (dfdx []float64, dfdU *dvec.Vec, err error) {
	k := cfg.KSWeight
	_, ksMaxFail, ksFailSum, err := ksConstraintCore(f, g, cfg, U, D, elems, x)
	if err != nil {
		return nil, nil, err
	}

	conn, nelems := f.NodeConn()
	pts := f.Points()
	vpn := f.VarsPerNode()
	grid := recon.KnotGrid(g.Dim, g.Order, g.Knots)
	wk := recon.KnotWeights(g.Dim, g.Order, g.Wvals)
	rows := g.Dim
	if g.Shell {
		rows = 2
	}

	dfdx = make([]float64, len(x))
	dfdUDirect := dvec.New(len(pts), 1, f.DepNodes())
	dfdDLocal := dvec.New(len(pts), 3*vpn, f.DepNodes())

	for e := 0; e < nelems; e++ {
		nodes := conn[e]
		Xpts, Uelem, Delem := refine.GatherElem(f, pts, nodes, U, D)
		ubar, factorU, factorD, err := recon.ComputeElemReconSens(g, cfg, Xpts, Uelem, Delem)
		if err != nil {
			return nil, nil, err
		}
		constit := elems[e].Constitutive()

		dfdUelem := make([]float64, len(Uelem)) // local df/dUelem[i] (channel 0)
		dfdubar := make([]float64, len(ubar))   // local df/dubar[r] (channel 0)

		for kk, pt := range grid {
			vars, detJ, degen, err := evalFieldVars(g, Xpts, Uelem, ubar, pt)
			if err != nil {
				return nil, nil, err
			}
			if degen {
				continue
			}
			N, _ := g.CoarseBasis(pt)
			var phys forest.Point
			coords := [3]float64{}
			for i := range Xpts {
				for a := 0; a < g.Dim; a++ {
					coords[a] += N[i] * Xpts[i][a]
				}
			}
			phys.X, phys.Y, phys.Z = coords[0], coords[1], coords[2]

			fval, err := constit.Failure(phys, vars, x)
			if err != nil {
				return nil, nil, err
			}
			alpha := detJ * wk[kk] * math.Exp(k*(fval-ksMaxFail)) / ksFailSum

			// step 1: ∂f/∂x (design), direct
			if err := constit.AddFailureDVSens(phys, vars, x, alpha, dfdx); err != nil {
				return nil, nil, err
			}

			// step 2: ∂f/∂U, ∂f/∂ubar via the strain gradient, chained
			// through the same physical-gradient bases evalFieldVars used.
			dfde, err := constit.FailureStrainSens(phys, vars, x)
			if err != nil {
				return nil, nil, err
			}
			vol, shell, dN, err := elemFieldJac(g, Xpts, pt)
			if err != nil {
				return nil, nil, err
			}
			for i := range Uelem {
				dNi := make([]float64, g.Dim)
				for a := 0; a < g.Dim; a++ {
					dNi[a] = dN[a][i]
				}
				pg := recon.LocalGrad(g, vol, shell, dNi)
				sum := 0.0
				for a := range pg {
					if a < 6 {
						sum += dfde[a] * pg[a]
					}
				}
				dfdUelem[i] += alpha * sum
			}
			_, enrDN := g.EnrichDeriv(pt)
			for r := range ubar {
				dNe := make([]float64, g.Dim)
				for a := 0; a < g.Dim; a++ {
					dNe[a] = enrDN[a][r]
				}
				pg := recon.LocalGrad(g, vol, shell, dNe)
				sum := 0.0
				for a := range pg {
					if a < 6 {
						sum += dfde[a] * pg[a]
					}
				}
				dfdubar[r] += alpha * sum
			}
		}

		// step 3: chain df/dubar back through C4's own sensitivity
		// operators (dubar_duderiv = Ainv, exposed as factorU/factorD).
		for i := range nodes {
			for r := range ubar {
				dfdUelem[i] += dfdubar[r] * factorU[i][r]
			}
		}
		dfdDelem := make([][]float64, len(nodes))
		for i := range dfdDelem {
			dfdDelem[i] = make([]float64, 3*vpn)
			for a := 0; a < rows && a < 3; a++ {
				sum := 0.0
				for r := range ubar {
					sum += dfdubar[r] * factorD[i][r][a]
				}
				dfdDelem[i][a*vpn] = sum
			}
		}

		// step 4: deposit this element's local df/dU and df/dDelem
		// ("dfduderiv") into their nodal vectors.
		for i, n := range nodes {
			dfdUDirect.AddValues([]int{n}, [][]float64{{dfdUelem[i]}})
			dfdDLocal.AddValues([]int{n}, [][]float64{dfdDelem[i]})
		}
	}

	dfdUDirect.BeginFinalize()
	dfdUDirect.EndFinalize()
	dfdUDirect.BeginDistribute()
	dfdUDirect.EndDistribute()
	dfdDLocal.BeginFinalize()
	dfdDLocal.EndFinalize()
	dfdDLocal.BeginDistribute()
	dfdDLocal.EndDistribute()

	// step 5: duderiv/du transpose — recon.ComputeNodeDeriv's own adjoint.
	w := recon.ComputeWeights(f)
	dfdUFromD, err := recon.TransposeNodeDeriv(f, dfdDLocal, w)
	if err != nil {
		return nil, nil, err
	}

	dfdU = dvec.New(len(pts), 1, f.DepNodes())
	rawOut, rawDirect, rawFromD := dfdU.Raw(), dfdUDirect.Raw(), dfdUFromD.Raw()
	for i := range rawOut {
		rawOut[i] = rawDirect[i] + rawFromD[i]
	}

	if mpi.IsOn() {
		work := make([]float64, len(dfdx))
		mpi.AllReduceSum(dfdx, work)
	}
	return dfdx, dfdU, nil
}

// KSDerivFD evaluates d(ksVal)/dx_i for design-vector entry i by central
// difference (gosl's num.DerivCen), the S4 cross-check (§8, testable
// property 6) for KSSensitivity's analytic dfdx.
func KSDerivFD(f forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D *dvec.Vec, elems []collab.Element, x []float64, i int) (float64, error) {
	var evalErr error
	d := num.DerivCen(func(xi float64, args ...interface{}) (res float64) {
		orig := x[i]
		x[i] = xi
		v, _, err := KSStressConstraint(f, g, cfg, U, D, elems, x)
		x[i] = orig
		if err != nil {
			evalErr = err
		}
		return v
	}, x[i])
	return d, evalErr
}
