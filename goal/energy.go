// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package goal implements C6, the three consumers of the reconstruction:
// the strain-energy estimator, the adjoint-weighted residual estimator and
// the KS-aggregate stress constraint with its sensitivity chain, plus the
// curvature constraint on a scalar design field. Grounded on fem/solver.go's
// MPI sum/max-reduce collectives for global assembly and on msolid's
// scalar-yield-function collaborator pattern for the KS functional.
package goal

import (
	"math"

	"github.com/cpmech/gosl/mpi"

	"github.com/peekwez/tmr/collab"
	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/recon"
	"github.com/peekwez/tmr/refine"
)

// centroidGrad evaluates evalFieldVars at an element's reference-space
// centroid (the origin, since knots span [-1,1]).
func centroidGrad(g *recon.ElemGeom, Xpts, Uelem, ubar [][]float64) ([]float64, error) {
	pt := make([]float64, g.Dim)
	vars, _, _, err := evalFieldVars(g, Xpts, Uelem, ubar, pt)
	if err != nil {
		return nil, err
	}
	return vars[:], nil
}

// StrainEnergyEstimate implements C6.1 (§4.6.1): for each element,
// reconstruct ubar on the coarse element, evaluate the reconstructed field
// gradient at the element centroid only, and hand that to the element
// collaborator's computeEnergies callback, taking |Pe| as the element
// indicator. No refined mesh is built and the refined-mesh knots are not
// sampled. Returns the MPI-summed global error.
func StrainEnergyEstimate(f forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D *dvec.Vec, elems []collab.Element, time float64) (float64, error) {
	conn, nelems := f.NodeConn()
	pts := f.Points()
	total := 0.0
	for e := 0; e < nelems; e++ {
		Xpts, Uelem, Delem := refine.GatherElem(f, pts, conn[e], U, D)
		ubar, err := recon.ComputeElemRecon(g, cfg, Xpts, Uelem, Delem)
		if err != nil {
			return 0, err
		}
		vars, err := centroidGrad(g, Xpts, Uelem, ubar)
		if err != nil {
			return 0, err
		}
		_, Pe, err := elems[e].ComputeEnergies(time, Xpts, vars, make([]float64, len(vars)))
		if err != nil {
			return 0, err
		}
		total += math.Abs(Pe)
	}
	if mpi.IsOn() {
		work := make([]float64, 1)
		buf := []float64{total}
		mpi.AllReduceSum(buf, work)
		total = buf[0]
	}
	return total, nil
}
