// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goal

import (
	"math"

	"github.com/cpmech/gosl/mpi"

	"github.com/peekwez/tmr/collab"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/recon"
)

// localCoords decodes a tensor-product local node index into its (i,j[,k])
// axis coordinates, inverse of the i-fastest ordering used throughout this
// module's connectivity.
func localCoords(idx, p, dim int) []int {
	if dim == 2 {
		return []int{idx % p, idx / p}
	}
	iz := idx / (p * p)
	rem := idx % (p * p)
	iy := rem / p
	ix := rem % p
	return []int{ix, iy, iz}
}

// isCornerLocal reports whether local node idx sits at one of the element's
// 2^dim outermost corners (§4.6.2: "indexed by (refined_order−1)").
func isCornerLocal(idx, p, dim int) bool {
	for _, c := range localCoords(idx, p, dim) {
		if c != 0 && c != p-1 {
			return false
		}
	}
	return true
}

// AdjointResidualEstimate implements C6.2 (§4.6.2): given the refined
// primal field Uref and refined adjoint correction psi, deposit each
// element's localized error via the collaborator's AddLocalizedError,
// finalize-add and distribute the nodal error vector, then sum the
// finalized corner-node values into a per-element indicator weighted by
// ¼ (2D) or ⅛ (3D). Returns the MPI-summed absolute total error and the
// MPI-summed raw correction.
func AdjointResidualEstimate(fr forest.Forest, elems []collab.Element, Uref, Psi *dvec.Vec, time float64) (totalError, correction float64, err error) {
	connR, nelems := fr.NodeConn()
	pts := fr.Points()
	p, _ := fr.Order()
	dim := fr.Dim()

	errVec := dvec.New(len(pts), 1, fr.DepNodes())
	uv := [][]float64{{0}}
	pv := [][]float64{{0}}

	for e := 0; e < nelems; e++ {
		nodes := connR[e]
		Xpts := make([][]float64, len(nodes))
		Ulocal := make([]float64, len(nodes))
		Psilocal := make([]float64, len(nodes))
		for i, n := range nodes {
			Xpts[i] = recon.NodePoint(fr, pts, n).Array()[:dim]
			Uref.GetValues([]int{n}, uv)
			Ulocal[i] = uv[0][0]
			Psi.GetValues([]int{n}, pv)
			Psilocal[i] = pv[0][0]
		}
		errbuf := make([]float64, len(nodes))
		if err = elems[e].AddLocalizedError(time, errbuf, Psilocal, Xpts, Ulocal); err != nil {
			return 0, 0, err
		}
		for i, n := range nodes {
			if forest.IsDependent(n) {
				continue
			}
			errVec.AddValues([]int{n}, [][]float64{{errbuf[i]}})
		}
		for _, v := range errbuf {
			correction += v
		}
	}

	errVec.BeginFinalize()
	errVec.EndFinalize()
	errVec.BeginDistribute()
	errVec.EndDistribute()

	cornerWeight := 0.25
	if dim == 3 {
		cornerWeight = 0.125
	}
	ev := [][]float64{{0}}
	for e := 0; e < nelems; e++ {
		nodes := connR[e]
		sum := 0.0
		for i, n := range nodes {
			if !isCornerLocal(i, p, dim) {
				continue
			}
			errVec.GetValues([]int{n}, ev)
			sum += ev[0][0]
		}
		totalError += math.Abs(sum) * cornerWeight
	}

	if mpi.IsOn() {
		buf := []float64{totalError, correction}
		work := make([]float64, 2)
		mpi.AllReduceSum(buf, work)
		totalError, correction = buf[0], buf[1]
	}
	return totalError, correction, nil
}
