// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package refine implements C5, the refined-field builder: it stitches the
// coarse field plus the per-element enrichment correction (computed by
// recon.ComputeElemRecon) onto a higher-order embedded mesh, or, via
// ComputeInterpSolution, skips the enrichment step altogether. Grounded on
// the same extrapolate/add/average pattern as recon (out/extrap.go), one
// level up: here the target is a second, refined Forest rather than the
// coarse mesh's own vertices.
package refine

import (
	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/recon"
)

// computeRefinedWeights counts, for each node of fr, how many elements in
// elems reference it through a non-dependent slot (§4.5's "refined-mesh
// weight").
func computeRefinedWeights(fr forest.Forest, elems []int) []float64 {
	connR, nelemsR := fr.NodeConn()
	w := make([]float64, len(fr.Points()))
	if elems == nil {
		elems = allElems(nelemsR)
	}
	for _, e := range elems {
		for _, n := range connR[e] {
			if !forest.IsDependent(n) {
				w[n]++
			}
		}
	}
	return w
}

func allElems(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// GatherElem reads Xpts, Uelem and Delem for one coarse element's node set.
func GatherElem(f forest.Forest, pts []forest.Point, nodes []int, U, D *dvec.Vec) (Xpts, Uelem, Delem [][]float64) {
	dim := f.Dim()
	varsPerNode := f.VarsPerNode()
	Xpts = make([][]float64, len(nodes))
	Uelem = make([][]float64, len(nodes))
	Delem = make([][]float64, len(nodes))
	uv := [][]float64{make([]float64, varsPerNode)}
	dv := [][]float64{make([]float64, 3*varsPerNode)}
	for i, n := range nodes {
		Xpts[i] = recon.NodePoint(f, pts, n).Array()[:dim]
		U.GetValues([]int{n}, uv)
		Uelem[i] = append([]float64{}, uv[0]...)
		D.GetValues([]int{n}, dv)
		Delem[i] = append([]float64{}, dv[0]...)
	}
	return
}

// AddRefinedSolution implements C5's addRefinedSolution (§4.5): for each
// element in elems (all elements of f if elems is nil), compute ubar via
// C4 and sum the reconstructed (or, if diffOnly, delta-only) field at every
// knot of the corresponding refined element into Uref. Uref must already be
// allocated over fr's node range; it is not zeroed by this call.
//
// The normalization ("add-then-divide-by-count") is applied once at the end
// of this call over exactly the node range touched by elems, per §4.5's
// per-group restriction. The divisor counts only this call's elems, and
// whatever Uref already held at those nodes is divided along with this
// call's sums.
func AddRefinedSolution(f, fr forest.Forest, g *recon.ElemGeom, cfg *config.Config, U, D, Uref *dvec.Vec, diffOnly bool, elems []int) error {
	forest.RequireForest(f)
	forest.RequireForest(fr)

	conn, nelems := f.NodeConn()
	connR, _ := fr.NodeConn()
	pts := f.Points()
	ptsR := fr.Points()
	pr, knotsR := fr.Order()
	gridR := recon.KnotGrid(fr.Dim(), pr, knotsR)

	if elems == nil {
		elems = allElems(nelems)
	}

	for _, e := range elems {
		nodes := conn[e]
		Xpts, Uelem, Delem := GatherElem(f, pts, nodes, U, D)

		ubar, err := recon.ComputeElemRecon(g, cfg, Xpts, Uelem, Delem)
		if err != nil {
			return err
		}

		nodesR := connR[e]
		for j, ptR := range gridR {
			node := nodesR[j]
			if forest.IsDependent(node) {
				continue // §4.5: dependent-slot entries are zeroed before assembly
			}
			val := make([]float64, g.VarsPerNode)
			if !diffOnly {
				N, _ := g.CoarseBasis(ptR)
				for i := range Uelem {
					for c := 0; c < g.VarsPerNode; c++ {
						val[c] += N[i] * Uelem[i][c]
					}
				}
			}
			Nenr := g.EnrichBasis(ptR)
			for r := range ubar {
				for c := 0; c < g.VarsPerNode; c++ {
					val[c] += Nenr[r] * ubar[r][c]
				}
			}
			Uref.AddValues([]int{node}, [][]float64{val})
		}
	}

	Uref.BeginFinalize()
	Uref.EndFinalize()
	Uref.BeginDistribute()
	Uref.EndDistribute()

	wr := computeRefinedWeights(fr, elems)
	raw := Uref.Raw()
	width := Uref.Width()
	for n := range ptsR {
		if wr[n] <= 0 {
			continue
		}
		off := n * width
		for k := 0; k < width; k++ {
			raw[off+k] /= wr[n]
		}
	}
	return nil
}

// ComputeInterpSolution implements C5's alternative computeInterpSolution
// path (§4.5): skip enrichment and interpolate the coarse field directly at
// refined-mesh knots with insert-nonzero semantics (no averaging needed).
func ComputeInterpSolution(f, fr forest.Forest, g *recon.ElemGeom, U, Uref *dvec.Vec, elems []int) error {
	forest.RequireForest(f)
	forest.RequireForest(fr)

	conn, nelems := f.NodeConn()
	connR, _ := fr.NodeConn()
	pr, knotsR := fr.Order()
	gridR := recon.KnotGrid(fr.Dim(), pr, knotsR)

	if elems == nil {
		elems = allElems(nelems)
	}

	varsPerNode := f.VarsPerNode()
	uv := [][]float64{make([]float64, varsPerNode)}
	for _, e := range elems {
		nodes := conn[e]
		Uelem := make([][]float64, len(nodes))
		for i, n := range nodes {
			U.GetValues([]int{n}, uv)
			Uelem[i] = append([]float64{}, uv[0]...)
		}

		nodesR := connR[e]
		for j, ptR := range gridR {
			node := nodesR[j]
			if forest.IsDependent(node) {
				continue
			}
			N, _ := g.CoarseBasis(ptR)
			val := make([]float64, varsPerNode)
			for i := range Uelem {
				for c := 0; c < varsPerNode; c++ {
					val[c] += N[i] * Uelem[i][c]
				}
			}
			Uref.InsertNonzero([]int{node}, [][]float64{val})
		}
	}
	return nil
}
