// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package recon implements C3 (the nodal-derivative projector) and C4 (the
// patch reconstruction). Grounded on shp/algos.go's Extrapolator (the
// extrapolate-then-weighted-average pattern reused here for C3's nodal
// gradient projection) and on its la.MatInvG-based rank-revealing solve
// (reused directly for C4's overdetermined enrichment fit).
package recon

import (
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/jacobian"
)

// ComputeWeights returns w, the per-node reference count used by C3 and C5
// (§3): w[n] is the number of elements that reference node n through a
// non-dependent slot.
func ComputeWeights(f forest.Forest) []float64 {
	conn, nelems := f.NodeConn()
	w := make([]float64, len(f.Points()))
	for e := 0; e < nelems; e++ {
		for _, n := range conn[e] {
			if !forest.IsDependent(n) {
				w[n]++
			}
		}
	}
	return w
}

// PhysGrad returns Jᵀ·dNref, the physical-space gradient of one shape
// function given its reference-space derivative components (§4.3 step 4).
func PhysGrad(jac jacobian.Result, dNref []float64, dim int) []float64 {
	out := make([]float64, dim)
	for a := 0; a < dim; a++ {
		sum := 0.0
		for b := 0; b < dim; b++ {
			sum += jac.J[b][a] * dNref[b]
		}
		out[a] = sum
	}
	return out
}

// NodePoint returns the physical coordinates of node n: the forest's own
// point for an independent node, or the dependent-weighted average of its
// contributors' points for a hanging node (geometry is continuous across a
// hanging-node interface, so its position is the same weighted combination
// used to resolve field values there).
func NodePoint(f forest.Forest, pts []forest.Point, n int) forest.Point {
	if !forest.IsDependent(n) {
		return pts[n]
	}
	nodes, weights, ok := f.DepNodes().Contribs(n)
	if !ok {
		return forest.Point{}
	}
	var p forest.Point
	for i, indep := range nodes {
		p.X += weights[i] * pts[indep].X
		p.Y += weights[i] * pts[indep].Y
		p.Z += weights[i] * pts[indep].Z
	}
	return p
}

// ComputeNodeDeriv implements C3 (§4.3): computeNodeDeriv(forest, U, w) → D.
// D is a dvec.Vec of width 3*varsPerNode; components beyond the mesh's own
// spatial dimension are left at zero.
func ComputeNodeDeriv(f forest.Forest, U *dvec.Vec, w []float64) (*dvec.Vec, error) {
	forest.RequireForest(f)
	dim := f.Dim()
	p, knots := f.Order()
	varsPerNode := f.VarsPerNode()
	conn, nelems := f.NodeConn()
	pts := f.Points()

	D := dvec.New(len(pts), 3*varsPerNode, f.DepNodes())
	grid := KnotGrid(dim, p, knots)

	N := make([]float64, len(conn[0]))
	dN := make([][]float64, dim)
	for a := range dN {
		dN[a] = make([]float64, len(conn[0]))
	}
	Uvals := make([][]float64, 1)
	Uvals[0] = make([]float64, varsPerNode)

	for e := 0; e < nelems; e++ {
		nodes := conn[e]
		Xpts := make([][]float64, len(nodes))
		for i, n := range nodes {
			pt := NodePoint(f, pts, n)
			Xpts[i] = pt.Array()[:dim]
		}
		for kk, pt := range grid {
			if err := f.EvalInterp(pt, N, dN); err != nil {
				return nil, err
			}
			jac, err := jacobian.Volume(Xpts, dN, dim)
			if err != nil {
				return nil, err
			}
			if jac.Degen {
				continue // §7: degenerate element, skip this contribution
			}
			// Ud[a][c] = Σ_i dN[a][i]·U[i][c] (reference-space gradient)
			Ud := make([][]float64, dim)
			for a := range Ud {
				Ud[a] = make([]float64, varsPerNode)
			}
			for i, n := range nodes {
				U.GetValues([]int{n}, Uvals)
				for a := 0; a < dim; a++ {
					for c := 0; c < varsPerNode; c++ {
						Ud[a][c] += dN[a][i] * Uvals[0][c]
					}
				}
			}
			// physical gradient = Jᵀ·Ud, one column per variable
			grad := make([][]float64, dim)
			for c := 0; c < varsPerNode; c++ {
				col := make([]float64, dim)
				for a := 0; a < dim; a++ {
					col[a] = Ud[a][c]
				}
				pg := PhysGrad(jac, col, dim)
				for a := 0; a < dim; a++ {
					if grad[a] == nil {
						grad[a] = make([]float64, varsPerNode)
					}
					grad[a][c] = pg[a]
				}
			}
			// the gradient sampled at knot kk goes to the node at that knot
			for _, n := range nodes[kk : kk+1] {
				if forest.IsDependent(n) {
					continue // §4.3: zero the contribution to a dependent slot
				}
				if w[n] <= 0 {
					continue
				}
				val := make([]float64, 3*varsPerNode)
				for a := 0; a < dim; a++ {
					for c := 0; c < varsPerNode; c++ {
						val[a*varsPerNode+c] = grad[a][c] / w[n]
					}
				}
				D.AddValues([]int{n}, [][]float64{val})
			}
		}
	}

	D.BeginFinalize()
	D.EndFinalize()
	D.BeginDistribute()
	D.EndDistribute()
	return D, nil
}

// TransposeNodeDeriv implements the adjoint of ComputeNodeDeriv (§4.6.3
// step 5's "duderiv/du" transpose, also reused by C6.4's curvature
// sensitivity): given a covector dfdD over the D field ComputeNodeDeriv
// produces, it returns dfdU, the matching covector over U.
//
// ComputeNodeDeriv's forward sweep is, per element and knot, "compute one
// physical gradient from all of the element's nodal U values, then add it
// (divided by w[n]) to the node n sitting at that knot". Its transpose
// mirrors the sweep exactly: gather S[a][c] = dfdD[n][a,c]/w[n] from that
// same node, then scatter PhysGrad_i[a]·S[a][c] into every node i's dfdU
// contribution — the same physical-gradient coefficients the forward pass
// used, run the other way round.
//
// A node's dfdD/dfdU entries are themselves read through dependent-node
// resolution in the callers this supports (ComputeElemReconSens's Delem
// gather, via dvec's own GetValues), so this function routes its own
// reads/writes through the same dependent table (GetValues to gather,
// AddValues to scatter) rather than skipping dependent nodes outright.
func TransposeNodeDeriv(f forest.Forest, dfdD *dvec.Vec, w []float64) (*dvec.Vec, error) {
	forest.RequireForest(f)
	dim := f.Dim()
	p, knots := f.Order()
	varsPerNode := f.VarsPerNode()
	conn, nelems := f.NodeConn()
	pts := f.Points()

	dfdU := dvec.New(len(pts), varsPerNode, f.DepNodes())
	grid := KnotGrid(dim, p, knots)

	N := make([]float64, len(conn[0]))
	dN := make([][]float64, dim)
	for a := range dN {
		dN[a] = make([]float64, len(conn[0]))
	}
	gv := [][]float64{make([]float64, 3*varsPerNode)}

	for e := 0; e < nelems; e++ {
		nodes := conn[e]
		Xpts := make([][]float64, len(nodes))
		for i, n := range nodes {
			pt := NodePoint(f, pts, n)
			Xpts[i] = pt.Array()[:dim]
		}
		for kk, pt := range grid {
			if err := f.EvalInterp(pt, N, dN); err != nil {
				return nil, err
			}
			jac, err := jacobian.Volume(Xpts, dN, dim)
			if err != nil {
				return nil, err
			}
			if jac.Degen {
				continue
			}

			// gather: S[a][c] = dfdD[n][a,c]/w[n] for the node n at knot kk
			// (left at zero if n is dependent)
			S := make([][]float64, dim)
			for a := range S {
				S[a] = make([]float64, varsPerNode)
			}
			for _, n := range nodes[kk : kk+1] {
				if forest.IsDependent(n) || w[n] <= 0 {
					continue // §4.3: C3 never writes a dependent D-slot
				}
				dfdD.GetValues([]int{n}, gv)
				for a := 0; a < dim; a++ {
					for c := 0; c < varsPerNode; c++ {
						S[a][c] += gv[0][a*varsPerNode+c] / w[n]
					}
				}
			}

			// scatter: dfdU[n] += PhysGrad_n[a]·S[a][c], for every node of
			// this element (dependent routing handled by AddValues, the
			// adjoint of the weighted read GatherElem performs on U).
			for i, n := range nodes {
				dNi := make([]float64, dim)
				for a := 0; a < dim; a++ {
					dNi[a] = dN[a][i]
				}
				pg := PhysGrad(jac, dNi, dim)
				val := make([]float64, varsPerNode)
				for c := 0; c < varsPerNode; c++ {
					sum := 0.0
					for a := 0; a < dim; a++ {
						sum += pg[a] * S[a][c]
					}
					val[c] = sum
				}
				dfdU.AddValues([]int{n}, [][]float64{val})
			}
		}
	}

	dfdU.BeginFinalize()
	dfdU.EndFinalize()
	dfdU.BeginDistribute()
	dfdU.EndDistribute()
	return dfdU, nil
}

// KnotGrid enumerates the p^dim tensor-product knot positions in the same
// i-fastest, then j, then k order used by forest node connectivity, so that
// grid[idx] lines up with conn[e][idx].
func KnotGrid(dim, p int, knots []float64) [][]float64 {
	var grid [][]float64
	if dim == 2 {
		for j := 0; j < p; j++ {
			for i := 0; i < p; i++ {
				grid = append(grid, []float64{knots[i], knots[j]})
			}
		}
		return grid
	}
	for k := 0; k < p; k++ {
		for j := 0; j < p; j++ {
			for i := 0; i < p; i++ {
				grid = append(grid, []float64{knots[i], knots[j], knots[k]})
			}
		}
	}
	return grid
}

// KnotWeights enumerates wvals[i]*wvals[j]*(*wvals[k]) in the same order as
// KnotGrid (§4.4).
func KnotWeights(dim, p int, wvals []float64) []float64 {
	var out []float64
	if dim == 2 {
		for j := 0; j < p; j++ {
			for i := 0; i < p; i++ {
				out = append(out, wvals[i]*wvals[j])
			}
		}
		return out
	}
	for k := 0; k < p; k++ {
		for j := 0; j < p; j++ {
			for i := 0; i < p; i++ {
				out = append(out, wvals[i]*wvals[j]*wvals[k])
			}
		}
	}
	return out
}
