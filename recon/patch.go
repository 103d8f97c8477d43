// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recon

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"

	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/enrich"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/jacobian"
)

// ElemGeom carries the per-element geometric context computeElemRecon needs
// but the public contract (§4.4) leaves implicit: mesh order, enrichment
// order, and a coarse-basis evaluator bound to one Forest. Constructed once
// per forest and reused across elements.
type ElemGeom struct {
	Dim         int
	Order       int
	EnrichOrder int
	VarsPerNode int
	Shell       bool
	Knots       []float64
	Wvals       []float64
	CoarseBasis func(pt []float64) (N []float64, dN [][]float64)
}

// NewElemGeom builds an ElemGeom bound to forest f, evaluating the coarse
// basis through f.EvalInterp (§6 evalInterp).
func NewElemGeom(f forest.Forest, enrichOrder int, shell bool) *ElemGeom {
	dim := f.Dim()
	p, knots := f.Order()
	nverts := 1
	for a := 0; a < dim; a++ {
		nverts *= p
	}
	return &ElemGeom{
		Dim:         dim,
		Order:       p,
		EnrichOrder: enrichOrder,
		VarsPerNode: f.VarsPerNode(),
		Shell:       shell,
		Knots:       knots,
		Wvals:       forest.Weights(p),
		CoarseBasis: func(pt []float64) (N []float64, dN [][]float64) {
			N = make([]float64, nverts)
			dN = make([][]float64, dim)
			for a := range dN {
				dN[a] = make([]float64, nverts)
			}
			if err := f.EvalInterp(pt, N, dN); err != nil {
				panic(err)
			}
			return
		},
	}
}

// EnrichBasis evaluates just the enrichment values N(pt) (C1), for callers
// (refine/) that only need to evaluate the reconstructed field, not build
// the least-squares system.
func (g *ElemGeom) EnrichBasis(pt []float64) []float64 {
	N, _ := g.enrichEval(pt)
	return N
}

// EnrichDeriv evaluates the enrichment basis and its reference-space
// derivatives (C1), for callers (goal/) that need the enrichment
// contribution to a field gradient, not just its value.
func (g *ElemGeom) EnrichDeriv(pt []float64) (N []float64, dN [][]float64) {
	return g.enrichEval(pt)
}

// LocalGrad is the exported form of localGrad, used by goal/ to build the
// physical (or shell-local) gradient of a shape function from a previously
// computed volume or shell Jacobian.
func LocalGrad(g *ElemGeom, vol jacobian.Result, shell jacobian.ShellResult, dNref []float64) []float64 {
	return localGrad(g, vol, shell, dNref)
}

// enrichEval evaluates the enrichment basis (C1) at a reference-space
// point, returning N and its derivatives along each reference axis.
func (g *ElemGeom) enrichEval(pt []float64) (N []float64, dN [][]float64) {
	if g.Dim == 2 {
		n, dxi, deta := enrich.Eval2D(g.EnrichOrder, pt[0], pt[1])
		return n, [][]float64{dxi, deta}
	}
	n, dxi, deta, dzeta := enrich.Eval3D(g.EnrichOrder, pt[0], pt[1], pt[2])
	return n, [][]float64{dxi, deta, dzeta}
}

// rowAxes returns the number of least-squares rows contributed by one knot
// position: 2 for a 2D-shell element (local d1,d2 frame), else Dim (§4.4).
func (g *ElemGeom) rowAxes() int {
	if g.Shell {
		return 2
	}
	return g.Dim
}

// localGrad returns the physical (or, for a shell, local in-plane) gradient
// of a shape function given its reference-space derivative components.
func localGrad(g *ElemGeom, vol jacobian.Result, shell jacobian.ShellResult, dNref []float64) []float64 {
	if !g.Shell {
		return PhysGrad(vol, dNref, g.Dim)
	}
	out := make([]float64, 2)
	for a := 0; a < 2; a++ {
		sum := 0.0
		for b := 0; b < 2; b++ {
			sum += shell.Jinv[b][a] * dNref[b]
		}
		out[a] = sum
	}
	return out
}

// ComputeElemRecon implements C4 (§4.4): computeElemRecon(Xpts, Uelem,
// Delem) → ubar, an overdetermined weighted least-squares fit of the
// enrichment coefficients against the mismatch between the prescribed
// nodal derivatives and the coarse interpolation's own derivative, solved
// by a rank-revealing pseudo-inverse (gosl's la.MatInvG) so that a
// degenerate or under-determined patch degrades to its minimum-norm
// solution rather than failing. It is ComputeElemReconSens with the
// sensitivity outputs discarded.
func ComputeElemRecon(g *ElemGeom, cfg *config.Config, Xpts [][]float64, Uelem, Delem [][]float64) (ubar [][]float64, err error) {
	ubar, _, _, err = ComputeElemReconSens(g, cfg, Xpts, Uelem, Delem)
	return ubar, err
}

// ComputeElemReconSens implements C4's forward fit (§4.4) together with the
// linear operators §4.6.3 steps 2-3 need to differentiate through it:
// since ubar = Ainv·B and B is linear in Uelem (via the coarse gradient
// subtracted into B) and in Delem (via the prescribed-derivative term
// added into B), dubar/dUelem and dubar/dDelem reduce to Ainv acting on
// the same per-knot coefficients (pg, N) the forward pass already
// evaluates — no separate differentiation of the least-squares system is
// needed, only bookkeeping of what it already computes.
//
// factorU[node][enrich] = dubar[enrich][c]/dUelem[node][c] and
// factorD[node][enrich][axis] = dubar[enrich][c]/dDelem[node][axis*VarsPerNode+c],
// both independent of c since B never mixes variable components.
func ComputeElemReconSens(g *ElemGeom, cfg *config.Config, Xpts [][]float64, Uelem, Delem [][]float64) (ubar [][]float64, factorU [][]float64, factorD [][][]float64, err error) {
	grid := KnotGrid(g.Dim, g.Order, g.Knots)
	wk := KnotWeights(g.Dim, g.Order, g.Wvals)
	rows := g.rowAxes()
	nenrich := enrich.Count(g.EnrichOrder, g.Dim)
	neq := rows * len(grid)
	nnodes := len(Uelem)

	A := la.MatAlloc(neq, nenrich)
	B := la.MatAlloc(neq, g.VarsPerNode)

	// cached per non-degenerate knot: the coarse basis's own physical
	// gradient and value at every node, reused below (once Ainv is known)
	// to build factorU/factorD.
	nodePG := make([][][]float64, len(grid))
	nodeN := make([][]float64, len(grid))

	for kk, pt := range grid {
		N, dN := g.CoarseBasis(pt)

		var vol jacobian.Result
		var shell jacobian.ShellResult
		if g.Shell {
			shell, err = jacobian.Shell(Xpts, dN[0], dN[1])
			if err != nil {
				return nil, nil, nil, err
			}
			if shell.Degen {
				continue
			}
		} else {
			vol, err = jacobian.Volume(Xpts, dN, g.Dim)
			if err != nil {
				return nil, nil, nil, err
			}
			if vol.Degen {
				continue
			}
		}

		// coarse low-order gradient at this knot: Σ_i physGrad(dN_i)·U_i
		pgNode := make([][]float64, nnodes)
		coarseGrad := make([][]float64, rows)
		for a := range coarseGrad {
			coarseGrad[a] = make([]float64, g.VarsPerNode)
		}
		for i := range Uelem {
			dNi := make([]float64, g.Dim)
			for a := 0; a < g.Dim; a++ {
				dNi[a] = dN[a][i]
			}
			pg := localGrad(g, vol, shell, dNi)
			pgNode[i] = pg
			for a := 0; a < rows; a++ {
				for c := 0; c < g.VarsPerNode; c++ {
					coarseGrad[a][c] += pg[a] * Uelem[i][c]
				}
			}
		}
		nodePG[kk] = pgNode
		nodeN[kk] = append([]float64{}, N[:nnodes]...)

		// prescribed nodal derivative interpolated at this knot
		dprescribed := make([][]float64, rows)
		for a := range dprescribed {
			dprescribed[a] = make([]float64, g.VarsPerNode)
		}
		for i := range Delem {
			for a := 0; a < rows && a < 3; a++ {
				for c := 0; c < g.VarsPerNode; c++ {
					dprescribed[a][c] += N[i] * Delem[i][a*g.VarsPerNode+c]
				}
			}
		}

		enrN, enrDN := g.enrichEval(pt)
		for a := 0; a < rows; a++ {
			row := kk*rows + a
			for c := 0; c < g.VarsPerNode; c++ {
				B[row][c] = wk[kk] * (dprescribed[a][c] - coarseGrad[a][c])
			}
			for e := 0; e < nenrich; e++ {
				dNe := make([]float64, g.Dim)
				for b := 0; b < g.Dim; b++ {
					dNe[b] = enrDN[b][e]
				}
				pg := localGrad(g, vol, shell, dNe)
				A[row][e] = wk[kk] * pg[a]
			}
		}
		_ = enrN
	}

	tol := cfg.LstSqTol
	Ainv := la.MatAlloc(nenrich, neq)
	if err = la.MatInvG(Ainv, A, tol); err != nil {
		return nil, nil, nil, chk.Err("recon: rank-revealing solve failed: %v", err)
	}
	ubar = la.MatAlloc(nenrich, g.VarsPerNode)
	la.MatMul(ubar, 1.0, Ainv, B)

	// §4.6.3 step 3: dubar_duderiv = Ainv, the same generalized inverse
	// C4 already solved for; B[row][c]'s -wk·pg(Uelem) and +wk·N(Delem)
	// terms make dB/dUelem and dB/dDelem read off directly.
	factorU = make([][]float64, nnodes)
	factorD = make([][][]float64, nnodes)
	for i := 0; i < nnodes; i++ {
		factorU[i] = make([]float64, nenrich)
		factorD[i] = make([][]float64, nenrich)
		for r := 0; r < nenrich; r++ {
			factorD[i][r] = make([]float64, rows)
		}
	}
	for kk := range grid {
		if nodePG[kk] == nil {
			continue // degenerate knot: forward pass skipped it too
		}
		for a := 0; a < rows; a++ {
			row := kk*rows + a
			for i := 0; i < nnodes; i++ {
				pgia := nodePG[kk][i][a]
				ni := nodeN[kk][i]
				for r := 0; r < nenrich; r++ {
					factorU[i][r] += Ainv[r][row] * (-wk[kk] * pgia)
					factorD[i][r][a] += Ainv[r][row] * wk[kk] * ni
				}
			}
		}
	}
	return ubar, factorU, factorD, nil
}
