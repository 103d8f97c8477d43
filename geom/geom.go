// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package geom implements §9 Design Notes' redesign of the original
// TMRCurve/TMRSurface/TMREntity virtual hierarchy: a small capability
// interface over {evalPoint, evalDeriv, getRange, invEvalPoint}. Curves
// and surfaces are out of this module's core scope (§1); they only show
// up at the external-collaborator boundary of §6, so this package exists
// to give that boundary a concrete, ecosystem-grounded implementation
// rather than leave it an unimplemented interface. Grounded on
// PaddySchmidt-gofem/shp/nurbs.go's nurbs_func (CalcBasis/
// CalcBasisAndDerivs → GetBasisL/GetDerivL sequence) and on
// mallano-gofem/out/out.go's gm.Bins spatial index, which InvEvalPoint
// uses to reject points no control point bin contains.
package geom

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/gm"
)

// Capability is the interface any curve, surface or volume collaborator
// must satisfy (§9).
type Capability interface {
	// EvalPoint returns the physical-space point at parametric coordinate u.
	EvalPoint(u []float64) (x []float64, err error)

	// EvalDeriv returns the physical-space point and its parametric
	// derivatives (one row per parametric direction) at u.
	EvalDeriv(u []float64) (x []float64, dxdu [][]float64, err error)

	// GetRange returns [umin,umax] for parametric direction dir.
	GetRange(dir int) (umin, umax float64)

	// InvEvalPoint returns the parametric coordinate nearest physical
	// point x, or ok=false if x lies outside a neighborhood the initial
	// Newton guess can recover from (§7: "return a failure flag; the
	// caller is responsible for propagation. No exception").
	InvEvalPoint(x []float64) (u []float64, ok bool)
}

// NurbsSurface adapts a gosl gm.Nurbs object and its control net to
// Capability. The control net is supplied by the caller rather than
// queried from nrb directly, since this module treats geometry
// parametrization as an external collaborator (§1 Out of scope) and only
// needs to drive nrb's public basis-evaluation API.
type NurbsSurface struct {
	Nrb  *gm.Nurbs
	Ctrl [][]float64 // control points, index l matching nrb.GetBasisL(l)
	bins gm.Bins
}

// NewNurbsSurface builds a Capability backed by nrb, indexing ctrl with
// gm.Bins so InvEvalPoint can look up the control point nearest a target.
func NewNurbsSurface(nrb *gm.Nurbs, ctrl [][]float64) *NurbsSurface {
	dim := len(ctrl[0])
	lo := append([]float64{}, ctrl[0]...)
	hi := append([]float64{}, ctrl[0]...)
	for _, c := range ctrl {
		for a := 0; a < dim; a++ {
			if c[a] < lo[a] {
				lo[a] = c[a]
			}
			if c[a] > hi[a] {
				hi[a] = c[a]
			}
		}
	}
	ndiv := make([]int, dim)
	for a := range ndiv {
		ndiv[a] = 10
	}
	o := &NurbsSurface{Nrb: nrb, Ctrl: ctrl}
	o.bins.Init(lo, hi, ndiv)
	for i, c := range ctrl {
		if err := o.bins.Append(c, i); err != nil {
			panic(chk.Err("geom: failed to index control point %d: %v", i, err))
		}
	}
	return o
}

// basisAt runs nrb's confirmed CalcBasis/CalcBasisAndDerivs →
// GetBasisL/GetDerivL sequence at parametric point u.
func (o *NurbsSurface) basisAt(u []float64, derivs bool) (S []float64, dSdu [][]float64) {
	nd := o.Nrb.Gnd()
	n := len(o.Ctrl)
	if derivs {
		o.Nrb.CalcBasisAndDerivs(u)
	} else {
		o.Nrb.CalcBasis(u)
	}
	S = make([]float64, n)
	for l := 0; l < n; l++ {
		S[l] = o.Nrb.GetBasisL(l)
	}
	if derivs {
		dSdu = make([][]float64, n)
		for l := 0; l < n; l++ {
			dSdu[l] = make([]float64, nd)
			o.Nrb.GetDerivL(dSdu[l], l)
		}
	}
	return
}

func (o *NurbsSurface) EvalPoint(u []float64) (x []float64, err error) {
	S, _ := o.basisAt(u, false)
	dim := len(o.Ctrl[0])
	x = make([]float64, dim)
	for l, s := range S {
		for a := 0; a < dim; a++ {
			x[a] += s * o.Ctrl[l][a]
		}
	}
	return x, nil
}

func (o *NurbsSurface) EvalDeriv(u []float64) (x []float64, dxdu [][]float64, err error) {
	S, dSdu := o.basisAt(u, true)
	dim := len(o.Ctrl[0])
	nd := o.Nrb.Gnd()
	x = make([]float64, dim)
	dxdu = make([][]float64, nd)
	for d := range dxdu {
		dxdu[d] = make([]float64, dim)
	}
	for l, s := range S {
		for a := 0; a < dim; a++ {
			x[a] += s * o.Ctrl[l][a]
			for d := 0; d < nd; d++ {
				dxdu[d][a] += dSdu[l][d] * o.Ctrl[l][a]
			}
		}
	}
	return x, dxdu, nil
}

func (o *NurbsSurface) GetRange(dir int) (umin, umax float64) {
	n := o.Nrb.NumBasis(dir)
	return o.Nrb.U(dir, 0), o.Nrb.U(dir, n)
}

// InvEvalPoint returns ok=false when gm.Bins finds no control point near x;
// otherwise it starts a Newton iteration at the middle of each parametric
// range (the nearest control point is not used as the starting guess) and
// refines it against EvalDeriv's Jacobian. It fails (ok=false) rather than
// diverge when the Jacobian is singular or the iterate leaves [umin,umax]
// (§7's failure-flag policy).
func (o *NurbsSurface) InvEvalPoint(x []float64) (u []float64, ok bool) {
	seed := o.bins.Find(x)
	if seed < 0 || seed >= len(o.Ctrl) {
		return nil, false
	}
	nd := o.Nrb.Gnd()
	u = make([]float64, nd)
	for d := 0; d < nd; d++ {
		umin, umax := o.GetRange(d)
		u[d] = 0.5 * (umin + umax)
	}

	const maxIt = 30
	const tol = 1e-10
	for it := 0; it < maxIt; it++ {
		xu, dxdu, err := o.EvalDeriv(u)
		if err != nil {
			return nil, false
		}
		res := make([]float64, len(x))
		norm := 0.0
		for a := range x {
			res[a] = x[a] - xu[a]
			norm += res[a] * res[a]
		}
		if norm < tol*tol {
			return u, true
		}
		if nd != len(x) {
			return nil, false // under/over-determined system: no generic Newton step
		}
		jac := make([][]float64, nd)
		for d := range jac {
			jac[d] = dxdu[d]
		}
		du, singular := solveSquare(jac, res)
		if singular {
			return nil, false
		}
		for d := 0; d < nd; d++ {
			u[d] += du[d]
			umin, umax := o.GetRange(d)
			if u[d] < umin || u[d] > umax {
				return nil, false
			}
		}
	}
	return nil, false
}

// solveSquare solves Jᵀ·du = res for an n×n system by Gauss elimination
// with partial pivoting (n is at most 3 here — a curve/surface/volume
// parametric dimension — so a dedicated dense solve is simpler than
// pulling in la.MatInv for a 1x1/2x2/3x3 system with a transposed operand).
func solveSquare(jac [][]float64, res []float64) (du []float64, singular bool) {
	n := len(res)
	A := make([][]float64, n)
	for i := range A {
		A[i] = make([]float64, n+1)
		for j := 0; j < n; j++ {
			A[i][j] = jac[j][i] // transpose: row i of J^T is column i of dxdu
		}
		A[i][n] = res[i]
	}
	for col := 0; col < n; col++ {
		piv := col
		for r := col + 1; r < n; r++ {
			if abs(A[r][col]) > abs(A[piv][col]) {
				piv = r
			}
		}
		if abs(A[piv][col]) < 1e-14 {
			return nil, true
		}
		A[col], A[piv] = A[piv], A[col]
		for r := col + 1; r < n; r++ {
			f := A[r][col] / A[col][col]
			for c := col; c <= n; c++ {
				A[r][c] -= f * A[col][c]
			}
		}
	}
	du = make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := A[i][n]
		for j := i + 1; j < n; j++ {
			sum -= A[i][j] * du[j]
		}
		du[i] = sum / A[i][i]
	}
	return du, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
