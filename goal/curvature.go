// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goal

import (
	"math"

	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/mpi"
	"github.com/cpmech/gosl/num"

	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/recon"
)

// curvExponents lists the (ex,ey,ez) exponent triples of the 20-term
// tri-quadratic-plus-cross polynomial basis (§4.6.4): constant, linear,
// pure-quadratic, the three quadratic cross terms, the six cubic
// serendipity terms and the trilinear xyz term, plus the three
// quartic-in-pairs terms x²yz, xy²z, xyz².
var curvExponents = [20][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	{2, 0, 0}, {0, 2, 0}, {0, 0, 2},
	{1, 1, 0}, {0, 1, 1}, {1, 0, 1},
	{2, 1, 0}, {1, 2, 0}, {0, 2, 1}, {0, 1, 2}, {1, 0, 2}, {2, 0, 1},
	{1, 1, 1},
	{2, 1, 1}, {1, 2, 1}, {1, 1, 2},
}

func ipow(v float64, e int) float64 {
	r := 1.0
	for i := 0; i < e; i++ {
		r *= v
	}
	return r
}

// curvMonomials evaluates the 20-term basis and its three partial
// derivatives at the local (centroid-relative) coordinate (dx,dy,dz).
func curvMonomials(dx, dy, dz float64) (val [20]float64, dval [3][20]float64) {
	v := [3]float64{dx, dy, dz}
	for t, e := range curvExponents {
		val[t] = ipow(dx, e[0]) * ipow(dy, e[1]) * ipow(dz, e[2])
		for a := 0; a < 3; a++ {
			if e[a] == 0 {
				continue
			}
			ea := e
			ea[a]--
			dval[a][t] = float64(e[a]) * ipow(v[0], ea[0]) * ipow(v[1], ea[1]) * ipow(v[2], ea[2])
		}
	}
	return
}

// cornerNodes3D returns the 8 corner-local indices of a p³ element, i.e.
// those whose local axis coordinate is 0 or p-1 along every axis — the
// same test as isCornerLocal, enumerated explicitly.
func cornerNodes3D(p int) []int {
	out := make([]int, 0, 8)
	for k := 0; k < p*p*p; k++ {
		if isCornerLocal(k, p, 3) {
			out = append(out, k)
		}
	}
	return out
}

// CurvatureFit holds the centroid-extracted gradient and Hessian of one
// element's least-squares-fit design field (§4.6.4).
type CurvatureFit struct {
	G [3]float64
	H [3][3]float64
}

// curvatureFitAinv builds C6.4's 32-row/20-unknown least-squares matrix
// from element geometry alone (Xpts) and returns its rank-revealing
// pseudo-inverse. xval/xgrad never enter the matrix itself, only its
// right-hand side, so this factorization is shared by fitElemCurvature's
// forward solve and evalCurvDeriv's adjoint chain (§4.6.4 step "back
// through the centroid polynomial fit").
func curvatureFitAinv(cfg *config.Config, Xpts [][]float64) (Ainv [][]float64, cx, cy, cz float64, err error) {
	n := len(Xpts)
	for _, X := range Xpts {
		cx += X[0]
		cy += X[1]
		cz += X[2]
	}
	cx, cy, cz = cx/float64(n), cy/float64(n), cz/float64(n)

	neq := 4 * n
	A := la.MatAlloc(neq, 20)
	for i, X := range Xpts {
		dx, dy, dz := X[0]-cx, X[1]-cy, X[2]-cz
		val, dval := curvMonomials(dx, dy, dz)
		row := 4 * i
		copy(A[row], val[:])
		for a := 0; a < 3; a++ {
			copy(A[row+1+a], dval[a][:])
		}
	}
	Ainv = la.MatAlloc(20, neq)
	if err = la.MatInvG(Ainv, A, cfg.LstSqTol); err != nil {
		return nil, 0, 0, 0, err
	}
	return Ainv, cx, cy, cz, nil
}

// fitElemCurvature solves the 32-row/20-unknown least-squares system for
// one element's corner stencil and extracts the centroid gradient/Hessian.
// Because every corner-relative coordinate is taken about the element's
// own physical centroid, the monomial basis's value and first/second
// partials at the origin reduce to picking out specific fit coefficients:
// g = (c1,c2,c3); H_xx=2c4, H_yy=2c5, H_zz=2c6; H_xy=c7, H_yz=c8, H_zx=c9
// (indices into curvExponents, verified by direct differentiation of the
// basis at the origin).
func fitElemCurvature(cfg *config.Config, Xpts [][]float64, xval []float64, xgrad [][]float64) (*CurvatureFit, error) {
	Ainv, _, _, _, err := curvatureFitAinv(cfg, Xpts)
	if err != nil {
		return nil, err
	}
	n := len(Xpts)
	neq := 4 * n
	B := la.MatAlloc(neq, 1)
	for i := range Xpts {
		row := 4 * i
		B[row][0] = xval[i]
		for a := 0; a < 3; a++ {
			B[row+1+a][0] = xgrad[i][a]
		}
	}
	C := la.MatAlloc(20, 1)
	la.MatMul(C, 1.0, Ainv, B)
	c := make([]float64, 20)
	for t := 0; t < 20; t++ {
		c[t] = C[t][0]
	}

	fit := &CurvatureFit{}
	fit.G = [3]float64{c[1], c[2], c[3]}
	fit.H[0][0], fit.H[1][1], fit.H[2][2] = 2*c[4], 2*c[5], 2*c[6]
	fit.H[0][1], fit.H[1][0] = c[7], c[7]
	fit.H[1][2], fit.H[2][1] = c[8], c[8]
	fit.H[2][0], fit.H[0][2] = c[9], c[9]
	return fit, nil
}

// curvatureGM evaluates kappa_G and kappa_M from a fit, reporting ok=false
// at a near-zero gradient (a stationary point of x, where both the
// descriptor and its derivative are taken as zero).
func curvatureGM(fit *CurvatureFit) (kG, kM float64, ok bool) {
	g, H := fit.G, fit.H
	normG2 := g[0]*g[0] + g[1]*g[1] + g[2]*g[2]
	if normG2 < 1e-14 {
		return 0, 0, false
	}
	normG := math.Sqrt(normG2)

	adj00 := H[1][1]*H[2][2] - H[1][2]*H[1][2]
	adj11 := H[0][0]*H[2][2] - H[0][2]*H[0][2]
	adj22 := H[0][0]*H[1][1] - H[0][1]*H[0][1]
	adj01 := H[1][2]*H[0][2] - H[0][1]*H[2][2]
	adj12 := H[0][2]*H[0][1] - H[0][0]*H[1][2]
	adj02 := H[0][1]*H[1][2] - H[0][2]*H[1][1]
	cof := [3][3]float64{
		{adj00, adj01, adj02},
		{adj01, adj11, adj12},
		{adj02, adj12, adj22},
	}

	var gCofG, gHg float64
	trH := H[0][0] + H[1][1] + H[2][2]
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			gCofG += g[a] * cof[a][b] * g[b]
			gHg += g[a] * H[a][b] * g[b]
		}
	}

	kG = gCofG / (normG2 * normG2)
	kM = 0.5 * (gHg - normG2*trH) / (normG2 * normG)
	return kG, kM, true
}

// curvatureDescriptor evaluates κ_G, κ_M, κ_max, κ_min from a fit (§4.6.4).
func curvatureDescriptor(fit *CurvatureFit) (kG, kM, kMax, kMin float64) {
	kG, kM, ok := curvatureGM(fit)
	if !ok {
		return 0, 0, 0, 0
	}
	// κ_M² − κ_G is mathematically ≥0 (discriminant of the two principal
	// curvatures) but can drift slightly negative at the fit's tolerance
	// floor; clamp before the square root.
	radicand := math.Max(0, kM*kM-kG)
	root := math.Sqrt(radicand)
	kMax = math.Abs(kM) + root
	kMin = math.Abs(kM) - root
	return
}

// curvatureDescriptorSens returns the analytic gradients of kappa_G and
// kappa_M with respect to the fit's gradient g and Hessian H components
// (§4.6.4's dr/dg, dr/dH begin here), closed-form from the same adjugate
// curvatureGM evaluates. dkGdH/dkMdH are ordered (H00,H11,H22,H01,H12,H02),
// matching CurvatureFit's three diagonal and three independent
// off-diagonal entries.
func curvatureDescriptorSens(fit *CurvatureFit) (dkGdg, dkMdg [3]float64, dkGdH, dkMdH [6]float64, ok bool) {
	g, H := fit.G, fit.H
	normG2 := g[0]*g[0] + g[1]*g[1] + g[2]*g[2]
	if normG2 < 1e-14 {
		return dkGdg, dkMdg, dkGdH, dkMdH, false
	}
	H00, H11, H22, H01, H12, H02 := H[0][0], H[1][1], H[2][2], H[0][1], H[1][2], H[0][2]
	trH := H00 + H11 + H22

	adj00 := H11*H22 - H12*H12
	adj11 := H00*H22 - H02*H02
	adj22 := H00*H11 - H01*H01
	adj01 := H12*H02 - H01*H22
	adj12 := H02*H01 - H00*H12
	adj02 := H01*H12 - H02*H11

	gCofG := g[0]*g[0]*adj00 + g[1]*g[1]*adj11 + g[2]*g[2]*adj22 +
		2*(g[0]*g[1]*adj01+g[1]*g[2]*adj12+g[0]*g[2]*adj02)
	gHg := g[0]*g[0]*H00 + g[1]*g[1]*H11 + g[2]*g[2]*H22 +
		2*(g[0]*g[1]*H01+g[1]*g[2]*H12+g[0]*g[2]*H02)
	P := gHg - normG2*trH

	Hg := [3]float64{
		H00*g[0] + H01*g[1] + H02*g[2],
		H01*g[0] + H11*g[1] + H12*g[2],
		H02*g[0] + H12*g[1] + H22*g[2],
	}
	CofG := [3]float64{
		adj00*g[0] + adj01*g[1] + adj02*g[2],
		adj01*g[0] + adj11*g[1] + adj12*g[2],
		adj02*g[0] + adj12*g[1] + adj22*g[2],
	}

	invN2 := 1 / normG2
	Q := math.Pow(normG2, -1.5)
	for a := 0; a < 3; a++ {
		dPdg := 2*Hg[a] - 2*g[a]*trH
		dQdg := -3 * g[a] * math.Pow(normG2, -2.5)
		dkMdg[a] = 0.5 * (dPdg*Q + P*dQdg)
		dkGdg[a] = 2*CofG[a]*invN2*invN2 - 4*gCofG*g[a]*invN2*invN2*invN2
	}

	// dP/dH and d(gCofG)/dH, ordered (H00,H11,H22,H01,H12,H02); trH only
	// depends on the three diagonal entries.
	dPdH := [6]float64{
		g[0]*g[0] - normG2, g[1]*g[1] - normG2, g[2]*g[2] - normG2,
		2 * g[0] * g[1], 2 * g[1] * g[2], 2 * g[0] * g[2],
	}
	dCofGdH := [6]float64{
		g[1]*g[1]*H22 + g[2]*g[2]*H11 - 2*g[1]*g[2]*H12,
		g[0]*g[0]*H22 + g[2]*g[2]*H00 - 2*g[0]*g[2]*H02,
		g[0]*g[0]*H11 + g[1]*g[1]*H00 - 2*g[0]*g[1]*H01,
		-2*g[2]*g[2]*H01 - 2*g[0]*g[1]*H22 + 2*g[0]*g[2]*H12 + 2*g[1]*g[2]*H02,
		-2*g[0]*g[0]*H12 + 2*g[0]*g[1]*H02 - 2*g[1]*g[2]*H00 + 2*g[0]*g[2]*H01,
		-2*g[1]*g[1]*H02 + 2*g[0]*g[1]*H12 - 2*g[0]*g[2]*H11 + 2*g[1]*g[2]*H01,
	}
	for t := 0; t < 6; t++ {
		dkMdH[t] = 0.5 * dPdH[t] * Q
		dkGdH[t] = dCofGdH[t] * invN2 * invN2
	}
	return dkGdg, dkMdg, dkGdH, dkMdH, true
}

// evalCurvDeriv implements C6.4's analytic reverse-mode chain (§4.6.4):
// dr/dg and dr/dH (curvatureDescriptorSens), combined with the
// induced-exponential dr/dkMax, dr/dkMin weights and the direct
// dr/dxbar term, then chained back through the centroid polynomial fit
// (the same Ainv curvatureFitAinv builds for the forward solve) into
// dxval[i]=dr/dxval[i] and dxgrad[i][axis]=dr/dxgrad[i][axis] for every
// corner node i of the element's stencil. r itself is NOT recomputed
// here; callers that also need it call elemCurvatureCost separately.
func evalCurvDeriv(cfg *config.Config, k float64, Xpts [][]float64, xval []float64, xgrad [][]float64) (dxval []float64, dxgrad [][]float64, err error) {
	n := len(Xpts)
	dxval = make([]float64, n)
	dxgrad = make([][]float64, n)
	for i := range dxgrad {
		dxgrad[i] = make([]float64, 3)
	}

	xbar := 0.0
	for _, v := range xval {
		xbar += v
	}
	xbar /= float64(n)
	db := -64 * math.Pow(xbar-0.5, 3)

	fit, err := fitElemCurvature(cfg, Xpts, xval, xgrad)
	if err != nil {
		return nil, nil, err
	}
	kG, kM, ok := curvatureGM(fit)
	_, _, kMax, kMin := curvatureDescriptor(fit)

	diff := k * (kMin - kMax)
	s := 1 / (1 + math.Exp(-diff)) // sigmoid(k*(kMin-kMax))
	L := kMax + math.Log(1+math.Exp(diff))/k
	drdKMax := 1 - s
	drdKMin := s
	drdxbar := db * L / float64(n)

	for i := range xval {
		dxval[i] += drdxbar
	}
	if !ok {
		return dxval, dxgrad, nil
	}

	b := 1 - 16*math.Pow(xbar-0.5, 4)
	radicand := math.Max(0, kM*kM-kG)
	root := math.Sqrt(radicand)
	sign := math.Copysign(1, kM)
	var dkMaxdkM, dkMindkM, dkMaxdkG, dkMindkG float64
	if root < 1e-12 {
		dkMaxdkM, dkMindkM = sign, sign
	} else {
		dkMaxdkM = sign + kM/root
		dkMindkM = sign - kM/root
		dkMaxdkG = -0.5 / root
		dkMindkG = 0.5 / root
	}

	wM := b * (drdKMax*dkMaxdkM + drdKMin*dkMindkM)
	wG := b * (drdKMax*dkMaxdkG + drdKMin*dkMindkG)

	dkGdg, dkMdg, dkGdH, dkMdH, _ := curvatureDescriptorSens(fit)
	var drdc [10]float64 // index 0 unused; 1..9 are the fit coefficients g/H map to
	drdc[1] = wM*dkMdg[0] + wG*dkGdg[0]
	drdc[2] = wM*dkMdg[1] + wG*dkGdg[1]
	drdc[3] = wM*dkMdg[2] + wG*dkGdg[2]
	drdc[4] = 2 * (wM*dkMdH[0] + wG*dkGdH[0])
	drdc[5] = 2 * (wM*dkMdH[1] + wG*dkGdH[1])
	drdc[6] = 2 * (wM*dkMdH[2] + wG*dkGdH[2])
	drdc[7] = wM*dkMdH[3] + wG*dkGdH[3]
	drdc[8] = wM*dkMdH[4] + wG*dkGdH[4]
	drdc[9] = wM*dkMdH[5] + wG*dkGdH[5]

	Ainv, _, _, _, err := curvatureFitAinv(cfg, Xpts)
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < n; i++ {
		for t := 1; t <= 9; t++ {
			dxval[i] += drdc[t] * Ainv[t][4*i]
			for a := 0; a < 3; a++ {
				dxgrad[i][a] += drdc[t] * Ainv[t][4*i+1+a]
			}
		}
	}
	return dxval, dxgrad, nil
}

// elemCurvatureCost gathers one element's corner stencil, fits the
// centroid curvature and returns the per-element cost r = b(x)·(κ_max +
// log(1+exp(k·(κ_min−κ_max)))/k), §4.6.4's indicator-weighted descriptor.
func elemCurvatureCost(cfg *config.Config, k float64, f forest.Forest, pts []forest.Point, nodes []int, X, Dx *dvec.Vec) (float64, error) {
	p, _ := f.Order()
	corners := cornerNodes3D(p)
	Xpts := make([][]float64, len(corners))
	xval := make([]float64, len(corners))
	xgrad := make([][]float64, len(corners))
	xv := [][]float64{{0}}
	dv := [][]float64{{0, 0, 0}}
	for ci, li := range corners {
		n := nodes[li]
		Xpts[ci] = recon.NodePoint(f, pts, n).Array()[:3]
		X.GetValues([]int{n}, xv)
		xval[ci] = xv[0][0]
		Dx.GetValues([]int{n}, dv)
		xgrad[ci] = append([]float64{}, dv[0]...)
	}

	fit, err := fitElemCurvature(cfg, Xpts, xval, xgrad)
	if err != nil {
		return 0, err
	}
	_, _, kMax, kMin := curvatureDescriptor(fit)

	xbar := 0.0
	for _, v := range xval {
		xbar += v
	}
	xbar /= float64(len(xval))
	b := 1 - 16*math.Pow(xbar-0.5, 4)

	r := b * (kMax + math.Log(1+math.Exp(k*(kMin-kMax)))/k)
	return r, nil
}

// curvatureConstraintCore runs CurvatureConstraint's sweep and also
// returns den, the induced-exponential aggregate's denominator, needed by
// CurvatureSensitivity's per-element weight but not part of
// CurvatureConstraint's own public contract.
func curvatureConstraintCore(f forest.Forest, cfg *config.Config, X *dvec.Vec) (rAgg, rMax, den float64, err error) {
	k := cfg.KSWeight
	w := recon.ComputeWeights(f)
	Dx, err := recon.ComputeNodeDeriv(f, X, w)
	if err != nil {
		return 0, 0, 0, err
	}

	conn, nelems := f.NodeConn()
	pts := f.Points()
	costs := make([]float64, nelems)

	rMax = math.Inf(-1)
	for e := 0; e < nelems; e++ {
		r, err := elemCurvatureCost(cfg, k, f, pts, conn[e], X, Dx)
		if err != nil {
			return 0, 0, 0, err
		}
		costs[e] = r
		if r > rMax {
			rMax = r
		}
	}
	if mpi.IsOn() {
		buf := []float64{rMax}
		work := make([]float64, 1)
		mpi.AllReduceMax(buf, work)
		rMax = buf[0]
	}

	numer := 0.0
	for _, r := range costs {
		wexp := math.Exp(k * (r - rMax))
		numer += r * wexp
		den += wexp
	}
	if mpi.IsOn() {
		buf := []float64{numer, den}
		work := make([]float64, 2)
		mpi.AllReduceSum(buf, work)
		numer, den = buf[0], buf[1]
	}

	rAgg = numer / den
	return rAgg, rMax, den, nil
}

// CurvatureConstraint implements C6.4's primal pass (§4.6.4): project the
// scalar design field's nodal gradient (C3 with one variable per node),
// fit the 20-term centroid curvature per element, and aggregate the
// per-element cost via an induced-exponential max, with rMax precomputed
// by MPI max-reduce.
func CurvatureConstraint(f forest.Forest, cfg *config.Config, X *dvec.Vec) (rAgg, rMax float64, err error) {
	rAgg, rMax, _, err = curvatureConstraintCore(f, cfg, X)
	return rAgg, rMax, err
}

// CurvatureSensitivity implements C6.4's analytic reverse-mode chain
// (§4.6.4): evalCurvDeriv's per-element dr/dxval, dr/dxgrad scaled by
// beta_e = (w_e/den)·(1+k·(r_e-rAgg)) — the induced-exponential
// aggregate's own per-element weight, derived from rAgg=Σr_i·w_i/Σw_i
// with w_i=exp(k(r_i-rMax)) by the product rule, since r_e enters rAgg
// both directly and through its own exponential weight — then
// finalize-added and chained back through C3's transpose
// (recon.TransposeNodeDeriv) into the nodal design-field covector dfdX.
func CurvatureSensitivity(f forest.Forest, cfg *config.Config, X *dvec.Vec) (dfdX *dvec.Vec, err error) {
	k := cfg.KSWeight
	rAgg, rMax, den, err := curvatureConstraintCore(f, cfg, X)
	if err != nil {
		return nil, err
	}

	w := recon.ComputeWeights(f)
	Dx, err := recon.ComputeNodeDeriv(f, X, w)
	if err != nil {
		return nil, err
	}

	conn, nelems := f.NodeConn()
	pts := f.Points()
	p, _ := f.Order()
	corners := cornerNodes3D(p)

	dfdXDirect := dvec.New(len(pts), 1, f.DepNodes())
	dfdDxLocal := dvec.New(len(pts), 3, f.DepNodes())

	xv := [][]float64{{0}}
	dv := [][]float64{{0, 0, 0}}
	for e := 0; e < nelems; e++ {
		nodes := conn[e]
		Xpts := make([][]float64, len(corners))
		xval := make([]float64, len(corners))
		xgrad := make([][]float64, len(corners))
		for ci, li := range corners {
			n := nodes[li]
			Xpts[ci] = recon.NodePoint(f, pts, n).Array()[:3]
			X.GetValues([]int{n}, xv)
			xval[ci] = xv[0][0]
			Dx.GetValues([]int{n}, dv)
			xgrad[ci] = append([]float64{}, dv[0]...)
		}

		r, err := elemCurvatureCost(cfg, k, f, pts, nodes, X, Dx)
		if err != nil {
			return nil, err
		}
		wexp := math.Exp(k * (r - rMax))
		beta := (wexp / den) * (1 + k*(r-rAgg))

		dxval, dxgrad, err := evalCurvDeriv(cfg, k, Xpts, xval, xgrad)
		if err != nil {
			return nil, err
		}
		for ci, li := range corners {
			n := nodes[li]
			dfdXDirect.AddValues([]int{n}, [][]float64{{beta * dxval[ci]}})
			val := []float64{beta * dxgrad[ci][0], beta * dxgrad[ci][1], beta * dxgrad[ci][2]}
			dfdDxLocal.AddValues([]int{n}, [][]float64{val})
		}
	}

	dfdXDirect.BeginFinalize()
	dfdXDirect.EndFinalize()
	dfdXDirect.BeginDistribute()
	dfdXDirect.EndDistribute()
	dfdDxLocal.BeginFinalize()
	dfdDxLocal.EndFinalize()
	dfdDxLocal.BeginDistribute()
	dfdDxLocal.EndDistribute()

	dfdXFromDx, err := recon.TransposeNodeDeriv(f, dfdDxLocal, w)
	if err != nil {
		return nil, err
	}

	dfdX = dvec.New(len(pts), 1, f.DepNodes())
	rawOut, rawDirect, rawFromDx := dfdX.Raw(), dfdXDirect.Raw(), dfdXFromDx.Raw()
	for i := range rawOut {
		rawOut[i] = rawDirect[i] + rawFromDx[i]
	}
	return dfdX, nil
}

// CurvatureDerivFD evaluates d(rAgg)/dx_i for raw vector entry i of the
// design field by central difference (gosl's num.DerivCen), the S4
// cross-check for CurvatureSensitivity's analytic dxval/dxgrad chain.
func CurvatureDerivFD(f forest.Forest, cfg *config.Config, X *dvec.Vec, i int) (float64, error) {
	var evalErr error
	raw := X.Raw()
	d := num.DerivCen(func(x float64, args ...interface{}) (res float64) {
		orig := raw[i]
		raw[i] = x
		v, _, err := CurvatureConstraint(f, cfg, X)
		raw[i] = orig
		if err != nil {
			evalErr = err
		}
		return v
	}, raw[i])
	return d, evalErr
}
