// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package enrich implements C1, the enrichment basis: shape-function and
// derivative values of the enrichment polynomials that augment the
// low-order nodal field so that spatial gradients at nodes can be
// reproduced by the patch reconstruction (recon package, C4). The
// emission order is stable and load-bearing: recon/ and goal/ index into
// the returned slices positionally.
package enrich

import "github.com/cpmech/gosl/chk"

// Count returns nenrich for the given mesh order and spatial dimension
// (§3): 5/7/9 in 2D for p=2/3/4, 9/15 in 3D for p=2/3.
func Count(order, dim int) int {
	switch dim {
	case 2:
		return 2*order + 1
	case 3:
		switch order {
		case 2:
			return 9
		case 3:
			return 15
		}
	}
	panic(chk.Err("enrich: unsupported order=%d dim=%d", order, dim))
}

// bubble returns φ(ξ) and φ'(ξ), the one-dimensional bubble factor used
// along one axis (§4.1). Derivatives are analytic, obtained by product
// rule, never by finite difference.
func bubble(order int, xi float64) (val, deriv float64) {
	switch order {
	case 2:
		// φ(ξ) = (1-ξ²)
		return 1 - xi*xi, -2 * xi
	case 3:
		// φ(ξ) = ξ(1-ξ²)
		return xi * (1 - xi*xi), 1 - 3*xi*xi
	case 4:
		// φ(ξ) = (1-ξ²)(ξ-k1)(ξ-k2), k1=-1/3, k2=1/3 (interior knots)
		k1, k2 := -1.0/3.0, 1.0/3.0
		f1, d1 := 1-xi*xi, -2*xi
		f2, d2 := xi-k1, 1.0
		f3, d3 := xi-k2, 1.0
		val = f1 * f2 * f3
		deriv = d1*f2*f3 + f1*d2*f3 + f1*f2*d3
		return
	}
	panic(chk.Err("enrich: unsupported order=%d", order))
}

// Eval2D evaluates the 2p+1 enrichment functions and their (ξ,η)
// derivatives at (xi, eta) for the given order (§4.1).
//
// Ordering (load-bearing): first p functions are φ, ηφ, …, η^(p-1)φ; next
// p are ψ, ξψ, …, ξ^(p-1)ψ; last is the coupling term φψ.
func Eval2D(order int, xi, eta float64) (N, dNdxi, dNdeta []float64) {
	n := Count(order, 2)
	N = make([]float64, n)
	dNdxi = make([]float64, n)
	dNdeta = make([]float64, n)

	phi, dphi := bubble(order, xi)
	psi, dpsi := bubble(order, eta)

	idx := 0
	// block-on-xi: eta^m * phi(xi), m = 0..order-1
	etaPow := 1.0
	for m := 0; m < order; m++ {
		N[idx] = etaPow * phi
		dNdxi[idx] = etaPow * dphi
		if m == 0 {
			dNdeta[idx] = 0
		} else {
			dNdeta[idx] = float64(m) * pow(eta, m-1) * phi
		}
		etaPow *= eta
		idx++
	}
	// block-on-eta: xi^m * psi(eta), m = 0..order-1
	xiPow := 1.0
	for m := 0; m < order; m++ {
		N[idx] = xiPow * psi
		dNdeta[idx] = xiPow * dpsi
		if m == 0 {
			dNdxi[idx] = 0
		} else {
			dNdxi[idx] = float64(m) * pow(xi, m-1) * psi
		}
		xiPow *= xi
		idx++
	}
	// coupling term: phi(xi)*psi(eta)
	N[idx] = phi * psi
	dNdxi[idx] = dphi * psi
	dNdeta[idx] = phi * dpsi
	idx++
	return
}

// Eval3D evaluates the 9 or 15 enrichment functions and their (ξ,η,ζ)
// derivatives at (xi,eta,zeta) for order ∈ {2,3} (§4.1).
//
// The basis enumerates axis-aligned face-bubble × perpendicular-
// polynomial products over the three axes in a fixed order: block-on-ξ,
// block-on-η, block-on-ζ, each carrying the bubble along its own axis
// times a perpendicular-polynomial block of size 3 (order=2: {1,v,v²})
// or 5 (order=3: {1,v,v²,w,w²}) in the two remaining axes — the block
// size that reproduces nenrich = 9/15 exactly (§3, §9 Open Question).
func Eval3D(order int, xi, eta, zeta float64) (N, dNdxi, dNdeta, dNdzeta []float64) {
	n := Count(order, 3)
	N = make([]float64, n)
	dNdxi = make([]float64, n)
	dNdeta = make([]float64, n)
	dNdzeta = make([]float64, n)

	idx := 0
	// axis 0 = xi (bubble), perpendicular = (eta, zeta)
	idx = appendBlock3D(N, dNdxi, dNdeta, dNdzeta, idx, order, xi, eta, zeta, 0)
	// axis 1 = eta (bubble), perpendicular = (zeta, xi)
	idx = appendBlock3D(N, dNdeta, dNdzeta, dNdxi, idx, order, eta, zeta, xi, 1)
	// axis 2 = zeta (bubble), perpendicular = (xi, eta)
	idx = appendBlock3D(N, dNdzeta, dNdxi, dNdeta, idx, order, zeta, xi, eta, 2)
	return
}

// appendBlock3D fills N[idx:idx+blockSize] and the three derivative
// slices (dNdAxis is the derivative w.r.t. the bubble axis, dNdPerp1 and
// dNdPerp2 the derivatives w.r.t. the two perpendicular axes v,w) for one
// of the three axis-aligned blocks of Eval3D. axisId is unused in the
// math; it exists purely to make call sites self-documenting.
func appendBlock3D(N, dNdAxis, dNdPerp1, dNdPerp2 []float64, idx, order int, axisVar, v, w float64, axisId int) int {
	bub, dbub := bubble(order, axisVar)
	terms := []struct {
		val, dv, dw float64
	}{
		{1, 0, 0},
		{v, 1, 0},
		{v * v, 2 * v, 0},
	}
	if order == 3 {
		terms = append(terms, struct{ val, dv, dw float64 }{w, 0, 1})
		terms = append(terms, struct{ val, dv, dw float64 }{w * w, 0, 2 * w})
	}
	for _, t := range terms {
		N[idx] = t.val * bub
		dNdAxis[idx] = t.val * dbub
		dNdPerp1[idx] = t.dv * bub
		dNdPerp2[idx] = t.dw * bub
		idx++
	}
	return idx
}

// pow computes x^n for small non-negative integer n without pulling in
// math.Pow's float64-exponent overhead on the hot per-Gauss-point path.
func pow(x float64, n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= x
	}
	return r
}
