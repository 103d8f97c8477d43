// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package forest

import "github.com/cpmech/gosl/chk"

// Knots returns the ordered 1D knot sequence for mesh order p ∈ {2,3,4},
// with knots[0] = -1 and knots[p-1] = +1 (§3).
func Knots(p int) []float64 {
	switch p {
	case 2:
		return []float64{-1, 1}
	case 3:
		return []float64{-1, 0, 1}
	case 4:
		return []float64{-1, -1.0 / 3.0, 1.0 / 3.0, 1}
	}
	panic(chk.Err("forest: unsupported mesh order p=%d", p))
}

// Weights returns the trapezoidal-style weights wvals paired with Knots(p)
// (§3): {1,1} for p=2, {½,1,½} for p=3, {½,1,1,½} for p=4.
func Weights(p int) []float64 {
	switch p {
	case 2:
		return []float64{1, 1}
	case 3:
		return []float64{0.5, 1, 0.5}
	case 4:
		return []float64{0.5, 1, 1, 0.5}
	}
	panic(chk.Err("forest: unsupported mesh order p=%d", p))
}

// lagrange1D evaluates the i-th 1D Lagrange basis function (and its
// derivative) of the knot set knots, at parametric coordinate xi. This is
// the plain nodal interpolation basis, distinct from the enrichment
// polynomials of enrich.Eval2D/Eval3D (C1); it grounds the mock Forest's
// EvalInterp and the coarse-mesh shape-function derivatives step of C3.
func lagrange1D(knots []float64, i int, xi float64) (value, deriv float64) {
	n := len(knots)
	value = 1.0
	deriv = 0.0
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		denom := knots[i] - knots[j]
		value *= (xi - knots[j]) / denom
	}
	// derivative via sum-of-products rule
	for k := 0; k < n; k++ {
		if k == i {
			continue
		}
		term := 1.0 / (knots[i] - knots[k])
		for j := 0; j < n; j++ {
			if j == i || j == k {
				continue
			}
			term *= (xi - knots[j]) / (knots[i] - knots[j])
		}
		deriv += term
	}
	return
}

// TensorBasis2D evaluates the p² tensor-product Lagrange basis at (r,s)
// with node ordering index = j*p+i (i fastest along r). Returns N, dNdr,
// dNds each of length p².
func TensorBasis2D(p int, knots []float64, r, s float64) (N, dNdr, dNds []float64) {
	n := p * p
	N = make([]float64, n)
	dNdr = make([]float64, n)
	dNds = make([]float64, n)
	for j := 0; j < p; j++ {
		vj, dj := lagrange1D(knots, j, s)
		for i := 0; i < p; i++ {
			vi, di := lagrange1D(knots, i, r)
			idx := j*p + i
			N[idx] = vi * vj
			dNdr[idx] = di * vj
			dNds[idx] = vi * dj
		}
	}
	return
}

// TensorBasis3D evaluates the p³ tensor-product Lagrange basis at
// (r,s,t) with node ordering index = k*p*p+j*p+i.
func TensorBasis3D(p int, knots []float64, r, s, t float64) (N, dNdr, dNds, dNdt []float64) {
	n := p * p * p
	N = make([]float64, n)
	dNdr = make([]float64, n)
	dNds = make([]float64, n)
	dNdt = make([]float64, n)
	for k := 0; k < p; k++ {
		vk, dk := lagrange1D(knots, k, t)
		for j := 0; j < p; j++ {
			vj, dj := lagrange1D(knots, j, s)
			for i := 0; i < p; i++ {
				vi, di := lagrange1D(knots, i, r)
				idx := k*p*p + j*p + i
				N[idx] = vi * vj * vk
				dNdr[idx] = di * vj * vk
				dNds[idx] = vi * dj * vk
				dNdt[idx] = vi * vj * dk
			}
		}
	}
	return
}
