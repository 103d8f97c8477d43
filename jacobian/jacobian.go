// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package jacobian implements C2, the Jacobian kernel: from element node
// coordinates and shape-function derivatives, produce the transformation
// matrix and its inverse, plus the specialized 2D-shell variant embedded
// in 3D space. Grounded on shp.Shape.CalcAtIp's dxdR/dRdx construction
// (shp/shp.go), generalized to the enrichment-augmented reconstruction's
// own Jacobian needs.
package jacobian

import (
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// MinDet is the minimum |detJ| below which an element is treated as
// degenerate (§4.2, §7): the contribution is skipped, not fatal.
const MinDet = 1.0e-14

// Result holds the outputs of a volume Jacobian evaluation: Xd (the
// coordinate-derivative matrix), J (its inverse) and detJ.
type Result struct {
	Xd    [][]float64 // [dim][dim] dx_i/dXi_j
	J     [][]float64 // [dim][dim] inverse of Xd
	DetJ  float64
	Degen bool // true if detJ <= 0 (§4.2 failure mode)
}

// Volume computes the 2D or 3D volume Jacobian at one point. Xpts is
// [nverts][dim] physical node coordinates; dN is [dim][nverts] reference-
// space shape-function derivatives (the forest.EvalInterp convention).
func Volume(Xpts [][]float64, dN [][]float64, dim int) (res Result, err error) {
	res.Xd = la.MatAlloc(dim, dim)
	res.J = la.MatAlloc(dim, dim)
	nverts := len(Xpts)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			sum := 0.0
			for n := 0; n < nverts; n++ {
				sum += Xpts[n][i] * dN[j][n]
			}
			res.Xd[i][j] = sum
		}
	}
	res.DetJ, err = la.MatInv(res.J, res.Xd, MinDet)
	if err != nil || res.DetJ <= 0 {
		res.Degen = true
		io.Pf("jacobian: degenerate element, detJ = %g\n", res.DetJ)
		return res, nil // §7: not fatal; caller skips the contribution
	}
	return res, nil
}

// ShellResult holds the outputs of the 2D-shell Jacobian variant: the
// local in-plane frame (D1, D2), the unit normal, the 2x2 reduced
// Jacobian mapping (ξ,η) to local in-plane coordinates, and its inverse.
type ShellResult struct {
	D1, D2, Normal [3]float64
	Jred, Jinv     [][]float64 // [2][2]
	DetJ           float64
	Degen          bool
}

// Shell computes the 2D-shell Jacobian for an element embedded in 3D
// space (§4.2). Xpts is [nverts][3]; dNdxi, dNdeta are length-nverts
// reference-space derivatives of the coarse shape functions.
//
// The first two rows of Xd (dx/dξ, dx/dη) are formed directly; the third
// is the unit normal n = normalize(Xd0 × Xd1). The local frame used by
// the least-squares problem is d1 = Xd0/‖Xd0‖, d2 = n × d1.
func Shell(Xpts [][]float64, dNdxi, dNdeta []float64) (res ShellResult, err error) {
	var row0, row1 [3]float64
	nverts := len(Xpts)
	for n := 0; n < nverts; n++ {
		for i := 0; i < 3; i++ {
			row0[i] += Xpts[n][i] * dNdxi[n]
			row1[i] += Xpts[n][i] * dNdeta[n]
		}
	}
	normal := cross(row0, row1)
	detJ := norm3(normal)
	if detJ <= MinDet {
		res.Degen = true
		io.Pf("jacobian: degenerate shell element, detJ = %g\n", detJ)
		return res, nil
	}
	normal = scale3(normal, 1.0/detJ)

	d1 := scale3(row0, 1.0/norm3(row0))
	d2 := cross(normal, d1)

	res.D1, res.D2, res.Normal, res.DetJ = d1, d2, normal, detJ

	res.Jred = la.MatAlloc(2, 2)
	res.Jred[0][0] = dot3(row0, d1)
	res.Jred[0][1] = dot3(row1, d1)
	res.Jred[1][0] = dot3(row0, d2)
	res.Jred[1][1] = dot3(row1, d2)

	res.Jinv = la.MatAlloc(2, 2)
	detJred, ierr := la.MatInv(res.Jinv, res.Jred, MinDet)
	if ierr != nil || detJred <= 0 {
		res.Degen = true
		io.Pf("jacobian: degenerate shell in-plane map, det = %g\n", detJred)
	}
	return res, nil
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm3(a [3]float64) float64 {
	return la.VecNorm(a[:])
}

func scale3(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}
