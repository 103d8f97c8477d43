// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goal

import (
	"github.com/peekwez/tmr/jacobian"
	"github.com/peekwez/tmr/recon"
)

// evalFieldVars is the explicit chain from (U, ubar) and J shared by C6.1's
// centroid evaluation and C6.3's Gauss-point sweeps: it combines the coarse
// field's physical gradient with the enrichment correction's at reference
// point pt, padding the result into the length-6 Mandel/Voigt-style tuple
// the mock collaborators expect as "vars"/"strain" (§9 Design Notes — a
// full displacement-strain B-matrix is out of scope for this mock pair).
// detJ is the element's Jacobian determinant at pt, needed by the KS
// quadrature weight; degen reports §7's skip-and-continue condition.
func evalFieldVars(g *recon.ElemGeom, Xpts, Uelem, ubar [][]float64, pt []float64) (vars [6]float64, detJ float64, degen bool, err error) {
	dim := g.Dim
	_, dN := g.CoarseBasis(pt)

	var vol jacobian.Result
	var shell jacobian.ShellResult
	if g.Shell {
		shell, err = jacobian.Shell(Xpts, dN[0], dN[1])
		detJ, degen = shell.DetJ, shell.Degen
	} else {
		vol, err = jacobian.Volume(Xpts, dN, dim)
		detJ, degen = vol.DetJ, vol.Degen
	}
	if err != nil || degen {
		return vars, detJ, degen, err
	}

	for i := range Uelem {
		dNi := make([]float64, dim)
		for a := 0; a < dim; a++ {
			dNi[a] = dN[a][i]
		}
		pg := recon.LocalGrad(g, vol, shell, dNi)
		for a := range pg {
			if a < 6 {
				vars[a] += pg[a] * Uelem[i][0]
			}
		}
	}
	_, enrDN := g.EnrichDeriv(pt)
	for e := range ubar {
		dNe := make([]float64, dim)
		for a := 0; a < dim; a++ {
			dNe[a] = enrDN[a][e]
		}
		pg := recon.LocalGrad(g, vol, shell, dNe)
		for a := range pg {
			if a < 6 {
				vars[a] += pg[a] * ubar[e][0]
			}
		}
	}
	return vars, detJ, false, nil
}
