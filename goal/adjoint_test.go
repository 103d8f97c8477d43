// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goal

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
)

// Test_adjoint01 is a single-element sanity check of C6.2's deposit and
// corner-sum pipeline: with Uref≡2 and psi≡3 everywhere, the mock
// collaborator's addLocalizedError deposits psi·U=6 at each of the
// element's 8 corner nodes, so the corner-weighted indicator is
// |8·6|·⅛ = 6 and the raw correction sum is 8·6 = 48.
func Test_adjoint01(tst *testing.T) {
	chk.PrintTitle("adjoint-weighted residual estimator: single-element sanity")

	fr := forest.NewCartesian(3, 2, []int{1, 1, 1}, []float64{0, 0, 0}, []float64{1, 1, 1}, 1)
	pts := fr.Points()
	Uref := dvec.New(len(pts), 1, fr.DepNodes())
	Psi := dvec.New(len(pts), 1, fr.DepNodes())
	for n := range pts {
		Uref.InsertNonzero([]int{n}, [][]float64{{2}})
		Psi.InsertNonzero([]int{n}, [][]float64{{3}})
	}

	_, nelems := fr.NodeConn()
	elems := newLinearElems(nelems)

	totalErr, correction, err := AdjointResidualEstimate(fr, elems, Uref, Psi, 0)
	if err != nil {
		tst.Fatalf("AdjointResidualEstimate: %v", err)
	}
	chk.Scalar(tst, "total error", 1e-9, totalErr, 6.0)
	chk.Scalar(tst, "correction", 1e-9, correction, 48.0)
}
