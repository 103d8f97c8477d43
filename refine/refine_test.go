// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refine

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/recon"
)

func affineField(x, y, z float64) float64 { return 1 + x + y + z }

// Test_S1_refined completes the S1 patch test (§8) at the C5 layer: the
// refined field onto a p=3 embedded mesh must reproduce an affine coarse
// field exactly at every refined node.
func Test_S1_refined(tst *testing.T) {

	chk.PrintTitle("S1 patch test (C5 refined field)")

	f := forest.NewCartesian(3, 2, []int{2, 2, 2}, []float64{0, 0, 0}, []float64{1, 1, 1}, 1)
	fr := forest.NewCartesian(3, 3, []int{2, 2, 2}, []float64{0, 0, 0}, []float64{1, 1, 1}, 1)

	pts := f.Points()
	U := dvec.New(len(pts), 1, f.DepNodes())
	for n, p := range pts {
		U.InsertNonzero([]int{n}, [][]float64{{affineField(p.X, p.Y, p.Z)}})
	}
	w := recon.ComputeWeights(f)
	D, err := recon.ComputeNodeDeriv(f, U, w)
	if err != nil {
		tst.Fatalf("ComputeNodeDeriv: %v", err)
	}

	g := recon.NewElemGeom(f, 2, false)
	cfg := config.NewDefault()
	Uref := dvec.New(len(fr.Points()), 1, fr.DepNodes())
	if err := AddRefinedSolution(f, fr, g, cfg, U, D, Uref, false, nil); err != nil {
		tst.Fatalf("AddRefinedSolution: %v", err)
	}

	for n, p := range fr.Points() {
		want := affineField(p.X, p.Y, p.Z)
		chk.Scalar(tst, "Uref[n]", 1e-9, Uref.At(n)[0], want)
	}
}

// Test_interpSolution checks computeInterpSolution's direct-interpolation
// path against the same affine field: no enrichment is needed to reproduce
// it, so the insert-nonzero path must match exactly too.
func Test_interpSolution(tst *testing.T) {

	chk.PrintTitle("computeInterpSolution direct path")

	f := forest.NewCartesian(3, 2, []int{2, 2, 2}, []float64{0, 0, 0}, []float64{1, 1, 1}, 1)
	fr := forest.NewCartesian(3, 3, []int{2, 2, 2}, []float64{0, 0, 0}, []float64{1, 1, 1}, 1)

	pts := f.Points()
	U := dvec.New(len(pts), 1, f.DepNodes())
	for n, p := range pts {
		U.InsertNonzero([]int{n}, [][]float64{{affineField(p.X, p.Y, p.Z)}})
	}

	g := recon.NewElemGeom(f, 2, false)
	Uref := dvec.New(len(fr.Points()), 1, fr.DepNodes())
	if err := ComputeInterpSolution(f, fr, g, U, Uref, nil); err != nil {
		tst.Fatalf("ComputeInterpSolution: %v", err)
	}

	for n, p := range fr.Points() {
		want := affineField(p.X, p.Y, p.Z)
		chk.Scalar(tst, "Uref[n] (interp)", 1e-9, Uref.At(n)[0], want)
	}
}
