// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goal

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/peekwez/tmr/collab"
	"github.com/peekwez/tmr/config"
	"github.com/peekwez/tmr/dvec"
	"github.com/peekwez/tmr/forest"
	"github.com/peekwez/tmr/recon"
)

func newLinearElems(nelems int) []collab.Element {
	mat := &collab.LinearElastic{E: 1000, Nu: 0.3, Yield0: 1.0}
	elems := make([]collab.Element, nelems)
	for e := range elems {
		elems[e] = collab.NewLinearElement(nil, mat, 8)
	}
	return elems
}

// Test_S3_zeroEnergy completes testable property 3 (§8, null case) at the
// C6.1 layer: a constant field carries zero reconstructed strain energy,
// since D=0 and ubar=0 for every element.
func Test_S3_zeroEnergy(tst *testing.T) {
	chk.PrintTitle("strain-energy estimator: constant field carries zero energy")

	f := forest.NewCartesian(3, 2, []int{2, 2, 2}, []float64{0, 0, 0}, []float64{1, 1, 1}, 1)
	pts := f.Points()
	U := dvec.New(len(pts), 1, f.DepNodes())
	for n := range pts {
		U.InsertNonzero([]int{n}, [][]float64{{5.0}})
	}
	w := recon.ComputeWeights(f)
	D, err := recon.ComputeNodeDeriv(f, U, w)
	if err != nil {
		tst.Fatalf("ComputeNodeDeriv: %v", err)
	}

	g := recon.NewElemGeom(f, 2, false)
	cfg := config.NewDefault()
	_, nelems := f.NodeConn()
	elems := newLinearElems(nelems)

	total, err := StrainEnergyEstimate(f, g, cfg, U, D, elems, 0)
	if err != nil {
		tst.Fatalf("StrainEnergyEstimate: %v", err)
	}
	chk.Scalar(tst, "total strain energy", 1e-9, total, 0)
}
