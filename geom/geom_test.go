// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// Test_solveSquare02 exercises the dense Gauss-elimination step
// InvEvalPoint's Newton iteration relies on, against a known 2x2 system.
func Test_solveSquare02(tst *testing.T) {
	chk.PrintTitle("solveSquare: 2x2 Newton step")

	// J^T = [[2,1],[0,3]] (jac[0]=col0, jac[1]=col1 of J^T as stored:
	// jac[d] is row d of dx/du, so jac[0]={2,0}, jac[1]={1,3} encodes
	// J^T = [[2,1],[0,3]]).
	jac := [][]float64{{2, 0}, {1, 3}}
	res := []float64{5, 6}

	du, singular := solveSquare(jac, res)
	if singular {
		tst.Fatalf("solveSquare reported a singular system unexpectedly")
	}
	// 2*du0 + 1*du1 = 5; 0*du0 + 3*du1 = 6 => du1=2, du0=1.5
	chk.Vector(tst, "du", 1e-12, du, []float64{1.5, 2})
}

// Test_solveSquare03 checks the singular-system guard.
func Test_solveSquare03(tst *testing.T) {
	chk.PrintTitle("solveSquare: singular system is reported, not panicked")

	jac := [][]float64{{1, 1}, {0, 0}}
	_, singular := solveSquare(jac, []float64{1, 1})
	if !singular {
		tst.Errorf("expected singular=true for a rank-deficient Jacobian")
	}
}
