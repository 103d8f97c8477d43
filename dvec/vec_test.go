// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dvec

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/peekwez/tmr/forest"
)

// Test_dep01 exercises the dependent-node masking scenario (S6): a node
// whose index is < 0 is resolved through the contributor table on read,
// and never owns a raw storage slot of its own.
func Test_dep01(tst *testing.T) {

	chk.PrintTitle("dependent-node masking")

	// node index -1 is dependent on {3,7} with weights {1/2,1/2}; the
	// literal negative id from the spec's example is immaterial, only the
	// masking mechanism is under test here (depIndex: -1 => slot 0).
	dep := &forest.DepNodeConn{
		Ptr:     []int{0, 2},
		Conn:    []int{3, 7},
		Weights: []float64{0.5, 0.5},
		Ndep:    1,
	}
	v := New(10, 1, dep)
	v.AddValues([]int{3}, [][]float64{{4}})
	v.AddValues([]int{7}, [][]float64{{8}})

	out := [][]float64{{0}}
	v.GetValues([]int{-1}, out)
	chk.Scalar(tst, "D[dep] = 1/2*D[3] + 1/2*D[7]", 1e-15, out[0][0], 0.5*4+0.5*8)

	// Raw() is sized nnode*width and addressed only by non-negative node
	// indices: there is no storage location a dependent index could ever
	// write to directly.
	if len(v.Raw()) != 10*1 {
		tst.Errorf("raw storage size changed: got %d, want 10", len(v.Raw()))
	}
}

// Test_insertNonzero02 checks that InsertNonzero leaves a zero entry
// untouched (the INSERT_NONZERO semantics used by the direct-interpolation
// path, §4.5) while a nonzero entry overwrites.
func Test_insertNonzero02(tst *testing.T) {

	chk.PrintTitle("insert-nonzero semantics")

	v := New(3, 2, nil)
	v.InsertNonzero([]int{1}, [][]float64{{5, 0}})
	chk.Vector(tst, "node 1 after first insert", 1e-15, v.At(1), []float64{5, 0})

	v.InsertNonzero([]int{1}, [][]float64{{0, 9}})
	chk.Vector(tst, "node 1 after second insert (zero entry is a no-op)", 1e-15, v.At(1), []float64{5, 9})
}
