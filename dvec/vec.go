// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package dvec implements the distributed nodal vector (Vec, §3): a
// container mapping a node index to a fixed-length tuple, with add/insert
// semantics, dependent-node routing and finalize/distribute collectives
// (§5). It mirrors the dense-slice + mpi.AllReduceSum pattern the teacher
// uses for its right-hand-side vector (fem/solver.go's d.Fb/d.Wb), rather
// than a sparse per-node map, since every rank carries the full node
// range and the collective simply sums contributions into it.
package dvec

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/mpi"

	"github.com/peekwez/tmr/forest"
)

// Vec is a distributed nodal vector: nnode nodes, each carrying a
// fixed-length tuple of width "width".
type Vec struct {
	nnode int
	width int
	data  []float64 // flattened [nnode*width], row-major per node
	work  []float64 // scratch buffer for mpi.AllReduceSum
	dep   *forest.DepNodeConn
}

// New allocates a zeroed Vec over nnode nodes of given width, wired to a
// dependent-node table (may be empty, never nil).
func New(nnode, width int, dep *forest.DepNodeConn) *Vec {
	if dep == nil {
		dep = &forest.DepNodeConn{}
	}
	return &Vec{
		nnode: nnode,
		width: width,
		data:  make([]float64, nnode*width),
		work:  make([]float64, nnode*width),
		dep:   dep,
	}
}

// Width returns the per-node tuple length.
func (o *Vec) Width() int { return o.width }

// NNode returns the number of (independent) nodes.
func (o *Vec) NNode() int { return o.nnode }

// Zero clears all entries.
func (o *Vec) Zero() {
	la.VecFill(o.data, 0)
}

// slot returns the flat offset for an independent node; panics on an
// out-of-range or dependent index (callers must resolve dependent nodes
// first via the dep table).
func (o *Vec) slot(node int) int {
	if node < 0 || node >= o.nnode {
		panic(chk.Err("dvec: node %d out of range [0,%d)", node, o.nnode))
	}
	return node * o.width
}

// GetValues reads back the (possibly dependent-resolved) tuple for each
// requested node into out[i] (len(out[i]) == width). Dependent nodes are
// resolved as the weighted sum of their independent contributors (§3).
func (o *Vec) GetValues(nodes []int, out [][]float64) {
	for i, n := range nodes {
		if forest.IsDependent(n) {
			contribNodes, weights, ok := o.dep.Contribs(n)
			for k := range out[i] {
				out[i][k] = 0
			}
			if !ok {
				continue
			}
			for c, indep := range contribNodes {
				off := o.slot(indep)
				for k := 0; k < o.width; k++ {
					out[i][k] += weights[c] * o.data[off+k]
				}
			}
			continue
		}
		off := o.slot(n)
		copy(out[i], o.data[off:off+o.width])
	}
}

// AddValues accumulates vals[i] into node nodes[i] with ADD semantics.
// A dependent-node target is routed through the table and its raw slot
// is never written (§3: "the reconstruction code zeros any entry whose
// target is dependent before assembling refined values").
func (o *Vec) AddValues(nodes []int, vals [][]float64) {
	for i, n := range nodes {
		if forest.IsDependent(n) {
			contribNodes, weights, ok := o.dep.Contribs(n)
			if !ok {
				continue // no-op: dependent node with no contributors
			}
			for c, indep := range contribNodes {
				off := o.slot(indep)
				for k := 0; k < o.width; k++ {
					o.data[off+k] += weights[c] * vals[i][k]
				}
			}
			continue
		}
		off := o.slot(n)
		for k := 0; k < o.width; k++ {
			o.data[off+k] += vals[i][k]
		}
	}
}

// InsertNonzero overwrites node nodes[i] with vals[i] (INSERT_NONZERO
// semantics, §6); used by the direct-interpolation path (C5) where no
// averaging is required. A dependent target is still routed through the
// table with ADD semantics, since an insert into a linear combination of
// several independent nodes cannot be expressed as a single overwrite.
func (o *Vec) InsertNonzero(nodes []int, vals [][]float64) {
	for i, n := range nodes {
		if forest.IsDependent(n) {
			contribNodes, weights, ok := o.dep.Contribs(n)
			if !ok {
				continue
			}
			for c, indep := range contribNodes {
				off := o.slot(indep)
				for k := 0; k < o.width; k++ {
					o.data[off+k] += weights[c] * vals[i][k]
				}
			}
			continue
		}
		off := o.slot(n)
		for k := 0; k < o.width; k++ {
			if vals[i][k] != 0 {
				o.data[off+k] = vals[i][k]
			}
		}
	}
}

// BeginFinalize/EndFinalize implement the finalize-add collective (§5):
// cross-process sum-reduce so that each shared node's owner holds the sum
// over contributors. The split exists so a caller may overlap local work
// with communication; no vector read may occur between Begin and End.
func (o *Vec) BeginFinalize() {
	// nothing to overlap with in this single-call implementation; kept
	// as a distinct method so callers can be written against the
	// begin/end contract even when running serially.
}

func (o *Vec) EndFinalize() {
	if mpi.IsOn() {
		mpi.AllReduceSum(o.data, o.work)
	}
}

// BeginDistribute/EndDistribute implement the distribute collective (§5):
// pull up-to-date values for shared nodes. Because this Vec keeps the
// full node range resident on every rank and EndFinalize already leaves
// every rank with the owner's summed value, distribute is a no-op beyond
// the ordering discipline it documents; a partitioned backing store would
// perform a gather/broadcast of owner values here instead.
func (o *Vec) BeginDistribute() {}
func (o *Vec) EndDistribute()  {}

// Raw exposes the flat backing array (analogous to gosl's getArray); used
// by goal/ and recon/ for node-local loops that need direct, allocation-
// free access rather than the copying GetValues path.
func (o *Vec) Raw() []float64 { return o.data }

// At returns a sub-slice view of node n's tuple (independent nodes only).
func (o *Vec) At(node int) []float64 {
	off := o.slot(node)
	return o.data[off : off+o.width]
}

// Copy returns a deep copy of o.
func (o *Vec) Copy() *Vec {
	c := New(o.nnode, o.width, o.dep)
	copy(c.data, o.data)
	return c
}
