// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package forest declares the external collaborator interfaces this core
// relies on: the octree/quadtree topology, element-node connectivity and
// the dependent-node (hanging-node) table (§6). The forest's own
// refinement logic lives outside this module's scope; only the read
// contract it exposes to the reconstruction and goal-functional packages
// is declared here, plus a small deterministic Cartesian mock used by the
// test suites in recon/, refine/ and goal/.
package forest

import "github.com/cpmech/gosl/chk"

// Point is a 3D coordinate triple in physical space.
type Point struct {
	X, Y, Z float64
}

// Array returns p as a length-3 slice, the shape most linear-algebra
// helpers in this module expect.
func (p Point) Array() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// DepNodeConn is the dependent-node (hanging-node) table (§3). A node
// index n < 0 encodes a dependent node; its independent contributors and
// weights are looked up via Contribs(n).
type DepNodeConn struct {
	Ptr     []int     // CSR-style offsets into Conn/Weights, one per dependent node plus a sentinel
	Conn    []int     // independent-node contributors, concatenated per dependent node
	Weights []float64 // weights paired with Conn
	Ndep    int        // number of dependent nodes
}

// depIndex maps a dependent node index (< 0) to a 0-based slot in Ptr.
// The convention used throughout this package is node index -1 => slot 0,
// node index -2 => slot 1, and so on; forest implementations that use a
// different encoding must translate at their own boundary.
func depIndex(node int) (idx int, ok bool) {
	if node >= 0 {
		return 0, false
	}
	return -node - 1, true
}

// Contribs returns the independent-node contributors and weights for a
// dependent node index (node < 0). Returns ok=false for an independent
// node or an out-of-range slot.
func (d *DepNodeConn) Contribs(node int) (nodes []int, weights []float64, ok bool) {
	idx, isDep := depIndex(node)
	if !isDep || d == nil || idx >= d.Ndep || idx+1 >= len(d.Ptr) {
		return nil, nil, false
	}
	lo, hi := d.Ptr[idx], d.Ptr[idx+1]
	return d.Conn[lo:hi], d.Weights[lo:hi], true
}

// IsDependent reports whether node encodes a dependent (hanging) node.
func IsDependent(node int) bool {
	return node < 0
}

// Resolve expands a value assigned to (possibly dependent) node into a set
// of (independent-node, weighted-value) pairs, as required by the Vec
// contract (§3): "set-at-indices routes any value assigned to a dependent
// node through the table before accumulation".
func (d *DepNodeConn) Resolve(node int, value float64) (nodes []int, values []float64) {
	contribNodes, weights, ok := d.Contribs(node)
	if !ok {
		return []int{node}, []float64{value}
	}
	values = make([]float64, len(contribNodes))
	for i, w := range weights {
		values[i] = w * value
	}
	return contribNodes, values
}

// Topology groups elements by a topological name (§6): "getTopology()"
// with getNumFaces/Volumes, getFace/Volume(k), getName(); getQuadsWithName
// / getOctsWithName to filter elements.
type Topology interface {
	NumFaces() int
	NumVolumes() int
	Face(k int) []int
	Volume(k int) []int
	Name(k int) string
	QuadsWithName(name string) []int
	OctsWithName(name string) []int
}

// Forest is the external collaborator owning element-node connectivity, a
// mesh order, a knots array and the dependent-node table (§3, §6).
type Forest interface {
	// Dim returns 2 or 3.
	Dim() int

	// Order returns the mesh order p and its knot vector (§3).
	Order() (p int, knots []float64)

	// EvalInterp evaluates the Lagrange basis N and its derivatives
	// (Na, Nb, [Nc]) at a reference-space point pt (§6 evalInterp).
	EvalInterp(pt []float64, N []float64, dN [][]float64) error

	// NodeConn returns the element-node connectivity and element count
	// (§6 getNodeConn).
	NodeConn() (conn [][]int, nelems int)

	// Points returns the physical-space node positions on this forest
	// (§6 getPoints).
	Points() []Point

	// DepNodes returns the dependent-node table (§6 getDepNodeConn).
	DepNodes() *DepNodeConn

	// Topology returns the topological grouping collaborator.
	Topology() Topology

	// VarsPerNode returns the number of solution variables carried per
	// node (e.g. 1 for a scalar design field, 3 for a displacement
	// field).
	VarsPerNode() int
}

// RequireForest is the one fatal contract violation named in §7: a nil
// forest collaborator halts the run rather than being silently repaired.
func RequireForest(f Forest) {
	if f == nil {
		panic(chk.Err("forest: collaborator must not be nil"))
	}
}
