// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package forest

import "github.com/cpmech/gosl/chk"

// Cartesian is a deterministic, conforming Cartesian-brick Forest used by
// the test suites (S1-S5, S7 in spec.md §8). It has no hanging nodes; the
// dependent-node masking scenario (S6) is covered by dvec's Test_dep01
// with a small hand-built DepNodeConn table, since a conforming brick
// cannot itself produce a hanging node.
type Cartesian struct {
	dim      int
	p        int
	nel      []int     // elements per axis
	lo, hi   []float64 // domain bounds
	varsPer  int
	knots    []float64
	nodesPer []int // nodes per axis = nel[a]*(p-1)+1
	points   []Point
	conn     [][]int
}

// NewCartesian builds a conforming brick mesh of order p over [lo,hi]^dim
// with nel[a] elements along axis a.
func NewCartesian(dim, p int, nel []int, lo, hi []float64, varsPer int) *Cartesian {
	if dim != len(nel) || dim != len(lo) || dim != len(hi) {
		panic(chk.Err("forest: Cartesian dim mismatch"))
	}
	o := &Cartesian{
		dim: dim, p: p, nel: append([]int{}, nel...),
		lo: append([]float64{}, lo...), hi: append([]float64{}, hi...),
		varsPer: varsPer, knots: Knots(p),
	}
	o.nodesPer = make([]int, dim)
	for a := 0; a < dim; a++ {
		o.nodesPer[a] = nel[a]*(p-1) + 1
	}
	o.buildPoints()
	o.buildConn()
	return o
}

func (o *Cartesian) axisCoord(a, globalIdx int) float64 {
	n := o.nodesPer[a]
	if n == 1 {
		return o.lo[a]
	}
	frac := float64(globalIdx) / float64(n-1)
	return o.lo[a] + frac*(o.hi[a]-o.lo[a])
}

func (o *Cartesian) nodeIndex(gidx []int) int {
	if o.dim == 2 {
		return gidx[1]*o.nodesPer[0] + gidx[0]
	}
	return gidx[2]*o.nodesPer[0]*o.nodesPer[1] + gidx[1]*o.nodesPer[0] + gidx[0]
}

func (o *Cartesian) buildPoints() {
	if o.dim == 2 {
		nx, ny := o.nodesPer[0], o.nodesPer[1]
		o.points = make([]Point, nx*ny)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				o.points[o.nodeIndex([]int{i, j})] = Point{X: o.axisCoord(0, i), Y: o.axisCoord(1, j)}
			}
		}
		return
	}
	nx, ny, nz := o.nodesPer[0], o.nodesPer[1], o.nodesPer[2]
	o.points = make([]Point, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				o.points[o.nodeIndex([]int{i, j, k})] = Point{X: o.axisCoord(0, i), Y: o.axisCoord(1, j), Z: o.axisCoord(2, k)}
			}
		}
	}
}

func (o *Cartesian) buildConn() {
	p := o.p
	if o.dim == 2 {
		for ey := 0; ey < o.nel[1]; ey++ {
			for ex := 0; ex < o.nel[0]; ex++ {
				nodes := make([]int, p*p)
				for j := 0; j < p; j++ {
					for i := 0; i < p; i++ {
						gi := ex*(p-1) + i
						gj := ey*(p-1) + j
						nodes[j*p+i] = o.nodeIndex([]int{gi, gj})
					}
				}
				o.conn = append(o.conn, nodes)
			}
		}
		return
	}
	for ez := 0; ez < o.nel[2]; ez++ {
		for ey := 0; ey < o.nel[1]; ey++ {
			for ex := 0; ex < o.nel[0]; ex++ {
				nodes := make([]int, p*p*p)
				for k := 0; k < p; k++ {
					for j := 0; j < p; j++ {
						for i := 0; i < p; i++ {
							gi := ex*(p-1) + i
							gj := ey*(p-1) + j
							gk := ez*(p-1) + k
							nodes[k*p*p+j*p+i] = o.nodeIndex([]int{gi, gj, gk})
						}
					}
				}
				o.conn = append(o.conn, nodes)
			}
		}
	}
}

func (o *Cartesian) Dim() int { return o.dim }

func (o *Cartesian) Order() (int, []float64) { return o.p, o.knots }

func (o *Cartesian) EvalInterp(pt []float64, N []float64, dN [][]float64) error {
	if o.dim == 2 {
		n, dr, ds := TensorBasis2D(o.p, o.knots, pt[0], pt[1])
		copy(N, n)
		copy(dN[0], dr)
		copy(dN[1], ds)
		return nil
	}
	n, dr, ds, dt := TensorBasis3D(o.p, o.knots, pt[0], pt[1], pt[2])
	copy(N, n)
	copy(dN[0], dr)
	copy(dN[1], ds)
	copy(dN[2], dt)
	return nil
}

func (o *Cartesian) NodeConn() ([][]int, int) { return o.conn, len(o.conn) }

func (o *Cartesian) Points() []Point { return o.points }

func (o *Cartesian) DepNodes() *DepNodeConn { return &DepNodeConn{} }

func (o *Cartesian) VarsPerNode() int { return o.varsPer }

func (o *Cartesian) Topology() Topology { return &flatTopology{n: len(o.conn)} }

// flatTopology groups every element under the name "all"; adequate for a
// conforming test mesh that has no auxiliary face/volume grouping.
type flatTopology struct{ n int }

func (t *flatTopology) NumFaces() int     { return 0 }
func (t *flatTopology) NumVolumes() int   { return 0 }
func (t *flatTopology) Face(k int) []int  { return nil }
func (t *flatTopology) Volume(k int) []int { return nil }
func (t *flatTopology) Name(k int) string { return "all" }
func (t *flatTopology) QuadsWithName(name string) []int {
	return t.allIds(name)
}
func (t *flatTopology) OctsWithName(name string) []int {
	return t.allIds(name)
}
func (t *flatTopology) allIds(name string) []int {
	if name != "all" {
		return nil // §7: missing element in name group is an empty group
	}
	ids := make([]int, t.n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}
