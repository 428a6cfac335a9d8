// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package msh implements structured one-dimensional meshes made of sub-domains
package msh

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
)

// coordinate systems
const (
	Cartesian = "cartesian"
	Spherical = "spherical"
)

// tolerance to decide whether two sub-domains touch
const touchTol = 1e-12

// SubDomain holds the geometry of one sub-domain
type SubDomain struct {
	Name  string    `json:"name"`  // name; e.g. "negative electrode"
	Min   float64   `json:"min"`   // left coordinate
	Max   float64   `json:"max"`   // right coordinate
	Npts  int       `json:"npts"`  // number of cells
	Coord string    `json:"coord"` // coordinate system: "cartesian" (default) or "spherical"
	Edges []float64 `json:"edges"` // user-given edges; overrides Min, Max and Npts
}

// SubMesh holds a structured mesh over one or more adjacent sub-domains
type SubMesh struct {
	Names []string  // sub-domains spanned, in order
	Coord string    // coordinate system
	Edges []float64 // [n+1] face coordinates
	Nodes []float64 // [n] cell-centre coordinates
	Dx    []float64 // [n] cell widths
	Dxc   []float64 // [n-1] distances between consecutive centres
	Left  string    // left neighbour; empty if none
	Right string    // right neighbour; empty if none
}

// Mesh holds the ordered sub-meshes. A Mesh is immutable once built and can be shared by
// concurrent solves.
type Mesh struct {
	Subs  []*SubMesh          // one per sub-domain, in order
	index map[string]int      // name => index in Subs
	hash  uint64              // content hash
	mu    sync.Mutex          // guards combined
	comb  map[string]*SubMesh // combined sub-meshes
}

// New builds a mesh from geometry descriptors. A mesh without sub-domains serves models of
// scalar variables only.
func New(geo ...*SubDomain) (o *Mesh, err error) {
	o = &Mesh{index: make(map[string]int), comb: make(map[string]*SubMesh)}
	for _, g := range geo {
		if _, ok := o.index[g.Name]; ok {
			return nil, chk.Err("sub-domain %q is defined more than once", g.Name)
		}
		var sub *SubMesh
		sub, err = newSubMesh(g)
		if err != nil {
			return nil, err
		}
		o.index[g.Name] = len(o.Subs)
		o.Subs = append(o.Subs, sub)
	}

	// neighbours
	for i := 1; i < len(o.Subs); i++ {
		a, b := o.Subs[i-1], o.Subs[i]
		if touches(a, b) {
			a.Right, b.Left = b.Names[0], a.Names[0]
		}
	}
	o.hash = o.computeHash()
	return
}

// Get returns the sub-mesh of one sub-domain
func (o *Mesh) Get(name string) (sub *SubMesh, found bool) {
	i, found := o.index[name]
	if !found {
		return
	}
	return o.Subs[i], true
}

// Combine returns one sub-mesh spanning adjacent sub-domains given in order
func (o *Mesh) Combine(domains []string) (sub *SubMesh, err error) {
	if len(domains) == 0 {
		return nil, chk.Err("cannot combine an empty list of sub-domains")
	}
	if len(domains) == 1 {
		var found bool
		if sub, found = o.Get(domains[0]); !found {
			return nil, chk.Err("sub-domain %q is not in the mesh", domains[0])
		}
		return
	}
	key := strings.Join(domains, "\x00")
	o.mu.Lock()
	defer o.mu.Unlock()
	if sub = o.comb[key]; sub != nil {
		return
	}
	parts := make([]*SubMesh, len(domains))
	for i, name := range domains {
		k, found := o.index[name]
		if !found {
			return nil, chk.Err("sub-domain %q is not in the mesh", name)
		}
		parts[i] = o.Subs[k]
		if i > 0 && parts[i-1].Right != name {
			return nil, chk.Err("sub-domains %q and %q are not adjacent", domains[i-1], name)
		}
	}
	sub = &SubMesh{
		Names: append([]string{}, domains...),
		Coord: parts[0].Coord,
		Left:  parts[0].Left,
		Right: parts[len(parts)-1].Right,
	}
	sub.Edges = append(sub.Edges, parts[0].Edges...)
	for _, p := range parts[1:] {
		sub.Edges = append(sub.Edges, p.Edges[1:]...)
	}
	sub.compute()
	o.comb[key] = sub
	return
}

// Npts returns the number of cells of the combined sub-domains
func (o *Mesh) Npts(domains []string) (n int, err error) {
	sub, err := o.Combine(domains)
	if err != nil {
		return
	}
	return sub.N(), nil
}

// Hash returns a content hash
func (o *Mesh) Hash() uint64 { return o.hash }

// N returns the number of cells
func (o *SubMesh) N() int { return len(o.Nodes) }

// Volumes returns the cell volumes (cartesian: widths; spherical: shell volumes)
func (o *SubMesh) Volumes() (v []float64) {
	v = make([]float64, o.N())
	for i := range v {
		if o.Coord == Spherical {
			v[i] = 4.0 * math.Pi / 3.0 * (math.Pow(o.Edges[i+1], 3) - math.Pow(o.Edges[i], 3))
		} else {
			v[i] = o.Dx[i]
		}
	}
	return
}

// Areas returns the face areas (cartesian: 1; spherical: 4πr²)
func (o *SubMesh) Areas() (a []float64) {
	a = make([]float64, len(o.Edges))
	for i, r := range o.Edges {
		if o.Coord == Spherical {
			a[i] = 4.0 * math.Pi * r * r
		} else {
			a[i] = 1
		}
	}
	return
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// newSubMesh builds the sub-mesh of one descriptor
func newSubMesh(g *SubDomain) (o *SubMesh, err error) {
	o = &SubMesh{Names: []string{g.Name}, Coord: g.Coord}
	if o.Coord == "" {
		o.Coord = Cartesian
	}
	if o.Coord != Cartesian && o.Coord != Spherical {
		return nil, chk.Err("sub-domain %q: coordinate system %q is not available", g.Name, g.Coord)
	}
	if len(g.Edges) > 0 {
		o.Edges = append([]float64{}, g.Edges...)
	} else {
		if g.Npts < 1 {
			return nil, chk.Err("sub-domain %q: number of cells must be positive; got %d", g.Name, g.Npts)
		}
		if g.Max <= g.Min {
			return nil, chk.Err("sub-domain %q: max (%g) must be greater than min (%g)", g.Name, g.Max, g.Min)
		}
		o.Edges = utl.LinSpace(g.Min, g.Max, g.Npts+1)
	}
	if len(o.Edges) < 2 {
		return nil, chk.Err("sub-domain %q: at least two edges are required", g.Name)
	}
	for i := 1; i < len(o.Edges); i++ {
		if o.Edges[i] <= o.Edges[i-1] {
			return nil, chk.Err("sub-domain %q: edges must be strictly increasing; check edge %d", g.Name, i)
		}
	}
	if o.Coord == Spherical && o.Edges[0] < 0 {
		return nil, chk.Err("sub-domain %q: spherical radius cannot be negative", g.Name)
	}
	o.compute()
	return
}

// compute sets nodes and widths from edges
func (o *SubMesh) compute() {
	n := len(o.Edges) - 1
	o.Nodes = make([]float64, n)
	o.Dx = make([]float64, n)
	for i := 0; i < n; i++ {
		o.Nodes[i] = (o.Edges[i] + o.Edges[i+1]) / 2.0
		o.Dx[i] = o.Edges[i+1] - o.Edges[i]
	}
	nc := n - 1
	if nc < 0 {
		nc = 0
	}
	o.Dxc = make([]float64, nc)
	for i := range o.Dxc {
		o.Dxc[i] = o.Nodes[i+1] - o.Nodes[i]
	}
}

// touches tells whether b starts where a ends
func touches(a, b *SubMesh) bool {
	xa, xb := a.Edges[len(a.Edges)-1], b.Edges[0]
	return a.Coord == b.Coord && math.Abs(xa-xb) <= touchTol*(1+math.Abs(xa))
}

func (o *Mesh) computeHash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, sub := range o.Subs {
		d.WriteString(sub.Names[0])
		d.Write([]byte{0})
		d.WriteString(sub.Coord)
		d.Write([]byte{0})
		for _, x := range sub.Edges {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			d.Write(buf[:])
		}
	}
	return d.Sum64()
}
