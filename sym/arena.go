// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package sym implements the symbolic expression graph: an append-only arena of hash-consed
// nodes supporting evaluation, simplification, differentiation and symbolic Jacobians
package sym

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/gosl/io"
)

// Id is a handle to a node in an Arena
type Id int

// Nil is the invalid handle
const Nil Id = -1

// Loc tells where the entries of a spatial quantity live
type Loc int

const (
	Nodes Loc = iota // cell centres
	Edges            // cell faces
)

// Side selects one end of a spatial domain
type Side int

const (
	Left Side = iota
	Right
)

// String returns "left" or "right"
func (o Side) String() string {
	if o == Left {
		return "left"
	}
	return "right"
}

// errors
var (
	ErrShape            = errors.New("domain/shape mismatch")
	ErrUnboundParameter = errors.New("unbound parameter")
	ErrUnboundVariable  = errors.New("unbound variable")
	ErrNotDiscretised   = errors.New("operator must be discretised before evaluation")
)

// Error is raised (panic) by node constructors when the operands are incompatible.
// Use Build to convert it into an error value.
type Error struct {
	Err error  // sentinel; e.g. ErrShape
	Msg string // context
}

// Error implements error
func (o *Error) Error() string { return o.Err.Error() + ": " + o.Msg }

// Unwrap returns the sentinel
func (o *Error) Unwrap() error { return o.Err }

// Errf returns an *Error wrapping sentinel with a formatted message
func Errf(sentinel error, msg string, prm ...interface{}) error {
	return &Error{Err: sentinel, Msg: io.Sf(msg, prm...)}
}

// raise panics with a construction error
func raise(sentinel error, msg string, prm ...interface{}) {
	panic(Errf(sentinel, msg, prm...))
}

// Build runs fcn and converts construction panics (*Error) into an error
func Build(fcn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	fcn()
	return
}

// Node holds the (immutable) data of one expression node
type Node struct {
	Kind     Kind     // variant
	Name     string   // variable, parameter or state-vector name
	Value    float64  // constant value
	Domain   []string // ordered sub-domains; empty means no spatial domain
	Loc      Loc      // location of entries (nodes or edges)
	Size     int      // number of entries (rows); 0 means not known yet (before discretisation)
	Cols     int      // number of columns of Jacobian nodes
	Aux      int      // StateVector: lo; Index: position; boundary ops: side; MatMul/JacConst: matrix; Vector: array
	Aux2     int      // StateVector: hi
	Children []Id     // operands
	Hash     uint64   // structural hash
}

// IsScalar tells whether the node holds a single number
func (o *Node) IsScalar() bool {
	return len(o.Domain) == 0 && o.Size <= 1
}

// Arena holds all nodes. Nodes are never modified after creation; the arena only grows.
type Arena struct {
	mu    sync.RWMutex
	nodes []Node            // all nodes; index == Id
	mats  []*SpMat          // constant sparse matrices referenced by nodes
	vecs  [][]float64       // constant arrays referenced by nodes
	index map[uint64][]Id   // structural hash => nodes
	mindx map[uint64][]int  // matrix hash => matrices
	vindx map[uint64][]int  // array hash => arrays
	simp  map[Id]Id         // simplification results
	diffs map[[2]Id]Id      // derivatives: {expr, wrt} => result
	jacs  map[[2]int]Id     // jacobians: {expr, ncols} => result
	names map[string]string // variable name => domain key (consistency check)
	id    uint64            // serial number
}

// arenas counts the arenas created so far
var arenas uint64

// NewArena returns a new arena
func NewArena() (o *Arena) {
	o = new(Arena)
	o.index = make(map[uint64][]Id)
	o.mindx = make(map[uint64][]int)
	o.vindx = make(map[uint64][]int)
	o.simp = make(map[Id]Id)
	o.diffs = make(map[[2]Id]Id)
	o.jacs = make(map[[2]int]Id)
	o.names = make(map[string]string)
	o.id = atomic.AddUint64(&arenas, 1)
	return
}

// Serial returns a number identifying the arena within the running program
func (o *Arena) Serial() uint64 { return o.id }

// Len returns the number of nodes
func (o *Arena) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.nodes)
}

// Node returns a copy of the node data
func (o *Arena) Node(id Id) Node {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.nodes[id]
}

// Hash returns the structural hash of a node
func (o *Arena) Hash(id Id) uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.nodes[id].Hash
}

// Matrix returns the constant matrix referenced by a MatMul or JacConst node
func (o *Arena) Matrix(id Id) *SpMat {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n := &o.nodes[id]
	if n.Kind != KindMatMul && n.Kind != KindJacConst {
		return nil
	}
	return o.mats[n.Aux]
}

// Array returns the constant array referenced by a Vector node
func (o *Arena) Array(id Id) []float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n := &o.nodes[id]
	if n.Kind != KindVector {
		return nil
	}
	return o.vecs[n.Aux]
}

// snapshot returns the current node, matrix and array tables. Entries below the returned
// lengths are immutable and can be read without locking.
func (o *Arena) snapshot() ([]Node, []*SpMat, [][]float64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.nodes, o.mats, o.vecs
}

// intern adds a node unless a structurally identical one exists
func (o *Arena) intern(n Node) Id {
	o.mu.Lock()
	defer o.mu.Unlock()
	n.Hash = o.hashNode(&n)
	for _, id := range o.index[n.Hash] {
		if o.same(&o.nodes[id], &n) {
			return id
		}
	}
	id := Id(len(o.nodes))
	o.nodes = append(o.nodes, n)
	o.index[n.Hash] = append(o.index[n.Hash], id)
	return id
}

// internMat registers a constant matrix (deduplicated by content)
func (o *Arena) internMat(m *SpMat) int {
	h := m.Hash()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, k := range o.mindx[h] {
		if o.mats[k].Equal(m) {
			return k
		}
	}
	k := len(o.mats)
	o.mats = append(o.mats, m)
	o.mindx[h] = append(o.mindx[h], k)
	return k
}

// internVec registers a constant array (deduplicated by content)
func (o *Arena) internVec(v []float64) int {
	h := hashFloats(v)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, k := range o.vindx[h] {
		if equalFloats(o.vecs[k], v) {
			return k
		}
	}
	k := len(o.vecs)
	o.vecs = append(o.vecs, append([]float64{}, v...))
	o.vindx[h] = append(o.vindx[h], k)
	return k
}

// hashNode computes the structural hash from the node content and the hashes of its
// children; matrices and arrays contribute their content hash. Must be called with lock held.
func (o *Arena) hashNode(n *Node) uint64 {
	d := xxhash.New()
	var buf [8]byte
	putInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}
	putInt(int(n.Kind))
	d.WriteString(n.Name)
	d.Write([]byte{0})
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(n.Value))
	d.Write(buf[:])
	putInt(len(n.Domain))
	for _, s := range n.Domain {
		d.WriteString(s)
		d.Write([]byte{0})
	}
	putInt(int(n.Loc))
	putInt(n.Size)
	putInt(n.Cols)
	switch n.Kind {
	case KindMatMul, KindJacConst:
		binary.LittleEndian.PutUint64(buf[:], o.mats[n.Aux].Hash())
		d.Write(buf[:])
	case KindVector:
		binary.LittleEndian.PutUint64(buf[:], hashFloats(o.vecs[n.Aux]))
		d.Write(buf[:])
	default:
		putInt(n.Aux)
	}
	putInt(n.Aux2)
	putInt(len(n.Children))
	for _, c := range n.Children {
		binary.LittleEndian.PutUint64(buf[:], o.nodes[c].Hash)
		d.Write(buf[:])
	}
	return d.Sum64()
}

// same compares two nodes structurally (children are canonical handles)
func (o *Arena) same(a, b *Node) bool {
	if a.Kind != b.Kind || a.Name != b.Name || a.Loc != b.Loc || a.Size != b.Size || a.Cols != b.Cols {
		return false
	}
	if math.Float64bits(a.Value) != math.Float64bits(b.Value) || a.Aux != b.Aux || a.Aux2 != b.Aux2 {
		return false
	}
	if !equalStrings(a.Domain, b.Domain) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i] != b.Children[i] {
			return false
		}
	}
	return true
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

func hashFloats(v []float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, x := range v {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		d.Write(buf[:])
	}
	return d.Sum64()
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
