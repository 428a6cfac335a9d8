// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// SpMat is an immutable sparse matrix in compressed-row form; columns are sorted within each row
type SpMat struct {
	M, N int       // dimensions
	P    []int     // row pointers [M+1]
	J    []int     // column indices [nnz]
	X    []float64 // values [nnz]
	hash uint64    // content hash
}

// SpBuilder collects (i, j, x) entries; duplicates are summed
type SpBuilder struct {
	m, n int
	I, J []int
	X    []float64
}

// NewSpBuilder returns a builder for an m-by-n matrix
func NewSpBuilder(m, n int) *SpBuilder {
	return &SpBuilder{m: m, n: n}
}

// Put adds x to entry (i, j)
func (o *SpBuilder) Put(i, j int, x float64) {
	if i < 0 || i >= o.m || j < 0 || j >= o.n {
		raise(ErrShape, "entry (%d,%d) is outside %dx%d matrix", i, j, o.m, o.n)
	}
	o.I = append(o.I, i)
	o.J = append(o.J, j)
	o.X = append(o.X, x)
}

// Build returns the compressed matrix. Exact zeros are dropped.
func (o *SpBuilder) Build() *SpMat {
	rows := make([][]int, o.m)
	for k, i := range o.I {
		rows[i] = append(rows[i], k)
	}
	a := &SpMat{M: o.m, N: o.n, P: make([]int, o.m+1)}
	for i, ks := range rows {
		sort.SliceStable(ks, func(p, q int) bool { return o.J[ks[p]] < o.J[ks[q]] })
		for p := 0; p < len(ks); {
			j, x := o.J[ks[p]], 0.0
			for ; p < len(ks) && o.J[ks[p]] == j; p++ {
				x += o.X[ks[p]]
			}
			if x != 0 {
				a.J = append(a.J, j)
				a.X = append(a.X, x)
			}
		}
		a.P[i+1] = len(a.J)
	}
	a.rehash()
	return a
}

// SpZero returns an m-by-n matrix without entries
func SpZero(m, n int) *SpMat {
	return NewSpBuilder(m, n).Build()
}

// SpIdentity returns the n-by-n identity
func SpIdentity(n int) *SpMat {
	return SpSelect(0, n, n)
}

// SpSelect returns the (hi-lo)-by-n matrix picking entries lo..hi-1 of a vector of length n
func SpSelect(lo, hi, n int) *SpMat {
	b := NewSpBuilder(hi-lo, n)
	for i := lo; i < hi; i++ {
		b.Put(i-lo, i, 1)
	}
	return b.Build()
}

// SpDense converts a dense matrix
func SpDense(a [][]float64) *SpMat {
	m, n := len(a), 0
	if m > 0 {
		n = len(a[0])
	}
	b := NewSpBuilder(m, n)
	for i := range a {
		for j, x := range a[i] {
			b.Put(i, j, x)
		}
	}
	return b.Build()
}

// NNZ returns the number of stored entries
func (o *SpMat) NNZ() int { return len(o.X) }

// Hash returns the content hash
func (o *SpMat) Hash() uint64 { return o.hash }

// Get returns entry (i, j)
func (o *SpMat) Get(i, j int) float64 {
	for k := o.P[i]; k < o.P[i+1]; k++ {
		if o.J[k] == j {
			return o.X[k]
		}
	}
	return 0
}

// Each calls fcn for every stored entry
func (o *SpMat) Each(fcn func(i, j int, x float64)) {
	for i := 0; i < o.M; i++ {
		for k := o.P[i]; k < o.P[i+1]; k++ {
			fcn(i, o.J[k], o.X[k])
		}
	}
}

// Dense returns a dense copy
func (o *SpMat) Dense() (res [][]float64) {
	res = make([][]float64, o.M)
	for i := range res {
		res[i] = make([]float64, o.N)
	}
	o.Each(func(i, j int, x float64) { res[i][j] = x })
	return
}

// Equal compares dimensions and entries
func (o *SpMat) Equal(b *SpMat) bool {
	return o.M == b.M && o.N == b.N && equalInts(o.P, b.P) && equalInts(o.J, b.J) && equalFloats(o.X, b.X)
}

// SamePattern tells whether o and b have the same sparsity structure
func (o *SpMat) SamePattern(b *SpMat) bool {
	return b != nil && o.M == b.M && o.N == b.N && equalInts(o.P, b.P) && equalInts(o.J, b.J)
}

// MulVec computes y = o * x. A single-entry x is broadcast.
func (o *SpMat) MulVec(y, x []float64) {
	for i := 0; i < o.M; i++ {
		y[i] = o.rowDot(i, x)
	}
}

// MulVecAdd computes y += α * o * x
func (o *SpMat) MulVecAdd(y []float64, α float64, x []float64) {
	for i := 0; i < o.M; i++ {
		y[i] += α * o.rowDot(i, x)
	}
}

func (o *SpMat) rowDot(i int, x []float64) (s float64) {
	if len(x) == 1 {
		for k := o.P[i]; k < o.P[i+1]; k++ {
			s += o.X[k]
		}
		return s * x[0]
	}
	for k := o.P[i]; k < o.P[i+1]; k++ {
		s += o.X[k] * x[o.J[k]]
	}
	return
}

// Add returns o + b (same dimensions)
func (o *SpMat) Add(b *SpMat) *SpMat {
	if o.M != b.M || o.N != b.N {
		raise(ErrShape, "cannot add %dx%d and %dx%d matrices", o.M, o.N, b.M, b.N)
	}
	c := &SpMat{M: o.M, N: o.N, P: make([]int, o.M+1)}
	for i := 0; i < o.M; i++ {
		p, q := o.P[i], b.P[i]
		for p < o.P[i+1] || q < b.P[i+1] {
			var j int
			var x float64
			switch {
			case q >= b.P[i+1] || (p < o.P[i+1] && o.J[p] < b.J[q]):
				j, x = o.J[p], o.X[p]
				p++
			case p >= o.P[i+1] || b.J[q] < o.J[p]:
				j, x = b.J[q], b.X[q]
				q++
			default:
				j, x = o.J[p], o.X[p]+b.X[q]
				p++
				q++
			}
			if x != 0 {
				c.J = append(c.J, j)
				c.X = append(c.X, x)
			}
		}
		c.P[i+1] = len(c.J)
	}
	c.rehash()
	return c
}

// ScaleRows returns diag(v) * o. A single-entry v scales all rows.
func (o *SpMat) ScaleRows(v []float64) *SpMat {
	c := &SpMat{M: o.M, N: o.N, P: make([]int, o.M+1)}
	for i := 0; i < o.M; i++ {
		s := v[0]
		if len(v) > 1 {
			s = v[i]
		}
		if s != 0 {
			for k := o.P[i]; k < o.P[i+1]; k++ {
				if x := s * o.X[k]; x != 0 {
					c.J = append(c.J, o.J[k])
					c.X = append(c.X, x)
				}
			}
		}
		c.P[i+1] = len(c.J)
	}
	c.rehash()
	return c
}

// Mul returns o * b
func (o *SpMat) Mul(b *SpMat) *SpMat {
	if o.N != b.M {
		raise(ErrShape, "cannot multiply %dx%d by %dx%d matrix", o.M, o.N, b.M, b.N)
	}
	c := &SpMat{M: o.M, N: b.N, P: make([]int, o.M+1)}
	acc := make([]float64, b.N)
	used := make([]bool, b.N)
	var cols []int
	for i := 0; i < o.M; i++ {
		cols = cols[:0]
		for k := o.P[i]; k < o.P[i+1]; k++ {
			r, x := o.J[k], o.X[k]
			for l := b.P[r]; l < b.P[r+1]; l++ {
				j := b.J[l]
				if !used[j] {
					used[j] = true
					cols = append(cols, j)
				}
				acc[j] += x * b.X[l]
			}
		}
		sort.Ints(cols)
		for _, j := range cols {
			if acc[j] != 0 {
				c.J = append(c.J, j)
				c.X = append(c.X, acc[j])
			}
			acc[j], used[j] = 0, false
		}
		c.P[i+1] = len(c.J)
	}
	c.rehash()
	return c
}

// Row returns row i as a 1-by-N matrix
func (o *SpMat) Row(i int) *SpMat {
	c := &SpMat{M: 1, N: o.N, P: []int{0, o.P[i+1] - o.P[i]}}
	c.J = append([]int{}, o.J[o.P[i]:o.P[i+1]]...)
	c.X = append([]float64{}, o.X[o.P[i]:o.P[i+1]]...)
	c.rehash()
	return c
}

// Replicate repeats the single row of o m times
func (o *SpMat) Replicate(m int) *SpMat {
	if o.M != 1 {
		raise(ErrShape, "cannot replicate %dx%d matrix", o.M, o.N)
	}
	nz := o.P[1]
	c := &SpMat{M: m, N: o.N, P: make([]int, m+1)}
	for i := 0; i < m; i++ {
		c.J = append(c.J, o.J[:nz]...)
		c.X = append(c.X, o.X[:nz]...)
		c.P[i+1] = len(c.J)
	}
	c.rehash()
	return c
}

// SpStack stacks matrices with the same number of columns
func SpStack(parts ...*SpMat) *SpMat {
	c := &SpMat{P: []int{0}}
	if len(parts) > 0 {
		c.N = parts[0].N
	}
	for _, a := range parts {
		if a.N != c.N {
			raise(ErrShape, "cannot stack matrices with %d and %d columns", c.N, a.N)
		}
		for i := 0; i < a.M; i++ {
			c.J = append(c.J, a.J[a.P[i]:a.P[i+1]]...)
			c.X = append(c.X, a.X[a.P[i]:a.P[i+1]]...)
			c.P = append(c.P, len(c.J))
		}
		c.M += a.M
	}
	c.rehash()
	return c
}

func (o *SpMat) rehash() {
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	put(uint64(o.M))
	put(uint64(o.N))
	for _, p := range o.P {
		put(uint64(p))
	}
	for _, j := range o.J {
		put(uint64(j))
	}
	for _, x := range o.X {
		put(math.Float64bits(x))
	}
	o.hash = d.Sum64()
}

func equalInts(a, b []int) bool {
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
