// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dae

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// LinSol solves the linear systems of Newton iterations. Init is called whenever the triplet is
// reallocated; Fact is called after its values change.
type LinSol interface {
	Init(t *la.Triplet, n int) error // initialises the solver for an n×n triplet
	Fact() error                     // factorises the current values of the triplet
	Solve(x, b []float64) error      // solves A x = b
	Free()                           // releases resources
}

// linsolAllocators holds all available linear solvers
var linsolAllocators = map[string]func() LinSol{
	"umfpack": func() LinSol { return new(umfpack) },
	"dense":   func() LinSol { return new(dense) },
}

// GetLinSol returns a new linear solver by name
func GetLinSol(name string) (LinSol, error) {
	alloc, ok := linsolAllocators[name]
	if !ok {
		return nil, chk.Err("linear solver %q is not available", name)
	}
	return alloc(), nil
}

// LinSols returns the names of the available linear solvers
func LinSols() (names []string) {
	for name := range linsolAllocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// umfpack wraps the sparse solver of gosl/la. The solver is re-initialised at every
// factorisation because umfpack sizes its arrays with the current number of triplet entries.
type umfpack struct {
	t *la.Triplet     // triplet with values
	s la.SparseSolver // sparse solver
}

func (o *umfpack) Init(t *la.Triplet, n int) error {
	o.Free()
	o.t = t
	return nil
}

func (o *umfpack) Fact() (err error) {
	o.Free()
	defer catch(&err, ErrSingular)
	o.s = la.NewSparseSolver("umfpack")
	o.s.Init(o.t, false, false, "", "", nil)
	o.s.Fact()
	return
}

func (o *umfpack) Solve(x, b []float64) (err error) {
	if o.s == nil {
		return chk.Err("umfpack: factorisation must be performed first")
	}
	if err = o.solve(x, b); err != nil {
		return
	}
	return checkFinite(x)
}

func (o *umfpack) solve(x, b []float64) (err error) {
	defer catch(&err, ErrSingular)
	o.s.Solve(x, b, false)
	return
}

func (o *umfpack) Free() {
	if o.s != nil {
		o.s.Free()
		o.s = nil
	}
}

// catch converts a panic raised by gosl into an error wrapping kind
func catch(err *error, kind error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", kind, r)
	}
}

// dense solves with the LU decomposition of gonum/mat
type dense struct {
	t  *la.Triplet // triplet with values
	n  int         // dimension
	a  *mat.Dense  // dense copy of t
	lu mat.LU      // factorisation
}

func (o *dense) Init(t *la.Triplet, n int) error {
	o.t, o.n = t, n
	o.a = mat.NewDense(n, n, nil)
	return nil
}

func (o *dense) Fact() error {
	o.a.Zero()
	a := o.t.ToMatrix(nil).ToDense()
	for i := 0; i < a.M; i++ {
		for j := 0; j < a.N; j++ {
			o.a.Set(i, j, a.Get(i, j))
		}
	}
	o.lu.Factorize(o.a)
	if math.IsInf(o.lu.Cond(), 1) {
		return fmt.Errorf("%w: LU factorisation of %dx%d matrix", ErrSingular, o.n, o.n)
	}
	return nil
}

func (o *dense) Solve(x, b []float64) error {
	res := mat.NewVecDense(o.n, x)
	err := o.lu.SolveVecTo(res, false, mat.NewVecDense(o.n, b))
	if err != nil {
		var c mat.Condition
		if !errors.As(err, &c) {
			return fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}
	return checkFinite(x)
}

func (o *dense) Free() {}

// checkFinite returns ErrSingular if x holds NaN or Inf
func checkFinite(x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: solution has x[%d] = %g", ErrSingular, i, v)
		}
	}
	return nil
}
