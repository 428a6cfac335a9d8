// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"sort"
	"sync"

	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/solver"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
)

// Variable is an expression of the model evaluated over a solution. It holds no mutable state
// apart from a pool of evaluators and can be read by concurrent goroutines.
type Variable struct {
	Name  string           // name
	Sol   *solver.Solution // solution
	Expr  sym.Id           // discretised expression
	Shape sym.Shape        // shape of values
	X     []float64        // coordinates of values; nil for scalars
	pool  sync.Pool        // evaluators
}

// New returns the named output of the solution's model
func New(sol *solver.Solution, name string) (o *Variable, err error) {
	if sol.Disc == nil {
		return nil, chk.Err("solution has no discretisation: %v", sol.Err)
	}
	expr, err := sol.Disc.Model.Output(name)
	if err != nil {
		return
	}
	if o, err = NewExpr(sol, expr); err != nil {
		return nil, chk.Err("cannot process output %q:\n%v", name, err)
	}
	o.Name = name
	return
}

// NewExpr returns a variable for any expression of the model's arena; e.g. a variable itself
func NewExpr(sol *solver.Solution, expr sym.Id) (o *Variable, err error) {
	if sol.Disc == nil {
		return nil, chk.Err("solution has no discretisation: %v", sol.Err)
	}
	if len(sol.T) == 0 {
		return nil, chk.Err("solution is empty")
	}
	d := sol.Disc
	o = &Variable{Name: d.A.String(expr), Sol: sol}
	if o.Expr, err = d.Process(expr); err != nil {
		return nil, err
	}
	o.Shape = d.A.Shape(o.Expr)
	if len(o.Shape.Domain) > 0 {
		var sub *msh.SubMesh
		if sub, err = d.Mesh.Combine(o.Shape.Domain); err != nil {
			return nil, err
		}
		o.X = sub.Nodes
		if o.Shape.Loc == sym.Edges {
			o.X = sub.Edges
		}
	}
	o.pool.New = func() interface{} { return d.A.NewEvaluator() }
	return
}

// At returns the values at time t
func (o *Variable) At(t float64) (res []float64, err error) {
	y := make([]float64, o.Sol.Disc.N)
	if err = o.Sol.Interp(t, y); err != nil {
		return
	}
	return o.eval(t, y)
}

// Scalar returns the value at time t of a variable with a single entry
func (o *Variable) Scalar(t float64) (res float64, err error) {
	v, err := o.At(t)
	if err != nil {
		return
	}
	if len(v) != 1 {
		return 0, chk.Err("%q has %d entries; a scalar was expected", o.Name, len(v))
	}
	return v[0], nil
}

// AtX returns the value at time t and coordinate x, interpolated linearly between the
// coordinates of the values. Values are held constant between the outermost values and the
// boundary of the domain.
func (o *Variable) AtX(t, x float64) (res float64, err error) {
	if o.X == nil {
		return 0, chk.Err("%q has no spatial domain", o.Name)
	}
	sub, err := o.Sol.Disc.Mesh.Combine(o.Shape.Domain)
	if err != nil {
		return
	}
	xmin, xmax := sub.Edges[0], sub.Edges[len(sub.Edges)-1]
	if x < xmin || x > xmax {
		return 0, chk.Err("x=%g is outside %v = [%g, %g]", x, o.Shape.Domain, xmin, xmax)
	}
	v, err := o.At(t)
	if err != nil {
		return
	}
	n := len(o.X)
	k := sort.SearchFloat64s(o.X, x)
	switch {
	case k == 0:
		return v[0], nil
	case k >= n:
		return v[n-1], nil
	}
	x0, x1 := o.X[k-1], o.X[k]
	return v[k-1] + (v[k]-v[k-1])*(x-x0)/(x1-x0), nil
}

// Entries returns the values at all stored times
func (o *Variable) Entries() (res [][]float64, err error) {
	res = make([][]float64, len(o.Sol.T))
	for k, t := range o.Sol.T {
		if res[k], err = o.eval(t, o.Sol.Y[k]); err != nil {
			return nil, err
		}
	}
	return
}

// eval evaluates the expression at (t, y)
func (o *Variable) eval(t float64, y []float64) (res []float64, err error) {
	ev := o.pool.Get().(*sym.Evaluator)
	defer o.pool.Put(ev)
	v, err := ev.Eval1(&sym.Env{T: t, Y: y, Inputs: o.Sol.Inputs}, o.Expr)
	if err != nil {
		return nil, chk.Err("cannot evaluate %q at t=%g:\n%v", o.Name, t, err)
	}
	return append([]float64{}, v...), nil
}
