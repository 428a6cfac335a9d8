// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package mdl implements the definition of models: governing equations, boundary and initial
// conditions, events and outputs written in terms of symbolic variables and parameters
package mdl

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/hashicorp/go-multierror"
)

// kinds of boundary conditions
const (
	Dirichlet = "dirichlet" // fixed value
	Neumann   = "neumann"   // fixed gradient
	Robin     = "robin"     // α y + β ∂y/∂x = v
)

// termination reasons of events
const (
	Termination   = "termination"   // stop the integration
	Discontinuity = "discontinuity" // restart the integration from a consistent state
)

// Bc holds one boundary condition
type Bc struct {
	Kind  string // Dirichlet, Neumann or Robin
	Value sym.Id // value (right-hand side)
	Alpha sym.Id // Robin: coefficient of the value
	Beta  sym.Id // Robin: coefficient of the gradient
}

// Equation pairs a variable with its governing expression
type Equation struct {
	Var  sym.Id // variable
	Expr sym.Id // rhs (differential) or residual (algebraic)
}

// Event holds an expression whose zero-crossing stops the integration
type Event struct {
	Name   string // name; e.g. "Minimum voltage"
	Expr   sym.Id // expression; vector expressions are reduced by their minimum
	Reason string // Termination or Discontinuity
}

// Output is a named expression available after the solution
type Output struct {
	Name string // name; e.g. "Terminal voltage [V]"
	Expr sym.Id // expression
}

// Model holds the symbolic definition of a model. All expressions belong to the arena A.
type Model struct {
	Name      string             // name of model
	A         *sym.Arena         // arena holding all expressions
	Rhs       []Equation         // dy/dt = rhs, in declaration order
	Algebraic []Equation         // 0 = expr, in declaration order
	Bcs       map[sym.Id][2]*Bc  // boundary conditions: expression => [left, right]
	Ics       map[sym.Id]sym.Id  // initial conditions: variable => expression
	Events    []*Event           // events
	Outputs   []*Output          // outputs
	Values    *prm.Values        // default parameter values
	Geometry  []*msh.SubDomain   // default geometry
	Verbose   bool               // show messages
	vars      map[string]sym.Id  // declared variables by name
	oindex    map[string]*Output // outputs by name
	ekeys     map[string]bool    // event names
	bckeys    map[sym.Id][2]bool // bcs set (detects redefinitions)
	problems  []error            // errors found by the setters
}

// NewModel returns an empty model
func NewModel(name string, a *sym.Arena) (o *Model) {
	o = new(Model)
	o.Name = name
	o.A = a
	o.Bcs = make(map[sym.Id][2]*Bc)
	o.Ics = make(map[sym.Id]sym.Id)
	o.Values = prm.NewValues()
	o.vars = make(map[string]sym.Id)
	o.oindex = make(map[string]*Output)
	o.ekeys = make(map[string]bool)
	o.bckeys = make(map[sym.Id][2]bool)
	return
}

// SetRhs sets the right-hand side of a differential variable: dv/dt = rhs
func (o *Model) SetRhs(v, rhs sym.Id) {
	if o.declare(v) {
		o.Rhs = append(o.Rhs, Equation{v, rhs})
	}
}

// SetAlgebraic sets the residual of an algebraic variable: 0 = expr
func (o *Model) SetAlgebraic(v, expr sym.Id) {
	if o.declare(v) {
		o.Algebraic = append(o.Algebraic, Equation{v, expr})
	}
}

// SetBc sets the boundary condition of expression x at one side of its domain
func (o *Model) SetBc(x sym.Id, side sym.Side, bc *Bc) {
	set := o.bckeys[x]
	if set[side] {
		o.problems = append(o.problems, chk.Err("%s boundary condition of %s is defined more than once", side, o.A.String(x)))
		return
	}
	if bc.Kind != Robin {
		bc.Alpha, bc.Beta = sym.Nil, sym.Nil
	}
	set[side] = true
	o.bckeys[x] = set
	bcs := o.Bcs[x]
	bcs[side] = bc
	o.Bcs[x] = bcs
}

// SetDirichlet sets a fixed value at one side
func (o *Model) SetDirichlet(x sym.Id, side sym.Side, value sym.Id) {
	o.SetBc(x, side, &Bc{Kind: Dirichlet, Value: value})
}

// SetNeumann sets a fixed gradient at one side
func (o *Model) SetNeumann(x sym.Id, side sym.Side, value sym.Id) {
	o.SetBc(x, side, &Bc{Kind: Neumann, Value: value})
}

// SetRobin sets α x + β ∂x/∂r = value at one side
func (o *Model) SetRobin(x sym.Id, side sym.Side, alpha, beta, value sym.Id) {
	o.SetBc(x, side, &Bc{Kind: Robin, Value: value, Alpha: alpha, Beta: beta})
}

// SetIc sets the initial condition of a variable
func (o *Model) SetIc(v, expr sym.Id) {
	if _, ok := o.Ics[v]; ok {
		o.problems = append(o.problems, chk.Err("initial condition of %s is defined more than once", o.A.String(v)))
		return
	}
	o.Ics[v] = expr
}

// AddEvent adds an event
func (o *Model) AddEvent(name string, expr sym.Id, reason string) {
	if o.ekeys[name] {
		o.problems = append(o.problems, chk.Err("event %q is defined more than once", name))
		return
	}
	o.ekeys[name] = true
	o.Events = append(o.Events, &Event{name, expr, reason})
}

// AddOutput adds a named output
func (o *Model) AddOutput(name string, expr sym.Id) {
	if _, ok := o.oindex[name]; ok {
		o.problems = append(o.problems, chk.Err("output %q is defined more than once", name))
		return
	}
	out := &Output{name, expr}
	o.oindex[name] = out
	o.Outputs = append(o.Outputs, out)
}

// Output returns the expression of a named output. Variables are outputs too.
func (o *Model) Output(name string) (expr sym.Id, err error) {
	if out, ok := o.oindex[name]; ok {
		return out.Expr, nil
	}
	if v, ok := o.vars[name]; ok {
		return v, nil
	}
	return sym.Nil, chk.Err("model %q has no output named %q", o.Name, name)
}

// Variables returns the variables in declaration order: differential first
func (o *Model) Variables() (vars []sym.Id) {
	for _, eq := range o.Rhs {
		vars = append(vars, eq.Var)
	}
	for _, eq := range o.Algebraic {
		vars = append(vars, eq.Var)
	}
	return
}

// Check reports all problems of the definition at once
func (o *Model) Check() error {
	var res *multierror.Error
	for _, p := range o.problems {
		res = multierror.Append(res, p)
	}
	if len(o.Rhs)+len(o.Algebraic) == 0 {
		res = multierror.Append(res, chk.Err("model %q has no equations", o.Name))
	}
	for _, eq := range o.Rhs {
		if _, ok := o.Ics[eq.Var]; !ok {
			res = multierror.Append(res, chk.Err("differential variable %s has no initial condition", o.A.String(eq.Var)))
		}
	}
	for _, eqs := range [][]Equation{o.Rhs, o.Algebraic} {
		for _, eq := range eqs {
			if err := o.checkShape(eq.Var, eq.Expr); err != nil {
				res = multierror.Append(res, err)
			}
		}
	}
	for v, ic := range o.Ics {
		if o.A.Node(v).Kind != sym.KindVariable {
			res = multierror.Append(res, chk.Err("initial condition given for %s which is not a variable", o.A.String(v)))
			continue
		}
		if err := o.checkShape(v, ic); err != nil {
			res = multierror.Append(res, err)
		}
	}
	for x, bcs := range o.Bcs {
		s := o.A.Shape(x)
		if len(s.Domain) == 0 {
			res = multierror.Append(res, chk.Err("boundary condition given for %s which has no spatial domain", o.A.String(x)))
		}
		for side, bc := range bcs {
			if bc == nil {
				continue
			}
			if err := o.checkBc(x, sym.Side(side), bc); err != nil {
				res = multierror.Append(res, err)
			}
		}
	}
	for _, ev := range o.Events {
		if ev.Reason != Termination && ev.Reason != Discontinuity {
			res = multierror.Append(res, chk.Err("event %q has invalid reason %q", ev.Name, ev.Reason))
		}
	}
	if err := o.Values.Check(); err != nil {
		res = multierror.Append(res, err)
	}
	return res.ErrorOrNil()
}

// Hash returns a content hash of the definition (parameter values and geometry excluded)
func (o *Model) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	hash := func(id sym.Id) uint64 {
		if id == sym.Nil {
			return 0
		}
		return o.A.Hash(id)
	}
	d.WriteString(o.Name)
	for _, eqs := range [][]Equation{o.Rhs, o.Algebraic} {
		put(uint64(len(eqs)))
		for _, eq := range eqs {
			put(hash(eq.Var))
			put(hash(eq.Expr))
		}
	}
	keys := make([]uint64, 0, len(o.Bcs)+len(o.Ics))
	for x, bcs := range o.Bcs {
		for side, bc := range bcs {
			if bc == nil {
				continue
			}
			h := xxhash.New()
			for _, v := range []uint64{hash(x), uint64(side), hash(bc.Value), hash(bc.Alpha), hash(bc.Beta)} {
				binary.LittleEndian.PutUint64(buf[:], v)
				h.Write(buf[:])
			}
			h.WriteString(bc.Kind)
			keys = append(keys, h.Sum64())
		}
	}
	for v, ic := range o.Ics {
		keys = append(keys, hash(v)*0x9e3779b97f4a7c15^hash(ic))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		put(k)
	}
	for _, ev := range o.Events {
		d.WriteString(ev.Name)
		d.WriteString(ev.Reason)
		put(hash(ev.Expr))
	}
	return d.Sum64()
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// declare records a variable with an equation
func (o *Model) declare(v sym.Id) bool {
	n := o.A.Node(v)
	if n.Kind != sym.KindVariable {
		o.problems = append(o.problems, chk.Err("equation given for %s which is not a variable", o.A.String(v)))
		return false
	}
	if _, ok := o.vars[n.Name]; ok {
		o.problems = append(o.problems, chk.Err("variable %q has more than one equation", n.Name))
		return false
	}
	o.vars[n.Name] = v
	return true
}

// checkShape checks that expr fits the shape of variable v
func (o *Model) checkShape(v, expr sym.Id) error {
	sv, se := o.A.Shape(v), o.A.Shape(expr)
	if se.IsScalar() {
		return nil
	}
	if !equalDomains(sv.Domain, se.Domain) || se.Loc != sv.Loc {
		return chk.Err("%s on %v is given an expression on %v", o.A.Node(v).Name, sv, se)
	}
	return nil
}

// checkBc checks the expressions of one boundary condition
func (o *Model) checkBc(x sym.Id, side sym.Side, bc *Bc) error {
	ids := []sym.Id{bc.Value}
	switch bc.Kind {
	case Dirichlet, Neumann:
	case Robin:
		if bc.Alpha == sym.Nil || bc.Beta == sym.Nil {
			return chk.Err("robin condition at %s of %s needs α and β", side, o.A.String(x))
		}
		ids = append(ids, bc.Alpha, bc.Beta)
	default:
		return chk.Err("boundary condition at %s of %s has invalid kind %q", side, o.A.String(x), bc.Kind)
	}
	for _, id := range ids {
		if id == sym.Nil || !o.A.Shape(id).IsScalar() {
			return chk.Err("boundary condition at %s of %s must be given by scalars", side, o.A.String(x))
		}
	}
	return nil
}

func equalDomains(a, b []string) bool {
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
