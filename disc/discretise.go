// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package disc implements the finite-volume discretisation of models: spatial operators become
// sparse matrix products over slices of one state vector
package disc

import (
	"errors"
	"sync"

	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// errors
var (
	ErrDomain    = errors.New("domain not discretised")
	ErrMissingBc = errors.New("missing boundary condition")
)

// raise stops the discretisation with an error wrapping sentinel
func raise(sentinel error, msg string, prm ...interface{}) {
	panic(sym.Errf(sentinel, msg, prm...))
}

// Slot holds the position of one variable in the state vector
type Slot struct {
	Name      string   // name of variable
	Var       sym.Id   // variable
	State     sym.Id   // state-vector node replacing the variable
	Lo, Hi    int      // slice of the state vector
	Domain    []string // sub-domains
	Algebraic bool     // algebraic variable
}

// Model holds a discretised model. Its roots are sym nodes over the state vector and are
// shared read-only by all solves.
type Model struct {
	Model     *mdl.Model         // symbolic model
	Mesh      *msh.Mesh          // mesh
	Values    *prm.Values        // parameter values
	A         *sym.Arena         // arena (the model's)
	Slots     []*Slot            // layout, in declaration order
	N         int                // length of the state vector
	Nrhs      int                // number of differential entries; they come first
	Rhs       sym.Id             // concatenated right-hand sides; Nil if none
	Alg       sym.Id             // concatenated algebraic residuals; Nil if none
	F         sym.Id             // [Rhs; Alg]
	Jac       sym.Id             // ∂F/∂y
	Y0        sym.Id             // initial state
	Events    []sym.Id           // event expressions
	Mass      []float64          // diagonal of the mass matrix
	RhsLinear bool               // Rhs is affine in y
	AlgLinear bool               // Alg is affine in y
	Inputs    map[string]float64 // default values of input parameters
	d         *discretiser       // discretiser for further expressions
	mu        sync.Mutex         // guards d
}

// discretiser holds the state of one discretisation
type discretiser struct {
	a      *sym.Arena            // arena
	mesh   *msh.Mesh             // mesh
	bcs    map[sym.Id][2]*mdl.Bc // resolved boundary conditions
	states map[string]*Slot      // variable name => slot
	memo   map[sym.Id]sym.Id     // processed nodes
}

// Discretise discretises model on mesh using the given parameter values
func Discretise(model *mdl.Model, mesh *msh.Mesh, vals *prm.Values) (o *Model, err error) {
	if err = model.Check(); err != nil {
		return nil, chk.Err("model %q is invalid:\n%v", model.Name, err)
	}
	a := model.A
	o = &Model{Model: model, Mesh: mesh, Values: vals, A: a, Inputs: vals.Inputs()}
	d := &discretiser{
		a:      a,
		mesh:   mesh,
		bcs:    make(map[sym.Id][2]*mdl.Bc),
		states: make(map[string]*Slot),
		memo:   make(map[sym.Id]sym.Id),
	}
	o.d = d

	// substitute parameters everywhere
	var roots []sym.Id
	for _, eqs := range [][]mdl.Equation{model.Rhs, model.Algebraic} {
		for _, eq := range eqs {
			roots = append(roots, eq.Expr)
		}
	}
	vars := model.Variables()
	for _, v := range vars {
		ic, ok := model.Ics[v]
		if !ok {
			ic = sym.Nil
		}
		roots = append(roots, ic)
	}
	for _, ev := range model.Events {
		roots = append(roots, ev.Expr)
	}
	type bcref struct {
		x    sym.Id
		side int
		bc   *mdl.Bc
	}
	var bcrefs []bcref
	for x, bcs := range model.Bcs {
		for side, bc := range bcs {
			if bc != nil {
				bcrefs = append(bcrefs, bcref{x, side, bc})
				roots = append(roots, x, bc.Value, bc.Alpha, bc.Beta)
			}
		}
	}
	resolved, err := resolve(vals, a, roots)
	if err != nil {
		return nil, err
	}
	k := 0
	next := func() (id sym.Id) {
		id = resolved[k]
		k++
		return
	}
	rhs := make([]sym.Id, len(model.Rhs))
	alg := make([]sym.Id, len(model.Algebraic))
	ics := make([]sym.Id, len(vars))
	events := make([]sym.Id, len(model.Events))
	for i := range rhs {
		rhs[i] = next()
	}
	for i := range alg {
		alg[i] = next()
	}
	for i := range ics {
		ics[i] = next()
	}
	for i := range events {
		events[i] = next()
	}
	for _, r := range bcrefs {
		x := next()
		bc := &mdl.Bc{Kind: r.bc.Kind, Value: next(), Alpha: next(), Beta: next()}
		bcs := d.bcs[x]
		if bcs[r.side] != nil {
			return nil, chk.Err("%s boundary condition of %s is defined more than once", sym.Side(r.side), a.String(x))
		}
		bcs[r.side] = bc
		d.bcs[x] = bcs
	}

	// layout, discretisation and roots
	err = sym.Build(func() {
		d.layout(o, vars)
		rhsParts := make([]sym.Id, len(rhs))
		for i, e := range rhs {
			rhsParts[i] = d.equation(o.Slots[i], e)
		}
		algParts := make([]sym.Id, len(alg))
		for i, e := range alg {
			algParts[i] = d.equation(o.Slots[len(rhs)+i], e)
		}
		o.Rhs, o.Alg = sym.Nil, sym.Nil
		if len(rhsParts) > 0 {
			o.Rhs = a.Join(sym.Shape{Size: o.Nrhs}, rhsParts...)
		}
		if len(algParts) > 0 {
			o.Alg = a.Join(sym.Shape{Size: o.N - o.Nrhs}, algParts...)
		}
		o.F = a.Join(sym.Shape{Size: o.N}, append(rhsParts, algParts...)...)
		y0 := make([]sym.Id, len(ics))
		for i, ic := range ics {
			y0[i] = d.initial(o.Slots[i], ic)
		}
		o.Y0 = a.Join(sym.Shape{Size: o.N}, y0...)
		o.Events = make([]sym.Id, len(events))
		for i, e := range events {
			o.Events[i] = a.Simplify(d.process(e))
		}
	})
	if err != nil {
		return nil, err
	}

	// jacobian and linearity
	if o.Jac, err = a.Jacobian(o.F, o.N); err != nil {
		return nil, err
	}
	if o.RhsLinear, err = o.isLinear(o.Rhs); err != nil {
		return nil, err
	}
	if o.AlgLinear, err = o.isLinear(o.Alg); err != nil {
		return nil, err
	}
	o.Mass = make([]float64, o.N)
	for i := 0; i < o.Nrhs; i++ {
		o.Mass[i] = 1
	}
	if model.Verbose {
		io.Pfgreen("disc: %q: %d states (%d differential), %d nodes, linear rhs=%v alg=%v\n",
			model.Name, o.N, o.Nrhs, a.Len(), o.RhsLinear, o.AlgLinear)
	}
	return
}

// Process discretises a further expression of the model's arena; e.g. an output
func (o *Model) Process(expr sym.Id) (res sym.Id, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids, err := resolve(o.Values, o.A, []sym.Id{expr})
	if err != nil {
		return
	}
	err = sym.Build(func() {
		res = o.A.Simplify(o.d.process(ids[0]))
	})
	return
}

// Slot returns the slot of a variable
func (o *Model) Slot(name string) (slot *Slot, found bool) {
	for _, s := range o.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return
}

// Affine returns A and b such that expr = A y + b. ok is false if expr is not affine in y.
// b is evaluated at time t with the given input parameters.
func (o *Model) Affine(expr sym.Id, t float64, inputs map[string]float64) (A *sym.SpMat, b []float64, ok bool, err error) {
	jac, err := o.A.Jacobian(expr, o.N)
	if err != nil {
		return
	}
	if A, ok = o.A.ConstJacobian(jac); !ok {
		return
	}
	b, err = o.A.Evaluate(&sym.Env{T: t, Y: make([]float64, o.N), Inputs: o.inputs(inputs)}, expr)
	return
}

// inputs merges input parameters with their default values
func (o *Model) inputs(inputs map[string]float64) map[string]float64 {
	res := make(map[string]float64, len(o.Inputs))
	for k, v := range o.Inputs {
		res[k] = v
	}
	for k, v := range inputs {
		res[k] = v
	}
	return res
}

// MergeInputs returns the default input values overridden by inputs. Unknown names are errors.
func (o *Model) MergeInputs(inputs map[string]float64) (res map[string]float64, err error) {
	for k := range inputs {
		if _, ok := o.Inputs[k]; !ok {
			return nil, chk.Err("%q is not an input parameter of model %q", k, o.Model.Name)
		}
	}
	return o.inputs(inputs), nil
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// resolve substitutes parameters; Nil roots are kept
func resolve(vals *prm.Values, a *sym.Arena, roots []sym.Id) (res []sym.Id, err error) {
	var ids []sym.Id
	for _, r := range roots {
		if r != sym.Nil {
			ids = append(ids, r)
		}
	}
	out, err := vals.Resolve(a, ids...)
	if err != nil {
		return
	}
	res = make([]sym.Id, len(roots))
	k := 0
	for i, r := range roots {
		res[i] = sym.Nil
		if r != sym.Nil {
			res[i] = out[k]
			k++
		}
	}
	return
}

// isLinear tells whether expr is affine in the state vector
func (o *Model) isLinear(expr sym.Id) (bool, error) {
	if expr == sym.Nil {
		return true, nil
	}
	jac, err := o.A.Jacobian(expr, o.N)
	if err != nil {
		return false, err
	}
	_, ok := o.A.ConstJacobian(jac)
	return ok, nil
}

// layout assigns slices of the state vector to the variables
func (o *discretiser) layout(m *Model, vars []sym.Id) {
	offset := 0
	for i, v := range vars {
		n := o.a.Node(v)
		size := 1
		if len(n.Domain) > 0 {
			size = o.submesh(n.Domain).N()
		}
		slot := &Slot{
			Name:      n.Name,
			Var:       v,
			Lo:        offset,
			Hi:        offset + size,
			Domain:    n.Domain,
			Algebraic: i >= len(m.Model.Rhs),
		}
		slot.State = o.a.StateVector(n.Name, slot.Lo, slot.Hi, n.Domain, sym.Nodes)
		o.states[n.Name] = slot
		m.Slots = append(m.Slots, slot)
		offset += size
		if !slot.Algebraic {
			m.Nrhs = offset
		}
	}
	m.N = offset
}

// submesh returns the mesh spanning dom
func (o *discretiser) submesh(dom []string) *msh.SubMesh {
	sub, err := o.mesh.Combine(dom)
	if err != nil {
		raise(ErrDomain, "%v: %v", dom, err)
	}
	return sub
}

// equation discretises the governing expression of a slot
func (o *discretiser) equation(slot *Slot, expr sym.Id) sym.Id {
	return o.fit(slot, o.a.Simplify(o.process(expr)), "equation")
}

// initial discretises the initial condition of a slot; missing conditions are zero
func (o *discretiser) initial(slot *Slot, expr sym.Id) sym.Id {
	if expr == sym.Nil {
		return o.a.Zeros(o.a.Shape(slot.State))
	}
	res := o.a.Simplify(o.process(expr))
	if o.dependsOnState(res) {
		raise(sym.ErrShape, "initial condition of %q depends on the state", slot.Name)
	}
	return o.fit(slot, res, "initial condition")
}

// fit broadcasts scalars to the size of the slot and checks sizes
func (o *discretiser) fit(slot *Slot, res sym.Id, what string) sym.Id {
	s := o.a.Shape(slot.State)
	size := o.a.Shape(res).Size
	if size == 1 && s.Size > 1 {
		return o.a.BroadcastTo(res, s)
	}
	if size != s.Size {
		raise(sym.ErrShape, "%s of %q has %d entries; %d expected", what, slot.Name, size, s.Size)
	}
	return res
}

// dependsOnState tells whether the tree of id contains state-vector slices
func (o *discretiser) dependsOnState(id sym.Id) bool {
	n := o.a.Node(id)
	if n.Kind == sym.KindStateVector {
		return true
	}
	for _, c := range n.Children {
		if o.dependsOnState(c) {
			return true
		}
	}
	return false
}

// process returns the discretised version of a (parameter-free) node
func (o *discretiser) process(id sym.Id) (res sym.Id) {
	if id == sym.Nil {
		return sym.Nil
	}
	if r, ok := o.memo[id]; ok {
		return r
	}
	a := o.a
	n := a.Node(id)
	switch n.Kind {
	case sym.KindVariable:
		slot, ok := o.states[n.Name]
		if !ok {
			raise(sym.ErrUnboundVariable, "%q has no equation", n.Name)
		}
		res = slot.State
	case sym.KindConstant:
		res = id
		if len(n.Domain) > 0 && n.Size == 0 {
			res = a.Filled(n.Value, o.sized(n))
		}
	case sym.KindGradient:
		res = o.gradient(n.Children[0])
	case sym.KindDivergence:
		res = o.divergence(n.Children[0])
	case sym.KindIntegral:
		res = o.integral(n.Children[0])
	case sym.KindBoundaryValue:
		res = o.boundaryValue(n.Children[0], sym.Side(n.Aux))
	case sym.KindBoundaryFlux:
		res = o.boundaryFlux(n.Children[0], sym.Side(n.Aux))
	case sym.KindNodeToEdge:
		res = o.nodeToEdge(n.Children[0])
	case sym.KindBroadcast:
		px := o.process(n.Children[0])
		res = a.BroadcastTo(px, o.sized(n))
	case sym.KindConcatenation:
		cs := make([]sym.Id, len(n.Children))
		for i, c := range n.Children {
			cs[i] = o.process(c)
		}
		res = a.Join(sym.Shape{Domain: n.Domain, Loc: n.Loc}, cs...)
	default:
		if len(n.Children) == 0 {
			res = id
			break
		}
		cs := make([]sym.Id, len(n.Children))
		for i, c := range n.Children {
			cs[i] = o.process(c)
		}
		res = a.Remake(id, cs)
	}
	o.memo[id] = res
	return
}

// sized returns the discretised shape of a node
func (o *discretiser) sized(n sym.Node) sym.Shape {
	s := sym.Shape{Domain: n.Domain, Loc: n.Loc, Size: n.Size}
	if s.Size > 0 {
		return s
	}
	s.Size = o.submesh(n.Domain).N()
	if n.Loc == sym.Edges {
		s.Size++
	}
	return s
}
