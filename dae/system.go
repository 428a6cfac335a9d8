// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package dae assembles residuals, mass matrices and Jacobians of discretised models
//
//	M dy/dt = F(t, y)    with    M = diag(1 … 1, 0 … 0)
package dae

import (
	"errors"
	"fmt"
	"math"

	"github.com/cpmech/godae/disc"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

var (
	ErrInconsistentIc = errors.New("inconsistent initial conditions")
	ErrSingular       = errors.New("singular jacobian")
)

// Stats holds evaluation counters
type Stats struct {
	Nfeval  int // number of calls to F
	Njeval  int // number of jacobian evaluations
	Ndecomp int // number of factorisations
	Nlinsol int // number of linear solutions
}

// System holds the numerical form of one discretised model for one solve. A System must be
// used by one goroutine at a time; the discretised model may be shared.
type System struct {
	D      *disc.Model        // discretised model
	N      int                // number of states
	Nrhs   int                // number of differential states
	Inputs map[string]float64 // input parameters
	Mass   []float64          // diagonal of the mass matrix
	Stats  Stats              // counters

	// consistent initialisation
	InitTol   float64 // tolerance on the largest algebraic residual
	InitMaxIt int     // max number of Newton iterations

	// auxiliary
	ev     *sym.Evaluator // evaluator owned by this system
	env    sym.Env        // environment
	lsname string         // name of linear solver
	kb     *la.Triplet    // cj M - ∂F/∂y
	lsol   LinSol         // linear solver for kb
	kbmax  int            // capacity of kb
	f      []float64      // F workspace
}

// New returns a new system. inputs override the default values of input parameters.
func New(d *disc.Model, inputs map[string]float64, linsol string) (o *System, err error) {
	if linsol == "" {
		linsol = "umfpack"
	}
	if _, ok := linsolAllocators[linsol]; !ok {
		return nil, chk.Err("linear solver %q is not available", linsol)
	}
	o = &System{D: d, N: d.N, Nrhs: d.Nrhs, Mass: d.Mass, lsname: linsol}
	if o.Inputs, err = d.MergeInputs(inputs); err != nil {
		return nil, err
	}
	o.InitTol = 1e-10
	o.InitMaxIt = 50
	o.ev = d.A.NewEvaluator()
	o.env.Inputs = o.Inputs
	o.f = make([]float64, o.N)
	return
}

// Free releases the linear solver
func (o *System) Free() {
	if o.lsol != nil {
		o.lsol.Free()
		o.lsol = nil
	}
}

// Nevents returns the number of event functions
func (o *System) Nevents() int { return len(o.D.Events) }

// Y0 returns the initial state (before consistent initialisation)
func (o *System) Y0(t0 float64) (y0 []float64, err error) {
	v, err := o.eval(t0, nil, o.D.Y0)
	if err != nil {
		return nil, chk.Err("cannot evaluate initial conditions:\n%v", err)
	}
	return append([]float64{}, v...), nil
}

// Rhs computes the right-hand sides of the differential equations
func (o *System) Rhs(t float64, y, f []float64) (err error) {
	return o.evalInto(t, y, o.D.Rhs, f[:o.Nrhs])
}

// Alg computes the residuals of the algebraic equations
func (o *System) Alg(t float64, y, g []float64) (err error) {
	return o.evalInto(t, y, o.D.Alg, g[:o.N-o.Nrhs])
}

// F computes [Rhs; Alg]
func (o *System) F(t float64, y, f []float64) (err error) {
	o.Stats.Nfeval++
	return o.evalInto(t, y, o.D.F, f)
}

// Residual computes r = M dy - F(t, y)
func (o *System) Residual(t float64, y, dy, r []float64) (err error) {
	if err = o.F(t, y, r); err != nil {
		return
	}
	for i := range r {
		r[i] = o.Mass[i]*dy[i] - r[i]
	}
	return
}

// DfDy returns ∂F/∂y
func (o *System) DfDy(t float64, y []float64) (J *sym.SpMat, err error) {
	o.Stats.Njeval++
	o.setenv(t, y)
	J, err = o.ev.EvalJac(&o.env, o.D.Jac)
	if err != nil {
		return nil, chk.Err("cannot evaluate jacobian at t=%g:\n%v", t, err)
	}
	return
}

// Jacobian assembles cj M - ∂F/∂y into jac
func (o *System) Jacobian(t float64, y []float64, cj float64, jac *la.Triplet) (err error) {
	J, err := o.DfDy(t, y)
	if err != nil {
		return
	}
	if need := o.N + J.NNZ(); jac.Max() < need {
		return chk.Err("triplet holds %d entries; %d needed", jac.Max(), need)
	}
	o.put(jac, J, cj)
	return
}

// Events computes the event functions; vector events reduce by minimum. An event fires when
// its function crosses zero.
func (o *System) Events(t float64, y, g []float64) (err error) {
	if len(o.D.Events) == 0 {
		return
	}
	o.setenv(t, y)
	res, err := o.ev.Eval(&o.env, o.D.Events...)
	if err != nil {
		return chk.Err("cannot evaluate events at t=%g:\n%v", t, err)
	}
	for i, v := range res {
		g[i] = math.Inf(1)
		for _, x := range v {
			g[i] = math.Min(g[i], x)
		}
	}
	return
}

// Factorize assembles and factorises cj M - ∂F/∂y
func (o *System) Factorize(t float64, y []float64, cj float64) (err error) {
	J, err := o.DfDy(t, y)
	if err != nil {
		return
	}
	if err = o.ensure(o.N + J.NNZ()); err != nil {
		return
	}
	o.put(o.kb, J, cj)
	o.Stats.Ndecomp++
	if err = o.lsol.Fact(); err != nil {
		return fmt.Errorf("%w (t=%g, cj=%g)", err, t, cj)
	}
	return
}

// Solve solves (cj M - ∂F/∂y) x = b with the last factorisation
func (o *System) Solve(x, b []float64) (err error) {
	o.Stats.Nlinsol++
	return o.lsol.Solve(x, b)
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// setenv sets the environment for an evaluation
func (o *System) setenv(t float64, y []float64) {
	o.env.T = t
	o.env.Y = y
}

// eval evaluates id; the result is owned by the evaluator
func (o *System) eval(t float64, y []float64, id sym.Id) ([]float64, error) {
	o.setenv(t, y)
	return o.ev.Eval1(&o.env, id)
}

// evalInto evaluates id into res; a Nil id gives nothing
func (o *System) evalInto(t float64, y []float64, id sym.Id, res []float64) (err error) {
	if id == sym.Nil {
		return
	}
	v, err := o.eval(t, y, id)
	if err != nil {
		return chk.Err("cannot evaluate model at t=%g:\n%v", t, err)
	}
	if len(v) == 1 && len(res) > 1 {
		la.Vector(res).Fill(v[0])
		return
	}
	if len(v) != len(res) {
		return chk.Err("expression has %d entries; %d expected", len(v), len(res))
	}
	copy(res, v)
	return
}

// put writes cj M - J into t
func (o *System) put(t *la.Triplet, J *sym.SpMat, cj float64) {
	t.Start()
	for i, m := range o.Mass {
		t.Put(i, i, cj*m)
	}
	J.Each(func(i, j int, x float64) {
		t.Put(i, j, -x)
	})
}

// ensure allocates the triplet and the linear solver for nnz entries
func (o *System) ensure(nnz int) (err error) {
	if o.kb != nil && nnz <= o.kbmax {
		return
	}
	o.kbmax = 2 * nnz
	o.kb = new(la.Triplet)
	o.kb.Init(o.N, o.N, o.kbmax)
	o.put(o.kb, sym.SpZero(o.N, o.N), 0)
	o.Free()
	if o.lsol, err = GetLinSol(o.lsname); err != nil {
		return
	}
	return o.lsol.Init(o.kb, o.N)
}
