// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"math"
	"runtime"

	"github.com/cpmech/godae/dae"
	"github.com/cpmech/godae/disc"
	"github.com/cpmech/godae/inp"
	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"golang.org/x/sync/errgroup"
)

// Simulation ties a model to a mesh, parameter values and solver settings. Solve and Sweep can
// be called concurrently; all solves share one discretisation per set of values.
type Simulation struct {
	Model   *mdl.Model     // model
	Mesh    *msh.Mesh      // mesh
	Values  *prm.Values    // parameter values
	Solver  inp.SolverData // solver data
	LinSol  inp.LinSolData // linear solver data
	Cache   *disc.Cache    // discretisations
	Verbose bool           // show messages
}

// New returns a simulation of model with default settings. The mesh is built from the model's
// geometry if mesh is nil.
func New(model *mdl.Model, mesh *msh.Mesh) (o *Simulation, err error) {
	o = &Simulation{Model: model, Mesh: mesh, Values: model.Values}
	if o.Mesh == nil {
		if o.Mesh, err = msh.New(model.Geometry...); err != nil {
			return nil, chk.Err("cannot build mesh of model %q:\n%v", model.Name, err)
		}
	}
	o.Solver.SetDefault()
	o.Solver.PostProcess()
	o.LinSol.SetDefault()
	if o.Cache, err = disc.NewCache(8); err != nil {
		return nil, err
	}
	return
}

// NewFromSim returns the simulation described by a .sim file
func NewFromSim(sim *inp.Simulation) (o *Simulation, err error) {
	a := sym.NewArena()
	model, err := mdl.New(sim.Data.Model, a, sim.Prms)
	if err != nil {
		return nil, err
	}
	model.Verbose = sim.Data.Verbose
	var mesh *msh.Mesh
	if len(sim.Mesh) > 0 {
		if mesh, err = msh.New(sim.Mesh...); err != nil {
			return nil, chk.Err("cannot build mesh of simulation:\n%v", err)
		}
	}
	if o, err = New(model, mesh); err != nil {
		return nil, err
	}
	o.Solver = sim.Solver
	o.LinSol = sim.LinSol
	o.Verbose = sim.Data.Verbose
	return
}

// Discretise returns the discretisation for the current values
func (o *Simulation) Discretise() (d *disc.Model, err error) {
	return o.Cache.Get(o.Model, o.Mesh, o.Values)
}

// Solve integrates from t0 to tf. Failures are reported in the solution.
func (o *Simulation) Solve(t0, tf float64, inputs map[string]float64) (sol *Solution) {
	sol = &Solution{Method: o.Solver.Method}
	fail := func(err error) *Solution {
		sol.Termination = Failed
		sol.Err = err
		if o.Verbose {
			io.Pfred("solver: %v\n", err)
		}
		return sol
	}
	if tf <= t0 {
		return fail(chk.Err("final time must be greater than initial time; got t0=%g tf=%g", t0, tf))
	}

	// initialising
	d, err := o.Discretise()
	if err != nil {
		return fail(err)
	}
	sol.Disc = d
	sys, err := dae.New(d, inputs, o.LinSol.Name)
	if err != nil {
		return fail(err)
	}
	defer sys.Free()
	sol.Inputs = sys.Inputs
	defer func() {
		sol.Stats.Nfeval += sys.Stats.Nfeval
		sol.Stats.Njeval += sys.Stats.Njeval
		sol.Stats.Ndecomp += sys.Stats.Ndecomp
		sol.Stats.Nlinsol += sys.Stats.Nlinsol
	}()
	y0, err := sys.Y0(t0)
	if err != nil {
		return fail(err)
	}
	y, err := sys.ConsistentInit(t0, y0, o.Solver.ShowR)
	if err != nil {
		return fail(err)
	}
	g := make([]float64, sys.Nevents())
	if err = sys.Events(t0, y, g); err != nil {
		return fail(err)
	}
	for i, v := range g {
		if v <= 0 {
			return fail(fmt.Errorf("%w: %q = %g at t=%g", ErrEventAtStart, d.Model.Events[i].Name, v, t0))
		}
	}
	sol.T = []float64{t0}
	sol.Y = [][]float64{y}

	// stepping
	method, err := newMethod(&o.Solver, o.Verbose)
	if err != nil {
		return fail(err)
	}
	defer method.Stats(&sol.Stats)
	if err = method.Init(sys, t0, y, tf); err != nil {
		return fail(err)
	}
	loc := &locator{sys: sys, tol: o.Solver.EventTol, y: make([]float64, sys.N), g: make([]float64, sys.Nevents())}
	gnew := make([]float64, sys.Nevents())
	yend := make([]float64, sys.N)
	t := t0
	for nsteps := 0; t < tf; nsteps++ {
		if nsteps >= o.Solver.NmaxSteps {
			return fail(fmt.Errorf("%w: max number of steps (%d) reached at t=%g", ErrStepSize, o.Solver.NmaxSteps, t))
		}
		segs, err := method.Step(tf)
		if err != nil {
			return fail(err)
		}
		restart := false
		for _, seg := range segs {
			seg.Eval(seg.T1, yend)
			if err = sys.Events(seg.T1, yend, gnew); err != nil {
				return fail(err)
			}

			// events
			idx, te := -1, seg.T1
			for i := range g {
				if g[i] > 0 && gnew[i] <= 0 {
					ti, err := loc.find(seg, i, g[i], gnew[i])
					if err != nil {
						return fail(err)
					}
					if idx < 0 || ti < te {
						idx, te = i, ti
					}
				}
			}
			if idx < 0 {
				sol.append(seg, yend)
				copy(g, gnew)
				t = seg.T1
				continue
			}

			// truncate at event
			sol.Stats.Nevents++
			ev := d.Model.Events[idx]
			seg.T1 = te
			seg.Eval(te, yend)
			sol.append(seg, yend)
			t = te
			if o.Verbose {
				io.Pfyel("solver: event %q at t=%g\n", ev.Name, te)
			}
			if ev.Reason == mdl.Termination {
				sol.Termination = Event
				sol.Event = ev.Name
				return
			}

			// discontinuity: restart from a consistent state
			if y, err = sys.ConsistentInit(te, yend, o.Solver.ShowR); err != nil {
				return fail(err)
			}
			sol.Y[len(sol.Y)-1] = y
			if err = sys.Events(te, y, g); err != nil {
				return fail(err)
			}
			if te < tf {
				if err = method.Init(sys, te, y, tf); err != nil {
					return fail(err)
				}
			}
			restart = true
			break
		}
		if restart {
			continue
		}
	}
	sol.Termination = Completed
	return
}

// Sweep runs one solve per set of inputs concurrently with at most nworkers solves at a time
// (the number of CPUs if nworkers ≤ 0). Failed solves do not affect the others.
func (o *Simulation) Sweep(t0, tf float64, inputs []map[string]float64, nworkers int) (sols []*Solution) {
	if nworkers <= 0 {
		nworkers = runtime.NumCPU()
	}
	sols = make([]*Solution, len(inputs))
	var g errgroup.Group
	g.SetLimit(nworkers)
	for i := range inputs {
		i := i
		g.Go(func() error {
			sols[i] = o.Solve(t0, tf, inputs[i])
			return nil
		})
	}
	g.Wait()
	return
}

// locator finds the time of events on a segment
type locator struct {
	sys *dae.System // system
	tol float64     // tolerance on time
	y   []float64   // workspace
	g   []float64   // workspace
}

// find returns t in (seg.T0, seg.T1] with event i non-positive at t and positive at t - tol.
// The Illinois variant of the secant method is used.
func (o *locator) find(seg *Segment, i int, ga, gb float64) (t float64, err error) {
	a, b := seg.T0, seg.T1
	eval := func(t float64) (float64, error) {
		seg.Eval(t, o.y)
		if err := o.sys.Events(t, o.y, o.g); err != nil {
			return 0, err
		}
		return o.g[i], nil
	}
	side := 0
	for it := 0; it < 200 && b-a > o.tol; it++ {
		c := (a*gb - b*ga) / (gb - ga)
		if !(c > a && c < b) || math.IsNaN(c) {
			c = (a + b) / 2
		}
		gc, err := eval(c)
		if err != nil {
			return 0, err
		}
		if gc > 0 {
			a, ga = c, gc
			if side == 1 {
				gb /= 2
			}
			side = 1
			continue
		}
		b, gb = c, gc
		if side == -1 {
			ga /= 2
		}
		side = -1
	}
	return b, nil
}
