// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"math"

	"github.com/cpmech/godae/dae"
	"github.com/cpmech/godae/inp"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/ode"
)

// Radau5 integrates with the Radau IIA method of order 5 of gosl/ode. The interval is split
// into Nsub sub-intervals; accepted steps within each sub-interval give linear segments.
type Radau5 struct {
	dat     *inp.SolverData // solver data
	verbose bool            // show messages
	sys     *dae.System     // system
	n       int             // number of states
	t       float64         // current time
	dt      float64         // length of sub-intervals
	y       []float64       // current state
	mass    *la.Triplet     // mass matrix; nil if there are no algebraic equations
	conf    *ode.Config     // integrator configuration
	sol     *ode.Solver     // integrator
	cberr   error           // first error raised by a callback
	stat    Stats           // counters

	// accepted points of the current sub-interval
	ts []float64
	ys [][]float64
}

// add method to factory
func init() {
	allocators["radau5"] = func(dat *inp.SolverData, verbose bool) Method {
		return &Radau5{dat: dat, verbose: verbose}
	}
}

// Init starts the method at (t0, y0)
func (o *Radau5) Init(sys *dae.System, t0 float64, y0 []float64, tf float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = chk.Err("cannot initialise radau5:\n%v", r)
		}
	}()
	o.sys, o.n, o.t = sys, sys.N, t0
	o.y = append([]float64{}, y0...)
	o.dt = (tf - t0) / float64(o.dat.Nsub)
	if o.dat.Hmax > 0 {
		o.dt = math.Min(o.dt, o.dat.Hmax)
	}

	// mass matrix
	o.mass = nil
	if sys.Nrhs < sys.N {
		o.mass = new(la.Triplet)
		o.mass.Init(o.n, o.n, sys.Nrhs)
		for i := 0; i < sys.Nrhs; i++ {
			o.mass.Put(i, i, 1)
		}
	}

	// callbacks; gosl/ode does not propagate errors so the first one is kept
	o.cberr = nil
	fcn := func(f la.Vector, dx, x float64, y la.Vector) {
		if err := sys.F(x, y, f); err != nil && o.cberr == nil {
			o.cberr = err
		}
	}
	jac := func(dfdy *la.Triplet, dx, x float64, y la.Vector) {
		J, err := sys.DfDy(x, y)
		if err != nil {
			if o.cberr == nil {
				o.cberr = err
			}
			return
		}
		if dfdy.Max() < J.NNZ() {
			dfdy.Init(o.n, o.n, 2*J.NNZ()+o.n)
		}
		dfdy.Start()
		J.Each(func(i, j int, v float64) {
			dfdy.Put(i, j, v)
		})
	}
	out := func(istep int, dx, x float64, y la.Vector) (stop bool) {
		if istep == 0 {
			return o.cberr != nil
		}
		o.ts = append(o.ts, x)
		o.ys = append(o.ys, append([]float64{}, y...))
		return o.cberr != nil
	}

	// integrator
	o.conf = ode.NewConfig("radau5", "", nil)
	o.conf.SetTols(o.dat.Atol, o.dat.Rtol)
	o.conf.SetStepOut(false, out)
	if o.sol != nil {
		o.sol.Free()
	}
	o.sol = ode.NewSolver(o.n, o.conf, fcn, jac, o.mass)
	return
}

// solve runs the integrator from t to tnew, turning panics of gosl/ode into errors
func (o *Radau5) solve(y la.Vector, t, tnew float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	o.sol.Solve(y, t, tnew)
	return o.cberr
}

// Step integrates over one sub-interval
func (o *Radau5) Step(tf float64) (segs []*Segment, err error) {
	t := o.t
	tnew := math.Min(t+o.dt, tf)
	if tf-tnew < 1e-10*o.dt {
		tnew = tf
	}
	o.ts, o.ys = o.ts[:0], o.ys[:0]
	y := la.NewVector(o.n)
	copy(y, o.y)
	if err = o.solve(y, t, tnew); err != nil {
		return nil, fmt.Errorf("%w: radau5 failed on [%g, %g]: %v", ErrDiverged, t, tnew, err)
	}
	o.stat.Nsteps += o.sol.Stat.Nsteps
	o.stat.Naccepted += o.sol.Stat.Naccepted
	o.stat.Nrejected += o.sol.Stat.Nrejected

	// segments
	tprev, yprev := t, o.y
	for k, tk := range o.ts {
		if tk <= tprev {
			continue
		}
		segs = append(segs, linearSegment(tprev, tk, yprev, o.ys[k]))
		tprev, yprev = tk, o.ys[k]
	}
	if tprev < tnew {
		segs = append(segs, linearSegment(tprev, tnew, yprev, y))
	}
	segs[len(segs)-1].T1 = tnew
	o.t = tnew
	o.y = y
	return
}

// Stats adds the counters
func (o *Radau5) Stats(s *Stats) {
	s.Nsteps += o.stat.Nsteps
	s.Naccepted += o.stat.Naccepted
	s.Nrejected += o.stat.Nrejected
}
