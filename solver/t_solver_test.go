// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/cpmech/godae/ana"
	"github.com/cpmech/godae/mdl"
	_ "github.com/cpmech/godae/mdl/decay"
	_ "github.com/cpmech/godae/mdl/diffusion"
	_ "github.com/cpmech/godae/mdl/spm"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// simulate returns a simulation of a registered model
func simulate(tst *testing.T, name string, prms dbf.Params) *Simulation {
	model, err := mdl.New(name, sym.NewArena(), prms)
	if err != nil {
		tst.Fatalf("mdl.New failed:\n%v", err)
	}
	sim, err := New(model, nil)
	if err != nil {
		tst.Fatalf("New failed:\n%v", err)
	}
	return sim
}

// rod returns dc/dt = ∇²c on [0, 1] with insulated ends and c(x, 0) = cos(π x)
func rod(tst *testing.T, npts int) *Simulation {
	a := sym.NewArena()
	m := mdl.NewModel("rod", a)
	geo := &msh.SubDomain{Name: "rod", Min: 0, Max: 1, Npts: npts}
	mesh, err := msh.New(geo)
	if err != nil {
		tst.Fatalf("msh.New failed:\n%v", err)
	}
	sub, _ := mesh.Get("rod")
	c0 := make([]float64, npts)
	for i, x := range sub.Nodes {
		c0[i] = math.Cos(math.Pi * x)
	}
	c := a.Var("c", "rod")
	m.SetRhs(c, a.Divergence(a.Gradient(c)))
	m.SetNeumann(c, sym.Left, a.Const(0))
	m.SetNeumann(c, sym.Right, a.Const(0))
	m.SetIc(c, a.Vector(c0, []string{"rod"}, sym.Nodes))
	m.Geometry = []*msh.SubDomain{geo}
	sim, err := New(m, mesh)
	if err != nil {
		tst.Fatalf("New failed:\n%v", err)
	}
	return sim
}

func checkCompleted(tst *testing.T, sol *Solution) bool {
	if sol.Termination != Completed {
		tst.Errorf("solve did not complete: %s: %v", sol.Termination, sol.Err)
		return false
	}
	return true
}

func Test_solver01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver01. decay with all methods")

	var exact ana.Decay
	exact.Init(nil)
	tols := map[string]float64{"bdf": 1e-6, "radau5": 1e-6, "bweuler": 1e-2}
	for _, method := range Methods() {
		io.Pforan("method = %s\n", method)
		sim := simulate(tst, "decay", nil)
		sim.Solver.Method = method
		sim.Solver.Atol, sim.Solver.Rtol = 1e-10, 1e-8
		if method == "bweuler" {
			sim.Solver.Atol, sim.Solver.Rtol = 1e-6, 1e-4
		}
		sim.Solver.PostProcess()
		sol := sim.Solve(0, 2, nil)
		if !checkCompleted(tst, sol) {
			continue
		}
		chk.Float64(tst, "tf", 1e-15, sol.T[len(sol.T)-1], 2)
		for k, t := range sol.T {
			chk.AnaNum(tst, io.Sf("y(%g)", t), tols[method], sol.Y[k][0], exact.Calc(t), false)
		}

		// interpolation between samples
		y := make([]float64, 1)
		for _, t := range []float64{0.3, 1.1, 1.9} {
			if err := sol.Interp(t, y); err != nil {
				tst.Errorf("Interp failed:\n%v", err)
				return
			}
			chk.AnaNum(tst, io.Sf("interp y(%g)", t), 10*tols[method], y[0], exact.Calc(t), false)
		}
		if sol.Stats.Naccepted < 1 || sol.Stats.Nfeval < 1 {
			tst.Errorf("statistics were not collected: %+v", sol.Stats)
		}
	}
}

func Test_solver02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver02. termination event")

	for _, method := range []string{"bdf", "bweuler"} {
		sim := simulate(tst, "decay", dbf.Params{&dbf.P{N: "threshold", V: 0.5}})
		sim.Solver.Method = method
		sim.Solver.Atol, sim.Solver.Rtol = 1e-10, 1e-8
		if method == "bweuler" {
			sim.Solver.Atol, sim.Solver.Rtol = 1e-8, 1e-6
		}
		sim.Solver.PostProcess()
		sol := sim.Solve(0, 5, nil)
		if sol.Termination != Event {
			tst.Errorf("%s: event was not found: %s: %v", method, sol.Termination, sol.Err)
			continue
		}
		chk.String(tst, sol.Event, "Threshold")
		te, ye := sol.Last()
		tol := 1e-5
		if method == "bweuler" {
			tol = 1e-3
		}
		var exact ana.Decay
		exact.Init(nil)
		chk.Float64(tst, "te", tol, te, exact.Crossing(0.5))
		chk.Float64(tst, "ye", tol, ye[0], 0.5)
		for _, t := range sol.T {
			if t > te {
				tst.Errorf("%s: sample at t=%g is beyond the event at t=%g", method, t, te)
			}
		}
		chk.IntAssert(sol.Stats.Nevents, 1)
	}
}

func Test_solver03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver03. event at initial time and bad inputs")

	sim := simulate(tst, "decay", dbf.Params{&dbf.P{N: "threshold", V: 2}})
	sol := sim.Solve(0, 1, nil)
	if sol.Termination != Failed || !errors.Is(sol.Err, ErrEventAtStart) {
		tst.Errorf("event at start was not detected: %s: %v", sol.Termination, sol.Err)
	}

	sim = simulate(tst, "decay", nil)
	sol = sim.Solve(1, 1, nil)
	if sol.Termination != Failed {
		tst.Errorf("empty interval should fail")
	}
	sim.Solver.Method = "euler"
	sol = sim.Solve(0, 1, nil)
	if sol.Termination != Failed {
		tst.Errorf("unknown method should fail")
	}

	// tolerances rejected by the radau5 integrator
	sim.Solver.Method = "radau5"
	sim.Solver.Atol = 1e-20
	sim.Solver.PostProcess()
	sol = sim.Solve(0, 1, nil)
	if sol.Termination != Failed || sol.Err == nil {
		tst.Errorf("radau5 with too small tolerances should fail with an error")
	}
	io.Pforan("err = %v\n", sol.Err)
}

func Test_solver04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver04. conservation with insulated ends")

	sim := rod(tst, 10)
	sim.Solver.Atol, sim.Solver.Rtol = 1e-10, 1e-8
	sim.Solver.PostProcess()
	sol := sim.Solve(0, 0.2, nil)
	if !checkCompleted(tst, sol) {
		return
	}
	sub, _ := sim.Mesh.Get("rod")
	for k, t := range sol.T {
		total := 0.0
		for i, dx := range sub.Dx {
			total += dx * sol.Y[k][i]
		}
		chk.Float64(tst, io.Sf("∫c(%g)", t), 1e-12, total, 0)
	}
}

func Test_solver05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver05. spatial convergence")

	// cos(π x) is an eigenvector of the discrete operator; the error decays like h²
	var exact ana.RodCosine
	exact.Init(nil)
	tf := 0.1
	errs := make([]float64, 2)
	for k, npts := range []int{10, 20} {
		sim := rod(tst, npts)
		sim.Solver.Atol, sim.Solver.Rtol = 1e-12, 1e-10
		sim.Solver.PostProcess()
		sol := sim.Solve(0, tf, nil)
		if !checkCompleted(tst, sol) {
			return
		}
		sub, _ := sim.Mesh.Get("rod")
		_, y := sol.Last()
		for i, x := range sub.Nodes {
			e := math.Abs(y[i] - exact.Calc(x, tf))
			errs[k] = math.Max(errs[k], e)
		}
	}
	ratio := errs[0] / errs[1]
	io.Pforan("errors = %v  ratio = %g\n", errs, ratio)
	if ratio < 3.5 || ratio > 4.5 {
		tst.Errorf("error ratio %g is not close to 4", ratio)
	}
}

func Test_solver06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver06. index-1 DAE")

	a := sym.NewArena()
	m := mdl.NewModel("semi-explicit", a)
	x, z := a.Var("x"), a.Var("z")
	m.SetRhs(x, a.Neg(x))
	m.SetAlgebraic(z, a.Sub(z, a.Scale(2, x)))
	m.SetIc(x, a.Const(1))
	m.SetIc(z, a.Const(0)) // made consistent by the solver
	for _, method := range []string{"bdf", "radau5"} {
		sim, err := New(m, nil)
		if err != nil {
			tst.Errorf("New failed:\n%v", err)
			return
		}
		sim.Solver.Method = method
		sim.Solver.Atol, sim.Solver.Rtol = 1e-10, 1e-8
		sim.Solver.PostProcess()
		sol := sim.Solve(0, 1, nil)
		if !checkCompleted(tst, sol) {
			continue
		}
		chk.Array(tst, "y0", 1e-12, sol.Y[0], []float64{1, 2})
		for k, t := range sol.T {
			chk.AnaNum(tst, io.Sf("%s: z(%g)", method, t), 1e-6, sol.Y[k][1], 2*math.Exp(-t), false)
		}
	}
}

func Test_solver07(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver07. discontinuity event")

	// the event fires once and the solve goes on to the final time
	a := sym.NewArena()
	m := mdl.NewModel("ramp", a)
	y := a.Var("y")
	m.SetRhs(y, a.Const(1))
	m.SetIc(y, a.Const(0))
	m.AddEvent("Kick", a.Sub(a.Const(0.5), a.Time()), mdl.Discontinuity)
	sim, err := New(m, nil)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	sol := sim.Solve(0, 1, nil)
	if !checkCompleted(tst, sol) {
		return
	}
	chk.IntAssert(sol.Stats.Nevents, 1)
	found := false
	for k, t := range sol.T {
		chk.Float64(tst, io.Sf("y(%g)", t), 1e-8, sol.Y[k][0], t)
		if math.Abs(t-0.5) < 1e-8 {
			found = true
		}
	}
	if !found {
		tst.Errorf("event time is not among the samples: %v", sol.T)
	}
}

func Test_solver08(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver08. sweep")

	a := sym.NewArena()
	m := mdl.NewModel("decay", a)
	y := a.Var("y")
	m.SetRhs(y, a.Neg(a.Mul(a.Param("k"), y)))
	m.SetIc(y, a.Const(1))
	m.Values.SetInput("k", 1)
	sim, err := New(m, nil)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	sim.Solver.Atol, sim.Solver.Rtol = 1e-10, 1e-8
	sim.Solver.PostProcess()
	inputs := []map[string]float64{{"k": 1}, {"k": 2}, {"c": 1}, {"k": 3}}
	sols := sim.Sweep(0, 1, inputs, 2)
	for i, sol := range sols {
		if i == 2 {
			if sol.Termination != Failed {
				tst.Errorf("unknown input should fail")
			}
			continue
		}
		if !checkCompleted(tst, sol) {
			continue
		}
		_, yf := sol.Last()
		chk.Float64(tst, io.Sf("y(1; k=%g)", inputs[i]["k"]), 1e-6, yf[0], math.Exp(-inputs[i]["k"]))
	}
	hits, misses := sim.Cache.Stats()
	io.Pforan("cache: hits=%d misses=%d\n", hits, misses)
	chk.IntAssert(misses, 1)
}

func Test_solver09(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver09. single particle model")

	sim := simulate(tst, "spm", nil)
	sols := sim.Sweep(0, 600, []map[string]float64{{"C-rate": 1}, {"C-rate": 2}}, 0)
	var vend [2]float64
	for k, sol := range sols {
		if !checkCompleted(tst, sol) {
			return
		}
		slot, found := sol.Disc.Slot("Terminal voltage [V]")
		if !found {
			tst.Errorf("voltage slot is missing")
			return
		}
		v0 := sol.Y[0][slot.Lo]
		_, yf := sol.Last()
		vend[k] = yf[slot.Lo]
		io.Pforan("C-rate=%g: V(0)=%g V(tf)=%g\n", sol.Inputs["C-rate"], v0, vend[k])
		if v0 < 3 || v0 > 4.5 {
			tst.Errorf("initial voltage %g is not plausible", v0)
		}
		if vend[k] >= v0 {
			tst.Errorf("voltage should drop during discharge: %g → %g", v0, vend[k])
		}
	}
	if vend[1] >= vend[0] {
		tst.Errorf("higher C-rate should give lower voltage: %v", vend)
	}
}

func Test_segment01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("segment01. Newton backward interpolant")

	// y = t² on the grid 1, 0.5, 0 gives D = [1, 0.75, 0.5]
	seg := newSegment(0.5, 1, 1, 0.5, [][]float64{{1}, {0.75}, {0.5}})
	chk.IntAssert(seg.Order(), 2)
	y := make([]float64, 1)
	for _, t := range []float64{0, 0.25, 0.5, 0.8, 1} {
		seg.Eval(t, y)
		chk.Float64(tst, io.Sf("y(%g)", t), 1e-15, y[0], t*t)
	}
	lin := linearSegment(1, 3, []float64{2}, []float64{6})
	lin.Eval(2, y)
	chk.Float64(tst, "linear", 1e-15, y[0], 4)
}

func Test_solver10(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver10. diffusion with a fixed value on the left")

	var exact ana.RodStep
	exact.Init(dbf.Params{&dbf.P{N: "U", V: 1}})
	sim := simulate(tst, "diffusion", dbf.Params{&dbf.P{N: "uleft", V: 1}})
	sim.Solver.Atol, sim.Solver.Rtol = 1e-8, 1e-6
	sim.Solver.PostProcess()
	sol := sim.Solve(0, 0.1, nil)
	if !checkCompleted(tst, sol) {
		return
	}
	sub, _ := sim.Mesh.Get("rod")
	_, y := sol.Last()
	total := 0.0
	for i, x := range sub.Nodes {
		chk.AnaNum(tst, io.Sf("u(%g)", x), 5e-3, y[i], exact.Calc(x, 0.1), chk.Verbose)
		total += sub.Dx[i] * y[i]
	}
	chk.Float64(tst, "total", 5e-3, total, exact.Total(0.1))
}
