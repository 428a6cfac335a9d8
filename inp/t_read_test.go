// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"bytes"
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func Test_prm01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("prm01")

	pdb1, err := ReadPrm("data", "lithium.prm")
	if err != nil {
		tst.Errorf("cannot read lithium.prm\n:%v", err)
		return
	}
	io.Pforan("lithium.prm just read:\n%v\n", pdb1)
	chk.IntAssert(len(pdb1.Sets), 2)
	set := pdb1.Get("nmc-graphite")
	if set == nil {
		tst.Errorf("cannot find set nmc-graphite")
		return
	}
	chk.String(tst, set.Model, "spm")
	chk.IntAssert(len(set.Prms), 14)
	chk.Float64(tst, "capacity", 1e-17, set.Prms.Find("Nominal cell capacity [A.h]").V, 5)
	if pdb1.Get("lfp") != nil {
		tst.Errorf("set lfp should not exist")
	}

	fn := "test_lithium.prm"
	io.WriteStringToFileD("/tmp/godae/inp", fn, pdb1.String())

	pdb2, err := ReadPrm("/tmp/godae/inp/", fn)
	if err != nil {
		tst.Errorf("cannot read test_lithium.prm\n:%v", err)
		return
	}
	chk.IntAssert(len(pdb2.Sets), len(pdb1.Sets))
	for i, s := range pdb1.Sets {
		chk.String(tst, pdb2.Sets[i].Name, s.Name)
		chk.IntAssert(len(pdb2.Sets[i].Prms), len(s.Prms))
		for j, p := range s.Prms {
			chk.String(tst, pdb2.Sets[i].Prms[j].N, p.N)
			chk.Float64(tst, p.N, 1e-15, pdb2.Sets[i].Prms[j].V, p.V)
		}
	}

	_, err = ReadPrm("data", "bad.prm")
	if err == nil {
		tst.Errorf("repeated parameters should fail")
		return
	}
	io.Pforan("error = %v\n", err)
}

func Test_prm02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("prm02. merge")

	set := dbf.Params{&dbf.P{N: "a", V: 1}, &dbf.P{N: "b", V: 2}}
	prms := dbf.Params{&dbf.P{N: "b", V: 20}, &dbf.P{N: "c", V: 30}}
	res := Merge(set, prms)
	chk.IntAssert(len(res), 3)
	chk.Float64(tst, "a", 1e-17, res.Find("a").V, 1)
	chk.Float64(tst, "b", 1e-17, res.Find("b").V, 20)
	chk.Float64(tst, "c", 1e-17, res.Find("c").V, 30)

	// originals are untouched
	res[0].V = 100
	chk.Float64(tst, "set a", 1e-17, set[0].V, 1)
	chk.Float64(tst, "set b", 1e-17, set[1].V, 2)
}

func Test_sim01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sim01. defaults")

	sim, err := ReadSim("data/decay.sim", "")
	if err != nil {
		tst.Errorf("ReadSim failed:\n%v", err)
		return
	}
	if chk.Verbose {
		var buf bytes.Buffer
		sim.GetInfo(&buf)
		io.Pf("%s\n", buf.String())
	}
	chk.String(tst, sim.Data.Model, "decay")
	chk.String(tst, sim.Key, "decay")
	chk.String(tst, sim.DirOut, "/tmp/godae/decay")
	chk.String(tst, sim.LinSol.Name, "umfpack")
	chk.String(tst, sim.Solver.Method, "bdf")
	chk.IntAssert(sim.Solver.MaxOrd, 5)
	chk.IntAssert(sim.Solver.NmaxIt, 4)
	chk.Float64(tst, "atol", 1e-17, sim.Solver.Atol, 1e-10)
	chk.Float64(tst, "rtol", 1e-17, sim.Solver.Rtol, 1e-8)
	chk.Float64(tst, "eventtol", 1e-17, sim.Solver.EventTol, 1e-10)
	chk.Float64(tst, "itol", 1e-17, sim.Solver.Itol, math.Sqrt(1e-8))
	chk.Float64(tst, "t0", 1e-17, sim.Control.T0, 0)
	chk.Float64(tst, "tf", 1e-17, sim.Control.Tf, 5)
	chk.Float64(tst, "dtout", 1e-17, sim.Control.DtOut, 0.25)
	chk.IntAssert(len(sim.Prms), 2)
	chk.Float64(tst, "k", 1e-17, sim.Prms.Find("k").V, 2)
	chk.Strings(tst, "outputs", sim.Outputs, []string{"y", "Exact y"})
	if sim.PrmDb != nil {
		tst.Errorf("there should be no parameters file")
	}
	inputs := sim.SweepInputs()
	chk.IntAssert(len(inputs), 1)
	chk.IntAssert(len(inputs[0]), 0)
}

func Test_sim02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sim02. mesh, linear solver and bounds")

	sim, err := ReadSim("data/diffusion.sim", "fine")
	if err != nil {
		tst.Errorf("ReadSim failed:\n%v", err)
		return
	}
	chk.String(tst, sim.Key, "diffusion-fine")
	chk.String(tst, sim.DirOut, "/tmp/godae/diffusion")
	chk.String(tst, sim.LinSol.Name, "dense")
	chk.String(tst, sim.Solver.Method, "radau5")
	chk.IntAssert(sim.Solver.Nsub, 20)
	chk.IntAssert(sim.Solver.MaxOrd, 5)
	chk.IntAssert(len(sim.Mesh), 1)
	chk.String(tst, sim.Mesh[0].Name, "rod")
	chk.Float64(tst, "max", 1e-17, sim.Mesh[0].Max, 2)
	chk.IntAssert(sim.Mesh[0].Npts, 40)
	chk.Float64(tst, "itol", 1e-17, sim.Solver.Itol, 1e-3)
}

func Test_sim03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sim03. parameter sets and sweeps")

	sim, err := ReadSim("data/spm.sim", "")
	if err != nil {
		tst.Errorf("ReadSim failed:\n%v", err)
		return
	}
	if sim.PrmDb == nil {
		tst.Errorf("parameters file was not read")
		return
	}
	chk.IntAssert(len(sim.Prms), 15)
	chk.Float64(tst, "cut-off", 1e-17, sim.Prms.Find("Lower voltage cut-off [V]").V, 3.2)
	chk.Float64(tst, "capacity", 1e-17, sim.Prms.Find("Nominal cell capacity [A.h]").V, 5)
	chk.Float64(tst, "inputs", 1e-17, sim.Control.Inputs["C-rate"], 1)
	if sim.Sweep == nil {
		tst.Errorf("sweep was not read")
		return
	}
	chk.IntAssert(sim.Sweep.Nworkers, 2)
	inputs := sim.SweepInputs()
	chk.IntAssert(len(inputs), 3)
	for i, v := range []float64{0.5, 1, 2} {
		chk.Float64(tst, io.Sf("C-rate %d", i), 1e-17, inputs[i]["C-rate"], v)
	}
	chk.Float64(tst, "base C-rate", 1e-17, sim.Control.Inputs["C-rate"], 1)

	_, err = ReadSim("data/wrongset.sim", "")
	if err == nil {
		tst.Errorf("parameter set of another model should fail")
		return
	}
	io.Pforan("error = %v\n", err)

	_, err = ReadSim("data/nonexistent.sim", "")
	if err == nil {
		tst.Errorf("missing file should fail")
	}
}
