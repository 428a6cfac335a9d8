// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/cpmech/godae/inp"
	_ "github.com/cpmech/godae/mdl/decay"
	_ "github.com/cpmech/godae/mdl/diffusion"
	_ "github.com/cpmech/godae/mdl/spm"
	"github.com/cpmech/godae/out"
	"github.com/cpmech/godae/solver"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			io.PfRed("\nERROR: %v", err)
			io.Pf("See location of error below:\n")
			chk.Verbose = true
			for i := 5; i > 3; i-- {
				chk.CallerInfo(i)
			}
		}
	}()

	// read input parameters
	fnamepath, _ := io.ArgToFilename(0, "", ".sim", true)
	verbose := io.ArgToBool(1, true)
	doprof := io.ArgToInt(2, 0)

	// message
	if verbose {
		io.PfWhite("\nGodae -- Go solver of differential-algebraic models\n")
		io.Pf("Copyright 2016 The Gofem Authors. All rights reserved.\n")
		io.Pf("Use of this source code is governed by a BSD-style\n")
		io.Pf("license that can be found in the LICENSE file.\n")

		io.Pf("\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
			"filename path", "fnamepath", fnamepath,
			"show messages", "verbose", verbose,
			"profiling: 0=none 1=CPU 2=MEM", "doprof", doprof,
		))
	}

	// profiling?
	if doprof > 0 {
		defer utl.Prof(doprof == 2, !verbose)()
	}

	// simulation data
	alias := ""
	dat, err := inp.ReadSim(fnamepath, alias)
	if err != nil {
		chk.Panic("cannot read simulation file:\n%v", err)
	}
	sim, err := solver.NewFromSim(dat)
	if err != nil {
		chk.Panic("cannot allocate simulation:\n%v", err)
	}

	// run
	cputime := time.Now()
	sols := sim.Sweep(dat.Control.T0, dat.Control.Tf, dat.SweepInputs(), sweepWorkers(dat))
	if verbose {
		io.Pfcyan("cpu time = %v\n", time.Now().Sub(cputime))
	}

	// results
	for i, sol := range sols {
		key := dat.Key
		if len(sols) > 1 {
			key = io.Sf("%s-%d", dat.Key, i)
		}
		if verbose {
			io.Pf("\n%s: inputs = %v\n", key, sol.Inputs)
			io.Pf("termination = %s %s\n", sol.Termination, sol.Event)
		}
		if dat.Data.Stat {
			s := sol.Stats
			io.Pf("steps = %d (accepted %d, rejected %d)  F evaluations = %d  jacobians = %d  factorisations = %d  events = %d\n",
				s.Nsteps, s.Naccepted, s.Nrejected, s.Nfeval, s.Njeval, s.Ndecomp, s.Nevents)
		}
		if sol.Termination == solver.Failed {
			io.PfRed("%s failed: %v\n", key, sol.Err)
			continue
		}
		res, err := out.NewResults(sol, dat.Outputs...)
		if err != nil {
			chk.Panic("cannot process outputs:\n%v", err)
		}
		times := res.Times(dat.Control.DtOut)
		if verbose {
			buf, err := res.Table(times)
			if err != nil {
				chk.Panic("cannot evaluate outputs:\n%v", err)
			}
			io.Pf("%v", buf)
		}
		if err = res.Save(dat.DirOut, key, times); err != nil {
			chk.Panic("cannot save results:\n%v", err)
		}
	}
}

// sweepWorkers returns the number of concurrent solves
func sweepWorkers(dat *inp.Simulation) int {
	if dat.Sweep == nil {
		return 1
	}
	return dat.Sweep.Nworkers
}
