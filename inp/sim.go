// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from a (.sim) JSON file
package inp

import (
	"encoding/json"
	goio "io"
	"math"
	"os"
	"path/filepath"

	"github.com/cpmech/godae/msh"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// Data holds global data for simulations
type Data struct {
	Desc    string `json:"desc"`    // description of simulation
	Model   string `json:"model"`   // name of model in the 'mdl' database; e.g. "spm"
	Prmfile string `json:"prmfile"` // parameter sets file path
	PrmSet  string `json:"prmset"`  // name of parameter set in Prmfile
	DirOut  string `json:"dirout"`  // directory for output; e.g. /tmp/godae
	Verbose bool   `json:"verbose"` // show messages
	Stat    bool   `json:"stat"`    // show statistics
}

// LinSolData holds data for linear solvers
type LinSolData struct {
	Name string `json:"name"` // "umfpack" or "dense"
}

// SolverData holds time-integration data
type SolverData struct {

	// method
	Method string `json:"method"` // "bdf", "bweuler" or "radau5"
	MaxOrd int    `json:"maxord"` // max order of bdf method

	// tolerances
	Atol     float64 `json:"atol"`     // absolute tolerance
	Rtol     float64 `json:"rtol"`     // relative tolerance
	EventTol float64 `json:"eventtol"` // tolerance on the time of events

	// nonlinear solver
	NmaxIt    int  `json:"nmaxit"`    // max number of Newton iterations per step
	NmaxRetry int  `json:"nmaxretry"` // max number of consecutive step failures
	ShowR     bool `json:"showr"`     // show residual

	// steps
	NmaxSteps int     `json:"nmaxsteps"` // max number of steps
	H0        float64 `json:"h0"`        // initial step size; 0 means automatic
	Hmax      float64 `json:"hmax"`      // max step size; 0 means the whole interval
	Nsub      int     `json:"nsub"`      // number of output sub-intervals for radau5

	// constants
	Eps float64 `json:"eps"` // smallest number satisfying 1.0 + ϵ > 1.0

	// derived
	Itol float64 // iterations tolerance
}

// Control holds the time interval and the input parameters of one solve
type Control struct {
	T0     float64            `json:"t0"`     // initial time
	Tf     float64            `json:"tf"`     // final time
	DtOut  float64            `json:"dtout"`  // time step size for output
	Inputs map[string]float64 `json:"inputs"` // values of input parameters
}

// SweepData holds a sweep over the values of one input parameter
type SweepData struct {
	Input    string    `json:"input"`    // name of input parameter
	Values   []float64 `json:"values"`   // values
	Nworkers int       `json:"nworkers"` // max number of concurrent solves; 0 means the number of CPUs
}

// Simulation holds all simulation data
type Simulation struct {

	// input
	Data       Data             `json:"data"`       // stores global simulation data
	Mesh       []*msh.SubDomain `json:"mesh"`       // geometry; replaces the model's when given
	Parameters dbf.Params       `json:"parameters"` // parameters; override the parameter set
	LinSol     LinSolData       `json:"linsol"`     // linear solver data
	Solver     SolverData       `json:"solver"`     // solver data
	Control    Control          `json:"control"`    // time interval and inputs
	Sweep      *SweepData       `json:"sweep"`      // optional sweep
	Outputs    []string         `json:"outputs"`    // names of output variables to report

	// derived
	DirOut string     // directory to save results
	Key    string     // simulation key; e.g. mysim01.sim => mysim01 or mysim01-alias
	Prms   dbf.Params // parameter set merged with Parameters
	PrmDb  *PrmDb     // parameter sets; nil if Prmfile is not given
}

// ReadSim reads all simulation data from a .sim JSON file
func ReadSim(simfilepath, alias string) (o *Simulation, err error) {

	// new sim
	o = new(Simulation)

	// read file
	b, err := readFile(simfilepath)
	if err != nil {
		return nil, err
	}

	// set default values
	o.Solver.SetDefault()
	o.LinSol.SetDefault()

	// decode
	err = json.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("cannot unmarshal simulation file %q:\n%v", simfilepath, err)
	}

	// input directory and filename key
	dir := os.ExpandEnv(filepath.Dir(simfilepath))
	fnkey := io.FnKey(filepath.Base(simfilepath))
	o.Key = fnkey
	if alias != "" {
		o.Key += "-" + alias
	}

	// output directory
	o.DirOut = o.Data.DirOut
	if o.DirOut == "" {
		o.DirOut = "/tmp/godae/" + fnkey
	}

	// checks
	if o.Data.Model == "" {
		return nil, chk.Err("simulation file %q must name a model", simfilepath)
	}
	if o.Control.Tf <= o.Control.T0 {
		return nil, chk.Err("final time must be greater than initial time; got t0=%g tf=%g", o.Control.T0, o.Control.Tf)
	}
	if o.Sweep != nil {
		if o.Sweep.Input == "" || len(o.Sweep.Values) == 0 {
			return nil, chk.Err("sweep needs the name of an input and at least one value")
		}
	}

	// set solver constants
	o.Solver.PostProcess()

	// parameters
	o.Prms = Merge(nil, o.Parameters)
	if o.Data.Prmfile != "" {
		o.PrmDb, err = ReadPrm(dir, o.Data.Prmfile)
		if err != nil {
			return nil, chk.Err("cannot read parameters file:\n%v", err)
		}
		set := o.PrmDb.Get(o.Data.PrmSet)
		if set == nil {
			return nil, chk.Err("cannot find parameter set %q in %q", o.Data.PrmSet, o.Data.Prmfile)
		}
		if set.Model != "" && set.Model != o.Data.Model {
			return nil, chk.Err("parameter set %q is for model %q, not %q", set.Name, set.Model, o.Data.Model)
		}
		o.Prms = Merge(set.Prms, o.Parameters)
	}
	return
}

// SweepInputs returns the inputs of every solve of the sweep; the base inputs if there is no sweep
func (o *Simulation) SweepInputs() (res []map[string]float64) {
	if o.Sweep == nil {
		return []map[string]float64{o.Control.Inputs}
	}
	for _, v := range o.Sweep.Values {
		inputs := make(map[string]float64, len(o.Control.Inputs)+1)
		for k, x := range o.Control.Inputs {
			inputs[k] = x
		}
		inputs[o.Sweep.Input] = v
		res = append(res, inputs)
	}
	return
}

// GetInfo returns formatted information
func (o *Simulation) GetInfo(w goio.Writer) (err error) {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return
}

// extra settings //////////////////////////////////////////////////////////////////////////////////

// SetDefault sets defaults values
func (o *LinSolData) SetDefault() {
	o.Name = "umfpack"
}

// SetDefault set defaults values
func (o *SolverData) SetDefault() {

	// method
	o.Method = "bdf"
	o.MaxOrd = 5

	// tolerances
	o.Atol = 1e-6
	o.Rtol = 1e-6
	o.EventTol = 1e-10

	// nonlinear solver
	o.NmaxIt = 4
	o.NmaxRetry = 20

	// steps
	o.NmaxSteps = 100000
	o.Nsub = 100

	// constants
	o.Eps = 1e-16
}

// PostProcess performs a post-processing of the just read json file
func (o *SolverData) PostProcess() {

	// bounds
	if o.MaxOrd < 1 || o.MaxOrd > 5 {
		o.MaxOrd = 5
	}
	if o.Nsub < 1 {
		o.Nsub = 1
	}

	// iterations tolerance
	o.Itol = utl.Max(10.0*o.Eps/o.Rtol, utl.Min(0.03, math.Sqrt(o.Rtol)))
}
