// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package solver integrates discretised models in time and locates events
package solver

import (
	"errors"
	"math"
	"sort"

	"github.com/cpmech/godae/dae"
	"github.com/cpmech/godae/disc"
	"github.com/cpmech/godae/inp"
	"github.com/cpmech/gosl/chk"
)

var (
	ErrEventAtStart = errors.New("event function is not positive at the initial time")
	ErrDiverged     = errors.New("nonlinear iterations diverged")
	ErrStepSize     = errors.New("step size became too small")
)

// termination reasons
const (
	Completed = "final time" // reached the final time
	Event     = "event"      // stopped by a termination event
	Failed    = "failure"    // failed; see Solution.Err
)

// Method implements one time-integration scheme
type Method interface {
	Init(sys *dae.System, t0 float64, y0 []float64, tf float64) error // (re)starts at (t0, y0); y0 is consistent
	Step(tf float64) (segs []*Segment, err error)                     // advances by at least one accepted step, not beyond tf
	Stats(s *Stats)                                                   // adds the method counters to s
}

// allocators holds all available methods
var allocators = make(map[string]func(dat *inp.SolverData, verbose bool) Method)

// Methods returns the names of the available methods
func Methods() (names []string) {
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// newMethod returns a new method by name
func newMethod(dat *inp.SolverData, verbose bool) (Method, error) {
	alloc, ok := allocators[dat.Method]
	if !ok {
		return nil, chk.Err("method %q is not available; options are %v", dat.Method, Methods())
	}
	return alloc(dat, verbose), nil
}

// Stats holds solver statistics
type Stats struct {
	Nsteps    int // number of steps
	Naccepted int // number of accepted steps
	Nrejected int // number of rejected steps
	Nfeval    int // number of calls to F
	Njeval    int // number of jacobian evaluations
	Ndecomp   int // number of factorisations
	Nlinsol   int // number of linear solutions
	Nevents   int // number of events located
}

// Segment holds the interpolant of one step
//
//	y(t) = D[0] + Σ_j D[j+1] Π_{m=0}^{j} (t - (Tn - m H)) / ((m+1) H)
//
// i.e. Newton's backward formula on the grid Tn, Tn-H, … It is valid on [T0, T1].
type Segment struct {
	T0, T1 float64     // interval
	Tn     float64     // reference time
	H      float64     // grid spacing
	D      [][]float64 // backward differences
}

// newSegment returns the interpolant with differences D (copied)
func newSegment(t0, t1, tn, h float64, D [][]float64) (o *Segment) {
	o = &Segment{T0: t0, T1: t1, Tn: tn, H: h, D: make([][]float64, len(D))}
	for i, d := range D {
		o.D[i] = append([]float64{}, d...)
	}
	return
}

// linearSegment returns the linear interpolant between (t0, y0) and (t1, y1)
func linearSegment(t0, t1 float64, y0, y1 []float64) *Segment {
	d := make([]float64, len(y1))
	for i := range d {
		d[i] = y1[i] - y0[i]
	}
	return &Segment{T0: t0, T1: t1, Tn: t1, H: t1 - t0, D: [][]float64{append([]float64{}, y1...), d}}
}

// Order returns the order of the interpolant
func (o *Segment) Order() int { return len(o.D) - 1 }

// Eval computes y(t)
func (o *Segment) Eval(t float64, y []float64) {
	copy(y, o.D[0])
	p := 1.0
	for j := 0; j < len(o.D)-1; j++ {
		p *= (t - (o.Tn - float64(j)*o.H)) / (float64(j+1) * o.H)
		for i, d := range o.D[j+1] {
			y[i] += d * p
		}
	}
}

// Solution holds the result of one solve
type Solution struct {
	T           []float64          // accepted times
	Y           [][]float64        // states at T
	Segs        []*Segment         // Segs[k] interpolates between T[k] and T[k+1]
	Termination string             // Completed, Event or Failed
	Event       string             // name of the event that stopped the solve
	Err         error              // error if Termination == Failed
	Stats       Stats              // statistics
	Inputs      map[string]float64 // input parameters used
	Disc        *disc.Model        // discretisation
	Method      string             // method used
}

// Interp computes y(t) for T[0] ≤ t ≤ T[last]
func (o *Solution) Interp(t float64, y []float64) (err error) {
	n := len(o.T)
	if n == 0 {
		return chk.Err("solution is empty")
	}
	tol := 1e-12 * math.Max(1, math.Abs(o.T[n-1]))
	if t < o.T[0]-tol || t > o.T[n-1]+tol {
		return chk.Err("t=%g is outside the solution interval [%g, %g]", t, o.T[0], o.T[n-1])
	}
	k := sort.SearchFloat64s(o.T, t)
	if k < n && o.T[k] == t {
		copy(y, o.Y[k])
		return
	}
	if k == 0 {
		copy(y, o.Y[0])
		return
	}
	if k >= n {
		copy(y, o.Y[n-1])
		return
	}
	o.Segs[k-1].Eval(t, y)
	return
}

// Last returns the final time and state
func (o *Solution) Last() (t float64, y []float64) {
	n := len(o.T)
	if n == 0 {
		return
	}
	return o.T[n-1], o.Y[n-1]
}

// append adds a segment and the sample at its end
func (o *Solution) append(seg *Segment, y []float64) {
	o.Segs = append(o.Segs, seg)
	o.T = append(o.T, seg.T1)
	o.Y = append(o.Y, append([]float64{}, y...))
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// rmsNorm returns sqrt(Σ (x_i / s_i)² / n)
func rmsNorm(x, scale []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i, v := range x {
		sum += (v / scale[i]) * (v / scale[i])
	}
	return math.Sqrt(sum / float64(len(x)))
}

// finite tells whether all entries are finite
func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
