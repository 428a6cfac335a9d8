// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"math"

	"github.com/cpmech/godae/dae"
	"github.com/cpmech/godae/inp"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// BwEuler implements the backward Euler method with step doubling
//
//	M (y_{n+1} - y_n) / h = F(t_{n+1}, y_{n+1})
//
// One step of size h and two steps of size h/2 are compared to estimate the error; the
// half-step solution is kept.
type BwEuler struct {
	dat     *inp.SolverData // solver data
	verbose bool            // show messages
	sys     *dae.System     // system
	n       int             // number of states
	t       float64         // current time
	h       float64         // current step size
	hmax    float64         // max step size
	y       []float64       // current state
	stat    Stats           // counters

	// workspace
	yfull, yhalf, yend, f, b, dy, scale []float64
}

// add method to factory
func init() {
	allocators["bweuler"] = func(dat *inp.SolverData, verbose bool) Method {
		return &BwEuler{dat: dat, verbose: verbose}
	}
}

// Init starts the method at (t0, y0)
func (o *BwEuler) Init(sys *dae.System, t0 float64, y0 []float64, tf float64) (err error) {
	o.sys, o.n, o.t = sys, sys.N, t0
	o.y = append([]float64{}, y0...)
	o.yfull, o.yhalf, o.yend = make([]float64, o.n), make([]float64, o.n), make([]float64, o.n)
	o.f, o.b, o.dy, o.scale = make([]float64, o.n), make([]float64, o.n), make([]float64, o.n), make([]float64, o.n)
	o.hmax = o.dat.Hmax
	if o.hmax <= 0 {
		o.hmax = math.Inf(1)
	}
	if err = sys.F(t0, y0, o.f); err != nil {
		return
	}
	o.h = o.dat.H0
	if o.h <= 0 {
		if o.h, err = initialStep(sys, t0, y0, o.f, 1, o.dat.Atol, o.dat.Rtol); err != nil {
			return
		}
	}
	o.h = math.Min(math.Min(o.h, o.hmax), tf-t0)
	return
}

// Step advances by one accepted step made of two half steps
func (o *BwEuler) Step(tf float64) (segs []*Segment, err error) {
	t := o.t
	minStep := 10 * (math.Nextafter(t, math.Inf(1)) - t)
	nfail := 0
	for {
		o.stat.Nsteps++
		o.h = math.Min(o.h, o.hmax)
		if o.h < minStep {
			return nil, fmt.Errorf("%w: h=%g at t=%g", ErrStepSize, o.h, t)
		}
		tnew := t + o.h
		if tnew > tf || tf-tnew < 10*minStep {
			tnew = tf
		}
		h := tnew - t

		// full step and two half steps
		err = o.solve(t, h, o.y, o.yfull)
		if err == nil {
			err = o.solve(t, h/2, o.y, o.yhalf)
		}
		if err == nil {
			err = o.solve(t+h/2, h/2, o.yhalf, o.yend)
		}
		if err != nil {
			nfail++
			o.stat.Nrejected++
			if nfail > o.dat.NmaxRetry {
				return nil, fmt.Errorf("%w: %v", ErrDiverged, err)
			}
			if o.verbose {
				io.Pfred(". . . iterations diverging (%2d) at t=%g . . .\n", nfail, t)
			}
			o.h = h / 2
			continue
		}

		// error estimate
		for i := 0; i < o.n; i++ {
			o.scale[i] = o.dat.Atol + o.dat.Rtol*math.Abs(o.yend[i])
			o.b[i] = o.yend[i] - o.yfull[i]
		}
		errNorm := rmsNorm(o.b, o.scale)
		factor := 5.0
		if errNorm > 0 {
			factor = math.Min(5.0, math.Max(0.2, 0.9/math.Sqrt(errNorm)))
		}
		if errNorm > 1 {
			o.stat.Nrejected++
			o.h = h * factor
			continue
		}

		// accept
		o.stat.Naccepted++
		segs = []*Segment{
			linearSegment(t, t+h/2, o.y, o.yhalf),
			linearSegment(t+h/2, tnew, o.yhalf, o.yend),
		}
		copy(o.y, o.yend)
		o.t = tnew
		o.h = h * factor
		return
	}
}

// Stats adds the counters
func (o *BwEuler) Stats(s *Stats) {
	s.Nsteps += o.stat.Nsteps
	s.Naccepted += o.stat.Naccepted
	s.Nrejected += o.stat.Nrejected
}

// solve computes y1 = y(t+h) from y0 by Newton's method
func (o *BwEuler) solve(t, h float64, y0, y1 []float64) (err error) {
	tnew := t + h
	copy(y1, y0)
	if err = o.sys.Factorize(tnew, y1, 1.0/h); err != nil {
		return
	}
	for i := 0; i < o.n; i++ {
		o.scale[i] = o.dat.Atol + o.dat.Rtol*math.Abs(y0[i])
	}
	if o.dat.ShowR {
		io.Pf("\n%13s%4s%23s%23s\n", "t", "it", "largFb", "Lδu")
	}
	var Lδu float64
	for it := 0; it < o.dat.NmaxIt; it++ {
		if err = o.sys.F(tnew, y1, o.f); err != nil {
			return
		}
		for i := 0; i < o.n; i++ {
			o.b[i] = o.f[i] - o.sys.Mass[i]*(y1[i]-y0[i])/h
		}
		if err = o.sys.Solve(o.dy, o.b); err != nil {
			return
		}
		la.VecAdd(y1, 1, y1, 1, o.dy)
		Lδu = rmsNorm(o.dy, o.scale)
		if o.dat.ShowR {
			io.Pf("%13.6e%4d%23.15e%23.15e\n", tnew, it, la.Vector(o.b).Largest(1), Lδu)
		}
		if Lδu < o.dat.Itol {
			return
		}
	}
	return fmt.Errorf("Newton iterations did not converge after %d iterations: Lδu = %g", o.dat.NmaxIt, Lδu)
}
