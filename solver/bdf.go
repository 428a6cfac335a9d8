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
	"github.com/cpmech/gosl/utl"
)

// constants of the bdf method
const (
	bdfMaxOrder  = 5    // max order
	bdfMinFactor = 0.2  // min step-size factor
	bdfMaxFactor = 10.0 // max step-size factor
)

// coefficients of the bdf method
var (
	bdfGamma    [bdfMaxOrder + 2]float64 // γ_k = Σ_{j=1}^{k} 1/j
	bdfErrConst [bdfMaxOrder + 2]float64 // 1/(k+1)
)

// BDF implements the variable-step variable-order backward differentiation formulae in
// backward-difference form
//
//	M (d + ψ) = c F(t_{n+1}, y_{n+1})    with    y_{n+1} = y_pred + d    and    c = h/γ_k
type BDF struct {
	dat     *inp.SolverData // solver data
	verbose bool            // show messages
	sys     *dae.System     // system
	n       int             // number of states
	t       float64         // current time
	hAbs    float64         // current step size
	hmax    float64         // max step size
	order   int             // current order
	nEqual  int             // number of steps taken with the current h and order
	D       [][]float64     // backward differences [bdfMaxOrder+3][n]
	luOk    bool            // factorisation is valid for luC
	luC     float64         // c of factorisation
	stat    Stats           // counters

	// workspace
	ypred, ynew, d, f, b, dy, psi, scale []float64
}

// add method to factory
func init() {
	for k := 1; k <= bdfMaxOrder+1; k++ {
		bdfGamma[k] = bdfGamma[k-1] + 1.0/float64(k)
	}
	for k := range bdfErrConst {
		bdfErrConst[k] = 1.0 / float64(k+1)
	}
	allocators["bdf"] = func(dat *inp.SolverData, verbose bool) Method {
		return &BDF{dat: dat, verbose: verbose}
	}
}

// Init starts the method at (t0, y0)
func (o *BDF) Init(sys *dae.System, t0 float64, y0 []float64, tf float64) (err error) {
	o.sys, o.n, o.t = sys, sys.N, t0
	o.D = utl.Alloc(bdfMaxOrder+3, o.n)
	o.ypred, o.ynew, o.d = make([]float64, o.n), make([]float64, o.n), make([]float64, o.n)
	o.f, o.b, o.dy = make([]float64, o.n), make([]float64, o.n), make([]float64, o.n)
	o.psi, o.scale = make([]float64, o.n), make([]float64, o.n)
	o.hmax = o.dat.Hmax
	if o.hmax <= 0 {
		o.hmax = math.Inf(1)
	}

	// initial step
	if err = sys.F(t0, y0, o.f); err != nil {
		return
	}
	o.hAbs = o.dat.H0
	if o.hAbs <= 0 {
		if o.hAbs, err = initialStep(sys, t0, y0, o.f, 1, o.dat.Atol, o.dat.Rtol); err != nil {
			return
		}
	}
	o.hAbs = math.Min(math.Min(o.hAbs, o.hmax), tf-t0)

	// differences
	copy(o.D[0], y0)
	for i := 0; i < o.n; i++ {
		o.D[1][i] = sys.Mass[i] * o.f[i] * o.hAbs
	}
	o.order = 1
	o.nEqual = 0
	o.luOk = false
	return
}

// Step advances by one accepted step
func (o *BDF) Step(tf float64) (segs []*Segment, err error) {
	t := o.t
	minStep := 10 * (math.Nextafter(t, math.Inf(1)) - t)
	if o.hAbs > o.hmax {
		o.changeD(o.hmax / o.hAbs)
		o.hAbs = o.hmax
	} else if o.hAbs < minStep {
		o.changeD(minStep / o.hAbs)
		o.hAbs = minStep
	}

	// try steps
	var tnew, errNorm float64
	var nIter int
	nfail := 0
	for {
		o.stat.Nsteps++
		if o.hAbs < minStep {
			return nil, fmt.Errorf("%w: h=%g at t=%g", ErrStepSize, o.hAbs, t)
		}
		tnew = t + o.hAbs
		if tnew > tf || tf-tnew < 10*minStep {
			tnew = tf
			o.changeD((tnew - t) / o.hAbs)
			o.luOk = false
		}
		h := tnew - t
		o.hAbs = h

		// predictor
		la.Vector(o.ypred).Fill(0)
		la.Vector(o.psi).Fill(0)
		for j := 0; j <= o.order; j++ {
			for i := 0; i < o.n; i++ {
				o.ypred[i] += o.D[j][i]
				if j > 0 {
					o.psi[i] += o.D[j][i] * bdfGamma[j]
				}
			}
		}
		for i := 0; i < o.n; i++ {
			o.psi[i] /= bdfGamma[o.order]
			o.scale[i] = o.dat.Atol + o.dat.Rtol*math.Abs(o.ypred[i])
		}
		c := h / bdfGamma[o.order]

		// corrector
		converged, fresh := false, false
		for {
			if !o.luOk || o.luC != c {
				if err = o.sys.Factorize(tnew, o.ypred, 1.0/c); err != nil {
					break
				}
				o.luOk, o.luC, fresh = true, c, true
			}
			converged, nIter = o.newton(tnew, c)
			if converged || fresh {
				break
			}
			o.luOk = false
		}
		if !converged {
			nfail++
			o.stat.Nrejected++
			if nfail > o.dat.NmaxRetry {
				if err == nil {
					err = fmt.Errorf("%d consecutive failures at t=%g with h=%g", nfail, t, o.hAbs)
				}
				return nil, fmt.Errorf("%w: %v", ErrDiverged, err)
			}
			if o.verbose {
				io.Pfred(". . . iterations diverging (%2d) at t=%g . . .\n", nfail, t)
			}
			err = nil
			o.hAbs *= 0.5
			o.changeD(0.5)
			o.luOk = false
			continue
		}

		// error control
		for i := 0; i < o.n; i++ {
			o.scale[i] = o.dat.Atol + o.dat.Rtol*math.Abs(o.ynew[i])
			o.b[i] = bdfErrConst[o.order] * o.d[i]
		}
		errNorm = rmsNorm(o.b, o.scale)
		if errNorm > 1 {
			safety := o.safety(nIter)
			factor := math.Max(bdfMinFactor, safety*math.Pow(errNorm, -1.0/float64(o.order+1)))
			o.stat.Nrejected++
			o.hAbs *= factor
			o.changeD(factor)
			continue
		}
		break
	}

	// accept
	o.stat.Naccepted++
	o.nEqual++
	h := tnew - t
	o.t = tnew
	k := o.order
	for i := 0; i < o.n; i++ {
		o.D[k+2][i] = o.d[i] - o.D[k+1][i]
		o.D[k+1][i] = o.d[i]
	}
	for j := k; j >= 0; j-- {
		for i := 0; i < o.n; i++ {
			o.D[j][i] += o.D[j+1][i]
		}
	}
	segs = []*Segment{newSegment(t, tnew, tnew, h, o.D[:k+1])}

	// order and step size
	if o.nEqual < k+1 {
		return
	}
	errM, errP := math.Inf(1), math.Inf(1)
	if k > 1 {
		for i := 0; i < o.n; i++ {
			o.b[i] = bdfErrConst[k-1] * o.D[k][i]
		}
		errM = rmsNorm(o.b, o.scale)
	}
	if k < o.dat.MaxOrd && k < bdfMaxOrder {
		for i := 0; i < o.n; i++ {
			o.b[i] = bdfErrConst[k+1] * o.D[k+2][i]
		}
		errP = rmsNorm(o.b, o.scale)
	}
	norms := []float64{errM, errNorm, errP}
	best, delta := 0.0, 0
	for i, e := range norms {
		fac := math.Pow(e, -1.0/float64(k+i))
		if fac > best {
			best, delta = fac, i-1
		}
	}
	o.order += delta
	factor := math.Min(bdfMaxFactor, o.safety(nIter)*best)
	o.hAbs *= factor
	o.changeD(factor)
	o.luOk = false
	return
}

// Stats adds the counters
func (o *BDF) Stats(s *Stats) {
	s.Nsteps += o.stat.Nsteps
	s.Naccepted += o.stat.Naccepted
	s.Nrejected += o.stat.Nrejected
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// newton solves the corrector equation; the result is in ynew and d
func (o *BDF) newton(tnew, c float64) (converged bool, nIter int) {
	copy(o.ynew, o.ypred)
	la.Vector(o.d).Fill(0)
	var dyNorm, dyNormOld, rate float64
	if o.dat.ShowR {
		io.Pf("\n%13s%4s%23s%23s\n", "t", "it", "largFb", "Lδu")
	}
	for it := 0; it < o.dat.NmaxIt; it++ {
		nIter = it + 1
		if err := o.sys.F(tnew, o.ynew, o.f); err != nil || !finite(o.f) {
			return
		}
		for i := 0; i < o.n; i++ {
			o.b[i] = o.f[i] - o.sys.Mass[i]*(o.psi[i]+o.d[i])/c
		}
		if err := o.sys.Solve(o.dy, o.b); err != nil {
			return
		}
		dyNorm = rmsNorm(o.dy, o.scale)
		if o.dat.ShowR {
			io.Pf("%13.6e%4d%23.15e%23.15e\n", tnew, it, la.Vector(o.b).Largest(1), dyNorm)
		}
		if it > 0 {
			rate = dyNorm / dyNormOld
			if rate >= 1 || math.Pow(rate, float64(o.dat.NmaxIt-it))/(1-rate)*dyNorm > o.dat.Itol {
				return
			}
		}
		for i := 0; i < o.n; i++ {
			o.ynew[i] += o.dy[i]
			o.d[i] += o.dy[i]
		}
		if dyNorm == 0 || (it > 0 && rate/(1-rate)*dyNorm < o.dat.Itol) {
			return true, nIter
		}
		dyNormOld = dyNorm
	}
	return
}

// safety returns the safety factor for step-size changes
func (o *BDF) safety(nIter int) float64 {
	return 0.9 * float64(2*o.dat.NmaxIt+1) / float64(2*o.dat.NmaxIt+nIter)
}

// changeD rescales the differences for a step size multiplied by factor
func (o *BDF) changeD(factor float64) {
	k := o.order
	R := bdfR(k, factor)
	U := bdfR(k, 1)
	RU := utl.Alloc(k+1, k+1)
	for i := 0; i <= k; i++ {
		for j := 0; j <= k; j++ {
			for m := 0; m <= k; m++ {
				RU[i][j] += R[i][m] * U[m][j]
			}
		}
	}
	old := utl.Alloc(k+1, o.n)
	for i := 0; i <= k; i++ {
		copy(old[i], o.D[i])
	}
	for i := 0; i <= k; i++ {
		la.Vector(o.D[i]).Fill(0)
		for m := 0; m <= k; m++ {
			for p := 0; p < o.n; p++ {
				o.D[i][p] += RU[m][i] * old[m][p]
			}
		}
	}
	o.nEqual = 0
}

// bdfR returns the matrix changing differences at spacing h to differences at spacing factor×h
func bdfR(order int, factor float64) (R [][]float64) {
	R = utl.Alloc(order+1, order+1)
	for j := 0; j <= order; j++ {
		R[0][j] = 1
	}
	for i := 1; i <= order; i++ {
		for j := 1; j <= order; j++ {
			R[i][j] = R[i-1][j] * (float64(i-1) - factor*float64(j)) / float64(i)
		}
	}
	return
}

// initialStep returns an initial step size from the differential entries
func initialStep(sys *dae.System, t0 float64, y0, f0 []float64, order int, atol, rtol float64) (h float64, err error) {
	n := sys.Nrhs
	if n == 0 {
		return 1e-3, nil
	}
	scale := make([]float64, n)
	for i := 0; i < n; i++ {
		scale[i] = atol + math.Abs(y0[i])*rtol
	}
	d0 := rmsNorm(y0[:n], scale)
	d1 := rmsNorm(f0[:n], scale)
	h0 := 0.01 * d0 / d1
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	}
	y1 := append([]float64{}, y0...)
	for i := 0; i < n; i++ {
		y1[i] += h0 * f0[i]
	}
	f1 := make([]float64, sys.N)
	if err = sys.F(t0+h0, y1, f1); err != nil {
		return
	}
	for i := 0; i < n; i++ {
		f1[i] -= f0[i]
	}
	d2 := rmsNorm(f1[:n], scale) / h0
	h1 := math.Max(1e-6, h0*1e-3)
	if d1 > 1e-15 || d2 > 1e-15 {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/float64(order+1))
	}
	return math.Min(100*h0, h1), nil
}
