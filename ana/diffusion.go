// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ana implements analytical solutions
package ana

import (
	"math"

	"github.com/cpmech/gosl/fun/dbf"
)

// RodCosine computes the solution to diffusion along an insulated rod whose initial profile is
// one cosine mode
//
//	∂u/∂t = D ∂²u/∂x²    0 ≤ x ≤ L    ∂u/∂x = 0 at both ends
//	u(x, 0) = A cos(n π x / L)
//	u(x, t) = A cos(n π x / L) exp(-D (n π / L)² t)
type RodCosine struct {
	D float64 // diffusivity
	L float64 // length
	A float64 // amplitude
	N int     // mode

	// derived
	λ float64 // decay rate
}

// Init initialises this structure
func (o *RodCosine) Init(prms dbf.Params) {

	// default values
	o.D = 1.0
	o.L = 1.0
	o.A = 1.0
	o.N = 1

	// parameters
	for _, p := range prms {
		switch p.N {
		case "D":
			o.D = p.V
		case "L":
			o.L = p.V
		case "A":
			o.A = p.V
		case "n":
			o.N = int(p.V)
		}
	}

	// derived
	k := float64(o.N) * math.Pi / o.L
	o.λ = o.D * k * k
}

// Calc computes u(x, t)
func (o RodCosine) Calc(x, t float64) float64 {
	return o.A * math.Cos(float64(o.N)*math.Pi*x/o.L) * math.Exp(-o.λ*t)
}

// Total computes the integral of u along the rod; zero for n ≥ 1
func (o RodCosine) Total(t float64) float64 {
	if o.N == 0 {
		return o.A * o.L
	}
	return 0
}

// RodStep computes the solution to diffusion along a rod initially at zero whose left end is
// suddenly held at U and whose right end is insulated
//
//	u(x, t) = U [1 - Σ_m 4/((2m+1)π) sin(k_m x) exp(-D k_m² t)]    k_m = (2m+1)π / (2L)
type RodStep struct {
	D      float64 // diffusivity
	L      float64 // length
	U      float64 // value at the left end
	Nterms int     // number of terms of the series
}

// Init initialises this structure
func (o *RodStep) Init(prms dbf.Params) {

	// default values
	o.D = 1.0
	o.L = 1.0
	o.U = 1.0
	o.Nterms = 200

	// parameters
	for _, p := range prms {
		switch p.N {
		case "D":
			o.D = p.V
		case "L":
			o.L = p.V
		case "U":
			o.U = p.V
		case "nterms":
			o.Nterms = int(p.V)
		}
	}
}

// Calc computes u(x, t) for t > 0
func (o RodStep) Calc(x, t float64) float64 {
	sum := 0.0
	for m := 0; m < o.Nterms; m++ {
		c := float64(2*m+1) * math.Pi
		k := c / (2.0 * o.L)
		e := math.Exp(-o.D * k * k * t)
		if e < 1e-300 {
			break
		}
		sum += 4.0 / c * math.Sin(k*x) * e
	}
	return o.U * (1.0 - sum)
}

// Total computes the integral of u along the rod
func (o RodStep) Total(t float64) float64 {
	sum := 0.0
	for m := 0; m < o.Nterms; m++ {
		c := float64(2*m+1) * math.Pi
		k := c / (2.0 * o.L)
		sum += 4.0 / c / k * math.Exp(-o.D*k*k*t)
	}
	return o.U * (o.L - sum)
}
