// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"math"

	"github.com/cpmech/gosl/fun/dbf"
)

// Decay computes the solution to dy/dt = -k y with y(0) = y0
type Decay struct {
	K  float64 // rate
	Y0 float64 // initial value
}

// Init initialises this structure
func (o *Decay) Init(prms dbf.Params) {
	o.K, o.Y0 = 1, 1
	for _, p := range prms {
		switch p.N {
		case "k":
			o.K = p.V
		case "y0":
			o.Y0 = p.V
		}
	}
}

// Calc computes y(t)
func (o Decay) Calc(t float64) float64 {
	return o.Y0 * math.Exp(-o.K*t)
}

// Crossing returns the time at which y reaches the value threshold; +Inf if never
func (o Decay) Crossing(threshold float64) float64 {
	r := threshold / o.Y0
	if r <= 0 || r >= 1 || o.K <= 0 {
		return math.Inf(1)
	}
	return math.Log(1/r) / o.K
}
