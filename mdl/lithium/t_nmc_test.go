// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lithium

import (
	"math"
	"testing"

	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/num"
	"github.com/cpmech/gosl/utl"
)

func Test_nmc01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("nmc01. exchange-current density")

	a := sym.NewArena()
	ce, cs, T := a.Var("ce"), a.Var("cs"), a.Var("T")
	j0 := NmcExchangeCurrentDensity(a, ce, cs, T)
	dj0 := a.Diff(j0, cs)

	vals := prm.NewValues()
	vals.SetNum("Maximum concentration in positive electrode [mol.m-3]", 51765)
	vals.SetNum("Typical electrolyte concentration [mol.m-3]", 1000)
	ids, err := vals.Resolve(a, j0, dj0)
	if err != nil {
		tst.Errorf("Resolve failed:\n%v", err)
		return
	}

	eval := func(id sym.Id, c, temp float64) float64 {
		env := &sym.Env{Vars: map[string][]float64{"ce": {1000}, "cs": {c}, "T": {temp}}}
		res, err := a.EvaluateScalar(env, id)
		if err != nil {
			tst.Errorf("Evaluate failed:\n%v", err)
		}
		return res
	}

	// half-lithiated at reference conditions: j0 = iref/2
	chk.Float64(tst, "j0(½cmax, Tref)", 1e-13, eval(ids[0], 51765/2.0, 298.15), 5.028/2.0)

	// temperature dependence
	arr := math.Exp(2.401e4 / R * (1.0/298.15 - 1.0/308.15))
	chk.Float64(tst, "j0(½cmax, Tref+10)", 1e-12, eval(ids[0], 51765/2.0, 308.15), 5.028/2.0*arr)

	// derivative
	for _, c := range utl.LinSpace(0.1*51765, 0.9*51765, 5) {
		dnum := num.DerivCen5(c, 1e-3, func(x float64) (res float64) {
			return eval(ids[0], x, 298.15)
		})
		chk.AnaNum(tst, io.Sf("dj0/dcs(%.1f)", c), 1e-8, eval(ids[1], c, 298.15), dnum, chk.Verbose)
	}
}

func Test_ocp01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("ocp01. open-circuit potentials")

	a := sym.NewArena()
	x := a.Var("x")
	up, un := NmcOcp(a, x), GraphiteOcp(a, x)
	for _, X := range []float64{0.1, 0.5, 0.9} {
		env := &sym.Env{Vars: map[string][]float64{"x": {X}}}
		vp, _ := a.EvaluateScalar(env, up)
		vn, _ := a.EvaluateScalar(env, un)
		chk.Float64(tst, io.Sf("Up(%g)", X), 1e-14, vp, 4.2-0.9*X+0.1*math.Tanh(20*(0.3-X))-0.5*math.Exp(60*(X-1)))
		chk.Float64(tst, io.Sf("Un(%g)", X), 1e-14, vn, 0.1+0.7*math.Exp(-40*X)-0.05*math.Tanh(10*(X-0.5)))
		if vp-vn < 2.5 || vp-vn > 4.5 {
			tst.Errorf("open-circuit voltage %g is out of range", vp-vn)
		}
	}
}
