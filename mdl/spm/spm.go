// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package spm implements a single-particle model of a lithium-ion cell
package spm

import (
	"math"

	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/mdl/lithium"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/fun/dbf"
)

// sub-domains
const (
	Negative = "negative particle"
	Positive = "positive particle"
)

// add model to factory
func init() {
	mdl.Register("spm", New)
}

// New returns the model. Each electrode is represented by one spherical particle:
//
//	∂c/∂t = ∇・(D ∇c)    0 < r < Rp
//	∂c/∂r = 0 at r = 0    -D ∂c/∂r = j at r = Rp
//
// The terminal voltage V is an algebraic variable:
//
//	0 = V - (Up(xp) - Un(xn) - 2RT/F (asinh(ip/(2 j0p)) + asinh(in/(2 j0n))))
//
// The applied current is I = C-rate × Q where "C-rate" is an input parameter. The integration
// stops when V reaches the minimum voltage or when any negative particle concentration vanishes.
func New(a *sym.Arena, prms dbf.Params) (model *mdl.Model, err error) {
	model = mdl.NewModel("spm", a)
	model.Values, err = prm.FromPrms(GetPrms())
	if err != nil {
		return
	}
	model.Values.SetInput("C-rate", 1)
	model.Geometry = []*msh.SubDomain{
		{Name: Negative, Min: 0, Max: 1e-5, Npts: 10, Coord: msh.Spherical},
		{Name: Positive, Min: 0, Max: 1e-5, Npts: 10, Coord: msh.Spherical},
	}
	for i, key := range []string{"Negative particle radius [m]", "Positive particle radius [m]"} {
		if q := prms.Find(key); q != nil {
			model.Geometry[i].Max = q.V
		}
	}
	p := a.Param

	// current
	I := a.Mul(p("C-rate"), p("Nominal cell capacity [A.h]"))
	area := func(e string) sym.Id {
		// active surface area of one electrode [m²]
		return a.Product(p("Electrode area [m2]"), p(e+" electrode thickness [m]"),
			a.Div(a.Mul(a.Const(3), p(e+" electrode active material volume fraction")), p(e+" particle radius [m]")))
	}
	in := a.Div(I, area("Negative"))
	ip := a.Div(I, area("Positive"))

	// particles
	cn := a.Var("Negative particle concentration [mol.m-3]", Negative)
	cp := a.Var("Positive particle concentration [mol.m-3]", Positive)
	Dn, Dp := p("Negative electrode diffusivity [m2.s-1]"), p("Positive electrode diffusivity [m2.s-1]")
	model.SetRhs(cn, a.Divergence(a.Mul(Dn, a.Gradient(cn))))
	model.SetRhs(cp, a.Divergence(a.Mul(Dp, a.Gradient(cp))))
	model.SetNeumann(cn, sym.Left, a.Const(0))
	model.SetNeumann(cp, sym.Left, a.Const(0))
	model.SetNeumann(cn, sym.Right, a.Neg(a.Div(a.Div(in, a.Const(lithium.F)), Dn)))
	model.SetNeumann(cp, sym.Right, a.Div(a.Div(ip, a.Const(lithium.F)), Dp))
	cnmax := p("Maximum concentration in negative electrode [mol.m-3]")
	cpmax := p("Maximum concentration in positive electrode [mol.m-3]")
	model.SetIc(cn, a.Broadcast(a.Mul(p("Initial negative stoichiometry"), cnmax), Negative))
	model.SetIc(cp, a.Broadcast(a.Mul(p("Initial positive stoichiometry"), cpmax), Positive))

	// voltage
	T := p("Temperature [K]")
	ce := p("Typical electrolyte concentration [mol.m-3]")
	csn, csp := a.BoundaryValue(cn, sym.Right), a.BoundaryValue(cp, sym.Right)
	xn, xp := a.Div(csn, cnmax), a.Div(csp, cpmax)
	j0n := lithium.GraphiteExchangeCurrentDensity(a, ce, csn, T)
	j0p := lithium.NmcExchangeCurrentDensity(a, ce, csp, T)
	RTF := a.Div(a.Mul(a.Const(2*lithium.R), T), a.Const(lithium.F))
	etan := a.Mul(RTF, a.Arcsinh(a.Div(in, a.Mul(a.Const(2), j0n))))
	etap := a.Mul(RTF, a.Arcsinh(a.Div(ip, a.Mul(a.Const(2), j0p))))
	ocv := a.Sub(lithium.NmcOcp(a, xp), lithium.GraphiteOcp(a, xn))
	V := a.Var("Terminal voltage [V]")
	model.SetAlgebraic(V, a.Sub(V, a.Sub(ocv, a.Add(etan, etap))))
	model.SetIc(V, a.Const(4))

	// events
	model.AddEvent("Minimum voltage", a.Sub(V, p("Lower voltage cut-off [V]")), mdl.Termination)
	model.AddEvent("Zero negative particle concentration", a.Div(cn, cnmax), mdl.Termination)
	model.AddEvent("Maximum positive stoichiometry", a.Sub(a.Const(1), xp), mdl.Termination)

	// outputs
	model.AddOutput("Time [h]", a.Div(a.Time(), a.Const(3600)))
	model.AddOutput("Current [A]", I)
	model.AddOutput("Open-circuit voltage [V]", ocv)
	model.AddOutput("Negative particle surface stoichiometry", xn)
	model.AddOutput("Positive particle surface stoichiometry", xp)
	model.AddOutput("Negative reaction overpotential [V]", etan)
	model.AddOutput("Positive reaction overpotential [V]", etap)
	model.AddOutput("Negative exchange-current density [A.m-2]", j0n)
	model.AddOutput("Positive exchange-current density [A.m-2]", j0p)
	Rn := p("Negative particle radius [m]")
	model.AddOutput("Negative particle average concentration [mol.m-3]", a.Div(a.Integral(cn), a.Mul(a.Const(4.0*math.Pi/3.0), a.Pow(Rn, a.Const(3)))))
	return
}

// GetPrms returns the default parameters
func GetPrms() dbf.Params {
	return []*dbf.P{
		&dbf.P{N: "Nominal cell capacity [A.h]", V: 3},
		&dbf.P{N: "Electrode area [m2]", V: 0.1},
		&dbf.P{N: "Negative electrode thickness [m]", V: 1e-4},
		&dbf.P{N: "Positive electrode thickness [m]", V: 1e-4},
		&dbf.P{N: "Negative electrode active material volume fraction", V: 0.6},
		&dbf.P{N: "Positive electrode active material volume fraction", V: 0.5},
		&dbf.P{N: "Negative particle radius [m]", V: 1e-5},
		&dbf.P{N: "Positive particle radius [m]", V: 1e-5},
		&dbf.P{N: "Negative electrode diffusivity [m2.s-1]", V: 1e-13},
		&dbf.P{N: "Positive electrode diffusivity [m2.s-1]", V: 1e-13},
		&dbf.P{N: "Maximum concentration in negative electrode [mol.m-3]", V: 30555},
		&dbf.P{N: "Maximum concentration in positive electrode [mol.m-3]", V: 51765},
		&dbf.P{N: "Typical electrolyte concentration [mol.m-3]", V: 1000},
		&dbf.P{N: "Negative electrode reaction rate [m.s-1]", V: 3e-11},
		&dbf.P{N: "Initial negative stoichiometry", V: 0.8},
		&dbf.P{N: "Initial positive stoichiometry", V: 0.5},
		&dbf.P{N: "Temperature [K]", V: 298.15},
		&dbf.P{N: "Lower voltage cut-off [V]", V: 3.0},
	}
}
