// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package lithium implements correlation functions for lithium-ion cells
package lithium

import "github.com/cpmech/godae/sym"

// constants
const (
	F = 96485.33212 // Faraday constant [C/mol]
	R = 8.314462618 // gas constant [J/(mol K)]
)

// NmcExchangeCurrentDensity returns the exchange-current density [A/m²] of Butler-Volmer
// reactions between NMC and LiPF6 in EC:DMC
//
//	j0 = iref exp(Er/R (1/Tref - 1/T)) (ce/ceref)^(1-α) (cs/cmax)^α (1 - cs/cmax)^(1-α)
//
//	ce -- electrolyte concentration [mol/m³]
//	cs -- particle surface concentration [mol/m³]
//	T  -- temperature [K]
//
// The parameters "Maximum concentration in positive electrode [mol.m-3]" and
// "Typical electrolyte concentration [mol.m-3]" are left to be resolved.
//
// Reference: O'Regan K, Brosa Planella F, Widanage WD, Kendrick E (2021) Thermal-electrochemical
// parametrisation of a lithium-ion battery: mapping Li concentration and temperature dependencies.
func NmcExchangeCurrentDensity(a *sym.Arena, ce, cs, T sym.Id) sym.Id {
	iref := 5.028
	α := 0.43
	Er := 2.401e4
	Tref := 298.15
	cmax := a.Param("Maximum concentration in positive electrode [mol.m-3]")
	ceref := a.Param("Typical electrolyte concentration [mol.m-3]")
	arrhenius := a.Exp(a.Mul(a.Const(Er/R), a.Sub(a.Const(1/Tref), a.Div(a.Const(1), T))))
	x := a.Div(cs, cmax)
	return a.Product(
		a.Const(iref),
		arrhenius,
		a.Pow(a.Div(ce, ceref), a.Const(1-α)),
		a.Pow(x, a.Const(α)),
		a.Pow(a.Sub(a.Const(1), x), a.Const(1-α)),
	)
}

// GraphiteExchangeCurrentDensity returns a symmetric exchange-current density [A/m²]
//
//	j0 = k F ce^½ cs^½ (cmax - cs)^½
func GraphiteExchangeCurrentDensity(a *sym.Arena, ce, cs, T sym.Id) sym.Id {
	cmax := a.Param("Maximum concentration in negative electrode [mol.m-3]")
	k := a.Param("Negative electrode reaction rate [m.s-1]")
	half := a.Const(0.5)
	return a.Product(k, a.Const(F), a.Pow(ce, half), a.Pow(cs, half), a.Pow(a.Sub(cmax, cs), half))
}

// NmcOcp returns an open-circuit potential [V] of NMC as a function of stoichiometry
//
//	U = 4.2 - 0.9 x + 0.1 tanh(20 (0.3 - x)) - 0.5 exp(60 (x - 1))
func NmcOcp(a *sym.Arena, x sym.Id) sym.Id {
	return a.Sum(
		a.Const(4.2),
		a.Mul(a.Const(-0.9), x),
		a.Mul(a.Const(0.1), a.Tanh(a.Mul(a.Const(20), a.Sub(a.Const(0.3), x)))),
		a.Mul(a.Const(-0.5), a.Exp(a.Mul(a.Const(60), a.Sub(x, a.Const(1))))),
	)
}

// GraphiteOcp returns an open-circuit potential [V] of graphite as a function of stoichiometry
//
//	U = 0.1 + 0.7 exp(-40 x) - 0.05 tanh(10 (x - 0.5))
func GraphiteOcp(a *sym.Arena, x sym.Id) sym.Id {
	return a.Sum(
		a.Const(0.1),
		a.Mul(a.Const(0.7), a.Exp(a.Mul(a.Const(-40), x))),
		a.Mul(a.Const(-0.05), a.Tanh(a.Mul(a.Const(10), a.Sub(x, a.Const(0.5))))),
	)
}
