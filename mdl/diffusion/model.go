// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package diffusion implements a one-dimensional diffusion model with nonlinear coefficient
package diffusion

import (
	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
)

// Domain is the name of the sub-domain
const Domain = "rod"

// add model to factory
func init() {
	mdl.Register("diffusion", New)
}

// New returns the model
//
//	ρ ∂u/∂t = ∇・(kval(u) ∇u) + s    on Domain
//
// The ends are insulated (zero gradient) unless parameters "uleft" or "uright" are given, in
// which case the respective end has a fixed value.
func New(a *sym.Arena, prms dbf.Params) (model *mdl.Model, err error) {
	model = mdl.NewModel("diffusion", a)
	model.Values, err = prm.FromPrms(GetPrms())
	if err != nil {
		return
	}
	if p := prms.Find("L"); p != nil && p.V <= 0 {
		return nil, chk.Err("length of rod must be positive; got %g", p.V)
	}
	model.Geometry = []*msh.SubDomain{{Name: Domain, Min: 0, Max: 1, Npts: 20}}
	if p := prms.Find("L"); p != nil {
		model.Geometry[0].Max = p.V
	}

	// equation
	m1 := &M1{a}
	u := a.Var("u", Domain)
	flux := a.Mul(a.NodeToEdge(m1.Kval(u)), a.Gradient(u))
	rhs := a.Div(a.Add(a.Divergence(flux), a.Broadcast(a.Param("s"), Domain)), a.Param("rho"))
	model.SetRhs(u, rhs)
	model.SetIc(u, a.Broadcast(a.Param("u0"), Domain))

	// boundary conditions
	for side, key := range []string{"uleft", "uright"} {
		if p := prms.Find(key); p != nil {
			model.SetDirichlet(u, sym.Side(side), a.Param(key))
			continue
		}
		model.SetNeumann(u, sym.Side(side), a.Const(0))
	}

	// outputs
	model.AddOutput("Total amount", a.Integral(a.Mul(a.Param("rho"), u)))
	model.AddOutput("Left value", a.BoundaryValue(u, sym.Left))
	model.AddOutput("Right value", a.BoundaryValue(u, sym.Right))
	model.AddOutput("Flux", flux)
	return
}

// GetPrms returns the default parameters
func GetPrms() dbf.Params {
	return []*dbf.P{
		&dbf.P{N: "a0", V: 1},
		&dbf.P{N: "a1", V: 0},
		&dbf.P{N: "a2", V: 0},
		&dbf.P{N: "a3", V: 0},
		&dbf.P{N: "rho", V: 1},
		&dbf.P{N: "s", V: 0},
		&dbf.P{N: "u0", V: 0},
	}
}
