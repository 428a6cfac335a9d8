// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package decay implements a scalar linear decay model: dy/dt = -k y
package decay

import (
	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/fun/dbf"
)

// add model to factory
func init() {
	mdl.Register("decay", New)
}

// New returns the model
//
//	dy/dt = -k y    y(0) = y0
//
// If a parameter named "threshold" is given, the event "y - threshold" stops the integration.
func New(a *sym.Arena, prms dbf.Params) (model *mdl.Model, err error) {
	model = mdl.NewModel("decay", a)
	vals, err := prm.FromPrms(GetPrms())
	if err != nil {
		return
	}
	model.Values = vals
	y := a.Var("y")
	model.SetRhs(y, a.Neg(a.Mul(a.Param("k"), y)))
	model.SetIc(y, a.Param("y0"))
	if p := prms.Find("threshold"); p != nil {
		model.AddEvent("Threshold", a.Sub(y, a.Param("threshold")), mdl.Termination)
	}
	model.AddOutput("y", y)
	model.AddOutput("Exact y", a.Mul(a.Param("y0"), a.Exp(a.Neg(a.Mul(a.Param("k"), a.Time())))))
	return
}

// GetPrms returns the default parameters
func GetPrms() dbf.Params {
	return []*dbf.P{
		&dbf.P{N: "k", V: 1},
		&dbf.P{N: "y0", V: 1},
	}
}
