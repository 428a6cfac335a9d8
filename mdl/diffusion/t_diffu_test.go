// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diffusion

import (
	"testing"

	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

func Test_m1(tst *testing.T) {

	//verbose()
	chk.PrintTitle("m1")

	prms := []*dbf.P{
		&dbf.P{N: "a0", V: 1.0},
		&dbf.P{N: "a1", V: 2.0},
		&dbf.P{N: "a2", V: 3.0},
		&dbf.P{N: "a3", V: 4.0},
		&dbf.P{N: "rho", V: 3.3},
		&dbf.P{N: "uleft", V: 1.0},
	}

	a := sym.NewArena()
	model, err := mdl.New("diffusion", a, prms)
	if err != nil {
		tst.Errorf("New failed: %v\n", err)
		return
	}
	if err = model.Check(); err != nil {
		tst.Errorf("Check failed: %v\n", err)
		return
	}
	chk.IntAssert(len(model.Rhs), 1)
	chk.IntAssert(len(model.Outputs), 4)

	// boundary conditions
	u := model.Rhs[0].Var
	bcs := model.Bcs[u]
	chk.Strings(tst, "bcs", []string{bcs[0].Kind, bcs[1].Kind}, []string{mdl.Dirichlet, mdl.Neumann})

	// coefficient
	m1 := &M1{a}
	ids, err := model.Values.Resolve(a, m1.Kval(u), a.Diff(m1.Kval(u), u))
	if err != nil {
		tst.Errorf("Resolve failed: %v\n", err)
		return
	}
	io.Pforan("kval = %s\n", a.String(ids[0]))
	io.Pforan("dkdu = %s\n", a.String(ids[1]))
	U := []float64{0, 0.5, 1}
	env := &sym.Env{Vars: map[string][]float64{"u": U}}
	kval, err := a.Evaluate(env, ids[0])
	if err != nil {
		tst.Errorf("Evaluate failed: %v\n", err)
		return
	}
	dkdu, err := a.Evaluate(env, ids[1])
	if err != nil {
		tst.Errorf("Evaluate failed: %v\n", err)
		return
	}
	for i, v := range U {
		chk.Float64(tst, io.Sf("kval(%g)", v), 1e-14, kval[i], 1.0+2.0*v+3.0*v*v+4.0*v*v*v)
		chk.Float64(tst, io.Sf("dkdu(%g)", v), 1e-14, dkdu[i], 2.0+6.0*v+12.0*v*v)
	}

	// parameters from the list override the defaults
	rho, _ := model.Values.Num("rho")
	chk.Float64(tst, "rho", 1e-15, rho, 3.3)
}

func Test_m2(tst *testing.T) {

	//verbose()
	chk.PrintTitle("m2. invalid options")

	_, err := mdl.New("diffusion", sym.NewArena(), []*dbf.P{&dbf.P{N: "L", V: -1}})
	if err == nil {
		tst.Errorf("negative length should fail")
	}
	_, err = mdl.New("nonexistent", sym.NewArena(), nil)
	if err == nil {
		tst.Errorf("unknown model should fail")
	}
	io.Pforan("err = %v\n", err)
}
