// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prm

import (
	"errors"
	"strings"
	"testing"

	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

func Test_prm01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("prm01. chained definitions and inputs")

	vals := NewValues()
	vals.SetNum("a", 2)
	vals.SetExpr("b", func(a *sym.Arena) sym.Id { return a.Mul(a.Const(3), a.Param("a")) })
	vals.SetExpr("c", func(a *sym.Arena) sym.Id { return a.Add(a.Param("b"), a.Mul(a.Param("a"), a.Param("d"))) })
	vals.SetInput("d", 1)

	a := sym.NewArena()
	x := a.Var("x")
	e := a.Add(x, a.Param("c"))
	r, err := vals.Resolve1(a, e)
	if err != nil {
		tst.Errorf("Resolve failed:\n%v", err)
		return
	}
	io.Pforan("resolved = %s\n", a.String(r))

	// x + 3a + a d = 0.5 + 6 + 2*10
	env := &sym.Env{Vars: map[string][]float64{"x": {0.5}}, Inputs: map[string]float64{"d": 10}}
	res, err := a.EvaluateScalar(env, r)
	if err != nil {
		tst.Errorf("Evaluate failed:\n%v", err)
		return
	}
	chk.Float64(tst, "x+c", 1e-15, res, 26.5)

	// only the input parameter remains
	_, err = a.EvaluateScalar(&sym.Env{Vars: env.Vars}, r)
	if !errors.Is(err, sym.ErrUnboundParameter) || !strings.Contains(err.Error(), `"d"`) {
		tst.Errorf("input parameter d should remain unbound. err = %v", err)
	}
	if !vals.IsInput("d") || vals.IsInput("a") {
		tst.Errorf("IsInput failed")
	}
}

func Test_prm02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("prm02. cyclic and unbound parameters")

	vals := NewValues()
	vals.SetExpr("p", func(a *sym.Arena) sym.Id { return a.Add(a.Param("q"), a.Const(1)) })
	vals.SetExpr("q", func(a *sym.Arena) sym.Id { return a.Exp(a.Param("r")) })
	vals.SetExpr("r", func(a *sym.Arena) sym.Id { return a.Mul(a.Param("p"), a.Const(2)) })
	vals.SetExpr("s", func(a *sym.Arena) sym.Id { return a.Param("s") })
	vals.SetExpr("u", func(a *sym.Arena) sym.Id { return a.Param("zz") })

	a := sym.NewArena()
	_, err := vals.Resolve1(a, a.Param("p"))
	if !errors.Is(err, ErrCyclic) {
		tst.Errorf("cycle should have been detected. err = %v", err)
		return
	}
	io.Pforan("err = %v\n", err)
	if !strings.Contains(err.Error(), "p -> q -> r -> p") {
		tst.Errorf("error should name the chain; got %v", err)
	}

	_, err = vals.Resolve1(a, a.Param("s"))
	if !errors.Is(err, ErrCyclic) {
		tst.Errorf("self reference should have been detected. err = %v", err)
	}

	_, err = vals.Resolve1(a, a.Add(a.Var("x"), a.Param("u")))
	if !errors.Is(err, ErrUnbound) || !strings.Contains(err.Error(), `"zz"`) {
		tst.Errorf("unbound parameter should have been detected. err = %v", err)
	}

	// all problems at once
	err = vals.Check()
	if err == nil {
		tst.Errorf("Check should fail")
		return
	}
	io.Pforan("%v\n", err)
	for _, name := range []string{"p -> q", "s -> s", "zz"} {
		if !strings.Contains(err.Error(), name) {
			tst.Errorf("Check should report %q", name)
		}
	}
}

func Test_prm03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("prm03. parameters from lists and hashing")

	prms := dbf.Params{
		&dbf.P{N: "k", V: 2},
		&dbf.P{N: "k2", V: 0.5, Extra: "!ref:k"},
		&dbf.P{N: "I", V: 1, Extra: "!input"},
	}
	vals, err := FromPrms(prms)
	if err != nil {
		tst.Errorf("FromPrms failed:\n%v", err)
		return
	}
	a := sym.NewArena()
	r, err := vals.Resolve1(a, a.Param("k2"))
	if err != nil {
		tst.Errorf("Resolve failed:\n%v", err)
		return
	}
	res, err := a.EvaluateScalar(&sym.Env{}, r)
	if err != nil {
		tst.Errorf("Evaluate failed:\n%v", err)
		return
	}
	chk.Float64(tst, "k2", 1e-15, res, 1)
	chk.Float64(tst, "I default", 1e-15, vals.Inputs()["I"], 1)
	chk.Strings(tst, "names", vals.Names(), []string{"k", "k2", "I"})

	// hash
	cpy := vals.Copy()
	if cpy.Hash() != vals.Hash() {
		tst.Errorf("copies must have the same hash")
	}
	cpy.SetNum("k", 3)
	if cpy.Hash() == vals.Hash() {
		tst.Errorf("different values must have different hashes")
	}
	if v, _ := vals.Num("k"); v != 2 {
		tst.Errorf("copy must not modify the original")
	}

	// duplicates
	_, err = FromPrms(append(prms, &dbf.P{N: "k", V: 1}))
	if err == nil {
		tst.Errorf("duplicated parameter should fail")
	}
}
