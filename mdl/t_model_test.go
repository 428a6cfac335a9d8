// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdl

import (
	"strings"
	"testing"

	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

func Test_model01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("model01. definition and validation")

	a := sym.NewArena()
	m := NewModel("heat", a)
	c := a.Var("c", "rod")
	v := a.Var("v")
	m.SetRhs(c, a.Divergence(a.Gradient(c)))
	m.SetAlgebraic(v, a.Sub(v, a.Integral(c)))
	m.SetIc(c, a.Broadcast(a.Const(1), "rod"))
	m.SetNeumann(c, sym.Left, a.Const(0))
	m.SetRobin(c, sym.Right, a.Const(1), a.Const(2), a.Const(3))
	m.AddEvent("small", a.Sub(v, a.Const(0.1)), Termination)
	m.AddOutput("twice", a.Scale(2, v))
	if err := m.Check(); err != nil {
		tst.Errorf("Check failed:\n%v", err)
		return
	}
	chk.IntAssert(len(m.Variables()), 2)
	if m.Variables()[0] != c || m.Variables()[1] != v {
		tst.Errorf("variables must be given in declaration order")
	}
	out, err := m.Output("twice")
	if err != nil || out != a.Scale(2, v) {
		tst.Errorf("Output failed")
	}
	if out, _ = m.Output("v"); out != v {
		tst.Errorf("variables must be available as outputs")
	}
	if _, err = m.Output("none"); err == nil {
		tst.Errorf("unknown output should fail")
	}
	bcs := m.Bcs[c]
	if bcs[0].Alpha != sym.Nil || bcs[1].Beta != a.Const(2) {
		tst.Errorf("boundary conditions are incorrect")
	}

	// hash
	b := sym.NewArena()
	m2 := NewModel("heat", b)
	c2, v2 := b.Var("c", "rod"), b.Var("v")
	m2.SetRhs(c2, b.Divergence(b.Gradient(c2)))
	m2.SetAlgebraic(v2, b.Sub(v2, b.Integral(c2)))
	m2.SetIc(c2, b.Broadcast(b.Const(1), "rod"))
	m2.SetNeumann(c2, sym.Left, b.Const(0))
	m2.SetRobin(c2, sym.Right, b.Const(1), b.Const(2), b.Const(3))
	m2.AddEvent("small", b.Sub(v2, b.Const(0.1)), Termination)
	if m.Hash() != m2.Hash() {
		tst.Errorf("identical definitions must have the same hash")
	}
	m2.SetIc(v2, b.Const(0))
	if m.Hash() == m2.Hash() {
		tst.Errorf("different definitions must have different hashes")
	}
}

func Test_model02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("model02. all problems are reported")

	a := sym.NewArena()
	m := NewModel("bad", a)
	c := a.Var("c", "rod")
	d := a.Var("d", "wire")
	x := a.Var("x")
	m.SetRhs(c, a.Divergence(a.Gradient(c)))
	m.SetRhs(c, a.Const(0))            // twice
	m.SetRhs(a.Param("p"), a.Const(0)) // not a variable
	m.SetAlgebraic(x, d)               // wrong domain
	m.SetNeumann(c, sym.Left, a.Const(0))
	m.SetNeumann(c, sym.Left, a.Const(1))        // twice
	m.SetBc(c, sym.Right, &Bc{Kind: "periodic"}) // invalid kind
	m.SetDirichlet(x, sym.Left, a.Const(0))      // no domain
	m.AddEvent("e", a.Const(1), "stop")          // invalid reason
	m.Values.SetExpr("p", func(a *sym.Arena) sym.Id { return a.Param("p") })

	err := m.Check()
	if err == nil {
		tst.Errorf("Check should fail")
		return
	}
	io.Pforan("%v\n", err)
	for _, msg := range []string{
		"more than one equation",
		"not a variable",
		"has no initial condition",
		"is given an expression",
		"defined more than once",
		"invalid kind",
		"has no spatial domain",
		"invalid reason",
		"cyclic",
	} {
		if !strings.Contains(err.Error(), msg) {
			tst.Errorf("Check should report %q", msg)
		}
	}
}

func Test_factory01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("factory01. registry")

	Register("test-constant", func(a *sym.Arena, prms dbf.Params) (*Model, error) {
		m := NewModel("test-constant", a)
		y := a.Var("y")
		m.SetRhs(y, a.Param("r"))
		m.SetIc(y, a.Const(0))
		m.Values.SetNum("r", 1)
		return m, nil
	})
	m, err := New("test-constant", sym.NewArena(), []*dbf.P{&dbf.P{N: "r", V: 2}})
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	r, _ := m.Values.Num("r")
	chk.Float64(tst, "r", 1e-15, r, 2)
	found := false
	for _, name := range Available() {
		found = found || name == "test-constant"
	}
	if !found {
		tst.Errorf("model should be available")
	}
	if _, err = New("test-unknown", sym.NewArena(), nil); err == nil {
		tst.Errorf("unknown model should fail")
	}
}
