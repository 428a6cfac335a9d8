// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func Test_simplify01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("simplify01. identities, zeros and folding")

	a := NewArena()
	x := a.Var("x")
	one, zero := a.Const(1), a.Const(0)
	check := func(msg string, got, want Id) {
		if got != want {
			tst.Errorf("%s: got %s; want %s", msg, a.String(got), a.String(want))
		}
	}

	check("x*1", a.Simplify(a.Mul(x, one)), x)
	check("1*x", a.Simplify(a.Mul(one, x)), x)
	check("x+0", a.Simplify(a.Add(x, zero)), x)
	check("x-0", a.Simplify(a.Sub(x, zero)), x)
	check("x/1", a.Simplify(a.Div(x, one)), x)
	check("x^1", a.Simplify(a.Pow(x, one)), x)
	check("x^0", a.Simplify(a.Pow(x, zero)), one)
	check("x*0", a.Simplify(a.Mul(x, zero)), zero)
	check("0/x", a.Simplify(a.Div(zero, x)), zero)
	check("--x", a.Simplify(a.Neg(a.Neg(x))), x)
	check("2+3", a.Simplify(a.Add(a.Const(2), a.Const(3))), a.Const(5))
	check("exp(0)", a.Simplify(a.Exp(zero)), one)
	check("log(exp(x))", a.Simplify(a.Log(a.Exp(x))), x)

	// zero keeps the shape of the product
	c := a.Var("c", "negative")
	z := a.Simplify(a.Mul(c, zero))
	check("c*0", z, a.Zeros(a.Shape(c)))
	if !a.Shape(z).Equal(a.Shape(c)) {
		tst.Errorf("c*0 has shape %v; want %v", a.Shape(z), a.Shape(c))
	}
	check("0*c+x", a.Simplify(a.Add(a.Mul(zero, c), x)), a.Simplify(a.Add(x, a.Zeros(a.Shape(c)))))
}

func Test_simplify02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("simplify02. flattening and canonical order")

	a := NewArena()
	x, y := a.Var("x"), a.Var("y")

	s := a.Simplify(a.Add(a.Add(x, a.Add(y, a.Const(2))), a.Const(3)))
	n := a.Node(s)
	if n.Kind != KindSum || len(n.Children) != 3 {
		tst.Errorf("nested sum should be flattened into 3 terms; got %s", a.String(s))
		return
	}
	io.Pforan("s = %s\n", a.String(s))

	p := a.Simplify(a.Mul(a.Mul(a.Const(2), x), a.Mul(y, a.Const(3))))
	n = a.Node(p)
	if n.Kind != KindProduct || len(n.Children) != 3 {
		tst.Errorf("nested product should be flattened into 3 factors; got %s", a.String(p))
		return
	}
	io.Pforan("p = %s\n", a.String(p))

	// commutative operands
	if a.Simplify(a.Add(x, y)) != a.Simplify(a.Add(y, x)) {
		tst.Errorf("x+y and y+x should simplify to the same node")
	}
	if a.Simplify(a.Mul(a.Mul(x, y), a.Const(2))) != a.Simplify(a.Mul(a.Const(2), a.Mul(y, x))) {
		tst.Errorf("2xy and yx2 should simplify to the same node")
	}
}

func Test_simplify03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("simplify03. equivalence and idempotence")

	a := NewArena()
	x, y := a.Var("x"), a.Var("y")
	c := a.Var("c", "negative")
	k := func(v float64) Id { return a.Const(v) }

	exprs := []Id{
		a.Add(a.Mul(a.Add(x, k(0)), a.Mul(k(1), y)), a.Mul(k(2), k(3))),
		a.Add(a.Div(a.Sub(x, y), k(1)), a.Neg(a.Neg(a.Mul(x, y)))),
		a.Exp(a.Log(a.Exp(x))),
		a.Mul(a.Pow(a.Add(a.Pow(x, k(2)), a.Pow(y, k(2))), k(0.5)), a.Add(a.Mul(x, k(0)), k(1))),
		a.Sub(a.Sqrt(a.Add(a.Mul(x, x), k(1))), a.Div(a.Mul(a.Add(k(2), k(3)), x), k(4))),
		a.Sub(a.Mul(k(2), a.Add(x, y)), a.Mul(a.Add(y, x), k(2))),
		a.Add(a.Sub(a.Add(a.Mul(a.Tanh(x), a.Sinh(y)), a.Cosh(x)), a.Arcsinh(y)), a.Mul(a.Abs(a.Sub(x, y)), a.Sign(y))),
		a.Add(a.Sub(a.Max(x, y), a.Min(x, k(2))), a.Mul(a.Less(x, y), k(3))),
		a.Add(a.Add(a.Mul(c, k(0)), a.Mul(c, k(1))), a.Add(a.Mul(c, k(2)), x)),
		a.Sub(a.Mul(a.Div(k(6), k(3)), c), a.Neg(a.Vector([]float64{1, 2, 3}, []string{"negative"}, Nodes))),
		a.Neg(a.Mul(a.Neg(x), a.Mul(k(-2), a.Cos(y)))),
		a.Div(a.Sub(a.Exp(c), k(0)), a.Add(a.Mul(c, c), k(1))),
	}

	X := []float64{0.3, 1.7, -0.8}
	Y := []float64{0.5, -1.2, 2.0}
	for i, e := range exprs {
		s := a.Simplify(e)
		if a.Simplify(s) != s {
			tst.Errorf("expression %d: simplify is not idempotent", i)
			return
		}
		if !a.Shape(s).Equal(a.Shape(e)) {
			tst.Errorf("expression %d: shape changed from %v to %v", i, a.Shape(e), a.Shape(s))
			return
		}
		io.Pf("%2d: %s  =>  %s\n", i, a.String(e), a.String(s))
		for j := range X {
			env := &Env{Vars: map[string][]float64{"x": {X[j]}, "y": {Y[j]}, "c": {1, 2, 3}}}
			ve, err := a.Evaluate(env, e)
			if err != nil {
				tst.Errorf("Evaluate failed:\n%v", err)
				return
			}
			vs, err := a.Evaluate(env, s)
			if err != nil {
				tst.Errorf("Evaluate failed:\n%v", err)
				return
			}
			if len(vs) == 1 && len(ve) > 1 {
				vs = []float64{vs[0], vs[0], vs[0]}
			}
			chk.Array(tst, io.Sf("e%d(%g,%g)", i, X[j], Y[j]), 1e-13, vs, ve)
		}
	}
}
