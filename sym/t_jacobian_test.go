// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"errors"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/num"
)

// numJacobian computes the Jacobian of id by finite differences
func numJacobian(tst *testing.T, a *Arena, id Id, y []float64) (res [][]float64) {
	f0, err := a.Evaluate(&Env{Y: y}, id)
	if err != nil {
		tst.Errorf("Evaluate failed:\n%v", err)
		return
	}
	res = make([][]float64, len(f0))
	for i := range res {
		res[i] = make([]float64, len(y))
		for j := range y {
			yy := append([]float64{}, y...)
			res[i][j] = num.DerivCen5(y[j], 1e-4, func(t float64) (r float64) {
				yy[j] = t
				f, _ := a.Evaluate(&Env{Y: yy}, id)
				return f[i]
			})
		}
	}
	return
}

func Test_jac01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("jac01. nonlinear jacobian versus finite differences")

	a := NewArena()
	dom := []string{"negative"}
	u := a.StateVector("u", 0, 3, dom, Nodes)
	v := a.StateVector("v", 3, 4, nil, Nodes)
	M := SpDense([][]float64{
		{-2, 1, 0},
		{1, -2, 1},
		{0, 1, -2},
	})
	s := Shape{Domain: dom, Loc: Nodes}

	// u² + M u + exp(v) sin(u)
	e1 := a.Add(a.Add(a.Mul(u, u), a.MatMul(M, u, s)), a.Mul(a.Exp(v), a.Sin(u)))

	// [u[1] exp(v), v², sum(u)/v]
	sum := a.MatMul(SpDense([][]float64{{1, 1, 1}}), u, Scalar)
	e2 := a.Join(Shape{}, a.Mul(a.Index(u, 1), a.Exp(v)), a.Mul(v, v), a.Div(sum, v))

	// [e1; e2]
	e3 := a.Join(Shape{}, e1, e2)

	y := []float64{0.3, -0.7, 1.1, 0.4}
	for k, e := range []Id{e1, e2, e3} {
		jac, err := a.Jacobian(e, 4)
		if err != nil {
			tst.Errorf("Jacobian failed:\n%v", err)
			return
		}
		io.Pforan("J%d = %s\n", k+1, a.String(jac))
		J, err := a.NewEvaluator().EvalJac(&Env{Y: y}, jac)
		if err != nil {
			tst.Errorf("EvalJac failed:\n%v", err)
			return
		}
		chk.Deep2(tst, io.Sf("J%d", k+1), 1e-7, J.Dense(), numJacobian(tst, a, e, y))
	}
}

func Test_jac02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("jac02. affine expressions have constant jacobians")

	a := NewArena()
	u := a.StateVector("u", 0, 2, []string{"x"}, Nodes)
	w := a.StateVector("w", 2, 3, nil, Nodes)
	M := SpDense([][]float64{{1, 2}, {3, 4}})
	s := Shape{Domain: []string{"x"}, Loc: Nodes}

	// M u + 2 w + t
	e := a.Add(a.Add(a.MatMul(M, u, s), a.Scale(2, w)), a.Time())
	jac, err := a.Jacobian(e, 3)
	if err != nil {
		tst.Errorf("Jacobian failed:\n%v", err)
		return
	}
	m, ok := a.ConstJacobian(jac)
	if !ok {
		tst.Errorf("jacobian of affine expression should be constant; got %s", a.String(jac))
		return
	}
	chk.Deep2(tst, "J", 1e-15, m.Dense(), [][]float64{
		{1, 2, 2},
		{3, 4, 2},
	})

	// nonlinear
	jac, err = a.Jacobian(a.Mul(u, w), 3)
	if err != nil {
		tst.Errorf("Jacobian failed:\n%v", err)
		return
	}
	if _, ok = a.ConstJacobian(jac); ok {
		tst.Errorf("jacobian of u*w should not be constant")
	}

	// not discretised
	_, err = a.Jacobian(a.Var("c", "x"), 3)
	if !errors.Is(err, ErrNotDiscretised) {
		tst.Errorf("jacobian of variable should fail. err = %v", err)
	}
}

func Test_spmat01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("spmat01. sparse matrix operations")

	b := NewSpBuilder(2, 3)
	b.Put(0, 2, 1)
	b.Put(0, 0, 2)
	b.Put(0, 2, 3)
	b.Put(1, 1, 5)
	b.Put(1, 0, 0)
	A := b.Build()
	chk.IntAssert(A.NNZ(), 3)
	chk.Deep2(tst, "A", 1e-15, A.Dense(), [][]float64{
		{2, 0, 4},
		{0, 5, 0},
	})

	B := SpDense([][]float64{{1, 0}, {0, 1}, {1, 1}})
	chk.Deep2(tst, "A*B", 1e-15, A.Mul(B).Dense(), [][]float64{
		{6, 4},
		{0, 5},
	})
	chk.Deep2(tst, "A+A", 1e-15, A.Add(A).Dense(), [][]float64{
		{4, 0, 8},
		{0, 10, 0},
	})
	chk.Deep2(tst, "diag(v)A", 1e-15, A.ScaleRows([]float64{-1, 2}).Dense(), [][]float64{
		{-2, 0, -4},
		{0, 10, 0},
	})
	chk.Deep2(tst, "stack", 1e-15, SpStack(A.Row(1), A).Dense(), [][]float64{
		{0, 5, 0},
		{2, 0, 4},
		{0, 5, 0},
	})
	chk.Deep2(tst, "replicate", 1e-15, A.Row(0).Replicate(2).Dense(), [][]float64{
		{2, 0, 4},
		{2, 0, 4},
	})

	y := make([]float64, 2)
	A.MulVec(y, []float64{1, 2, 3})
	chk.Array(tst, "A*x", 1e-15, y, []float64{14, 10})
	A.MulVecAdd(y, -1, []float64{1, 2, 3})
	chk.Array(tst, "y-A*x", 1e-15, y, []float64{0, 0})

	if !A.Equal(SpDense(A.Dense())) || A.Hash() != SpDense(A.Dense()).Hash() {
		tst.Errorf("equal matrices must have equal hashes")
	}
	if A.SamePattern(A.ScaleRows([]float64{0, 1})) {
		tst.Errorf("patterns should differ")
	}
}
