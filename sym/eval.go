// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// Env holds the values needed to evaluate an expression
type Env struct {
	T      float64              // time
	Y      []float64            // state vector (discretised expressions)
	Vars   map[string][]float64 // variable values (expressions before discretisation)
	Inputs map[string]float64   // input parameters supplied at solve time
}

// Evaluator evaluates nodes of one arena. Shared sub-expressions are computed once per pass.
// An Evaluator must be used by one goroutine at a time.
type Evaluator struct {
	a      *Arena        // arena
	nodes  []Node        // snapshot of nodes
	mats   []*SpMat      // snapshot of matrices
	vecs   [][]float64   // snapshot of arrays
	env    *Env          // current environment
	pass   uint32        // current pass
	mark   []uint32      // pass in which vals[id] was computed
	jmark  []uint32      // pass in which jacs[id] was computed
	vals   [][]float64   // values
	bufs   [][]float64   // storage owned by the evaluator
	jacs   []*SpMat      // evaluated matrix nodes
	consts map[Id]*SpMat // evaluated constant matrix nodes
}

// NewEvaluator returns an evaluator for nodes of o
func (o *Arena) NewEvaluator() *Evaluator {
	return &Evaluator{a: o, consts: make(map[Id]*SpMat)}
}

// Evaluate evaluates one expression
func (o *Arena) Evaluate(env *Env, id Id) (res []float64, err error) {
	v, err := o.NewEvaluator().Eval1(env, id)
	if err != nil {
		return
	}
	return append([]float64{}, v...), nil
}

// EvaluateScalar evaluates an expression holding a single number
func (o *Arena) EvaluateScalar(env *Env, id Id) (res float64, err error) {
	v, err := o.Evaluate(env, id)
	if err != nil {
		return
	}
	if len(v) != 1 {
		return 0, chk.Err("expression has %d entries; a scalar was expected", len(v))
	}
	return v[0], nil
}

// Eval evaluates all roots in one pass. The returned slices are owned by the evaluator and
// remain valid until the next call; they must not be modified.
func (o *Evaluator) Eval(env *Env, ids ...Id) (res [][]float64, err error) {
	o.begin(env)
	res = make([][]float64, len(ids))
	for i, id := range ids {
		res[i], err = o.eval(id)
		if err != nil {
			return
		}
	}
	return
}

// Eval1 evaluates one root (see Eval)
func (o *Evaluator) Eval1(env *Env, id Id) (res []float64, err error) {
	o.begin(env)
	return o.eval(id)
}

// EvalJac evaluates a matrix-valued node
func (o *Evaluator) EvalJac(env *Env, id Id) (res *SpMat, err error) {
	o.begin(env)
	return o.jac(id)
}

// begin starts a new pass
func (o *Evaluator) begin(env *Env) {
	o.nodes, o.mats, o.vecs = o.a.snapshot()
	if n := len(o.nodes); n > len(o.mark) {
		grow := n - len(o.mark)
		o.mark = append(o.mark, make([]uint32, grow)...)
		o.jmark = append(o.jmark, make([]uint32, grow)...)
		o.vals = append(o.vals, make([][]float64, grow)...)
		o.bufs = append(o.bufs, make([][]float64, grow)...)
		o.jacs = append(o.jacs, make([]*SpMat, grow)...)
	}
	o.pass++
	if o.pass == 0 {
		for i := range o.mark {
			o.mark[i], o.jmark[i] = 0, 0
		}
		o.pass = 1
	}
	o.env = env
}

// buf returns the storage of node id with m entries
func (o *Evaluator) buf(id Id, m int) []float64 {
	if cap(o.bufs[id]) < m {
		o.bufs[id] = make([]float64, m)
	}
	o.bufs[id] = o.bufs[id][:m]
	return o.bufs[id]
}

// eval computes the value of a node
func (o *Evaluator) eval(id Id) (res []float64, err error) {
	if o.mark[id] == o.pass {
		return o.vals[id], nil
	}
	n := &o.nodes[id]
	switch {

	case n.Kind == KindConstant:
		res = o.buf(id, imax(n.Size, 1))
		for i := range res {
			res[i] = n.Value
		}

	case n.Kind == KindVector:
		res = o.vecs[n.Aux]

	case n.Kind == KindVariable:
		v, ok := o.env.Vars[n.Name]
		if !ok {
			return nil, Errf(ErrUnboundVariable, "%q", n.Name)
		}
		res = v

	case n.Kind == KindParameter:
		v, ok := o.env.Inputs[n.Name]
		if !ok {
			return nil, Errf(ErrUnboundParameter, "%q", n.Name)
		}
		res = o.buf(id, 1)
		res[0] = v

	case n.Kind == KindTime:
		res = o.buf(id, 1)
		res[0] = o.env.T

	case n.Kind == KindStateVector:
		if n.Aux2 > len(o.env.Y) {
			return nil, chk.Err("state vector of length %d is too short for slice [%d,%d) of %q", len(o.env.Y), n.Aux, n.Aux2, n.Name)
		}
		res = o.env.Y[n.Aux:n.Aux2]

	case n.Kind.IsBinary():
		var a, b []float64
		if a, err = o.eval(n.Children[0]); err != nil {
			return
		}
		if b, err = o.eval(n.Children[1]); err != nil {
			return
		}
		m, ok := broadcastLen(len(a), len(b))
		if !ok {
			return nil, Errf(ErrShape, "operator %q with %d and %d entries", n.Kind, len(a), len(b))
		}
		f := binaryFcns[n.Kind]
		res = o.buf(id, m)
		for i := range res {
			res[i] = f(at(a, i), at(b, i))
		}

	case n.Kind == KindSum || n.Kind == KindProduct:
		args := make([][]float64, len(n.Children))
		m := 1
		for k, c := range n.Children {
			if args[k], err = o.eval(c); err != nil {
				return
			}
			var ok bool
			if m, ok = broadcastLen(m, len(args[k])); !ok {
				return nil, Errf(ErrShape, "operator %q with %d and %d entries", n.Kind, m, len(args[k]))
			}
		}
		res = o.buf(id, m)
		if n.Kind == KindSum {
			for i := range res {
				res[i] = 0
				for _, v := range args {
					res[i] += at(v, i)
				}
			}
		} else {
			for i := range res {
				res[i] = 1
				for _, v := range args {
					res[i] *= at(v, i)
				}
			}
		}

	case n.Kind.IsUnary():
		var a []float64
		if a, err = o.eval(n.Children[0]); err != nil {
			return
		}
		f := unaryFcns[n.Kind]
		res = o.buf(id, len(a))
		for i := range res {
			res[i] = f(a[i])
		}

	case n.Kind == KindBroadcast:
		var a []float64
		if a, err = o.eval(n.Children[0]); err != nil {
			return
		}
		if n.Size == 0 {
			res = a
			break
		}
		res = o.buf(id, n.Size)
		for i := range res {
			res[i] = a[0]
		}

	case n.Kind.IsSpatial():
		return nil, Errf(ErrNotDiscretised, "%q", n.Kind)

	case n.Kind == KindConcatenation:
		m := 0
		args := make([][]float64, len(n.Children))
		for k, c := range n.Children {
			if args[k], err = o.eval(c); err != nil {
				return
			}
			m += len(args[k])
		}
		res = o.buf(id, m)[:0]
		for _, v := range args {
			res = append(res, v...)
		}

	case n.Kind == KindMatMul:
		var x []float64
		if x, err = o.eval(n.Children[0]); err != nil {
			return
		}
		mat := o.mats[n.Aux]
		if len(x) != 1 && len(x) != mat.N {
			return nil, Errf(ErrShape, "%dx%d matrix times %d entries", mat.M, mat.N, len(x))
		}
		res = o.buf(id, mat.M)
		mat.MulVec(res, x)

	case n.Kind == KindIndex:
		var x []float64
		if x, err = o.eval(n.Children[0]); err != nil {
			return
		}
		res = o.buf(id, 1)
		res[0] = at(x, n.Aux)

	default:
		return nil, chk.Err("cannot evaluate %q node as a vector", n.Kind)
	}
	o.vals[id] = res
	o.mark[id] = o.pass
	return
}

// jac computes the value of a matrix-valued node
func (o *Evaluator) jac(id Id) (res *SpMat, err error) {
	if o.jmark[id] == o.pass {
		return o.jacs[id], nil
	}
	n := &o.nodes[id]
	switch n.Kind {

	case KindJacZero:
		if res = o.consts[id]; res == nil {
			res = SpZero(n.Size, n.Cols)
			o.consts[id] = res
		}

	case KindJacConst:
		res = o.mats[n.Aux]

	case KindJacSum:
		for k, c := range n.Children {
			var a *SpMat
			if a, err = o.jac(c); err != nil {
				return
			}
			if k == 0 {
				res = a
			} else {
				res = res.Add(a)
			}
		}

	case KindJacDiag:
		var v []float64
		var a *SpMat
		if v, err = o.eval(n.Children[0]); err != nil {
			return
		}
		if a, err = o.jac(n.Children[1]); err != nil {
			return
		}
		if len(v) != 1 && len(v) != a.M {
			return nil, Errf(ErrShape, "diagonal of %d entries times %dx%d matrix", len(v), a.M, a.N)
		}
		res = a.ScaleRows(v)

	case KindJacMat:
		var a *SpMat
		if a, err = o.jac(n.Children[0]); err != nil {
			return
		}
		res = o.mats[n.Aux].Mul(a)

	case KindJacStack:
		parts := make([]*SpMat, len(n.Children))
		for k, c := range n.Children {
			if parts[k], err = o.jac(c); err != nil {
				return
			}
		}
		res = SpStack(parts...)

	case KindJacRow:
		var a *SpMat
		if a, err = o.jac(n.Children[0]); err != nil {
			return
		}
		res = a.Row(n.Aux)

	case KindJacBroadcast:
		var a *SpMat
		if a, err = o.jac(n.Children[0]); err != nil {
			return
		}
		res = a.Replicate(n.Size)

	default:
		return nil, chk.Err("cannot evaluate %q node as a matrix", n.Kind)
	}
	o.jacs[id] = res
	o.jmark[id] = o.pass
	return
}

// functions ////////////////////////////////////////////////////////////////////////////////////////

var unaryFcns = map[Kind]func(x float64) float64{
	KindNeg:     func(x float64) float64 { return -x },
	KindExp:     math.Exp,
	KindLog:     math.Log,
	KindSqrt:    math.Sqrt,
	KindSign:    sign,
	KindAbs:     math.Abs,
	KindSin:     math.Sin,
	KindCos:     math.Cos,
	KindSinh:    math.Sinh,
	KindCosh:    math.Cosh,
	KindTanh:    math.Tanh,
	KindArcsinh: math.Asinh,
}

var binaryFcns = map[Kind]func(a, b float64) float64{
	KindAdd:       func(a, b float64) float64 { return a + b },
	KindSub:       func(a, b float64) float64 { return a - b },
	KindMul:       func(a, b float64) float64 { return a * b },
	KindDiv:       func(a, b float64) float64 { return a / b },
	KindPow:       math.Pow,
	KindMin:       math.Min,
	KindMax:       math.Max,
	KindLess:      func(a, b float64) float64 { return b2f(a < b) },
	KindLessEq:    func(a, b float64) float64 { return b2f(a <= b) },
	KindGreater:   func(a, b float64) float64 { return b2f(a > b) },
	KindGreaterEq: func(a, b float64) float64 { return b2f(a >= b) },
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// at returns v[i] with scalar broadcasting
func at(v []float64, i int) float64 {
	if len(v) == 1 {
		return v[0]
	}
	return v[i]
}

// broadcastLen returns the length of an elementwise result
func broadcastLen(a, b int) (int, bool) {
	switch {
	case a == b || b == 1:
		return a, true
	case a == 1:
		return b, true
	}
	return 0, false
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}
