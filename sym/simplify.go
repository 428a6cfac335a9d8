// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"sort"
)

// Simplify returns an equivalent expression with constants folded, identities removed and
// nested sums/products flattened. The shape of the result equals the shape of id.
// Simplify(Simplify(x)) == Simplify(x).
func (o *Arena) Simplify(id Id) Id {
	o.mu.RLock()
	r, ok := o.simp[id]
	o.mu.RUnlock()
	if ok {
		return r
	}
	r = id
	for {
		s := o.simplifyOnce(r)
		if s == r {
			break
		}
		r = s
	}
	o.mu.Lock()
	o.simp[id] = r
	o.simp[r] = r
	o.mu.Unlock()
	return r
}

// simplifyOnce simplifies the children of id and applies the rewrite rules of its kind
func (o *Arena) simplifyOnce(id Id) Id {
	n := o.Node(id)
	if n.Kind.IsLeaf() || n.Kind.IsJac() {
		return id
	}
	cs := make([]Id, len(n.Children))
	for i, c := range n.Children {
		cs[i] = o.Simplify(c)
	}
	s := Shape{n.Domain, n.Loc, n.Size}
	switch n.Kind {
	case KindAdd, KindSum:
		return o.simpSum(s, cs)
	case KindSub:
		return o.simpSum(s, []Id{cs[0], o.simpNeg(cs[1])})
	case KindMul, KindProduct:
		return o.simpProduct(s, cs)
	case KindDiv:
		return o.simpDiv(n, s, cs[0], cs[1])
	case KindPow:
		return o.simpPow(n, s, cs[0], cs[1])
	case KindNeg:
		return o.simpNeg(cs[0])
	case KindLog:
		if c := o.Node(cs[0]); c.Kind == KindExp {
			return c.Children[0]
		}
	case KindBroadcast:
		if c := o.Node(cs[0]); c.Kind == KindConstant {
			return o.Filled(c.Value, s)
		}
	case KindMatMul:
		if o.isZero(cs[0]) {
			return o.Zeros(s)
		}
	}
	m := o.rebuild(n, cs)
	if o.foldable(n.Kind, s, cs) {
		return o.fold(m, s)
	}
	return m
}

// simpSum flattens nested sums, collects scalar constants, drops zeros and sorts the operands
func (o *Arena) simpSum(s Shape, cs []Id) Id {
	var terms, zeros []Id
	c, allConst := 0.0, true
	stack := append([]Id{}, cs...)
	for len(stack) > 0 {
		x := stack[0]
		stack = stack[1:]
		nx := o.Node(x)
		switch {
		case nx.Kind == KindSum:
			stack = append(stack, nx.Children...)
		case nx.Kind == KindConstant && nx.IsScalar():
			c += nx.Value
		case nx.Kind == KindConstant && nx.Value == 0:
			zeros = append(zeros, x)
		default:
			terms = append(terms, x)
			allConst = allConst && (nx.Kind == KindVector || nx.Kind == KindConstant)
		}
	}
	if c != 0 {
		terms = append(terms, o.Const(c))
	}
	if len(terms) == 0 {
		return o.Zeros(s)
	}
	if allConst {
		return o.fold(o.nary(KindSum, append(terms, zeros...)), s)
	}
	if !o.shapeOf(terms).Equal(s) {
		terms = append(terms, o.Zeros(s))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	o.sortIds(terms)
	return o.nary(KindSum, terms)
}

// simpProduct flattens nested products, collects scalar constants and negations, and
// propagates zeros keeping the shape of the product
func (o *Arena) simpProduct(s Shape, cs []Id) Id {
	var terms, ones []Id
	c, allConst := 1.0, true
	stack := append([]Id{}, cs...)
	for len(stack) > 0 {
		x := stack[0]
		stack = stack[1:]
		nx := o.Node(x)
		switch {
		case nx.Kind == KindProduct:
			stack = append(stack, nx.Children...)
		case nx.Kind == KindNeg:
			c = -c
			stack = append(stack, nx.Children[0])
		case nx.Kind == KindConstant && nx.Value == 0:
			return o.Zeros(s)
		case nx.Kind == KindConstant && nx.IsScalar():
			c *= nx.Value
		case nx.Kind == KindConstant && nx.Value == 1:
			ones = append(ones, x)
		default:
			terms = append(terms, x)
			allConst = allConst && (nx.Kind == KindVector || nx.Kind == KindConstant)
		}
	}
	if c == 0 {
		return o.Zeros(s)
	}
	if len(terms) == 0 {
		return o.Filled(c, s)
	}
	if allConst {
		if c != 1 {
			terms = append(terms, o.Const(c))
		}
		return o.fold(o.nary(KindProduct, append(terms, ones...)), s)
	}
	if !o.shapeOf(terms).Equal(s) {
		terms = append(terms, o.Filled(1, s))
	}
	if len(terms) == 1 {
		switch c {
		case 1:
			return terms[0]
		case -1:
			return o.Neg(terms[0])
		}
	}
	if c != 1 {
		terms = append(terms, o.Const(c))
	}
	o.sortIds(terms)
	return o.nary(KindProduct, terms)
}

// simpDiv removes 0/x and x/1 and turns division by a constant into a product
func (o *Arena) simpDiv(n Node, s Shape, a, b Id) Id {
	if o.isZero(a) {
		return o.Zeros(s)
	}
	if v, ok := o.scalarConst(b); ok && v != 0 {
		return o.simpProduct(s, []Id{o.Const(1 / v), a})
	}
	m := o.rebuild(n, []Id{a, b})
	if o.isConst(a) && o.isConst(b) {
		return o.fold(m, s)
	}
	return m
}

// simpPow removes x^0, x^1 and 1^x
func (o *Arena) simpPow(n Node, s Shape, a, b Id) Id {
	if v, ok := o.scalarConst(b); ok {
		switch v {
		case 0:
			return o.Filled(1, s)
		case 1:
			if o.Shape(a).Equal(s) {
				return a
			}
		}
	}
	if v, ok := o.scalarConst(a); ok && v == 1 {
		return o.Filled(1, s)
	}
	m := o.rebuild(n, []Id{a, b})
	if o.isConst(a) && o.isConst(b) {
		return o.fold(m, s)
	}
	return m
}

// simpNeg folds constants and removes double negation
func (o *Arena) simpNeg(x Id) Id {
	nx := o.Node(x)
	s := Shape{nx.Domain, nx.Loc, nx.Size}
	switch nx.Kind {
	case KindConstant:
		return o.Filled(-nx.Value, s)
	case KindVector:
		return o.fold(o.Neg(x), s)
	case KindNeg:
		return nx.Children[0]
	case KindProduct:
		return o.simpProduct(s, append([]Id{o.Const(-1)}, nx.Children...))
	}
	return o.Neg(x)
}

// constants ////////////////////////////////////////////////////////////////////////////////////////

// foldable tells whether a node of this kind with these children can be computed now
func (o *Arena) foldable(kind Kind, s Shape, cs []Id) bool {
	switch {
	case kind.IsElementwise(), kind == KindMatMul, kind == KindIndex:
	case kind == KindConcatenation && s.Size > 0:
	default:
		return false
	}
	for _, c := range cs {
		if !o.isConst(c) {
			return false
		}
	}
	return true
}

// fold evaluates a constant expression and returns a Constant or Vector node with shape s
func (o *Arena) fold(id Id, s Shape) Id {
	v, err := o.NewEvaluator().Eval1(&Env{}, id)
	if err != nil {
		return id
	}
	same := true
	for _, x := range v {
		same = same && x == v[0]
	}
	if same {
		return o.Filled(v[0], s)
	}
	if len(v) != s.Size {
		return id
	}
	return o.Vector(v, s.Domain, s.Loc)
}

func (o *Arena) isConst(id Id) bool {
	k := o.Node(id).Kind
	return k == KindConstant || k == KindVector
}

func (o *Arena) isZero(id Id) bool {
	n := o.Node(id)
	return n.Kind == KindConstant && n.Value == 0
}

func (o *Arena) scalarConst(id Id) (float64, bool) {
	n := o.Node(id)
	if n.Kind == KindConstant && n.IsScalar() {
		return n.Value, true
	}
	return 0, false
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

// rebuild returns a node equal to n but with children cs
func (o *Arena) rebuild(n Node, cs []Id) Id {
	n.Children = cs
	n.Hash = 0
	return o.intern(n)
}

// shapeOf returns the elementwise shape of a set of operands
func (o *Arena) shapeOf(xs []Id) Shape {
	s := Scalar
	for _, x := range xs {
		s, _ = combine(s, o.Shape(x))
	}
	return s
}

// sortIds orders commutative operands by structural hash
func (o *Arena) sortIds(xs []Id) {
	sort.SliceStable(xs, func(i, j int) bool {
		hi, hj := o.Hash(xs[i]), o.Hash(xs[j])
		if hi != hj {
			return hi < hj
		}
		return xs[i] < xs[j]
	})
}
