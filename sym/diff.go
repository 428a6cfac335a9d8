// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

// Diff returns the (elementwise) derivative of id with respect to the variable wrt.
// Spatial and matrix operators are linear and act on the derivative of their operand.
func (o *Arena) Diff(id, wrt Id) Id {
	if k := o.Node(wrt).Kind; k != KindVariable && k != KindStateVector {
		raise(ErrShape, "cannot differentiate with respect to a %q node", k)
	}
	return o.Simplify(o.diff(id, wrt))
}

// diff applies the chain rule without simplification
func (o *Arena) diff(id, wrt Id) (r Id) {
	key := [2]Id{id, wrt}
	o.mu.RLock()
	r, ok := o.diffs[key]
	o.mu.RUnlock()
	if ok {
		return
	}
	n := o.Node(id)
	s := Shape{n.Domain, n.Loc, n.Size}
	switch {

	case id == wrt:
		r = o.Filled(1, s)

	case n.Kind.IsLeaf():
		r = o.Zeros(s)

	case n.Kind.IsElementwise():
		var ps, terms []Id
		for i, c := range n.Children {
			dc := o.diff(c, wrt)
			if o.isZero(dc) {
				continue
			}
			if ps == nil {
				ps = o.partials(id, &n)
			}
			terms = append(terms, o.Mul(ps[i], dc))
		}
		if len(terms) == 0 {
			r = o.Zeros(s)
			break
		}
		if !o.shapeOf(terms).Equal(s) {
			terms = append(terms, o.Zeros(s))
		}
		r = o.Sum(terms...)

	case n.Kind.IsJac():
		raise(ErrShape, "cannot differentiate matrix-valued %q node", n.Kind)

	default:
		// linear operators: spatial, concatenation, matmul, index
		dcs := make([]Id, len(n.Children))
		zero := true
		for i, c := range n.Children {
			dcs[i] = o.diff(c, wrt)
			zero = zero && o.isZero(dcs[i])
		}
		if zero {
			r = o.Zeros(s)
			break
		}
		r = o.rebuild(n, dcs)
	}
	o.mu.Lock()
	o.diffs[key] = r
	o.mu.Unlock()
	return
}

// partials returns the elementwise derivatives of node id with respect to each child
func (o *Arena) partials(id Id, n *Node) []Id {
	c := n.Children
	one := o.Const(1)
	zero := o.Const(0)
	switch n.Kind {
	case KindAdd:
		return []Id{one, one}
	case KindSub:
		return []Id{one, o.Const(-1)}
	case KindMul:
		return []Id{c[1], c[0]}
	case KindDiv:
		return []Id{o.Div(one, c[1]), o.Neg(o.Div(c[0], o.Mul(c[1], c[1])))}
	case KindPow:
		return []Id{o.Mul(c[1], o.Pow(c[0], o.Sub(c[1], one))), o.Mul(id, o.Log(c[0]))}
	case KindMin:
		return []Id{o.LessEq(c[0], c[1]), o.Greater(c[0], c[1])}
	case KindMax:
		return []Id{o.GreaterEq(c[0], c[1]), o.Less(c[0], c[1])}
	case KindLess, KindLessEq, KindGreater, KindGreaterEq:
		return []Id{zero, zero}
	case KindSum:
		ps := make([]Id, len(c))
		for i := range ps {
			ps[i] = one
		}
		return ps
	case KindProduct:
		ps := make([]Id, len(c))
		for i := range ps {
			others := make([]Id, 0, len(c)-1)
			others = append(others, c[:i]...)
			others = append(others, c[i+1:]...)
			ps[i] = o.Product(others...)
		}
		return ps
	case KindNeg:
		return []Id{o.Const(-1)}
	case KindExp:
		return []Id{id}
	case KindLog:
		return []Id{o.Div(one, c[0])}
	case KindSqrt:
		return []Id{o.Div(o.Const(0.5), id)}
	case KindSign:
		return []Id{zero}
	case KindAbs:
		return []Id{o.Sign(c[0])}
	case KindSin:
		return []Id{o.Cos(c[0])}
	case KindCos:
		return []Id{o.Neg(o.Sin(c[0]))}
	case KindSinh:
		return []Id{o.Cosh(c[0])}
	case KindCosh:
		return []Id{o.Sinh(c[0])}
	case KindTanh:
		return []Id{o.Sub(one, o.Mul(id, id))}
	case KindArcsinh:
		return []Id{o.Div(one, o.Sqrt(o.Add(o.Mul(c[0], c[0]), one)))}
	}
	raise(ErrShape, "no derivative rule for %q", n.Kind)
	return nil
}
